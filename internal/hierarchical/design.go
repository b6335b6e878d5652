package hierarchical

import (
	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

// DefaultMaxPeriods caps the number of candidate periods a designer tries.
const DefaultMaxPeriods = 512

// Options bounds a design search. Zero values select the defaults: periods
// from 1 to the smallest task period, at most DefaultMaxPeriods of them.
type Options struct {
	PeriodMin  model.Time
	PeriodMax  model.Time
	MaxPeriods int
	MaxPoints  int
}

// LinearSearch scans candidate resource periods and, for each, binary
// searches the least budget its oracle accepts. It keeps the interface with
// the lowest bandwidth, preferring longer periods on ties. A cluster search
// designs multiprocessor resources spanning every platform processor.
type LinearSearch struct {
	info    analysis.Info
	oracle  budgetAnalyzer
	opts    Options
	cluster bool
}

// NewEDFDesigner returns a designer for EDF-scheduled partitions.
func NewEDFDesigner(opts Options) *LinearSearch {
	return newLinearSearch("prm-edf-design", "Periodic resource design, EDF local scheduler",
		&PRMEDF{MaxPoints: opts.MaxPoints}, opts)
}

// NewFPDesigner returns a designer for fixed-priority partitions.
func NewFPDesigner(opts Options) *LinearSearch {
	return newLinearSearch("prm-fp-design", "Periodic resource design, fixed-priority local scheduler",
		&PRMFP{MaxPoints: opts.MaxPoints}, opts)
}

// NewMPREDFDesigner returns a designer for globally EDF-scheduled
// clusters.
func NewMPREDFDesigner(opts Options) *LinearSearch {
	d := newLinearSearch("mpr-edf-design", "Multiprocessor periodic resource design, global EDF",
		&MPREDF{MaxPoints: opts.MaxPoints}, opts)
	d.cluster = true
	return d
}

// NewMPRFPDesigner returns a designer for clusters under global fixed
// priorities.
func NewMPRFPDesigner(opts Options) *LinearSearch {
	d := newLinearSearch("mpr-fp-design", "Multiprocessor periodic resource design, global fixed priorities",
		MPRFP{}, opts)
	d.cluster = true
	return d
}

func newLinearSearch(name, title string, oracle budgetAnalyzer, opts Options) *LinearSearch {
	info := oracle.Info()
	info.Name = name
	info.Title = title
	info.Designer = true
	if opts.MaxPeriods <= 0 {
		opts.MaxPeriods = DefaultMaxPeriods
	}
	return &LinearSearch{info: info, oracle: oracle, opts: opts}
}

func (d *LinearSearch) Info() analysis.Info { return d.info }

// Oracle returns the analysis every Found interface was accepted by.
func (d *LinearSearch) Oracle() analysis.ResourceAnalyzer { return d.oracle }

func (d *LinearSearch) Design(ts model.TaskSet, p model.Platform) model.DesignResult {
	if res, ok := analysis.Check(d.oracle.Info(), ts, p); !ok {
		return d.stamp(model.DesignPreconditionViolated("%s", res.Reason), 0, 0)
	}
	lo, hi := max(1, d.opts.PeriodMin), ts.MinPeriod()
	if d.opts.PeriodMax > 0 {
		hi = d.opts.PeriodMax
	}
	if lo > hi {
		return d.stamp(model.DesignPreconditionViolated("empty period range [%d, %d]", lo, hi), 0, 0)
	}
	step := max(1, (hi-lo+model.Time(d.opts.MaxPeriods))/model.Time(d.opts.MaxPeriods))

	var (
		best  model.PeriodicResourceModel
		found bool
		tried int
		calls int
	)
	cores := 0
	if d.cluster {
		cores = p.Processors
	}
	accepts := func(r model.PeriodicResourceModel) bool {
		calls++
		return d.oracle.AnalyzeWith(ts, p, r).IsSchedulable()
	}
	for period := lo; period <= hi; period += step {
		tried++
		shape := model.PeriodicResourceModel{Period: period, Concurrency: cores}
		budget, ok := d.minBudget(ts, shape, accepts)
		if !ok {
			continue
		}
		r := shape
		r.Budget = budget
		if !found || r.LessBandwidth(best) || (r.SameBandwidth(best) && r.Period > best.Period) {
			best, found = r, true
		}
	}
	if !found {
		return d.stamp(model.Infeasible("no period in [%d, %d] admits a feasible budget", lo, hi), tried, calls)
	}
	return d.stamp(model.Found(best), tried, calls)
}

// minBudget returns the least budget for the period and concurrency of
// shape that accepts approves. The linear supply bound gives a budget that
// is usually sufficient when it fits, which narrows the search.
func (d *LinearSearch) minBudget(ts model.TaskSet, shape model.PeriodicResourceModel, accepts func(model.PeriodicResourceModel) bool) (model.Time, bool) {
	lo, hi := minBudget(ts, shape.Period), model.Time(shape.Cores())*shape.Period
	if lo > hi {
		return 0, false
	}
	try := func(b model.Time) bool {
		r := shape
		r.Budget = b
		return accepts(r)
	}
	if hint, ok := d.oracle.linearBudget(ts, shape); ok && hint >= lo {
		if try(hint) {
			budget, _, found := analysis.MinFeasible(lo, hint-1, try)
			if found {
				return budget, true
			}
			return hint, true
		}
		lo = hint + 1
	}
	budget, _, found := analysis.MinFeasible(lo, hi, try)
	return budget, found
}

func (d *LinearSearch) stamp(res model.DesignResult, tried, calls int) model.DesignResult {
	res.Algorithm = d.info.Name
	res.CandidatesTried = tried
	res.OracleCalls = calls
	return res
}
