// Package hierarchical analyses task sets running inside a periodic
// resource reservation and designs the cheapest reservation that keeps them
// schedulable: on one processor (Shin & Lee 2003) and on a cluster of
// processors through the multiprocessor periodic resource model (Shin,
// Easwaran & Lee 2008).
package hierarchical

import (
	"math"
	"math/big"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/internal/uniproc"
	"github.com/me/schedkit/pkg/model"
)

const shinLee = "I. Shin, I. Lee. Periodic resource model for compositional real-time guarantees. RTSS 2003."

// DefaultMaxPoints caps the number of time points an analysis evaluates.
const DefaultMaxPoints = 200_000

func prmInfo(name, title string, policy analysis.Policy) analysis.Info {
	return analysis.Info{
		Name:          name,
		Title:         title,
		Citation:      shinLee,
		Family:        analysis.FamilyHierarchical,
		Policy:        policy,
		Strength:      model.StrengthExact,
		Activation:    model.Sporadic,
		Deadlines:     model.DeadlineConstrained,
		Complexity:    "pseudo-polynomial",
		MinProcessors: 1,
		MaxProcessors: 1,
	}
}

// budgetAnalyzer is a resource analysis that can also bound the budget a
// period needs from the linear supply bound. The budget of r is ignored.
type budgetAnalyzer interface {
	analysis.ResourceAnalyzer
	linearBudget(ts model.TaskSet, r model.PeriodicResourceModel) (model.Time, bool)
}

// checkSingle rejects resources that are invalid or span more than one
// processor.
func checkSingle(r model.PeriodicResourceModel) (model.AnalysisResult, bool) {
	if err := r.Validate(); err != nil {
		return model.PreconditionViolated("%s: %v", r, err), false
	}
	if r.Cores() > 1 {
		return model.PreconditionViolated("%s: a single-processor resource is required", r), false
	}
	return model.AnalysisResult{}, true
}

// PRMEDF checks an EDF-scheduled task set against a periodic resource:
// dbf(t) <= sbf(t) at every demand step up to max D + lcm(H, Π).
type PRMEDF struct {
	MaxPoints int
}

func (a *PRMEDF) Info() analysis.Info {
	return prmInfo("prm-edf", "Periodic resource model, EDF local scheduler", analysis.PolicyEDF)
}

func (a *PRMEDF) AnalyzeWith(ts model.TaskSet, p model.Platform, r model.PeriodicResourceModel) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		if res, ok := checkSingle(r); !ok {
			return res
		}
		u := uniproc.Utilization(ts)
		if u.Cmp(analysis.Frac(r.Budget, r.Period)) > 0 {
			f, _ := u.Float64()
			return model.NotSchedulable(-1, "utilization %.4f exceeds bandwidth %.4f", f, r.Bandwidth())
		}
		points, ok := demandSteps(ts, r.Period, pointLimit(a.MaxPoints))
		if !ok {
			res := model.NotSchedulable(-1, "search space exceeds limit (%d points)", pointLimit(a.MaxPoints))
			res.Strength = model.StrengthSufficient
			return res
		}
		for _, t := range points {
			if d, s := uniproc.DemandBound(ts, t), r.SupplyBound(t); d > s {
				return model.NotSchedulable(-1, "demand %d exceeds supply %d at t=%d", d, s, t)
			}
		}
		return model.Schedulable()
	})
}

func (a *PRMEDF) linearBudget(ts model.TaskSet, r model.PeriodicResourceModel) (model.Time, bool) {
	period := r.Period
	points, ok := demandSteps(ts, period, pointLimit(a.MaxPoints))
	if !ok {
		return 0, false
	}
	var need float64
	for _, t := range points {
		need = max(need, LinearBudget(period, t, uniproc.DemandBound(ts, t)))
	}
	return ceilBudget(need, period)
}

func pointLimit(n int) int {
	if n <= 0 {
		return DefaultMaxPoints
	}
	return n
}

// PRMFP checks a fixed-priority task set, priority given by task order,
// against a periodic resource: each task needs some scheduling point t with
// rbf_i(t) <= sbf(t).
type PRMFP struct {
	MaxPoints int
}

func (a *PRMFP) Info() analysis.Info {
	return prmInfo("prm-fp", "Periodic resource model, fixed-priority local scheduler", analysis.PolicyFP)
}

func (a *PRMFP) AnalyzeWith(ts model.TaskSet, p model.Platform, r model.PeriodicResourceModel) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		if res, ok := checkSingle(r); !ok {
			return res
		}
		for i := range ts {
			points, ok := schedulingPoints(ts, i, pointLimit(a.MaxPoints))
			if !ok {
				res := model.NotSchedulable(i, "task %d: search space exceeds limit (%d points)", i, pointLimit(a.MaxPoints))
				res.Strength = model.StrengthSufficient
				return res
			}
			met := false
			for _, t := range points {
				if uniproc.RequestBound(ts, i, t) <= r.SupplyBound(t) {
					met = true
					break
				}
			}
			if !met {
				return model.NotSchedulable(i, "task %d: request exceeds supply at every scheduling point", i)
			}
		}
		return model.Schedulable()
	})
}

func (a *PRMFP) linearBudget(ts model.TaskSet, r model.PeriodicResourceModel) (model.Time, bool) {
	period := r.Period
	var need float64
	for i := range ts {
		points, ok := schedulingPoints(ts, i, pointLimit(a.MaxPoints))
		if !ok {
			return 0, false
		}
		task := math.Inf(1)
		for _, t := range points {
			task = min(task, LinearBudget(period, t, uniproc.RequestBound(ts, i, t)))
		}
		need = max(need, task)
	}
	return ceilBudget(need, period)
}

// LinearBudget returns the smallest real budget Θ for which the linear
// supply bound of (period, Θ) reaches demand at t:
// Θ = ((2Π - t) + sqrt((t - 2Π)^2 + 8Π·demand)) / 4.
func LinearBudget(period, t, demand model.Time) float64 {
	if demand <= 0 {
		return 0
	}
	pi, x, d := float64(period), float64(t), float64(demand)
	return ((2*pi - x) + math.Sqrt((x-2*pi)*(x-2*pi)+8*pi*d)) / 4
}

// ceilBudget rounds need up, failing when it exceeds limit.
func ceilBudget(need float64, limit model.Time) (model.Time, bool) {
	if math.IsInf(need, 0) || math.IsNaN(need) || need > float64(limit) {
		return 0, false
	}
	return max(1, model.Time(math.Ceil(need))), true
}

// demandSteps returns every instant jT_i + D_i up to max D + lcm(H, Π),
// where the EDF demand bound function steps. ok is false when there are
// more than limit points or the horizon overflows.
func demandSteps(ts model.TaskSet, period model.Time, limit int) ([]model.Time, bool) {
	withPeriod := append(ts.Clone(), model.NewTask(1, period, period))
	h, ok := withPeriod.Hyperperiod()
	if !ok || h > math.MaxInt64/2 {
		return nil, false
	}
	horizon := h + ts.MaxDeadline()
	var points []model.Time
	for _, t := range ts {
		for at := t.Deadline; at <= horizon; at += t.Period {
			if len(points) >= limit {
				return nil, false
			}
			points = append(points, at)
		}
	}
	return points, true
}

// schedulingPoints returns D_i and every higher-priority release jT_k below
// D_i.
func schedulingPoints(ts model.TaskSet, i, limit int) ([]model.Time, bool) {
	d := ts[i].Deadline
	points := []model.Time{d}
	for _, hp := range ts[:i] {
		for at := hp.Period; at < d; at += hp.Period {
			if len(points) >= limit {
				return nil, false
			}
			points = append(points, at)
		}
	}
	return points, true
}

// minBudget returns ceil(U·Π), the least budget that can keep up with the
// long-run demand.
func minBudget(ts model.TaskSet, period model.Time) model.Time {
	need := new(big.Rat).Mul(uniproc.Utilization(ts), analysis.Int(int64(period)))
	q := new(big.Int).Quo(need.Num(), need.Denom())
	if new(big.Rat).SetInt(q).Cmp(need) < 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() {
		return period + 1
	}
	return max(1, model.Time(q.Int64()))
}
