package global

import (
	"math/big"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

const gfbCitation = "J. Goossens, S. Funk, S. Baruah. Priority-driven scheduling of periodic task systems on multiprocessors. Real-Time Systems 2003."

// GFB is the Goossens-Funk-Baruah utilization bound for global EDF.
type GFB struct{}

func (GFB) Info() analysis.Info {
	i := info("gfb", "Global EDF, Goossens-Funk-Baruah bound", gfbCitation, "O(n)", analysis.PolicyEDF)
	i.Activation = model.Periodic
	i.Deadlines = model.DeadlineImplicit
	return i
}

func (a GFB) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		return boundTest(ts, p, func(t model.Task) *big.Rat { return analysis.Frac(t.WCET, t.Period) }, "utilization")
	})
}

// GFBSporadic applies the same bound to densities, which covers sporadic
// tasks with constrained deadlines.
type GFBSporadic struct{}

func (GFBSporadic) Info() analysis.Info {
	return info("gfb-sporadic", "Global EDF, Goossens-Funk-Baruah density bound", gfbCitation, "O(n)", analysis.PolicyEDF)
}

func (a GFBSporadic) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		return boundTest(ts, p, density, "density")
	})
}

// boundTest checks sum <= m - (m-1)*max for a per-task load.
func boundTest(ts model.TaskSet, p model.Platform, load func(model.Task) *big.Rat, what string) model.AnalysisResult {
	sum, peak := new(big.Rat), new(big.Rat)
	for _, t := range ts {
		l := load(t)
		sum.Add(sum, l)
		if l.Cmp(peak) > 0 {
			peak = l
		}
	}
	m := int64(p.Processors)
	bound := new(big.Rat).Mul(analysis.Int(m-1), peak)
	bound.Sub(analysis.Int(m), bound)
	if sum.Cmp(bound) <= 0 {
		return model.Schedulable()
	}
	s, _ := sum.Float64()
	b, _ := bound.Float64()
	return model.NotSchedulable(-1, "total %s %.4f exceeds bound %.4f", what, s, b)
}

func density(t model.Task) *big.Rat {
	return analysis.Frac(t.WCET, min(t.Deadline, t.Period))
}
