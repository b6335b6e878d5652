package global

import (
	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

// RTALC is response-time analysis for global fixed priorities with the
// limited carry-in bound of Guan, Stigge, Yi and Yu. Priority is the task
// order. Response times of higher-priority tasks feed the carry-in bound of
// lower ones.
type RTALC struct{}

func (RTALC) Info() analysis.Info {
	return info("rta-lc", "Global FP, response-time analysis with limited carry-in",
		"N. Guan, M. Stigge, W. Yi, G. Yu. New response time bounds for fixed priority multiprocessor scheduling. RTSS 2009.",
		"pseudo-polynomial", analysis.PolicyFP)
}

func (a RTALC) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		rts := make([]model.Time, len(ts))
		for k, tk := range ts {
			it := GlobalResponseTime(ts, k, p.Processors, rts[:k], nil)
			rts[k] = it.Value
			if it.Outcome != analysis.Converged {
				res := model.NotSchedulable(k, "response time of task %d exceeds deadline %d (%s after %d steps)",
					k, tk.Deadline, it.Outcome, it.Steps)
				res.ResponseTimes = rts
				return res
			}
		}
		res := model.Schedulable()
		res.ResponseTimes = rts
		return res
	})
}

// GlobalResponseTime iterates x <- floor(Ω(x)/m) + C_k from x = C_k, where
// hp holds the response times of the higher-priority tasks. Each step that
// does not settle grows x by at least one, so D_k - C_k + 2 steps suffice.
func GlobalResponseTime(ts model.TaskSet, k, m int, hp []model.Time, visit func(model.Time)) analysis.Iteration {
	tk := ts[k]
	step := func(x model.Time) model.Time {
		return analysis.FloorDiv(totalInterference(ts, k, m, hp, x), model.Time(m)) + tk.WCET
	}
	return analysis.FixedPoint(tk.WCET, tk.Deadline, int(tk.Laxity())+2, step, visit)
}

// totalInterference is Ω_k(x): the non-carry-in interference of every
// higher-priority task plus the m-1 largest carry-in increments.
func totalInterference(ts model.TaskSet, k, m int, hp []model.Time, x model.Time) model.Time {
	tk := ts[k]
	capAt := max(x-tk.WCET+1, 0)
	var sum model.Time
	diffs := make([]model.Time, k)
	for i, ti := range ts[:k] {
		nc := clamp(NonCarryInWorkload(ti, x), 0, capAt)
		ci := clamp(CarryInWorkload(ti, hp[i], x), 0, capAt)
		sum += nc
		diffs[i] = ci - nc
	}
	return sum + TopSum(diffs, m-1)
}
