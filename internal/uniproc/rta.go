package uniproc

import (
	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

// RTA is exact response-time analysis for preemptive fixed priorities.
// The priority order is the task order, which the declared Ordering checks.
type RTA struct {
	info analysis.Info
}

// NewRTA returns response-time analysis for rate-monotonic priorities and
// implicit deadlines.
func NewRTA() *RTA {
	return &RTA{info: rtaInfo("rta", "Response-time analysis, rate monotonic",
		model.DeadlineImplicit, analysis.OrderPeriod)}
}

// NewRTADM returns response-time analysis for deadline-monotonic
// priorities and constrained deadlines.
func NewRTADM() *RTA {
	return &RTA{info: rtaInfo("rta-dm", "Response-time analysis, deadline monotonic",
		model.DeadlineConstrained, analysis.OrderDeadline)}
}

func rtaInfo(name, title string, dl model.DeadlineModel, order analysis.Ordering) analysis.Info {
	return analysis.Info{
		Name:          name,
		Title:         title,
		Citation:      "M. Joseph, P. Pandya. Finding response times in a real-time system. The Computer Journal 1986.",
		Family:        analysis.FamilyUniprocFP,
		Policy:        analysis.PolicyFP,
		Strength:      model.StrengthExact,
		Activation:    model.Sporadic,
		Deadlines:     dl,
		Ordering:      order,
		Complexity:    "pseudo-polynomial",
		MinProcessors: 1,
		MaxProcessors: 1,
	}
}

func (a *RTA) Info() analysis.Info { return a.info }

func (a *RTA) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.info, ts, p, func() model.AnalysisResult {
		rts := make([]model.Time, len(ts))
		for i, t := range ts {
			it := ResponseTime(ts, i, nil)
			rts[i] = it.Value
			if it.Outcome != analysis.Converged {
				res := model.NotSchedulable(i, "response time of task %d exceeds deadline %d (%s after %d steps)",
					i, t.Deadline, it.Outcome, it.Steps)
				res.ResponseTimes = rts
				return res
			}
		}
		res := model.Schedulable()
		res.ResponseTimes = rts
		return res
	})
}

// IterationCap returns the step limit for task i: every step that does not
// settle adds at least one higher-priority release below the deadline.
func IterationCap(ts model.TaskSet, i int) int {
	n := 2
	for _, hp := range ts[:i] {
		n += int(analysis.CeilDiv(ts[i].Deadline, hp.Period))
	}
	return n
}

// ResponseTime iterates R <- C_i + sum ceil(R/T_j) C_j from R = C_i until
// R settles, exceeds D_i, or the cap is hit.
func ResponseTime(ts model.TaskSet, i int, visit func(model.Time)) analysis.Iteration {
	step := func(r model.Time) model.Time { return RequestBound(ts, i, r) }
	return analysis.FixedPoint(ts[i].WCET, ts[i].Deadline, IterationCap(ts, i), step, visit)
}

// ResponseTimeTrace returns every iterate computed for task i.
func ResponseTimeTrace(ts model.TaskSet, i int) []model.Time {
	var trace []model.Time
	ResponseTime(ts, i, func(r model.Time) { trace = append(trace, r) })
	return trace
}
