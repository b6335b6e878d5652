package uniproc

import (
	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

func dmInfo(name, title, complexity string) analysis.Info {
	return analysis.Info{
		Name:          name,
		Title:         title,
		Family:        analysis.FamilyUniprocFP,
		Policy:        analysis.PolicyFP,
		Strength:      model.StrengthSufficient,
		Activation:    model.Sporadic,
		Deadlines:     model.DeadlineConstrained,
		Ordering:      analysis.OrderDeadline,
		Complexity:    complexity,
		MinProcessors: 1,
		MaxProcessors: 1,
	}
}

// DMDensity is the deadline-monotonic density bound: the Liu & Layland
// bound applied to C/D instead of C/T.
type DMDensity struct{}

func (DMDensity) Info() analysis.Info {
	info := dmInfo("dm", "Deadline monotonic, density bound", "O(n)")
	info.Citation = "J. Y.-T. Leung, J. Whitehead. On the complexity of fixed-priority scheduling of periodic, real-time tasks. Performance Evaluation 1982."
	return info
}

func (a DMDensity) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		d, bound := ts.TotalDensity(), LiuLaylandBound(len(ts))
		if d <= bound {
			return model.Schedulable()
		}
		return model.NotSchedulable(-1, "density %.4f exceeds bound %.4f", d, bound)
	})
}

// DMInterference bounds the interference on each task by counting every
// higher-priority release inside its deadline window.
type DMInterference struct{}

func (DMInterference) Info() analysis.Info {
	info := dmInfo("dm-interference", "Deadline monotonic, interference bound", "O(n^2)")
	info.Citation = "N. C. Audsley, A. Burns, M. F. Richardson, A. J. Wellings. Hard real-time scheduling: the deadline-monotonic approach. IEEE RTOSS 1991."
	return info
}

func (a DMInterference) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		for i, t := range ts {
			demand := t.WCET
			for _, hp := range ts[:i] {
				demand += analysis.CeilDiv(t.Deadline, hp.Period) * hp.WCET
			}
			if demand > t.Deadline {
				return model.NotSchedulable(i, "demand %d within deadline %d", demand, t.Deadline)
			}
		}
		return model.Schedulable()
	})
}
