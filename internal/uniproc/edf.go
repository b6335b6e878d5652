package uniproc

import (
	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

// EDF is the exact utilization test for implicit-deadline tasks under
// preemptive earliest deadline first. Utilization is summed exactly so a
// total of one is accepted.
type EDF struct{}

func (EDF) Info() analysis.Info {
	return analysis.Info{
		Name:          "edf",
		Title:         "Earliest deadline first, utilization test",
		Citation:      "C. L. Liu, J. W. Layland. JACM 1973.",
		Family:        analysis.FamilyUniprocEDF,
		Policy:        analysis.PolicyEDF,
		Strength:      model.StrengthExact,
		Activation:    model.Sporadic,
		Deadlines:     model.DeadlineImplicit,
		Complexity:    "O(n)",
		MinProcessors: 1,
		MaxProcessors: 1,
	}
}

func (a EDF) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		u := Utilization(ts)
		if u.Cmp(analysis.Int(1)) <= 0 {
			return model.Schedulable()
		}
		f, _ := u.Float64()
		return model.NotSchedulable(-1, "utilization %.4f exceeds 1", f)
	})
}
