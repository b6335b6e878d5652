package global

import (
	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

// Generic is the work-conserving interference test that takes, for every
// competitor, the tightest bound valid under the configured policy: the
// workload bound always, the EDF job bound under EDF, and only
// higher-priority competitors under fixed priorities.
type Generic struct {
	Policy analysis.Policy
}

func (g Generic) Info() analysis.Info {
	name, title := "generic", "Global work-conserving, tightest interference bound"
	switch g.Policy {
	case analysis.PolicyEDF:
		name, title = "generic-edf", "Global EDF, tightest interference bound"
	case analysis.PolicyFP:
		name, title = "generic-fp", "Global FP, tightest interference bound"
	}
	policy := g.Policy
	if policy == "" {
		policy = analysis.PolicyWorkConserving
	}
	return info(name, title, bcl09Citation, "O(n^2)", policy)
}

func (g Generic) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(g.Info(), ts, p, func() model.AnalysisResult {
		return interferenceTest(ts, p, func(i, k int) (model.Time, bool) {
			if i == k || (g.Policy == analysis.PolicyFP && i > k) {
				return 0, false
			}
			return TightestBound(ts[i], ts[k], g.Policy), true
		})
	})
}

// TightestBound returns the smallest interference bound of task i on task k
// that holds under policy.
func TightestBound(i, k model.Task, policy analysis.Policy) model.Time {
	b := Workload(i, k.Deadline)
	if policy == analysis.PolicyEDF {
		b = min(b, EDFInterference(i, k))
	}
	return b
}
