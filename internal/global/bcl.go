package global

import (
	"math/big"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

const (
	bcl05Citation   = "M. Bertogna, M. Cirinei, G. Lipari. Improved schedulability analysis of EDF on multiprocessor platforms. ECRTS 2005."
	bcl05DMCitation = "M. Bertogna, M. Cirinei, G. Lipari. New schedulability tests for real-time task sets scheduled by deadline monotonic on multiprocessors. OPODIS 2005."
	bcl09Citation   = "M. Bertogna, M. Cirinei, G. Lipari. Schedulability analysis of global scheduling algorithms on multiprocessor platforms. IEEE TPDS 2009."
)

// BCLEDF is the 2005 interference test for global EDF (Theorem 7).
// Every quantity is scaled by D_k so the comparison is exact.
type BCLEDF struct{}

func (BCLEDF) Info() analysis.Info {
	return info("bcl-edf", "Global EDF, Bertogna-Cirinei-Lipari 2005", bcl05Citation, "O(n^2)", analysis.PolicyEDF)
}

func (a BCLEDF) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		m := model.Time(p.Processors)
		return perTask(ts, func(k int, tk model.Task) (string, bool) {
			slack := tk.Laxity() // D_k(1 - λ_k)
			var sum model.Time
			inRange := false
			for i, ti := range ts {
				if i == k {
					continue
				}
				b := bcl05Beta(ti, tk)
				if b > 0 && b <= slack {
					inRange = true
				}
				sum += min(b, slack)
			}
			if sum < m*slack || (sum == m*slack && inRange) {
				return "", true
			}
			return sprintf("interference %d reaches %d", sum, m*slack), false
		})
	})
}

// bcl05Beta returns β_i^k scaled by D_k.
func bcl05Beta(ti, tk model.Task) model.Time {
	n := analysis.FloorDiv(tk.Deadline-ti.Deadline, ti.Period) + 1
	return n*ti.WCET + min(ti.WCET, max(0, tk.Deadline-n*ti.Period))
}

// BCLDM is the 2005 density bound for global deadline monotonic.
type BCLDM struct{}

func (BCLDM) Info() analysis.Info {
	i := info("bcl-dm", "Global DM, Bertogna-Cirinei-Lipari 2005 density bound", bcl05DMCitation, "O(n)", analysis.PolicyFP)
	i.Ordering = analysis.OrderDeadline
	return i
}

func (a BCLDM) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		sum, peak := new(big.Rat), new(big.Rat)
		for _, t := range ts {
			d := density(t)
			sum.Add(sum, d)
			if d.Cmp(peak) > 0 {
				peak = d
			}
		}
		// (m/2)(1 - λmax) + λmax
		bound := new(big.Rat).Sub(analysis.Int(1), peak)
		bound.Mul(bound, big.NewRat(int64(p.Processors), 2))
		bound.Add(bound, peak)
		if sum.Cmp(bound) <= 0 {
			return model.Schedulable()
		}
		s, _ := sum.Float64()
		b, _ := bound.Float64()
		return model.NotSchedulable(-1, "total density %.4f exceeds bound %.4f", s, b)
	})
}

// BCL09EDF is the 2009 interference test for global EDF (Theorem 7).
type BCL09EDF struct{}

func (BCL09EDF) Info() analysis.Info {
	return info("bcl09-edf", "Global EDF, Bertogna-Cirinei-Lipari 2009", bcl09Citation, "O(n^2)", analysis.PolicyEDF)
}

func (a BCL09EDF) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		return interferenceTest(ts, p, func(i, k int) (model.Time, bool) {
			return EDFInterference(ts[i], ts[k]), i != k
		})
	})
}

// BCL09FP is the 2009 workload test for global fixed priorities
// (Theorem 8). Priority is the task order.
type BCL09FP struct{}

func (BCL09FP) Info() analysis.Info {
	return info("bcl09-fp", "Global FP, Bertogna-Cirinei-Lipari 2009", bcl09Citation, "O(n^2)", analysis.PolicyFP)
}

func (a BCL09FP) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		return interferenceTest(ts, p, func(i, k int) (model.Time, bool) {
			return Workload(ts[i], ts[k].Deadline), i < k
		})
	})
}

// interferenceTest checks, for every task k, that the interference of
// every competitor, each capped at D_k - C_k + 1, sums strictly below
// m(D_k - C_k + 1). bound returns the competitor's interference and
// whether it competes with k at all.
func interferenceTest(ts model.TaskSet, p model.Platform, bound func(i, k int) (model.Time, bool)) model.AnalysisResult {
	m := model.Time(p.Processors)
	return perTask(ts, func(k int, tk model.Task) (string, bool) {
		window := tk.Laxity() + 1
		var sum model.Time
		for i := range ts {
			if v, ok := bound(i, k); ok {
				sum += min(v, window)
			}
		}
		if sum < m*window {
			return "", true
		}
		return sprintf("interference %d reaches %d", sum, m*window), false
	})
}
