package global

import (
	"math/big"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

// Baker is Baker's test for global EDF. For every task k it searches the
// candidate densities λ in {λ_k} ∪ {u_i : u_i >= λ_k} for one satisfying
// Σ min(1, β_λ(i)) <= m(1-λ) + λ.
type Baker struct{}

func (Baker) Info() analysis.Info {
	return info("baker", "Global EDF, Baker",
		"T. P. Baker. Multiprocessor EDF and deadline monotonic schedulability analysis. RTSS 2003.",
		"O(n^3)", analysis.PolicyEDF)
}

func (a Baker) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		m := analysis.Int(int64(p.Processors))
		one := analysis.Int(1)
		return perTask(ts, func(k int, tk model.Task) (string, bool) {
			lambdaK := density(tk)
			candidates := []*big.Rat{lambdaK}
			for _, t := range ts {
				if u := analysis.Frac(t.WCET, t.Period); u.Cmp(lambdaK) >= 0 {
					candidates = append(candidates, u)
				}
			}
			for _, lambda := range candidates {
				lhs := new(big.Rat)
				for _, ti := range ts {
					b := bakerBeta(ti, tk, lambda)
					if b.Cmp(one) > 0 {
						b = one
					}
					lhs.Add(lhs, b)
				}
				// m(1-λ) + λ
				rhs := new(big.Rat).Sub(one, lambda)
				rhs.Mul(rhs, m)
				rhs.Add(rhs, lambda)
				if lhs.Cmp(rhs) <= 0 {
					return "", true
				}
			}
			return "no candidate density satisfies the load bound", false
		})
	})
}

func bakerBeta(ti, tk model.Task, lambda *big.Rat) *big.Rat {
	u := analysis.Frac(ti.WCET, ti.Period)
	// u_i (1 + (T_i - D_i)/D_k)
	b := analysis.Frac(tk.Deadline+ti.Period-ti.Deadline, tk.Deadline)
	b.Mul(b, u)
	if u.Cmp(lambda) > 0 {
		// + (C_i - λ T_i)/D_k
		extra := new(big.Rat).Mul(lambda, analysis.Int(int64(ti.Period)))
		extra.Sub(analysis.Int(int64(ti.WCET)), extra)
		extra.Quo(extra, analysis.Int(int64(tk.Deadline)))
		b.Add(b, extra)
	}
	return b
}
