package hierarchical

import (
	"math"
	"math/big"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/internal/global"
	"github.com/me/schedkit/internal/uniproc"
	"github.com/me/schedkit/pkg/model"
)

const shinEasLee = "I. Shin, A. Easwaran, I. Lee. Hierarchical scheduling framework for virtual clustering of multiprocessors. ECRTS 2008."

func mprInfo(name, title, complexity string, policy analysis.Policy) analysis.Info {
	return analysis.Info{
		Name:          name,
		Title:         title,
		Citation:      shinEasLee,
		Family:        analysis.FamilyHierarchical,
		Policy:        policy,
		Strength:      model.StrengthSufficient,
		Activation:    model.Sporadic,
		Deadlines:     model.DeadlineConstrained,
		Complexity:    complexity,
		MinProcessors: 1,
	}
}

// checkCluster rejects resources that are invalid or need more processors
// than the platform has.
func checkCluster(p model.Platform, r model.PeriodicResourceModel) (model.AnalysisResult, bool) {
	if err := r.Validate(); err != nil {
		return model.PreconditionViolated("%s: %v", r, err), false
	}
	if r.Cores() > p.Processors {
		return model.PreconditionViolated("%s: concurrency %d exceeds %d processors", r, r.Cores(), p.Processors), false
	}
	return model.AnalysisResult{}, true
}

// MPREDF checks a globally EDF-scheduled task set against a multiprocessor
// periodic resource (Shin, Easwaran, Lee 2008, Theorem 1). Every arrival
// offset A_k up to a bound derived from the linear supply is checked.
type MPREDF struct {
	MaxPoints int
}

func (a *MPREDF) Info() analysis.Info {
	return mprInfo("mpr-edf", "Multiprocessor periodic resource, global EDF", "pseudo-polynomial", analysis.PolicyEDF)
}

func (a *MPREDF) AnalyzeWith(ts model.TaskSet, p model.Platform, r model.PeriodicResourceModel) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		if res, ok := checkCluster(p, r); !ok {
			return res
		}
		u := uniproc.Utilization(ts)
		if u.Cmp(analysis.Frac(r.Budget, r.Period)) >= 0 {
			f, _ := u.Float64()
			return model.NotSchedulable(-1, "utilization %.4f reaches bandwidth %.4f", f, r.Bandwidth())
		}
		limit := model.Time(pointLimit(a.MaxPoints))
		for k, tk := range ts {
			bound := clusterArrivalBound(ts, tk, u, r)
			if bound >= limit {
				return model.NotSchedulable(k, "task %d: search space exceeds limit (%d offsets, max %d)", k, bound+1, limit)
			}
			for ak := model.Time(0); ak <= bound; ak++ {
				t := ak + tk.Deadline
				if d, s := clusterDemand(ts, k, ak, r.Cores()), r.SupplyBound(t); d > s {
					return model.NotSchedulable(k, "task %d: demand %d exceeds supply %d at arrival offset %d", k, d, s, ak)
				}
			}
		}
		return model.Schedulable()
	})
}

func (a *MPREDF) linearBudget(model.TaskSet, model.PeriodicResourceModel) (model.Time, bool) {
	return 0, false
}

// clusterDemand is the demand of task k's problem window of length
// A_k + D_k: non-carry-in interference of every task, the m'-1 largest
// carry-in increments, and m'·C_k.
func clusterDemand(ts model.TaskSet, k int, ak model.Time, m int) model.Time {
	tk := ts[k]
	t := ak + tk.Deadline
	var sum model.Time
	extra := make([]model.Time, len(ts))
	for i, ti := range ts {
		n := analysis.FloorDiv(t+ti.Period-ti.Deadline, ti.Period)
		flat := n * ti.WCET
		carry := flat + min(ti.WCET, max(0, t-n*ti.Period))
		if i == k {
			flat, carry = min(flat-tk.WCET, ak), min(carry-tk.WCET, ak)
		} else {
			flat, carry = min(flat, t-tk.WCET), min(carry, t-tk.WCET)
		}
		sum += flat
		extra[i] = carry - flat
	}
	return sum + global.TopSum(extra, m-1) + model.Time(m)*tk.WCET
}

// clusterArrivalBound returns the largest arrival offset at which demand
// can still exceed the linear supply bound:
//
//	(C_Σ + (m'-1)C_k + Σ(T_i-D_i)U_i + 2Θ(1 - Θ/(m'Π)) - D_k(Θ/Π - U)) / (Θ/Π - U)
//
// where C_Σ sums the m'-1 largest execution times. Requires U < Θ/Π.
func clusterArrivalBound(ts model.TaskSet, tk model.Task, u *big.Rat, r model.PeriodicResourceModel) model.Time {
	m := int64(r.Cores())
	wcets := make([]model.Time, len(ts))
	for i, t := range ts {
		wcets[i] = t.WCET
	}
	num := analysis.Int(int64(global.TopSum(wcets, int(m-1))) + (m-1)*int64(tk.WCET))
	for _, t := range ts {
		num.Add(num, new(big.Rat).Mul(analysis.Int(int64(t.Period-t.Deadline)), analysis.Frac(t.WCET, t.Period)))
	}
	theta := analysis.Int(int64(r.Budget))
	share := new(big.Rat).Quo(theta, analysis.Int(m*int64(r.Period)))
	blackout := new(big.Rat).Mul(analysis.Int(2), new(big.Rat).Mul(theta, new(big.Rat).Sub(analysis.Int(1), share)))
	num.Add(num, blackout)
	slack := new(big.Rat).Sub(analysis.Frac(r.Budget, r.Period), u)
	num.Sub(num, new(big.Rat).Mul(analysis.Int(int64(tk.Deadline)), slack))
	return ceilRat(num.Quo(num, slack))
}

// MPRBCL09EDF is the interference test of Bertogna, Cirinei and Lipari
// (2009) against a multiprocessor periodic resource: for every task k,
// Σ min(I_i, D_k-C_k+1) + m'C_k <= sbf(D_k).
type MPRBCL09EDF struct{}

func (MPRBCL09EDF) Info() analysis.Info {
	return mprInfo("mpr-bcl09-edf", "Multiprocessor periodic resource, global EDF interference", "O(n^2)", analysis.PolicyEDF)
}

func (a MPRBCL09EDF) AnalyzeWith(ts model.TaskSet, p model.Platform, r model.PeriodicResourceModel) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		if res, ok := checkCluster(p, r); !ok {
			return res
		}
		return supplyTest(ts, r, edfInterference)
	})
}

func (MPRBCL09EDF) linearBudget(ts model.TaskSet, r model.PeriodicResourceModel) (model.Time, bool) {
	return supplyBudget(ts, r, edfInterference)
}

// MPRFP is the workload test for global fixed priorities, priority given
// by task order, against a multiprocessor periodic resource:
// Σ_{i<k} min(W_i(D_k), D_k-C_k+1) + m'C_k <= sbf(D_k).
type MPRFP struct{}

func (MPRFP) Info() analysis.Info {
	return mprInfo("mpr-fp", "Multiprocessor periodic resource, global fixed priorities", "O(n^2)", analysis.PolicyFP)
}

func (a MPRFP) AnalyzeWith(ts model.TaskSet, p model.Platform, r model.PeriodicResourceModel) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		if res, ok := checkCluster(p, r); !ok {
			return res
		}
		return supplyTest(ts, r, fpWorkload)
	})
}

func (MPRFP) linearBudget(ts model.TaskSet, r model.PeriodicResourceModel) (model.Time, bool) {
	return supplyBudget(ts, r, fpWorkload)
}

func edfInterference(ts model.TaskSet, i, k int) (model.Time, bool) {
	return global.EDFInterference(ts[i], ts[k]), i != k
}

func fpWorkload(ts model.TaskSet, i, k int) (model.Time, bool) {
	return global.Workload(ts[i], ts[k].Deadline), i < k
}

// windowDemand is the demand task k must be supplied by its deadline.
func windowDemand(ts model.TaskSet, k, m int, bound func(ts model.TaskSet, i, k int) (model.Time, bool)) model.Time {
	tk := ts[k]
	window := tk.Laxity() + 1
	var sum model.Time
	for i := range ts {
		if v, ok := bound(ts, i, k); ok {
			sum += min(v, window)
		}
	}
	return sum + model.Time(m)*tk.WCET
}

func supplyTest(ts model.TaskSet, r model.PeriodicResourceModel, bound func(ts model.TaskSet, i, k int) (model.Time, bool)) model.AnalysisResult {
	for k, tk := range ts {
		if d, s := windowDemand(ts, k, r.Cores(), bound), r.SupplyBound(tk.Deadline); d > s {
			return model.NotSchedulable(k, "task %d: demand %d exceeds supply %d at t=%d", k, d, s, tk.Deadline)
		}
	}
	return model.Schedulable()
}

func supplyBudget(ts model.TaskSet, r model.PeriodicResourceModel, bound func(ts model.TaskSet, i, k int) (model.Time, bool)) (model.Time, bool) {
	var need float64
	for k, tk := range ts {
		need = max(need, ClusterLinearBudget(r.Period, tk.Deadline, windowDemand(ts, k, r.Cores(), bound), r.Cores()))
	}
	return ceilBudget(need, model.Time(r.Cores())*r.Period)
}

// ClusterLinearBudget returns the smallest real budget Θ for which the
// linear supply bound of (period, Θ, m') reaches demand at t:
// Θ = m'((2Π - t) + sqrt((t - 2Π)^2 + 8Π·demand/m')) / 4.
func ClusterLinearBudget(period, t, demand model.Time, m int) float64 {
	if demand <= 0 {
		return 0
	}
	pi, x, d, c := float64(period), float64(t), float64(demand), float64(m)
	return c * ((2*pi - x) + math.Sqrt((x-2*pi)*(x-2*pi)+8*pi*d/c)) / 4
}

func ceilRat(x *big.Rat) model.Time {
	if x.Sign() <= 0 {
		return 0
	}
	q := new(big.Int).Quo(x.Num(), x.Denom())
	if new(big.Rat).SetInt(q).Cmp(x) < 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() {
		return model.Time(1 << 62)
	}
	return model.Time(q.Int64())
}
