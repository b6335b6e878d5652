package global

import (
	"math/big"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

// DefaultMaxPoints caps the number of arrival offsets Baruah scans per task.
const DefaultMaxPoints = 100_000

// Baruah is Baruah's 2007 test for global EDF. For each task k it checks
// Condition 8 at every arrival offset A_k up to the Eq. 9 bound where some
// demand function changes value.
type Baruah struct {
	MaxPoints int
}

func (b *Baruah) Info() analysis.Info {
	return info("baruah", "Global EDF, Baruah 2007",
		"S. Baruah. Techniques for multiprocessor global schedulability analysis. RTSS 2007.",
		"pseudo-polynomial", analysis.PolicyEDF)
}

func (b *Baruah) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(b.Info(), ts, p, func() model.AnalysisResult {
		maxPoints := b.MaxPoints
		if maxPoints <= 0 {
			maxPoints = DefaultMaxPoints
		}
		m := int64(p.Processors)
		u := new(big.Rat)
		for _, t := range ts {
			u.Add(u, analysis.Frac(t.WCET, t.Period))
		}
		if u.Cmp(analysis.Int(m)) >= 0 {
			f, _ := u.Float64()
			return model.NotSchedulable(-1, "utilization %.4f reaches the processor count", f)
		}
		for k, tk := range ts {
			limit := arrivalBound(ts, tk, u, m)
			if limit >= model.Time(maxPoints) {
				return model.NotSchedulable(k, "task %d: search space exceeds limit (%d offsets, max %d)", k, limit+1, maxPoints)
			}
			for ak := model.Time(0); ak <= limit; ak++ {
				if !demandChanges(ts, ak+tk.Deadline) {
					continue
				}
				if !baruahCondition(ts, k, ak, m) {
					return model.NotSchedulable(k, "task %d: demand exceeds supply at arrival offset %d", k, ak)
				}
			}
		}
		return model.Schedulable()
	})
}

// arrivalBound returns the largest A_k that needs checking (Eq. 9), never
// less than zero. u must be below m.
func arrivalBound(ts model.TaskSet, tk model.Task, u *big.Rat, m int64) model.Time {
	wcets := make([]model.Time, len(ts))
	for i, t := range ts {
		wcets[i] = t.WCET
	}
	num := analysis.Int(int64(TopSum(wcets, int(m-1))))
	slackU := new(big.Rat).Sub(analysis.Int(m), u)
	num.Sub(num, new(big.Rat).Mul(analysis.Int(int64(tk.Deadline)), slackU))
	for _, t := range ts {
		num.Add(num, new(big.Rat).Mul(analysis.Int(int64(t.Period-t.Deadline)), analysis.Frac(t.WCET, t.Period)))
	}
	num.Add(num, analysis.Int(m*int64(tk.WCET)))
	bound := num.Quo(num, slackU)
	if bound.Sign() <= 0 {
		return 0
	}
	q := new(big.Int).Quo(bound.Num(), bound.Denom())
	if new(big.Rat).SetInt(q).Cmp(bound) < 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() {
		return model.Time(1 << 62)
	}
	return model.Time(q.Int64())
}

// demandChanges reports whether DBF or DBF' of some task changes at t.
func demandChanges(ts model.TaskSet, t model.Time) bool {
	for _, ti := range ts {
		r := analysis.Mod(t, ti.Period)
		if r <= ti.WCET || r == ti.Deadline {
			return true
		}
	}
	return false
}

// baruahCondition evaluates Condition 8 for task k at offset ak.
func baruahCondition(ts model.TaskSet, k int, ak model.Time, m int64) bool {
	tk := ts[k]
	t := ak + tk.Deadline
	var sum1 model.Time
	diffs := make([]model.Time, len(ts))
	for i, ti := range ts {
		d1, d2 := JobDemand(ti, t), CarryInDemand(ti, t)
		var i1, i2 model.Time
		if i == k {
			i1, i2 = min(d1-tk.WCET, ak), min(d2-tk.WCET, ak)
		} else {
			i1, i2 = min(d1, t-tk.WCET), min(d2, t-tk.WCET)
		}
		sum1 += i1
		diffs[i] = i2 - i1
	}
	return sum1+TopSum(diffs, int(m-1)) <= model.Time(m)*(t-tk.WCET)
}
