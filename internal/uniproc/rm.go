// Package uniproc implements the single-processor fixed-priority and EDF
// schedulability tests.
package uniproc

import (
	"math"
	"math/big"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

func rmInfo(name, title, citation string) analysis.Info {
	return analysis.Info{
		Name:          name,
		Title:         title,
		Citation:      citation,
		Family:        analysis.FamilyUniprocFP,
		Policy:        analysis.PolicyFP,
		Strength:      model.StrengthSufficient,
		Activation:    model.Sporadic,
		Deadlines:     model.DeadlineImplicit,
		Ordering:      analysis.OrderPeriod,
		Complexity:    "O(n)",
		MinProcessors: 1,
		MaxProcessors: 1,
	}
}

// LiuLaylandBound returns n(2^(1/n) - 1).
func LiuLaylandBound(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n) * (math.Pow(2, 1/float64(n)) - 1)
}

// RMClassic is the Liu & Layland utilization bound.
type RMClassic struct{}

func (RMClassic) Info() analysis.Info {
	return rmInfo("rm", "Rate monotonic, Liu & Layland bound",
		"C. L. Liu, J. W. Layland. Scheduling algorithms for multiprogramming in a hard real-time environment. JACM 1973.")
}

func (a RMClassic) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		u, bound := ts.TotalUtilization(), LiuLaylandBound(len(ts))
		if u <= bound {
			return model.Schedulable()
		}
		return model.NotSchedulable(-1, "utilization %.4f exceeds bound %.4f", u, bound)
	})
}

// RMSimple is the n-independent bound ln 2.
type RMSimple struct{}

func (RMSimple) Info() analysis.Info {
	return rmInfo("rm-simple", "Rate monotonic, ln 2 bound",
		"C. L. Liu, J. W. Layland. JACM 1973 (limit of the bound as n grows).")
}

func (a RMSimple) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		u := ts.TotalUtilization()
		if u <= math.Ln2 {
			return model.Schedulable()
		}
		return model.NotSchedulable(-1, "utilization %.4f exceeds ln 2", u)
	})
}

// RMHyperbolic is the hyperbolic bound of Bini, Buttazzo and Buttazzo.
// The product is computed exactly.
type RMHyperbolic struct{}

func (RMHyperbolic) Info() analysis.Info {
	return rmInfo("rm-hyperbolic", "Rate monotonic, hyperbolic bound",
		"E. Bini, G. C. Buttazzo, G. M. Buttazzo. A hyperbolic bound for the rate monotonic algorithm. ECRTS 2001.")
}

func (a RMHyperbolic) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return analysis.Evaluate(a.Info(), ts, p, func() model.AnalysisResult {
		prod := analysis.Int(1)
		for _, t := range ts {
			prod.Mul(prod, analysis.Frac(t.WCET+t.Period, t.Period))
		}
		if prod.Cmp(big.NewRat(2, 1)) <= 0 {
			return model.Schedulable()
		}
		f, _ := prod.Float64()
		return model.NotSchedulable(-1, "product of (U+1) is %.4f, exceeds 2", f)
	})
}
