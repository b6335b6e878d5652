package analysis

import "github.com/me/schedkit/pkg/model"

// FixedPointOutcome is how a bounded fixed-point iteration ended.
type FixedPointOutcome int

const (
	// Converged means step(x) == x was reached with x <= limit.
	Converged FixedPointOutcome = iota
	// ExceededLimit means an iterate grew past limit.
	ExceededLimit
	// CapReached means maxSteps evaluations did not settle.
	CapReached
)

func (o FixedPointOutcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case ExceededLimit:
		return "exceeded limit"
	}
	return "iteration cap reached"
}

// Iteration is the result of FixedPoint.
type Iteration struct {
	Value   model.Time
	Steps   int
	Outcome FixedPointOutcome
}

// FixedPoint iterates x <- step(x) from start for a monotone non-decreasing
// step function. It stops as soon as an iterate exceeds limit, when the value
// stops changing, or after maxSteps evaluations of step. visit, if non-nil,
// sees every iterate including start.
func FixedPoint(start, limit model.Time, maxSteps int, step func(model.Time) model.Time, visit func(model.Time)) Iteration {
	x := start
	if visit != nil {
		visit(x)
	}
	if x > limit {
		return Iteration{Value: x, Outcome: ExceededLimit}
	}
	for n := 1; n <= maxSteps; n++ {
		next := step(x)
		if next == x {
			return Iteration{Value: x, Steps: n, Outcome: Converged}
		}
		x = next
		if visit != nil {
			visit(x)
		}
		if x > limit {
			return Iteration{Value: x, Steps: n, Outcome: ExceededLimit}
		}
	}
	return Iteration{Value: x, Steps: maxSteps, Outcome: CapReached}
}

// MinFeasible returns the smallest x in [lo, hi] with ok(x), assuming ok is
// monotone. The returned value was always accepted by ok; found is false
// when no value tried was accepted. calls counts evaluations of ok.
func MinFeasible(lo, hi model.Time, ok func(model.Time) bool) (best model.Time, calls int, found bool) {
	for lo <= hi {
		mid := lo + (hi-lo)/2
		calls++
		if ok(mid) {
			best, found = mid, true
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return best, calls, found
}
