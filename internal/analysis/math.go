package analysis

import (
	"fmt"
	"math/big"

	"github.com/me/schedkit/pkg/model"
)

// FloorDiv returns floor(a/b) for b > 0 and any sign of a.
func FloorDiv(a, b model.Time) model.Time {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// CeilDiv returns ceil(a/b) for b > 0 and any sign of a.
func CeilDiv(a, b model.Time) model.Time {
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}
	return q
}

// Mod returns a mod b in [0, b) for b > 0.
func Mod(a, b model.Time) model.Time {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

// Frac returns num/den as an exact rational.
func Frac(num, den model.Time) *big.Rat {
	return big.NewRat(int64(num), int64(den))
}

// Int returns v as an exact rational.
func Int(v int64) *big.Rat {
	return new(big.Rat).SetInt64(v)
}

func sprintf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

func fmtTask(i int, t model.Task, msg string) string {
	return fmt.Sprintf("task %d %v %s", i, t, msg)
}
