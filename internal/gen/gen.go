// Package gen generates random task sets for experiments and tests. Task
// utilisations are drawn with UUniFast (Bini and Buttazzo 2005), discarding
// draws where a single task would exceed one processor.
package gen

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/me/schedkit/pkg/model"
)

// MaxAttempts bounds the redraws when a utilisation vector is discarded.
const MaxAttempts = 1000

// ErrTooManyAttempts is returned when no utilisation vector with every
// share at most 1 was drawn.
var ErrTooManyAttempts = errors.New("no valid utilisation vector found")

// Config describes the task sets to generate.
type Config struct {
	N           int
	Utilization float64
	PeriodMin   model.Time
	PeriodMax   model.Time
	Deadlines   model.DeadlineModel // implicit or constrained
	Sort        string              // "", "period" or "deadline"
	Seed        uint64
}

// DefaultConfig returns five implicit-deadline tasks at 70% utilisation
// with periods between 10 and 1000.
func DefaultConfig() Config {
	return Config{
		N:           5,
		Utilization: 0.7,
		PeriodMin:   10,
		PeriodMax:   1000,
		Deadlines:   model.DeadlineImplicit,
		Seed:        1,
	}
}

// Validate rejects configurations no task set can satisfy.
func (c Config) Validate() error {
	switch {
	case c.N < 1:
		return fmt.Errorf("task count must be positive, got %d", c.N)
	case c.Utilization <= 0 || c.Utilization > float64(c.N):
		return fmt.Errorf("utilization must be in (0, %d], got %g", c.N, c.Utilization)
	case c.PeriodMin < 1 || c.PeriodMax < c.PeriodMin:
		return fmt.Errorf("period range [%d, %d] is invalid", c.PeriodMin, c.PeriodMax)
	}
	switch c.Deadlines {
	case "", model.DeadlineImplicit, model.DeadlineConstrained:
	default:
		return fmt.Errorf("unsupported deadline model %q", c.Deadlines)
	}
	switch c.Sort {
	case "", "period", "deadline":
	default:
		return fmt.Errorf("unknown sort order %q", c.Sort)
	}
	return nil
}

// Generator draws task sets from a seeded source. It is not safe for
// concurrent use.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New returns a Generator for cfg.
func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))}, nil
}

// UUniFast splits total utilisation u over n tasks uniformly at random.
func (g *Generator) UUniFast(n int, u float64) []float64 {
	out := make([]float64, n)
	sum := u
	for i := 0; i < n-1; i++ {
		next := sum * math.Pow(g.rng.Float64(), 1/float64(n-i-1))
		out[i] = sum - next
		sum = next
	}
	out[n-1] = sum
	return out
}

// Period draws a period log-uniformly from the configured range.
func (g *Generator) Period() model.Time {
	lo, hi := math.Log(float64(g.cfg.PeriodMin)), math.Log(float64(g.cfg.PeriodMax))
	t := model.Time(math.Round(math.Exp(lo + g.rng.Float64()*(hi-lo))))
	return min(max(t, g.cfg.PeriodMin), g.cfg.PeriodMax)
}

// TaskSet draws one task set. WCETs are rounded to whole ticks and are at
// least 1, so the realised utilisation differs slightly from the target.
func (g *Generator) TaskSet() (model.TaskSet, error) {
	var shares []float64
	for attempt := 0; ; attempt++ {
		if attempt == MaxAttempts {
			return nil, ErrTooManyAttempts
		}
		shares = g.UUniFast(g.cfg.N, g.cfg.Utilization)
		if valid(shares) {
			break
		}
	}

	ts := make(model.TaskSet, g.cfg.N)
	for i, u := range shares {
		period := g.Period()
		wcet := min(max(model.Time(math.Round(u*float64(period))), 1), period)
		deadline := period
		if g.cfg.Deadlines == model.DeadlineConstrained {
			deadline = wcet + model.Time(g.rng.Int64N(int64(period-wcet)+1))
		}
		ts[i] = model.NewTask(wcet, deadline, period)
	}

	switch g.cfg.Sort {
	case "period":
		ts = ts.ByPeriod()
	case "deadline":
		ts = ts.ByDeadline()
	}
	return ts, nil
}

// TaskSets draws count task sets.
func (g *Generator) TaskSets(count int) ([]model.TaskSet, error) {
	out := make([]model.TaskSet, 0, count)
	for range count {
		ts, err := g.TaskSet()
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, nil
}

func valid(shares []float64) bool {
	for _, u := range shares {
		if u > 1 {
			return false
		}
	}
	return true
}
