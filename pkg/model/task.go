package model

import (
	"fmt"
	"math"
	"slices"
)

// Time is a duration measured in integer ticks. Loaders convert decimal input
// into ticks with a scale factor, so every algorithm works on exact integers.
type Time int64

// Activation describes how a task is released.
type Activation string

const (
	// Periodic tasks are released exactly Period apart.
	Periodic Activation = "periodic"
	// Sporadic tasks are released at least Period apart.
	Sporadic Activation = "sporadic"
)

// DeadlineModel classifies the relation between deadlines and periods.
type DeadlineModel string

const (
	DeadlineImplicit    DeadlineModel = "implicit"
	DeadlineConstrained DeadlineModel = "constrained"
	DeadlineArbitrary   DeadlineModel = "arbitrary"
)

// Task is a recurring real-time task.
type Task struct {
	WCET     Time `json:"wcet" yaml:"wcet"`
	Deadline Time `json:"deadline" yaml:"deadline"`
	Period   Time `json:"period" yaml:"period"`
}

// NewTask returns a task with the given parameters.
func NewTask(wcet, deadline, period Time) Task {
	return Task{WCET: wcet, Deadline: deadline, Period: period}
}

func (t Task) String() string {
	return fmt.Sprintf("(C=%d, D=%d, T=%d)", t.WCET, t.Deadline, t.Period)
}

// Utilization returns C/T.
func (t Task) Utilization() float64 {
	return float64(t.WCET) / float64(t.Period)
}

// Density returns C/min(D, T).
func (t Task) Density() float64 {
	return float64(t.WCET) / float64(min(t.Deadline, t.Period))
}

// Laxity returns D - C.
func (t Task) Laxity() Time {
	return t.Deadline - t.WCET
}

// Implicit reports whether D == T.
func (t Task) Implicit() bool {
	return t.Deadline == t.Period
}

// Constrained reports whether D <= T.
func (t Task) Constrained() bool {
	return t.Deadline <= t.Period
}

// Validate checks that every parameter is strictly positive.
func (t Task) Validate() error {
	switch {
	case t.WCET <= 0:
		return &ValueError{Field: "wcet", Value: int64(t.WCET), Message: "must be positive"}
	case t.Deadline <= 0:
		return &ValueError{Field: "deadline", Value: int64(t.Deadline), Message: "must be positive"}
	case t.Period <= 0:
		return &ValueError{Field: "period", Value: int64(t.Period), Message: "must be positive"}
	}
	return nil
}

// TaskSet is an ordered sequence of tasks. For fixed-priority analyses the
// index is the priority rank, index 0 being the highest priority.
type TaskSet []Task

// Validate rejects empty sets and tasks with non-positive parameters.
func (ts TaskSet) Validate() error {
	if len(ts) == 0 {
		return &ValueError{Task: -1, Field: "tasks", Message: "task set is empty"}
	}
	for i, t := range ts {
		if err := t.Validate(); err != nil {
			ve := err.(*ValueError)
			ve.Task = i
			return ve
		}
	}
	return nil
}

// Clone returns a copy that shares no storage with ts.
func (ts TaskSet) Clone() TaskSet {
	return slices.Clone(ts)
}

// TotalUtilization returns the sum of C/T.
func (ts TaskSet) TotalUtilization() float64 {
	var u float64
	for _, t := range ts {
		u += t.Utilization()
	}
	return u
}

// MaxUtilization returns the largest single-task utilization.
func (ts TaskSet) MaxUtilization() float64 {
	var u float64
	for _, t := range ts {
		u = max(u, t.Utilization())
	}
	return u
}

// TotalDensity returns the sum of C/min(D, T).
func (ts TaskSet) TotalDensity() float64 {
	var d float64
	for _, t := range ts {
		d += t.Density()
	}
	return d
}

// MaxDensity returns the largest single-task density.
func (ts TaskSet) MaxDensity() float64 {
	var d float64
	for _, t := range ts {
		d = max(d, t.Density())
	}
	return d
}

// Implicit reports whether every task has D == T.
func (ts TaskSet) Implicit() bool {
	for _, t := range ts {
		if !t.Implicit() {
			return false
		}
	}
	return true
}

// Constrained reports whether every task has D <= T.
func (ts TaskSet) Constrained() bool {
	for _, t := range ts {
		if !t.Constrained() {
			return false
		}
	}
	return true
}

// DeadlineModel returns the most specific deadline model the set satisfies.
func (ts TaskSet) DeadlineModel() DeadlineModel {
	switch {
	case ts.Implicit():
		return DeadlineImplicit
	case ts.Constrained():
		return DeadlineConstrained
	}
	return DeadlineArbitrary
}

// SortedByPeriod reports whether periods are non-decreasing.
func (ts TaskSet) SortedByPeriod() bool {
	return slices.IsSortedFunc(ts, func(a, b Task) int { return cmpTime(a.Period, b.Period) })
}

// SortedByDeadline reports whether deadlines are non-decreasing.
func (ts TaskSet) SortedByDeadline() bool {
	return slices.IsSortedFunc(ts, func(a, b Task) int { return cmpTime(a.Deadline, b.Deadline) })
}

// ByPeriod returns a rate-monotonic ordered copy. The sort is stable.
func (ts TaskSet) ByPeriod() TaskSet {
	out := ts.Clone()
	slices.SortStableFunc(out, func(a, b Task) int { return cmpTime(a.Period, b.Period) })
	return out
}

// ByDeadline returns a deadline-monotonic ordered copy. The sort is stable.
func (ts TaskSet) ByDeadline() TaskSet {
	out := ts.Clone()
	slices.SortStableFunc(out, func(a, b Task) int { return cmpTime(a.Deadline, b.Deadline) })
	return out
}

// MinPeriod returns the smallest period, or 0 for an empty set.
func (ts TaskSet) MinPeriod() Time {
	if len(ts) == 0 {
		return 0
	}
	p := ts[0].Period
	for _, t := range ts[1:] {
		p = min(p, t.Period)
	}
	return p
}

// MaxDeadline returns the largest relative deadline.
func (ts TaskSet) MaxDeadline() Time {
	var d Time
	for _, t := range ts {
		d = max(d, t.Deadline)
	}
	return d
}

// Hyperperiod returns the least common multiple of all periods. The boolean
// is false when the value does not fit in a Time.
func (ts TaskSet) Hyperperiod() (Time, bool) {
	h := Time(1)
	for _, t := range ts {
		g := gcd(h, t.Period)
		q := h / g
		if q > Time(math.MaxInt64)/t.Period {
			return 0, false
		}
		h = q * t.Period
	}
	return h, true
}

func gcd(a, b Time) Time {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func cmpTime(a, b Time) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Platform is a set of identical processors.
type Platform struct {
	Processors int `json:"processors" yaml:"processors"`
}

// Uniprocessor returns a single-processor platform.
func Uniprocessor() Platform {
	return Platform{Processors: 1}
}

// Validate checks that the platform has at least one processor.
func (p Platform) Validate() error {
	if p.Processors < 1 {
		return &ValueError{Task: -1, Field: "processors", Value: int64(p.Processors), Message: "must be at least 1"}
	}
	return nil
}
