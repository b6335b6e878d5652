package model

import "fmt"

// Verdict is the outcome of a schedulability analysis.
type Verdict string

const (
	VerdictSchedulable          Verdict = "SCHEDULABLE"
	VerdictNotSchedulable       Verdict = "NOT_SCHEDULABLE"
	VerdictPreconditionViolated Verdict = "PRECONDITION_VIOLATED"
)

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	return string(v)
}

// Strength records whether a test is necessary and sufficient or only
// sufficient. A negative from a sufficient test does not prove infeasibility.
type Strength string

const (
	StrengthExact      Strength = "exact"
	StrengthSufficient Strength = "sufficient"
)

// AnalysisResult is returned by every analysis.
type AnalysisResult struct {
	Verdict   Verdict  `json:"verdict"`
	Strength  Strength `json:"strength"`
	Algorithm string   `json:"algorithm"`
	Reason    string   `json:"reason,omitempty"`

	// FailedTask is the index of the first task that failed, or -1.
	FailedTask int `json:"failed_task"`

	// ResponseTimes holds per-task worst-case response times for
	// response-time analyses. Entries after FailedTask are zero.
	ResponseTimes []Time `json:"response_times,omitempty"`
}

// Schedulable returns a positive result.
func Schedulable() AnalysisResult {
	return AnalysisResult{Verdict: VerdictSchedulable, FailedTask: -1}
}

// NotSchedulable returns a negative result blaming the task at index task.
func NotSchedulable(task int, format string, args ...any) AnalysisResult {
	return AnalysisResult{
		Verdict:    VerdictNotSchedulable,
		FailedTask: task,
		Reason:     fmt.Sprintf(format, args...),
	}
}

// PreconditionViolated returns a result for input outside the test's model.
func PreconditionViolated(format string, args ...any) AnalysisResult {
	return AnalysisResult{
		Verdict:    VerdictPreconditionViolated,
		FailedTask: -1,
		Reason:     fmt.Sprintf(format, args...),
	}
}

// IsSchedulable reports whether the verdict is Schedulable.
func (r AnalysisResult) IsSchedulable() bool {
	return r.Verdict == VerdictSchedulable
}

// ProvesInfeasible reports whether the result is a negative from an exact
// test, which is the only case where the task set is known to be infeasible.
func (r AnalysisResult) ProvesInfeasible() bool {
	return r.Verdict == VerdictNotSchedulable && r.Strength == StrengthExact
}

// Outcome is the result kind of a design search.
type Outcome string

const (
	OutcomeFound                Outcome = "FOUND"
	OutcomeInfeasible           Outcome = "INFEASIBLE"
	OutcomePreconditionViolated Outcome = "PRECONDITION_VIOLATED"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// DesignResult is returned by every designer.
type DesignResult struct {
	Outcome   Outcome `json:"outcome"`
	Algorithm string  `json:"algorithm"`
	Reason    string  `json:"reason,omitempty"`

	// Interface is set only when Outcome is OutcomeFound.
	Interface *PeriodicResourceModel `json:"interface,omitempty"`

	CandidatesTried int `json:"candidates_tried"`
	OracleCalls     int `json:"oracle_calls"`
}

// Found returns a successful design result holding a copy of r.
func Found(r PeriodicResourceModel) DesignResult {
	return DesignResult{Outcome: OutcomeFound, Interface: &r}
}

// Infeasible returns a result for an exhausted search space.
func Infeasible(format string, args ...any) DesignResult {
	return DesignResult{Outcome: OutcomeInfeasible, Reason: fmt.Sprintf(format, args...)}
}

// DesignPreconditionViolated returns a result for input the designer does not accept.
func DesignPreconditionViolated(format string, args ...any) DesignResult {
	return DesignResult{Outcome: OutcomePreconditionViolated, Reason: fmt.Sprintf(format, args...)}
}
