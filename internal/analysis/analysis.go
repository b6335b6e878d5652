// Package analysis defines the capability contracts shared by every
// schedulability test and interface designer, plus the precondition checks
// and bounded search loops they are built from.
package analysis

import (
	"fmt"

	"github.com/me/schedkit/pkg/model"
)

// Family groups algorithms by platform and policy.
type Family string

const (
	FamilyUniprocFP    Family = "uniproc-fp"
	FamilyUniprocEDF   Family = "uniproc-edf"
	FamilyGlobal       Family = "global"
	FamilyHierarchical Family = "hierarchical"
)

// Ordering is the priority order an algorithm requires of its input.
type Ordering string

const (
	OrderAny      Ordering = ""
	OrderPeriod   Ordering = "period"
	OrderDeadline Ordering = "deadline"
)

// Policy is the scheduling policy an algorithm analyses.
type Policy string

const (
	PolicyFP             Policy = "fp"
	PolicyEDF            Policy = "edf"
	PolicyWorkConserving Policy = "work-conserving"
)

// Info describes an algorithm and declares its preconditions.
type Info struct {
	Name       string              `json:"name"`
	Title      string              `json:"title"`
	Citation   string              `json:"citation,omitempty"`
	Family     Family              `json:"family"`
	Policy     Policy              `json:"policy"`
	Strength   model.Strength      `json:"strength"`
	Activation model.Activation    `json:"activation"`
	Deadlines  model.DeadlineModel `json:"deadlines"`
	Ordering   Ordering            `json:"ordering,omitempty"`
	Complexity string              `json:"complexity,omitempty"`

	// MinProcessors and MaxProcessors bound the platform size.
	// Zero MaxProcessors means unbounded.
	MinProcessors int `json:"min_processors"`
	MaxProcessors int `json:"max_processors,omitempty"`

	// Designer is true for interface designers.
	Designer bool `json:"designer,omitempty"`
}

// Analyzer decides whether a task set is schedulable on a platform.
// Implementations are deterministic and never mutate their input.
// Callers go through Run, which reports invalid parameters as a
// *model.ValueError; a direct Analyze call reports them as a
// PRECONDITION_VIOLATED verdict instead.
type Analyzer interface {
	Info() Info
	Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult
}

// ResourceAnalyzer decides schedulability inside a periodic resource
// reservation.
type ResourceAnalyzer interface {
	Info() Info
	AnalyzeWith(ts model.TaskSet, p model.Platform, r model.PeriodicResourceModel) model.AnalysisResult
}

// Designer searches for a periodic resource model under which a task set
// is schedulable. Oracle returns the analysis every Found interface has
// been accepted by.
type Designer interface {
	Info() Info
	Design(ts model.TaskSet, p model.Platform) model.DesignResult
	Oracle() ResourceAnalyzer
}

// Run validates the input, runs a and stamps the result with the
// algorithm's name and strength. Invalid parameters are returned as a
// *model.ValueError; every other outcome is a verdict.
func Run(a Analyzer, ts model.TaskSet, p model.Platform) (model.AnalysisResult, error) {
	if err := validate(ts, p); err != nil {
		return model.AnalysisResult{}, err
	}
	return Stamp(a.Info(), a.Analyze(ts, p)), nil
}

// RunDesign validates the input and runs d.
func RunDesign(d Designer, ts model.TaskSet, p model.Platform) (model.DesignResult, error) {
	if err := validate(ts, p); err != nil {
		return model.DesignResult{}, err
	}
	res := d.Design(ts, p)
	res.Algorithm = d.Info().Name
	return res, nil
}

// Verify feeds a Found interface back into the designer's oracle.
func Verify(d Designer, ts model.TaskSet, p model.Platform, res model.DesignResult) (model.AnalysisResult, error) {
	if res.Outcome != model.OutcomeFound || res.Interface == nil {
		return model.AnalysisResult{}, fmt.Errorf("design result %s carries no interface", res.Outcome)
	}
	return RunWith(d.Oracle(), ts, p, *res.Interface)
}

// RunWith validates the input and the resource model, then runs a inside r.
func RunWith(a ResourceAnalyzer, ts model.TaskSet, p model.Platform, r model.PeriodicResourceModel) (model.AnalysisResult, error) {
	if err := validate(ts, p); err != nil {
		return model.AnalysisResult{}, err
	}
	if err := r.Validate(); err != nil {
		return model.AnalysisResult{}, err
	}
	return Stamp(a.Info(), a.AnalyzeWith(ts, p, r)), nil
}

// Evaluate checks the preconditions declared by info, then runs fn.
// Analyzers implement Analyze with it so the checks always happen first.
// Invalid parameters become a PRECONDITION_VIOLATED verdict here, since a
// verdict is all Analyze can return; Run rejects them earlier.
func Evaluate(info Info, ts model.TaskSet, p model.Platform, fn func() model.AnalysisResult) model.AnalysisResult {
	if res, ok := Check(info, ts, p); !ok {
		return res
	}
	return Stamp(info, fn())
}

// Stamp fills in the algorithm name and, when unset, the declared strength.
func Stamp(info Info, res model.AnalysisResult) model.AnalysisResult {
	res.Algorithm = info.Name
	if res.Strength == "" {
		res.Strength = info.Strength
	}
	return res
}

func validate(ts model.TaskSet, p model.Platform) error {
	if err := ts.Validate(); err != nil {
		return err
	}
	return p.Validate()
}
