package analysis

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/me/schedkit/pkg/model"
)

// stubAnalyzer accepts constrained, deadline-ordered input and records
// whether its algorithm ran.
type stubAnalyzer struct {
	ran     bool
	verdict model.Verdict
}

func (s *stubAnalyzer) Info() Info {
	return Info{
		Name:          "stub",
		Family:        FamilyUniprocFP,
		Strength:      model.StrengthSufficient,
		Deadlines:     model.DeadlineConstrained,
		Ordering:      OrderDeadline,
		MinProcessors: 1,
		MaxProcessors: 1,
	}
}

func (s *stubAnalyzer) Analyze(ts model.TaskSet, p model.Platform) model.AnalysisResult {
	return Evaluate(s.Info(), ts, p, func() model.AnalysisResult {
		s.ran = true
		return model.AnalysisResult{Verdict: s.verdict, FailedTask: -1}
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRun_ValueError(t *testing.T) {
	a := &stubAnalyzer{verdict: model.VerdictSchedulable}
	_, err := Run(a, model.TaskSet{model.NewTask(0, 5, 5)}, model.Uniprocessor())
	var ve *model.ValueError
	if !errors.As(err, &ve) {
		t.Fatalf("Run() error = %v, want *model.ValueError", err)
	}
	if a.ran {
		t.Error("algorithm ran on invalid input")
	}

	_, err = Run(a, model.TaskSet{model.NewTask(1, 5, 5)}, model.Platform{})
	if !errors.As(err, &ve) {
		t.Errorf("Run() with zero processors error = %v, want *model.ValueError", err)
	}
}

func TestAnalyze_InvalidParametersWithoutRun(t *testing.T) {
	a := &stubAnalyzer{verdict: model.VerdictSchedulable}
	res := a.Analyze(model.TaskSet{model.NewTask(0, 5, 5)}, model.Uniprocessor())
	if res.Verdict != model.VerdictPreconditionViolated {
		t.Errorf("Verdict = %s, want %s", res.Verdict, model.VerdictPreconditionViolated)
	}
	if !strings.Contains(res.Reason, "wcet") {
		t.Errorf("Reason = %q, want it to name the field", res.Reason)
	}
	if a.ran {
		t.Error("algorithm ran on invalid input")
	}
}

func TestRun_StampsResult(t *testing.T) {
	a := &stubAnalyzer{verdict: model.VerdictSchedulable}
	res, err := Run(a, model.TaskSet{model.NewTask(1, 5, 5)}, model.Uniprocessor())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Algorithm != "stub" {
		t.Errorf("Algorithm = %q, want %q", res.Algorithm, "stub")
	}
	if res.Strength != model.StrengthSufficient {
		t.Errorf("Strength = %q, want %q", res.Strength, model.StrengthSufficient)
	}
}

func TestEvaluate_PreconditionsFirst(t *testing.T) {
	tests := []struct {
		name   string
		ts     model.TaskSet
		p      model.Platform
		reason string
	}{
		{"arbitrary deadline", model.TaskSet{model.NewTask(1, 9, 5)}, model.Uniprocessor(), "constrained"},
		{"out of order", model.TaskSet{model.NewTask(1, 5, 5), model.NewTask(1, 4, 5)}, model.Uniprocessor(), "deadline-monotonic"},
		{"two processors", model.TaskSet{model.NewTask(1, 5, 5)}, model.Platform{Processors: 2}, "single processor"},
		{"invalid task", model.TaskSet{model.NewTask(1, 5, 0)}, model.Uniprocessor(), "period"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &stubAnalyzer{verdict: model.VerdictSchedulable}
			res := a.Analyze(tt.ts, tt.p)
			if res.Verdict != model.VerdictPreconditionViolated {
				t.Errorf("Verdict = %s, want %s", res.Verdict, model.VerdictPreconditionViolated)
			}
			if !strings.Contains(res.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to mention %q", res.Reason, tt.reason)
			}
			if a.ran {
				t.Error("algorithm ran before preconditions were checked")
			}
		})
	}
}

func TestCheckActivation(t *testing.T) {
	info := Info{Name: "periodic-only", Activation: model.Periodic}
	if _, ok := CheckActivation(info, model.Sporadic); ok {
		t.Error("sporadic input accepted by a periodic-only test")
	}
	if _, ok := CheckActivation(info, model.Periodic); !ok {
		t.Error("periodic input rejected")
	}
	info.Activation = model.Sporadic
	if _, ok := CheckActivation(info, model.Periodic); !ok {
		t.Error("periodic input rejected by a sporadic-sound test")
	}
}

func TestRequireSorted(t *testing.T) {
	ts := model.TaskSet{model.NewTask(1, 3, 10), model.NewTask(1, 5, 5)}
	if _, ok := RequireSortedByDeadline(ts); !ok {
		t.Error("RequireSortedByDeadline rejected sorted input")
	}
	reason, ok := RequireSortedByPeriod(ts)
	if ok {
		t.Fatal("RequireSortedByPeriod accepted unsorted input")
	}
	if !strings.HasPrefix(reason, "task 1") {
		t.Errorf("reason = %q, want it to name task 1", reason)
	}
}

type stubDesigner struct{}

func (stubDesigner) Info() Info {
	return Info{Name: "stub-design", Designer: true}
}

func (stubDesigner) Oracle() ResourceAnalyzer {
	return stubOracle{}
}

func (stubDesigner) Design(model.TaskSet, model.Platform) model.DesignResult {
	return model.Found(model.PeriodicResourceModel{Period: 4, Budget: 2})
}

type stubOracle struct{}

func (stubOracle) Info() Info {
	return Info{Name: "stub-oracle", Strength: model.StrengthExact}
}

func (stubOracle) AnalyzeWith(_ model.TaskSet, _ model.Platform, r model.PeriodicResourceModel) model.AnalysisResult {
	if r.Budget >= 2 {
		return model.Schedulable()
	}
	return model.NotSchedulable(-1, "budget too small")
}

func TestRunDesignAndVerify(t *testing.T) {
	ts := model.TaskSet{model.NewTask(1, 4, 4)}
	res, err := RunDesign(stubDesigner{}, ts, model.Uniprocessor())
	if err != nil {
		t.Fatalf("RunDesign() error = %v", err)
	}
	if res.Algorithm != "stub-design" {
		t.Errorf("Algorithm = %q, want %q", res.Algorithm, "stub-design")
	}
	check, err := Verify(stubDesigner{}, ts, model.Uniprocessor(), res)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if check.Verdict != model.VerdictSchedulable || check.Algorithm != "stub-oracle" {
		t.Errorf("Verify() = %s by %q, want SCHEDULABLE by stub-oracle", check.Verdict, check.Algorithm)
	}

	if _, err := Verify(stubDesigner{}, ts, model.Uniprocessor(), model.Infeasible("none")); err == nil {
		t.Error("Verify() of an infeasible result should fail")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(&stubAnalyzer{})
	r.RegisterDesigner(stubDesigner{})
	r.RegisterResource(stubOracle{})

	if _, err := r.Analyzer("stub"); err != nil {
		t.Errorf("Analyzer(stub) error = %v", err)
	}
	if _, err := r.Designer("stub-design"); err != nil {
		t.Errorf("Designer(stub-design) error = %v", err)
	}
	_, err := r.Analyzer("nope")
	var unknown *UnknownAlgorithmError
	if !errors.As(err, &unknown) {
		t.Fatalf("Analyzer(nope) error = %v, want *UnknownAlgorithmError", err)
	}
	if unknown.Error() != `no analysis registered for "nope"` {
		t.Errorf("Error() = %q", unknown.Error())
	}
	if _, err := r.Resource("stub-oracle"); err != nil {
		t.Errorf("Resource(stub-oracle) error = %v", err)
	}
	if _, err := r.Resource("stub"); err == nil {
		t.Error("Resource(stub) should fail for a plain analysis")
	}
	infos := r.List()
	if len(infos) != 3 || infos[0].Name != "stub" || infos[1].Name != "stub-oracle" || infos[2].Name != "stub-design" {
		t.Errorf("List() = %+v, want analyses, resource analyses, designers", infos)
	}
}

func TestRunWith_InvalidResource(t *testing.T) {
	ts := model.TaskSet{model.NewTask(1, 4, 4)}
	_, err := RunWith(stubOracle{}, ts, model.Uniprocessor(), model.PeriodicResourceModel{Period: 4, Budget: 5})
	var ve *model.ValueError
	if !errors.As(err, &ve) || ve.Field != "budget" {
		t.Errorf("RunWith() error = %v, want budget ValueError", err)
	}
	res, err := RunWith(stubOracle{}, ts, model.Uniprocessor(), model.PeriodicResourceModel{Period: 4, Budget: 1})
	if err != nil {
		t.Fatalf("RunWith() error = %v", err)
	}
	if res.Verdict != model.VerdictNotSchedulable || res.Algorithm != "stub-oracle" {
		t.Errorf("RunWith() = %s by %q, want NOT_SCHEDULABLE by stub-oracle", res.Verdict, res.Algorithm)
	}
}
