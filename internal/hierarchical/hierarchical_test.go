package hierarchical

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

var uni = model.Uniprocessor()

func tasks(params ...[3]model.Time) model.TaskSet {
	ts := make(model.TaskSet, len(params))
	for i, p := range params {
		ts[i] = model.NewTask(p[0], p[1], p[2])
	}
	return ts
}

func prm(period, budget model.Time) model.PeriodicResourceModel {
	return model.PeriodicResourceModel{Period: period, Budget: budget}
}

func TestPRMEDF_AnalyzeWith(t *testing.T) {
	tests := []struct {
		name string
		ts   model.TaskSet
		r    model.PeriodicResourceModel
		want model.Verdict
	}{
		{"full supply", tasks([3]model.Time{1, 10, 10}), prm(5, 5), model.VerdictSchedulable},
		{"blackout too long", tasks([3]model.Time{2, 10, 10}), prm(5, 1), model.VerdictNotSchedulable},
		{"enough budget", tasks([3]model.Time{2, 10, 10}), prm(5, 2), model.VerdictSchedulable},
		{"over bandwidth", tasks([3]model.Time{3, 10, 10}), prm(5, 1), model.VerdictNotSchedulable},
		{"invalid budget", tasks([3]model.Time{1, 10, 10}), prm(5, 0), model.VerdictPreconditionViolated},
		{"arbitrary deadline", tasks([3]model.Time{1, 12, 10}), prm(5, 5), model.VerdictPreconditionViolated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := (&PRMEDF{}).AnalyzeWith(tt.ts, uni, tt.r)
			if res.Verdict != tt.want {
				t.Errorf("Verdict = %s, want %s (%s)", res.Verdict, tt.want, res.Reason)
			}
		})
	}
}

func TestPRMEDF_PointLimit(t *testing.T) {
	ts := tasks([3]model.Time{1, 7, 7}, [3]model.Time{1, 11, 11}, [3]model.Time{1, 13, 13})
	res := (&PRMEDF{MaxPoints: 10}).AnalyzeWith(ts, uni, prm(3, 2))
	if res.Verdict != model.VerdictNotSchedulable {
		t.Fatalf("Verdict = %s, want %s", res.Verdict, model.VerdictNotSchedulable)
	}
	if res.Strength != model.StrengthSufficient {
		t.Errorf("Strength = %s, want %s", res.Strength, model.StrengthSufficient)
	}
}

func TestPRMFP_AnalyzeWith(t *testing.T) {
	ts := tasks([3]model.Time{1, 4, 4}, [3]model.Time{1, 8, 8})
	if res := (&PRMFP{}).AnalyzeWith(ts, uni, prm(2, 1)); res.Verdict != model.VerdictSchedulable {
		t.Errorf("PRM(2,1) Verdict = %s, want %s (%s)", res.Verdict, model.VerdictSchedulable, res.Reason)
	}
	res := (&PRMFP{}).AnalyzeWith(ts, uni, prm(4, 1))
	if res.Verdict != model.VerdictNotSchedulable {
		t.Errorf("PRM(4,1) Verdict = %s, want %s", res.Verdict, model.VerdictNotSchedulable)
	}
	if res.FailedTask != 0 {
		t.Errorf("FailedTask = %d, want 0", res.FailedTask)
	}
}

func TestLinearBudget(t *testing.T) {
	got := LinearBudget(5, 10, 2)
	if math.Abs(got-math.Sqrt(80)/4) > 1e-9 {
		t.Errorf("LinearBudget(5, 10, 2) = %v, want %v", got, math.Sqrt(80)/4)
	}
	if LinearBudget(5, 10, 0) != 0 {
		t.Error("zero demand should need no budget")
	}
	r := prm(5, model.Time(math.Ceil(got)))
	if r.LinearSupplyBound(10) < 2 {
		t.Errorf("LinearSupplyBound(10) = %v, want >= 2", r.LinearSupplyBound(10))
	}
}

func TestDesigner_Preconditions(t *testing.T) {
	tests := []struct {
		name string
		ts   model.TaskSet
		p    model.Platform
		opts Options
	}{
		{"arbitrary deadline", tasks([3]model.Time{1, 12, 10}), uni, Options{}},
		{"multiprocessor", tasks([3]model.Time{1, 10, 10}), model.Platform{Processors: 2}, Options{}},
		{"empty period range", tasks([3]model.Time{1, 10, 10}), uni, Options{PeriodMin: 8, PeriodMax: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewEDFDesigner(tt.opts).Design(tt.ts, tt.p)
			if res.Outcome != model.OutcomePreconditionViolated {
				t.Errorf("Outcome = %s, want %s", res.Outcome, model.OutcomePreconditionViolated)
			}
			if res.Interface != nil {
				t.Error("Interface set on a failed design")
			}
		})
	}
}

func TestDesigner_Infeasible(t *testing.T) {
	ts := tasks([3]model.Time{2, 2, 2}, [3]model.Time{1, 2, 2})
	res := NewEDFDesigner(Options{}).Design(ts, uni)
	if res.Outcome != model.OutcomeInfeasible {
		t.Errorf("Outcome = %s, want %s", res.Outcome, model.OutcomeInfeasible)
	}
	if res.Algorithm != "prm-edf-design" {
		t.Errorf("Algorithm = %q, want %q", res.Algorithm, "prm-edf-design")
	}
}

func TestDesigner_FullUtilization(t *testing.T) {
	res := NewEDFDesigner(Options{}).Design(tasks([3]model.Time{1, 1, 1}), uni)
	if res.Outcome != model.OutcomeFound {
		t.Fatalf("Outcome = %s, want %s (%s)", res.Outcome, model.OutcomeFound, res.Reason)
	}
	if *res.Interface != prm(1, 1) {
		t.Errorf("Interface = %v, want %v", *res.Interface, prm(1, 1))
	}
}

func TestDesigner_MinimalBudgetForPeriod(t *testing.T) {
	ts := tasks([3]model.Time{2, 10, 10})
	d := NewEDFDesigner(Options{PeriodMin: 5, PeriodMax: 5})
	res := d.Design(ts, uni)
	if res.Outcome != model.OutcomeFound {
		t.Fatalf("Outcome = %s, want %s", res.Outcome, model.OutcomeFound)
	}
	if *res.Interface != prm(5, 2) {
		t.Errorf("Interface = %v, want %v", *res.Interface, prm(5, 2))
	}
	if res.CandidatesTried != 1 {
		t.Errorf("CandidatesTried = %d, want 1", res.CandidatesTried)
	}
	if res.OracleCalls == 0 {
		t.Error("OracleCalls = 0")
	}
}

func randomTaskSet(rng *rand.Rand, constrained bool) model.TaskSet {
	periods := []model.Time{6, 8, 12, 24}
	n := 1 + rng.IntN(3)
	ts := make(model.TaskSet, n)
	for i := range ts {
		period := periods[rng.IntN(len(periods))]
		wcet := model.Time(1 + rng.IntN(int(period)/4))
		deadline := period
		if constrained {
			deadline = wcet + model.Time(rng.IntN(int(period-wcet)+1))
		}
		ts[i] = model.NewTask(wcet, deadline, period)
	}
	return ts.ByDeadline()
}

func TestDesigner_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))
	designers := []analysis.Designer{NewEDFDesigner(Options{}), NewFPDesigner(Options{})}
	found := 0
	for iter := 0; iter < 40; iter++ {
		ts := randomTaskSet(rng, iter%2 == 0)
		for _, d := range designers {
			res := d.Design(ts, uni)
			if res.Outcome != model.OutcomeFound {
				continue
			}
			found++
			check, err := analysis.Verify(d, ts, uni, res)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if check.Verdict != model.VerdictSchedulable {
				t.Fatalf("%s found %v for %v but %s says %s (%s)",
					d.Info().Name, *res.Interface, ts, check.Algorithm, check.Verdict, check.Reason)
			}
			if b := res.Interface.Budget; b > 1 {
				less := prm(res.Interface.Period, b-1)
				if d.Oracle().AnalyzeWith(ts, uni, less).IsSchedulable() {
					t.Errorf("%s: budget %d is not minimal for period %d on %v", d.Info().Name, b, res.Interface.Period, ts)
				}
			}
		}
	}
	if found == 0 {
		t.Error("no design was found on any generated task set")
	}
}

func TestDesigner_Oracle(t *testing.T) {
	if got := NewEDFDesigner(Options{}).Oracle().Info().Name; got != "prm-edf" {
		t.Errorf("EDF oracle = %q, want %q", got, "prm-edf")
	}
	if got := NewFPDesigner(Options{}).Oracle().Info().Name; got != "prm-fp" {
		t.Errorf("FP oracle = %q, want %q", got, "prm-fp")
	}
}
