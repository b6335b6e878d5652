package analysis

import (
	"github.com/me/schedkit/pkg/model"
)

// Check runs every precondition declared by info. It returns a
// PreconditionViolated result and false on the first failure.
func Check(info Info, ts model.TaskSet, p model.Platform) (model.AnalysisResult, bool) {
	checks := []func() (string, bool){
		func() (string, bool) { return valid(ts, p) },
		func() (string, bool) { return processors(info, p) },
		func() (string, bool) { return deadlines(info.Deadlines, ts) },
		func() (string, bool) { return ordering(info.Ordering, ts) },
	}
	for _, c := range checks {
		if reason, ok := c(); !ok {
			return Stamp(info, model.PreconditionViolated("%s", reason)), false
		}
	}
	return model.AnalysisResult{}, true
}

// CheckActivation rejects sporadic input for a test that assumes strictly
// periodic releases. A sporadic-sound test accepts both.
func CheckActivation(info Info, a model.Activation) (model.AnalysisResult, bool) {
	if a == model.Sporadic && info.Activation == model.Periodic {
		return Stamp(info, model.PreconditionViolated("%s assumes periodic tasks, got sporadic", info.Name)), false
	}
	return model.AnalysisResult{}, true
}

// RequireImplicit checks that every task has D == T.
func RequireImplicit(ts model.TaskSet) (string, bool) {
	for i, t := range ts {
		if !t.Implicit() {
			return fmtTask(i, t, "requires implicit deadlines (D = T)"), false
		}
	}
	return "", true
}

// RequireConstrained checks that every task has D <= T.
func RequireConstrained(ts model.TaskSet) (string, bool) {
	for i, t := range ts {
		if !t.Constrained() {
			return fmtTask(i, t, "requires constrained deadlines (D <= T)"), false
		}
	}
	return "", true
}

// RequireSortedByPeriod checks rate-monotonic priority order.
func RequireSortedByPeriod(ts model.TaskSet) (string, bool) {
	for i := 1; i < len(ts); i++ {
		if ts[i].Period < ts[i-1].Period {
			return fmtTask(i, ts[i], "breaks rate-monotonic order (periods must be non-decreasing)"), false
		}
	}
	return "", true
}

// RequireSortedByDeadline checks deadline-monotonic priority order.
func RequireSortedByDeadline(ts model.TaskSet) (string, bool) {
	for i := 1; i < len(ts); i++ {
		if ts[i].Deadline < ts[i-1].Deadline {
			return fmtTask(i, ts[i], "breaks deadline-monotonic order (deadlines must be non-decreasing)"), false
		}
	}
	return "", true
}

// RequireUniprocessor checks m == 1.
func RequireUniprocessor(p model.Platform) (string, bool) {
	if p.Processors != 1 {
		return sprintf("requires a single processor, got %d", p.Processors), false
	}
	return "", true
}

// RequireMultiprocessor checks m >= 1 for the global family, which also
// accepts the degenerate single-processor case.
func RequireMultiprocessor(p model.Platform) (string, bool) {
	if p.Processors < 1 {
		return sprintf("requires at least one processor, got %d", p.Processors), false
	}
	return "", true
}

func valid(ts model.TaskSet, p model.Platform) (string, bool) {
	if err := validate(ts, p); err != nil {
		return err.Error(), false
	}
	return "", true
}

func processors(info Info, p model.Platform) (string, bool) {
	if info.MaxProcessors == 1 {
		return RequireUniprocessor(p)
	}
	if p.Processors < info.MinProcessors {
		return sprintf("requires at least %d processors, got %d", info.MinProcessors, p.Processors), false
	}
	if info.MaxProcessors > 0 && p.Processors > info.MaxProcessors {
		return sprintf("supports at most %d processors, got %d", info.MaxProcessors, p.Processors), false
	}
	return RequireMultiprocessor(p)
}

func deadlines(m model.DeadlineModel, ts model.TaskSet) (string, bool) {
	switch m {
	case model.DeadlineImplicit:
		return RequireImplicit(ts)
	case model.DeadlineConstrained:
		return RequireConstrained(ts)
	}
	return "", true
}

func ordering(o Ordering, ts model.TaskSet) (string, bool) {
	switch o {
	case OrderPeriod:
		return RequireSortedByPeriod(ts)
	case OrderDeadline:
		return RequireSortedByDeadline(ts)
	}
	return "", true
}
