// Package global implements sufficient schedulability tests for global
// scheduling of sporadic tasks on identical multiprocessors.
package global

import (
	"fmt"
	"slices"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/internal/uniproc"
	"github.com/me/schedkit/pkg/model"
)

// JobDemand is the demand bound function of a task: execution of jobs both
// released and due inside an interval of length t.
func JobDemand(task model.Task, t model.Time) model.Time {
	return uniproc.TaskDemand(task, t)
}

// CarryInDemand is Baruah's DBF': demand in an interval of length t when
// the first job may be carried in and only partially executed.
func CarryInDemand(task model.Task, t model.Time) model.Time {
	return analysis.FloorDiv(t, task.Period)*task.WCET + min(task.WCET, analysis.Mod(t, task.Period))
}

// Workload bounds the execution of task in any window of length l under a
// work-conserving scheduler, assuming every job meets its deadline
// (Bertogna, Cirinei, Lipari 2009, Eq. 6).
func Workload(task model.Task, l model.Time) model.Time {
	span := l + task.Laxity()
	n := analysis.FloorDiv(span, task.Period)
	return n*task.WCET + min(task.WCET, span-n*task.Period)
}

// EDFInterference bounds the interference of task i on a job of task k
// under EDF, counting only jobs with earlier absolute deadlines
// (Bertogna, Cirinei, Lipari 2009, Eq. 8).
func EDFInterference(i, k model.Task) model.Time {
	n := analysis.FloorDiv(k.Deadline, i.Period)
	return n*i.WCET + min(i.WCET, max(0, k.Deadline-n*i.Period))
}

// NonCarryInWorkload bounds the work of a task with no job carried into a
// window of length x (Guan et al. 2009, Eq. 5).
func NonCarryInWorkload(task model.Task, x model.Time) model.Time {
	return CarryInDemand(task, x)
}

// CarryInWorkload bounds the work of a task whose response time is r when
// one job is carried into a window of length x (Guan et al. 2009, Eq. 6).
func CarryInWorkload(task model.Task, r, x model.Time) model.Time {
	w := max(0, x-task.WCET)
	tail := analysis.Mod(w, task.Period) - (task.Period - r)
	return analysis.FloorDiv(w, task.Period)*task.WCET + task.WCET + clamp(tail, 0, max(task.WCET-1, 0))
}

// TopSum returns the sum of the k largest values. vals is not modified.
func TopSum(vals []model.Time, k int) model.Time {
	if k <= 0 {
		return 0
	}
	sorted := slices.Clone(vals)
	slices.Sort(sorted)
	var s model.Time
	for i := len(sorted) - 1; i >= 0 && k > 0; i, k = i-1, k-1 {
		s += sorted[i]
	}
	return s
}

func clamp(v, lo, hi model.Time) model.Time {
	return max(lo, min(v, hi))
}

func info(name, title, citation, complexity string, policy analysis.Policy) analysis.Info {
	return analysis.Info{
		Name:          name,
		Title:         title,
		Citation:      citation,
		Family:        analysis.FamilyGlobal,
		Policy:        policy,
		Strength:      model.StrengthSufficient,
		Activation:    model.Sporadic,
		Deadlines:     model.DeadlineConstrained,
		Complexity:    complexity,
		MinProcessors: 1,
	}
}

// perTask runs pass for every task in order and reports the first failure.
func perTask(ts model.TaskSet, pass func(k int, t model.Task) (string, bool)) model.AnalysisResult {
	for k, t := range ts {
		if reason, ok := pass(k, t); !ok {
			return model.NotSchedulable(k, "task %d: %s", k, reason)
		}
	}
	return model.Schedulable()
}

func sprintf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
