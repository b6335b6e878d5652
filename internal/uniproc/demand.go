package uniproc

import (
	"math/big"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/pkg/model"
)

// Utilization returns the exact total utilization of ts.
func Utilization(ts model.TaskSet) *big.Rat {
	u := new(big.Rat)
	for _, t := range ts {
		u.Add(u, analysis.Frac(t.WCET, t.Period))
	}
	return u
}

// TaskDemand returns the demand bound of a single task: the execution of
// all jobs released and due inside an interval of length t.
func TaskDemand(task model.Task, t model.Time) model.Time {
	if t < task.Deadline {
		return 0
	}
	return (analysis.FloorDiv(t-task.Deadline, task.Period) + 1) * task.WCET
}

// DemandBound returns the EDF demand bound function of ts at t.
func DemandBound(ts model.TaskSet, t model.Time) model.Time {
	var d model.Time
	for _, task := range ts {
		d += TaskDemand(task, t)
	}
	return d
}

// RequestBound returns the fixed-priority request bound of task i at t:
// its own execution plus every higher-priority release in [0, t).
func RequestBound(ts model.TaskSet, i int, t model.Time) model.Time {
	r := ts[i].WCET
	for _, hp := range ts[:i] {
		r += analysis.CeilDiv(t, hp.Period) * hp.WCET
	}
	return r
}
