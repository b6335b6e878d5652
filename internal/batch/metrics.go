package batch

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/me/schedkit/pkg/model"
)

// Summary holds aggregate statistics for a batch.
type Summary struct {
	Count          int           `json:"count"`
	Schedulable    int           `json:"schedulable"`
	NotSchedulable int           `json:"not_schedulable"`
	Precondition   int           `json:"precondition_violated"`
	Failed         int           `json:"failed"`
	Duration       time.Duration `json:"duration_ns"`
	DurationAvg    time.Duration `json:"duration_avg_ns"`
	DurationStddev time.Duration `json:"duration_stddev_ns"`
	Slowest        string        `json:"slowest,omitempty"`
}

// Summarize computes the summary of results. wall is the elapsed time of
// the whole batch.
func Summarize(results []Result, wall time.Duration) *Summary {
	s := &Summary{Count: len(results), Duration: wall}
	var ran []time.Duration
	var slowest time.Duration
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		switch r.Verdict {
		case model.VerdictSchedulable:
			s.Schedulable++
		case model.VerdictNotSchedulable:
			s.NotSchedulable++
		default:
			s.Precondition++
		}
		ran = append(ran, r.Duration)
		if r.Duration >= slowest {
			slowest = r.Duration
			s.Slowest = r.Name
		}
	}
	if len(ran) == 0 {
		return s
	}

	var total int64
	for _, d := range ran {
		total += int64(d)
	}
	avg := float64(total) / float64(len(ran))
	s.DurationAvg = time.Duration(avg)

	if len(ran) > 1 {
		var variance float64
		for _, d := range ran {
			diff := float64(d) - avg
			variance += diff * diff
		}
		variance /= float64(len(ran) - 1)
		s.DurationStddev = time.Duration(math.Sqrt(variance))
	}
	return s
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}

// PrintSummary writes a per-job table followed by the summary.
func PrintSummary(w io.Writer, results []Result, s *Summary) {
	nameLen := 20
	for _, r := range results {
		nameLen = max(nameLen, min(len(r.Name), 50))
	}

	fmt.Fprintf(w, "%-*s  %-22s  %10s\n", nameLen, "TASK SET", "VERDICT", "TIME")
	fmt.Fprintln(w, strings.Repeat("-", nameLen+36))
	for _, r := range results {
		name := r.Name
		if len(name) > nameLen {
			name = name[:nameLen-3] + "..."
		}
		verdict := string(r.Verdict)
		if r.Err != nil {
			verdict = "ERROR"
		}
		fmt.Fprintf(w, "%-*s  %-22s  %10s\n", nameLen, name, verdict, formatDuration(r.Duration))
		if r.Err != nil {
			fmt.Fprintf(w, "%-*s  %s\n", nameLen, "", r.Err)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", nameLen+36))

	fmt.Fprintf(w, "Task sets: %s, %s schedulable, %s not schedulable", count(s.Count), count(s.Schedulable), count(s.NotSchedulable))
	if s.Precondition > 0 {
		fmt.Fprintf(w, ", %s outside the test's model", count(s.Precondition))
	}
	if s.Failed > 0 {
		fmt.Fprintf(w, ", %s failed", count(s.Failed))
	}
	fmt.Fprintln(w)
	if s.DurationStddev > 0 {
		fmt.Fprintf(w, "Time: %s total, %s ± %s per set", formatDuration(s.Duration),
			formatDuration(s.DurationAvg), formatDuration(s.DurationStddev))
	} else {
		fmt.Fprintf(w, "Time: %s total, %s per set", formatDuration(s.Duration), formatDuration(s.DurationAvg))
	}
	if s.Slowest != "" {
		fmt.Fprintf(w, " (slowest: %s)", s.Slowest)
	}
	fmt.Fprintln(w)
}

func count(n int) string { return humanize.Comma(int64(n)) }
