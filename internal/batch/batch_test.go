package batch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRunner(sel catalog.Selection, cfg Config) *Runner {
	logger := testLogger()
	return NewRunner(catalog.New(logger, catalog.DefaultOptions()), sel, cfg, logger)
}

func sampleJobs() []Job {
	return []Job{
		{Name: "light", Tasks: model.TaskSet{model.NewTask(1, 4, 4), model.NewTask(1, 8, 8)}},
		{Name: "overloaded", Tasks: model.TaskSet{model.NewTask(3, 4, 4), model.NewTask(3, 6, 6)}},
		{Name: "invalid", Tasks: model.TaskSet{model.NewTask(0, 4, 4)}},
		{Name: "unreadable", Err: errors.New("read failed")},
		{Name: "unsorted", Tasks: model.TaskSet{model.NewTask(1, 8, 8), model.NewTask(1, 4, 4)}},
	}
}

func TestRun_CollectsInOrder(t *testing.T) {
	r := testRunner(catalog.Selection{Algorithm: "rta"}, Config{MaxWorkers: 2})
	results, summary, err := r.Run(context.Background(), sampleJobs())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []struct {
		name    string
		verdict model.Verdict
		failed  bool
	}{
		{"light", model.VerdictSchedulable, false},
		{"overloaded", model.VerdictNotSchedulable, false},
		{"invalid", "", true},
		{"unreadable", "", true},
		{"unsorted", model.VerdictPreconditionViolated, false},
	}
	for i, w := range want {
		got := results[i]
		if got.Name != w.name {
			t.Errorf("results[%d].Name = %q, want %q", i, got.Name, w.name)
		}
		if (got.Err != nil) != w.failed {
			t.Errorf("%s: Err = %v, want failed=%v", w.name, got.Err, w.failed)
		}
		if !w.failed && got.Verdict != w.verdict {
			t.Errorf("%s: Verdict = %s, want %s", w.name, got.Verdict, w.verdict)
		}
	}
	if summary.Count != 5 || summary.Schedulable != 1 || summary.NotSchedulable != 1 ||
		summary.Precondition != 1 || summary.Failed != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if results[2].Error == "" {
		t.Error("failed job has no Error text")
	}
}

func TestRun_FailFast(t *testing.T) {
	jobs := []Job{
		{Name: "broken", Err: errors.New("read failed")},
	}
	for range 20 {
		jobs = append(jobs, Job{Name: "ok", Tasks: model.TaskSet{model.NewTask(1, 4, 4)}})
	}
	r := testRunner(catalog.Selection{Algorithm: "edf"}, Config{MaxWorkers: 1, FailFast: true})
	results, _, err := r.Run(context.Background(), jobs)
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("Run error = %v, want the broken job", err)
	}
	cancelled := 0
	for _, res := range results {
		if errors.Is(res.Err, ErrCancelled) {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("no jobs were cancelled after the first failure")
	}
}

func TestRun_FamilySelection(t *testing.T) {
	r := testRunner(catalog.Selection{Algorithm: "edf", Processors: 2}, DefaultConfig())
	jobs := []Job{{Name: "pair", Tasks: model.TaskSet{model.NewTask(1, 4, 4), model.NewTask(1, 4, 4)}}}
	results, _, err := r.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Verdict != model.VerdictSchedulable {
		t.Errorf("Verdict = %s, want %s", results[0].Verdict, model.VerdictSchedulable)
	}
	if len(results[0].Results) != 1 || results[0].Results[0].Algorithm != "gfb" {
		t.Errorf("Results = %+v, want the family to stop at gfb", results[0].Results)
	}
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Name: "a", Verdict: model.VerdictSchedulable, Duration: 2 * time.Millisecond},
		{Name: "b", Verdict: model.VerdictSchedulable, Duration: 4 * time.Millisecond},
		{Name: "c", Err: errors.New("x")},
	}
	s := Summarize(results, 10*time.Millisecond)
	if s.DurationAvg != 3*time.Millisecond {
		t.Errorf("DurationAvg = %v, want 3ms", s.DurationAvg)
	}
	if s.DurationStddev == 0 {
		t.Error("DurationStddev = 0, want > 0")
	}
	if s.Slowest != "b" {
		t.Errorf("Slowest = %q, want b", s.Slowest)
	}
	if s.Failed != 1 || s.Schedulable != 2 {
		t.Errorf("summary = %+v", s)
	}

	var buf bytes.Buffer
	PrintSummary(&buf, results, s)
	out := buf.String()
	for _, want := range []string{"TASK SET", "ERROR", "Task sets: 3, 2 schedulable", "1 failed", "slowest: b"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
