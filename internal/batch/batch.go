// Package batch evaluates many task sets with one selection in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/pkg/model"
)

// Config configures a batch run.
type Config struct {
	// MaxWorkers limits concurrent analyses. Default: runtime.NumCPU()
	MaxWorkers int

	// FailFast stops the batch at the first job that returns an error.
	// Negative verdicts are results, not errors.
	FailFast bool
}

// DefaultConfig returns the default batch configuration.
func DefaultConfig() Config {
	return Config{
		MaxWorkers: runtime.NumCPU(),
		FailFast:   false,
	}
}

// Job is one task set to analyse.
type Job struct {
	Name  string
	Tasks model.TaskSet
	// Err is a load error; the job is reported as failed without running.
	Err error
}

// Result is the outcome of one job.
type Result struct {
	Name     string                 `json:"name"`
	Verdict  model.Verdict          `json:"verdict,omitempty"`
	Results  []model.AnalysisResult `json:"results,omitempty"`
	Duration time.Duration          `json:"duration_ns"`
	Err      error                  `json:"-"`
	Error    string                 `json:"error,omitempty"`
}

// ErrCancelled marks jobs skipped after a fail-fast stop or cancellation.
var ErrCancelled = errors.New("cancelled")

// Runner runs jobs through a catalog.
type Runner struct {
	catalog *catalog.Catalog
	sel     catalog.Selection
	config  Config
	logger  *slog.Logger
}

// NewRunner creates a Runner evaluating every job with sel.
func NewRunner(cat *catalog.Catalog, sel catalog.Selection, cfg Config, logger *slog.Logger) *Runner {
	return &Runner{
		catalog: cat,
		sel:     sel,
		config:  cfg,
		logger:  logger.With("component", "batch"),
	}
}

// Run evaluates jobs concurrently. Results are returned in job order. With
// FailFast the first job error is returned and unstarted jobs are marked
// ErrCancelled.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, *Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := NewSlots(r.config.MaxWorkers)
	results := make([]Result, len(jobs))
	start := time.Now()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	r.logger.Info("batch started", "jobs", len(jobs), "workers", slots.Capacity(), "algorithm", r.sel.Algorithm)

	for i, job := range jobs {
		release, err := slots.Acquire(ctx, r.sel.Algorithm)
		if err != nil {
			for j := i; j < len(jobs); j++ {
				results[j] = Result{Name: jobs[j].Name, Err: ErrCancelled}
			}
			break
		}
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			defer release()
			res := r.runOne(ctx, job)
			results[i] = res
			if res.Err != nil && r.config.FailFast {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("%s: %w", job.Name, res.Err)
					cancel()
				})
			}
		}(i, job)
	}
	wg.Wait()

	for i := range results {
		if results[i].Err != nil {
			results[i].Error = results[i].Err.Error()
		}
	}
	summary := Summarize(results, time.Since(start))
	r.logger.Info("batch finished", "jobs", summary.Count, "schedulable", summary.Schedulable,
		"failed", summary.Failed, "duration", formatDuration(summary.Duration))
	return results, summary, firstErr
}

func (r *Runner) runOne(ctx context.Context, job Job) Result {
	res := Result{Name: job.Name}
	if job.Err != nil {
		res.Err = job.Err
		return res
	}
	if ctx.Err() != nil {
		res.Err = ErrCancelled
		return res
	}
	start := time.Now()
	results, err := r.catalog.Analyze(r.sel, job.Tasks)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		r.logger.Debug("job failed", "name", job.Name, "error", err)
		return res
	}
	res.Results = results
	res.Verdict = catalog.Overall(results)
	r.logger.Debug("job finished", "name", job.Name, "verdict", res.Verdict, "duration", res.Duration)
	return res
}
