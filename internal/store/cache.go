package store

import (
	"context"
	"time"

	"github.com/me/schedkit/pkg/model"
)

// CachedAnalysis returns the analysis cached under key, or runs fn and
// caches its result. The boolean reports a cache hit. A nil st always runs
// fn and returns an unsaved record.
func CachedAnalysis(ctx context.Context, st Store, key Key, fn func() (model.AnalysisResult, error)) (*model.Record, bool, error) {
	if st != nil {
		rec, err := st.GetAnalysis(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if rec != nil {
			return rec, true, nil
		}
	}
	start := time.Now()
	res, err := fn()
	if err != nil {
		return nil, false, err
	}
	elapsed := time.Since(start)
	if st == nil {
		return newRecord("analysis", key, elapsed, &res, nil), false, nil
	}
	rec, err := st.PutAnalysis(ctx, key, res, elapsed)
	return rec, false, err
}

// CachedDesign is CachedAnalysis for design results.
func CachedDesign(ctx context.Context, st Store, key Key, fn func() (model.DesignResult, error)) (*model.Record, bool, error) {
	if st != nil {
		rec, err := st.GetDesign(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if rec != nil {
			return rec, true, nil
		}
	}
	start := time.Now()
	res, err := fn()
	if err != nil {
		return nil, false, err
	}
	elapsed := time.Since(start)
	if st == nil {
		return newRecord("design", key, elapsed, nil, &res), false, nil
	}
	rec, err := st.PutDesign(ctx, key, res, elapsed)
	return rec, false, err
}

func newRecord(kind string, key Key, elapsed time.Duration, a *model.AnalysisResult, d *model.DesignResult) *model.Record {
	return &model.Record{
		Kind:       kind,
		Algorithm:  key.Algorithm,
		Processors: key.Processors,
		TaskCount:  key.TaskCount,
		Digest:     key.Digest,
		Analysis:   a,
		Design:     d,
		Elapsed:    elapsed,
		CreatedAt:  time.Now().UTC(),
	}
}
