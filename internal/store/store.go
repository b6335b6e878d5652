package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/me/schedkit/pkg/model"
)

// Store caches analysis and design results. Every algorithm is a pure
// function of its input, so a result stored under a Key never goes stale.
type Store interface {
	// Analysis results
	PutAnalysis(ctx context.Context, key Key, res model.AnalysisResult, elapsed time.Duration) (*model.Record, error)
	GetAnalysis(ctx context.Context, key Key) (*model.Record, error)

	// Design results
	PutDesign(ctx context.Context, key Key, res model.DesignResult, elapsed time.Duration) (*model.Record, error)
	GetDesign(ctx context.Context, key Key) (*model.Record, error)

	// History
	GetRecord(ctx context.Context, id string) (*model.Record, error)
	ListRecords(ctx context.Context, opts model.ListOptions) ([]*model.Record, int, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Key identifies a cached result.
type Key struct {
	Algorithm  string
	Processors int
	TaskCount  int
	Digest     string // content hash of the task set, in order
	Options    string // hash of the search limits, empty when unused
}

// NewKey builds the cache key of running algorithm on ts and p. opts holds
// any search limits that can change the result; nil means none.
func NewKey(algorithm string, p model.Platform, ts model.TaskSet, opts any) (Key, error) {
	k := Key{
		Algorithm:  algorithm,
		Processors: p.Processors,
		TaskCount:  len(ts),
		Digest:     Digest(ts),
	}
	if opts != nil {
		data, err := json.Marshal(opts)
		if err != nil {
			return Key{}, fmt.Errorf("hash options: %w", err)
		}
		sum := sha256.Sum256(data)
		k.Options = hex.EncodeToString(sum[:8])
	}
	return k, nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s/m=%d/%s/%s", k.Algorithm, k.Processors, k.Digest, k.Options)
}

// Digest returns a hex content hash of ts. Task order is part of the hash
// since it is the priority order.
func Digest(ts model.TaskSet) string {
	h := sha256.New()
	for _, t := range ts {
		fmt.Fprintf(h, "%d %d %d\n", t.WCET, t.Deadline, t.Period)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
