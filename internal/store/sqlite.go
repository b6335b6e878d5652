package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/me/schedkit/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every connection would see its own empty database.
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Analysis results ---

// PutAnalysis stores res under key and returns the stored record. A result
// already cached under key is kept and returned unchanged.
func (s *SQLiteStore) PutAnalysis(ctx context.Context, key Key, res model.AnalysisResult, elapsed time.Duration) (*model.Record, error) {
	s.logger.Debug("sql", "op", "insert", "table", "analysis_results", "key", key.String())

	resultJSON, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_results (id, cache_key, algorithm, processors, task_count, digest, verdict, strength, result, elapsed_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO NOTHING`,
		"ana_"+uuid.New().String(), key.String(), key.Algorithm, key.Processors, key.TaskCount, key.Digest,
		string(res.Verdict), string(res.Strength), string(resultJSON), elapsed.Microseconds(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	return s.GetAnalysis(ctx, key)
}

// GetAnalysis returns the record cached under key, or nil.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, key Key) (*model.Record, error) {
	s.logger.Debug("sql", "op", "select", "table", "analysis_results", "key", key.String())
	return s.getOne(ctx, "analysis", "cache_key = ?", key.String())
}

// --- Design results ---

// PutDesign stores res under key and returns the stored record.
func (s *SQLiteStore) PutDesign(ctx context.Context, key Key, res model.DesignResult, elapsed time.Duration) (*model.Record, error) {
	s.logger.Debug("sql", "op", "insert", "table", "design_results", "key", key.String())

	resultJSON, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO design_results (id, cache_key, algorithm, processors, task_count, digest, outcome, result, elapsed_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO NOTHING`,
		"des_"+uuid.New().String(), key.String(), key.Algorithm, key.Processors, key.TaskCount, key.Digest,
		string(res.Outcome), string(resultJSON), elapsed.Microseconds(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	return s.GetDesign(ctx, key)
}

// GetDesign returns the record cached under key, or nil.
func (s *SQLiteStore) GetDesign(ctx context.Context, key Key) (*model.Record, error) {
	s.logger.Debug("sql", "op", "select", "table", "design_results", "key", key.String())
	return s.getOne(ctx, "design", "cache_key = ?", key.String())
}

// --- History ---

// GetRecord returns the analysis or design record with the given id, or nil.
func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*model.Record, error) {
	s.logger.Debug("sql", "op", "select", "table", "records", "id", id)
	kind := "analysis"
	if strings.HasPrefix(id, "des_") {
		kind = "design"
	}
	return s.getOne(ctx, kind, "id = ?", id)
}

// recordsQuery lists both tables with a uniform column set.
const recordsQuery = `SELECT kind, id, algorithm, processors, task_count, digest, result, elapsed_us, created_at FROM (
	SELECT 'analysis' AS kind, id, algorithm, processors, task_count, digest, result, elapsed_us, created_at FROM analysis_results
	UNION ALL
	SELECT 'design' AS kind, id, algorithm, processors, task_count, digest, result, elapsed_us, created_at FROM design_results
)`

// ListRecords returns cached records, newest first.
func (s *SQLiteStore) ListRecords(ctx context.Context, opts model.ListOptions) ([]*model.Record, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "records", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	where, args := "", []any{}
	if opts.Algorithm != "" {
		where = " WHERE algorithm = ?"
		args = append(args, opts.Algorithm)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM (` + recordsQuery + where + `)`
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		recordsQuery+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func (s *SQLiteStore) getOne(ctx context.Context, kind, where string, arg any) (*model.Record, error) {
	table := "analysis_results"
	if kind == "design" {
		table = "design_results"
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT ?, id, algorithm, processors, task_count, digest, result, elapsed_us, created_at
		 FROM `+table+` WHERE `+where, kind, arg)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*model.Record, error) {
	var rec model.Record
	var resultJSON, createdAt string
	var elapsedUS int64
	if err := sc.Scan(&rec.Kind, &rec.ID, &rec.Algorithm, &rec.Processors, &rec.TaskCount, &rec.Digest,
		&resultJSON, &elapsedUS, &createdAt); err != nil {
		return nil, err
	}
	switch rec.Kind {
	case "design":
		rec.Design = &model.DesignResult{}
		if err := json.Unmarshal([]byte(resultJSON), rec.Design); err != nil {
			return nil, fmt.Errorf("unmarshal design result: %w", err)
		}
	default:
		rec.Analysis = &model.AnalysisResult{}
		if err := json.Unmarshal([]byte(resultJSON), rec.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis result: %w", err)
		}
	}
	rec.Elapsed = time.Duration(elapsedUS) * time.Microsecond
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &rec, nil
}
