package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for all schedkit tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_results (
		id          TEXT PRIMARY KEY,
		cache_key   TEXT NOT NULL UNIQUE,
		algorithm   TEXT NOT NULL,
		processors  INTEGER NOT NULL,
		task_count  INTEGER NOT NULL,
		digest      TEXT NOT NULL,
		verdict     TEXT NOT NULL,
		result      TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS design_results (
		id          TEXT PRIMARY KEY,
		cache_key   TEXT NOT NULL UNIQUE,
		algorithm   TEXT NOT NULL,
		processors  INTEGER NOT NULL,
		task_count  INTEGER NOT NULL,
		digest      TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		result      TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_analysis_results_algorithm ON analysis_results(algorithm)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_results_created_at ON analysis_results(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_design_results_algorithm ON design_results(algorithm)`,
	`CREATE INDEX IF NOT EXISTS idx_design_results_created_at ON design_results(created_at)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	{
		table:    "analysis_results",
		column:   "elapsed_us",
		alterSQL: "ALTER TABLE analysis_results ADD COLUMN elapsed_us INTEGER NOT NULL DEFAULT 0",
	},
	{
		table:    "design_results",
		column:   "elapsed_us",
		alterSQL: "ALTER TABLE design_results ADD COLUMN elapsed_us INTEGER NOT NULL DEFAULT 0",
	},
	{
		table:    "analysis_results",
		column:   "strength",
		alterSQL: "ALTER TABLE analysis_results ADD COLUMN strength TEXT NOT NULL DEFAULT ''",
		indexSQL: "CREATE INDEX IF NOT EXISTS idx_analysis_results_verdict ON analysis_results(verdict, strength)",
	},
}

// migrate executes all schema DDL statements, alter migrations, and post-migration indexes.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
