// Package journal keeps a local history of extract, generate and deploy runs
// together with the outcome of every file they touched.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run kinds.
const (
	KindExtract  = "extract"
	KindGenerate = "generate"
	KindDeploy   = "deploy"
	KindPush     = "push"
	KindBundle   = "bundle"
)

// Run states.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

var ErrUnknownRun = errors.New("unknown run")

// Journal is a SQLite-backed run ledger.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Run is one recorded invocation.
type Run struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Status   string    `json:"status"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Items    int       `json:"items"`
	Failures int       `json:"failures"`
	Detail   string    `json:"detail,omitempty"`
}

// Item is the outcome of one file within a run.
type Item struct {
	Subject string `json:"subject"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Open creates the database at path if needed and applies the schema.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS run_items (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			subject TEXT NOT NULL,
			ok INTEGER NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, seq)
		);`,
		"CREATE INDEX IF NOT EXISTS runs_started ON runs(started_at);",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("journal: schema: %w", err)
		}
	}
	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Begin records a new running run of the given kind and returns its ID.
func (j *Journal) Begin(ctx context.Context, kind, detail string) (string, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs(id, kind, status, started_at, detail) VALUES (?, ?, ?, ?, ?)`,
		id, kind, StatusRunning, j.now().UnixMilli(), detail)
	if err != nil {
		return "", fmt.Errorf("journal: begin: %w", err)
	}
	return id, nil
}

// Item appends the outcome of one subject to run id. A nil err records success.
func (j *Journal) Item(ctx context.Context, id, subject string, err error) error {
	ok, msg := 1, ""
	if err != nil {
		ok, msg = 0, err.Error()
	}
	_, execErr := j.db.ExecContext(ctx,
		`INSERT INTO run_items(run_id, seq, subject, ok, message)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM run_items WHERE run_id = ?), ?, ?, ?)`,
		id, id, subject, ok, msg)
	if execErr != nil {
		return fmt.Errorf("journal: item: %w", execErr)
	}
	return nil
}

// Finish closes run id. The status is derived from its items unless fatal is
// set, which marks the whole run failed.
func (j *Journal) Finish(ctx context.Context, id string, fatal error) error {
	var total, failed int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(1 - ok), 0) FROM run_items WHERE run_id = ?`, id).
		Scan(&total, &failed)
	if err != nil {
		return fmt.Errorf("journal: finish: %w", err)
	}
	status := StatusOK
	switch {
	case fatal != nil, total > 0 && failed == total:
		status = StatusFailed
	case failed > 0:
		status = StatusPartial
	}

	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, j.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("journal: finish: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, id)
	}
	return nil
}

// Recent returns up to limit runs, newest first, with item counts.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.id, r.kind, r.status, r.started_at, r.finished_at, r.detail,
		       COUNT(i.seq), COALESCE(SUM(1 - i.ok), 0)
		FROM runs r LEFT JOIN run_items i ON i.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.Status, &started, &finished, &r.Detail, &r.Items, &r.Failures); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		r.Started = time.UnixMilli(started)
		if finished > 0 {
			r.Finished = time.UnixMilli(finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Items lists the outcomes recorded for run id in order.
func (j *Journal) Items(ctx context.Context, id string) ([]Item, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT subject, ok, message FROM run_items WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("journal: items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var ok int
		if err := rows.Scan(&it.Subject, &ok, &it.Message); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		it.OK = ok == 1
		items = append(items, it)
	}
	return items, rows.Err()
}
