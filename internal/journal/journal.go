// Package journal records the outcome of every handler invocation in SQLite.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattjoyce/runapp/internal/storage"
)

// Outcome values stored for successful launches. Failures store the error kind.
const OutcomeLaunched = "launched"

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is one journal row.
type Record struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Key       string    `json:"key,omitempty"`
	Target    string    `json:"target,omitempty"`
	Args      []string  `json:"args"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message,omitempty"`
	PID       int       `json:"pid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal is an append-only launch history.
type Journal struct {
	db *sql.DB
}

// Open opens the journal database at path, creating it if needed.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends rec.
func (j *Journal) Record(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("journal record id is empty")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.Args == nil {
		rec.Args = []string{}
	}
	args, err := json.Marshal(rec.Args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
INSERT INTO launch_journal(id, url, app_key, target, args, outcome, message, pid, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);
`, rec.ID, rec.URL, nullable(rec.Key), nullable(rec.Target), string(args), rec.Outcome,
		nullable(rec.Message), nullableInt(rec.PID), rec.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert journal record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. A key filters by routing key.
func (j *Journal) Recent(ctx context.Context, key string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
SELECT id, url, app_key, target, args, outcome, message, pid, created_at
FROM launch_journal`
	args := []any{}
	if key != "" {
		query += " WHERE app_key = ?"
		args = append(args, key)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?;"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec                     Record
			appKey, target, message sql.NullString
			pid                     sql.NullInt64
			rawArgs, createdAt      string
		)
		if err := rows.Scan(&rec.ID, &rec.URL, &appKey, &target, &rawArgs, &rec.Outcome, &message, &pid, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		rec.Key = appKey.String
		rec.Target = target.String
		rec.Message = message.String
		rec.PID = int(pid.Int64)
		if err := json.Unmarshal([]byte(rawArgs), &rec.Args); err != nil {
			return nil, fmt.Errorf("decode args for %s: %w", rec.ID, err)
		}
		rec.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
