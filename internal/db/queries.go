package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries runs the ledger queries.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns queries bound to a transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Generation modes.
const (
	ModeLLM     = "llm"
	ModeMock    = "mock"
	ModeOffline = "offline"
)

// Generation is one recorded quiz generation.
type Generation struct {
	ID            string
	BookID        string
	LocatorKind   string
	LocatorValue  string
	Mode          string
	QuestionCount int64
	ErrorMessage  sql.NullString
	DurationMs    int64
	CreatedAt     time.Time
}

const createGeneration = `-- name: CreateGeneration :exec
INSERT INTO generations (
    id, book_id, locator_kind, locator_value, mode, question_count, error_message, duration_ms, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateGenerationParams struct {
	ID            string
	BookID        string
	LocatorKind   string
	LocatorValue  string
	Mode          string
	QuestionCount int64
	ErrorMessage  sql.NullString
	DurationMs    int64
	CreatedAt     time.Time
}

func (q *Queries) CreateGeneration(ctx context.Context, arg CreateGenerationParams) error {
	_, err := q.db.ExecContext(ctx, createGeneration,
		arg.ID,
		arg.BookID,
		arg.LocatorKind,
		arg.LocatorValue,
		arg.Mode,
		arg.QuestionCount,
		arg.ErrorMessage,
		arg.DurationMs,
		arg.CreatedAt,
	)
	return err
}

const countGenerations = `-- name: CountGenerations :one
SELECT COUNT(*) FROM generations
`

func (q *Queries) CountGenerations(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countGenerations)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countGenerationsByMode = `-- name: CountGenerationsByMode :many
SELECT mode, COUNT(*) AS count
FROM generations
GROUP BY mode
ORDER BY count DESC, mode
`

type CountGenerationsByModeRow struct {
	Mode  string
	Count int64
}

func (q *Queries) CountGenerationsByMode(ctx context.Context) ([]CountGenerationsByModeRow, error) {
	rows, err := q.db.QueryContext(ctx, countGenerationsByMode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountGenerationsByModeRow
	for rows.Next() {
		var i CountGenerationsByModeRow
		if err := rows.Scan(&i.Mode, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRecentGenerations = `-- name: ListRecentGenerations :many
SELECT id, book_id, locator_kind, locator_value, mode, question_count, error_message, duration_ms, created_at
FROM generations
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`

func (q *Queries) ListRecentGenerations(ctx context.Context, limit int64) ([]Generation, error) {
	rows, err := q.db.QueryContext(ctx, listRecentGenerations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Generation
	for rows.Next() {
		var i Generation
		if err := rows.Scan(
			&i.ID,
			&i.BookID,
			&i.LocatorKind,
			&i.LocatorValue,
			&i.Mode,
			&i.QuestionCount,
			&i.ErrorMessage,
			&i.DurationMs,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
