package activity

import (
	"context"
	"database/sql"
)

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queries holds the typed statements of the activity table. Schema setup
// and settings stay on the Store.
type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

const insertEntry = `INSERT INTO activity (at_ms, action, target, locale, detail) VALUES (?, ?, ?, ?, ?)`

type insertEntryParams struct {
	AtMs   int64
	Action string
	Target string
	Locale string
	Detail string
}

func (q *queries) insertEntry(ctx context.Context, arg insertEntryParams) error {
	_, err := q.db.ExecContext(ctx, insertEntry, arg.AtMs, arg.Action, arg.Target, arg.Locale, arg.Detail)
	return err
}

const recentEntries = `SELECT id, at_ms, action, target, locale, detail FROM activity
ORDER BY at_ms DESC, id DESC LIMIT ?`

type entryRow struct {
	ID     int64
	AtMs   int64
	Action string
	Target string
	Locale string
	Detail string
}

func (q *queries) recentEntries(ctx context.Context, limit int) ([]entryRow, error) {
	rows, err := q.db.QueryContext(ctx, recentEntries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []entryRow
	for rows.Next() {
		var r entryRow
		if err := rows.Scan(&r.ID, &r.AtMs, &r.Action, &r.Target, &r.Locale, &r.Detail); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const deleteBefore = `DELETE FROM activity WHERE at_ms < ?`

func (q *queries) deleteBefore(ctx context.Context, cutoffMs int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBefore, cutoffMs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
