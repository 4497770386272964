package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

// Store provides database operations for the activity log.
type Store struct {
	db  *sql.DB
	q   *queries
	now func() time.Time
}

// NewStore opens (or creates) the SQLite database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create activity dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open activity db: %w", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure activity db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, q: newQueries(db), now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at_ms INTEGER NOT NULL,
			action TEXT NOT NULL,
			target TEXT NOT NULL,
			locale TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_activity_at ON activity(at_ms);
		CREATE INDEX IF NOT EXISTS idx_activity_target ON activity(target);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// migrate applies incremental schema migrations based on a version stored in
// the settings table.
func (s *Store) migrate() error {
	verStr, err := s.setting("schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	return s.setSetting("schema_version", strconv.Itoa(currentSchemaVersion))
}

func (s *Store) setting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

func (s *Store) setSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Record appends an entry. A zero Time is replaced with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	err := s.q.insertEntry(ctx, insertEntryParams{
		AtMs:   e.Time.UTC().UnixMilli(),
		Action: string(e.Action),
		Target: e.Target,
		Locale: e.Locale,
		Detail: e.Detail,
	})
	if err != nil {
		return fmt.Errorf("record %s %s: %w", e.Action, e.Target, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// selects the default; limits above maxLimit are clamped.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	rows, err := s.q.recentEntries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			ID:     r.ID,
			Time:   time.UnixMilli(r.AtMs).UTC(),
			Action: Action(r.Action),
			Target: r.Target,
			Locale: r.Locale,
			Detail: r.Detail,
		})
	}
	return entries, nil
}

// Prune removes entries recorded before cutoff and reports how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.q.deleteBefore(ctx, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	return n, nil
}

// StartCleanupScheduler prunes entries older than retention every interval.
// Returns a stop function.
func (s *Store) StartCleanupScheduler(logger *zap.Logger, retention, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.Prune(context.Background(), s.now().Add(-retention))
				if err != nil {
					logger.Warn("activity cleanup failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Debug("activity cleanup", zap.Int64("removed", n))
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}
