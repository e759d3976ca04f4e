package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"tagdex/internal/metrics"
)

// Default timeout for a single store operation attempt.
const defaultTimeout = 5 * time.Second

// Retry policy for transient write-lock contention: one initial attempt plus
// five retries at a fixed 100ms interval. Exhausting the budget surfaces the
// last error as fatal for that call.
const (
	retryAttempts = 6
	retryDelay    = 100 * time.Millisecond
)

// The reserved default tag group. Every tag belongs to exactly one group and
// falls back to this one when none is given.
const (
	DefaultGroupName  = "None"
	DefaultGroupColor = "#6e7f80"
)

// ErrConstraint reports a schema constraint violation, such as adding a
// folder whose path is already tracked. Constraint violations are never
// retried. Callers are expected to pre-check (IsTracked and the like) so the
// common path does not trigger this.
var ErrConstraint = errors.New("constraint violation")

// Store manages all persistent state for the tagging index.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if necessary) the store at dbPath. The parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Store, error) {
	log.Infof("store path: %s", dbPath)

	// busy_timeout stays at zero so contention surfaces as SQLITE_BUSY and is
	// handled by the store's own retry policy.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Errorf("failed to close store after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Errorf("failed to close store after schema failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Infof("store initialized at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS folders (
		folder_id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS files (
		file_id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		folder_id INTEGER NOT NULL,
		thumbnail TEXT,
		description TEXT,
		FOREIGN KEY (folder_id) REFERENCES folders(folder_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_files_folder ON files(folder_id);

	CREATE TABLE IF NOT EXISTS tag_groups (
		group_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		color TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tags (
		tag_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		group_id INTEGER NOT NULL,
		FOREIGN KEY (group_id) REFERENCES tag_groups(group_id) ON DELETE CASCADE
	);

	-- tag_value '' stands for a bare tag. Storing '' instead of NULL keeps
	-- the UNIQUE constraint effective; SQLite treats NULLs as distinct.
	CREATE TABLE IF NOT EXISTS file_tags (
		file_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		tag_value TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(tag_id) ON DELETE CASCADE,
		UNIQUE(file_id, tag_id, tag_value)
	);

	CREATE INDEX IF NOT EXISTS idx_file_tags_file ON file_tags(file_id);
	CREATE INDEX IF NOT EXISTS idx_file_tags_tag ON file_tags(tag_id);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	// The default group must exist after schema creation.
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO tag_groups (name, color) VALUES (?, ?)",
		DefaultGroupName, DefaultGroupColor,
	)
	return err
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// isTransient reports whether err is a store failure expected to resolve
// itself on retry (write-lock contention).
func isTransient(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func isConstraint(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	return false
}

// runWithRetry executes op under the store's transient-failure policy and
// records query metrics for the operation as a whole.
func runWithRetry(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	start := time.Now()
	err := retry.Do(
		func() error {
			opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
			defer cancel()
			return op(opCtx)
		},
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(isTransient),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			metrics.StoreRetriesTotal.WithLabelValues(operation).Inc()
			log.Debugf("store %s busy, retry %d/%d: %v", operation, n+1, retryAttempts-1, err)
		}),
	)
	if isConstraint(err) {
		err = fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	recordQuery(operation, start, err)
	return err
}

func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// placeholders returns "?, ?, ..." with n markers for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
