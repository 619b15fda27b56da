package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/triage"
)

// Journal persists the triage state to a local SQLite database so that
// learned routing rules and manual triage survive a restart.
type Journal struct {
	db *sqlx.DB
}

// SyncRun is one recorded sync attempt.
type SyncRun struct {
	ID         string    `db:"id" json:"id"`
	Provider   string    `db:"provider" json:"provider"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
	Threads    int       `db:"threads" json:"threads"`
	Error      string    `db:"error" json:"error,omitempty"`
}

// OpenJournal opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func OpenJournal(dbPath string) (*Journal, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection: writes are already serialized by the Store, and an
	// in-memory database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	j := &Journal{db: db}
	if err := j.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (j *Journal) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := j.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = j.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := j.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Save replaces the journaled rules and threads with those in s, in one
// transaction. A failed save leaves the previous journal intact.
func (j *Journal) Save(ctx context.Context, s State) error {
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM routing_rules"); err != nil {
		return fmt.Errorf("clearing routing rules: %w", err)
	}
	for i, r := range s.Rules.Rules() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO routing_rules (sender_email, target_bucket, position, created_at)
			VALUES (?, ?, ?, ?)`,
			r.SenderEmail, string(r.TargetBucket), i, r.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("saving rule for %s: %w", r.SenderEmail, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM threads"); err != nil {
		return fmt.Errorf("clearing threads: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO threads (
			id, position, bucket, priority,
			pinned, awaiting_reply, last_inbound_at, data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing thread insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range s.Threads {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshaling thread %s: %w", t.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			t.ID, i, string(t.Bucket), string(t.Priority),
			boolToInt(t.Pinned), boolToInt(t.AwaitingReply), t.LastInboundAt.UTC(),
			string(data),
		)
		if err != nil {
			return fmt.Errorf("saving thread %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// Load reads the journaled state. The syncing flag always starts false.
func (j *Journal) Load(ctx context.Context) (State, error) {
	var s State

	rules, err := j.LoadRules(ctx)
	if err != nil {
		return State{}, err
	}
	s.Rules = triage.NewRuleSet(rules...)

	var rows []string
	if err := j.db.SelectContext(ctx, &rows, "SELECT data FROM threads ORDER BY position"); err != nil {
		return State{}, fmt.Errorf("querying threads: %w", err)
	}
	for _, data := range rows {
		var t model.Thread
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return State{}, fmt.Errorf("unmarshaling thread: %w", err)
		}
		s.Threads = append(s.Threads, t)
	}

	var last time.Time
	err = j.db.GetContext(ctx, &last,
		"SELECT finished_at FROM sync_runs WHERE error = '' ORDER BY finished_at DESC LIMIT 1")
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return State{}, fmt.Errorf("reading last sync: %w", err)
	default:
		s.LastSyncAt = &last
	}

	return s, nil
}

// LoadRules returns the journaled routing rules in insertion order.
func (j *Journal) LoadRules(ctx context.Context) ([]model.RoutingRule, error) {
	var rules []model.RoutingRule
	err := j.db.SelectContext(ctx, &rules, `
		SELECT sender_email, target_bucket, created_at
		FROM routing_rules ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying routing rules: %w", err)
	}
	return rules, nil
}

// RecordSyncRun appends a sync attempt to the history. A run without an
// ID gets a new UUID.
func (j *Journal) RecordSyncRun(ctx context.Context, run SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, provider, started_at, finished_at, threads, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Provider, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Threads, run.Error,
	)
	if err != nil {
		return fmt.Errorf("recording sync run %s: %w", run.ID, err)
	}
	return nil
}

// RecentSyncRuns returns up to limit sync runs, newest first.
func (j *Journal) RecentSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []SyncRun
	err := j.db.SelectContext(ctx, &runs, `
		SELECT id, provider, started_at, finished_at, threads, error
		FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	return runs, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
