package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys are a connection-level setting.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations from the embedded migration files.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateRun persists a selection run record
func (s *SQLiteStore) CreateRun(ctx context.Context, run *SelectionRun) error {
	query := `
		INSERT INTO selection_runs (id, trigger_kind, strategy, preferred, success, family, score,
			tried, warnings, error, started_at, completed_at, probe_duration_ms, init_duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Trigger,
		run.Strategy,
		run.Preferred,
		run.Success,
		run.Family,
		run.Score,
		run.Tried,
		run.Warnings,
		run.Error,
		run.StartedAt,
		run.CompletedAt,
		run.ProbeDuration,
		run.InitDuration,
		run.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*SelectionRun, error) {
	query := `
		SELECT id, trigger_kind, strategy, preferred, success, family, score,
			tried, warnings, error, started_at, completed_at, probe_duration_ms, init_duration_ms, created_at
		FROM selection_runs
		WHERE id = ?
	`

	run := &SelectionRun{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Trigger,
		&run.Strategy,
		&run.Preferred,
		&run.Success,
		&run.Family,
		&run.Score,
		&run.Tried,
		&run.Warnings,
		&run.Error,
		&run.StartedAt,
		&run.CompletedAt,
		&run.ProbeDuration,
		&run.InitDuration,
		&run.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns lists runs newest first, with pagination
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*SelectionRun, error) {
	query := `
		SELECT id, trigger_kind, strategy, preferred, success, family, score,
			tried, warnings, error, started_at, completed_at, probe_duration_ms, init_duration_ms, created_at
		FROM selection_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*SelectionRun{}
	for rows.Next() {
		run := &SelectionRun{}
		err := rows.Scan(
			&run.ID,
			&run.Trigger,
			&run.Strategy,
			&run.Preferred,
			&run.Success,
			&run.Family,
			&run.Score,
			&run.Tried,
			&run.Warnings,
			&run.Error,
			&run.StartedAt,
			&run.CompletedAt,
			&run.ProbeDuration,
			&run.InitDuration,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// DeleteRun removes a run and, via cascade, its probe records.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM selection_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// AppendProbes persists the probe outcomes of a run in one transaction.
func (s *SQLiteStore) AppendProbes(ctx context.Context, records []*ProbeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO probe_records (run_id, family, available, reason, device_name, vendor_name,
			driver_version, total_score, meets_requirements, duration_ms, dedicated_memory_mb, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, r := range records {
		_, err := tx.ExecContext(ctx, query,
			r.RunID,
			r.Family,
			r.Available,
			r.Reason,
			r.DeviceName,
			r.VendorName,
			r.DriverVersion,
			r.TotalScore,
			r.MeetsRequirements,
			r.DurationMS,
			r.DedicatedMemoryMB,
			r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append probe record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit probe records: %w", err)
	}

	return nil
}

// ListProbesByRun lists the probe records of a run in insertion order.
func (s *SQLiteStore) ListProbesByRun(ctx context.Context, runID string) ([]*ProbeRecord, error) {
	query := `
		SELECT id, run_id, family, available, reason, device_name, vendor_name,
			driver_version, total_score, meets_requirements, duration_ms, dedicated_memory_mb, created_at
		FROM probe_records
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list probe records: %w", err)
	}
	defer rows.Close()

	records := []*ProbeRecord{}
	for rows.Next() {
		r := &ProbeRecord{}
		err := rows.Scan(
			&r.ID,
			&r.RunID,
			&r.Family,
			&r.Available,
			&r.Reason,
			&r.DeviceName,
			&r.VendorName,
			&r.DriverVersion,
			&r.TotalScore,
			&r.MeetsRequirements,
			&r.DurationMS,
			&r.DedicatedMemoryMB,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan probe record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// AppendEvent persists one lifecycle event
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *EventRecord) error {
	query := `
		INSERT INTO lifecycle_events (run_id, type, family, level, message, data, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.RunID,
		event.Type,
		event.Family,
		event.Level,
		event.Message,
		event.Data,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}

	return nil
}

// ListEvents lists events newest first, optionally filtered by run and level.
func (s *SQLiteStore) ListEvents(ctx context.Context, runID *string, level *string, limit, offset int) ([]*EventRecord, error) {
	query := `
		SELECT id, run_id, type, family, level, message, data, timestamp
		FROM lifecycle_events
		WHERE (? IS NULL OR run_id = ?)
		  AND (? IS NULL OR level = ?)
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, runID, runID, level, level, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*EventRecord{}
	for rows.Next() {
		e := &EventRecord{}
		err := rows.Scan(
			&e.ID,
			&e.RunID,
			&e.Type,
			&e.Family,
			&e.Level,
			&e.Message,
			&e.Data,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// PruneEvents deletes events older than the cutoff and returns the count.
func (s *SQLiteStore) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM lifecycle_events WHERE timestamp < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return result.RowsAffected()
}

// StatsByFamily aggregates persisted run and probe outcomes per family.
func (s *SQLiteStore) StatsByFamily(ctx context.Context) ([]*FamilyStats, error) {
	query := `
		SELECT p.family,
			COALESCE(SUM(CASE WHEN r.success AND r.family = p.family THEN 1 ELSE 0 END), 0) AS wins,
			COUNT(p.id) AS attempts,
			COALESCE(SUM(CASE WHEN p.available THEN 1 ELSE 0 END), 0) AS available
		FROM probe_records p
		LEFT JOIN selection_runs r ON r.id = p.run_id
		GROUP BY p.family
		ORDER BY wins DESC, p.family ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	defer rows.Close()

	stats := []*FamilyStats{}
	for rows.Next() {
		st := &FamilyStats{}
		if err := rows.Scan(&st.Family, &st.Wins, &st.Attempts, &st.Available); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats = append(stats, st)
	}

	return stats, rows.Err()
}

// HealthCheck verifies the database connection is usable
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
