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
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds the configuration for the SQLite store
type Config struct {
	// Path is the file path to the SQLite database
	Path string
	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int
	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int
	// ConnMaxLifetime is the maximum lifetime of a connection
	ConnMaxLifetime time.Duration
}

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	config Config
	db     *sql.DB
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(config Config) (*SQLiteStore, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 25
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{config: config}, nil
}

// Init initializes the database connection
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate",
		s.config.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.config.MaxOpenConns)
	db.SetMaxIdleConns(s.config.MaxIdleConns)
	db.SetConnMaxLifetime(s.config.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateRun creates a new run record
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, instance_alias, status, started_at, completed_at, error, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.InstanceAlias, run.Status, run.StartedAt,
		run.CompletedAt, run.Error, run.Summary, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, instance_alias, status, started_at, completed_at, error, summary, created_at, updated_at
		FROM runs WHERE id = ?
	`
	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.InstanceAlias, &run.Status, &run.StartedAt,
		&run.CompletedAt, &run.Error, &run.Summary, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// UpdateRunStatus updates the status of a run
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id string, status RunStatus, errMsg *string) error {
	now := time.Now()
	var completedAt *time.Time
	if status == RunStatusCompleted || status == RunStatusFailed || status == RunStatusCancelled {
		completedAt = &now
	}

	query := `
		UPDATE runs SET status = ?, error = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, status, errMsg, completedAt, now, id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
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

// UpdateRunSummary replaces the summary blob of a run
func (s *SQLiteStore) UpdateRunSummary(ctx context.Context, id, summary string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE runs SET summary = ?, updated_at = ? WHERE id = ?", summary, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update run summary: %w", err)
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

// ListRuns lists runs, newest first, optionally filtered by instance alias
func (s *SQLiteStore) ListRuns(ctx context.Context, instanceAlias *string, limit, offset int) ([]*Run, error) {
	query := `
		SELECT id, instance_alias, status, started_at, completed_at, error, summary, created_at, updated_at
		FROM runs
	`
	args := []interface{}{}
	if instanceAlias != nil {
		query += " WHERE instance_alias = ?"
		args = append(args, *instanceAlias)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID, &run.InstanceAlias, &run.Status, &run.StartedAt,
			&run.CompletedAt, &run.Error, &run.Summary, &run.CreatedAt, &run.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun deletes a run by ID
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
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

// UpsertIdentity creates or updates a resource identity
func (s *SQLiteStore) UpsertIdentity(ctx context.Context, identity *ResourceIdentity) error {
	query := `
		INSERT INTO resource_identities (kind, resource_name, resource_id, arn, run_id, applied_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, resource_name) DO UPDATE SET
			resource_id = excluded.resource_id,
			arn = excluded.arn,
			run_id = excluded.run_id,
			applied_at = excluded.applied_at,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		identity.Kind, identity.ResourceName, identity.ResourceID, identity.ARN,
		identity.RunID, identity.AppliedAt, identity.CreatedAt, identity.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert identity: %w", err)
	}
	return nil
}

// GetIdentity retrieves a resource identity by kind and name
func (s *SQLiteStore) GetIdentity(ctx context.Context, kind, resourceName string) (*ResourceIdentity, error) {
	query := `
		SELECT kind, resource_name, resource_id, arn, run_id, applied_at, created_at, updated_at
		FROM resource_identities WHERE kind = ? AND resource_name = ?
	`
	identity := &ResourceIdentity{}
	err := s.db.QueryRowContext(ctx, query, kind, resourceName).Scan(
		&identity.Kind, &identity.ResourceName, &identity.ResourceID, &identity.ARN,
		&identity.RunID, &identity.AppliedAt, &identity.CreatedAt, &identity.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("identity not found: %s/%s", kind, resourceName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return identity, nil
}

// ListIdentities lists resource identities, optionally filtered by kind
func (s *SQLiteStore) ListIdentities(ctx context.Context, kind *string, limit, offset int) ([]*ResourceIdentity, error) {
	query := `
		SELECT kind, resource_name, resource_id, arn, run_id, applied_at, created_at, updated_at
		FROM resource_identities
	`
	args := []interface{}{}
	if kind != nil {
		query += " WHERE kind = ?"
		args = append(args, *kind)
	}
	query += " ORDER BY kind, resource_name LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var identities []*ResourceIdentity
	for rows.Next() {
		identity := &ResourceIdentity{}
		err := rows.Scan(
			&identity.Kind, &identity.ResourceName, &identity.ResourceID, &identity.ARN,
			&identity.RunID, &identity.AppliedAt, &identity.CreatedAt, &identity.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	return identities, rows.Err()
}

// DeleteIdentity deletes a resource identity
func (s *SQLiteStore) DeleteIdentity(ctx context.Context, kind, resourceName string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM resource_identities WHERE kind = ? AND resource_name = ?", kind, resourceName)
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("identity not found: %s/%s", kind, resourceName)
	}
	return nil
}

// SaveBotVersion persists an immutable bot version snapshot
func (s *SQLiteStore) SaveBotVersion(ctx context.Context, record *BotVersionRecord) error {
	query := `
		INSERT INTO bot_versions (bot_name, version, model, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.BotName, record.Version, record.Model, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save bot version: %w", err)
	}
	return nil
}

// GetBotVersion retrieves a bot version snapshot
func (s *SQLiteStore) GetBotVersion(ctx context.Context, botName, version string) (*BotVersionRecord, error) {
	query := `
		SELECT bot_name, version, model, created_at
		FROM bot_versions WHERE bot_name = ? AND version = ?
	`
	record := &BotVersionRecord{}
	err := s.db.QueryRowContext(ctx, query, botName, version).Scan(
		&record.BotName, &record.Version, &record.Model, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bot version not found: %s/%s", botName, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot version: %w", err)
	}
	return record, nil
}

// ListBotVersions lists all versions of a bot in numeric order
func (s *SQLiteStore) ListBotVersions(ctx context.Context, botName string) ([]*BotVersionRecord, error) {
	query := `
		SELECT bot_name, version, model, created_at
		FROM bot_versions WHERE bot_name = ?
		ORDER BY CAST(version AS INTEGER)
	`
	rows, err := s.db.QueryContext(ctx, query, botName)
	if err != nil {
		return nil, fmt.Errorf("failed to list bot versions: %w", err)
	}
	defer rows.Close()

	var records []*BotVersionRecord
	for rows.Next() {
		record := &BotVersionRecord{}
		err := rows.Scan(&record.BotName, &record.Version, &record.Model, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bot version: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteBotVersion deletes a bot version unless an alias still targets it
func (s *SQLiteStore) DeleteBotVersion(ctx context.Context, botName, version string) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var aliasCount int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bot_aliases WHERE bot_name = ? AND version = ?",
		botName, version).Scan(&aliasCount)
	if err != nil {
		return fmt.Errorf("failed to check aliases: %w", err)
	}
	if aliasCount > 0 {
		return fmt.Errorf("bot version %s/%s is still targeted by %d alias(es)", botName, version, aliasCount)
	}

	result, err := tx.ExecContext(ctx,
		"DELETE FROM bot_versions WHERE bot_name = ? AND version = ?", botName, version)
	if err != nil {
		return fmt.Errorf("failed to delete bot version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bot version not found: %s/%s", botName, version)
	}

	return tx.Commit()
}

// BindAlias atomically points an alias at a numbered version. The version
// must exist; a failed bind leaves any previous binding untouched.
func (s *SQLiteStore) BindAlias(ctx context.Context, botName, alias, version string) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bot_versions WHERE bot_name = ? AND version = ?",
		botName, version).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("bot version not found: %s/%s", botName, version)
	}

	query := `
		INSERT INTO bot_aliases (bot_name, alias, version, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bot_name, alias) DO UPDATE SET
			version = excluded.version,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query, botName, alias, version, time.Now())
	if err != nil {
		return fmt.Errorf("failed to bind alias: %w", err)
	}

	return tx.Commit()
}

// GetAlias retrieves an alias binding
func (s *SQLiteStore) GetAlias(ctx context.Context, botName, alias string) (*BotAliasRecord, error) {
	query := `
		SELECT bot_name, alias, version, updated_at
		FROM bot_aliases WHERE bot_name = ? AND alias = ?
	`
	record := &BotAliasRecord{}
	err := s.db.QueryRowContext(ctx, query, botName, alias).Scan(
		&record.BotName, &record.Alias, &record.Version, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alias not found: %s/%s", botName, alias)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alias: %w", err)
	}
	return record, nil
}

// ListAliases lists all alias bindings for a bot
func (s *SQLiteStore) ListAliases(ctx context.Context, botName string) ([]*BotAliasRecord, error) {
	query := `
		SELECT bot_name, alias, version, updated_at
		FROM bot_aliases WHERE bot_name = ?
		ORDER BY alias
	`
	rows, err := s.db.QueryContext(ctx, query, botName)
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}
	defer rows.Close()

	var records []*BotAliasRecord
	for rows.Next() {
		record := &BotAliasRecord{}
		err := rows.Scan(&record.BotName, &record.Alias, &record.Version, &record.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteAlias removes an alias binding
func (s *SQLiteStore) DeleteAlias(ctx context.Context, botName, alias string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM bot_aliases WHERE bot_name = ? AND alias = ?", botName, alias)
	if err != nil {
		return fmt.Errorf("failed to delete alias: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alias not found: %s/%s", botName, alias)
	}
	return nil
}

// HealthCheck verifies the database is reachable
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
