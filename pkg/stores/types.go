package stores

import (
	"context"
	"database/sql"
	"time"
)

// RunStatus represents the status of an apply run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents a single apply run against an instance
type Run struct {
	ID            string     `json:"id"`
	InstanceAlias string     `json:"instance_alias"`
	Status        RunStatus  `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Error         *string    `json:"error,omitempty"`
	Summary       string     `json:"summary"` // JSON blob
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ResourceIdentity records the provider-assigned identity of a
// provisioned resource, keyed by kind and name.
type ResourceIdentity struct {
	Kind         string    `json:"kind"`
	ResourceName string    `json:"resource_name"`
	ResourceID   string    `json:"resource_id"`
	ARN          string    `json:"arn"`
	RunID        string    `json:"run_id"`
	AppliedAt    time.Time `json:"applied_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BotVersionRecord is a persisted immutable snapshot of a compiled bot model.
type BotVersionRecord struct {
	BotName   string    `json:"bot_name"`
	Version   string    `json:"version"`
	Model     string    `json:"model"` // JSON blob
	CreatedAt time.Time `json:"created_at"`
}

// BotAliasRecord binds an alias to a numbered bot version.
type BotAliasRecord struct {
	BotName   string    `json:"bot_name"`
	Alias     string    `json:"alias"`
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, err *string) error
	UpdateRunSummary(ctx context.Context, id, summary string) error
	ListRuns(ctx context.Context, instanceAlias *string, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Resource identity operations
	UpsertIdentity(ctx context.Context, identity *ResourceIdentity) error
	GetIdentity(ctx context.Context, kind, resourceName string) (*ResourceIdentity, error)
	ListIdentities(ctx context.Context, kind *string, limit, offset int) ([]*ResourceIdentity, error)
	DeleteIdentity(ctx context.Context, kind, resourceName string) error

	// Bot version operations
	SaveBotVersion(ctx context.Context, record *BotVersionRecord) error
	GetBotVersion(ctx context.Context, botName, version string) (*BotVersionRecord, error)
	ListBotVersions(ctx context.Context, botName string) ([]*BotVersionRecord, error)
	DeleteBotVersion(ctx context.Context, botName, version string) error

	// Bot alias operations
	BindAlias(ctx context.Context, botName, alias, version string) error
	GetAlias(ctx context.Context, botName, alias string) (*BotAliasRecord, error)
	ListAliases(ctx context.Context, botName string) ([]*BotAliasRecord, error)
	DeleteAlias(ctx context.Context, botName, alias string) error

	// Utility
	HealthCheck(ctx context.Context) error
}
