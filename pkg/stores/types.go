package stores

import (
	"context"
	"time"
)

// RunTrigger distinguishes what started a selection run.
type RunTrigger string

const (
	RunTriggerInitialize RunTrigger = "initialize"
	RunTriggerHotReload  RunTrigger = "hot-reload"
)

// SelectionRun is the persisted record of one full selection attempt.
type SelectionRun struct {
	ID            string     `json:"id"`
	Trigger       RunTrigger `json:"trigger"`
	Strategy      string     `json:"strategy"`
	Preferred     *string    `json:"preferred,omitempty"`
	Success       bool       `json:"success"`
	Family        *string    `json:"family,omitempty"`
	Score         *float64   `json:"score,omitempty"`
	Tried         string     `json:"tried"`    // JSON array of family names
	Warnings      string     `json:"warnings"` // JSON array of strings
	Error         *string    `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   time.Time  `json:"completed_at"`
	ProbeDuration int64      `json:"probe_duration_ms"`
	InitDuration  int64      `json:"init_duration_ms"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ProbeRecord is the persisted outcome of probing one family within a run.
type ProbeRecord struct {
	ID                int64     `json:"id"`
	RunID             string    `json:"run_id"`
	Family            string    `json:"family"`
	Available         bool      `json:"available"`
	Reason            *string   `json:"reason,omitempty"`
	DeviceName        *string   `json:"device_name,omitempty"`
	VendorName        *string   `json:"vendor_name,omitempty"`
	DriverVersion     *string   `json:"driver_version,omitempty"`
	TotalScore        *float64  `json:"total_score,omitempty"`
	MeetsRequirements bool      `json:"meets_requirements"`
	DurationMS        int64     `json:"duration_ms"`
	DedicatedMemoryMB int64     `json:"dedicated_memory_mb"`
	CreatedAt         time.Time `json:"created_at"`
}

// EventRecord is one persisted lifecycle event, append-only.
type EventRecord struct {
	ID        int64     `json:"id"`
	RunID     *string   `json:"run_id,omitempty"`
	Type      string    `json:"type"`
	Family    *string   `json:"family,omitempty"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Data      *string   `json:"data,omitempty"` // JSON blob
	Timestamp time.Time `json:"timestamp"`
}

// FamilyStats aggregates persisted run outcomes per family.
type FamilyStats struct {
	Family    string `json:"family"`
	Wins      int64  `json:"wins"`
	Attempts  int64  `json:"attempts"`
	Available int64  `json:"available"`
}

// Store defines the interface for the selection history persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	CreateRun(ctx context.Context, run *SelectionRun) error
	GetRun(ctx context.Context, id string) (*SelectionRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*SelectionRun, error)
	DeleteRun(ctx context.Context, id string) error

	// Probe operations
	AppendProbes(ctx context.Context, records []*ProbeRecord) error
	ListProbesByRun(ctx context.Context, runID string) ([]*ProbeRecord, error)

	// Event operations
	AppendEvent(ctx context.Context, event *EventRecord) error
	ListEvents(ctx context.Context, runID *string, level *string, limit, offset int) ([]*EventRecord, error)
	PruneEvents(ctx context.Context, before time.Time) (int64, error)

	// Aggregates
	StatsByFamily(ctx context.Context) ([]*FamilyStats, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
