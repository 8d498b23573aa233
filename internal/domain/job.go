package domain

import "time"

// Trigger types for an import job.
const (
	TriggerManual    = "manual"
	TriggerSchedule  = "schedule"   // TriggerConfig holds a cron expression
	TriggerFileWatch = "file_watch" // TriggerConfig holds a path to watch
)

// Run statuses recorded on jobs and run logs.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// ImportJob is a saved, re-runnable import: a source plus its config,
// the target collection, and an optional trigger.
type ImportJob struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	Name           string         `json:"name"`
	SourceType     string         `json:"sourceType"`
	SourceCfg      map[string]any `json:"sourceConfig"`
	CollectionName string         `json:"collectionName"` // empty: derived from schema
	SchemaJSON     string         `json:"schemaJson"`     // pinned descriptor, empty: suggest on each run
	DropOnRun      bool           `json:"dropOnRun"`
	TriggerType    string         `json:"triggerType"`
	TriggerConfig  string         `json:"triggerConfig"`
	Enabled        bool           `json:"enabled"`
	LastRunAt      *time.Time     `json:"lastRunAt,omitempty"`
	LastStatus     string         `json:"lastStatus"`
	LastError      string         `json:"lastError"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ImportRunLog records one execution of an import job.
type ImportRunLog struct {
	ID           string     `json:"id"`
	JobID        string     `json:"jobId"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	Status       string     `json:"status"`
	RowsRead     int        `json:"rowsRead"`
	RowsInserted int        `json:"rowsInserted"`
	Error        string     `json:"error"`
}
