package model

import "time"

// RunStatus is the outcome of a report sync run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusEmpty    RunStatus = "empty"
	RunStatusFailed   RunStatus = "failed"
)

// ReportConfig selects one report shape to retrieve.
type ReportConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	ListBy  string `yaml:"list_by" mapstructure:"list_by"`
	BreakBy string `yaml:"break_by" mapstructure:"break_by"`
}

// SyncRun summarizes one report retrieval and persistence pass.
type SyncRun struct {
	ID            string     `json:"id"`
	Report        string     `json:"report"`
	Range         DateRange  `json:"-"`
	Strategy      string     `json:"strategy"`
	WindowsTotal  int        `json:"windows_total"`
	WindowsFailed int        `json:"windows_failed"`
	RowsParsed    int        `json:"rows_parsed"`
	RowsDropped   int        `json:"rows_dropped"`
	RowsWritten   int64      `json:"rows_written"`
	Status        RunStatus  `json:"status"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}
