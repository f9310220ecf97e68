package model

import "time"

// RunStatus represents the current state of a profiling run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusLoading   RunStatus = "loading"
	RunStatusProfiling RunStatus = "profiling"
	RunStatusExporting RunStatus = "exporting"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// RunMode identifies which profile a run produced.
type RunMode string

const (
	RunModeVillages  RunMode = "villages"
	RunModeCountries RunMode = "countries"
)

// Run represents a single profiling invocation.
type Run struct {
	ID        string         `json:"id"`
	Mode      RunMode        `json:"mode"`
	Params    map[string]any `json:"params"`
	Status    RunStatus      `json:"status"`
	Summary   *RunSummary    `json:"summary,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RunSummary holds the audit counters of a finished run.
type RunSummary struct {
	Rows          int            `json:"rows"`
	Entities      int            `json:"entities"`
	Nulled        int            `json:"nulled"`
	NulledByLayer map[string]int `json:"nulled_by_layer,omitempty"`
	UnknownCodes  map[string]int `json:"unknown_codes,omitempty"`
	Unresolved    int            `json:"unresolved"`
	OutputPath    string         `json:"output_path,omitempty"`
	DurationMs    int64          `json:"duration_ms"`
}

// IsTerminal reports whether the status is final.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}
