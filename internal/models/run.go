package models

import "time"

// RunStatus captures the lifecycle of an asynchronous generation run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// Finished reports whether the run reached a terminal state.
func (s RunStatus) Finished() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// RunParams are the inputs of one generation run.
type RunParams struct {
	Seed               int64     `json:"seed"`
	SchoolYear         string    `json:"school_year"`
	SimulationStart    time.Time `json:"simulation_start"`
	SimulationDays     int       `json:"simulation_days"`
	AllocationAttempts int       `json:"allocation_attempts"`
	Import             bool      `json:"import"`
}

// RunSummary holds the counters of a finished run.
type RunSummary struct {
	Classes           int `json:"classes"`
	Courses           int `json:"courses"`
	Teachers          int `json:"teachers"`
	Rooms             int `json:"rooms"`
	Students          int `json:"students"`
	Enrollments       int `json:"enrollments"`
	ScheduleEntries   int `json:"schedule_entries"`
	Occurrences       int `json:"occurrences"`
	AttendanceRecords int `json:"attendance_records"`
	SlotShortfall     int `json:"slot_shortfall"`
	SplitPairs        int `json:"split_pairs"`
	UnroomedCourses   int `json:"unroomed_courses"`
	Violations        int `json:"violations"`
}

// RunArtifact is a stored export file of a run.
type RunArtifact struct {
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerationRun is the persisted metadata of one run.
type GenerationRun struct {
	ID         string        `json:"id"`
	Status     RunStatus     `json:"status"`
	Params     RunParams     `json:"params"`
	Summary    *RunSummary   `json:"summary,omitempty"`
	Artifacts  []RunArtifact `json:"artifacts,omitempty"`
	Error      string        `json:"error,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Pagination describes a page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
