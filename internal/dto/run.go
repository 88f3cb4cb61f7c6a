package dto

import "github.com/noah-isme/sma-timetable-generator/internal/models"

// GenerateRunRequest starts an asynchronous generation run. Omitted fields fall back to the configured defaults.
type GenerateRunRequest struct {
	Seed               *int64 `json:"seed"`
	SchoolYear         string `json:"school_year" validate:"omitempty,school_year"`
	SimulationStart    string `json:"simulation_start" validate:"omitempty,datetime=2006-01-02"`
	SimulationDays     *int   `json:"simulation_days" validate:"omitempty,min=0,max=366"`
	AllocationAttempts *int   `json:"allocation_attempts" validate:"omitempty,min=1,max=1000"`
	Import             bool   `json:"import"`
}

// RunListQuery pages through known runs.
type RunListQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=QUEUED RUNNING SUCCEEDED FAILED"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// RunResponse is the API view of a run.
type RunResponse struct {
	Run *models.GenerationRun `json:"run"`
}
