package job

import (
	"context"
	"time"

	"github.com/jaki95/dj-metadata-sync/internal/progress"
)

// Status represents the current state of a sync job
type Status struct {
	ID        string           `json:"id"`
	Request   Request          `json:"request"`
	Status    string           `json:"status"`
	Progress  float64          `json:"progress"`
	Message   string           `json:"message"`
	Error     string           `json:"error,omitempty"`
	Summary   progress.Summary `json:"summary"`
	Events    []progress.Event `json:"events"`
	StartTime time.Time        `json:"startTime"`
	EndTime   *time.Time       `json:"endTime,omitempty"`

	cancelFunc context.CancelFunc
}

// Request represents the request body for starting a sync
type Request struct {
	Command            string   `json:"command" binding:"required,oneof=import export"`
	Adapter            string   `json:"adapter" binding:"required"`
	Overwrite          string   `json:"overwrite,omitempty"`
	Paths              []string `json:"paths" binding:"required,min=1"`
	MaxConcurrentTasks int      `json:"maxConcurrentTasks,omitempty"`
}

// Response represents a page of jobs
type Response struct {
	Jobs       []*Status `json:"jobs"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalJobs  int       `json:"totalJobs"`
	TotalPages int       `json:"totalPages"`
}

// Constants for job status
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

const MaxAllowedConcurrentTasks = 100

// ValidateMaxConcurrentTasks clamps the requested worker count, falling back
// to fallback when none was asked for.
func ValidateMaxConcurrentTasks(maxConcurrentTasks, fallback int) int {
	if maxConcurrentTasks <= 0 {
		maxConcurrentTasks = fallback
	}
	return max(1, min(maxConcurrentTasks, MaxAllowedConcurrentTasks))
}

// Finished reports whether the job reached a final state.
func (s *Status) Finished() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
