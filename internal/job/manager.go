package job

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaki95/dj-metadata-sync/internal/progress"
)

// Manager keeps track of sync jobs. It is safe for concurrent use; every
// Status it returns is a copy.
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*Status
}

// NewManager creates a new job manager
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Status),
	}
}

// CreateJob registers a pending job. The returned context is cancelled by
// CancelJob.
func (m *Manager) CreateJob(req Request) (*Status, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())

	job := &Status{
		ID:         uuid.NewString(),
		Request:    req,
		Status:     StatusPending,
		Message:    "Job created",
		Events:     []progress.Event{},
		StartTime:  time.Now(),
		cancelFunc: cancel,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job.snapshot(), ctx
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return job.snapshot(), nil
}

// Record appends a progress event to a running job.
func (m *Manager) Record(jobID string, event progress.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || job.Finished() {
		return
	}
	job.Status = StatusProcessing
	job.Progress = event.Progress
	job.Message = event.Message
	job.Events = append(job.Events, event)
}

// Finish stores the outcome of a job. A cancelled job stays cancelled.
func (m *Manager) Finish(jobID string, summary progress.Summary, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	job.Summary = summary
	// Release the job context once the sync is over.
	if job.cancelFunc != nil {
		job.cancelFunc()
	}
	if job.Status == StatusCancelled {
		return
	}

	endTime := time.Now()
	job.EndTime = &endTime
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		job.Message = "Sync failed"
		return
	}
	job.Status = StatusCompleted
	job.Progress = 100
	job.Message = "Sync complete"
}

// CancelJob cancels a job
func (m *Manager) CancelJob(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}

	if job.Finished() {
		return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	job.Message = "Job cancelled by user"
	endTime := time.Now()
	job.EndTime = &endTime

	return nil
}

// ListJobs lists all jobs with pagination, oldest first
func (m *Manager) ListJobs(page, pageSize int) *Response {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	m.mu.RLock()
	jobs := make([]*Status, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.snapshot())
	}
	m.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b *Status) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	start := min((page-1)*pageSize, len(jobs))
	end := min(start+pageSize, len(jobs))

	return &Response{
		Jobs:       jobs[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalJobs:  len(jobs),
		TotalPages: (len(jobs) + pageSize - 1) / pageSize,
	}
}

func (s *Status) snapshot() *Status {
	c := *s
	c.Events = slices.Clone(s.Events)
	c.Request.Paths = slices.Clone(s.Request.Paths)
	return &c
}

