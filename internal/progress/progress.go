package progress

import (
	"encoding/json"
	"reflect"
	"sync"
	"time"
)

// Stage represents the current stage of a sync run
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageReading      Stage = "reading"
	StageSyncing      Stage = "syncing"
	StageSaving       Stage = "saving"
	StageComplete     Stage = "complete"
	StageError        Stage = "error"
)

// Outcome is what happened to a single track
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Event represents a progress event
type Event struct {
	Stage        Stage         `json:"stage"`
	Progress     float64       `json:"progress"`
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
	TrackDetails *TrackDetails `json:"trackDetails,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// TrackDetails describes the track that was just processed
type TrackDetails struct {
	TotalTracks     int     `json:"totalTracks"`
	ProcessedTracks int     `json:"processedTracks"`
	CurrentTrack    string  `json:"currentTrack"`
	Outcome         Outcome `json:"outcome"`
}

// Summary counts track outcomes of a run
type Summary struct {
	Total     int `json:"total"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// ProgressTracker manages progress tracking. It is safe for concurrent use.
type ProgressTracker struct {
	mu           sync.RWMutex
	stage        Stage
	progress     float64
	message      string
	trackDetails *TrackDetails
	summary      Summary
	error        error
	listeners    []func(Event)
}

// NewProgressTracker creates a new ProgressTracker instance
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		stage:     StageInitializing,
		listeners: make([]func(Event), 0),
	}
}

// AddListener adds a new progress event listener
func (pt *ProgressTracker) AddListener(listener func(Event)) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.listeners = append(pt.listeners, listener)
}

// RemoveListener removes a progress event listener
func (pt *ProgressTracker) RemoveListener(listener func(Event)) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	listenerPtr := reflect.ValueOf(listener).Pointer()
	for i := range pt.listeners {
		if reflect.ValueOf(pt.listeners[i]).Pointer() == listenerPtr {
			pt.listeners = append(pt.listeners[:i], pt.listeners[i+1:]...)
			break
		}
	}
}

// UpdateProgress updates the stage and notifies all listeners
func (pt *ProgressTracker) UpdateProgress(stage Stage, progress float64, message string) {
	pt.mu.Lock()
	pt.stage = stage
	pt.progress = progress
	pt.message = message
	pt.mu.Unlock()

	pt.notifyListeners(Event{
		Stage:     stage,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Start begins the syncing stage for total tracks. The event it sends
// carries track details without an outcome.
func (pt *ProgressTracker) Start(total int) {
	pt.mu.Lock()
	pt.stage = StageSyncing
	pt.progress = 0
	pt.message = "Syncing tracks..."
	pt.summary = Summary{Total: total}
	pt.trackDetails = &TrackDetails{TotalTracks: total}
	event := Event{
		Stage:        pt.stage,
		Progress:     pt.progress,
		Message:      pt.message,
		Timestamp:    time.Now(),
		TrackDetails: pt.trackDetails,
	}
	pt.mu.Unlock()

	pt.notifyListeners(event)
}

// TrackDone records the outcome of one track and notifies all listeners
func (pt *ProgressTracker) TrackDone(location string, outcome Outcome) {
	pt.mu.Lock()
	switch outcome {
	case OutcomeUpdated:
		pt.summary.Updated++
	case OutcomeUnchanged:
		pt.summary.Unchanged++
	case OutcomeSkipped:
		pt.summary.Skipped++
	case OutcomeFailed:
		pt.summary.Failed++
	}
	processed := pt.summary.Updated + pt.summary.Unchanged + pt.summary.Skipped + pt.summary.Failed
	if total := pt.summary.Total; total > 0 {
		pt.progress = 100 * float64(processed) / float64(total)
	}
	pt.trackDetails = &TrackDetails{
		TotalTracks:     pt.summary.Total,
		ProcessedTracks: processed,
		CurrentTrack:    location,
		Outcome:         outcome,
	}
	event := Event{
		Stage:        pt.stage,
		Progress:     pt.progress,
		Message:      pt.message,
		Timestamp:    time.Now(),
		TrackDetails: pt.trackDetails,
	}
	pt.mu.Unlock()

	pt.notifyListeners(event)
}

// Summary returns the outcome counts so far
func (pt *ProgressTracker) Summary() Summary {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.summary
}

// SetError sets an error state and notifies all listeners
func (pt *ProgressTracker) SetError(err error) {
	pt.mu.Lock()
	pt.stage = StageError
	pt.error = err
	progress := pt.progress
	pt.mu.Unlock()

	pt.notifyListeners(Event{
		Stage:     StageError,
		Progress:  progress,
		Message:   err.Error(),
		Timestamp: time.Now(),
		Error:     err.Error(),
	})
}

// notifyListeners sends an event to all registered listeners
func (pt *ProgressTracker) notifyListeners(event Event) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	for _, listener := range pt.listeners {
		listener(event)
	}
}

// GetCurrentState returns the current progress state
func (pt *ProgressTracker) GetCurrentState() Event {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	event := Event{
		Stage:        pt.stage,
		Progress:     pt.progress,
		Message:      pt.message,
		Timestamp:    time.Now(),
		TrackDetails: pt.trackDetails,
	}
	if pt.error != nil {
		event.Error = pt.error.Error()
	}
	return event
}

// MarshalJSON implements json.Marshaler for Event
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Alias:     (*Alias)(&e),
	})
}

// UnmarshalJSON implements json.Unmarshaler for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, aux.Timestamp)
	if err != nil {
		return err
	}
	e.Timestamp = t
	return nil
}
