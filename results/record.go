// Package results stores the status and outcome of submitted test runs,
// keyed by session id.
package results

import (
	"errors"
	"time"

	"github.com/hairizuan-noorazman/testpilot/testrun"
)

var (
	ErrNotFound          = errors.New("result not found")
	ErrNilRecord         = errors.New("record is required")
	ErrInvalidSessionID  = errors.New("session_id is required")
	ErrInvalidStatus     = errors.New("invalid run status")
	ErrRunAlreadyStarted = errors.New("run already started")
	ErrRunNotRunning     = errors.New("run is not running")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted:
		return true
	}
	return false
}

// Record tracks one submitted run. Result is set once the run completes.
type Record struct {
	SessionID   string              `json:"session_id"`
	Status      Status              `json:"status"`
	Result      *testrun.TestResult `json:"result,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// NewRecord returns a pending record for sessionID.
func NewRecord(sessionID string) *Record {
	return &Record{
		SessionID: sessionID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Record) Validate() error {
	if r.SessionID == "" {
		return ErrInvalidSessionID
	}
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Start marks the run as running.
func (r *Record) Start() error {
	if r.Status != StatusPending {
		return ErrRunAlreadyStarted
	}
	now := time.Now().UTC()
	r.Status = StatusRunning
	r.StartedAt = &now
	return nil
}

// Complete marks the run as finished with result.
func (r *Record) Complete(result *testrun.TestResult) error {
	if r.Status != StatusRunning {
		return ErrRunNotRunning
	}
	now := time.Now().UTC()
	r.Status = StatusCompleted
	r.CompletedAt = &now
	r.Result = result
	return nil
}

// Duration is the time between start and completion, zero while unfinished.
func (r *Record) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

func (r *Record) clone() *Record {
	c := *r
	if r.Result != nil {
		res := *r.Result
		c.Result = &res
	}
	return &c
}
