package results

import (
	"context"
)

// Store persists run records. Put replaces any record stored under the same
// session id.
type Store interface {
	Put(ctx context.Context, sessionID string, r *Record) error
	Get(ctx context.Context, sessionID string) (*Record, error)
}

func prepare(sessionID string, r *Record) error {
	if r == nil {
		return ErrNilRecord
	}
	if r.SessionID == "" {
		r.SessionID = sessionID
	}
	if r.SessionID != sessionID {
		return ErrInvalidSessionID
	}
	return r.Validate()
}
