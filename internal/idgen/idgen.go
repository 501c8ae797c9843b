package idgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewSessionID generates a new random session identifier (UUID v4).
func NewSessionID() string {
	return uuid.New().String()
}

// NewPlanID returns a plan identifier derived from the creation time.
func NewPlanID(now time.Time) string {
	return fmt.Sprintf("test_%d", now.UnixNano())
}

// NewResultID returns a result identifier for an execution attempt.
func NewResultID(sessionID string) string {
	if sessionID == "" {
		sessionID = "unknown"
	}
	return fmt.Sprintf("result_%s_%s", sessionID, shortID())
}

// ErrorResultID returns the identifier used for results synthesized after a failure.
func ErrorResultID(sessionID string) string {
	if sessionID == "" {
		sessionID = "unknown"
	}
	return "error_" + sessionID
}

// IsValidSessionID checks if a string is a valid UUID format
func IsValidSessionID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
