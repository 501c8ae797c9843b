package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrNoPlan     = errors.New("no plan available")
	ErrNoCode     = errors.New("no generated code available")
	ErrNoResult   = errors.New("no execution result available")
	ErrStageCrash = errors.New("stage handler panicked")
)

// ErrorKind classifies failures recorded during a run.
type ErrorKind string

const (
	KindPlanning        ErrorKind = "planning"
	KindGeneration      ErrorKind = "generation"
	KindExecution       ErrorKind = "execution"
	KindHealing         ErrorKind = "healing"
	KindValidation      ErrorKind = "validation"
	KindAnalysis        ErrorKind = "analysis"
	KindSessionProvider ErrorKind = "session_provider"
)

func (k ErrorKind) IsValid() bool {
	switch k {
	case KindPlanning, KindGeneration, KindExecution, KindHealing,
		KindValidation, KindAnalysis, KindSessionProvider:
		return true
	}
	return false
}

// Fatal reports whether a failure of this kind ends the run with an error.
func (k ErrorKind) Fatal() bool {
	return k == KindPlanning
}

// StageError is a failure recorded by a state handler.
type StageError struct {
	Kind  ErrorKind
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(kind ErrorKind, state State, err error) *StageError {
	return &StageError{Kind: kind, State: state, Err: err}
}
