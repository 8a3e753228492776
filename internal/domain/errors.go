package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrObjectExists      = errors.New("object already exists")
	ErrNoMatchingWorkers = errors.New("no matching workers")
	ErrNoEntries         = errors.New("no time entries in period")
	ErrEmptyWindow       = errors.New("report window is empty")
)

// SlugConflictError is returned when a tenant slug is already in use.
type SlugConflictError struct {
	Slug string
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("slug %q is already in use", e.Slug)
}

// ConfigurationError aborts a run before any tenant is processed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// StepKind classifies a failed pipeline step.
type StepKind string

const (
	KindDataFetch   StepKind = "data_fetch"
	KindRender      StepKind = "render"
	KindRasterize   StepKind = "rasterize"
	KindUpload      StepKind = "upload"
	KindStateUpdate StepKind = "state_update"
)

// StepError marks the failure of one pipeline step. The affected worker or
// tenant is skipped; siblings continue.
type StepError struct {
	Kind StepKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NewStepError wraps err with kind. A nil err stays nil.
func NewStepError(kind StepKind, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Kind: kind, Err: err}
}

// KindOf returns the step kind of err, or "" when err is not a StepError.
func KindOf(err error) StepKind {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind
	}
	return ""
}

// TransitionError is returned when an artifact stage transition is not allowed.
type TransitionError struct {
	Event   StageEvent
	Current Stage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from stage %q", e.Event, e.Current)
}
