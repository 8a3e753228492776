package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

func TestSlugConflictError_Error(t *testing.T) {
	err := &domain.SlugConflictError{Slug: "acme"}
	want := `slug "acme" is already in use`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConfigurationError_Error(t *testing.T) {
	err := &domain.ConfigurationError{Field: "template.path", Reason: "file not found"}
	want := "configuration: template.path: file not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestStepError_Unwrap(t *testing.T) {
	err := domain.NewStepError(domain.KindUpload, domain.ErrObjectExists)
	wrapped := fmt.Errorf("worker w-1: %w", err)

	if !errors.Is(wrapped, domain.ErrObjectExists) {
		t.Error("expected errors.Is to find ErrObjectExists")
	}
	if got := domain.KindOf(wrapped); got != domain.KindUpload {
		t.Errorf("KindOf = %q, want %q", got, domain.KindUpload)
	}
	if got := err.Error(); got != "upload: object already exists" {
		t.Errorf("Error() = %q", got)
	}
}

func TestNewStepError_Nil(t *testing.T) {
	if err := domain.NewStepError(domain.KindRender, nil); err != nil {
		t.Errorf("NewStepError(nil) = %v, want nil", err)
	}
	if got := domain.KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestTransitionError_Error(t *testing.T) {
	err := &domain.TransitionError{
		Event:   domain.EventUpload,
		Current: domain.StagePending,
	}
	want := `event "upload" is not valid from stage "pending"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
