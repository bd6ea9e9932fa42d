package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryValidation, "proposal too large").
			WithContext("section", "Intro").
			Build()

		if err.Category() != CategoryValidation {
			t.Errorf("expected category %s, got %s", CategoryValidation, err.Category())
		}
		if err.Severity() != SeverityError {
			t.Errorf("expected default severity %s, got %s", SeverityError, err.Severity())
		}
		section, ok := err.Context().GetString("section")
		if !ok || section != "Intro" {
			t.Errorf("expected context section=Intro, got %v", section)
		}
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("apply: %w", BusyError("regeneration pending").Build())

		if !IsClassified(err) {
			t.Fatal("expected wrapped error to be classified")
		}
		if !HasCategory(err, CategoryBusy) {
			t.Error("expected busy category")
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("expected plain errors to report internal category")
		}
	})

	t.Run("Channel errors are fatal and not retryable", func(t *testing.T) {
		err := ChannelError("connection closed").Build()
		if !err.IsFatal() {
			t.Error("expected channel error to be fatal")
		}
		if err.CanRetry() {
			t.Error("expected channel error to not be retryable")
		}
	})
}

func TestErrorBuilder_WrapAndIs(t *testing.T) {
	cause := errors.New("socket reset")
	err := WrapError(cause, CategoryChannel, "receive failed").
		WithContext("session_id", "s1").
		Build()

	if !errors.Is(err, cause) {
		t.Error("expected error to wrap cause")
	}

	sentinel := NewError(CategoryChannel, "receive failed").Build()
	if !errors.Is(err, sentinel) {
		t.Error("expected category+message equality")
	}
}

func TestClassifiedError_WithContextCopies(t *testing.T) {
	base := NotFoundError("section not found").Build()
	derived := base.WithContext("section", "Intro")

	if _, ok := base.Context().Get("section"); ok {
		t.Error("expected base context to stay untouched")
	}
	if v, _ := derived.Context().GetString("section"); v != "Intro" {
		t.Errorf("expected derived context, got %q", v)
	}
}

func TestErrorContext_Merge(t *testing.T) {
	a := ErrorContext{"a": 1, "b": 1}
	b := ErrorContext{"b": 2}
	merged := a.Merge(b)
	if merged["a"] != 1 || merged["b"] != 2 {
		t.Errorf("unexpected merge result: %v", merged)
	}
	var empty ErrorContext
	if empty.Merge(b)["b"] != 2 {
		t.Error("expected nil receiver merge to return other")
	}
}
