package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "module not found")
		if err.Error() != "[NOT_FOUND] module not found" {
			t.Errorf("expected [NOT_FOUND] module not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "budget must be positive")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeCancelled, "scan cancelled")
		if !IsCode(err, CodeCancelled) {
			t.Error("expected IsCode to return true for wrapped CodeCancelled")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := New(CodeValidationError, "budget must be positive")
		err = AddContext(err, CtxBudget, -1)
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected DomainError after AddContext")
		}
		if de.Context[CtxBudget] != -1 {
			t.Errorf("expected budget context -1, got %v", de.Context[CtxBudget])
		}
	})
}
