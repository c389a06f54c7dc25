package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := NotFound("app %d not found", 7)
	wrapped := fmt.Errorf("loading app: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf = %q, want %q", got, KindNotFound)
	}
	if got := Code(wrapped); got != "NOT_FOUND_ERROR" {
		t.Errorf("Code = %q, want NOT_FOUND_ERROR", got)
	}
	if got := Message(wrapped); got != "app 7 not found" {
		t.Errorf("Message = %q, want %q", got, "app 7 not found")
	}
}

func TestKindOf_UntypedIsSystem(t *testing.T) {
	err := errors.New("boom")
	if got := KindOf(err); got != KindSystem {
		t.Errorf("KindOf = %q, want %q", got, KindSystem)
	}
	if got := Code(err); got != "SYSTEM_ERROR" {
		t.Errorf("Code = %q, want SYSTEM_ERROR", got)
	}
	if got := Message(err); got != "boom" {
		t.Errorf("Message = %q, want boom", got)
	}
}

func TestOperation_UnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Operation("creating version", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Error() != "creating version: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !Is(err, KindOperation) {
		t.Error("Is(KindOperation) = false, want true")
	}
	if Is(err, KindValidation) {
		t.Error("Is(KindValidation) = true, want false")
	}
}
