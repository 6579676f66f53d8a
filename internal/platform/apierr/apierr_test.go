package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_IsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create flashcard: %w", NotFound("flashcard_not_found", "Flashcard não encontrado."))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is to match ErrNotFound")
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatalf("did not expect ErrForbidden match")
	}
	var ae *Error
	if !errors.As(err, &ae) || ae.Status != http.StatusNotFound || ae.Code != "flashcard_not_found" {
		t.Fatalf("unexpected api error: %#v", ae)
	}
}

func TestNew_DerivesKindFromStatus(t *testing.T) {
	if e := New(http.StatusBadRequest, "x", errors.New("bad")); !errors.Is(e, ErrValidation) {
		t.Fatalf("400 should be a validation error")
	}
	if e := New(http.StatusTeapot, "x", nil); e.Kind != nil {
		t.Fatalf("unexpected kind for 418: %v", e.Kind)
	}
}

func TestGenerationParse_Status(t *testing.T) {
	e := GenerationParse(errors.New("no array"))
	if e.Status != http.StatusBadGateway || !errors.Is(e, ErrGenerationParse) {
		t.Fatalf("unexpected: %#v", e)
	}
	if e.Error() != "no array" {
		t.Fatalf("unexpected message %q", e.Error())
	}
}
