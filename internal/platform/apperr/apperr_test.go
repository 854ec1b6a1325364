package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindDuplicateMapping, "already assigned")
	if KindOf(err) != KindDuplicateMapping {
		t.Errorf("expected duplicate kind, got %v", KindOf(err))
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("expected 0 kind for non-domain error")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("create mapping: %w", New(KindPermissionDenied, "not your patient"))
	if !Is(err, KindPermissionDenied) {
		t.Error("expected wrapped error to keep its kind")
	}
}

func TestValidation_FieldDetail(t *testing.T) {
	err := Validation("patient_ids", "some patients not found")
	if err.Fields["patient_ids"] != "some patients not found" {
		t.Errorf("unexpected fields: %v", err.Fields)
	}
	if err.Kind != KindValidation {
		t.Errorf("expected validation kind, got %v", err.Kind)
	}
}

func TestBlocked_ReportsCount(t *testing.T) {
	err := Blocked("patient", 3)
	if err.BlockingCount != 3 {
		t.Errorf("expected blocking count 3, got %d", err.BlockingCount)
	}
	if err.Kind != KindBlockedByActiveRelations {
		t.Errorf("unexpected kind: %v", err.Kind)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(KindValidation, "bad input"), http.StatusBadRequest},
		{New(KindPermissionDenied, "nope"), http.StatusForbidden},
		{New(KindInactiveEntity, "inactive"), http.StatusBadRequest},
		{New(KindDuplicateMapping, "dup"), http.StatusConflict},
		{New(KindNotFound, "missing"), http.StatusNotFound},
		{Blocked("doctor", 1), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindDuplicateMapping.String() != "duplicate_mapping" {
		t.Errorf("unexpected string: %s", KindDuplicateMapping)
	}
	if Kind(99).String() != "unknown" {
		t.Error("expected unknown for out-of-range kind")
	}
}
