package errors

import (
	"fmt"
	"testing"
)

func TestSparkError_Error(t *testing.T) {
	err := &SparkError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "list not found: warmup",
	}

	expected := "NOT_FOUND: list not found: warmup"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("text is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "text is required" {
		t.Errorf("Message = %q, want %q", err.Message, "text is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("list", "warmup")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Message != "list not found: warmup" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["identifier"] != "warmup" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "warmup")
	}
	if err.Details["kind"] != "list" {
		t.Errorf("Details[kind] = %v, want %q", err.Details["kind"], "list")
	}
}

func TestNewDuplicatePrompt(t *testing.T) {
	err := NewDuplicatePrompt("Dance your stretches", 3, 9)

	if err.Code != ErrDuplicatePrompt {
		t.Errorf("Code = %q, want %q", err.Code, ErrDuplicatePrompt)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Details["first_index"] != 3 || err.Details["second_index"] != 9 {
		t.Errorf("Details = %v, want indexes 3 and 9", err.Details)
	}
}

func TestNewInvalidCatalog(t *testing.T) {
	err := NewInvalidCatalog("prompts.yaml", fmt.Errorf("bad indent"))

	if err.Code != ErrInvalidCatalog {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidCatalog)
	}
	if err.Message != "invalid catalog prompts.yaml: bad indent" {
		t.Errorf("Message = %q", err.Message)
	}

	nilErr := NewInvalidCatalog("x", nil)
	if nilErr.Message != "invalid catalog" {
		t.Errorf("Message = %q, want %q", nilErr.Message, "invalid catalog")
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("disk full"))
	if err.Code != ErrInternal || err.Status != 500 {
		t.Errorf("got %s/%d, want INTERNAL/500", err.Code, err.Status)
	}
	if err.Message != "disk full" {
		t.Errorf("Message = %q, want %q", err.Message, "disk full")
	}

	nilErr := NewInternal(nil)
	if nilErr.Message != "internal error" {
		t.Errorf("Message = %q, want %q", nilErr.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("list", "x"), ErrNotFound, true},
		{"different code", NewNotFound("list", "x"), ErrInvalidRequest, false},
		{"plain error", fmt.Errorf("boom"), ErrInternal, false},
		{"nil error", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}
