package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
	if !stdErrors.Is(err, internal) {
		t.Fatal("expected wrapped error to unwrap to internal cause")
	}
}

func TestWithInternalKeepsIdentity(t *testing.T) {
	base := New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}
	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}
	if !stdErrors.Is(with, base) {
		t.Fatal("expected copy to match the sentinel by code")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestNewBadRequestAndConflict(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.StatusCode != http.StatusBadRequest || err.Message != "invalid payload" {
		t.Fatalf("unexpected bad request error: %+v", err)
	}

	conflict := NewConflict("username already exists")
	if conflict.StatusCode != http.StatusConflict || conflict.Code != ErrConflict.Code {
		t.Fatalf("unexpected conflict error: %+v", conflict)
	}
}
