package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := ErrRequestFull.WithInternal(stdErrors.New("row r1"))

	if !stdErrors.Is(wrapped, ErrRequestFull) {
		t.Fatal("expected wrapped copy to match ErrRequestFull")
	}
	if !stdErrors.Is(fmt.Errorf("accept: %w", wrapped), ErrRequestFull) {
		t.Fatal("expected fmt-wrapped error to match ErrRequestFull")
	}
	if stdErrors.Is(wrapped, ErrNotFound) {
		t.Fatal("did not expect match against a different code")
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

func TestFromStatusCode(t *testing.T) {
	cases := []struct {
		status int
		want   *AppError
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusConflict, ErrConflict},
		{http.StatusUnprocessableEntity, ErrMalformed},
		{http.StatusInternalServerError, ErrTransient},
		{http.StatusBadGateway, ErrTransient},
	}

	for _, tc := range cases {
		got := FromStatusCode(tc.status)
		if got.Code != tc.want.Code {
			t.Fatalf("status %d: expected %s, got %s", tc.status, tc.want.Code, got.Code)
		}
	}

	other := FromStatusCode(http.StatusTeapot)
	if other.Code != "HTTP_418" {
		t.Fatalf("unexpected code for unmapped status: %s", other.Code)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrTransient) {
		t.Fatal("expected transient errors to be retryable")
	}
	if IsRetryable(ErrConflict) {
		t.Fatal("did not expect conflicts to be retryable")
	}
	if IsRetryable(stdErrors.New("raw")) {
		t.Fatal("did not expect plain errors to be retryable")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
