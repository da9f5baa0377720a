package domain

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrPastyNotFound, http.StatusNotFound},
		{ErrTokenRequired, http.StatusBadRequest},
		{ErrTokenMismatch, http.StatusBadRequest},
		{ErrUnsupportedType, http.StatusBadRequest},
		{ErrInvalidURL, http.StatusBadRequest},
		{ErrAccessDenied, http.StatusUnauthorized},
		{ErrRateLimitExceeded, http.StatusTooManyRequests},
		{ErrStorage, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := Status(c.err); got != c.want {
			t.Errorf("Status(%v): got %d, want %d", c.err, got, c.want)
		}
	}
}

func TestStatusSeesThroughWrapping(t *testing.T) {
	wrapped := errors.Wrap(ErrTokenMismatch, "update pasty")
	if got := Status(wrapped); got != http.StatusBadRequest {
		t.Errorf("Status of wrapped domain error: got %d, want %d", got, http.StatusBadRequest)
	}
}

func TestWrapStorage(t *testing.T) {
	cause := errors.New("disk went away")
	err := WrapStorage(cause, "commit write")

	if !errors.Is(err, ErrStorage) {
		t.Error("wrapped storage error should match ErrStorage")
	}
	if errors.Is(err, ErrPastyNotFound) {
		t.Error("wrapped storage error should not match unrelated errors")
	}
	if got := Status(err); got != http.StatusInternalServerError {
		t.Errorf("Status: got %d, want 500", got)
	}
	if errors.Cause(err) != cause {
		t.Errorf("Cause: got %v, want original", errors.Cause(err))
	}
	if err.Error() != "commit write: disk went away" {
		t.Errorf("Error(): got %q", err.Error())
	}
}

func TestWrapStorageNil(t *testing.T) {
	if WrapStorage(nil, "anything") != nil {
		t.Error("WrapStorage(nil) should be nil")
	}
}

func TestMessageNeverLeaksCause(t *testing.T) {
	err := WrapStorage(errors.New("open /var/lib/secret.db: permission denied"), "read type")
	if got := Message(err); got != ErrStorage.Msg {
		t.Errorf("Message for storage failure: got %q, want %q", got, ErrStorage.Msg)
	}
	if got := Message(errors.New("raw engine detail")); got != ErrInternalServer.Msg {
		t.Errorf("Message for unknown error: got %q, want %q", got, ErrInternalServer.Msg)
	}
	if got := Message(ErrTokenRequired); got != ErrTokenRequired.Msg {
		t.Errorf("Message for domain error: got %q, want %q", got, ErrTokenRequired.Msg)
	}
}
