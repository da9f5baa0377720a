package domain

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrPastyNotFound      = NewErr("PASTY_NOT_FOUND", "pasty not found", http.StatusNotFound)
	ErrTokenRequired      = NewErr("TOKEN_REQUIRED", "access token required", http.StatusBadRequest)
	ErrTokenMismatch      = NewErr("TOKEN_MISMATCH", "access token mismatch", http.StatusBadRequest)
	ErrUnsupportedType    = NewErr("UNSUPPORTED_TYPE", "unsupported pasty type", http.StatusBadRequest)
	ErrInvalidURL         = NewErr("INVALID_URL", "the given link is not a valid url", http.StatusBadRequest)
	ErrContentRequired    = NewErr("CONTENT_REQUIRED", "content required", http.StatusBadRequest)
	ErrContentTooLarge    = NewErr("CONTENT_TOO_LARGE", "content too large", http.StatusBadRequest)
	ErrAccessDenied       = NewErr("ACCESS_DENIED", "access denied", http.StatusUnauthorized)
	ErrRateLimitExceeded  = NewErr("RATE_LIMIT_EXCEEDED", "rate limit exceeded", http.StatusTooManyRequests)
	ErrIDGenerationFailed = NewErr("ID_GENERATION_FAILED", "id generation failed", http.StatusInternalServerError)
	ErrInternalServer     = NewErr("INTERNAL_ERROR", "internal error", http.StatusInternalServerError)
	ErrStorage            = NewErr("STORAGE_FAILURE", "storage failure", http.StatusInternalServerError)
)

type Err struct {
	Code   string `json:"code"`
	Msg    string `json:"message"`
	Status int    `json:"-"`
}

func (e *Err) Error() string { return e.Msg }
func NewErr(code, msg string, status int) *Err {
	return &Err{Code: code, Msg: msg, Status: status}
}

// WrapStorage tags err as a storage failure while keeping the cause chain
// intact, so errors.Is(err, ErrStorage) holds and the original engine error
// stays reachable for logging.
func WrapStorage(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &storageErr{msg: msg, cause: err}
}

type storageErr struct {
	msg   string
	cause error
}

func (e *storageErr) Error() string        { return e.msg + ": " + e.cause.Error() }
func (e *storageErr) Unwrap() error        { return e.cause }
func (e *storageErr) Cause() error         { return e.cause }
func (e *storageErr) Is(target error) bool { return target == ErrStorage }

// Status maps err to an HTTP status code. Anything outside the domain
// taxonomy is an internal error.
func Status(err error) int {
	var e *Err
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Message returns the user-facing text for err. Unknown and storage causes
// collapse to the generic internal message so details never leak.
func Message(err error) string {
	if errors.Is(err, ErrStorage) {
		return ErrStorage.Msg
	}
	var e *Err
	if errors.As(err, &e) {
		return e.Msg
	}
	return ErrInternalServer.Msg
}
