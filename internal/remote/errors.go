package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrOwnerNotFound is returned when a repository owner is neither a user nor an organization.
var ErrOwnerNotFound = errors.New("remote: owner does not exist")

// ErrNoChanges is returned by EditUser when there was nothing to patch: the
// options were empty or the remote answered 422.
var ErrNoChanges = errors.New("remote: nothing to change")

// Error is a failed remote operation.
type Error struct {
	Op      string
	Status  int    // 0 when no response was received
	Message string // message field of the remote error document, if any
	Body    string // raw response body, if any
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("remote: ")
	b.WriteString(strings.ReplaceAll(e.Op, "_", " "))
	if e.Status != 0 {
		fmt.Fprintf(&b, ": %d %s", e.Status, http.StatusText(e.Status))
	}
	switch {
	case e.Message != "":
		b.WriteString(": ")
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure was a timeout, transport error or server error.
func (e *Error) Transient() bool {
	return e.Status == 0 || e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *Error
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

// BodyOf returns the raw remote response body carried by err, if any.
func BodyOf(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Body
	}
	return ""
}

// IsNotFound reports a 404 from the remote.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsUnprocessable reports a 422 from the remote.
func IsUnprocessable(err error) bool {
	return StatusOf(err) == http.StatusUnprocessableEntity
}

// IsConflict reports a 409 from the remote.
func IsConflict(err error) bool {
	return StatusOf(err) == http.StatusConflict
}

// IsTransient reports timeouts, transport failures and 5xx responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Transient()
	}
	return false
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsNotFound(err):
		return "not_found"
	case IsUnprocessable(err):
		return "unprocessable"
	case IsConflict(err):
		return "conflict"
	case IsTransient(err):
		return "transient"
	default:
		return "rejected"
	}
}
