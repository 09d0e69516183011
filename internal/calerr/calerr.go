// Package calerr defines the error taxonomy shared by all calendar
// backends and the pipeline. Read-path errors are scoped to a single
// calendar and degrade to warnings, except auth failures which abort
// the whole run. Write-path errors abort only that write.
package calerr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Kind classifies a calendar error.
type Kind int

const (
	// KindAuth means the credential is invalid or expired. Fatal to the
	// whole pipeline run, never retried.
	KindAuth Kind = iota + 1
	// KindNetwork is a transient transport failure. Per-calendar scoped.
	KindNetwork
	// KindNotFound means the calendar or event id is unknown or unshared.
	KindNotFound
	// KindValidation means a malformed event draft on a write operation.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a classified calendar error. Op names the failed operation
// ("list events", "create event"); CalendarID is empty for operations
// not scoped to one calendar.
type Error struct {
	Kind       Kind
	Op         string
	CalendarID string
	Err        error
}

func (e *Error) Error() string {
	if e.CalendarID != "" {
		return fmt.Sprintf("%s: calendar %q: %s: %v", e.Op, e.CalendarID, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation name.
func New(kind Kind, op, calendarID string, err error) *Error {
	return &Error{Kind: kind, Op: op, CalendarID: calendarID, Err: err}
}

// KindOf returns the kind of err, or 0 if err carries no classification.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// IsAuth reports whether err is a credential failure.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// IsNetwork reports whether err is a transient transport failure.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsNotFound reports whether err is an unknown calendar or event id.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsValidation reports whether err is a malformed write draft.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// FromGoogleAPI classifies an error returned by the Google Calendar API.
// Anything that is not a *googleapi.Error (DNS failure, timeout, reset
// connection) is treated as a network failure.
func FromGoogleAPI(op, calendarID string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return New(kindForStatus(gerr.Code), op, calendarID, err)
	}
	return New(KindNetwork, op, calendarID, err)
}

// FromHTTPStatus classifies an error carrying a plain HTTP status code,
// as reported by CalDAV servers.
func FromHTTPStatus(op, calendarID string, code int, err error) error {
	if err == nil {
		return nil
	}
	return New(kindForStatus(code), op, calendarID, err)
}

func kindForStatus(code int) Kind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusNotFound, http.StatusGone:
		return KindNotFound
	case http.StatusBadRequest, http.StatusConflict,
		http.StatusPreconditionFailed, http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindNetwork
	}
}
