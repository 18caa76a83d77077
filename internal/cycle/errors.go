package cycle

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by stores when a key or record does not exist.
	ErrNotFound = errors.New("not found")

	ErrNetwork             = errors.New("network error")
	ErrDecode              = errors.New("decode error")
	ErrPersistence         = errors.New("persistence error")
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrConfig marks a source that cannot run as configured, such as a
	// missing API key or HTTP client.
	ErrConfig = errors.New("configuration error")

	// ErrRefreshInProgress is returned when a refresh is requested while
	// another one is still running. The request is dropped, not queued.
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// errInactive stops a timer tick that lost the race with Deactivate.
	errInactive = errors.New("cycle inactive")
)

// ErrorKind is the coarse category of a failure, exposed to observers.
type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindNetwork     ErrorKind = "network"
	KindDecode      ErrorKind = "decode"
	KindPersistence ErrorKind = "persistence"
	KindLocation    ErrorKind = "location"
	KindConfig      ErrorKind = "config"
	KindUnknown     ErrorKind = "unknown"
)

// Classify maps an error onto its ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrLocationUnavailable):
		return KindLocation
	case errors.Is(err, ErrConfig):
		return KindConfig
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrNetwork),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindNetwork
	default:
		return KindUnknown
	}
}
