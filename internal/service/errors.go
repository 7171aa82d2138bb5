package service

import (
	"errors"
	"fmt"
)

// Kind classifies a remote failure.
type Kind string

const (
	// KindUnavailable is a transport or connection failure.
	KindUnavailable Kind = "unavailable"
	// KindRejected is a non-success status from the service.
	KindRejected Kind = "rejected"
	// KindNotFound means the targeted task does not exist on the service.
	KindNotFound Kind = "not found"
)

// Sentinels for errors.Is. ErrRemote matches every RemoteFailure.
var (
	ErrRemote      = errors.New("remote failure")
	ErrUnavailable = errors.New("service unavailable")
	ErrRejected    = errors.New("request rejected")
	ErrNotFound    = errors.New("not found")
)

// RemoteFailure is the single error category backends surface to callers.
type RemoteFailure struct {
	Kind   Kind
	Op     string
	Status int // HTTP status when known
	Err    error
}

// NewRemoteFailure builds a RemoteFailure for op.
func NewRemoteFailure(kind Kind, op string, err error) *RemoteFailure {
	return &RemoteFailure{Kind: kind, Op: op, Err: err}
}

func (e *RemoteFailure) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteFailure) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches ErrRemote and the sentinel of the failure's kind.
func (e *RemoteFailure) Is(target error) bool {
	switch target {
	case ErrRemote:
		return true
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrRejected:
		return e.Kind == KindRejected
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// IsRemote reports whether err is (or wraps) a RemoteFailure.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemote)
}
