// Package gwerr defines the closed set of error kinds the metadata
// service surfaces across its API boundary (spec §7). Handlers map
// these to HTTP status codes; nothing else in the core should
// fabricate ad-hoc error shapes.
package gwerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is one of the error kinds enumerated in spec §7.
type Kind int

const (
	KindInternal Kind = iota
	KindConflict
	KindNotFound
	KindMethodNotAllowed
	KindBadRequest
	KindTransient
	KindRemoteStoreFailure
)

// Error wraps an underlying cause with a Kind the API layer can
// switch on without string-matching messages.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "start_upload"
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func Conflict(op, format string, args ...interface{}) error {
	return newf(KindConflict, op, format, args...)
}

func NotFound(op, format string, args ...interface{}) error {
	return newf(KindNotFound, op, format, args...)
}

func MethodNotAllowed(op, format string, args ...interface{}) error {
	return newf(KindMethodNotAllowed, op, format, args...)
}

func BadRequest(op, format string, args ...interface{}) error {
	return newf(KindBadRequest, op, format, args...)
}

func Internal(op, format string, args ...interface{}) error {
	return newf(KindInternal, op, format, args...)
}

func Transient(op string, cause error) error {
	return &Error{Kind: KindTransient, Op: op, Err: pkgerrors.WithMessage(cause, op)}
}

func RemoteStoreFailure(op string, cause error) error {
	return &Error{Kind: KindRemoteStoreFailure, Op: op, Err: pkgerrors.WithMessage(cause, op)}
}

// KindOf unwraps err looking for a *gwerr.Error and returns its Kind,
// defaulting to KindInternal for anything else (including nil, which
// callers should not pass). pkg/errors' wrapped causes implement
// Unwrap, so the stdlib errors.As chain still composes through them.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
