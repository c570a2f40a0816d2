package model

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.  Handlers translate kinds into HTTP
// status codes; the service never retries on any of them.
type Kind string

const (
	KindNotFound                     Kind = "NOT_FOUND"
	KindDuplicateBooking             Kind = "DUPLICATE_BOOKING"
	KindAlreadyClaimed               Kind = "ALREADY_CLAIMED"
	KindSameDayCancellationForbidden Kind = "SAME_DAY_CANCELLATION_FORBIDDEN"
	KindInvalidStatusFilter          Kind = "INVALID_STATUS_FILTER"
	KindInvalidTransition            Kind = "INVALID_TRANSITION"
	KindForbidden                    Kind = "FORBIDDEN"
	KindInUse                        Kind = "IN_USE"
	KindInvalidArgument              Kind = "INVALID_ARGUMENT"
	KindUnauthorized                 Kind = "UNAUTHORIZED"
)

// Error is a domain failure carrying its kind and a human readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports kind equality so errors.Is(err, &Error{Kind: k}) matches any
// message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err (or anything it wraps) is a domain error of kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
