package myerrors

import (
	"errors"
	"fmt"
)

// Kind is the machine-checkable error class the HTTP layer maps to a status.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindPermission Kind = "permission"
	KindDegraded   Kind = "external_degraded"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets sentinel values match wrapped copies of themselves by kind+message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of an error, or empty if it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Typed failure reasons surfaced by the exposed operations.
var (
	ErrRouteMismatch       = E(KindValidation, "pickup/dropoff cities do not match the post route")
	ErrCapacityExceeded    = E(KindConflict, "delivery weight exceeds the post's remaining capacity")
	ErrPostUnavailable     = E(KindConflict, "driver post is not open for matching")
	ErrPostFull            = E(KindConflict, "driver post already reached its match-request cap")
	ErrNotOwner            = E(KindPermission, "driver does not own this post")
	ErrPaymentNotCompleted = E(KindConflict, "payment must be completed before the delivery departs")
	ErrInvalidTransition   = E(KindValidation, "delivery status transition is not allowed")
	ErrDuplicateTxn        = E(KindConflict, "transaction id already recorded")
)
