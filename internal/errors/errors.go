package errors

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures independently of the transport.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindInvalidTarget
	KindConflict
	KindForbidden
	KindNotFound
	KindInsufficientCredits
	KindNeedsOptIn
	KindNeedsLocation
	KindInvalidInput
)

var kindCodes = map[Kind]string{
	KindInternal:            "INTERNAL",
	KindUnauthenticated:     "UNAUTHENTICATED",
	KindInvalidTarget:       "INVALID_TARGET",
	KindConflict:            "CONFLICT",
	KindForbidden:           "FORBIDDEN",
	KindNotFound:            "NOT_FOUND",
	KindInsufficientCredits: "INSUFFICIENT_CREDITS",
	KindNeedsOptIn:          "NEEDS_OPT_IN",
	KindNeedsLocation:       "NEEDS_LOCATION",
	KindInvalidInput:        "INVALID_INPUT",
}

// Code is the stable, client-facing identifier of the kind.
func (k Kind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return kindCodes[KindInternal]
}

func (k Kind) String() string { return k.Code() }

// Error is a classified engine error. Msg is safe to show to the caller.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Msg)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Sentinels for errors.Is checks; messages are placeholders.
var (
	ErrUnauthenticated     = New(KindUnauthenticated, "authentication required")
	ErrInvalidTarget       = New(KindInvalidTarget, "invalid target")
	ErrConflict            = New(KindConflict, "already exists")
	ErrForbidden           = New(KindForbidden, "forbidden")
	ErrNotFound            = New(KindNotFound, "not found")
	ErrInsufficientCredits = New(KindInsufficientCredits, "insufficient contact cards")
	ErrNeedsOptIn          = New(KindNeedsOptIn, "nearby search requires opt-in")
	ErrNeedsLocation       = New(KindNeedsLocation, "nearby search requires a location")
	ErrInvalidInput        = New(KindInvalidInput, "invalid input")
)

func Unauthenticated(msg string) error     { return New(KindUnauthenticated, msg) }
func InvalidTarget(msg string) error       { return New(KindInvalidTarget, msg) }
func Conflict(msg string) error            { return New(KindConflict, msg) }
func Forbidden(msg string) error           { return New(KindForbidden, msg) }
func NotFound(msg string) error            { return New(KindNotFound, msg) }
func InsufficientCredits(msg string) error { return New(KindInsufficientCredits, msg) }
func InvalidInput(msg string) error        { return New(KindInvalidInput, msg) }

// KindOf extracts the Kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
