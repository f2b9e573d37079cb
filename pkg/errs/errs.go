// Package errs defines the structured error taxonomy shared by the codec and
// equality packages.
//
// Callers should branch on Kind (or use errors.Is against the sentinels)
// rather than matching error strings. Messages are for humans and may change.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a stable error category.
type Kind string

const (
	// KindEncoding is raised when a value cannot be encoded, e.g. an absent
	// payload where one is required.
	KindEncoding Kind = "EncodingError"
	// KindDecoding is raised on malformed input: negative or over-wide
	// lengths, truncated streams, unterminated varints.
	KindDecoding Kind = "DecodingError"
	// KindInvariant signals schema/data corruption upstream, e.g. a field
	// declared BYTES holding a non-byte value.
	KindInvariant Kind = "InvariantViolation"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrEncoding  = &Error{Kind: KindEncoding, Message: "encoding error"}
	ErrDecoding  = &Error{Kind: KindDecoding, Message: "decoding error"}
	ErrInvariant = &Error{Kind: KindInvariant, Message: "invariant violation"}
)

// Error is the structured error type returned by this module.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "bytearray.decode"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Encoding returns a KindEncoding error.
func Encoding(op, format string, args ...any) error {
	return &Error{Kind: KindEncoding, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Decoding returns a KindDecoding error.
func Decoding(op, format string, args ...any) error {
	return &Error{Kind: KindDecoding, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Invariant returns a KindInvariant error.
func Invariant(op, format string, args ...any) error {
	return &Error{Kind: KindInvariant, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new error of the given kind. A nil cause yields
// a plain error of that kind.
func Wrap(kind Kind, op, msg string, cause error) error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
