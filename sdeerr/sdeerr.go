// Package sdeerr defines the error kinds surfaced by the record, container,
// index-key and conversion codecs.
package sdeerr

import "github.com/cockroachdb/errors"

// Kind classifies a codec failure. Callers that need to branch on failure
// mode should use errors.As against the concrete wrapper types below
// rather than string-matching messages.
type Kind int

const (
	// KindInvalidArgument covers malformed caller input: duplicate field
	// names, non-terminated strings, textual numerics with trailing
	// garbage, Binary columns whose text exceeds 126 bytes, or a $$-less
	// schema fed a document with extra fields.
	KindInvalidArgument Kind = iota
	// KindInvalidEncoding covers malformed wire bytes: truncated input,
	// EOO mid-stream, object length mismatches.
	KindInvalidEncoding
	// KindUnsupportedConversion covers Float128 and container types used
	// as index-key columns.
	KindUnsupportedConversion
	// KindSchemaMismatch covers a declared column missing from the
	// document, a misconfigured ObjectId/Date column width.
	KindSchemaMismatch
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindInvalidEncoding:
		return "invalid encoding"
	case KindUnsupportedConversion:
		return "unsupported conversion"
	case KindSchemaMismatch:
		return "schema mismatch"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can classify it.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, cause: errors.Newf(format, args...)}
}

// InvalidArgument builds a KindInvalidArgument error.
func InvalidArgument(format string, args ...interface{}) error {
	return newf(KindInvalidArgument, format, args...)
}

// InvalidEncoding builds a KindInvalidEncoding error.
func InvalidEncoding(format string, args ...interface{}) error {
	return newf(KindInvalidEncoding, format, args...)
}

// UnsupportedConversion builds a KindUnsupportedConversion error.
func UnsupportedConversion(format string, args ...interface{}) error {
	return newf(KindUnsupportedConversion, format, args...)
}

// SchemaMismatch builds a KindSchemaMismatch error.
func SchemaMismatch(format string, args ...interface{}) error {
	return newf(KindSchemaMismatch, format, args...)
}

// Wrapf adds context to err without losing its Kind: Is still sees
// through the added context via errors.As's Unwrap chain walk.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
