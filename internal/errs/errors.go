// Package errs is the error vocabulary shared by every schemascope layer.
//
// Drivers and inspectors classify native failures (SQLSTATE codes, MySQL
// error numbers, S3 responses, ODBC states) into an ErrKind and return
// *Error. Callers branch on the kind, never on driver types:
//
//	cols, err := ins.ColumnInfo(ctx, "orders")
//	switch {
//	case errs.IsNotFound(err):
//	case errs.IsPermissionDenied(err):
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind classifies an error independently of the backend that raised it.
type ErrKind int

const (
	ErrKindUnknown            ErrKind = iota
	ErrKindNotFound                   // no rows, table, column, object or bucket
	ErrKindConnectionFailed           // backend unreachable or handshake failed
	ErrKindTimeout                    // deadline exceeded or context cancelled
	ErrKindQueryFailed                // catalog query or storage call failed
	ErrKindInvalidInput               // bad argument, DSN or identifier
	ErrKindPermissionDenied           // missing privilege or bad credentials
	ErrKindUnsupportedType            // catalog type code we cannot decode
	ErrKindProvisioningFailed         // helper routine could not be installed
)

var kindNames = [...]string{
	ErrKindUnknown:            "unknown",
	ErrKindNotFound:           "not_found",
	ErrKindConnectionFailed:   "connection_failed",
	ErrKindTimeout:            "timeout",
	ErrKindQueryFailed:        "query_failed",
	ErrKindInvalidInput:       "invalid_input",
	ErrKindPermissionDenied:   "permission_denied",
	ErrKindUnsupportedType:    "unsupported_type",
	ErrKindProvisioningFailed: "provisioning_failed",
}

func (k ErrKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[ErrKindUnknown]
	}
	return kindNames[k]
}

// Error carries a kind, a human message and the native cause, if any.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an *Error without a cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error around cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// ErrKindUnknown.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

func IsNotFound(err error) bool           { return KindOf(err) == ErrKindNotFound }
func IsConnectionFailed(err error) bool   { return KindOf(err) == ErrKindConnectionFailed }
func IsTimeout(err error) bool            { return KindOf(err) == ErrKindTimeout }
func IsQueryFailed(err error) bool        { return KindOf(err) == ErrKindQueryFailed }
func IsInvalidInput(err error) bool       { return KindOf(err) == ErrKindInvalidInput }
func IsPermissionDenied(err error) bool   { return KindOf(err) == ErrKindPermissionDenied }
func IsUnsupportedType(err error) bool    { return KindOf(err) == ErrKindUnsupportedType }
func IsProvisioningFailed(err error) bool { return KindOf(err) == ErrKindProvisioningFailed }
