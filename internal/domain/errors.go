package domain

import (
	"errors"
	"strings"
)

// ErrorKind classifies every failure the core can surface.
type ErrorKind int

const (
	// KindUnknown is reported for errors that did not come from the core.
	KindUnknown ErrorKind = iota
	// KindValidation is a caller-side precondition violation; nothing was sent.
	KindValidation
	// KindNetwork means no response reached the client.
	KindNetwork
	// KindServer means a response arrived with an error status or an unusable body.
	KindServer
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is the uniform failure type returned by the gateway and controllers.
type Error struct {
	Kind ErrorKind
	// Op names the remote operation ("status", "ingest", "query") or local action.
	Op string
	// Detail is the human-readable message shown to the user.
	Detail string
	// StatusCode is set for KindServer errors that carried an HTTP status.
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Detail)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and detail, so sentinel comparisons work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

// ValidationError builds a KindValidation error.
func ValidationError(op, detail string) *Error {
	return &Error{Kind: KindValidation, Op: op, Detail: detail}
}

// NetworkError builds a KindNetwork error around the transport failure.
func NetworkError(op, detail string, cause error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Detail: detail, Err: cause}
}

// ServerError builds a KindServer error.
func ServerError(op string, status int, detail string) *Error {
	return &Error{Kind: KindServer, Op: op, Detail: detail, StatusCode: status}
}

// KindOf extracts the ErrorKind from anywhere in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Detail returns the user-facing message for err.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	return err.Error()
}

// Local validation failures.
var (
	ErrInvalidFileType  = ValidationError("select file", "invalid file type")
	ErrInvalidBatchSize = ValidationError("ingest", "batch size must be a positive integer")
	ErrEmptyQuery       = ValidationError("query", "query must not be empty")
)
