// Package apperrors defines the error codes surfaced to battle participants
// and the mapping of those codes onto gRPC status codes.
package apperrors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code is a stable, machine-readable error identifier sent to clients.
type Code string

const (
	CodeInvalidAction        Code = "INVALID_ACTION"
	CodeInsufficientResource Code = "INSUFFICIENT_RESOURCE"
	CodeCatalogLookupFailed  Code = "CATALOG_LOOKUP_FAILED"
	CodeSessionNotFound      Code = "SESSION_NOT_FOUND"
	CodeSessionFull          Code = "SESSION_FULL"
	CodeNotParticipant       Code = "NOT_PARTICIPANT"
	CodeSessionEnded         Code = "SESSION_ENDED"
	CodeInvalidRoster        Code = "INVALID_ROSTER"
	CodeEngineInvariant      Code = "ENGINE_INVARIANT"
	CodeUnknown              Code = "UNKNOWN"

	// CodeIncapacitated marks an action lost to a status such as sleep.
	CodeIncapacitated Code = "INCAPACITATED"
)

// GRPCCode maps the code onto the closest gRPC status code.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeInvalidAction, CodeCatalogLookupFailed, CodeInvalidRoster:
		return codes.InvalidArgument
	case CodeInsufficientResource, CodeIncapacitated:
		return codes.FailedPrecondition
	case CodeSessionNotFound:
		return codes.NotFound
	case CodeSessionFull:
		return codes.ResourceExhausted
	case CodeNotParticipant:
		return codes.PermissionDenied
	case CodeSessionEnded:
		return codes.Aborted
	case CodeEngineInvariant:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// Error is a coded error with an optional cause and metadata.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error that wraps cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithMetadata returns a copy of e carrying the extra key/value pair.
func (e *Error) WithMetadata(key, value string) *Error {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	cp := *e
	cp.Metadata = md
	return &cp
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code. A catalog lookup failure is a
// kind of invalid action and therefore also matches CodeInvalidAction.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Code == CodeCatalogLookupFailed && t.Code == CodeInvalidAction
}

// GRPCStatus lets grpc's status.FromError recover the code.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code.GRPCCode(), e.Message)
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidAction        = New(CodeInvalidAction, "invalid action")
	ErrInsufficientResource = New(CodeInsufficientResource, "insufficient resource")
	ErrCatalogLookupFailed  = New(CodeCatalogLookupFailed, "catalog lookup failed")
	ErrSessionNotFound      = New(CodeSessionNotFound, "session not found")
	ErrSessionFull          = New(CodeSessionFull, "session full")
	ErrNotParticipant       = New(CodeNotParticipant, "not a participant")
	ErrSessionEnded         = New(CodeSessionEnded, "session ended")
	ErrInvalidRoster        = New(CodeInvalidRoster, "invalid roster")
	ErrEngineInvariant      = New(CodeEngineInvariant, "engine invariant violated")
)

// CodeOf extracts the code from err, or CodeUnknown when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
