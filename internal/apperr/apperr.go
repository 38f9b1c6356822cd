// Package apperr defines the typed error kinds the API surface can return.
// Each kind carries the HTTP status and RFC-7807 problem type it maps to,
// generalized from the ProblemDetails constructors forumall's Rust server
// used ad hoc per handler into one error type every package returns.
package apperr

import "net/http"

// Kind names one of the coarse failure categories the spec distinguishes.
type Kind string

const (
	KindInvalidName      Kind = "invalid-name"
	KindBadRequest       Kind = "bad-request"
	KindAuthFailure      Kind = "auth-failure"
	KindSignatureInvalid Kind = "signature-invalid"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not-found"
	KindConflict         Kind = "conflict"
	KindRemoteUnreachable Kind = "remote-unreachable"
	KindPersistenceFault Kind = "persistence-fault"
)

var statusByKind = map[Kind]int{
	KindInvalidName:       http.StatusBadRequest,
	KindBadRequest:        http.StatusBadRequest,
	KindAuthFailure:       http.StatusUnauthorized,
	KindSignatureInvalid:  http.StatusUnauthorized,
	KindForbidden:         http.StatusForbidden,
	KindNotFound:          http.StatusNotFound,
	KindConflict:          http.StatusConflict,
	KindRemoteUnreachable: http.StatusBadGateway,
	KindPersistenceFault:  http.StatusInternalServerError,
}

// Error is the error type every OFSCP operation returns for expected
// failure modes. Unexpected errors (bugs, I/O surprises) should still be
// wrapped as KindPersistenceFault rather than leaking raw error strings.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for this error's kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind wrapping a lower-level cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func InvalidName(msg string) *Error       { return New(KindInvalidName, msg) }
func BadRequest(msg string) *Error        { return New(KindBadRequest, msg) }
func AuthFailure(msg string) *Error       { return New(KindAuthFailure, msg) }
func SignatureInvalid(msg string) *Error  { return New(KindSignatureInvalid, msg) }
func Forbidden(msg string) *Error         { return New(KindForbidden, msg) }
func NotFound(msg string) *Error          { return New(KindNotFound, msg) }
func Conflict(msg string) *Error          { return New(KindConflict, msg) }
func RemoteUnreachable(msg string) *Error { return New(KindRemoteUnreachable, msg) }
func PersistenceFault(msg string, cause error) *Error {
	return Wrap(KindPersistenceFault, msg, cause)
}

// As reports whether err is an *Error and returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
