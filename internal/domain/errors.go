package domain

import "errors"

// ErrorKind classifies failures surfaced to API callers.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindAuth       ErrorKind = "auth"
	KindNotFound   ErrorKind = "not_found"
	KindConfig     ErrorKind = "config"
	KindInternal   ErrorKind = "internal"
)

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error wrapping cause.
func NewError(kind ErrorKind, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func ValidationError(msg string) error { return NewError(KindValidation, msg, nil) }
func ConflictError(msg string) error   { return NewError(KindConflict, msg, nil) }
func AuthError(msg string) error       { return NewError(KindAuth, msg, nil) }
func NotFoundError(msg string) error   { return NewError(KindNotFound, msg, nil) }

// ConfigError never carries a caller-visible cause.
func ConfigError(cause error) error {
	return NewError(KindConfig, "Server configuration error", cause)
}

// InternalError wraps an unexpected store or transport failure.
func InternalError(cause error) error {
	return NewError(KindInternal, "Server Error", cause)
}

// KindOf returns the classification of err, KindInternal when unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the message safe to show to a caller.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Server Error"
}
