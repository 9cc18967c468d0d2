// Package shared holds what every domain package needs: events, ids and the
// error kinds the API maps onto status codes.
package shared

import (
	"errors"
)

// Kinds. The HTTP layer maps each to a status code and the API client maps
// status codes back, so errors.Is works on both sides of the wire.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidInput    = errors.New("invalid input")
	ErrStateTransition = errors.New("invalid state transition")
	ErrUnauthorized    = errors.New("unauthorized")
)

// Error is a failure worth showing to a user. Message is the text clients
// display, Scope ("session.Join") says where it came from.
type Error struct {
	Kind    error
	Scope   string
	Message string
	cause   error
}

// NewError builds an Error of the given kind.
func NewError(scope string, kind error, message string) *Error {
	return &Error{Kind: kind, Scope: scope, Message: message}
}

// Because returns a copy carrying the underlying cause.
func (e *Error) Because(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Scope + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Scope + ": " + e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// Message is the user-facing text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

var (
	ErrUserNotFound      = NewError("user.Find", ErrNotFound, "User not found")
	ErrPhoneNotFound     = NewError("user.Login", ErrNotFound, "User not found with this phone number")
	ErrPhoneTaken        = NewError("user.Create", ErrAlreadyExists, "User with this phone number already exists")
	ErrUserFieldsMissing = NewError("user.Validate", ErrValidation, "Missing required fields: name, phone, or role")
	ErrPhoneRequired     = NewError("user.Login", ErrValidation, "Phone number is required")
	ErrInvalidRole       = NewError("user.Validate", ErrInvalidInput, "Role must be one of learner, mentor, both")
	ErrInvalidPin        = NewError("user.Login", ErrUnauthorized, "Invalid PIN")

	ErrMentorNotFound = NewError("mentor.Find", ErrNotFound, "Mentor not found")

	ErrSessionNotFound      = NewError("session.Find", ErrNotFound, "Session not found")
	ErrSessionFieldsMissing = NewError("session.Validate", ErrValidation, "Missing required fields: mentorId, userId, or scheduledTime")
	ErrInvalidRating        = NewError("session.End", ErrInvalidInput, "Rating must be between 1 and 5")
	ErrSessionNotScheduled  = NewError("session.Join", ErrStateTransition, "Only a scheduled session can be joined")
	ErrSessionNotOngoing    = NewError("session.End", ErrStateTransition, "Only an ongoing session can be ended")
)

func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }
func IsUnauthorized(err error) bool  { return errors.Is(err, ErrUnauthorized) }

// IsValidation covers both missing fields and malformed values.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidInput)
}
