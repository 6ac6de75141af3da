// Package apperr defines the typed error taxonomy shared by repositories and
// handlers. Repositories return these; the HTTP layer maps them to status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	// KindServer is an unclassified backend failure (500-equivalent).
	KindServer Kind = iota
	// KindValidation is missing or out-of-range input (400-equivalent).
	KindValidation
	// KindAuthorization is a mutation attempted by a non-owner (403-equivalent).
	KindAuthorization
	// KindNotFound is a missing entity reference (404-equivalent).
	KindNotFound
	// KindConflict is a uniqueness violation such as a duplicate rating (409-equivalent).
	KindConflict
)

// Error is a classified application error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so errors.Is(err, apperr.NotFound("")) style
// comparisons work on the kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Validation returns a validation error with the given message.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Authorization returns an authorization error with the given message.
func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Msg: msg}
}

// NotFound returns a not-found error with the given message.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Conflict returns a conflict error with the given message.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Server wraps an unclassified backend failure.
func Server(msg string, err error) *Error {
	return &Error{Kind: KindServer, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindServer if err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}
