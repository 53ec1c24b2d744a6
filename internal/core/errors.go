package core

import (
	"context"
	"errors"
	"strings"
)

// User-visible failure messages.
const (
	MsgEmptyQuery = "Please enter a Pokémon name."
	MsgNotFound   = "Pokémon not found"
	MsgFallback   = "Something went wrong"
)

// ErrEmptyQuery is returned when a submission is blank after trimming. No
// network request is made for it.
var ErrEmptyQuery = errors.New("empty query")

// FetchError is a failed detail lookup.
type FetchError struct {
	Kind   FailureKind
	Name   string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return MsgFallback
	}
	switch e.Kind {
	case FailureNotFound:
		return MsgNotFound
	case FailureValidation:
		return MsgEmptyQuery
	}
	if e.Err != nil {
		if msg := strings.TrimSpace(e.Err.Error()); msg != "" {
			return msg
		}
	}
	return MsgFallback
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Classify maps any lookup error onto a failure kind and the single message
// shown to the user.
func Classify(err error) (FailureKind, string) {
	if err == nil {
		return FailureNone, ""
	}
	if errors.Is(err, ErrEmptyQuery) {
		return FailureValidation, MsgEmptyQuery
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, fe.Error()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransport, "request timed out"
	}

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = MsgFallback
	}
	return FailureTransport, msg
}
