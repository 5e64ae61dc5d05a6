package domain

import "errors"

// ErrorKind classifies a failure so transports can map it to a status
// without string matching.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindInvalidState ErrorKind = "invalid_state"
	KindValidation   ErrorKind = "validation"
)

// Error is a structured domain failure: a kind plus a human message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	// ErrQuizNotFound indicates the quiz document could not be resolved.
	ErrQuizNotFound = &Error{KindNotFound, "quiz not found"}
	// ErrSessionNotFound indicates the session record does not exist.
	ErrSessionNotFound = &Error{KindNotFound, "session not found"}
	// ErrQuestionNotFound indicates a submitted question ID is not in the quiz.
	ErrQuestionNotFound = &Error{KindNotFound, "question not found"}
	// ErrParticipantNotFound indicates the user is not part of the session.
	ErrParticipantNotFound = &Error{KindNotFound, "participant not found in session"}
	// ErrSessionNotActive rejects submissions outside the active state.
	ErrSessionNotActive = &Error{KindInvalidState, "session is not active"}
	// ErrSessionAlreadyStarted rejects a second start; restarting would reset the timer.
	ErrSessionAlreadyStarted = &Error{KindInvalidState, "session already started"}
	// ErrSessionAlreadyEnded rejects ending a completed session.
	ErrSessionAlreadyEnded = &Error{KindInvalidState, "session already ended"}
	// ErrAnswerAlreadySubmitted rejects a second answer for the same question.
	ErrAnswerAlreadySubmitted = &Error{KindInvalidState, "answer already submitted for question"}
)

// KindOf extracts the error kind, or empty for non-domain errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found domain error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsInvalidState reports whether err is an invalid-state domain error.
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }

// NewValidationError builds a validation failure with the given message.
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}
