package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session ID resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidTransition is returned when an operation is attempted outside
	// the state that permits it.
	ErrInvalidTransition = errors.New("operation not valid in current state")
	// ErrEmptyAnswer marks an empty or whitespace-only answer submission.
	// Callers treat it as a silent no-op rather than a failure.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrGenerateInProgress gates concurrent question generation on one session.
	ErrGenerateInProgress = errors.New("question generation already in progress")
	// ErrSubmitInProgress guards test submission against re-entry.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrAlreadySubmitted is returned once a test result exists; answers and
	// further submissions are rejected from then on.
	ErrAlreadySubmitted = errors.New("test already submitted")
	// ErrNoQuestions indicates the evaluation service returned an empty or
	// malformed question list.
	ErrNoQuestions = errors.New("no questions in response")
	// ErrQuestionNotFound indicates an answer referenced an unknown question ID.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrEmailTaken is returned on signup with an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on login with a bad email or password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound indicates a lookup for an unregistered user.
	ErrUserNotFound = errors.New("user not found")
)
