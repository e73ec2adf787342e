package domain

import "errors"

var (
	// ErrValidation is returned for malformed or out-of-range input.
	ErrValidation = errors.New("invalid input")
	// ErrSessionNotFound is returned when no live session matches the id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound is returned when a participant id is unknown to the session.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrInvalidPhase is returned when a command is not valid for the session's current phase.
	ErrInvalidPhase = errors.New("command not valid in current phase")
	// ErrRoleForbidden is returned when a non-admin issues an admin command
	// or a spectator attempts a player action.
	ErrRoleForbidden = errors.New("role forbidden")
	// ErrCapacityExceeded is returned when the player cap is already reached.
	ErrCapacityExceeded = errors.New("player limit reached")
	// ErrAlreadyAnswered is returned on a second submission for the same question.
	ErrAlreadyAnswered = errors.New("already answered this question")
	// ErrQuestionBankNotFound indicates no generated questions exist for the document.
	ErrQuestionBankNotFound = errors.New("question bank not found")
	// ErrInsufficientQuestions indicates the bank holds fewer questions than requested.
	ErrInsufficientQuestions = errors.New("question bank has too few questions")
)
