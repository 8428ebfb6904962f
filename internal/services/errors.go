// Package services defines the business logic for users, companions, text chat
// and voice chat. This file centralizes the service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// User errors.
var (
	// ErrUserNotFound indicates that no user has the given id or email.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned by Signup when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidVoice is returned when a voice preference does not fit its column.
	ErrInvalidVoice = errors.New("voice preference too long")
)

// Companion errors.
var (
	// ErrCompanionNotFound indicates that no companion matches the id or gender.
	ErrCompanionNotFound = errors.New("companion not found")

	// ErrInvalidGender is returned for a gender other than "boy" or "girl".
	ErrInvalidGender = errors.New("gender must be 'boy' or 'girl'")

	// ErrGenderTaken is returned when a companion already holds the gender.
	ErrGenderTaken = errors.New("a companion with this gender already exists")

	// ErrInvalidCompanion is returned when a companion profile breaks a field rule.
	ErrInvalidCompanion = errors.New("invalid companion profile")
)

// Chat errors.
var (
	// ErrEmptyMessage is returned when a chat message is blank.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a chat message exceeds the rune cap.
	ErrMessageTooLong = errors.New("message too long")

	// ErrTurnNotFound indicates that the chat turn does not exist for the user.
	ErrTurnNotFound = errors.New("chat turn not found")
)

// Voice errors.
var (
	// ErrTTSUnavailable is returned when speech is requested but not configured.
	ErrTTSUnavailable = errors.New("text-to-speech not available")

	// ErrEmptyText is returned when text to synthesize is blank.
	ErrEmptyText = errors.New("text is empty")
)
