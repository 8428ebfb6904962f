// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable. Generic codes mirror HTTP status
// semantics; domain codes name the rule that was broken so clients can branch
// without parsing messages.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "gender_taken",
//	  "message": "Companion with gender already exists"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"
	ErrCodeUnavailable      = "unavailable"

	// Domain-specific:
	ErrCodeUserNotFound      = "user_not_found"
	ErrCodeCompanionNotFound = "companion_not_found"
	ErrCodeEmailTaken        = "email_taken"
	ErrCodeGenderTaken       = "gender_taken"
	ErrCodeInvalidGender     = "invalid_gender"
	ErrCodeInvalidVoice      = "invalid_voice"
	ErrCodeTTSUnavailable    = "tts_unavailable"
)
