// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response utilities shared by every endpoint: the
// error envelope, service-error translation, request-binding failures with
// per-field details, and small helpers for success responses.
//
// Example error response:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "validation_failed",
//	  "message": "request validation failed",
//	  "details": [{"field": "email", "rule": "email"}]
//	}
package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/ai-companion-backend/internal/http/middleware"
	"github.com/tbourn/ai-companion-backend/internal/services"
)

// Report JSON field names rather than Go field names in validation details.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	}
}

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
	// Per-field validation failures, only for validation_failed
	Details []FieldDetail `json:"details,omitempty"`
}

// FieldDetail names one field that failed validation and the rule it broke.
type FieldDetail struct {
	Field string `json:"field" example:"email"`
	Rule  string `json:"rule" example:"required"`
}

// MessageResponse is the body of operations that only confirm success.
type MessageResponse struct {
	Message string `json:"message" example:"Companion deleted successfully"`
}

// fail aborts the request with a structured error. Server errors are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	abort(c, status, ErrorResponse{Code: code, Message: msg})
}

// Fail is the exported variant of fail for the router.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func abort(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = middleware.GetRequestID(c)
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, resp)
}

// failBind reports a ShouldBindJSON error. Struct-tag violations become
// validation_failed with details; anything else is malformed JSON.
func failBind(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	details := make([]FieldDetail, 0, len(ve))
	for _, fe := range ve {
		details = append(details, FieldDetail{Field: fe.Field(), Rule: fe.Tag()})
	}
	abort(c, http.StatusBadRequest, ErrorResponse{
		Code:    ErrCodeValidation,
		Message: "request validation failed",
		Details: details,
	})
}

// failService translates a service error into its HTTP status and code.
// Unknown errors become a generic 500; their detail is logged only.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeUserNotFound, "User not found")
	case errors.Is(err, services.ErrCompanionNotFound):
		fail(c, http.StatusNotFound, ErrCodeCompanionNotFound, "Companion not found")
	case errors.Is(err, services.ErrTurnNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Chat not found")
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusBadRequest, ErrCodeEmailTaken, "Email already registered")
	case errors.Is(err, services.ErrGenderTaken):
		fail(c, http.StatusConflict, ErrCodeGenderTaken, "Companion with gender already exists")
	case errors.Is(err, services.ErrInvalidGender):
		fail(c, http.StatusBadRequest, ErrCodeInvalidGender, "Gender must be 'boy' or 'girl'")
	case errors.Is(err, services.ErrInvalidVoice):
		fail(c, http.StatusBadRequest, ErrCodeInvalidVoice, err.Error())
	case errors.Is(err, services.ErrInvalidCompanion),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrEmptyText):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrTTSUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeTTSUnavailable,
			"TTS service not available. Please configure OpenAI API key.")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
