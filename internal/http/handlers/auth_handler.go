// Auth HTTP handlers.
//
// Endpoints:
//   - POST /auth/signup
//   - POST /auth/login
//   - GET  /auth/user/{user_id}
//   - GET  /auth/users
//   - PUT  /auth/user/{user_id}/preferences
//
// Login is by email only; no credentials or tokens are issued.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/http/middleware"
	"github.com/tbourn/ai-companion-backend/internal/services"
)

// SignupRequest registers a user.
type SignupRequest struct {
	Name             string `json:"name"              binding:"required,max=100"        example:"Sam"`
	Email            string `json:"email"             binding:"required,email,max=255"  example:"sam@example.com"`
	VoicePreference  string `json:"voice_preference"  binding:"omitempty,max=32"        example:"default"`
	GenderPreference string `json:"gender_preference" binding:"omitempty,max=8"         example:"girl"`
}

// SignupResponse confirms a new user.
type SignupResponse struct {
	UserID  string `json:"user_id" example:"8c5d3f0e-2a4b-4c1d-9e8f-7a6b5c4d3e2f"`
	Message string `json:"message" example:"User registered successfully"`
	Email   string `json:"email"   example:"sam@example.com"`
	Name    string `json:"name"    example:"Sam"`
}

// LoginRequest identifies a user by email.
type LoginRequest struct {
	Email string `json:"email" binding:"required,email" example:"sam@example.com"`
}

// LoginResponse carries the user's profile.
type LoginResponse struct {
	UserID           string `json:"user_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	VoicePreference  string `json:"voice_preference"`
	GenderPreference string `json:"gender_preference"`
	Message          string `json:"message" example:"Login successful"`
}

// UsersResponse lists users.
type UsersResponse struct {
	Users []domain.User `json:"users"`
	Count int           `json:"count"`
}

// PreferencesRequest updates preferences; omitted fields are unchanged.
type PreferencesRequest struct {
	VoicePreference  string `json:"voice_preference"  binding:"omitempty,max=32" example:"shimmer"`
	GenderPreference string `json:"gender_preference" binding:"omitempty,max=8"  example:"boy"`
}

// Signup godoc
// @ID          signup
// @Summary     Register a user
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SignupRequest  true  "New user"
// @Success     201   {object}  handlers.SignupResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed or email already registered"
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	u, err := h.users.Signup(c.Request.Context(), services.SignupInput{
		Name:             req.Name,
		Email:            req.Email,
		VoicePreference:  req.VoicePreference,
		GenderPreference: req.GenderPreference,
	})
	if err != nil {
		failService(c, err)
		return
	}
	middleware.SetUserID(c, u.ID)
	ok(c, http.StatusCreated, SignupResponse{
		UserID:  u.ID,
		Message: "User registered successfully",
		Email:   u.Email,
		Name:    u.Name,
	})
}

// Login godoc
// @ID          login
// @Summary     Log in by email
// @Description Looks the user up by email and records the login time.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Email"
// @Success     200   {object}  handlers.LoginResponse
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse  "User not found"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	u, err := h.users.Login(c.Request.Context(), req.Email)
	if err != nil {
		failService(c, err)
		return
	}
	middleware.SetUserID(c, u.ID)
	ok(c, http.StatusOK, LoginResponse{
		UserID:           u.ID,
		Name:             u.Name,
		Email:            u.Email,
		VoicePreference:  u.VoicePreference,
		GenderPreference: u.GenderPreference,
		Message:          "Login successful",
	})
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Auth
// @Produce     json
// @Param       user_id  path      string  true  "User ID"
// @Success     200      {object}  domain.User
// @Failure     404      {object}  handlers.ErrorResponse
// @Router      /auth/user/{user_id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		failService(c, err)
		return
	}
	middleware.SetUserID(c, u.ID)
	ok(c, http.StatusOK, u)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users
// @Tags        Auth
// @Produce     json
// @Success     200  {object}  handlers.UsersResponse
// @Router      /auth/users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, UsersResponse{Users: users, Count: len(users)})
}

// UpdatePreferences godoc
// @ID          updatePreferences
// @Summary     Update voice and companion preferences
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       user_id  path      string                       true  "User ID"
// @Param       body     body      handlers.PreferencesRequest  true  "Preferences"
// @Success     200      {object}  handlers.MessageResponse
// @Failure     400      {object}  handlers.ErrorResponse  "Unknown voice or gender"
// @Failure     404      {object}  handlers.ErrorResponse
// @Router      /auth/user/{user_id}/preferences [put]
func (h *Handlers) UpdatePreferences(c *gin.Context) {
	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	id := c.Param("user_id")
	middleware.SetUserID(c, id)
	if err := h.users.UpdatePreferences(c.Request.Context(), id, req.VoicePreference, req.GenderPreference); err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: "Preferences updated successfully"})
}
