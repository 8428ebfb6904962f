// Companion HTTP handlers.
//
// Endpoints:
//   - GET    /companion/get_story/{gender}
//   - GET    /companion/all
//   - POST   /companion/create
//   - GET    /companion/{companion_id}
//   - DELETE /companion/{companion_id}
//
// At most one companion exists per gender; a second create for the same
// gender is a conflict.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/services"
)

// CreateCompanionRequest is a companion profile. The ranges mirror the
// service rules so violations come back with field details.
type CreateCompanionRequest struct {
	Name              string   `json:"name"               binding:"required,max=50"        example:"Emma"`
	Gender            string   `json:"gender"             binding:"required"               example:"girl"`
	Age               int      `json:"age"                binding:"required,min=18,max=30" example:"22"`
	Backstory         string   `json:"backstory"          binding:"required,min=50"`
	PersonalityTraits []string `json:"personality_traits" binding:"omitempty,dive,max=50"`
	Interests         []string `json:"interests"          binding:"omitempty,dive,max=50"`
	SpeakingStyle     string   `json:"speaking_style"     binding:"omitempty,max=32"       example:"friendly"`
}

// CreateCompanionResponse confirms a new companion.
type CreateCompanionResponse struct {
	CompanionID string `json:"companion_id"`
	Message     string `json:"message" example:"Companion created successfully"`
	Name        string `json:"name"    example:"Emma"`
}

// CompanionsResponse lists companions.
type CompanionsResponse struct {
	Companions []domain.Companion `json:"companions"`
	Count      int                `json:"count"`
}

// GetCompanionStory godoc
// @ID          getCompanionStory
// @Summary     Get the companion for a gender
// @Tags        Companions
// @Produce     json
// @Param       gender  path      string  true  "boy or girl"  Enums(boy, girl)
// @Success     200     {object}  domain.Companion
// @Failure     400     {object}  handlers.ErrorResponse  "Invalid gender"
// @Failure     404     {object}  handlers.ErrorResponse  "No companion for the gender"
// @Router      /companion/get_story/{gender} [get]
func (h *Handlers) GetCompanionStory(c *gin.Context) {
	comp, err := h.companions.GetByGender(c.Request.Context(), c.Param("gender"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, comp)
}

// ListCompanions godoc
// @ID          listCompanions
// @Summary     List companions
// @Tags        Companions
// @Produce     json
// @Success     200  {object}  handlers.CompanionsResponse
// @Router      /companion/all [get]
func (h *Handlers) ListCompanions(c *gin.Context) {
	list, err := h.companions.List(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, CompanionsResponse{Companions: list, Count: len(list)})
}

// CreateCompanion godoc
// @ID          createCompanion
// @Summary     Create a companion
// @Tags        Companions
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CreateCompanionRequest  true  "Companion profile"
// @Success     201   {object}  handlers.CreateCompanionResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409   {object}  handlers.ErrorResponse  "Gender already taken"
// @Router      /companion/create [post]
func (h *Handlers) CreateCompanion(c *gin.Context) {
	var req CreateCompanionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	comp, err := h.companions.Create(c.Request.Context(), services.CompanionInput{
		Name:              req.Name,
		Gender:            req.Gender,
		Age:               req.Age,
		Backstory:         req.Backstory,
		PersonalityTraits: req.PersonalityTraits,
		Interests:         req.Interests,
		SpeakingStyle:     req.SpeakingStyle,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, CreateCompanionResponse{
		CompanionID: comp.ID,
		Message:     "Companion created successfully",
		Name:        comp.Name,
	})
}

// GetCompanion godoc
// @ID          getCompanion
// @Summary     Get a companion by id
// @Tags        Companions
// @Produce     json
// @Param       companion_id  path      string  true  "Companion ID"
// @Success     200           {object}  domain.Companion
// @Failure     404           {object}  handlers.ErrorResponse
// @Router      /companion/{companion_id} [get]
func (h *Handlers) GetCompanion(c *gin.Context) {
	comp, err := h.companions.Get(c.Request.Context(), c.Param("companion_id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, comp)
}

// DeleteCompanion godoc
// @ID          deleteCompanion
// @Summary     Delete a companion
// @Description Existing chat turns keep the companion's name and gender.
// @Tags        Companions
// @Produce     json
// @Param       companion_id  path      string  true  "Companion ID"
// @Success     200           {object}  handlers.MessageResponse
// @Failure     404           {object}  handlers.ErrorResponse
// @Router      /companion/{companion_id} [delete]
func (h *Handlers) DeleteCompanion(c *gin.Context) {
	if err := h.companions.Delete(c.Request.Context(), c.Param("companion_id")); err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: "Companion deleted successfully"})
}
