// Chat HTTP handlers.
//
// Endpoints:
//   - POST   /chat/send                       (one exchange with a companion)
//   - GET    /chat/history/{user_id}          (recent turns, ETag support)
//   - GET    /chat/history/{user_id}/{chat_id}
//   - DELETE /chat/history/{user_id}          (bulk clear, optional gender filter)
//   - GET    /chat/stats/{user_id}
//
// Idempotency:
// With an Idempotency-Key header, a retried send whose key is still live for
// the same user returns the originally stored turn with
// `Idempotency-Replayed: true` instead of generating a second reply.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/http/middleware"
	"github.com/tbourn/ai-companion-backend/internal/services"
	"github.com/tbourn/ai-companion-backend/internal/utils"
)

// SendChatRequest is one user message addressed to a companion gender.
type SendChatRequest struct {
	UserID          string `json:"user_id"          binding:"required"                 example:"8c5d3f0e-2a4b-4c1d-9e8f-7a6b5c4d3e2f"`
	CompanionGender string `json:"companion_gender" binding:"required"                 example:"girl"`
	Message         string `json:"message"          binding:"required,max=4000"        example:"Hi Emma! How was your day?"`
}

// ChatResponse is one stored exchange.
type ChatResponse struct {
	ChatID        string    `json:"chat_id"`
	UserID        string    `json:"user_id"`
	CompanionName string    `json:"companion_name" example:"Emma"`
	UserMessage   string    `json:"user_message"`
	AIResponse    string    `json:"ai_response"`
	Timestamp     time.Time `json:"timestamp"`
}

// HistoryResponse lists recent turns, newest first.
type HistoryResponse struct {
	UserID    string            `json:"user_id"`
	ChatCount int               `json:"chat_count"`
	Chats     []domain.ChatTurn `json:"chats"`
}

// ClearHistoryResponse reports how many turns were removed.
type ClearHistoryResponse struct {
	Message      string `json:"message" example:"Chat history cleared successfully"`
	DeletedCount int64  `json:"deleted_count" example:"12"`
}

func chatResponse(t *domain.ChatTurn) ChatResponse {
	return ChatResponse{
		ChatID:        t.ID,
		UserID:        t.UserID,
		CompanionName: t.CompanionName,
		UserMessage:   t.UserMessage,
		AIResponse:    t.AIResponse,
		Timestamp:     t.Timestamp,
	}
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeMessage normalizes line endings, collapses blank-line runs and
// trims. Length rules are enforced by the service on the result.
func sanitizeMessage(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// replayed serves a stored turn when the request carries a key that is still
// live for userID. It reports whether a response was written.
func (h *Handlers) replayed(c *gin.Context, userID string, render func(*domain.ChatTurn) any) bool {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok {
		return false
	}
	t, found := h.chat.Replay(c.Request.Context(), userID, middleware.GetIdempotencyScope(c), key)
	if !found {
		return false
	}
	c.Header(middleware.HeaderIdempotencyReplayed, "true")
	c.JSON(http.StatusOK, render(t))
	return true
}

// remember binds the request key, if any, to the stored turn. Failures only
// cost the replay, so they are logged and the response proceeds.
func (h *Handlers) remember(c *gin.Context, userID, chatID string) {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok {
		return
	}
	if err := h.chat.Remember(c.Request.Context(), userID, middleware.GetIdempotencyScope(c), key, chatID, h.idemTTL); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
	}
}

// SendChat godoc
// @ID          sendChat
// @Summary     Send a message to a companion
// @Description Generates the companion's reply using the last five turns as memory and stores the exchange.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header    string                    false  "Replays the stored turn on retry"
// @Param       body             body      handlers.SendChatRequest  true   "Message"
// @Success     200              {object}  handlers.ChatResponse
// @Header      200              {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400              {object}  handlers.ErrorResponse
// @Failure     404              {object}  handlers.ErrorResponse  "User or companion not found"
// @Failure     429              {object}  handlers.ErrorResponse
// @Failure     500              {object}  handlers.ErrorResponse
// @Router      /chat/send [post]
func (h *Handlers) SendChat(c *gin.Context) {
	var req SendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	middleware.SetUserID(c, req.UserID)
	if h.replayed(c, req.UserID, func(t *domain.ChatTurn) any { return chatResponse(t) }) {
		return
	}

	turn, err := h.chat.Send(c.Request.Context(), services.SendInput{
		UserID:          req.UserID,
		CompanionGender: req.CompanionGender,
		Message:         sanitizeMessage(req.Message),
	})
	if err != nil {
		failService(c, err)
		return
	}
	h.remember(c, req.UserID, turn.ID)
	ok(c, http.StatusOK, chatResponse(turn))
}

// GetChatHistory godoc
// @ID          getChatHistory
// @Summary     Recent chat turns of a user
// @Description Newest first. limit defaults to 50 and is clamped to 100. Supports a weak ETag via If-None-Match.
// @Tags        Chat
// @Produce     json
// @Param       user_id           path    string  true   "User ID"
// @Param       companion_gender  query   string  false  "Only turns with this companion gender"  Enums(boy, girl)
// @Param       limit             query   int     false  "Maximum turns"  minimum(1) maximum(100) default(50)
// @Param       If-None-Match     header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.HistoryResponse
// @Header      200  {string}  ETag  "Weak ETag for the current history"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /chat/history/{user_id} [get]
func (h *Handlers) GetChatHistory(c *gin.Context) {
	ctx := c.Request.Context()
	uid := c.Param("user_id")
	gender := c.Query("companion_gender")
	limit := services.ClampHistoryLimit(utils.AtoiDefault(c.Query("limit"), services.DefaultHistoryLimit))
	middleware.SetUserID(c, uid)

	// ETag pre-check (best effort).
	count, maxTS, err := h.chat.HistoryVersion(ctx, uid, gender)
	if err != nil {
		failService(c, err)
		return
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	scope := gender
	if scope == "" {
		scope = "all"
	}
	etag := fmt.Sprintf(`W/"history:%s:%s:%d:%d:%d"`, uid, scope, limit, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	turns, err := h.chat.History(ctx, uid, gender, limit)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, HistoryResponse{UserID: uid, ChatCount: len(turns), Chats: turns})
}

// GetChatTurn godoc
// @ID          getChatTurn
// @Summary     One chat turn of a user
// @Tags        Chat
// @Produce     json
// @Param       user_id  path      string  true  "User ID"
// @Param       chat_id  path      string  true  "Chat turn ID"
// @Success     200      {object}  domain.ChatTurn
// @Failure     404      {object}  handlers.ErrorResponse
// @Router      /chat/history/{user_id}/{chat_id} [get]
func (h *Handlers) GetChatTurn(c *gin.Context) {
	uid := c.Param("user_id")
	middleware.SetUserID(c, uid)
	t, err := h.chat.Get(c.Request.Context(), uid, c.Param("chat_id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// ClearChatHistory godoc
// @ID          clearChatHistory
// @Summary     Delete a user's chat history
// @Tags        Chat
// @Produce     json
// @Param       user_id           path   string  true   "User ID"
// @Param       companion_gender  query  string  false  "Only delete turns with this companion gender"  Enums(boy, girl)
// @Success     200  {object}  handlers.ClearHistoryResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /chat/history/{user_id} [delete]
func (h *Handlers) ClearChatHistory(c *gin.Context) {
	uid := c.Param("user_id")
	middleware.SetUserID(c, uid)
	n, err := h.chat.Clear(c.Request.Context(), uid, c.Query("companion_gender"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ClearHistoryResponse{Message: "Chat history cleared successfully", DeletedCount: n})
}

// GetChatStats godoc
// @ID          getChatStats
// @Summary     Turn counts per companion gender
// @Tags        Chat
// @Produce     json
// @Param       user_id  path      string  true  "User ID"
// @Success     200      {object}  services.ChatStats
// @Router      /chat/stats/{user_id} [get]
func (h *Handlers) GetChatStats(c *gin.Context) {
	uid := c.Param("user_id")
	middleware.SetUserID(c, uid)
	st, err := h.chat.Stats(c.Request.Context(), uid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}
