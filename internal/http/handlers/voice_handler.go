// Voice HTTP handlers.
//
// Endpoints:
//   - POST /voice/chat       (chat turn plus base64 mp3 of the reply)
//   - POST /voice/tts        (raw mp3 for arbitrary text)
//   - GET  /voice/check-tts
//   - GET  /voice/voices
//
// Voice chat never fails because of speech: without a provider, or when the
// provider refuses, audio_base64 is empty. Only /voice/tts answers 503 when
// speech is not configured.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/http/middleware"
	"github.com/tbourn/ai-companion-backend/internal/services"
	"github.com/tbourn/ai-companion-backend/internal/speech"
)

// VoiceChatRequest is a chat message with optional speech settings.
type VoiceChatRequest struct {
	SendChatRequest
	Voice string  `json:"voice" binding:"omitempty,max=32"        example:"nova"`
	Speed float64 `json:"speed" binding:"omitempty,gte=0.25,lte=4" example:"1.0"`
}

// VoiceChatResponse is a chat response plus audio ("" when unavailable).
type VoiceChatResponse struct {
	ChatResponse
	AudioBase64 string `json:"audio_base64"`
}

// TTSRequest is text to synthesize.
type TTSRequest struct {
	Text  string  `json:"text"  binding:"required,max=4096"        example:"Hello there!"`
	Voice string  `json:"voice" binding:"omitempty,max=32"         example:"nova"`
	Speed float64 `json:"speed" binding:"omitempty,gte=0.25,lte=4" example:"1.0"`
}

// TTSStatusResponse reports speech availability.
type TTSStatusResponse struct {
	TTSAvailable bool   `json:"tts_available"`
	Provider     string `json:"provider" example:"OpenAI TTS"`
	Message      string `json:"message"  example:"TTS ready"`
}

// VoicesResponse lists selectable voices.
type VoicesResponse struct {
	Voices       []speech.Voice `json:"voices"`
	Default      string         `json:"default" example:"nova"`
	TTSAvailable bool           `json:"tts_available"`
}

// VoiceChat godoc
// @ID          voiceChat
// @Summary     Chat with audio reply
// @Description Same as /chat/send, stored as a voice interaction. audio_base64 holds the mp3 reply, or "" when speech is unavailable.
// @Tags        Voice
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header    string                     false  "Replays the stored turn on retry"
// @Param       body             body      handlers.VoiceChatRequest  true   "Message"
// @Success     200              {object}  handlers.VoiceChatResponse
// @Failure     400              {object}  handlers.ErrorResponse
// @Failure     404              {object}  handlers.ErrorResponse  "User or companion not found"
// @Failure     500              {object}  handlers.ErrorResponse
// @Router      /voice/chat [post]
func (h *Handlers) VoiceChat(c *gin.Context) {
	var req VoiceChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	middleware.SetUserID(c, req.UserID)
	// Replays carry the stored text only; audio is not stored.
	if h.replayed(c, req.UserID, func(t *domain.ChatTurn) any {
		return VoiceChatResponse{ChatResponse: chatResponse(t)}
	}) {
		return
	}

	vt, err := h.voice.Chat(c.Request.Context(), services.VoiceInput{
		SendInput: services.SendInput{
			UserID:          req.UserID,
			CompanionGender: req.CompanionGender,
			Message:         sanitizeMessage(req.Message),
		},
		Voice: req.Voice,
		Speed: req.Speed,
	})
	if err != nil {
		failService(c, err)
		return
	}
	h.remember(c, req.UserID, vt.Turn.ID)
	ok(c, http.StatusOK, VoiceChatResponse{ChatResponse: chatResponse(vt.Turn), AudioBase64: vt.AudioBase64})
}

// TextToSpeech godoc
// @ID          textToSpeech
// @Summary     Synthesize speech
// @Tags        Voice
// @Accept      json
// @Produce     audio/mpeg
// @Param       body  body      handlers.TTSRequest  true  "Text and voice"
// @Success     200   {file}    binary
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     503   {object}  handlers.ErrorResponse  "Speech not configured"
// @Router      /voice/tts [post]
func (h *Handlers) TextToSpeech(c *gin.Context) {
	var req TTSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	audio, err := h.voice.Speak(c.Request.Context(), req.Text, req.Voice, req.Speed)
	if err != nil {
		failService(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=speech.mp3")
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

// CheckTTS godoc
// @ID          checkTTS
// @Summary     Speech availability
// @Tags        Voice
// @Produce     json
// @Success     200  {object}  handlers.TTSStatusResponse
// @Router      /voice/check-tts [get]
func (h *Handlers) CheckTTS(c *gin.Context) {
	if h.voice.Available() {
		ok(c, http.StatusOK, TTSStatusResponse{TTSAvailable: true, Provider: "OpenAI TTS", Message: "TTS ready"})
		return
	}
	ok(c, http.StatusOK, TTSStatusResponse{Provider: "None", Message: "Please configure OpenAI API key"})
}

// ListVoices godoc
// @ID          listVoices
// @Summary     Selectable voices
// @Tags        Voice
// @Produce     json
// @Success     200  {object}  handlers.VoicesResponse
// @Router      /voice/voices [get]
func (h *Handlers) ListVoices(c *gin.Context) {
	ok(c, http.StatusOK, VoicesResponse{
		Voices:       h.voice.Voices(),
		Default:      speech.DefaultVoice,
		TTSAvailable: h.voice.Available(),
	})
}
