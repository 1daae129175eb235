package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"destination_assistant/internal/conversation"
	"destination_assistant/internal/core"
	"destination_assistant/internal/handoff"
	"destination_assistant/internal/logger"
	"destination_assistant/internal/voice"
	"destination_assistant/pkg"
)

// Voice is the speech surface the chat handler drives. It is optional.
type Voice interface {
	Capture(ctx context.Context) (string, error)
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
	Speak(ctx context.Context, text string) *voice.Playback
	Speaking() bool
	SetLanguage(locale string)
}

type ChatDeps struct {
	Assistant   *core.Assistant
	Store       conversation.Store
	Publisher   handoff.Publisher
	Voice       Voice
	TurnTimeout time.Duration
}

type ChatHandler struct {
	assistant   *core.Assistant
	store       conversation.Store
	publisher   handoff.Publisher
	voice       Voice
	turnTimeout time.Duration
	locks       *sessionLocks
	log         zerolog.Logger

	mu        sync.Mutex
	playbacks map[string]*voice.Playback
}

func NewChatHandler(deps ChatDeps) *ChatHandler {
	timeout := deps.TurnTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &ChatHandler{
		assistant:   deps.Assistant,
		store:       deps.Store,
		publisher:   deps.Publisher,
		voice:       deps.Voice,
		turnTimeout: timeout,
		locks:       newSessionLocks(),
		log:         logger.With("chat"),
		playbacks:   make(map[string]*voice.Playback),
	}
}

type messageReq struct {
	Message string `json:"message"`
}

type turnResponse struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript,omitempty"`
	pkg.Result
}

// Page handles GET /.
func (h *ChatHandler) Page(c *gin.Context) {
	c.HTML(http.StatusOK, "index.gohtml", gin.H{"VoiceEnabled": h.voice != nil})
}

// CreateSession handles POST /api/sessions.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	s := core.StartSession(uuid.NewString())
	if err := h.store.Save(c.Request.Context(), s); err != nil {
		h.log.Error().Err(err).Msg("Failed to save new session")
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusCreated, s)
}

// GetSession handles GET /api/sessions/:id.
func (h *ChatHandler) GetSession(c *gin.Context) {
	s, ok := h.loadSession(c.Request.Context(), c, c.Param("id"))
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, s)
}

// SendMessage handles POST /api/sessions/:id/messages.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req messageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(c, http.StatusBadRequest, "missing message")
		return
	}
	h.runTurn(c, c.Param("id"), req.Message, "")
}

// Listen handles POST /api/sessions/:id/listen using the server microphone.
// An optional ?language= locale switches recognition and the reply voice.
func (h *ChatHandler) Listen(c *gin.Context) {
	if h.voice == nil {
		writeError(c, http.StatusNotImplemented, "voice is disabled")
		return
	}
	id := c.Param("id")
	if !h.checkOpen(c, id) {
		return
	}

	h.setLanguage(c.Query("language"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.turnTimeout)
	defer cancel()

	text, err := h.voice.Capture(ctx)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, voice.Message(err))
		return
	}
	h.runTurn(c, id, text, text)
}

// UploadVoice handles POST /api/sessions/:id/voice with a multipart "file"
// field and an optional "language" field.
func (h *ChatHandler) UploadVoice(c *gin.Context) {
	if h.voice == nil {
		writeError(c, http.StatusNotImplemented, "voice is disabled")
		return
	}
	id := c.Param("id")
	if !h.checkOpen(c, id) {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "audio file is required (field 'file')")
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable audio file")
		return
	}
	defer file.Close()
	h.setLanguage(c.PostForm("language"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.turnTimeout)
	defer cancel()

	text, err := h.voice.Transcribe(ctx, file, header.Filename)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, voice.Message(err))
		return
	}
	h.runTurn(c, id, text, text)
}

// Stop handles POST /api/sessions/:id/stop.
func (h *ChatHandler) Stop(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.loadSession(c.Request.Context(), c, id); !ok {
		return
	}
	stopped := h.stopPlayback(id)
	writeJSON(c, http.StatusOK, gin.H{"stopped": stopped})
}

// Reset handles POST /api/sessions/:id/reset, starting over under the same id.
func (h *ChatHandler) Reset(c *gin.Context) {
	id := c.Param("id")
	unlock := h.locks.Lock(id)
	defer unlock()

	if _, ok := h.loadSession(c.Request.Context(), c, id); !ok {
		return
	}
	h.stopPlayback(id)

	s := core.StartSession(id)
	if err := h.store.Save(c.Request.Context(), s); err != nil {
		h.log.Error().Err(err).Str("session_id", id).Msg("Failed to reset session")
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, s)
}

func (h *ChatHandler) runTurn(c *gin.Context, id, input, transcript string) {
	unlock := h.locks.Lock(id)
	defer unlock()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.turnTimeout)
	defer cancel()

	s, ok := h.loadSession(ctx, c, id)
	if !ok {
		return
	}
	if s.Completed {
		writeError(c, http.StatusConflict, core.ErrSessionComplete.Error())
		return
	}

	result := h.assistant.ProcessInput(ctx, s, input)
	resp := turnResponse{SessionID: id, Transcript: transcript, Result: result}
	if result.Status == pkg.StatusError {
		writeJSON(c, http.StatusBadGateway, resp)
		return
	}

	if err := h.store.Save(ctx, s); err != nil {
		h.log.Error().Err(err).Str("session_id", id).Msg("Failed to save session")
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}

	if result.Status == pkg.StatusReady && h.publisher != nil {
		if err := h.publisher.Publish(ctx, id, *result.HandoffData); err != nil {
			h.log.Error().Err(err).Str("session_id", id).Msg("Failed to publish handoff")
		}
	}

	h.speak(id, result.Response)
	writeJSON(c, http.StatusOK, resp)
}

// speak starts playback unless something is already playing.
func (h *ChatHandler) speak(id, text string) {
	if h.voice == nil || text == "" || h.voice.Speaking() {
		return
	}
	p := h.voice.Speak(context.Background(), text)

	h.mu.Lock()
	h.playbacks[id] = p
	h.mu.Unlock()

	go func() {
		<-p.Done()
		h.mu.Lock()
		if h.playbacks[id] == p {
			delete(h.playbacks, id)
		}
		h.mu.Unlock()
	}()
}

// setLanguage switches the shared voice locale when the request names one.
func (h *ChatHandler) setLanguage(locale string) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return
	}
	h.voice.SetLanguage(locale)
	h.log.Debug().Str("language", locale).Msg("Voice language changed")
}

func (h *ChatHandler) stopPlayback(id string) bool {
	h.mu.Lock()
	p, ok := h.playbacks[id]
	h.mu.Unlock()
	if !ok {
		return false
	}
	p.Stop()
	return true
}

// checkOpen verifies the session exists and can still take turns.
func (h *ChatHandler) checkOpen(c *gin.Context, id string) bool {
	s, ok := h.loadSession(c.Request.Context(), c, id)
	if !ok {
		return false
	}
	if s.Completed {
		writeError(c, http.StatusConflict, core.ErrSessionComplete.Error())
		return false
	}
	return true
}

func (h *ChatHandler) loadSession(ctx context.Context, c *gin.Context, id string) (*pkg.Session, bool) {
	s, err := h.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			writeError(c, http.StatusNotFound, err.Error())
		} else {
			h.log.Error().Err(err).Str("session_id", id).Msg("Failed to load session")
			writeError(c, http.StatusInternalServerError, "internal error")
		}
		return nil, false
	}
	return s, true
}
