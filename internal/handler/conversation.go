package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medassist/internal/capture"
	"github.com/vcscsvcscs/medassist/internal/service"
	"github.com/vcscsvcscs/medassist/internal/session"
	"github.com/vcscsvcscs/medassist/pkg/api"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// ConversationHandler implements the session endpoints for one session kind
type ConversationHandler struct {
	manager        *session.Manager
	allowImages    bool
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewConversationHandler creates a handler for manager. Image attachments are
// rejected unless allowImages is set.
func NewConversationHandler(manager *session.Manager, allowImages bool, maxUploadBytes int64, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		manager:        manager,
		allowImages:    allowImages,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(zap.String("session_kind", string(manager.Kind()))),
	}
}

func (h *ConversationHandler) response(s model.Session) api.SessionResponse {
	return api.SessionResponse{
		Session: s,
		Active:  h.manager.ActiveID() == s.ID,
		Pending: h.manager.Pending(s.ID),
	}
}

func (h *ConversationHandler) fail(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		notFound(c, "Session not found")
	case errors.Is(err, session.ErrBusy):
		conflict(c, "Please wait for the current reply")
	case errors.Is(err, session.ErrEmptyMessage):
		validationError(c, h.logger, "Message must contain text or an image", err)
	default:
		respondError(c, h.logger, operation, err)
	}
}

// Resume returns the active session, selecting or creating one
func (h *ConversationHandler) Resume(c *gin.Context) {
	s, err := h.manager.Resume(c.Request.Context())
	if err != nil {
		h.fail(c, "resume_session", err)
		return
	}
	c.JSON(http.StatusOK, h.response(s))
}

// List returns all sessions, newest first
func (h *ConversationHandler) List(c *gin.Context) {
	sessions := h.manager.List(c.Request.Context())
	resp := api.SessionList{Sessions: sessions}
	if id := h.manager.ActiveID(); id != "" {
		resp.ActiveId = &id
	}
	c.JSON(http.StatusOK, resp)
}

// Create starts a new session and makes it active
func (h *ConversationHandler) Create(c *gin.Context) {
	s, err := h.manager.Create(c.Request.Context())
	if err != nil {
		h.fail(c, "create_session", err)
		return
	}
	c.JSON(http.StatusCreated, h.response(s))
}

// Get returns one session
func (h *ConversationHandler) Get(c *gin.Context, id string) {
	s, err := h.manager.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get_session", err)
		return
	}
	c.JSON(http.StatusOK, h.response(s))
}

// Delete removes a session and returns the session that is active afterwards
func (h *ConversationHandler) Delete(c *gin.Context, id string) {
	s, err := h.manager.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete_session", err)
		return
	}
	c.JSON(http.StatusOK, h.response(s))
}

// Activate makes a session the active one
func (h *ConversationHandler) Activate(c *gin.Context, id string) {
	s, err := h.manager.Activate(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "activate_session", err)
		return
	}
	c.JSON(http.StatusOK, h.response(s))
}

// Send appends a user message and waits for the assistant reply
func (h *ConversationHandler) Send(c *gin.Context, id string) {
	var req api.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, h.logger, "Invalid request body", err)
		return
	}

	image, err := h.attachment(req)
	if err != nil {
		rejectUpload(c, h.logger, "The attached image is not supported", err)
		return
	}

	reply, err := h.manager.Send(c.Request.Context(), id, req.Text, image)
	if err != nil {
		h.fail(c, "send_message", err)
		return
	}

	s, err := h.manager.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "send_message", err)
		return
	}

	c.JSON(http.StatusOK, api.SendMessageResponse{Reply: reply, Session: s})
}

func (h *ConversationHandler) attachment(req api.SendMessageRequest) (*service.Blob, error) {
	if req.Image == nil || len(*req.Image) == 0 {
		return nil, nil
	}
	if !h.allowImages {
		return nil, fmt.Errorf("%w: %s sessions do not accept images", capture.ErrUnsupportedMedia, h.manager.Kind())
	}
	if h.maxUploadBytes > 0 && int64(len(*req.Image)) > h.maxUploadBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", capture.ErrTooLarge, h.maxUploadBytes)
	}

	declared := ""
	if req.ImageMimeType != nil {
		declared = *req.ImageMimeType
	}
	blob := service.Blob{Data: *req.Image, MIMEType: capture.Sniff(*req.Image, declared)}
	if err := capture.Expect(blob, "image"); err != nil {
		return nil, err
	}
	return &blob, nil
}
