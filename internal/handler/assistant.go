package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medassist/internal/capture"
	"github.com/vcscsvcscs/medassist/internal/service"
	"github.com/vcscsvcscs/medassist/pkg/api"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// Pharmacist answers over-the-counter medicine questions
type Pharmacist interface {
	Pharmacy(ctx context.Context, query string) (*model.PharmacyResult, error)
}

// AssistantHandler implements the stateless assistant endpoints
type AssistantHandler struct {
	pharmacist     Pharmacist
	transcriber    service.Transcriber
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewAssistantHandler creates a new AssistantHandler
func NewAssistantHandler(pharmacist Pharmacist, transcriber service.Transcriber, maxUploadBytes int64, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{
		pharmacist:     pharmacist,
		transcriber:    transcriber,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// LookupPharmacy suggests medicines for a symptom or medicine name
func (h *AssistantHandler) LookupPharmacy(c *gin.Context) {
	var req api.PharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, h.logger, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		validationError(c, h.logger, "Query must not be empty", nil)
		return
	}

	result, err := h.pharmacist.Pharmacy(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, h.logger, "pharmacy", err)
		return
	}

	h.logger.Info("pharmacy lookup completed",
		zap.Int("medicines", len(result.Medicines)),
		zap.Bool("see_doctor", result.SeeDoctor),
	)
	c.JSON(http.StatusOK, result)
}

// Transcribe converts an uploaded voice recording to text
func (h *AssistantHandler) Transcribe(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		validationError(c, h.logger, "An audio file is required", err)
		return
	}

	audio, err := capture.Once(c.Request.Context(), capture.FromMultipart(fh, h.maxUploadBytes))
	if err == nil {
		// webm containers are sniffed as video
		if audio.MIMEType == "video/webm" {
			audio.MIMEType = "audio/webm"
		}
		err = capture.Expect(audio, "audio")
	}
	if err != nil {
		rejectUpload(c, h.logger, "The uploaded file is not a supported recording", err)
		return
	}

	text, err := h.transcriber.Transcribe(c.Request.Context(), audio)
	if err != nil {
		respondError(c, h.logger, "transcription", err)
		return
	}

	h.logger.Info("recording transcribed",
		zap.String("mime_type", audio.MIMEType),
		zap.Int("audio_bytes", len(audio.Data)),
		zap.Int("text_length", len(text)),
	)
	c.JSON(http.StatusOK, api.TranscriptionResponse{Text: text})
}
