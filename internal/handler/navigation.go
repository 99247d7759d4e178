package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medassist/internal/capture"
	"github.com/vcscsvcscs/medassist/internal/navigation"
	"github.com/vcscsvcscs/medassist/internal/repository"
	"github.com/vcscsvcscs/medassist/pkg/api"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// NavigationHandler implements screen navigation, analysis and triage endpoints
type NavigationHandler struct {
	controller     *navigation.Controller
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewNavigationHandler creates a new NavigationHandler
func NewNavigationHandler(controller *navigation.Controller, maxUploadBytes int64, logger *zap.Logger) *NavigationHandler {
	return &NavigationHandler{
		controller:     controller,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func toAPIState(s navigation.State) api.NavigationState {
	out := api.NavigationState{
		Screen: string(s.Screen),
		Busy:   s.Busy,
		Error:  optionalString(s.Error),
		Result: s.Result,
		Record: s.Record,
		Triage: s.Triage,
	}
	if s.Modality != "" {
		m := s.Modality
		out.Modality = &m
	}
	return out
}

// GetNavigation returns the current screen state
func (h *NavigationHandler) GetNavigation(c *gin.Context) {
	c.JSON(http.StatusOK, toAPIState(h.controller.State()))
}

// Navigate performs an explicit user transition
func (h *NavigationHandler) Navigate(c *gin.Context) {
	var req api.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, h.logger, "Invalid request body", err)
		return
	}

	state, err := h.controller.Navigate(navigation.Screen(req.Screen))
	switch {
	case errors.Is(err, navigation.ErrUnknownScreen):
		validationError(c, h.logger, "Unknown screen", err)
	case errors.Is(err, navigation.ErrTransitionNotAllowed):
		conflict(c, "This screen can only be reached through its operation")
	case err != nil:
		respondError(c, h.logger, "navigate", err)
	default:
		c.JSON(http.StatusOK, toAPIState(state))
	}
}

// NavigateBack moves to the parent screen
func (h *NavigationHandler) NavigateBack(c *gin.Context) {
	c.JSON(http.StatusOK, toAPIState(h.controller.Back()))
}

// StartAnalysis analyzes one uploaded image. Analysis failures are reported in
// the returned state, not as an HTTP error, so the client shows them on the
// camera screen.
func (h *NavigationHandler) StartAnalysis(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		validationError(c, h.logger, "An image file is required", err)
		return
	}

	image, err := capture.Once(c.Request.Context(), capture.FromMultipart(fh, h.maxUploadBytes))
	if err == nil {
		err = capture.Expect(image, "image")
	}
	if err != nil {
		rejectUpload(c, h.logger, "The uploaded file is not a supported image", err)
		return
	}

	modality := model.Modality(c.PostForm("modality"))
	state, err := h.controller.StartAnalysis(c.Request.Context(), image, modality)
	switch {
	case errors.Is(err, navigation.ErrBusy):
		conflict(c, "An analysis is already in progress")
	case errors.Is(err, navigation.ErrAbandoned):
		conflict(c, "The analysis was cancelled")
	case err != nil:
		respondError(c, h.logger, "analysis", err)
	default:
		c.JSON(http.StatusOK, toAPIState(state))
	}
}

// CancelAnalysis abandons the analysis in flight
func (h *NavigationHandler) CancelAnalysis(c *gin.Context) {
	c.JSON(http.StatusOK, toAPIState(h.controller.CancelAnalysis()))
}

// SubmitTriage scores the symptom questionnaire
func (h *NavigationHandler) SubmitTriage(c *gin.Context) {
	var req api.TriageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, h.logger, "Invalid request body", err)
		return
	}

	input := model.TriageInput{
		CoughDuration:       model.SymptomDuration(req.CoughDuration),
		Fever:               req.Fever,
		NightSweats:         req.NightSweats,
		WeightLoss:          req.WeightLoss,
		CoughingBlood:       req.CoughingBlood,
		ChestPain:           req.ChestPain,
		BreathingDifficulty: req.BreathingDifficulty,
		TBContact:           req.TbContact,
		VisualObservation:   req.VisualObservation,
	}
	if !input.CoughDuration.Valid() {
		validationError(c, h.logger, "Unknown cough duration", nil)
		return
	}

	state, err := h.controller.SubmitTriage(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, "triage", err)
		return
	}
	c.JSON(http.StatusOK, toAPIState(state))
}

// OpenRecord shows a stored record on the details screen
func (h *NavigationHandler) OpenRecord(c *gin.Context, id string) {
	state, err := h.controller.OpenRecord(c.Request.Context(), id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		notFound(c, "Record not found")
		return
	}
	if err != nil {
		respondError(c, h.logger, "open_record", err)
		return
	}
	c.JSON(http.StatusOK, toAPIState(state))
}
