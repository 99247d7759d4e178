package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medassist/internal/audit"
	"github.com/vcscsvcscs/medassist/internal/credential"
	"github.com/vcscsvcscs/medassist/internal/repository"
	"github.com/vcscsvcscs/medassist/pkg/api"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// SettingsHandler implements the profile and API key endpoints
type SettingsHandler struct {
	profiles    *repository.ProfileRepository
	credentials *credential.Store
	auditor     Auditor
	logger      *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(profiles *repository.ProfileRepository, credentials *credential.Store, auditor Auditor, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		profiles:    profiles,
		credentials: credentials,
		auditor:     auditor,
		logger:      logger,
	}
}

// GetProfile returns the stored profile or the default one
func (h *SettingsHandler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.profiles.Get(c.Request.Context()))
}

// PutProfile overwrites the profile
func (h *SettingsHandler) PutProfile(c *gin.Context) {
	var profile model.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		validationError(c, h.logger, "Invalid request body", err)
		return
	}
	if profile.Age != nil && (*profile.Age < 0 || *profile.Age > 130) {
		validationError(c, h.logger, "Age must be between 0 and 130", nil)
		return
	}
	if profile.Sex == "" {
		profile.Sex = model.SexUnspecified
	}
	if profile.ChronicConditions == nil {
		profile.ChronicConditions = []string{}
	}
	if profile.Allergies == nil {
		profile.Allergies = []string{}
	}

	if err := h.profiles.Save(c.Request.Context(), profile); err != nil {
		respondError(c, h.logger, "save_profile", err)
		return
	}
	recordAudit(c, h.auditor, h.logger, audit.OperationUpdate, audit.ResourceProfile, "")
	c.JSON(http.StatusOK, profile)
}

func toAPISummary(s credential.Summary) api.CredentialsSummary {
	masked := s.Masked
	if masked == nil {
		masked = []string{}
	}
	return api.CredentialsSummary{
		Configured: s.Configured,
		Count:      s.Count,
		Source:     string(s.Source),
		Masked:     masked,
	}
}

// GetCredentials reports whether API keys are configured, without revealing them
func (h *SettingsHandler) GetCredentials(c *gin.Context) {
	c.JSON(http.StatusOK, toAPISummary(h.credentials.Summary(c.Request.Context())))
}

// PutCredentials replaces the stored API keys. An empty list clears them.
func (h *SettingsHandler) PutCredentials(c *gin.Context) {
	var req api.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, h.logger, "Invalid request body", err)
		return
	}

	if err := h.credentials.Save(c.Request.Context(), req.Keys); err != nil {
		respondError(c, h.logger, "save_credentials", err)
		return
	}
	op := audit.OperationUpdate
	if len(req.Keys) == 0 {
		op = audit.OperationDelete
	}
	recordAudit(c, h.auditor, h.logger, op, audit.ResourceCredentials, "")
	c.JSON(http.StatusOK, toAPISummary(h.credentials.Summary(c.Request.Context())))
}

// DeleteCredentials removes the stored API keys
func (h *SettingsHandler) DeleteCredentials(c *gin.Context) {
	if err := h.credentials.Clear(c.Request.Context()); err != nil {
		respondError(c, h.logger, "clear_credentials", err)
		return
	}
	recordAudit(c, h.auditor, h.logger, audit.OperationDelete, audit.ResourceCredentials, "")
	c.JSON(http.StatusOK, toAPISummary(h.credentials.Summary(c.Request.Context())))
}
