package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medassist/internal/audit"
	"github.com/vcscsvcscs/medassist/internal/capture"
	"github.com/vcscsvcscs/medassist/internal/service"
	"github.com/vcscsvcscs/medassist/pkg/api"
	"go.uber.org/zap"
)

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// optionalString returns nil for the empty string
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// validationError writes the standard 400 response for a malformed request
func validationError(c *gin.Context, logger *zap.Logger, message string, err error) {
	logger.Warn("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	resp := api.ErrorResponse{
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
	if err != nil {
		resp.Details = stringPtr(err.Error())
	}
	c.JSON(http.StatusBadRequest, resp)
}

// notFound writes the standard 404 response
func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, api.ErrorResponse{
		Code:    "NOT_FOUND",
		Message: message,
	})
}

// conflict writes the standard 409 response
func conflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, api.ErrorResponse{
		Code:    "CONFLICT",
		Message: message,
	})
}

// rejectUpload writes the response for an upload that could not be accepted.
// unsupported is the message for a file of the wrong kind.
func rejectUpload(c *gin.Context, logger *zap.Logger, unsupported string, err error) {
	switch {
	case errors.Is(err, capture.ErrTooLarge):
		logger.Warn("upload too large", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{
			Code:    "PAYLOAD_TOO_LARGE",
			Message: "The uploaded file is too large",
			Details: stringPtr(err.Error()),
		})
	case errors.Is(err, capture.ErrUnsupportedMedia), errors.Is(err, capture.ErrEmptyCapture):
		validationError(c, logger, unsupported, err)
	default:
		respondError(c, logger, "upload", err)
	}
}

// respondError maps a service failure to its status and user-facing message.
// The error is attached to the gin context so the error logging middleware
// records it with the request.
func respondError(c *gin.Context, logger *zap.Logger, operation string, err error) {
	failure := service.Describe(err)

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("code", failure.Code),
		zap.Error(err),
	}
	if failure.Status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Warn("request failed", fields...)
	}

	_ = c.Error(err)
	c.JSON(failure.Status, api.ErrorResponse{
		Code:    failure.Code,
		Message: failure.Message,
	})
}

// Auditor records sensitive operations
type Auditor interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// recordAudit adds an entry to the audit trail. A failed write is logged and
// does not fail the request.
func recordAudit(c *gin.Context, auditor Auditor, logger *zap.Logger, op audit.OperationType, resource audit.ResourceType, resourceID string) {
	if auditor == nil {
		return
	}
	err := auditor.Log(c.Request.Context(), audit.Entry{
		OperationType: op,
		ResourceType:  resource,
		ResourceID:    resourceID,
		IPAddress:     c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	})
	if err != nil {
		logger.Warn("failed to record audit entry",
			zap.String("operation", string(op)),
			zap.String("resource_type", string(resource)),
			zap.Error(err),
		)
	}
}
