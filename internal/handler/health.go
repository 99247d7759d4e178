package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medassist/pkg/api"
	"go.uber.org/zap"
)

const (
	serviceName    = "medassist-backend"
	serviceVersion = "1.0.0"
)

// Pinger checks that a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// KeyChecker reports whether any API key is available
type KeyChecker interface {
	IsConfigured(ctx context.Context) bool
}

// HealthHandler implements the health check endpoint
type HealthHandler struct {
	store         Pinger
	storageDriver string
	keys          KeyChecker
	logger        *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store Pinger, storageDriver string, keys KeyChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:         store,
		storageDriver: storageDriver,
		keys:          keys,
		logger:        logger,
	}
}

// GetHealth reports storage connectivity and whether an API key is configured.
// A missing key does not make the service unhealthy.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	resp := api.HealthResponse{
		Status:       "healthy",
		Storage:      h.storageDriver,
		AiConfigured: h.keys.IsConfigured(ctx),
		Service:      serviceName,
		Version:      serviceVersion,
	}

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed: storage unreachable",
			zap.String("driver", h.storageDriver),
			zap.Error(err),
		)
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}
