// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpr-service/internal/config"
	"escpr-service/internal/protocol"
	"escpr-service/internal/service"
	"escpr-service/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	config    *config.Config
	startTime time.Time
	logger    *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		config:    config,
		startTime: time.Now(),
		logger:    utils.NewServiceLogger(logger, "health-handler"),
	}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.HealthCheck)
	router.GET("/live", h.LivenessCheck)
}

// HealthCheck reports the service version and whether the printer
// connection is usable
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Printer connection misconfigured"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	settings := service.ProtocolSettings(&h.config.Printer)

	health := &HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now(),
		Service:    h.config.App.Name,
		Version:    h.config.App.Version,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Connection: string(settings.Type),
		Checks:     make(map[string]CheckResult),
	}

	if err := protocol.ValidateSettings(settings); err != nil {
		h.logger.Warn("Printer connection misconfigured", zap.Error(err))
		health.Status = "unhealthy"
		health.Checks["printer"] = CheckResult{Status: "unhealthy", Message: err.Error()}
	} else {
		health.Checks["printer"] = CheckResult{Status: "healthy", Message: "Printer connection configured"}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// LivenessCheck answers as long as the process serves requests
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Service    string                 `json:"service"`
	Version    string                 `json:"version"`
	Uptime     string                 `json:"uptime"`
	Connection string                 `json:"connection"`
	Checks     map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
