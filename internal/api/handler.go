package api

import (
	"apexfolio-bot-go/internal/models"
	"apexfolio-bot-go/internal/validation"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BotService is the state service the handlers read and mutate.
type BotService interface {
	GetDashboardData(ctx context.Context) (*models.DashboardData, error)
	GetTrades(ctx context.Context) ([]models.Trade, error)
	GetLogs(ctx context.Context) ([]models.LogEntry, error)
	GetSettings(ctx context.Context) (*models.BotSettings, error)
	UpdateSettings(ctx context.Context, settings models.BotSettings) (*models.BotSettings, error)
	SetBotStatus(ctx context.Context, status models.BotStatus) error
}

// Handler serves the dashboard resources.
type Handler struct {
	service BotService
	metrics *Metrics
}

// NewHandler creates a new handler. metrics may be nil.
func NewHandler(service BotService, metrics *Metrics) *Handler {
	return &Handler{service: service, metrics: metrics}
}

// GetDashboard handles GET /api/dashboard
func (h *Handler) GetDashboard(c *gin.Context) {
	data, err := h.service.GetDashboardData(c.Request.Context())
	if err != nil {
		SendError(c, err)
		return
	}
	SendSuccess(c, data)
}

// GetTrades handles GET /api/trades
func (h *Handler) GetTrades(c *gin.Context) {
	trades, err := h.service.GetTrades(c.Request.Context())
	if err != nil {
		SendError(c, err)
		return
	}
	SendSuccess(c, trades)
}

// GetLogs handles GET /api/logs
func (h *Handler) GetLogs(c *gin.Context) {
	logs, err := h.service.GetLogs(c.Request.Context())
	if err != nil {
		SendError(c, err)
		return
	}
	SendSuccess(c, logs)
}

// GetSettings handles GET /api/settings
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context())
	if err != nil {
		SendError(c, err)
		return
	}
	SendSuccess(c, settings)
}

// UpdateSettings handles POST /api/settings. The body is validated and
// normalized before anything is written.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req validation.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendCustomError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	settings, err := validation.ValidateSettings(req)
	if err != nil {
		SendError(c, err)
		return
	}

	updated, err := h.service.UpdateSettings(c.Request.Context(), settings)
	if err != nil {
		SendError(c, err)
		return
	}

	SendSuccess(c, updated)
}

// StartBot handles POST /api/bot/start
func (h *Handler) StartBot(c *gin.Context) {
	h.setStatus(c, models.StatusRunning, "started")
}

// StopBot handles POST /api/bot/stop
func (h *Handler) StopBot(c *gin.Context) {
	h.setStatus(c, models.StatusStopped, "stopped")
}

func (h *Handler) setStatus(c *gin.Context, status models.BotStatus, ack string) {
	if err := h.service.SetBotStatus(c.Request.Context(), status); err != nil {
		SendError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SetBotStatus(status)
	}
	SendSuccess(c, models.StatusAck{Status: ack})
}

// Health handles GET /health. It reports unavailable when the backing store
// cannot be read.
func (h *Handler) Health(c *gin.Context) {
	if _, err := h.service.GetSettings(c.Request.Context()); err != nil {
		SendCustomError(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	SendSuccess(c, gin.H{"status": "ok"})
}
