// Package dashboard serves the read and summary endpoints of the dashboard.
package dashboard

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/config"
	"github.com/liliang-cn/beacon/internal/domain"
	"github.com/liliang-cn/beacon/internal/realtime"
	"github.com/liliang-cn/beacon/internal/service"
)

const summaryFailed = "Failed to generate summary"

// Handler handles dashboard API requests
type Handler struct {
	summaryService   *service.SummaryService
	dashboardService *service.DashboardService
	hub              *realtime.Hub
	stream           config.StreamConfig
	logger           *zap.Logger
}

// NewHandler creates a new dashboard handler
func NewHandler(
	summaryService *service.SummaryService,
	dashboardService *service.DashboardService,
	hub *realtime.Hub,
	stream config.StreamConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		summaryService:   summaryService,
		dashboardService: dashboardService,
		hub:              hub,
		stream:           stream,
		logger:           logger,
	}
}

// RegisterRoutes registers dashboard routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/summarize-tickets", h.SummarizeTickets)
	r.GET("/tickets/unsummarized", h.UnsummarizedTickets)
	r.POST("/summaries/today", h.SummarizeToday)
	r.GET("/summaries", h.DailySummaries)
	r.GET("/latest-sentiment", h.LatestSentiment)
	r.GET("/companies/:website_id/activity", h.CompanyActivity)
	r.GET("/logs", h.ListLogs)
	r.GET("/logs/stream", h.StreamLogs)
	r.GET("/logs/:id", h.GetLog)
}

type summarizeRequest struct {
	Tickets []*domain.LogRecord `json:"tickets"`
}

// SummarizeTickets summarizes the tickets posted by the dashboard
func (h *Handler) SummarizeTickets(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.summaryService.Summarize(c.Request.Context(), req.Tickets)
	if err != nil {
		h.logger.Error("Summarize tickets failed", zap.Int("tickets", len(req.Tickets)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": summaryFailed})
		return
	}

	c.JSON(http.StatusOK, result)
}

// UnsummarizedTickets lists today's tickets newer than the last summary
func (h *Handler) UnsummarizedTickets(c *gin.Context) {
	tickets, err := h.summaryService.UnsummarizedTickets(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tickets == nil {
		tickets = []*domain.LogRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "total": len(tickets)})
}

// SummarizeToday summarizes every ticket since the last summary of today
func (h *Handler) SummarizeToday(c *gin.Context) {
	result, err := h.summaryService.SummarizeToday(c.Request.Context())
	if err != nil {
		h.logger.Error("Summarize today failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": summaryFailed})
		return
	}

	c.JSON(http.StatusOK, result)
}

// DailySummaries returns the newest summary of each recent day
func (h *Handler) DailySummaries(c *gin.Context) {
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}

	summaries, err := h.dashboardService.DailySummaries(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summaries": summaries, "total": len(summaries)})
}

// LatestSentiment returns the newest per-message sentiment
func (h *Handler) LatestSentiment(c *gin.Context) {
	latest, err := h.dashboardService.LatestSentiment(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, latest)
}

// CompanyActivity returns daily inbound message counts for a website
func (h *Handler) CompanyActivity(c *gin.Context) {
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}

	activity, err := h.dashboardService.CompanyActivity(c.Request.Context(), c.Param("website_id"), days)
	if errors.Is(err, domain.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, activity)
}

// ListLogs returns a filtered page of log records, newest first
func (h *Handler) ListLogs(c *gin.Context) {
	q := domain.LogQuery{LogFilter: logFilter(c)}

	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	q.Limit = limit

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC 3339 timestamp"})
			return
		}
		q.Since = t
	}

	logs, err := h.dashboardService.ListLogs(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": len(logs)})
}

// GetLog returns a single log record
func (h *Handler) GetLog(c *gin.Context) {
	rec, err := h.dashboardService.GetLog(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "log not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func logFilter(c *gin.Context) domain.LogFilter {
	return domain.LogFilter{
		Source:    domain.Source(c.Query("source")),
		EventType: c.Query("event_type"),
		WebsiteID: c.Query("website_id"),
		SessionID: c.Query("session_id"),
	}
}

// intQuery reads an optional non-negative integer query parameter. On a bad
// value it writes a 400 and reports false.
func intQuery(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return n, true
}
