// Package webhook serves the inbound webhooks of the chat widget and SMS providers.
package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/service"
)

// EmptyTwiML is the acknowledgment the SMS provider expects
const EmptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// Handler handles webhook requests
type Handler struct {
	orchestrator *service.Orchestrator
	logger       *zap.Logger
}

// NewHandler creates a new webhook handler
func NewHandler(orchestrator *service.Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, logger: logger}
}

// RegisterRoutes registers webhook routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/crisp", h.ChatWidget)
	r.POST("/twilio", h.SMS)
}

// ChatWidget handles a chat widget event
func (h *Handler) ChatWidget(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.orchestrator.HandleChatWidget(c.Request.Context(), body); err != nil {
		h.logger.Error("Chat widget webhook failed", zap.Error(err))
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SMS handles an inbound SMS. The reply is always an empty TwiML document;
// only the status code tells the provider whether processing failed.
func (h *Handler) SMS(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.logger.Error("Unreadable SMS webhook form", zap.Error(err))
		c.Data(http.StatusInternalServerError, "text/xml", []byte(EmptyTwiML))
		return
	}

	if err := h.orchestrator.HandleSMS(c.Request.Context(), c.Request.PostForm); err != nil {
		h.logger.Error("SMS webhook failed", zap.Error(err))
		c.Data(http.StatusInternalServerError, "text/xml", []byte(EmptyTwiML))
		return
	}

	c.Data(http.StatusOK, "text/xml", []byte(EmptyTwiML))
}
