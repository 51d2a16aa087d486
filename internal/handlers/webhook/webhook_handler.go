// internal/handlers/webhook/webhook_handler.go
package webhook

import (
	"net/http"

	"otodealer-service/internal/pkg/response"
	"otodealer-service/internal/service/pipeline"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
}

func NewWebhookHandler(p *pipeline.Pipeline, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		pipeline: p,
		logger:   logger,
	}
}

// HandleInbound accepts one message delivery from the WhatsApp gateway.
// The gateway retries on non-2xx, so handler failures inside the pipeline
// still return 200: the pipeline already answered the sender with a
// fallback, and a retry would only trip the duplicate window.
func (h *WebhookHandler) HandleInbound(c *gin.Context) {
	var in pipeline.Inbound
	if err := c.ShouldBindJSON(&in); err != nil {
		response.ValidationError(c, "invalid webhook payload", err)
		return
	}
	if in.TenantID == "" {
		response.ValidationError(c, "tenantId is required", nil)
		return
	}

	out, err := h.pipeline.Process(c.Request.Context(), in)
	if err != nil {
		h.logger.Error("webhook turn failed",
			zap.String("tenant_id", in.TenantID),
			zap.Error(err),
		)
		response.Error(c, http.StatusBadRequest, "failed to process message", err)
		return
	}

	if out.Dropped {
		response.Success(c, http.StatusOK, "message dropped", out)
		return
	}
	response.Success(c, http.StatusOK, "message processed", out)
}
