// internal/handlers/websocket/websocket_handler.go
package websocket

import (
	"crypto/subtle"
	"net/http"

	"otodealer-service/internal/pkg/response"
	"otodealer-service/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades dashboard connections onto the live message
// feed. Access is gated by the shared dashboard token; the tenant comes
// from the path so one connection sees exactly one tenant's events.
type WebSocketHandler struct {
	hub    *ws.Hub
	token  string
	logger *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, token string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		token:  token,
		logger: logger,
	}
}

func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	tenantID := c.Param("tenantId")
	if tenantID == "" {
		response.ValidationError(c, "tenant id is required", nil)
		return
	}

	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("X-Dashboard-Token")
	}
	if h.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
		response.Unauthorized(c, "invalid dashboard token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	h.logger.Info("dashboard feed connected",
		zap.String("tenant_id", tenantID),
		zap.String("ip", c.ClientIP()),
	)

	client := ws.NewClient(h.hub, conn, tenantID)
	go client.Serve()
}
