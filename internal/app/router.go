// internal/app/router.go
package app

import (
	crmHandler "otodealer-service/internal/handlers/crm"
	webhookHandler "otodealer-service/internal/handlers/webhook"
	wsHandler "otodealer-service/internal/handlers/websocket"
	"otodealer-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	WebhookHandler *webhookHandler.WebhookHandler
	CRMHandler     *crmHandler.CRMHandler
	WSHandler      *wsHandler.WebSocketHandler
	WebhookToken   string
	DashboardToken string
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Gateway Webhook ====================
	webhook := api.Group("/webhook")
	webhook.Use(middleware.RequireToken(h.WebhookToken))
	{
		webhook.POST("/whatsapp", h.WebhookHandler.HandleInbound)
	}

	// ==================== Dashboard Live Feed ====================
	r.GET("/ws/:tenantId", h.WSHandler.HandleConnection)

	// ==================== Dashboard Read API ====================
	tenants := api.Group("/tenants/:tenantId")
	tenants.Use(middleware.RequireToken(h.DashboardToken))
	{
		tenants.GET("/conversations", h.CRMHandler.ListConversations)
		tenants.GET("/conversations/:id/messages", h.CRMHandler.ListMessages)
		tenants.DELETE("/conversations/:id", h.CRMHandler.DeleteConversation)

		tenants.GET("/leads", h.CRMHandler.ListLeads)

		tenants.GET("/vehicles", h.CRMHandler.ListVehicles)
		tenants.GET("/vehicles/stats", h.CRMHandler.VehicleStats)
	}
}
