// internal/handlers/crm/crm_handler.go
package crm

import (
	"context"
	"net/http"
	"strconv"

	"otodealer-service/internal/domain/conversation"
	"otodealer-service/internal/domain/lead"
	"otodealer-service/internal/domain/vehicle"
	xerrors "otodealer-service/internal/pkg/errors"
	"otodealer-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConversationReader interface {
	List(ctx context.Context, tenantID string, limit, offset int) ([]*conversation.Conversation, error)
	MarkDeleted(ctx context.Context, tenantID, id string) error
}

type MessageReader interface {
	ListByConversation(ctx context.Context, tenantID, conversationID string, limit int) ([]*conversation.Message, error)
}

type LeadReader interface {
	List(ctx context.Context, tenantID string, filters *lead.LeadListFilters) ([]*lead.Lead, error)
}

type VehicleReader interface {
	ListAvailable(ctx context.Context, tenantID string, limit int) ([]*vehicle.Vehicle, error)
	Stats(ctx context.Context, tenantID string) (*vehicle.StatsByStatus, error)
}

// CRMHandler is the read side for the dashboard: conversations, message
// history, captured leads and stock.
type CRMHandler struct {
	conversations ConversationReader
	messages      MessageReader
	leads         LeadReader
	vehicles      VehicleReader
	logger        *zap.Logger
}

func NewCRMHandler(conversations ConversationReader, messages MessageReader, leads LeadReader, vehicles VehicleReader, logger *zap.Logger) *CRMHandler {
	return &CRMHandler{
		conversations: conversations,
		messages:      messages,
		leads:         leads,
		vehicles:      vehicles,
		logger:        logger,
	}
}

// ListConversations returns the tenant's threads, one row per counterparty
// phone, newest activity first.
func (h *CRMHandler) ListConversations(c *gin.Context) {
	tenantID := c.Param("tenantId")
	limit, offset := pagination(c)

	result, err := h.conversations.List(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list conversations", err)
		return
	}

	response.Success(c, http.StatusOK, "conversations retrieved", result)
}

// ListMessages returns one conversation's history, oldest first.
func (h *CRMHandler) ListMessages(c *gin.Context) {
	tenantID := c.Param("tenantId")
	conversationID := c.Param("id")
	limit, _ := pagination(c)

	result, err := h.messages.ListByConversation(c.Request.Context(), tenantID, conversationID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list messages", err)
		return
	}

	response.Success(c, http.StatusOK, "messages retrieved", result)
}

// DeleteConversation hides a thread from the dashboard. The row and its
// messages stay in storage.
func (h *CRMHandler) DeleteConversation(c *gin.Context) {
	tenantID := c.Param("tenantId")
	conversationID := c.Param("id")

	if err := h.conversations.MarkDeleted(c.Request.Context(), tenantID, conversationID); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "conversation not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to delete conversation", err)
		return
	}

	response.Success(c, http.StatusOK, "conversation deleted", nil)
}

// ListLeads returns captured leads, optionally filtered by status.
func (h *CRMHandler) ListLeads(c *gin.Context) {
	tenantID := c.Param("tenantId")
	limit, offset := pagination(c)

	filters := &lead.LeadListFilters{
		Page:     offset/limit + 1,
		PageSize: limit,
	}
	if s := c.Query("status"); s != "" {
		status := lead.Status(s)
		filters.Status = &status
	}

	result, err := h.leads.List(c.Request.Context(), tenantID, filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list leads", err)
		return
	}

	response.Success(c, http.StatusOK, "leads retrieved", result)
}

// ListVehicles returns the tenant's available stock.
func (h *CRMHandler) ListVehicles(c *gin.Context) {
	tenantID := c.Param("tenantId")
	limit, _ := pagination(c)

	result, err := h.vehicles.ListAvailable(c.Request.Context(), tenantID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list vehicles", err)
		return
	}

	response.Success(c, http.StatusOK, "vehicles retrieved", result)
}

// VehicleStats returns stock counts per status.
func (h *CRMHandler) VehicleStats(c *gin.Context) {
	tenantID := c.Param("tenantId")

	result, err := h.vehicles.Stats(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load vehicle stats", err)
		return
	}

	response.Success(c, http.StatusOK, "vehicle stats retrieved", result)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
