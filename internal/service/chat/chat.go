// internal/service/chat/chat.go
package chat

import (
	"context"
	"fmt"

	"otodealer-service/internal/ai"
	"otodealer-service/internal/domain/conversation"
	"otodealer-service/internal/domain/vehicle"

	"go.uber.org/zap"
)

// HistoryReader supplies the recent transcript of a conversation.
type HistoryReader interface {
	ListByConversation(ctx context.Context, tenantID, conversationID string, limit int) ([]*conversation.Message, error)
}

// InventoryReader supplies the live inventory excerpt for the prompt.
type InventoryReader interface {
	ListAvailable(ctx context.Context, tenantID string, limit int) ([]*vehicle.Vehicle, error)
}

// Responder produces the AI reply for one customer turn.
type Responder struct {
	assistant   ai.Assistant
	history     HistoryReader
	inventory   InventoryReader
	personality Personality
	turns       int
	logger      *zap.Logger
}

func NewResponder(assistant ai.Assistant, history HistoryReader, inventory InventoryReader, personality Personality, historyTurns int, logger *zap.Logger) *Responder {
	if historyTurns <= 0 {
		historyTurns = 10
	}
	return &Responder{
		assistant:   assistant,
		history:     history,
		inventory:   inventory,
		personality: personality,
		turns:       historyTurns,
		logger:      logger,
	}
}

// Reply composes the prompt and asks the assistant. History and inventory
// reads are best-effort; a missing transcript degrades the prompt, it does
// not fail the turn.
func (r *Responder) Reply(ctx context.Context, conv *conversation.Conversation, text string, isStaff bool) (string, error) {
	lc := LeadContext{
		KnownName:  conv.Context[conversation.CtxName],
		KnownCity:  conv.Context[conversation.CtxCity],
		LastIntent: conv.LastIntent,
		IsStaff:    isStaff,
	}

	units, err := r.inventory.ListAvailable(ctx, conv.TenantID, 10)
	if err != nil {
		r.logger.Warn("inventory excerpt unavailable", zap.String("tenant_id", conv.TenantID), zap.Error(err))
	}

	var history []ai.ChatMessage
	msgs, err := r.history.ListByConversation(ctx, conv.TenantID, conv.ID, r.turns)
	if err != nil {
		r.logger.Warn("transcript unavailable", zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	for _, m := range msgs {
		role := "user"
		if m.Direction == conversation.DirectionOutbound {
			role = "assistant"
		}
		history = append(history, ai.ChatMessage{Role: role, Content: m.Content})
	}

	spec := BuildPromptSpec(r.personality, lc, units)
	reply, err := r.assistant.Ask(ctx, spec.System(), history, text)
	if err != nil {
		return "", fmt.Errorf("assistant reply failed: %w", err)
	}
	return reply, nil
}
