// internal/repository/postgres/message_repo.go
package postgres

import (
	"context"
	"fmt"

	"otodealer-service/internal/domain/conversation"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends one immutable message row. Messages are never updated.
func (r *MessageRepository) Create(ctx context.Context, m *conversation.Message) error {
	query := `
		INSERT INTO messages (
			id, conversation_id, tenant_id, direction, sender_name, sender_type,
			content, media_refs, intent, ai_generated, gateway_id, gateway_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		m.ID, m.ConversationID, m.TenantID, m.Direction, m.SenderName, m.SenderType,
		m.Content, pq.StringArray(m.MediaRefs), m.Intent, m.AIGenerated, m.GatewayID, m.GatewayStatus,
	).Scan(&m.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// ListByConversation returns messages of a conversation, newest last.
func (r *MessageRepository) ListByConversation(ctx context.Context, tenantID, conversationID string, limit int) ([]*conversation.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, conversation_id, tenant_id, direction, sender_name, sender_type,
		       content, media_refs, intent, ai_generated, gateway_id, gateway_status, created_at
		FROM (
			SELECT * FROM messages
			WHERE tenant_id = $1 AND conversation_id = $2
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, tenantID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []*conversation.Message
	for rows.Next() {
		var m conversation.Message
		var media pq.StringArray
		err := rows.Scan(
			&m.ID, &m.ConversationID, &m.TenantID, &m.Direction, &m.SenderName, &m.SenderType,
			&m.Content, &media, &m.Intent, &m.AIGenerated, &m.GatewayID, &m.GatewayStatus, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.MediaRefs = media
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return out, nil
}
