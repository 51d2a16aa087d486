// internal/repository/postgres/conversation_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"otodealer-service/internal/domain/conversation"
	xerrors "otodealer-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `
	id, tenant_id, phone, normalized_phone, is_staff, conversation_type,
	last_intent, status, context, last_message_at, created_at, updated_at
`

// Create inserts a new conversation row.
func (r *ConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	query := `
		INSERT INTO conversations (
			id, tenant_id, phone, normalized_phone, is_staff, conversation_type,
			last_intent, status, context, last_message_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	ctxJSON, err := marshalContext(c.Context)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(
		ctx, query,
		c.ID, c.TenantID, c.Phone, c.NormalizedPhone, c.IsStaff, c.Type,
		c.LastIntent, c.Status, ctxJSON, c.LastMessageAt,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// FindByNormalizedPhone returns the most recent conversation for a
// tenant + normalized phone. Older format-variant rows are ignored.
func (r *ConversationRepository) FindByNormalizedPhone(ctx context.Context, tenantID, normalizedPhone string) (*conversation.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM conversations
		WHERE tenant_id = $1 AND normalized_phone = $2 AND status <> 'deleted'
		ORDER BY last_message_at DESC
		LIMIT 1
	`, conversationColumns)

	row := r.db.QueryRow(ctx, query, tenantID, normalizedPhone)
	return scanConversation(row)
}

// List returns the tenant's conversations, one row per normalized phone
// (latest wins), newest activity first.
func (r *ConversationRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]*conversation.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (normalized_phone) %s
		FROM conversations
		WHERE tenant_id = $1 AND status <> 'deleted'
		ORDER BY normalized_phone, last_message_at DESC
	`, conversationColumns)

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*conversation.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	// DISTINCT ON forces normalized_phone ordering; re-sort by recency and
	// page in memory. Tenants hold at most a few thousand threads.
	sortByLastMessage(out)
	return page(out, limit, offset), nil
}

// TouchTurn records the outcome of one processed turn.
func (r *ConversationRepository) TouchTurn(ctx context.Context, id, lastIntent string, convType conversation.Type, at time.Time) error {
	query := `
		UPDATE conversations
		SET last_intent = $2, conversation_type = $3, last_message_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, lastIntent, convType, at); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// UpdateIsStaff corrects a stale staff flag. Column-scoped so concurrent
// turn updates cannot be clobbered.
func (r *ConversationRepository) UpdateIsStaff(ctx context.Context, id string, isStaff bool) error {
	query := `UPDATE conversations SET is_staff = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, isStaff); err != nil {
		return fmt.Errorf("failed to update staff flag: %w", err)
	}
	return nil
}

// MergeContext merges key/values into the conversation context map.
func (r *ConversationRepository) MergeContext(ctx context.Context, id string, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}
	patch, err := marshalContext(kv)
	if err != nil {
		return err
	}
	query := `
		UPDATE conversations
		SET context = COALESCE(context, '{}'::jsonb) || $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, patch); err != nil {
		return fmt.Errorf("failed to merge conversation context: %w", err)
	}
	return nil
}

// MarkDeleted soft-deletes a conversation. Rows are never removed.
func (r *ConversationRepository) MarkDeleted(ctx context.Context, tenantID, id string) error {
	query := `UPDATE conversations SET status = 'deleted', updated_at = NOW() WHERE tenant_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to mark conversation deleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func scanConversation(row pgx.Row) (*conversation.Conversation, error) {
	var c conversation.Conversation
	var ctxJSON []byte

	err := row.Scan(
		&c.ID, &c.TenantID, &c.Phone, &c.NormalizedPhone, &c.IsStaff, &c.Type,
		&c.LastIntent, &c.Status, &ctxJSON, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	if len(ctxJSON) > 0 {
		if err := json.Unmarshal(ctxJSON, &c.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation context: %w", err)
		}
	}
	if c.Context == nil {
		c.Context = map[string]string{}
	}
	return &c, nil
}

func marshalContext(kv map[string]string) ([]byte, error) {
	if kv == nil {
		kv = map[string]string{}
	}
	b, err := json.Marshal(kv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation context: %w", err)
	}
	return b, nil
}

func sortByLastMessage(cs []*conversation.Conversation) {
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].LastMessageAt.After(cs[j].LastMessageAt)
	})
}

func page(cs []*conversation.Conversation, limit, offset int) []*conversation.Conversation {
	if offset >= len(cs) {
		return nil
	}
	cs = cs[offset:]
	if limit > 0 && limit < len(cs) {
		cs = cs[:limit]
	}
	return cs
}
