package conversation

// internal/domain/conversation/entity.go

import "time"

type Status string
type Type string
type Direction string
type SenderType string

const (
	StatusActive    Status = "active"
	StatusEscalated Status = "escalated"
	StatusDeleted   Status = "deleted"

	TypeStaff    Type = "staff"
	TypeCustomer Type = "customer"

	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"

	SenderCustomer SenderType = "customer"
	SenderStaff    SenderType = "staff"
	SenderAI       SenderType = "ai"
	SenderHuman    SenderType = "human"
)

// Conversation is one message thread per (tenant, counterparty phone).
// Raw storage may hold rows under phone-format variants; NormalizedPhone is
// the comparison key and customer-facing aggregations must dedupe on it.
// Conversations are never hard-deleted, only status-marked.
type Conversation struct {
	ID              string            `json:"id" db:"id"`
	TenantID        string            `json:"tenant_id" db:"tenant_id"`
	Phone           string            `json:"phone" db:"phone"`
	NormalizedPhone string            `json:"normalized_phone" db:"normalized_phone"`
	IsStaff         bool              `json:"is_staff" db:"is_staff"`
	Type            Type              `json:"conversation_type" db:"conversation_type"`
	LastIntent      string            `json:"last_intent" db:"last_intent"`
	Status          Status            `json:"status" db:"status"`
	Context         map[string]string `json:"context" db:"context"`
	LastMessageAt   time.Time         `json:"last_message_at" db:"last_message_at"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// Context keys accumulated across turns.
const (
	CtxName        = "customer_name"
	CtxCity        = "customer_city"
	CtxPendingIntr = "pending_lead_interest"
)

// Message is an immutable record belonging to exactly one Conversation.
// Created once per turn, never mutated.
type Message struct {
	ID             string     `json:"id" db:"id"`
	ConversationID string     `json:"conversation_id" db:"conversation_id"`
	TenantID       string     `json:"tenant_id" db:"tenant_id"`
	Direction      Direction  `json:"direction" db:"direction"`
	SenderName     string     `json:"sender_name" db:"sender_name"`
	SenderType     SenderType `json:"sender_type" db:"sender_type"`
	Content        string     `json:"content" db:"content"`
	MediaRefs      []string   `json:"media_refs,omitempty" db:"media_refs"`
	Intent         string     `json:"intent" db:"intent"`
	AIGenerated    bool       `json:"ai_generated" db:"ai_generated"`
	GatewayID      *string    `json:"gateway_id,omitempty" db:"gateway_id"`
	GatewayStatus  *string    `json:"gateway_status,omitempty" db:"gateway_status"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
