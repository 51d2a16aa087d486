// internal/service/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"otodealer-service/internal/domain/conversation"
	"otodealer-service/internal/domain/lead"
	"otodealer-service/internal/domain/staff"
	"otodealer-service/internal/domain/vehicle"
	"otodealer-service/internal/gateway"
	xerrors "otodealer-service/internal/pkg/errors"
	"otodealer-service/internal/pkg/phone"
	"otodealer-service/internal/pkg/turnstate"
	"otodealer-service/internal/service/command"
	"otodealer-service/internal/service/intent"
	"otodealer-service/internal/service/leadgate"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Inbound is one webhook delivery from the WhatsApp gateway.
type Inbound struct {
	TenantID  string   `json:"tenantId"`
	FromPhone string   `json:"fromPhone"`
	Text      string   `json:"text"`
	PushName  string   `json:"pushName,omitempty"`
	MediaRefs []string `json:"mediaRefs,omitempty"`
}

// Outcome reports what one turn did, for the webhook response and tests.
type Outcome struct {
	Turn    intent.Turn `json:"turn"`
	Intent  string      `json:"intent,omitempty"`
	Reply   string      `json:"reply,omitempty"`
	LeadID  string      `json:"leadId,omitempty"`
	Dropped bool        `json:"dropped,omitempty"`
}

// Event is pushed to the live dashboard feed.
type Event struct {
	Type           string    `json:"type"`
	TenantID       string    `json:"tenantId"`
	ConversationID string    `json:"conversationId"`
	Phone          string    `json:"phone"`
	Direction      string    `json:"direction"`
	Text           string    `json:"text"`
	Intent         string    `json:"intent"`
	At             time.Time `json:"at"`
}

// Collaborator contracts. The pipeline owns the decision order; everything
// with I/O hides behind one of these.

type ConversationStore interface {
	FindByNormalizedPhone(ctx context.Context, tenantID, normalizedPhone string) (*conversation.Conversation, error)
	Create(ctx context.Context, c *conversation.Conversation) error
	TouchTurn(ctx context.Context, id, lastIntent string, convType conversation.Type, at time.Time) error
	UpdateIsStaff(ctx context.Context, id string, isStaff bool) error
	MergeContext(ctx context.Context, id string, kv map[string]string) error
}

type MessageStore interface {
	Create(ctx context.Context, m *conversation.Message) error
}

type StaffResolver interface {
	Resolve(ctx context.Context, tenantID, senderPhone string) (*staff.Resolution, error)
}

type CommandRunner interface {
	Execute(ctx context.Context, tenantID, senderPhone, text string, media []string, si intent.StaffIntent, flow *turnstate.Flow) *command.Result
}

type ChatResponder interface {
	Reply(ctx context.Context, conv *conversation.Conversation, text string, isStaff bool) (string, error)
}

type LeadCapturer interface {
	CaptureIfWorthy(ctx context.Context, c leadgate.Candidate) *lead.Lead
}

type VehicleFinder interface {
	Search(ctx context.Context, tenantID, term string, limit int) ([]*vehicle.Vehicle, error)
}

type EventPublisher interface {
	Publish(tenantID string, ev Event)
}

// Config bounds the pipeline's external calls.
type Config struct {
	BotPhone         string
	DuplicateWindow  time.Duration
	AssistantTimeout time.Duration
	SendTimeout      time.Duration
}

const fallbackReply = "Maaf, sistem kami sedang mengalami gangguan. Silakan coba beberapa saat lagi."

// Pipeline classifies one inbound message per turn and routes it. The
// decision order is fixed: bot echo, duplicate window, staff resolution,
// staff command grammar or pending flow, customer turn.
type Pipeline struct {
	cfg           Config
	conversations ConversationStore
	messages      MessageStore
	resolver      StaffResolver
	commands      CommandRunner
	chat          ChatResponder
	gate          LeadCapturer
	vehicles      VehicleFinder
	messenger     gateway.Messenger
	state         turnstate.Store
	events        EventPublisher
	logger        *zap.Logger
	now           func() time.Time
}

func New(
	cfg Config,
	conversations ConversationStore,
	messages MessageStore,
	resolver StaffResolver,
	commands CommandRunner,
	chat ChatResponder,
	gate LeadCapturer,
	vehicles VehicleFinder,
	messenger gateway.Messenger,
	state turnstate.Store,
	events EventPublisher,
	logger *zap.Logger,
) *Pipeline {
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 30 * time.Second
	}
	if cfg.AssistantTimeout <= 0 {
		cfg.AssistantTimeout = 25 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Pipeline{
		cfg:           cfg,
		conversations: conversations,
		messages:      messages,
		resolver:      resolver,
		commands:      commands,
		chat:          chat,
		gate:          gate,
		vehicles:      vehicles,
		messenger:     messenger,
		state:         state,
		events:        events,
		logger:        logger,
		now:           time.Now,
	}
}

// Process handles one inbound turn end to end. It never returns an error
// for handler or store failures; those degrade to the fallback reply.
// Errors are reserved for inbound messages with no usable sender phone.
func (p *Pipeline) Process(ctx context.Context, in Inbound) (*Outcome, error) {
	normalized := phone.Normalize(in.FromPhone)
	if normalized == "" {
		return nil, fmt.Errorf("inbound message has no usable sender phone: %q", in.FromPhone)
	}

	// Own echoes are dropped before any persistence.
	if p.cfg.BotPhone != "" && phone.Equal(in.FromPhone, p.cfg.BotPhone) {
		p.logger.Debug("dropping bot echo", zap.String("tenant_id", in.TenantID))
		return &Outcome{Turn: intent.TurnBotEcho, Dropped: true}, nil
	}

	// Retried webhook deliveries inside the window are dropped. A window
	// store outage fails open: processing twice beats not answering.
	first, err := p.state.FirstDelivery(ctx, in.TenantID, normalized, in.Text, p.cfg.DuplicateWindow)
	if err != nil {
		p.logger.Warn("duplicate window unavailable, processing anyway", zap.Error(err))
		first = true
	}
	if !first {
		p.logger.Debug("dropping duplicate delivery",
			zap.String("tenant_id", in.TenantID),
			zap.String("phone", normalized),
		)
		return &Outcome{Turn: intent.TurnDuplicate, Dropped: true}, nil
	}

	// Staff status is resolved fresh every turn. A directory outage
	// degrades the sender to customer so the turn still gets answered.
	res, err := p.resolver.Resolve(ctx, in.TenantID, normalized)
	if err != nil {
		p.logger.Warn("staff resolution failed, treating sender as customer", zap.Error(err))
		res = &staff.Resolution{}
	}

	conv, err := p.loadOrCreateConversation(ctx, in, normalized, res)
	if err != nil {
		// The turn cannot be attributed to a conversation, but the sender
		// is still owed an answer. Apologize unattributed and swallow the
		// outage; nothing is persisted.
		p.logger.Error("conversation store unavailable",
			zap.String("tenant_id", in.TenantID),
			zap.String("phone", normalized),
			zap.Error(err),
		)
		p.sendUnattributed(ctx, in)
		return &Outcome{Turn: intent.TurnCustomer, Reply: fallbackReply}, nil
	}

	// Stale staff flags self-correct in the background; the correction
	// must never block or fail this turn.
	if conv.IsStaff != res.IsStaff {
		p.correctStaffFlagAsync(conv.ID, res.IsStaff)
		conv.IsStaff = res.IsStaff
	}

	if res.IsStaff {
		flow, ferr := p.state.Flow(ctx, in.TenantID, normalized)
		if ferr != nil {
			p.logger.Warn("flow state unavailable", zap.Error(ferr))
			flow = nil
		}
		si, matched := intent.ClassifyStaff(in.Text, len(in.MediaRefs) > 0)
		if flow != nil || matched {
			return p.handleStaffCommand(ctx, in, conv, res, normalized, si, flow)
		}
		// Hybrid mode: staff asking a product question is answered like a
		// customer, minus lead capture.
	}

	return p.handleCustomerTurn(ctx, in, conv, res, normalized)
}

func (p *Pipeline) loadOrCreateConversation(ctx context.Context, in Inbound, normalized string, res *staff.Resolution) (*conversation.Conversation, error) {
	conv, err := p.conversations.FindByNormalizedPhone(ctx, in.TenantID, normalized)
	if err == nil {
		return conv, nil
	}
	if !xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	convType := conversation.TypeCustomer
	if res.IsStaff {
		convType = conversation.TypeStaff
	}
	conv = &conversation.Conversation{
		ID:              ulid.Make().String(),
		TenantID:        in.TenantID,
		Phone:           in.FromPhone,
		NormalizedPhone: normalized,
		IsStaff:         res.IsStaff,
		Type:            convType,
		Status:          conversation.StatusActive,
		Context:         map[string]string{},
		LastMessageAt:   p.now(),
	}
	if cerr := p.conversations.Create(ctx, conv); cerr != nil {
		return nil, fmt.Errorf("failed to open conversation: %w", cerr)
	}
	return conv, nil
}

func (p *Pipeline) handleStaffCommand(ctx context.Context, in Inbound, conv *conversation.Conversation, res *staff.Resolution, normalized string, si intent.StaffIntent, flow *turnstate.Flow) (*Outcome, error) {
	label := string(si)
	if si == "" {
		label = "staff_flow"
	}

	p.recordInbound(ctx, in, conv, res.Name, conversation.SenderStaff, label)

	result := p.commands.Execute(ctx, in.TenantID, normalized, in.Text, in.MediaRefs, si, flow)

	p.sendAndRecordReply(ctx, in, conv, result.Text, label, false)
	p.touch(ctx, conv, label, conversation.TypeStaff)

	return &Outcome{Turn: intent.TurnStaffCommand, Intent: label, Reply: result.Text}, nil
}

func (p *Pipeline) handleCustomerTurn(ctx context.Context, in Inbound, conv *conversation.Conversation, res *staff.Resolution, normalized string) (*Outcome, error) {
	ci := intent.ClassifyCustomer(in.Text)
	label := string(ci)

	senderName := in.PushName
	senderType := conversation.SenderCustomer
	if res.IsStaff {
		senderName = res.Name
		senderType = conversation.SenderStaff
	}
	p.recordInbound(ctx, in, conv, senderName, senderType, label)

	// Partial signals accumulate on the conversation even when the turn
	// is not lead-worthy yet. A vehicle mention without a name today may
	// become a lead on the turn the name arrives.
	name, city := intent.ExtractName(in.Text)
	patch := map[string]string{}
	if name != "" && conv.Context[conversation.CtxName] == "" {
		patch[conversation.CtxName] = name
		conv.Context[conversation.CtxName] = name
	}
	if city != "" && conv.Context[conversation.CtxCity] == "" {
		patch[conversation.CtxCity] = city
		conv.Context[conversation.CtxCity] = city
	}
	if ref := intent.VehicleRef(in.Text); ref != "" && conv.Context[conversation.CtxPendingIntr] != ref {
		patch[conversation.CtxPendingIntr] = ref
		conv.Context[conversation.CtxPendingIntr] = ref
	}
	if len(patch) > 0 {
		if err := p.conversations.MergeContext(ctx, conv.ID, patch); err != nil {
			p.logger.Warn("context merge failed", zap.String("conversation_id", conv.ID), zap.Error(err))
		}
	}

	reply := p.askAssistant(ctx, conv, in.Text, res.IsStaff)

	p.sendAndRecordReply(ctx, in, conv, reply, label, true)
	p.touch(ctx, conv, label, conversation.TypeCustomer)

	out := &Outcome{Turn: intent.TurnCustomer, Intent: label, Reply: reply}

	// Lead capture runs after the reply is on its way and can only add.
	if !res.IsStaff {
		if l := p.captureLead(ctx, in, conv, ci, normalized); l != nil {
			out.LeadID = l.ID
		}
	}
	return out, nil
}

func (p *Pipeline) askAssistant(ctx context.Context, conv *conversation.Conversation, text string, isStaff bool) string {
	askCtx, cancel := context.WithTimeout(ctx, p.cfg.AssistantTimeout)
	defer cancel()

	reply, err := p.chat.Reply(askCtx, conv, text, isStaff)
	if err != nil {
		p.logger.Error("chat handler failed, sending fallback",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
		return fallbackReply
	}
	return reply
}

func (p *Pipeline) captureLead(ctx context.Context, in Inbound, conv *conversation.Conversation, ci intent.CustomerIntent, normalized string) *lead.Lead {
	candidateName := conv.Context[conversation.CtxName]

	ref := intent.VehicleRef(in.Text)
	if ref == "" {
		ref = conv.Context[conversation.CtxPendingIntr]
	}
	var vehicleID *string
	if ref != "" && p.vehicles != nil {
		if units, err := p.vehicles.Search(ctx, in.TenantID, ref, 1); err == nil && len(units) > 0 {
			vehicleID = &units[0].ID
		}
	}

	return p.gate.CaptureIfWorthy(ctx, leadgate.Candidate{
		TenantID:     in.TenantID,
		Phone:        normalized,
		Name:         candidateName,
		Message:      in.Text,
		VehicleRef:   ref,
		VehicleID:    vehicleID,
		IntentSignal: intent.HasInterestSignal(ci),
	})
}

func (p *Pipeline) recordInbound(ctx context.Context, in Inbound, conv *conversation.Conversation, senderName string, senderType conversation.SenderType, label string) {
	m := &conversation.Message{
		ID:             ulid.Make().String(),
		ConversationID: conv.ID,
		TenantID:       in.TenantID,
		Direction:      conversation.DirectionInbound,
		SenderName:     senderName,
		SenderType:     senderType,
		Content:        in.Text,
		MediaRefs:      in.MediaRefs,
		Intent:         label,
	}
	if err := p.messages.Create(ctx, m); err != nil {
		p.logger.Error("inbound message persist failed", zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	p.publish(in.TenantID, conv, "inbound", in.Text, label)
}

func (p *Pipeline) sendAndRecordReply(ctx context.Context, in Inbound, conv *conversation.Conversation, text, label string, aiGenerated bool) {
	sendCtx, cancel := context.WithTimeout(ctx, p.cfg.SendTimeout)
	defer cancel()

	var gatewayID, gatewayStatus *string
	status := "sent"
	result, err := p.messenger.SendText(sendCtx, in.TenantID, conv.Phone, text)
	switch {
	case err != nil:
		p.logger.Error("gateway send failed", zap.String("conversation_id", conv.ID), zap.Error(err))
		status = "failed"
	case !result.Success:
		p.logger.Error("gateway rejected send",
			zap.String("conversation_id", conv.ID),
			zap.String("gateway_error", result.Error),
		)
		status = "failed"
	default:
		if result.MessageID != "" {
			gatewayID = &result.MessageID
		}
	}
	gatewayStatus = &status

	m := &conversation.Message{
		ID:             ulid.Make().String(),
		ConversationID: conv.ID,
		TenantID:       in.TenantID,
		Direction:      conversation.DirectionOutbound,
		SenderName:     "assistant",
		SenderType:     conversation.SenderAI,
		Content:        text,
		Intent:         label,
		AIGenerated:    aiGenerated,
		GatewayID:      gatewayID,
		GatewayStatus:  gatewayStatus,
	}
	if err := p.messages.Create(ctx, m); err != nil {
		p.logger.Error("outbound message persist failed", zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	p.publish(in.TenantID, conv, "outbound", text, label)
}

// sendUnattributed answers a turn whose conversation could not be loaded
// or opened. The send itself is best effort.
func (p *Pipeline) sendUnattributed(ctx context.Context, in Inbound) {
	sendCtx, cancel := context.WithTimeout(ctx, p.cfg.SendTimeout)
	defer cancel()

	if _, err := p.messenger.SendText(sendCtx, in.TenantID, in.FromPhone, fallbackReply); err != nil {
		p.logger.Error("fallback send failed",
			zap.String("tenant_id", in.TenantID),
			zap.Error(err),
		)
	}
}

func (p *Pipeline) touch(ctx context.Context, conv *conversation.Conversation, label string, convType conversation.Type) {
	if err := p.conversations.TouchTurn(ctx, conv.ID, label, convType, p.now()); err != nil {
		p.logger.Warn("conversation touch failed", zap.String("conversation_id", conv.ID), zap.Error(err))
	}
}

// correctStaffFlagAsync fixes a stale is_staff flag without holding up the
// turn. Failures are logged and dropped.
func (p *Pipeline) correctStaffFlagAsync(conversationID string, isStaff bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.conversations.UpdateIsStaff(ctx, conversationID, isStaff); err != nil {
			p.logger.Warn("staff flag correction failed",
				zap.String("conversation_id", conversationID),
				zap.Bool("is_staff", isStaff),
				zap.Error(err),
			)
		}
	}()
}

func (p *Pipeline) publish(tenantID string, conv *conversation.Conversation, direction, text, label string) {
	if p.events == nil {
		return
	}
	p.events.Publish(tenantID, Event{
		Type:           "message",
		TenantID:       tenantID,
		ConversationID: conv.ID,
		Phone:          conv.NormalizedPhone,
		Direction:      direction,
		Text:           text,
		Intent:         label,
		At:             p.now(),
	})
}
