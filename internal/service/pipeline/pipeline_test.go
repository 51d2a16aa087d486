package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"otodealer-service/internal/domain/conversation"
	"otodealer-service/internal/domain/lead"
	"otodealer-service/internal/domain/staff"
	"otodealer-service/internal/domain/vehicle"
	"otodealer-service/internal/gateway"
	xerrors "otodealer-service/internal/pkg/errors"
	"otodealer-service/internal/pkg/turnstate"
	"otodealer-service/internal/service/command"
	"otodealer-service/internal/service/intent"
	"otodealer-service/internal/service/leadgate"

	"go.uber.org/zap"
)

type fakeConversations struct {
	byPhone      map[string]*conversation.Conversation
	created      []*conversation.Conversation
	merged       map[string]string
	touched      []string
	staffUpdates chan bool
	findErr      error
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{
		byPhone:      map[string]*conversation.Conversation{},
		merged:       map[string]string{},
		staffUpdates: make(chan bool, 4),
	}
}

func (f *fakeConversations) FindByNormalizedPhone(_ context.Context, _, normalizedPhone string) (*conversation.Conversation, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if c, ok := f.byPhone[normalizedPhone]; ok {
		return c, nil
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeConversations) Create(_ context.Context, c *conversation.Conversation) error {
	f.byPhone[c.NormalizedPhone] = c
	f.created = append(f.created, c)
	return nil
}

func (f *fakeConversations) TouchTurn(_ context.Context, id, lastIntent string, _ conversation.Type, _ time.Time) error {
	f.touched = append(f.touched, lastIntent)
	return nil
}

func (f *fakeConversations) UpdateIsStaff(_ context.Context, _ string, isStaff bool) error {
	f.staffUpdates <- isStaff
	return nil
}

func (f *fakeConversations) MergeContext(_ context.Context, _ string, kv map[string]string) error {
	for k, v := range kv {
		f.merged[k] = v
	}
	return nil
}

type fakeMessages struct {
	rows []*conversation.Message
}

func (f *fakeMessages) Create(_ context.Context, m *conversation.Message) error {
	f.rows = append(f.rows, m)
	return nil
}

func (f *fakeMessages) byDirection(d conversation.Direction) []*conversation.Message {
	var out []*conversation.Message
	for _, m := range f.rows {
		if m.Direction == d {
			out = append(out, m)
		}
	}
	return out
}

type fakeResolver struct {
	res *staff.Resolution
	err error
}

func (f *fakeResolver) Resolve(context.Context, string, string) (*staff.Resolution, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.res != nil {
		return f.res, nil
	}
	return &staff.Resolution{}, nil
}

type fakeCommands struct {
	calls  int
	result *command.Result
}

func (f *fakeCommands) Execute(_ context.Context, _, _, _ string, _ []string, _ intent.StaffIntent, _ *turnstate.Flow) *command.Result {
	f.calls++
	if f.result != nil {
		return f.result
	}
	return &command.Result{Text: "ok", Success: true}
}

type fakeChat struct {
	reply string
	err   error
	calls int
}

func (f *fakeChat) Reply(context.Context, *conversation.Conversation, string, bool) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeGate struct {
	calls   []leadgate.Candidate
	capture *lead.Lead
}

func (f *fakeGate) CaptureIfWorthy(_ context.Context, c leadgate.Candidate) *lead.Lead {
	f.calls = append(f.calls, c)
	return f.capture
}

type fakeVehicles struct {
	units []*vehicle.Vehicle
}

func (f *fakeVehicles) Search(context.Context, string, string, int) ([]*vehicle.Vehicle, error) {
	return f.units, nil
}

type fakeMessenger struct {
	sent []string
	fail bool
}

func (f *fakeMessenger) SendText(_ context.Context, _, _, text string) (*gateway.SendResult, error) {
	if f.fail {
		return nil, errors.New("gateway down")
	}
	f.sent = append(f.sent, text)
	return &gateway.SendResult{Success: true, MessageID: "wamid.1"}, nil
}

func (f *fakeMessenger) SendImage(context.Context, string, string, string, string) (*gateway.SendResult, error) {
	return &gateway.SendResult{Success: true}, nil
}

type env struct {
	pipe      *Pipeline
	convs     *fakeConversations
	msgs      *fakeMessages
	resolver  *fakeResolver
	commands  *fakeCommands
	chat      *fakeChat
	gate      *fakeGate
	messenger *fakeMessenger
}

func newEnv() *env {
	e := &env{
		convs:     newFakeConversations(),
		msgs:      &fakeMessages{},
		resolver:  &fakeResolver{},
		commands:  &fakeCommands{},
		chat:      &fakeChat{reply: "Halo! Boleh tahu nama dan lokasi Anda dulu?"},
		gate:      &fakeGate{},
		messenger: &fakeMessenger{},
	}
	e.pipe = New(
		Config{BotPhone: "6289999999999", DuplicateWindow: 30 * time.Second},
		e.convs, e.msgs, e.resolver, e.commands, e.chat, e.gate,
		&fakeVehicles{}, e.messenger, turnstate.NewMemoryStore(), nil,
		zap.NewNop(),
	)
	return e
}

func TestProcessGreetingFromUnknownCustomer(t *testing.T) {
	e := newEnv()

	out, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "081234567890",
		Text:      "halo",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Turn != intent.TurnCustomer {
		t.Fatalf("turn = %s, want CUSTOMER_TURN", out.Turn)
	}
	if out.Intent != "greeting" {
		t.Errorf("intent = %q, want greeting", out.Intent)
	}
	if len(e.convs.created) != 1 {
		t.Fatalf("conversations created = %d, want 1", len(e.convs.created))
	}
	if got := e.convs.created[0].NormalizedPhone; got != "6281234567890" {
		t.Errorf("normalized phone = %q", got)
	}
	if len(e.messenger.sent) != 1 || !strings.Contains(e.messenger.sent[0], "nama") {
		t.Errorf("reply sent = %v, want identity question", e.messenger.sent)
	}
	if in := e.msgs.byDirection(conversation.DirectionInbound); len(in) != 1 || in[0].Intent != "greeting" {
		t.Errorf("inbound messages = %+v", in)
	}
	if outMsgs := e.msgs.byDirection(conversation.DirectionOutbound); len(outMsgs) != 1 || !outMsgs[0].AIGenerated {
		t.Errorf("outbound messages = %+v", outMsgs)
	}
	// A bare greeting carries no interest, but the gate still gets to look.
	if len(e.gate.calls) != 1 {
		t.Errorf("gate calls = %d, want 1", len(e.gate.calls))
	}
	if e.gate.calls[0].IntentSignal {
		t.Error("greeting should not carry an interest signal")
	}
}

func TestProcessIdentityAndInterestCapturesLead(t *testing.T) {
	e := newEnv()
	e.gate.capture = &lead.Lead{ID: "L1", Name: "Budi"}

	out, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "081234567890",
		Text:      "Saya Budi dari Jakarta, mau tanya Avanza",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if e.convs.merged[conversation.CtxName] != "Budi" {
		t.Errorf("context name = %q, want Budi", e.convs.merged[conversation.CtxName])
	}
	if e.convs.merged[conversation.CtxCity] != "Jakarta" {
		t.Errorf("context city = %q, want Jakarta", e.convs.merged[conversation.CtxCity])
	}
	if len(e.gate.calls) != 1 {
		t.Fatalf("gate calls = %d, want 1", len(e.gate.calls))
	}
	c := e.gate.calls[0]
	if c.Name != "Budi" {
		t.Errorf("candidate name = %q, want Budi", c.Name)
	}
	if c.VehicleRef != "avanza" {
		t.Errorf("candidate vehicle ref = %q, want avanza", c.VehicleRef)
	}
	if !c.IntentSignal {
		t.Error("vehicle inquiry should carry an interest signal")
	}
	if out.LeadID != "L1" {
		t.Errorf("outcome lead id = %q, want L1", out.LeadID)
	}
}

func TestProcessDropsBotEcho(t *testing.T) {
	e := newEnv()

	out, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "089999999999",
		Text:      "Halo! Ada yang bisa dibantu?",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Turn != intent.TurnBotEcho || !out.Dropped {
		t.Fatalf("outcome = %+v, want dropped BOT_ECHO", out)
	}
	if len(e.convs.created) != 0 || len(e.msgs.rows) != 0 || len(e.messenger.sent) != 0 {
		t.Error("bot echo must leave no trace")
	}
}

func TestProcessDropsDuplicateDelivery(t *testing.T) {
	e := newEnv()
	in := Inbound{TenantID: "t1", FromPhone: "081234567890", Text: "halo"}

	if _, err := e.pipe.Process(context.Background(), in); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	out, err := e.pipe.Process(context.Background(), in)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if out.Turn != intent.TurnDuplicate || !out.Dropped {
		t.Fatalf("outcome = %+v, want dropped DUPLICATE", out)
	}
	if len(e.messenger.sent) != 1 {
		t.Errorf("sends = %d, want exactly 1", len(e.messenger.sent))
	}
}

func TestProcessStaffCommand(t *testing.T) {
	e := newEnv()
	e.resolver.res = &staff.Resolution{IsStaff: true, Name: "Andi", Role: "sales"}
	e.commands.result = &command.Result{Text: "Stok tersedia:\n1. Toyota Avanza", Success: true}

	out, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "6281235108908",
		Text:      "inventory",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Turn != intent.TurnStaffCommand {
		t.Fatalf("turn = %s, want STAFF_COMMAND", out.Turn)
	}
	if e.commands.calls != 1 {
		t.Errorf("command handler calls = %d, want 1", e.commands.calls)
	}
	if e.chat.calls != 0 {
		t.Error("staff command must not reach the assistant")
	}
	if len(e.gate.calls) != 0 {
		t.Error("staff command must not reach the lead gate")
	}
	if in := e.msgs.byDirection(conversation.DirectionInbound); len(in) != 1 || in[0].SenderType != conversation.SenderStaff {
		t.Errorf("inbound messages = %+v", in)
	}
}

func TestProcessStaffProductQuestionAnsweredNoLead(t *testing.T) {
	e := newEnv()
	e.resolver.res = &staff.Resolution{IsStaff: true, Name: "Andi"}
	e.chat.reply = "Avanza 2019 harganya Rp 150.000.000."

	out, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "6281235108908",
		Text:      "berapa harga avanza 2019?",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Turn != intent.TurnCustomer {
		t.Fatalf("turn = %s, want CUSTOMER_TURN for staff product question", out.Turn)
	}
	if e.commands.calls != 0 {
		t.Error("product question must not hit the command handler")
	}
	if e.chat.calls != 1 {
		t.Errorf("assistant calls = %d, want 1", e.chat.calls)
	}
	if len(e.gate.calls) != 0 {
		t.Error("staff sender must never produce a lead")
	}
}

func TestProcessCorrectsStaleStaffFlag(t *testing.T) {
	e := newEnv()
	e.resolver.res = &staff.Resolution{IsStaff: true, Name: "Andi"}
	e.convs.byPhone["6281235108908"] = &conversation.Conversation{
		ID:              "c1",
		TenantID:        "t1",
		NormalizedPhone: "6281235108908",
		IsStaff:         false,
		Type:            conversation.TypeCustomer,
		Context:         map[string]string{},
	}

	if _, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "6281235108908",
		Text:      "inventory",
	}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	select {
	case got := <-e.convs.staffUpdates:
		if !got {
			t.Error("staff flag corrected to false, want true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stale staff flag was never corrected")
	}
}

func TestProcessFallbackWhenAssistantFails(t *testing.T) {
	e := newEnv()
	e.chat.err = errors.New("assistant timeout")

	out, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "081234567890",
		Text:      "berapa harga avanza?",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Reply != fallbackReply {
		t.Errorf("reply = %q, want fallback", out.Reply)
	}
	if len(e.messenger.sent) != 1 || e.messenger.sent[0] != fallbackReply {
		t.Errorf("sent = %v, want the fallback apology", e.messenger.sent)
	}
}

func TestProcessAnswersWhenConversationStoreDown(t *testing.T) {
	e := newEnv()
	e.convs.findErr = xerrors.ErrInternal

	out, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "081234567890",
		Text:      "halo",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Reply != fallbackReply {
		t.Errorf("reply = %q, want fallback", out.Reply)
	}
	if len(e.messenger.sent) != 1 || e.messenger.sent[0] != fallbackReply {
		t.Errorf("sent = %v, want the fallback apology", e.messenger.sent)
	}
	// Nothing to attribute the turn to, so nothing is persisted.
	if len(e.convs.created) != 0 || len(e.msgs.rows) != 0 {
		t.Error("store outage turn must not persist anything")
	}
	if len(e.gate.calls) != 0 {
		t.Error("store outage turn must not reach the lead gate")
	}
}

func TestProcessPendingInterestPromotedNextTurn(t *testing.T) {
	e := newEnv()

	// First turn mentions a model but gives no name: no lead yet, the
	// interest is parked on the conversation.
	if _, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "081234567890",
		Text:      "mau tanya avanza",
	}); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if e.convs.merged[conversation.CtxPendingIntr] != "avanza" {
		t.Fatalf("pending interest = %q, want avanza", e.convs.merged[conversation.CtxPendingIntr])
	}
	if got := e.gate.calls[0]; got.Name != "" {
		t.Errorf("first-turn candidate name = %q, want empty", got.Name)
	}

	// Second turn supplies the name; the parked interest rides along.
	e.gate.capture = &lead.Lead{ID: "L2", Name: "Budi"}
	out, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "081234567890",
		Text:      "Nama saya Budi",
	})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if len(e.gate.calls) != 2 {
		t.Fatalf("gate calls = %d, want 2", len(e.gate.calls))
	}
	c := e.gate.calls[1]
	if c.Name != "Budi" {
		t.Errorf("candidate name = %q, want Budi", c.Name)
	}
	if c.VehicleRef != "avanza" {
		t.Errorf("candidate vehicle ref = %q, want the parked avanza", c.VehicleRef)
	}
	if out.LeadID != "L2" {
		t.Errorf("outcome lead id = %q, want L2", out.LeadID)
	}
}

func TestProcessRecordsFailedSend(t *testing.T) {
	e := newEnv()
	e.messenger.fail = true

	if _, err := e.pipe.Process(context.Background(), Inbound{
		TenantID:  "t1",
		FromPhone: "081234567890",
		Text:      "halo",
	}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	outMsgs := e.msgs.byDirection(conversation.DirectionOutbound)
	if len(outMsgs) != 1 {
		t.Fatalf("outbound messages = %d, want 1", len(outMsgs))
	}
	if outMsgs[0].GatewayStatus == nil || *outMsgs[0].GatewayStatus != "failed" {
		t.Errorf("gateway status = %v, want failed", outMsgs[0].GatewayStatus)
	}
}

func TestProcessRejectsEmptySender(t *testing.T) {
	e := newEnv()
	if _, err := e.pipe.Process(context.Background(), Inbound{TenantID: "t1", Text: "halo"}); err == nil {
		t.Fatal("expected error for empty sender phone")
	}
}
