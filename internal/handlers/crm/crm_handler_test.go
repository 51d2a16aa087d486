package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"otodealer-service/internal/domain/conversation"
	"otodealer-service/internal/domain/lead"
	"otodealer-service/internal/domain/vehicle"
	xerrors "otodealer-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fakeConversationReader struct {
	rows    []*conversation.Conversation
	deleted []string
}

func (f *fakeConversationReader) List(_ context.Context, _ string, limit, offset int) ([]*conversation.Conversation, error) {
	return f.rows, nil
}

func (f *fakeConversationReader) MarkDeleted(_ context.Context, _, id string) error {
	if id == "missing" {
		return xerrors.ErrNotFound
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeMessageReader struct {
	rows []*conversation.Message
}

func (f *fakeMessageReader) ListByConversation(context.Context, string, string, int) ([]*conversation.Message, error) {
	return f.rows, nil
}

type fakeLeadReader struct {
	lastFilters *lead.LeadListFilters
	rows        []*lead.Lead
}

func (f *fakeLeadReader) List(_ context.Context, _ string, filters *lead.LeadListFilters) ([]*lead.Lead, error) {
	f.lastFilters = filters
	return f.rows, nil
}

type fakeVehicleReader struct{}

func (f *fakeVehicleReader) ListAvailable(context.Context, string, int) ([]*vehicle.Vehicle, error) {
	return nil, nil
}

func (f *fakeVehicleReader) Stats(context.Context, string) (*vehicle.StatsByStatus, error) {
	return &vehicle.StatsByStatus{Available: 3, Sold: 1}, nil
}

type testEnv struct {
	router *gin.Engine
	convs  *fakeConversationReader
	leads  *fakeLeadReader
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)
	convs := &fakeConversationReader{}
	leads := &fakeLeadReader{}
	h := NewCRMHandler(convs, &fakeMessageReader{}, leads, &fakeVehicleReader{}, zap.NewNop())

	r := gin.New()
	g := r.Group("/api/v1/tenants/:tenantId")
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/:id/messages", h.ListMessages)
	g.DELETE("/conversations/:id", h.DeleteConversation)
	g.GET("/leads", h.ListLeads)
	g.GET("/vehicles/stats", h.VehicleStats)

	return &testEnv{router: r, convs: convs, leads: leads}
}

func doJSON(t *testing.T, r *gin.Engine, method, url string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return w.Code, body
}

func TestListConversations(t *testing.T) {
	env := newTestEnv()
	env.convs.rows = []*conversation.Conversation{
		{ID: "c1", TenantID: "t1", NormalizedPhone: "628123", LastMessageAt: time.Now()},
	}

	code, body := doJSON(t, env.router, http.MethodGet, "/api/v1/tenants/t1/conversations")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	if data, ok := body["data"].([]any); !ok || len(data) != 1 {
		t.Errorf("data = %v", body["data"])
	}
}

func TestListLeadsStatusFilter(t *testing.T) {
	env := newTestEnv()

	code, _ := doJSON(t, env.router, http.MethodGet, "/api/v1/tenants/t1/leads?status=NEW&limit=10")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if env.leads.lastFilters == nil || env.leads.lastFilters.Status == nil || *env.leads.lastFilters.Status != lead.StatusNew {
		t.Errorf("filters = %+v, want status NEW", env.leads.lastFilters)
	}
	if env.leads.lastFilters.PageSize != 10 {
		t.Errorf("page size = %d, want 10", env.leads.lastFilters.PageSize)
	}
}

func TestDeleteConversation(t *testing.T) {
	env := newTestEnv()

	code, _ := doJSON(t, env.router, http.MethodDelete, "/api/v1/tenants/t1/conversations/c1")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(env.convs.deleted) != 1 || env.convs.deleted[0] != "c1" {
		t.Errorf("deleted = %v", env.convs.deleted)
	}

	code, body := doJSON(t, env.router, http.MethodDelete, "/api/v1/tenants/t1/conversations/missing")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestVehicleStats(t *testing.T) {
	env := newTestEnv()

	code, body := doJSON(t, env.router, http.MethodGet, "/api/v1/tenants/t1/vehicles/stats")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %v", body["data"])
	}
	if data["available"] != float64(3) {
		t.Errorf("available = %v, want 3", data["available"])
	}
}
