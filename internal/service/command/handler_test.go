package command

import (
	"context"
	"strings"
	"testing"

	"otodealer-service/internal/domain/staff"
	"otodealer-service/internal/domain/vehicle"
	xerrors "otodealer-service/internal/pkg/errors"
	"otodealer-service/internal/pkg/turnstate"
	"otodealer-service/internal/service/intent"

	"go.uber.org/zap"
)

type fakeInventory struct {
	vehicles   []*vehicle.Vehicle
	created    *vehicle.Vehicle
	statusSet  vehicle.Status
	priceSet   int64
	statsValue vehicle.StatsByStatus
}

func (f *fakeInventory) ListAvailable(_ context.Context, _ string, _ int) ([]*vehicle.Vehicle, error) {
	return f.vehicles, nil
}

func (f *fakeInventory) Stats(_ context.Context, _ string) (*vehicle.StatsByStatus, error) {
	return &f.statsValue, nil
}

func (f *fakeInventory) FindByPlate(_ context.Context, _ string, plate string) (*vehicle.Vehicle, error) {
	for _, v := range f.vehicles {
		if v.NumberPlate == plate {
			return v, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeInventory) UpdateStatus(_ context.Context, _, _ string, status vehicle.Status) error {
	f.statusSet = status
	return nil
}

func (f *fakeInventory) UpdatePrice(_ context.Context, _, _ string, price int64) error {
	f.priceSet = price
	return nil
}

func (f *fakeInventory) Create(_ context.Context, v *vehicle.Vehicle) error {
	f.created = v
	return nil
}

type fakeAudit struct {
	entries []*staff.CommandLog
}

func (f *fakeAudit) Create(_ context.Context, l *staff.CommandLog) error {
	f.entries = append(f.entries, l)
	return nil
}

func avanza() *vehicle.Vehicle {
	return &vehicle.Vehicle{
		ID: "v1", TenantID: "t1", Make: "Toyota", Model: "Avanza",
		Year: 2019, NumberPlate: "B1234CD", Price: 150_000_000,
		Status: vehicle.StatusAvailable,
	}
}

func newHandler(inv *fakeInventory, audit *fakeAudit) *Handler {
	return NewHandler(inv, audit, turnstate.NewMemoryStore(), zap.NewNop())
}

func TestExecuteInventory(t *testing.T) {
	inv := &fakeInventory{vehicles: []*vehicle.Vehicle{avanza()}}
	audit := &fakeAudit{}
	h := newHandler(inv, audit)

	res := h.Execute(context.Background(), "t1", "6281235108908", "inventory", nil, intent.StaffInventory, nil)
	if !res.Success {
		t.Fatalf("inventory command failed: %s", res.Text)
	}
	if want := "Toyota Avanza 2019"; !strings.Contains(res.Text, want) {
		t.Errorf("result %q missing %q", res.Text, want)
	}
	if len(audit.entries) != 1 || !audit.entries[0].Success || audit.entries[0].CommandType != "inventory" {
		t.Errorf("expected one successful inventory audit row, got %+v", audit.entries)
	}
}

func TestExecuteStatusUpdate(t *testing.T) {
	inv := &fakeInventory{vehicles: []*vehicle.Vehicle{avanza()}}
	audit := &fakeAudit{}
	h := newHandler(inv, audit)

	res := h.Execute(context.Background(), "t1", "6281235108908", "terjual B1234CD", nil, intent.StaffStatusUpdate, nil)
	if !res.Success {
		t.Fatalf("status update failed: %s", res.Text)
	}
	if inv.statusSet != vehicle.StatusSold {
		t.Errorf("status = %s, want sold", inv.statusSet)
	}
	if res.VehicleID == nil || *res.VehicleID != "v1" {
		t.Errorf("vehicle id = %v, want v1", res.VehicleID)
	}
}

func TestExecuteStatusUpdateUnknownPlate(t *testing.T) {
	inv := &fakeInventory{}
	audit := &fakeAudit{}
	h := newHandler(inv, audit)

	res := h.Execute(context.Background(), "t1", "6281235108908", "terjual Z9999ZZ", nil, intent.StaffStatusUpdate, nil)
	if res.Success {
		t.Fatal("unknown plate must fail")
	}
	if len(audit.entries) != 1 || audit.entries[0].Success {
		t.Errorf("expected one failed audit row, got %+v", audit.entries)
	}
}

func TestExecuteEditPrice(t *testing.T) {
	inv := &fakeInventory{vehicles: []*vehicle.Vehicle{avanza()}}
	h := newHandler(inv, &fakeAudit{})

	res := h.Execute(context.Background(), "t1", "6281235108908", "edit harga B1234CD 145jt", nil, intent.StaffEdit, nil)
	if !res.Success {
		t.Fatalf("edit failed: %s", res.Text)
	}
	if inv.priceSet != 145_000_000 {
		t.Errorf("price = %d, want 145000000", inv.priceSet)
	}
}

func TestUploadFlow(t *testing.T) {
	inv := &fakeInventory{}
	flows := turnstate.NewMemoryStore()
	h := NewHandler(inv, &fakeAudit{}, flows, zap.NewNop())
	ctx := context.Background()

	res := h.Execute(ctx, "t1", "6281235108908", "", []string{"https://cdn/img1.jpg"}, intent.StaffUpload, nil)
	if !res.Success {
		t.Fatalf("upload start failed: %s", res.Text)
	}

	flow, err := flows.Flow(ctx, "t1", "6281235108908")
	if err != nil || flow == nil {
		t.Fatalf("expected pending upload flow, got %v, %v", flow, err)
	}

	res = h.Execute(ctx, "t1", "6281235108908", "Toyota Avanza 2019 Hitam B9876XY 150jt", nil, "", flow)
	if !res.Success {
		t.Fatalf("upload finish failed: %s", res.Text)
	}
	if inv.created == nil {
		t.Fatal("expected created vehicle")
	}
	if inv.created.Make != "Toyota" || inv.created.Model != "Avanza" ||
		inv.created.Year != 2019 || inv.created.NumberPlate != "B9876XY" ||
		inv.created.Price != 150_000_000 {
		t.Errorf("draft parsed wrong: %+v", inv.created)
	}
	if len(inv.created.Images) != 1 {
		t.Errorf("images = %v, want one", inv.created.Images)
	}

	flow, _ = flows.Flow(ctx, "t1", "6281235108908")
	if flow != nil {
		t.Error("flow should be cleared after save")
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"150jt", 150_000_000},
		{"150 juta", 150_000_000},
		{"1,5m", 1_500_000_000},
		{"150000000", 150_000_000},
		{"150.000.000", 150_000_000},
		{"murah saja", 0},
	}
	for _, tc := range cases {
		if got := parsePrice(tc.in); got != tc.want {
			t.Errorf("parsePrice(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
