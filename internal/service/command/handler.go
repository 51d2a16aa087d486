// internal/service/command/handler.go
package command

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"otodealer-service/internal/domain/staff"
	"otodealer-service/internal/domain/vehicle"
	"otodealer-service/internal/pkg/turnstate"
	"otodealer-service/internal/service/intent"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Inventory is the vehicle persistence collaborator.
type Inventory interface {
	ListAvailable(ctx context.Context, tenantID string, limit int) ([]*vehicle.Vehicle, error)
	Stats(ctx context.Context, tenantID string) (*vehicle.StatsByStatus, error)
	FindByPlate(ctx context.Context, tenantID, plate string) (*vehicle.Vehicle, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status vehicle.Status) error
	UpdatePrice(ctx context.Context, tenantID, id string, price int64) error
	Create(ctx context.Context, v *vehicle.Vehicle) error
}

// AuditLog appends staff command audit rows.
type AuditLog interface {
	Create(ctx context.Context, l *staff.CommandLog) error
}

// Result is what a staff command execution hands back to the router.
type Result struct {
	Text      string
	Success   bool
	VehicleID *string
}

// Handler executes staff WhatsApp commands against the inventory. Every
// execution attempt is audited; audit write failures are logged and
// swallowed, never shown to the sender.
type Handler struct {
	inventory Inventory
	audit     AuditLog
	flows     turnstate.Store
	logger    *zap.Logger
}

func NewHandler(inventory Inventory, audit AuditLog, flows turnstate.Store, logger *zap.Logger) *Handler {
	return &Handler{
		inventory: inventory,
		audit:     audit,
		flows:     flows,
		logger:    logger,
	}
}

const helpText = "Perintah yang tersedia:\n" +
	"- inventory: daftar unit available\n" +
	"- stats: ringkasan stok\n" +
	"- terjual <plat>: tandai unit terjual\n" +
	"- booking <plat>: tandai unit dibooking\n" +
	"- edit harga <plat> <harga>: ubah harga\n" +
	"- kirim foto unit untuk mulai upload"

// Execute runs one staff command and writes the audit row.
func (h *Handler) Execute(ctx context.Context, tenantID, senderPhone, text string, media []string, si intent.StaffIntent, flow *turnstate.Flow) *Result {
	var res *Result

	switch {
	case flow != nil && flow.Type == string(intent.StaffUpload):
		res = h.resumeUpload(ctx, tenantID, senderPhone, text, media, flow)
	case si == intent.StaffUpload:
		res = h.startUpload(ctx, tenantID, senderPhone, media)
	case si == intent.StaffInventory:
		res = h.listInventory(ctx, tenantID)
	case si == intent.StaffStats:
		res = h.stats(ctx, tenantID)
	case si == intent.StaffStatusUpdate:
		res = h.updateStatus(ctx, tenantID, text)
	case si == intent.StaffEdit:
		res = h.editPrice(ctx, tenantID, text)
	case si == intent.StaffGreeting:
		res = &Result{Text: helpText, Success: true}
	default:
		res = &Result{Text: helpText, Success: false}
	}

	h.writeAudit(ctx, tenantID, senderPhone, text, si, res)
	return res
}

func (h *Handler) listInventory(ctx context.Context, tenantID string) *Result {
	vehicles, err := h.inventory.ListAvailable(ctx, tenantID, 20)
	if err != nil {
		h.logger.Error("inventory list failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return &Result{Text: "Gagal mengambil daftar unit, coba lagi.", Success: false}
	}
	if len(vehicles) == 0 {
		return &Result{Text: "Belum ada unit available.", Success: true}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Unit available (%d):\n", len(vehicles)))
	for i, v := range vehicles {
		b.WriteString(fmt.Sprintf("%d. %s %s %d - %s (%s)\n",
			i+1, v.Make, v.Model, v.Year, formatPrice(v.Price), v.NumberPlate))
	}
	return &Result{Text: strings.TrimRight(b.String(), "\n"), Success: true}
}

func (h *Handler) stats(ctx context.Context, tenantID string) *Result {
	s, err := h.inventory.Stats(ctx, tenantID)
	if err != nil {
		h.logger.Error("inventory stats failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return &Result{Text: "Gagal mengambil statistik, coba lagi.", Success: false}
	}
	text := fmt.Sprintf("Statistik stok:\nAvailable: %d\nBooking: %d\nTerjual: %d\nDraft: %d",
		s.Available, s.Booked, s.Sold, s.Draft)
	return &Result{Text: text, Success: true}
}

func (h *Handler) updateStatus(ctx context.Context, tenantID, text string) *Result {
	plate := intent.Plate(text)
	if plate == "" {
		return &Result{Text: "Format: terjual <plat> atau booking <plat>, contoh: terjual B1234CD", Success: false}
	}

	target := vehicle.StatusSold
	label := "terjual"
	lower := strings.ToLower(text)
	if strings.Contains(lower, "booking") || strings.Contains(lower, "booked") {
		target = vehicle.StatusBooked
		label = "dibooking"
	}

	v, err := h.inventory.FindByPlate(ctx, tenantID, plate)
	if err != nil {
		return &Result{Text: fmt.Sprintf("Unit dengan plat %s tidak ditemukan.", plate), Success: false}
	}
	if err := h.inventory.UpdateStatus(ctx, tenantID, v.ID, target); err != nil {
		h.logger.Error("vehicle status update failed", zap.String("vehicle_id", v.ID), zap.Error(err))
		return &Result{Text: "Gagal memperbarui status unit, coba lagi.", Success: false, VehicleID: &v.ID}
	}
	return &Result{
		Text:      fmt.Sprintf("%s %s %d (%s) ditandai %s.", v.Make, v.Model, v.Year, plate, label),
		Success:   true,
		VehicleID: &v.ID,
	}
}

func (h *Handler) editPrice(ctx context.Context, tenantID, text string) *Result {
	plate := intent.Plate(text)
	price := parsePrice(text)
	if plate == "" || price <= 0 {
		return &Result{Text: "Format: edit harga <plat> <harga>, contoh: edit harga B1234CD 150jt", Success: false}
	}

	v, err := h.inventory.FindByPlate(ctx, tenantID, plate)
	if err != nil {
		return &Result{Text: fmt.Sprintf("Unit dengan plat %s tidak ditemukan.", plate), Success: false}
	}
	if err := h.inventory.UpdatePrice(ctx, tenantID, v.ID, price); err != nil {
		h.logger.Error("vehicle price update failed", zap.String("vehicle_id", v.ID), zap.Error(err))
		return &Result{Text: "Gagal mengubah harga, coba lagi.", Success: false, VehicleID: &v.ID}
	}
	return &Result{
		Text:      fmt.Sprintf("Harga %s %s (%s) diubah menjadi %s.", v.Make, v.Model, plate, formatPrice(price)),
		Success:   true,
		VehicleID: &v.ID,
	}
}

func (h *Handler) startUpload(ctx context.Context, tenantID, senderPhone string, media []string) *Result {
	if len(media) == 0 {
		return &Result{Text: "Kirim foto unit dulu untuk mulai upload.", Success: false}
	}

	flow := &turnstate.Flow{
		Type: string(intent.StaffUpload),
		Step: "await_details",
		Data: map[string]string{"images": strings.Join(media, ",")},
	}
	if err := h.flows.SetFlow(ctx, tenantID, senderPhone, flow, 0); err != nil {
		h.logger.Error("upload flow start failed", zap.Error(err))
		return &Result{Text: "Gagal memulai upload, coba lagi.", Success: false}
	}
	return &Result{
		Text:    "Foto diterima. Balas dengan detail unit:\nMerk Model Tahun Warna Plat Harga\ncontoh: Toyota Avanza 2019 Hitam B1234CD 150jt",
		Success: true,
	}
}

func (h *Handler) resumeUpload(ctx context.Context, tenantID, senderPhone, text string, media []string, flow *turnstate.Flow) *Result {
	if len(media) > 0 {
		existing := flow.Data["images"]
		joined := strings.Join(media, ",")
		if existing != "" {
			joined = existing + "," + joined
		}
		flow.Data["images"] = joined
		if err := h.flows.SetFlow(ctx, tenantID, senderPhone, flow, 0); err != nil {
			h.logger.Error("upload flow update failed", zap.Error(err))
		}
		if strings.TrimSpace(text) == "" {
			return &Result{Text: "Foto ditambahkan. Balas dengan detail unit untuk menyimpan.", Success: true}
		}
	}

	draft, ok := parseUploadDetails(text)
	if !ok {
		return &Result{
			Text:    "Detail belum lengkap. Format: Merk Model Tahun Warna Plat Harga\ncontoh: Toyota Avanza 2019 Hitam B1234CD 150jt",
			Success: false,
		}
	}

	draft.ID = ulid.Make().String()
	draft.TenantID = tenantID
	draft.Status = vehicle.StatusAvailable
	if imgs := flow.Data["images"]; imgs != "" {
		draft.Images = strings.Split(imgs, ",")
	}
	if err := h.inventory.Create(ctx, draft); err != nil {
		h.logger.Error("vehicle upload failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return &Result{Text: "Gagal menyimpan unit, coba lagi.", Success: false}
	}

	if err := h.flows.ClearFlow(ctx, tenantID, senderPhone); err != nil {
		h.logger.Warn("upload flow clear failed", zap.Error(err))
	}

	return &Result{
		Text: fmt.Sprintf("Unit tersimpan: %s %s %d %s (%s) %s",
			draft.Make, draft.Model, draft.Year, draft.Color, draft.NumberPlate, formatPrice(draft.Price)),
		Success:   true,
		VehicleID: &draft.ID,
	}
}

func (h *Handler) writeAudit(ctx context.Context, tenantID, senderPhone, text string, si intent.StaffIntent, res *Result) {
	entry := &staff.CommandLog{
		ID:          ulid.Make().String(),
		TenantID:    tenantID,
		StaffPhone:  senderPhone,
		Command:     text,
		CommandType: string(si),
		Success:     res.Success,
		Result:      res.Text,
		VehicleID:   res.VehicleID,
	}
	if err := h.audit.Create(ctx, entry); err != nil {
		h.logger.Error("command audit write failed",
			zap.String("tenant_id", tenantID),
			zap.String("command_type", string(si)),
			zap.Error(err),
		)
	}
}

// parseUploadDetails parses "Merk Model Tahun Warna Plat Harga".
func parseUploadDetails(text string) (*vehicle.Vehicle, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) < 6 {
		return nil, false
	}

	year, err := strconv.Atoi(fields[2])
	if err != nil || year < 1980 || year > 2100 {
		return nil, false
	}
	price := parsePrice(fields[len(fields)-1])
	if price <= 0 {
		return nil, false
	}

	plate := strings.ToUpper(fields[len(fields)-2])
	return &vehicle.Vehicle{
		Make:        fields[0],
		Model:       strings.Join(fields[1:2], " "),
		Year:        year,
		Color:       strings.Join(fields[3:len(fields)-2], " "),
		NumberPlate: plate,
		Price:       price,
	}, true
}

var (
	priceRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(jt|juta|m|rb)?\b`)
	digitRe = regexp.MustCompile(`\d{7,}`)
)

// parsePrice understands "150jt", "150 juta", "1,5m" and plain digit
// amounts like "150000000" or "150.000.000".
func parsePrice(text string) int64 {
	// Plain long digit strings (with thousand separators) first.
	compact := strings.NewReplacer(".", "", ",", "").Replace(text)
	if m := digitRe.FindString(compact); m != "" {
		n, err := strconv.ParseInt(m, 10, 64)
		if err == nil {
			return n
		}
	}

	best := int64(0)
	for _, m := range priceRe.FindAllStringSubmatch(text, -1) {
		if m[2] == "" {
			continue
		}
		val, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			continue
		}
		var mult float64
		switch strings.ToLower(m[2]) {
		case "jt", "juta":
			mult = 1_000_000
		case "m":
			mult = 1_000_000_000
		case "rb":
			mult = 1_000
		}
		if n := int64(val * mult); n > best {
			best = n
		}
	}
	return best
}

func formatPrice(p int64) string {
	s := strconv.FormatInt(p, 10)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return "Rp " + strings.Join(parts, ".")
}
