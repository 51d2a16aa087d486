// internal/service/leadgate/gate.go
package leadgate

import (
	"context"
	"regexp"
	"strings"
	"time"

	"otodealer-service/internal/domain/lead"
	xerrors "otodealer-service/internal/pkg/errors"
	"otodealer-service/internal/pkg/phone"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// LeadStore is the persistence collaborator of the gate.
type LeadStore interface {
	FindLatestByPhones(ctx context.Context, tenantID string, phoneVariants []string) (*lead.Lead, error)
	Create(ctx context.Context, l *lead.Lead) error
	UpdateCapture(ctx context.Context, l *lead.Lead) error
}

// StaffChecker answers whether a phone belongs to registered staff. Errors
// inside the checker must come back as "is staff" so the exclusion gate
// stays closed.
type StaffChecker interface {
	IsStaffPhone(ctx context.Context, tenantID, candidatePhone string) bool
}

// Candidate carries the signals one conversational turn extracted.
type Candidate struct {
	TenantID     string
	Phone        string
	Name         string
	Message      string
	VehicleRef   string  // free-text interest, e.g. "avanza"
	VehicleID    *string // resolved inventory unit, when matched
	IntentSignal bool    // price/stock/credit interest detected
}

// Gate decides whether a conversational turn is lead-worthy and performs an
// idempotent upsert. It fails soft: a capture bug never disturbs the reply
// that was already sent to the customer.
type Gate struct {
	leads  LeadStore
	staff  StaffChecker
	logger *zap.Logger
	now    func() time.Time
}

func NewGate(leads LeadStore, staff StaffChecker, logger *zap.Logger) *Gate {
	return &Gate{
		leads:  leads,
		staff:  staff,
		logger: logger,
		now:    time.Now,
	}
}

// placeholder names that auto-created records carry before a real name is
// known. Exact matches, case-insensitive.
var namePlaceholders = map[string]bool{
	"unknown":       true,
	"customer":      true,
	"customer baru": true,
}

var phoneShapedRe = regexp.MustCompile(`^(62|08|\+62|0)\d{8,13}$`)

// CaptureIfWorthy runs the four-step gate and upserts on success. Returns
// nil whenever the turn is not lead-worthy, the phone belongs to staff, or
// anything fails internally.
func (g *Gate) CaptureIfWorthy(ctx context.Context, c Candidate) (out *lead.Lead) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("lead capture panic", zap.Any("panic", r), zap.String("tenant_id", c.TenantID))
			out = nil
		}
	}()

	normalized := phone.Normalize(c.Phone)
	if normalized == "" || phone.LooksLikeOpaqueID(normalized) {
		return nil
	}

	// Step 1: staff exclusion. Hard gate regardless of name/interest.
	if g.staff.IsStaffPhone(ctx, c.TenantID, normalized) {
		g.logger.Warn("lead capture blocked for staff phone",
			zap.String("tenant_id", c.TenantID),
			zap.String("phone", normalized),
		)
		return nil
	}

	// Steps 2+3: both a plausible name and an expressed interest.
	if !ValidName(c.Name, normalized) {
		return nil
	}
	hasInterest := c.VehicleRef != "" || c.VehicleID != nil || c.IntentSignal
	if !hasInterest {
		return nil
	}

	l, err := g.upsert(ctx, c, normalized)
	if err != nil {
		g.logger.Error("lead capture failed",
			zap.String("tenant_id", c.TenantID),
			zap.String("phone", normalized),
			zap.Error(err),
		)
		return nil
	}
	return l
}

// ValidName reports whether a candidate name is a plausible human name:
// present, longer than two characters, not a placeholder, not the phone
// itself and not phone-number-shaped.
func ValidName(name, normalizedPhone string) bool {
	n := strings.TrimSpace(name)
	if len(n) <= 2 {
		return false
	}
	if namePlaceholders[strings.ToLower(n)] {
		return false
	}
	compact := strings.NewReplacer(" ", "", "-", "").Replace(n)
	if phoneShapedRe.MatchString(compact) {
		return false
	}
	if phone.Normalize(compact) == normalizedPhone && normalizedPhone != "" {
		return false
	}
	return true
}

func (g *Gate) upsert(ctx context.Context, c Candidate, normalized string) (*lead.Lead, error) {
	now := g.now()
	interest := strings.TrimSpace(c.VehicleRef)

	existing, err := g.leads.FindLatestByPhones(ctx, c.TenantID, phone.Variants(normalized))
	if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		existing.LastContactAt = now
		// A real name only ever replaces a placeholder, never another
		// real name.
		if !ValidName(existing.Name, normalized) {
			existing.Name = strings.TrimSpace(c.Name)
		}
		if interest != "" {
			existing.InterestedIn = &interest
		}
		if c.VehicleID != nil {
			existing.VehicleID = c.VehicleID
		}
		// Advance-only: a qualifying signal may promote NEW to QUALIFIED,
		// nothing here ever moves a lead backward.
		if c.IntentSignal && lead.CanAdvance(existing.Status, lead.StatusQualified) {
			existing.Status = lead.StatusQualified
		}
		if err := g.leads.UpdateCapture(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	l := &lead.Lead{
		ID:            ulid.Make().String(),
		TenantID:      c.TenantID,
		Name:          strings.TrimSpace(c.Name),
		Phone:         normalized,
		WhatsApp:      normalized,
		Message:       c.Message,
		Source:        lead.SourceWhatsAppAuto,
		Status:        lead.StatusNew,
		Priority:      lead.PriorityMedium,
		VehicleID:     c.VehicleID,
		LastContactAt: now,
	}
	if interest != "" {
		l.InterestedIn = &interest
	}
	if err := g.leads.Create(ctx, l); err != nil {
		return nil, err
	}

	g.logger.Info("lead captured",
		zap.String("tenant_id", c.TenantID),
		zap.String("lead_id", l.ID),
		zap.String("phone", normalized),
	)
	return l, nil
}
