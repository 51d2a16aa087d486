package lead

// internal/domain/lead/entity.go

import "time"

type Status string
type Priority string
type Source string

const (
	StatusNew         Status = "NEW"
	StatusContacted   Status = "CONTACTED"
	StatusQualified   Status = "QUALIFIED"
	StatusNegotiating Status = "NEGOTIATING"
	StatusWon         Status = "WON"
	StatusLost        Status = "LOST"

	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"

	SourceWebsite      Source = "website"
	SourceWhatsApp     Source = "whatsapp"
	SourceWhatsAppAuto Source = "whatsapp_auto"
)

// statusRank orders the funnel. Automatic writes may only move a lead
// forward along this rank; moving backward requires an explicit staff
// update.
var statusRank = map[Status]int{
	StatusNew:         0,
	StatusContacted:   1,
	StatusQualified:   2,
	StatusNegotiating: 3,
	StatusWon:         4,
	StatusLost:        4,
}

// Rank returns the funnel position of s, or -1 for an unknown status.
func Rank(s Status) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// CanAdvance reports whether an automatic transition from cur to next is a
// forward move.
func CanAdvance(cur, next Status) bool {
	return Rank(next) > Rank(cur)
}

// Lead is a prospect owned by a tenant, keyed loosely by phone: multiple
// historical rows may exist and "most recent by phone" is the effective
// identity. A Lead must never exist for a registered staff phone.
type Lead struct {
	ID            string    `json:"id" db:"id"`
	TenantID      string    `json:"tenant_id" db:"tenant_id"`
	Name          string    `json:"name" db:"name"`
	Phone         string    `json:"phone" db:"phone"`
	WhatsApp      string    `json:"whatsapp" db:"whatsapp"`
	Message       string    `json:"message" db:"message"`
	Source        Source    `json:"source" db:"source"`
	Status        Status    `json:"status" db:"status"`
	Priority      Priority  `json:"priority" db:"priority"`
	Urgency       *string   `json:"urgency,omitempty" db:"urgency"`
	InterestedIn  *string   `json:"interested_in,omitempty" db:"interested_in"`
	VehicleID     *string   `json:"vehicle_id,omitempty" db:"vehicle_id"`
	BudgetRange   *string   `json:"budget_range,omitempty" db:"budget_range"`
	Timeframe     *string   `json:"timeframe,omitempty" db:"timeframe"`
	AssignedTo    *string   `json:"assigned_to,omitempty" db:"assigned_to"`
	Notes         *string   `json:"notes,omitempty" db:"notes"`
	LastContactAt time.Time `json:"last_contact_at" db:"last_contact_at"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// LeadListFilters for listing leads.
type LeadListFilters struct {
	Status   *Status `form:"status"`
	Page     int     `form:"page" binding:"min=0"`
	PageSize int     `form:"page_size" binding:"min=0,max=100"`
}
