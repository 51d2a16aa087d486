package staff

// internal/domain/staff/entity.go

import "time"

// User is a directory entry for one employee of a tenant. Platform-level
// roles (owner, support) have no tenant and apply across all tenants.
type User struct {
	ID          string    `json:"id" db:"id"`
	TenantID    *string   `json:"tenant_id,omitempty" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Phone       string    `json:"phone" db:"phone"`
	Role        string    `json:"role" db:"role"`
	Permissions []string  `json:"permissions" db:"permissions"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Resolution is the outcome of a per-turn staff lookup.
type Resolution struct {
	IsStaff     bool     `json:"is_staff"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// CommandLog is an append-only audit record of one staff-issued command
// execution attempt.
type CommandLog struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	StaffPhone  string    `json:"staff_phone" db:"staff_phone"`
	Command     string    `json:"command" db:"command"`
	CommandType string    `json:"command_type" db:"command_type"`
	Success     bool      `json:"success" db:"success"`
	Result      string    `json:"result" db:"result"`
	VehicleID   *string   `json:"vehicle_id,omitempty" db:"vehicle_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
