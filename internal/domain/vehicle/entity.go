package vehicle

// internal/domain/vehicle/entity.go

import "time"

type Status string
type TransmissionType string
type FuelType string

const (
	StatusDraft     Status = "draft"
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
	StatusSold      Status = "sold"

	TransmissionManual    TransmissionType = "manual"
	TransmissionAutomatic TransmissionType = "automatic"

	FuelTypePetrol   FuelType = "petrol"
	FuelTypeDiesel   FuelType = "diesel"
	FuelTypeElectric FuelType = "electric"
	FuelTypeHybrid   FuelType = "hybrid"
)

// Vehicle is one unit in a tenant's inventory. Units created through the
// staff WhatsApp upload flow start as drafts until the flow completes.
type Vehicle struct {
	ID           string           `json:"id" db:"id"`
	TenantID     string           `json:"tenant_id" db:"tenant_id"`
	Make         string           `json:"make" db:"make"`
	Model        string           `json:"model" db:"model"`
	Year         int              `json:"year" db:"year"`
	Color        string           `json:"color" db:"color"`
	NumberPlate  string           `json:"number_plate" db:"number_plate"`
	Price        int64            `json:"price" db:"price"`
	Mileage      *int             `json:"mileage,omitempty" db:"mileage"`
	Transmission TransmissionType `json:"transmission" db:"transmission"`
	FuelType     FuelType         `json:"fuel_type" db:"fuel_type"`
	Status       Status           `json:"status" db:"status"`
	Images       []string         `json:"images" db:"images"`
	Description  *string          `json:"description,omitempty" db:"description"`
	CreatedBy    *string          `json:"created_by,omitempty" db:"created_by"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// StatsByStatus is an inventory roll-up used by the staff "stats" command.
type StatsByStatus struct {
	Available int `json:"available"`
	Booked    int `json:"booked"`
	Sold      int `json:"sold"`
	Draft     int `json:"draft"`
}
