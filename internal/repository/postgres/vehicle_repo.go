// internal/repository/postgres/vehicle_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"otodealer-service/internal/domain/vehicle"
	xerrors "otodealer-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type VehicleRepository struct {
	db *pgxpool.Pool
}

func NewVehicleRepository(db *pgxpool.Pool) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `
	id, tenant_id, make, model, year, color, number_plate, price, mileage,
	transmission, fuel_type, status, images, description, created_by,
	created_at, updated_at
`

// Create inserts a vehicle (staff upload flow inserts drafts).
func (r *VehicleRepository) Create(ctx context.Context, v *vehicle.Vehicle) error {
	query := `
		INSERT INTO vehicles (
			id, tenant_id, make, model, year, color, number_plate, price, mileage,
			transmission, fuel_type, status, images, description, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		v.ID, v.TenantID, v.Make, v.Model, v.Year, v.Color, v.NumberPlate, v.Price, v.Mileage,
		v.Transmission, v.FuelType, v.Status, pq.StringArray(v.Images), v.Description, v.CreatedBy,
	).Scan(&v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	return nil
}

// ListAvailable returns available units of a tenant, newest first.
func (r *VehicleRepository) ListAvailable(ctx context.Context, tenantID string, limit int) ([]*vehicle.Vehicle, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM vehicles
		WHERE tenant_id = $1 AND status = 'available'
		ORDER BY created_at DESC
		LIMIT $2
	`, vehicleColumns)

	rows, err := r.db.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	return collectVehicles(rows)
}

// Search matches available units by make/model substring, for interest
// resolution ("mau tanya Avanza" -> the Avanza unit).
func (r *VehicleRepository) Search(ctx context.Context, tenantID, term string, limit int) ([]*vehicle.Vehicle, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM vehicles
		WHERE tenant_id = $1 AND status = 'available'
		  AND (make ILIKE '%%' || $2 || '%%' OR model ILIKE '%%' || $2 || '%%')
		ORDER BY created_at DESC
		LIMIT $3
	`, vehicleColumns)

	rows, err := r.db.Query(ctx, query, tenantID, term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search vehicles: %w", err)
	}
	defer rows.Close()

	return collectVehicles(rows)
}

// FindByPlate locates one unit by number plate (staff status commands).
func (r *VehicleRepository) FindByPlate(ctx context.Context, tenantID, plate string) (*vehicle.Vehicle, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vehicles
		WHERE tenant_id = $1 AND REPLACE(UPPER(number_plate), ' ', '') = REPLACE(UPPER($2), ' ', '')
		LIMIT 1
	`, vehicleColumns)

	row := r.db.QueryRow(ctx, query, tenantID, plate)
	return scanVehicle(row)
}

// UpdateStatus moves a unit to a new lifecycle status.
func (r *VehicleRepository) UpdateStatus(ctx context.Context, tenantID, id string, status vehicle.Status) error {
	query := `UPDATE vehicles SET status = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, tenantID, id, status)
	if err != nil {
		return fmt.Errorf("failed to update vehicle status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// UpdatePrice rewrites the asking price.
func (r *VehicleRepository) UpdatePrice(ctx context.Context, tenantID, id string, price int64) error {
	query := `UPDATE vehicles SET price = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, tenantID, id, price)
	if err != nil {
		return fmt.Errorf("failed to update vehicle price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Stats counts the tenant's units per lifecycle status.
func (r *VehicleRepository) Stats(ctx context.Context, tenantID string) (*vehicle.StatsByStatus, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'available'),
			COUNT(*) FILTER (WHERE status = 'booked'),
			COUNT(*) FILTER (WHERE status = 'sold'),
			COUNT(*) FILTER (WHERE status = 'draft')
		FROM vehicles
		WHERE tenant_id = $1
	`

	var s vehicle.StatsByStatus
	err := r.db.QueryRow(ctx, query, tenantID).Scan(&s.Available, &s.Booked, &s.Sold, &s.Draft)
	if err != nil {
		return nil, fmt.Errorf("failed to count vehicles: %w", err)
	}
	return &s, nil
}

func collectVehicles(rows pgx.Rows) ([]*vehicle.Vehicle, error) {
	var out []*vehicle.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vehicles: %w", err)
	}
	return out, nil
}

func scanVehicle(row pgx.Row) (*vehicle.Vehicle, error) {
	var v vehicle.Vehicle
	var images pq.StringArray
	err := row.Scan(
		&v.ID, &v.TenantID, &v.Make, &v.Model, &v.Year, &v.Color, &v.NumberPlate, &v.Price, &v.Mileage,
		&v.Transmission, &v.FuelType, &v.Status, &images, &v.Description, &v.CreatedBy,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan vehicle: %w", err)
	}
	v.Images = images
	return &v, nil
}
