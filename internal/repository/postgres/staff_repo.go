// internal/repository/postgres/staff_repo.go
package postgres

import (
	"context"
	"fmt"

	"otodealer-service/internal/domain/staff"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type StaffRepository struct {
	db *pgxpool.Pool
}

func NewStaffRepository(db *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{db: db}
}

// ListActiveForTenant returns the active directory users of a tenant plus
// platform users that have no tenant. This is read fresh on every inbound
// turn so role changes take effect immediately.
func (r *StaffRepository) ListActiveForTenant(ctx context.Context, tenantID string) ([]*staff.User, error) {
	query := `
		SELECT id, tenant_id, name, phone, role, permissions, is_active, created_at, updated_at
		FROM users
		WHERE (tenant_id = $1 OR tenant_id IS NULL) AND is_active = TRUE
	`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var out []*staff.User
	for rows.Next() {
		var u staff.User
		var perms pq.StringArray
		err := rows.Scan(
			&u.ID, &u.TenantID, &u.Name, &u.Phone, &u.Role, &perms, &u.IsActive,
			&u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff user: %w", err)
		}
		u.Permissions = perms
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}

	return out, nil
}
