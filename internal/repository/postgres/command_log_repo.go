// internal/repository/postgres/command_log_repo.go
package postgres

import (
	"context"
	"fmt"

	"otodealer-service/internal/domain/staff"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CommandLogRepository struct {
	db *pgxpool.Pool
}

func NewCommandLogRepository(db *pgxpool.Pool) *CommandLogRepository {
	return &CommandLogRepository{db: db}
}

// Create appends one audit row. The log is append-only.
func (r *CommandLogRepository) Create(ctx context.Context, l *staff.CommandLog) error {
	query := `
		INSERT INTO staff_command_logs (
			id, tenant_id, staff_phone, command, command_type, success, result, vehicle_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		l.ID, l.TenantID, l.StaffPhone, l.Command, l.CommandType, l.Success, l.Result, l.VehicleID,
	).Scan(&l.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create command log: %w", err)
	}

	return nil
}
