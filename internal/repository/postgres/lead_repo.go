// internal/repository/postgres/lead_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"otodealer-service/internal/domain/lead"
	xerrors "otodealer-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LeadRepository struct {
	db *pgxpool.Pool
}

func NewLeadRepository(db *pgxpool.Pool) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `
	id, tenant_id, name, phone, whatsapp, message, source, status, priority,
	urgency, interested_in, vehicle_id, budget_range, timeframe, assigned_to,
	notes, last_contact_at, created_at, updated_at
`

// Create inserts a new lead row.
func (r *LeadRepository) Create(ctx context.Context, l *lead.Lead) error {
	query := `
		INSERT INTO leads (
			id, tenant_id, name, phone, whatsapp, message, source, status, priority,
			urgency, interested_in, vehicle_id, budget_range, timeframe, assigned_to,
			notes, last_contact_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		l.ID, l.TenantID, l.Name, l.Phone, l.WhatsApp, l.Message, l.Source, l.Status, l.Priority,
		l.Urgency, l.InterestedIn, l.VehicleID, l.BudgetRange, l.Timeframe, l.AssignedTo,
		l.Notes, l.LastContactAt,
	).Scan(&l.CreatedAt, &l.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	return nil
}

// FindLatestByPhones returns the most recent lead whose phone matches any of
// the given variants. Phone is not a unique key; historical duplicates may
// exist and the newest row is the effective identity.
func (r *LeadRepository) FindLatestByPhones(ctx context.Context, tenantID string, phoneVariants []string) (*lead.Lead, error) {
	if len(phoneVariants) == 0 {
		return nil, xerrors.ErrNotFound
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE tenant_id = $1 AND (phone = ANY($2) OR whatsapp = ANY($2))
		ORDER BY created_at DESC
		LIMIT 1
	`, leadColumns)

	row := r.db.QueryRow(ctx, query, tenantID, phoneVariants)
	return scanLead(row)
}

// UpdateCapture applies the fields the auto-capture path may touch. The
// update is column-scoped; status is written as given (the caller enforces
// the advance-only rule before calling).
func (r *LeadRepository) UpdateCapture(ctx context.Context, l *lead.Lead) error {
	query := `
		UPDATE leads
		SET name = $2, status = $3, interested_in = $4, vehicle_id = $5,
		    last_contact_at = $6, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, l.ID, l.Name, l.Status, l.InterestedIn, l.VehicleID, l.LastContactAt)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// List returns the tenant's leads, newest first.
func (r *LeadRepository) List(ctx context.Context, tenantID string, filters *lead.LeadListFilters) ([]*lead.Lead, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE tenant_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, leadColumns)

	pageSize := 20
	pageNum := 1
	var status *lead.Status
	if filters != nil {
		if filters.PageSize > 0 {
			pageSize = filters.PageSize
		}
		if filters.Page > 0 {
			pageNum = filters.Page
		}
		status = filters.Status
	}

	rows, err := r.db.Query(ctx, query, tenantID, status, pageSize, (pageNum-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var out []*lead.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	return out, nil
}

func scanLead(row pgx.Row) (*lead.Lead, error) {
	var l lead.Lead
	err := row.Scan(
		&l.ID, &l.TenantID, &l.Name, &l.Phone, &l.WhatsApp, &l.Message, &l.Source, &l.Status, &l.Priority,
		&l.Urgency, &l.InterestedIn, &l.VehicleID, &l.BudgetRange, &l.Timeframe, &l.AssignedTo,
		&l.Notes, &l.LastContactAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}
	return &l, nil
}
