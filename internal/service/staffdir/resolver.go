// internal/service/staffdir/resolver.go
package staffdir

import (
	"context"
	"fmt"

	"otodealer-service/internal/domain/staff"
	"otodealer-service/internal/pkg/phone"

	"go.uber.org/zap"
)

// DirectoryReader lists active users of a tenant plus platform users that
// belong to no tenant.
type DirectoryReader interface {
	ListActiveForTenant(ctx context.Context, tenantID string) ([]*staff.User, error)
}

// Resolver answers "is this phone registered staff" for one inbound turn.
// Results are never cached across turns: hires and role changes must take
// effect on the very next message, and stale is_staff flags on stored
// conversations self-correct against this lookup.
type Resolver struct {
	directory DirectoryReader
	logger    *zap.Logger
}

func NewResolver(directory DirectoryReader, logger *zap.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		logger:    logger,
	}
}

// Resolve tests the sender phone against the tenant directory. Matching
// goes through phone.Equal, so entries stored as 08xx still match inbound
// 628xx senders.
func (r *Resolver) Resolve(ctx context.Context, tenantID, senderPhone string) (*staff.Resolution, error) {
	if phone.Normalize(senderPhone) == "" {
		return &staff.Resolution{}, nil
	}

	users, err := r.directory.ListActiveForTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve staff: %w", err)
	}

	for _, u := range users {
		if phone.Equal(u.Phone, senderPhone) {
			return &staff.Resolution{
				IsStaff:     true,
				Name:        u.Name,
				Role:        u.Role,
				Permissions: u.Permissions,
			}, nil
		}
	}

	return &staff.Resolution{}, nil
}

// IsStaffPhone is the hard-gate variant used by lead capture: any error is
// treated as "unknown, keep the gate closed" so a directory outage can never
// let a staff phone through as a lead.
func (r *Resolver) IsStaffPhone(ctx context.Context, tenantID, candidatePhone string) bool {
	res, err := r.Resolve(ctx, tenantID, candidatePhone)
	if err != nil {
		r.logger.Warn("staff lookup failed, treating phone as staff for lead exclusion",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return true
	}
	return res.IsStaff
}
