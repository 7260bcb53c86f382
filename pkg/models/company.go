package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
)

// Company is a tenant-scoped company document. Domain, when present, is
// the strongest duplicate-identity signal; HasActiveDeals protects the
// company from collapse independently of its reverse index.
type Company struct {
	ID             string                             `json:"id" db:"id"`
	TenantID       string                             `json:"tenant_id" db:"tenant_id"`
	Name           string                             `json:"name" db:"name"`
	Domain         *string                            `json:"domain,omitempty" db:"domain"`
	Associations   database.JSONB[EntityAssociations] `json:"associations" db:"associations"`
	HasActiveDeals bool                               `json:"has_active_deals" db:"has_active_deals"`
	CreatedAt      time.Time                          `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time                         `json:"updated_at,omitempty" db:"updated_at"`
	DeletedAt      *time.Time                         `json:"deleted_at,omitempty" db:"deleted_at"`
}

// EffectiveTimestamp orders duplicate candidates for survivor selection:
// updatedAt when present, else createdAt, else the zero time.
func (c Company) EffectiveTimestamp() time.Time {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

// Referenced reports whether any deal references this company, directly
// via the active-deals flag or through the deals reverse index.
func (c Company) Referenced() bool {
	if c.HasActiveDeals {
		return true
	}
	return len(c.Associations.Data.DealIDs()) > 0
}
