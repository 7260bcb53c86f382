package models

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/fern/pkg/associations"
	"github.com/Ramsey-B/fern/pkg/database"
)

// EntityType identifies one of the non-deal entity kinds a deal can
// associate with.
type EntityType string

const (
	EntityTypeCompany     EntityType = "company"
	EntityTypeContact     EntityType = "contact"
	EntityTypeSalesperson EntityType = "salesperson"
	EntityTypeLocation    EntityType = "location"
)

// ParseEntityType validates an entity type from an API path segment.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityTypeCompany, EntityTypeContact, EntityTypeSalesperson, EntityTypeLocation:
		return EntityType(s), nil
	}
	return "", httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown entity type %q", s))
}

// Table returns the table holding entities of this type.
func (t EntityType) Table() string {
	switch t {
	case EntityTypeCompany:
		return "companies"
	case EntityTypeContact:
		return "contacts"
	case EntityTypeSalesperson:
		return "salespeople"
	case EntityTypeLocation:
		return "locations"
	}
	return ""
}

// DealIDColumn returns the deals column caching the canonical id array for
// this entity type's association bucket.
func (t EntityType) DealIDColumn() string {
	switch t {
	case EntityTypeCompany:
		return "company_ids"
	case EntityTypeContact:
		return "contact_ids"
	case EntityTypeSalesperson:
		return "salesperson_ids"
	case EntityTypeLocation:
		return "location_ids"
	}
	return ""
}

// EntityAssociations is the associations document on a non-deal entity.
// Deals is the reverse index maintained by the reindex engine; entries may
// be bare ids or objects like any other association value. Deals must not
// be omitempty: a rebuild that finds zero referencing deals merges
// `"deals": []` over the document, and dropping the key would leave a
// stale back-reference list in place.
type EntityAssociations struct {
	Deals          []associations.Entry `json:"deals"`
	DealsRebuiltAt *time.Time           `json:"dealsRebuiltAt,omitempty"`
}

// DealIDs returns the non-empty deal ids in the reverse index.
func (a EntityAssociations) DealIDs() []string {
	return associations.NormalizeEntries(a.Deals)
}

// RelatedEntity is the shared shape of companies, contacts, salespeople and
// locations: an id, a display name, and an associations document that may
// carry a deals back-reference list.
type RelatedEntity struct {
	ID           string                             `json:"id" db:"id"`
	TenantID     string                             `json:"tenant_id" db:"tenant_id"`
	Name         string                             `json:"name" db:"name"`
	Associations database.JSONB[EntityAssociations] `json:"associations" db:"associations"`
	CreatedAt    time.Time                          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time                          `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time                         `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ReindexResponse is returned by the reverse-index rebuild operation.
type ReindexResponse struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Deals      int        `json:"deals"`
}
