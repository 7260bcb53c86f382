package models

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
)

// Deal is a tenant-scoped deal document. The raw association payload lives
// in Associations; the per-bucket id arrays and PrimaryCompanyID are a
// derived cache of that payload maintained by the rebuild engine.
type Deal struct {
	ID             string                   `json:"id" db:"id"`
	TenantID       string                   `json:"tenant_id" db:"tenant_id"`
	Name           string                   `json:"name" db:"name"`
	Associations   json.RawMessage          `json:"associations,omitempty" db:"associations"`
	CompanyIDs     database.JSONB[[]string] `json:"company_ids" db:"company_ids"`
	ContactIDs     database.JSONB[[]string] `json:"contact_ids" db:"contact_ids"`
	SalespersonIDs database.JSONB[[]string] `json:"salesperson_ids" db:"salesperson_ids"`
	LocationIDs    database.JSONB[[]string] `json:"location_ids" db:"location_ids"`

	PrimaryCompanyID *string `json:"primary_company_id,omitempty" db:"primary_company_id"`

	// Superseded by CompanyIDs/PrimaryCompanyID; removed by the retirement job.
	LegacyCompanyID   *string `json:"company_id,omitempty" db:"company_id"`
	LegacyCompanyName *string `json:"company_name,omitempty" db:"company_name"`

	AssociationsRebuiltAt *time.Time `json:"associations_rebuilt_at,omitempty" db:"associations_rebuilt_at"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

// DerivedAssociations is the set of fields the Deal Association Rebuilder
// recomputes from a deal's raw association payload.
type DerivedAssociations struct {
	CompanyIDs       []string
	ContactIDs       []string
	SalespersonIDs   []string
	LocationIDs      []string
	PrimaryCompanyID *string
	RebuiltAt        time.Time
}

// RebuildDealResponse is returned by the single-deal rebuild operation.
type RebuildDealResponse struct {
	DealID           string   `json:"deal_id"`
	CompanyIDs       []string `json:"company_ids"`
	ContactIDs       []string `json:"contact_ids"`
	SalespersonIDs   []string `json:"salesperson_ids"`
	LocationIDs      []string `json:"location_ids"`
	PrimaryCompanyID *string  `json:"primary_company_id"`
}

// RebuildAllDealsResponse is returned by the tenant-wide backfill.
type RebuildAllDealsResponse struct {
	TenantID string `json:"tenant_id"`
	Scanned  int    `json:"scanned"`
	Updated  int    `json:"updated"`
}
