package models

// RetireRequest is the argument object for a legacy field retirement run.
type RetireRequest struct {
	// RemoveIDArrays additionally clears the contact/salesperson/location
	// id-array fields. The company_ids array is the canonical replacement
	// for the legacy scalar and is always retained.
	RemoveIDArrays bool `json:"removeIdArrays"`
}

// SkippedTenant records a tenant the retirement job refused to touch.
type SkippedTenant struct {
	TenantID string `json:"tenant_id"`
	Reason   string `json:"reason"`
}

// RetireResult summarizes a retirement run across all tenants.
type RetireResult struct {
	UpdatedPerTenant map[string]int  `json:"updated_per_tenant"`
	TotalUpdated     int             `json:"total_updated"`
	Skipped          []SkippedTenant `json:"skipped"`
}
