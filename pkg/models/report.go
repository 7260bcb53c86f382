package models

import "time"

// IntegrityReport is an immutable, timestamped measurement of association
// drift across one tenant's deals. Reports are only ever appended; the
// newest report for a tenant gates legacy field retirement.
type IntegrityReport struct {
	ID                        string    `json:"id" db:"id"`
	TenantID                  string    `json:"tenant_id" db:"tenant_id"`
	TotalDeals                int       `json:"total_deals" db:"total_deals"`
	MissingCompanyIDs         int       `json:"missing_company_ids" db:"missing_company_ids"`
	MissingPrimaryCompany     int       `json:"missing_primary_company" db:"missing_primary_company"`
	CompaniesWithNoSnapshot   int       `json:"companies_with_no_snapshot" db:"companies_with_no_snapshot"`
	ContactsWithNoSnapshot    int       `json:"contacts_with_no_snapshot" db:"contacts_with_no_snapshot"`
	SalespeopleWithNoSnapshot int       `json:"salespeople_with_no_snapshot" db:"salespeople_with_no_snapshot"`
	LocationsWithNoSnapshot   int       `json:"locations_with_no_snapshot" db:"locations_with_no_snapshot"`
	CreatedAt                 time.Time `json:"created_at" db:"created_at"`
}

// IssueCount sums the counters that must be zero before legacy deal
// fields may be retired for the tenant.
func (r IntegrityReport) IssueCount() int {
	return r.MissingCompanyIDs +
		r.MissingPrimaryCompany +
		r.CompaniesWithNoSnapshot +
		r.ContactsWithNoSnapshot +
		r.SalespeopleWithNoSnapshot +
		r.LocationsWithNoSnapshot
}

// Clean reports whether the report shows no outstanding issues.
func (r IntegrityReport) Clean() bool {
	return r.IssueCount() == 0
}
