package integrity

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/associations"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DealSource pages through a tenant's deals in id order.
type DealSource interface {
	ListPage(ctx context.Context, tenantID string, afterID string, limit int) ([]models.Deal, error)
}

// ReportStore persists finished reports.
type ReportStore interface {
	Create(ctx context.Context, report *models.IntegrityReport) error
}

// Reporter scans a tenant's deals and measures association drift. The scan
// is read-only; its only side effect is appending one report record.
type Reporter struct {
	deals    DealSource
	reports  ReportStore
	events   events.Events
	logger   ectologger.Logger
	pageSize int
}

// NewReporter creates a new integrity reporter
func NewReporter(deals DealSource, reports ReportStore, ev events.Events, logger ectologger.Logger, pageSize int) *Reporter {
	return &Reporter{
		deals:    deals,
		reports:  reports,
		events:   ev,
		logger:   logger,
		pageSize: pageSize,
	}
}

// Run scans every deal for the tenant, accumulates issue counters and
// persists the resulting report.
func (r *Reporter) Run(ctx context.Context, tenantID string) (*models.IntegrityReport, error) {
	ctx, span := tracing.StartSpan(ctx, "integrity.Reporter.Run")
	defer span.End()

	report := &models.IntegrityReport{TenantID: tenantID}

	afterID := ""
	for {
		page, err := r.deals.ListPage(ctx, tenantID, afterID, r.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			inspectDeal(&page[i], report)
		}

		afterID = page[len(page)-1].ID
		if len(page) < r.pageSize {
			break
		}
	}

	if err := r.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	r.events.ReportCreated(ctx, report)
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"deals":     report.TotalDeals,
		"issues":    report.IssueCount(),
	}).Info("Integrity report complete")

	return report, nil
}

// inspectDeal accumulates one deal's issues onto the report.
func inspectDeal(deal *models.Deal, report *models.IntegrityReport) {
	report.TotalDeals++

	payload := associations.ParsePayload(deal.Associations)
	assocCompanyIDs := associations.NormalizeEntries(payload.Companies)
	canonicalIDs := associations.NormalizeStrings(deal.CompanyIDs.Data)

	if len(assocCompanyIDs) > 0 && len(canonicalIDs) == 0 {
		report.MissingCompanyIDs++
	}

	if len(assocCompanyIDs) > 0 && effectivePrimary(deal, payload, assocCompanyIDs) == "" {
		report.MissingPrimaryCompany++
	}

	report.CompaniesWithNoSnapshot += associations.CountMissingSnapshots(payload.Companies, associations.CompanySnapshotFields)
	report.ContactsWithNoSnapshot += associations.CountMissingSnapshots(payload.Contacts, associations.ContactSnapshotFields)
	report.SalespeopleWithNoSnapshot += associations.CountMissingSnapshots(payload.Salespeople, associations.SalespersonSnapshotFields)
	report.LocationsWithNoSnapshot += associations.CountMissingSnapshots(payload.Locations, associations.LocationSnapshotFields)
}

// effectivePrimary resolves a deal's primary company the same way the
// rebuilder does: stored pointer, then the payload's pointer, then the
// first normalized company id.
func effectivePrimary(deal *models.Deal, payload associations.Payload, assocCompanyIDs []string) string {
	if deal.PrimaryCompanyID != nil && *deal.PrimaryCompanyID != "" {
		return *deal.PrimaryCompanyID
	}
	if payload.PrimaryCompanyID != "" {
		return payload.PrimaryCompanyID
	}
	if len(assocCompanyIDs) > 0 {
		return assocCompanyIDs[0]
	}
	return ""
}
