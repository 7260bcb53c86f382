package retire

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/batch"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DealStore lists tenants and builds the retirement mutations.
type DealStore interface {
	DistinctTenants(ctx context.Context) ([]string, error)
	ListPage(ctx context.Context, tenantID string, afterID string, limit int) ([]models.Deal, error)
	RetireLegacyMutation(tenantID string, id string, removeIDArrays bool) batch.Mutation
}

// ReportStore fetches the latest integrity report per tenant.
type ReportStore interface {
	Latest(ctx context.Context, tenantID string) (*models.IntegrityReport, error)
}

// DriverFactory builds a fresh batch driver per tenant.
type DriverFactory func() *batch.Driver

// Job removes superseded legacy deal fields tenant by tenant. A tenant is
// only touched when its latest integrity report exists and shows zero
// issues; retiring fields before the canonical replacements are proven
// complete would silently lose data.
type Job struct {
	deals     DealStore
	reports   ReportStore
	newDriver DriverFactory
	events    events.Events
	logger    ectologger.Logger
	pageSize  int
}

// NewJob creates a new legacy field retirement job
func NewJob(deals DealStore, reports ReportStore, newDriver DriverFactory, ev events.Events, logger ectologger.Logger, pageSize int) *Job {
	return &Job{
		deals:     deals,
		reports:   reports,
		newDriver: newDriver,
		events:    ev,
		logger:    logger,
		pageSize:  pageSize,
	}
}

// Run executes retirement across every tenant. Gated and failed tenants
// are skipped and reported; neither aborts the run for other tenants.
func (j *Job) Run(ctx context.Context, req models.RetireRequest) (*models.RetireResult, error) {
	ctx, span := tracing.StartSpan(ctx, "retire.Job.Run")
	defer span.End()

	tenants, err := j.deals.DistinctTenants(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.RetireResult{UpdatedPerTenant: make(map[string]int)}

	for _, tenantID := range tenants {
		report, err := j.reports.Latest(ctx, tenantID)
		if err != nil {
			j.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID}).Error("Failed to load latest integrity report")
			result.Skipped = append(result.Skipped, models.SkippedTenant{TenantID: tenantID, Reason: "failed to load integrity report"})
			continue
		}

		if report == nil {
			result.Skipped = append(result.Skipped, models.SkippedTenant{TenantID: tenantID, Reason: "no integrity report"})
			continue
		}
		if !report.Clean() {
			j.logger.WithContext(ctx).WithFields(map[string]any{"tenant_id": tenantID, "issues": report.IssueCount()}).Warn("Skipping tenant with outstanding integrity issues")
			result.Skipped = append(result.Skipped, models.SkippedTenant{TenantID: tenantID, Reason: "latest report has outstanding issues"})
			continue
		}

		updated, err := j.retireTenant(ctx, tenantID, req.RemoveIDArrays)
		if err != nil {
			j.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID}).Error("Failed to retire legacy fields for tenant")
			result.Skipped = append(result.Skipped, models.SkippedTenant{TenantID: tenantID, Reason: "retirement failed"})
			continue
		}

		result.UpdatedPerTenant[tenantID] = updated
		result.TotalUpdated += updated
		j.events.LegacyRetired(ctx, tenantID, updated)
	}

	return result, nil
}

// retireTenant pages the tenant's deals by id and batches the field
// removals. Paging by last-seen id stays correct even if deals are
// deleted mid-run.
func (j *Job) retireTenant(ctx context.Context, tenantID string, removeIDArrays bool) (int, error) {
	driver := j.newDriver()

	afterID := ""
	for {
		page, err := j.deals.ListPage(ctx, tenantID, afterID, j.pageSize)
		if err != nil {
			return 0, err
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			if err := driver.Add(ctx, j.deals.RetireLegacyMutation(tenantID, page[i].ID, removeIDArrays)); err != nil {
				return 0, err
			}
		}

		afterID = page[len(page)-1].ID
		if len(page) < j.pageSize {
			break
		}
	}

	if err := driver.Flush(ctx); err != nil {
		return 0, err
	}

	j.logger.WithContext(ctx).WithFields(map[string]any{"tenant_id": tenantID, "updated": driver.Applied(), "batches": driver.Batches()}).Info("Retired legacy deal fields")
	return driver.Applied(), nil
}
