package integrityreport

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const reportColumns = "id, tenant_id, total_deals, missing_company_ids, missing_primary_company, companies_with_no_snapshot, contacts_with_no_snapshot, salespeople_with_no_snapshot, locations_with_no_snapshot, created_at"

// Repository handles integrity report persistence. Reports are append-only;
// there is no update path.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new integrity report repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new report
func (r *Repository) Create(ctx context.Context, report *models.IntegrityReport) error {
	ctx, span := tracing.StartSpan(ctx, "integrityreport.Repository.Create")
	defer span.End()

	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	report.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("integrity_reports")
	sb.Cols("id", "tenant_id", "total_deals", "missing_company_ids", "missing_primary_company", "companies_with_no_snapshot", "contacts_with_no_snapshot", "salespeople_with_no_snapshot", "locations_with_no_snapshot", "created_at")
	sb.Values(report.ID, report.TenantID, report.TotalDeals, report.MissingCompanyIDs, report.MissingPrimaryCompany, report.CompaniesWithNoSnapshot, report.ContactsWithNoSnapshot, report.SalespeopleWithNoSnapshot, report.LocationsWithNoSnapshot, report.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create integrity report")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create integrity report")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": report.ID, "tenant_id": report.TenantID, "issues": report.IssueCount()}).Info("Created integrity report")
	return nil
}

// Latest returns the most recent report for the tenant, or nil when the
// tenant has never been reported on.
func (r *Repository) Latest(ctx context.Context, tenantID string) (*models.IntegrityReport, error) {
	ctx, span := tracing.StartSpan(ctx, "integrityreport.Repository.Latest")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reportColumns)
	sb.From("integrity_reports")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var report models.IntegrityReport
	if err := r.db.GetContext(ctx, &report, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get latest integrity report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get latest integrity report")
	}

	return &report, nil
}
