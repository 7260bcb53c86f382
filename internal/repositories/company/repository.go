package company

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/batch"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const companyColumns = "id, tenant_id, name, domain, associations, has_active_deals, created_at, updated_at, deleted_at"

// Repository handles company persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new company repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a company by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(companyColumns)
	sb.From("companies")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("company %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get company")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get company")
	}

	return &company, nil
}

// ListByTenant returns every live company for the tenant, ordered by id so
// duplicate grouping stays deterministic across runs.
func (r *Repository) ListByTenant(ctx context.Context, tenantID string) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.ListByTenant")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(companyColumns)
	sb.From("companies")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("id ASC")

	query, args := sb.Build()
	var companies []models.Company
	if err := r.db.SelectContext(ctx, &companies, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list companies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list companies")
	}

	return companies, nil
}

// SoftDeleteMutation marks one company as deleted. Duplicate collapse is a
// soft delete so a mistaken run can be reversed by hand.
func (r *Repository) SoftDeleteMutation(tenantID string, id string) batch.Mutation {
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("companies")
	sb.Set(sb.Assign("deleted_at", time.Now().UTC()))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	return batch.Mutation{SQL: query, Args: args}
}
