package deal

import (
	"context"
	"encoding/json"
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

const dealColumns = "id, tenant_id, name, associations, company_ids, contact_ids, salesperson_ids, location_ids, primary_company_id, company_id, company_name, associations_rebuilt_at, created_at, updated_at"

// Repository handles deal persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new deal repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a deal by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Deal, error) {
	ctx, span := tracing.StartSpan(ctx, "deal.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(dealColumns)
	sb.From("deals")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var deal models.Deal
	if err := r.db.GetContext(ctx, &deal, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("deal %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get deal")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get deal")
	}

	return &deal, nil
}

// ListPage returns one page of a tenant's deals, keyed by the last seen id
// so the scan stays correct when documents are deleted mid-run.
func (r *Repository) ListPage(ctx context.Context, tenantID string, afterID string, limit int) ([]models.Deal, error) {
	ctx, span := tracing.StartSpan(ctx, "deal.Repository.ListPage")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(dealColumns)
	sb.From("deals")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.GreaterThan("id", afterID),
	)
	sb.OrderBy("id ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var deals []models.Deal
	if err := r.db.SelectContext(ctx, &deals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list deals")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list deals")
	}

	return deals, nil
}

// ListIDsByEntity returns the ids of deals whose canonical id array for the
// entity's bucket contains the entity, ordered by deal id. This is the
// forward scan the reverse-index rebuild derives its back-references from.
func (r *Repository) ListIDsByEntity(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "deal.Repository.ListIDsByEntity")
	defer span.End()

	column := entityType.DealIDColumn()
	if column == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown entity type %q", entityType))
	}

	member, err := json.Marshal([]string{entityID})
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to build membership query")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id")
	sb.From("deals")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		fmt.Sprintf("%s @> %s::jsonb", column, sb.Var(string(member))),
	)
	sb.OrderBy("id ASC")

	query, args := sb.Build()
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "entity_type": entityType, "entity_id": entityID}).Error("Failed to query deals by entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query deals by entity")
	}

	return ids, nil
}

// UpdateDerived persists the recomputed canonical arrays and primary
// company pointer for one deal in a single write.
func (r *Repository) UpdateDerived(ctx context.Context, tenantID string, id string, derived models.DerivedAssociations) error {
	ctx, span := tracing.StartSpan(ctx, "deal.Repository.UpdateDerived")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("deals")
	sb.Set(
		sb.Assign("company_ids", database.JSONB[[]string]{Data: derived.CompanyIDs}),
		sb.Assign("contact_ids", database.JSONB[[]string]{Data: derived.ContactIDs}),
		sb.Assign("salesperson_ids", database.JSONB[[]string]{Data: derived.SalespersonIDs}),
		sb.Assign("location_ids", database.JSONB[[]string]{Data: derived.LocationIDs}),
		sb.Assign("primary_company_id", derived.PrimaryCompanyID),
		sb.Assign("associations_rebuilt_at", derived.RebuiltAt),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update deal associations")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update deal associations")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("deal %s not found", id))
	}

	return nil
}

// UpdateDerivedMutation is the batched form of UpdateDerived, used by the
// tenant-wide backfill.
func (r *Repository) UpdateDerivedMutation(tenantID string, id string, derived models.DerivedAssociations) batch.Mutation {
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("deals")
	sb.Set(
		sb.Assign("company_ids", database.JSONB[[]string]{Data: derived.CompanyIDs}),
		sb.Assign("contact_ids", database.JSONB[[]string]{Data: derived.ContactIDs}),
		sb.Assign("salesperson_ids", database.JSONB[[]string]{Data: derived.SalespersonIDs}),
		sb.Assign("location_ids", database.JSONB[[]string]{Data: derived.LocationIDs}),
		sb.Assign("primary_company_id", derived.PrimaryCompanyID),
		sb.Assign("associations_rebuilt_at", derived.RebuiltAt),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	return batch.Mutation{SQL: query, Args: args}
}

// DistinctTenants lists every tenant present in the deal collection.
func (r *Repository) DistinctTenants(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "deal.Repository.DistinctTenants")
	defer span.End()

	var tenants []string
	if err := r.db.SelectContext(ctx, &tenants, "SELECT DISTINCT tenant_id FROM deals ORDER BY tenant_id"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list tenants")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tenants")
	}

	return tenants, nil
}

// RetireLegacyMutation clears the superseded legacy fields on one deal.
// company_ids is the canonical replacement for the legacy scalar and is
// never cleared here.
func (r *Repository) RetireLegacyMutation(tenantID string, id string, removeIDArrays bool) batch.Mutation {
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("deals")
	assignments := []string{
		sb.Assign("company_id", nil),
		sb.Assign("company_name", nil),
		sb.Assign("updated_at", time.Now().UTC()),
	}
	if removeIDArrays {
		assignments = append(assignments,
			sb.Assign("contact_ids", nil),
			sb.Assign("salesperson_ids", nil),
			sb.Assign("location_ids", nil),
		)
	}
	sb.Set(assignments...)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	return batch.Mutation{SQL: query, Args: args}
}
