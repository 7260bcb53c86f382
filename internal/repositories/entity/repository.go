// Package entity persists the non-deal entity kinds (companies, contacts,
// salespeople, locations) through one table-per-type repository. Only the
// fields the reconciliation engine touches are modeled here; everything
// else on those documents belongs to the CRUD layer.
package entity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/associations"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository handles persistence for deal-associated entities
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new entity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves an entity of the given type by ID
func (r *Repository) Get(ctx context.Context, tenantID string, entityType models.EntityType, id string) (*models.RelatedEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Get")
	defer span.End()

	table := entityType.Table()
	if table == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown entity type %q", entityType))
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "name", "associations", "created_at", "updated_at", "deleted_at")
	sb.From(table)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var entity models.RelatedEntity
	if err := r.db.GetContext(ctx, &entity, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("%s %s not found", entityType, id))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_type": entityType, "id": id}).Error("Failed to get entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get entity")
	}

	return &entity, nil
}

// MergeDealIndex writes the rebuilt deals back-reference list onto the
// entity's associations document. The patch is merged into the existing
// document so sibling association keys survive the rebuild.
func (r *Repository) MergeDealIndex(ctx context.Context, tenantID string, entityType models.EntityType, id string, dealIDs []string, rebuiltAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.MergeDealIndex")
	defer span.End()

	table := entityType.Table()
	if table == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown entity type %q", entityType))
	}

	entries := make([]associations.Entry, len(dealIDs))
	for i, dealID := range dealIDs {
		entries[i] = associations.Entry{ID: dealID}
	}
	patch := database.JSONB[models.EntityAssociations]{Data: models.EntityAssociations{
		Deals:          entries,
		DealsRebuiltAt: &rebuiltAt,
	}}

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(table)
	sb.Set(
		fmt.Sprintf("associations = COALESCE(associations, '{}'::jsonb) || %s", sb.Var(patch)),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_type": entityType, "id": id}).Error("Failed to merge deal index")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge deal index")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("%s %s not found", entityType, id))
	}

	return nil
}
