package rebuild

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/associations"
	"github.com/Ramsey-B/fern/pkg/batch"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DealStore is the deal access the rebuild engine needs.
type DealStore interface {
	Get(ctx context.Context, tenantID string, id string) (*models.Deal, error)
	ListPage(ctx context.Context, tenantID string, afterID string, limit int) ([]models.Deal, error)
	ListIDsByEntity(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) ([]string, error)
	UpdateDerived(ctx context.Context, tenantID string, id string, derived models.DerivedAssociations) error
	UpdateDerivedMutation(tenantID string, id string, derived models.DerivedAssociations) batch.Mutation
}

// EntityStore is the related-entity access the reindex path needs.
type EntityStore interface {
	Get(ctx context.Context, tenantID string, entityType models.EntityType, id string) (*models.RelatedEntity, error)
	MergeDealIndex(ctx context.Context, tenantID string, entityType models.EntityType, id string, dealIDs []string, rebuiltAt time.Time) error
}

// DriverFactory builds a fresh batch driver per backfill run.
type DriverFactory func() *batch.Driver

// Rebuilder recomputes deals' derived association fields from their raw
// payloads, and maintains the deals reverse index on related entities.
type Rebuilder struct {
	deals     DealStore
	entities  EntityStore
	newDriver DriverFactory
	throttle  *batch.Throttle
	events    events.Events
	logger    ectologger.Logger
	pageSize  int
}

// NewRebuilder creates a new association rebuilder
func NewRebuilder(deals DealStore, entities EntityStore, newDriver DriverFactory, throttle *batch.Throttle, ev events.Events, logger ectologger.Logger, pageSize int) *Rebuilder {
	return &Rebuilder{
		deals:     deals,
		entities:  entities,
		newDriver: newDriver,
		throttle:  throttle,
		events:    ev,
		logger:    logger,
		pageSize:  pageSize,
	}
}

// RebuildDeal recomputes one deal's canonical id arrays and primary
// company from its raw association payload and persists them in a single
// write.
func (r *Rebuilder) RebuildDeal(ctx context.Context, tenantID string, dealID string) (*models.RebuildDealResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "rebuild.Rebuilder.RebuildDeal")
	defer span.End()

	deal, err := r.deals.Get(ctx, tenantID, dealID)
	if err != nil {
		return nil, err
	}

	derived := derive(deal, time.Now().UTC())
	if err := r.deals.UpdateDerived(ctx, tenantID, dealID, derived); err != nil {
		return nil, err
	}

	r.events.DealRebuilt(ctx, tenantID, dealID)

	return &models.RebuildDealResponse{
		DealID:           dealID,
		CompanyIDs:       derived.CompanyIDs,
		ContactIDs:       derived.ContactIDs,
		SalespersonIDs:   derived.SalespersonIDs,
		LocationIDs:      derived.LocationIDs,
		PrimaryCompanyID: derived.PrimaryCompanyID,
	}, nil
}

// RebuildAllDeals backfills derived fields across every deal for the
// tenant. Writes go through the batch driver; the throttle sleeps after
// each burst to keep a large backfill from saturating the store.
func (r *Rebuilder) RebuildAllDeals(ctx context.Context, tenantID string) (*models.RebuildAllDealsResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "rebuild.Rebuilder.RebuildAllDeals")
	defer span.End()

	driver := r.newDriver()
	resp := &models.RebuildAllDealsResponse{TenantID: tenantID}

	afterID := ""
	for {
		page, err := r.deals.ListPage(ctx, tenantID, afterID, r.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		now := time.Now().UTC()
		for i := range page {
			resp.Scanned++
			derived := derive(&page[i], now)
			if err := driver.Add(ctx, r.deals.UpdateDerivedMutation(tenantID, page[i].ID, derived)); err != nil {
				return nil, err
			}
			if r.throttle != nil {
				if err := r.throttle.Tick(ctx); err != nil {
					return nil, err
				}
			}
		}

		afterID = page[len(page)-1].ID
		if len(page) < r.pageSize {
			break
		}
	}

	if err := driver.Flush(ctx); err != nil {
		return nil, err
	}
	resp.Updated = driver.Applied()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"scanned":   resp.Scanned,
		"updated":   resp.Updated,
		"batches":   driver.Batches(),
	}).Info("Deal association backfill complete")

	return resp, nil
}

// RebuildReverseIndex rewrites one entity's deals back-reference list from
// the deals that currently reference it. Re-running with no intervening
// deal changes produces the same list.
func (r *Rebuilder) RebuildReverseIndex(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) (*models.ReindexResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "rebuild.Rebuilder.RebuildReverseIndex")
	defer span.End()

	if _, err := r.entities.Get(ctx, tenantID, entityType, entityID); err != nil {
		return nil, err
	}

	dealIDs, err := r.deals.ListIDsByEntity(ctx, tenantID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if dealIDs == nil {
		// The merge patch must carry an explicit empty list so a stale
		// back-reference index still gets overwritten.
		dealIDs = []string{}
	}

	if err := r.entities.MergeDealIndex(ctx, tenantID, entityType, entityID, dealIDs, time.Now().UTC()); err != nil {
		return nil, err
	}

	r.events.EntityReindexed(ctx, tenantID, entityType, entityID, len(dealIDs))

	return &models.ReindexResponse{
		EntityType: entityType,
		EntityID:   entityID,
		Deals:      len(dealIDs),
	}, nil
}

// derive recomputes a deal's canonical id arrays and primary company.
// The existing explicit primary wins, then the payload's pointer, then
// the first normalized company id.
func derive(deal *models.Deal, now time.Time) models.DerivedAssociations {
	payload := associations.ParsePayload(deal.Associations)

	derived := models.DerivedAssociations{
		CompanyIDs:     associations.NormalizeEntries(payload.Companies),
		ContactIDs:     associations.NormalizeEntries(payload.Contacts),
		SalespersonIDs: associations.NormalizeEntries(payload.Salespeople),
		LocationIDs:    associations.NormalizeEntries(payload.Locations),
		RebuiltAt:      now,
	}

	switch {
	case deal.PrimaryCompanyID != nil && *deal.PrimaryCompanyID != "":
		derived.PrimaryCompanyID = deal.PrimaryCompanyID
	case payload.PrimaryCompanyID != "":
		primary := payload.PrimaryCompanyID
		derived.PrimaryCompanyID = &primary
	case len(derived.CompanyIDs) > 0:
		derived.PrimaryCompanyID = &derived.CompanyIDs[0]
	}

	return derived
}
