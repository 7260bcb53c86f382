// Package events emits reconciliation lifecycle events so downstream
// consumers (search indexing, audit, UI caches) can react to repairs.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Events is the emission surface the engines depend on. Emission is
// best-effort: failures are logged by the implementation, never returned,
// so a dead broker cannot fail a reconciliation run.
type Events interface {
	ReportCreated(ctx context.Context, report *models.IntegrityReport)
	CompanyDeleted(ctx context.Context, tenantID, companyID string)
	DealRebuilt(ctx context.Context, tenantID, dealID string)
	EntityReindexed(ctx context.Context, tenantID string, entityType models.EntityType, entityID string, dealCount int)
	LegacyRetired(ctx context.Context, tenantID string, updated int)
}

// Emitter publishes events to Kafka.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

func (e *Emitter) publish(ctx context.Context, event *kafka.ReconciliationEvent) {
	if err := e.producer.PublishReconciliationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"event_type": event.EventType}).Warn("Dropping reconciliation event")
	}
}

// ReportCreated emits a report.created event carrying the full report.
func (e *Emitter) ReportCreated(ctx context.Context, report *models.IntegrityReport) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ReportCreated")
	defer span.End()

	detail, _ := json.Marshal(report)
	e.publish(ctx, &kafka.ReconciliationEvent{
		EventType: "report.created",
		TenantID:  report.TenantID,
		EntityID:  report.ID,
		Detail:    detail,
	})
}

// CompanyDeleted emits a company.deleted event for a collapsed duplicate.
func (e *Emitter) CompanyDeleted(ctx context.Context, tenantID, companyID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.CompanyDeleted")
	defer span.End()

	e.publish(ctx, &kafka.ReconciliationEvent{
		EventType:  "company.deleted",
		TenantID:   tenantID,
		EntityType: string(models.EntityTypeCompany),
		EntityID:   companyID,
	})
}

// DealRebuilt emits a deal.rebuilt event after derived fields are repaired.
func (e *Emitter) DealRebuilt(ctx context.Context, tenantID, dealID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.DealRebuilt")
	defer span.End()

	e.publish(ctx, &kafka.ReconciliationEvent{
		EventType: "deal.rebuilt",
		TenantID:  tenantID,
		EntityID:  dealID,
	})
}

// EntityReindexed emits an entity.reindexed event after a reverse-index rebuild.
func (e *Emitter) EntityReindexed(ctx context.Context, tenantID string, entityType models.EntityType, entityID string, dealCount int) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EntityReindexed")
	defer span.End()

	detail, _ := json.Marshal(map[string]int{"deals": dealCount})
	e.publish(ctx, &kafka.ReconciliationEvent{
		EventType:  "entity.reindexed",
		TenantID:   tenantID,
		EntityType: string(entityType),
		EntityID:   entityID,
		Detail:     detail,
	})
}

// LegacyRetired emits a legacy.retired event after a tenant's legacy deal
// fields are cleared.
func (e *Emitter) LegacyRetired(ctx context.Context, tenantID string, updated int) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.LegacyRetired")
	defer span.End()

	detail, _ := json.Marshal(map[string]int{"updated": updated})
	e.publish(ctx, &kafka.ReconciliationEvent{
		EventType: "legacy.retired",
		TenantID:  tenantID,
		Detail:    detail,
	})
}

// Nop discards all events. Useful in tests and when the broker is disabled.
type Nop struct{}

func (Nop) ReportCreated(context.Context, *models.IntegrityReport)                  {}
func (Nop) CompanyDeleted(context.Context, string, string)                          {}
func (Nop) DealRebuilt(context.Context, string, string)                             {}
func (Nop) EntityReindexed(context.Context, string, models.EntityType, string, int) {}
func (Nop) LegacyRetired(context.Context, string, int)                              {}
