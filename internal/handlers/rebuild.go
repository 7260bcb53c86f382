package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// AssociationRebuilder rebuilds derived association data.
type AssociationRebuilder interface {
	RebuildDeal(ctx context.Context, tenantID string, dealID string) (*models.RebuildDealResponse, error)
	RebuildAllDeals(ctx context.Context, tenantID string) (*models.RebuildAllDealsResponse, error)
	RebuildReverseIndex(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) (*models.ReindexResponse, error)
}

// RebuildHandler handles association rebuild endpoints
type RebuildHandler struct {
	rebuilder AssociationRebuilder
	logger    ectologger.Logger
}

// NewRebuildHandler creates a new rebuild handler
func NewRebuildHandler(rebuilder AssociationRebuilder, logger ectologger.Logger) *RebuildHandler {
	return &RebuildHandler{
		rebuilder: rebuilder,
		logger:    logger,
	}
}

// Register registers rebuild routes
func (h *RebuildHandler) Register(deals *echo.Group, entities *echo.Group) {
	deals.POST("/:id/rebuild-associations", h.RebuildDeal)
	deals.POST("/rebuild-associations", h.RebuildAllDeals)
	entities.POST("/:entityType/:id/rebuild-deals", h.RebuildReverseIndex)
}

// RebuildDeal recomputes one deal's derived association fields
func (h *RebuildHandler) RebuildDeal(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "RebuildHandler.RebuildDeal")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	dealID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.rebuilder.RebuildDeal(ctx, tenantID, dealID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to rebuild deal associations")
		return err
	}

	return SuccessResponse(c, resp)
}

// RebuildAllDeals backfills derived association fields across the tenant
func (h *RebuildHandler) RebuildAllDeals(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "RebuildHandler.RebuildAllDeals")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	resp, err := h.rebuilder.RebuildAllDeals(ctx, tenantID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to backfill deal associations")
		return err
	}

	return SuccessResponse(c, resp)
}

// RebuildReverseIndex rewrites one entity's deals back-reference list
func (h *RebuildHandler) RebuildReverseIndex(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "RebuildHandler.RebuildReverseIndex")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	entityType, err := models.ParseEntityType(c.Param("entityType"))
	if err != nil {
		return err
	}

	entityID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.rebuilder.RebuildReverseIndex(ctx, tenantID, entityType, entityID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to rebuild reverse index")
		return err
	}

	return SuccessResponse(c, resp)
}
