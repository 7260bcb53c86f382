package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// DuplicateResolver runs a duplicate company resolution pass.
type DuplicateResolver interface {
	Resolve(ctx context.Context, tenantID string, req models.DedupeRequest) (*models.DedupeResult, error)
}

// DedupeHandler handles duplicate company resolution endpoints
type DedupeHandler struct {
	resolver DuplicateResolver
	logger   ectologger.Logger
}

// NewDedupeHandler creates a new dedupe handler
func NewDedupeHandler(resolver DuplicateResolver, logger ectologger.Logger) *DedupeHandler {
	return &DedupeHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// Register registers dedupe routes
func (h *DedupeHandler) Register(g *echo.Group) {
	g.POST("/deduplicate", h.Deduplicate)
}

// Deduplicate groups the tenant's companies by identity key and collapses
// duplicates. Dry run unless apply is set in the body.
func (h *DedupeHandler) Deduplicate(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DedupeHandler.Deduplicate")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	var req models.DedupeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest("mode must be one of name, domain, both")
	}

	result, err := h.resolver.Resolve(ctx, tenantID, req)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to resolve duplicate companies")
		return err
	}

	return SuccessResponse(c, result)
}
