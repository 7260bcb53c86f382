package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// RetirementJob runs legacy field retirement across all tenants.
type RetirementJob interface {
	Run(ctx context.Context, req models.RetireRequest) (*models.RetireResult, error)
}

// AdminHandler handles cross-tenant admin endpoints
type AdminHandler struct {
	retire RetirementJob
	logger ectologger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(retire RetirementJob, logger ectologger.Logger) *AdminHandler {
	return &AdminHandler{
		retire: retire,
		logger: logger,
	}
}

// Register registers admin routes
func (h *AdminHandler) Register(g *echo.Group) {
	g.POST("/retire-legacy-fields", h.RetireLegacyFields)
}

// RetireLegacyFields removes superseded legacy deal fields for every
// tenant whose latest integrity report is clean
func (h *AdminHandler) RetireLegacyFields(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AdminHandler.RetireLegacyFields")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req models.RetireRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	result, err := h.retire.Run(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to retire legacy fields")
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"total_updated": result.TotalUpdated,
		"skipped":       len(result.Skipped),
	}).Info("Legacy field retirement complete")

	return SuccessResponse(c, result)
}
