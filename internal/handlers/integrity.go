package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// IntegrityRunner runs a read-only integrity scan for one tenant.
type IntegrityRunner interface {
	Run(ctx context.Context, tenantID string) (*models.IntegrityReport, error)
}

// ReportReader fetches the latest persisted report for one tenant.
type ReportReader interface {
	Latest(ctx context.Context, tenantID string) (*models.IntegrityReport, error)
}

// IntegrityHandler handles integrity report API endpoints
type IntegrityHandler struct {
	reporter IntegrityRunner
	reports  ReportReader
	logger   ectologger.Logger
}

// NewIntegrityHandler creates a new integrity handler
func NewIntegrityHandler(reporter IntegrityRunner, reports ReportReader, logger ectologger.Logger) *IntegrityHandler {
	return &IntegrityHandler{
		reporter: reporter,
		reports:  reports,
		logger:   logger,
	}
}

// Register registers integrity routes
func (h *IntegrityHandler) Register(g *echo.Group) {
	g.POST("/report", h.RunReport)
	g.GET("/report/latest", h.LatestReport)
}

// RunReport scans the tenant's deals and appends a new integrity report
func (h *IntegrityHandler) RunReport(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "IntegrityHandler.RunReport")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	report, err := h.reporter.Run(ctx, tenantID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to run integrity report")
		return err
	}

	return CreatedResponse(c, report)
}

// LatestReport returns the most recent report for the tenant
func (h *IntegrityHandler) LatestReport(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "IntegrityHandler.LatestReport")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	report, err := h.reports.Latest(ctx, tenantID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to get latest integrity report")
		return err
	}
	if report == nil {
		return NotFound("no integrity report exists for tenant")
	}

	return SuccessResponse(c, report)
}
