package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeReporter struct {
	report *models.IntegrityReport
	tenant string
}

func (f *fakeReporter) Run(_ context.Context, tenantID string) (*models.IntegrityReport, error) {
	f.tenant = tenantID
	return f.report, nil
}

type fakeReportReader struct {
	report *models.IntegrityReport
}

func (f *fakeReportReader) Latest(context.Context, string) (*models.IntegrityReport, error) {
	return f.report, nil
}

type fakeResolver struct {
	req    models.DedupeRequest
	result *models.DedupeResult
}

func (f *fakeResolver) Resolve(_ context.Context, _ string, req models.DedupeRequest) (*models.DedupeResult, error) {
	f.req = req
	return f.result, nil
}

type fakeRebuilder struct {
	entityType models.EntityType
	entityID   string
}

func (f *fakeRebuilder) RebuildDeal(_ context.Context, _ string, dealID string) (*models.RebuildDealResponse, error) {
	if dealID == "missing" {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "deal not found")
	}
	return &models.RebuildDealResponse{DealID: dealID}, nil
}

func (f *fakeRebuilder) RebuildAllDeals(_ context.Context, tenantID string) (*models.RebuildAllDealsResponse, error) {
	return &models.RebuildAllDealsResponse{TenantID: tenantID, Scanned: 3, Updated: 3}, nil
}

func (f *fakeRebuilder) RebuildReverseIndex(_ context.Context, _ string, entityType models.EntityType, entityID string) (*models.ReindexResponse, error) {
	f.entityType = entityType
	f.entityID = entityID
	return &models.ReindexResponse{EntityType: entityType, EntityID: entityID, Deals: 2}, nil
}

func nopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newContext(t *testing.T, method, target, body, tenantID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tenantID != "" {
		req = req.WithContext(appctx.SetTenantID(req.Context(), tenantID))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestIntegrityHandler(t *testing.T) {
	t.Run("run report uses the caller tenant", func(t *testing.T) {
		reporter := &fakeReporter{report: &models.IntegrityReport{TenantID: "t1", TotalDeals: 4}}
		h := NewIntegrityHandler(reporter, &fakeReportReader{}, nopLogger())

		c, rec := newContext(t, http.MethodPost, "/api/v1/integrity/report", "", "t1")
		require.NoError(t, h.RunReport(c))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "t1", reporter.tenant)

		var got models.IntegrityReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 4, got.TotalDeals)
	})

	t.Run("missing tenant is unauthorized", func(t *testing.T) {
		h := NewIntegrityHandler(&fakeReporter{}, &fakeReportReader{}, nopLogger())
		c, _ := newContext(t, http.MethodPost, "/api/v1/integrity/report", "", "")

		err := h.RunReport(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, httperror.GetStatusCode(err))
	})

	t.Run("latest with no report is not found", func(t *testing.T) {
		h := NewIntegrityHandler(&fakeReporter{}, &fakeReportReader{}, nopLogger())
		c, _ := newContext(t, http.MethodGet, "/api/v1/integrity/report/latest", "", "t1")

		err := h.LatestReport(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestDedupeHandler(t *testing.T) {
	t.Run("valid request reaches the resolver", func(t *testing.T) {
		resolver := &fakeResolver{result: &models.DedupeResult{TenantID: "t1", Mode: models.DedupeModeBoth}}
		h := NewDedupeHandler(resolver, nopLogger())

		c, rec := newContext(t, http.MethodPost, "/api/v1/companies/deduplicate", `{"mode":"both","apply":true}`, "t1")
		require.NoError(t, h.Deduplicate(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.DedupeModeBoth, resolver.req.Mode)
		assert.True(t, resolver.req.Apply)
	})

	t.Run("unknown mode is rejected before any work", func(t *testing.T) {
		resolver := &fakeResolver{}
		h := NewDedupeHandler(resolver, nopLogger())

		c, _ := newContext(t, http.MethodPost, "/api/v1/companies/deduplicate", `{"mode":"fuzzy"}`, "t1")
		err := h.Deduplicate(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		assert.Empty(t, resolver.req.Mode)
	})

	t.Run("missing mode is rejected", func(t *testing.T) {
		h := NewDedupeHandler(&fakeResolver{}, nopLogger())
		c, _ := newContext(t, http.MethodPost, "/api/v1/companies/deduplicate", `{"apply":true}`, "t1")

		err := h.Deduplicate(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

func TestRebuildHandler(t *testing.T) {
	t.Run("single deal rebuild", func(t *testing.T) {
		h := NewRebuildHandler(&fakeRebuilder{}, nopLogger())
		c, rec := newContext(t, http.MethodPost, "/api/v1/deals/d1/rebuild-associations", "", "t1")
		c.SetParamNames("id")
		c.SetParamValues("d1")

		require.NoError(t, h.RebuildDeal(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown deal propagates not found", func(t *testing.T) {
		h := NewRebuildHandler(&fakeRebuilder{}, nopLogger())
		c, _ := newContext(t, http.MethodPost, "/api/v1/deals/missing/rebuild-associations", "", "t1")
		c.SetParamNames("id")
		c.SetParamValues("missing")

		err := h.RebuildDeal(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("reverse index parses the entity type", func(t *testing.T) {
		rebuilder := &fakeRebuilder{}
		h := NewRebuildHandler(rebuilder, nopLogger())
		c, rec := newContext(t, http.MethodPost, "/api/v1/entities/company/c1/rebuild-deals", "", "t1")
		c.SetParamNames("entityType", "id")
		c.SetParamValues("company", "c1")

		require.NoError(t, h.RebuildReverseIndex(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.EntityTypeCompany, rebuilder.entityType)
		assert.Equal(t, "c1", rebuilder.entityID)
	})

	t.Run("unknown entity type is rejected", func(t *testing.T) {
		h := NewRebuildHandler(&fakeRebuilder{}, nopLogger())
		c, _ := newContext(t, http.MethodPost, "/api/v1/entities/widget/w1/rebuild-deals", "", "t1")
		c.SetParamNames("entityType", "id")
		c.SetParamValues("widget", "w1")

		err := h.RebuildReverseIndex(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

type fakeRetirementJob struct {
	req    models.RetireRequest
	result *models.RetireResult
}

func (f *fakeRetirementJob) Run(_ context.Context, req models.RetireRequest) (*models.RetireResult, error) {
	f.req = req
	return f.result, nil
}

func TestAdminHandler(t *testing.T) {
	t.Run("retire passes the flag through", func(t *testing.T) {
		job := &fakeRetirementJob{result: &models.RetireResult{TotalUpdated: 7}}
		h := NewAdminHandler(job, nopLogger())

		c, rec := newContext(t, http.MethodPost, "/api/v1/admin/retire-legacy-fields", `{"removeIdArrays":true}`, "")
		require.NoError(t, h.RetireLegacyFields(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, job.req.RemoveIDArrays)

		var got models.RetireResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 7, got.TotalUpdated)
	})
}
