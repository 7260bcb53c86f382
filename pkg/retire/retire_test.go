package retire

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/batch"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeDealStore struct {
	tenants        map[string][]models.Deal
	mutations      map[string][]string
	removeIDArrays []bool
	listErrs       map[string]error
}

func newFakeDealStore() *fakeDealStore {
	return &fakeDealStore{
		tenants:   make(map[string][]models.Deal),
		mutations: make(map[string][]string),
	}
}

func (f *fakeDealStore) addTenant(tenantID string, dealIDs ...string) {
	for _, id := range dealIDs {
		f.tenants[tenantID] = append(f.tenants[tenantID], models.Deal{ID: id, TenantID: tenantID})
	}
}

func (f *fakeDealStore) DistinctTenants(context.Context) ([]string, error) {
	var out []string
	for _, tenant := range []string{"t1", "t2", "t3"} {
		if _, ok := f.tenants[tenant]; ok {
			out = append(out, tenant)
		}
	}
	return out, nil
}

func (f *fakeDealStore) ListPage(_ context.Context, tenantID string, afterID string, limit int) ([]models.Deal, error) {
	if err := f.listErrs[tenantID]; err != nil {
		return nil, err
	}
	deals := f.tenants[tenantID]
	start := 0
	if afterID != "" {
		for i, d := range deals {
			if d.ID == afterID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(deals) {
		end = len(deals)
	}
	return deals[start:end], nil
}

func (f *fakeDealStore) RetireLegacyMutation(tenantID string, id string, removeIDArrays bool) batch.Mutation {
	f.mutations[tenantID] = append(f.mutations[tenantID], id)
	f.removeIDArrays = append(f.removeIDArrays, removeIDArrays)
	return batch.Mutation{SQL: fmt.Sprintf("retire %s/%s", tenantID, id)}
}

type fakeReportStore struct {
	reports map[string]*models.IntegrityReport
	errs    map[string]error
}

func (f *fakeReportStore) Latest(_ context.Context, tenantID string) (*models.IntegrityReport, error) {
	if err := f.errs[tenantID]; err != nil {
		return nil, err
	}
	return f.reports[tenantID], nil
}

type nopTx struct{}

func (nopTx) ExecContext(context.Context, string, ...any) (sql.Result, error) { return nil, nil }
func (nopTx) Commit() error                                                   { return nil }
func (nopTx) Rollback() error                                                 { return nil }

func nopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newJob(deals *fakeDealStore, reports *fakeReportStore) *Job {
	newDriver := func() *batch.Driver {
		begin := func(context.Context) (batch.Tx, error) { return nopTx{}, nil }
		return batch.NewDriverWithBeginner(begin, nopLogger(), 3)
	}
	return NewJob(deals, reports, newDriver, events.Nop{}, nopLogger(), 2)
}

func cleanReport(tenantID string) *models.IntegrityReport {
	return &models.IntegrityReport{ID: "r-" + tenantID, TenantID: tenantID, TotalDeals: 5}
}

func TestJob_GateSkipsDirtyTenant(t *testing.T) {
	deals := newFakeDealStore()
	deals.addTenant("t1", "a", "b")
	reports := &fakeReportStore{reports: map[string]*models.IntegrityReport{
		"t1": {ID: "r1", TenantID: "t1", MissingCompanyIDs: 1},
	}}

	result, err := newJob(deals, reports).Run(context.Background(), models.RetireRequest{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalUpdated)
	assert.Empty(t, deals.mutations["t1"])
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "t1", result.Skipped[0].TenantID)
}

func TestJob_GateSkipsTenantWithoutReport(t *testing.T) {
	deals := newFakeDealStore()
	deals.addTenant("t1", "a")
	reports := &fakeReportStore{reports: map[string]*models.IntegrityReport{}}

	result, err := newJob(deals, reports).Run(context.Background(), models.RetireRequest{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalUpdated)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "no integrity report", result.Skipped[0].Reason)
}

func TestJob_SkipDoesNotAbortOtherTenants(t *testing.T) {
	deals := newFakeDealStore()
	deals.addTenant("t1", "a", "b")
	deals.addTenant("t2", "x", "y", "z")
	deals.addTenant("t3", "q")
	reports := &fakeReportStore{reports: map[string]*models.IntegrityReport{
		"t1": cleanReport("t1"),
		// t2 has no report
		"t3": {ID: "r3", TenantID: "t3", LocationsWithNoSnapshot: 2},
	}}

	result, err := newJob(deals, reports).Run(context.Background(), models.RetireRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalUpdated)
	assert.Equal(t, map[string]int{"t1": 2}, result.UpdatedPerTenant)
	assert.Len(t, result.Skipped, 2)
	assert.Empty(t, deals.mutations["t2"])
	assert.Empty(t, deals.mutations["t3"])
}

func TestJob_TenantFailureDoesNotAbortOtherTenants(t *testing.T) {
	t.Run("report lookup failure", func(t *testing.T) {
		deals := newFakeDealStore()
		deals.addTenant("t1", "a", "b")
		deals.addTenant("t2", "x")
		deals.addTenant("t3", "q")
		reports := &fakeReportStore{
			reports: map[string]*models.IntegrityReport{"t1": cleanReport("t1"), "t3": cleanReport("t3")},
			errs:    map[string]error{"t2": fmt.Errorf("report query timed out")},
		}

		result, err := newJob(deals, reports).Run(context.Background(), models.RetireRequest{})
		require.NoError(t, err)

		assert.Equal(t, 3, result.TotalUpdated)
		assert.Equal(t, map[string]int{"t1": 2, "t3": 1}, result.UpdatedPerTenant)
		require.Len(t, result.Skipped, 1)
		assert.Equal(t, "t2", result.Skipped[0].TenantID)
		assert.Equal(t, "failed to load integrity report", result.Skipped[0].Reason)
	})

	t.Run("mid-run retirement failure", func(t *testing.T) {
		deals := newFakeDealStore()
		deals.addTenant("t1", "a")
		deals.addTenant("t2", "x", "y")
		deals.listErrs = map[string]error{"t1": fmt.Errorf("deal page failed")}
		reports := &fakeReportStore{reports: map[string]*models.IntegrityReport{
			"t1": cleanReport("t1"),
			"t2": cleanReport("t2"),
		}}

		result, err := newJob(deals, reports).Run(context.Background(), models.RetireRequest{})
		require.NoError(t, err)

		assert.Equal(t, 2, result.TotalUpdated)
		assert.Equal(t, map[string]int{"t2": 2}, result.UpdatedPerTenant)
		require.Len(t, result.Skipped, 1)
		assert.Equal(t, "t1", result.Skipped[0].TenantID)
		assert.Equal(t, "retirement failed", result.Skipped[0].Reason)
	})
}

func TestJob_RetiresAllDealsForCleanTenant(t *testing.T) {
	deals := newFakeDealStore()
	deals.addTenant("t1", "a", "b", "c", "d", "e")
	reports := &fakeReportStore{reports: map[string]*models.IntegrityReport{"t1": cleanReport("t1")}}

	result, err := newJob(deals, reports).Run(context.Background(), models.RetireRequest{})
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalUpdated)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, deals.mutations["t1"])
	assert.Empty(t, result.Skipped)
}

func TestJob_RemoveIDArraysFlagReachesMutations(t *testing.T) {
	deals := newFakeDealStore()
	deals.addTenant("t1", "a")
	reports := &fakeReportStore{reports: map[string]*models.IntegrityReport{"t1": cleanReport("t1")}}

	_, err := newJob(deals, reports).Run(context.Background(), models.RetireRequest{RemoveIDArrays: true})
	require.NoError(t, err)

	require.Len(t, deals.removeIDArrays, 1)
	assert.True(t, deals.removeIDArrays[0])
}
