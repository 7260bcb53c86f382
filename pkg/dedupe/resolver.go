package dedupe

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/batch"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CompanyStore loads a tenant's companies and builds deletion mutations.
type CompanyStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.Company, error)
	SoftDeleteMutation(tenantID string, id string) batch.Mutation
}

// DriverFactory builds a fresh batch driver per resolution run.
type DriverFactory func() *batch.Driver

// Resolver groups a tenant's companies by identity key and collapses
// duplicate groups down to a single survivor. Companies referenced by any
// deal are never deletion candidates.
type Resolver struct {
	companies CompanyStore
	newDriver DriverFactory
	events    events.Events
	logger    ectologger.Logger
}

// NewResolver creates a new duplicate company resolver
func NewResolver(companies CompanyStore, newDriver DriverFactory, ev events.Events, logger ectologger.Logger) *Resolver {
	return &Resolver{
		companies: companies,
		newDriver: newDriver,
		events:    ev,
		logger:    logger,
	}
}

// Resolve runs one duplicate resolution pass. Unless req.Apply is set the
// run is a dry run and mutates nothing.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, req models.DedupeRequest) (*models.DedupeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupe.Resolver.Resolve")
	defer span.End()

	companies, err := r.companies.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result := &models.DedupeResult{
		TenantID: tenantID,
		Mode:     req.Mode,
		Applied:  req.Apply,
	}

	groups := groupByKey(companies, req.Mode)

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var driver *batch.Driver
	var deleted []string
	if req.Apply {
		driver = r.newDriver()
	}

	for _, key := range keys {
		members := groups[key]
		if len(members) <= 1 {
			continue
		}

		group := partition(key, members)
		result.DuplicateGroups++
		result.ProtectedCount += len(group.Protected)
		result.Candidates += len(group.Candidates)
		if group.SurvivorID != "" {
			result.Kept++
		}
		result.Groups = append(result.Groups, group)

		if !req.Apply {
			continue
		}

		for _, id := range group.Candidates {
			if err := driver.Add(ctx, r.companies.SoftDeleteMutation(tenantID, id)); err != nil {
				return nil, err
			}
			deleted = append(deleted, id)
		}
	}

	if req.Apply {
		if err := driver.Flush(ctx); err != nil {
			return nil, err
		}
		result.Deleted = driver.Applied()

		// Events only go out once the deletions are committed; emitting
		// per candidate would announce deletions a failed flush never made.
		for _, id := range deleted {
			r.events.CompanyDeleted(ctx, tenantID, id)
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":  tenantID,
		"mode":       req.Mode,
		"applied":    req.Apply,
		"groups":     result.DuplicateGroups,
		"candidates": result.Candidates,
		"deleted":    result.Deleted,
	}).Info("Duplicate resolution complete")

	return result, nil
}

// groupByKey buckets companies by the identity key the mode selects.
// Companies with no resolvable key are skipped.
func groupByKey(companies []models.Company, mode models.DedupeMode) map[string][]models.Company {
	groups := make(map[string][]models.Company)
	for _, c := range companies {
		key := identityKey(c, mode)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], c)
	}
	return groups
}

// identityKey computes the grouping key for one company. In both mode the
// domain key wins when a domain resolves; names collide across unrelated
// companies far more often than registered domains do.
func identityKey(c models.Company, mode models.DedupeMode) string {
	nameKey := normalizers.Apply(c.Name, normalizers.CompanyName)
	domainKey := ""
	if c.Domain != nil {
		domainKey = normalizers.Apply(*c.Domain, normalizers.Domain)
	}

	switch mode {
	case models.DedupeModeName:
		return nameKey
	case models.DedupeModeDomain:
		return domainKey
	case models.DedupeModeBoth:
		if domainKey != "" {
			return domainKey
		}
		return nameKey
	}
	return ""
}

// partition splits one duplicate group into protected members, a survivor
// and delete candidates. The newest unreferenced member survives; ties on
// timestamp fall back to the lexicographically greatest id so the choice
// stays deterministic.
func partition(key string, members []models.Company) models.DuplicateGroup {
	group := models.DuplicateGroup{Key: key, Size: len(members)}

	var collapsible []models.Company
	for _, m := range members {
		if m.Referenced() {
			group.Protected = append(group.Protected, m.ID)
			continue
		}
		collapsible = append(collapsible, m)
	}

	if len(collapsible) == 0 {
		return group
	}

	sort.Slice(collapsible, func(i, j int) bool {
		ti, tj := collapsible[i].EffectiveTimestamp(), collapsible[j].EffectiveTimestamp()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return collapsible[i].ID > collapsible[j].ID
	})

	group.SurvivorID = collapsible[0].ID
	for _, m := range collapsible[1:] {
		group.Candidates = append(group.Candidates, m.ID)
	}
	return group
}
