package models

// DedupeMode selects the identity key used to group duplicate companies.
type DedupeMode string

const (
	// DedupeModeName groups by normalized company name.
	DedupeModeName DedupeMode = "name"
	// DedupeModeDomain groups by normalized domain; companies without a
	// resolvable domain are skipped.
	DedupeModeDomain DedupeMode = "domain"
	// DedupeModeBoth prefers the domain key and falls back to the name key
	// when no domain is resolvable. Names collide across unrelated
	// companies far more often than registered domains do.
	DedupeModeBoth DedupeMode = "both"
)

// Valid reports whether the mode is one of the supported values.
func (m DedupeMode) Valid() bool {
	switch m {
	case DedupeModeName, DedupeModeDomain, DedupeModeBoth:
		return true
	}
	return false
}

// DedupeRequest is the argument object for a duplicate resolution run.
type DedupeRequest struct {
	Mode DedupeMode `json:"mode" validate:"required,oneof=name domain both"`
	// Apply must be set explicitly; the default is a dry run because
	// deletion is irreversible.
	Apply bool `json:"apply"`
}

// DuplicateGroup is one set of companies sharing an identity key. It is
// transient: groups exist only for the duration of a resolution run.
type DuplicateGroup struct {
	Key        string   `json:"key"`
	Size       int      `json:"size"`
	Protected  []string `json:"protected"`
	SurvivorID string   `json:"survivor_id,omitempty"`
	Candidates []string `json:"candidates"`
}

// DedupeResult summarizes a duplicate resolution run.
type DedupeResult struct {
	TenantID        string           `json:"tenant_id"`
	Mode            DedupeMode       `json:"mode"`
	Applied         bool             `json:"applied"`
	DuplicateGroups int              `json:"duplicate_groups"`
	Candidates      int              `json:"candidates"`
	Deleted         int              `json:"deleted"`
	Kept            int              `json:"kept"`
	ProtectedCount  int              `json:"protected_count"`
	Groups          []DuplicateGroup `json:"groups"`
}
