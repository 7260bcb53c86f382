package associations

// Required snapshot display fields per association bucket. One present and
// truthy field is enough for an entry to count as complete.
var (
	CompanySnapshotFields     = []string{"name", "companyName"}
	ContactSnapshotFields     = []string{"fullName", "name", "email"}
	SalespersonSnapshotFields = []string{"displayName", "email"}
	LocationSnapshotFields    = []string{"nickname", "name", "city"}
)

// CountMissingSnapshots counts entries lacking a usable display snapshot.
// Bare ids have no snapshot and always count as missing. If requiredFields
// is non-empty, a snapshot must carry at least one truthy required field.
func CountMissingSnapshots(entries []Entry, requiredFields []string) int {
	missing := 0
	for _, e := range entries {
		if !e.HasSnapshot() {
			missing++
			continue
		}
		if len(requiredFields) == 0 {
			continue
		}
		if !snapshotHasAny(e.Snapshot, requiredFields) {
			missing++
		}
	}
	return missing
}

func snapshotHasAny(snapshot map[string]any, fields []string) bool {
	for _, f := range fields {
		if truthy(snapshot[f]) {
			return true
		}
	}
	return false
}

// truthy mirrors the loose presence check the display layer applies to
// snapshot fields.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	default:
		return true
	}
}
