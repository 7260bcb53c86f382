package associations

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIDs(t *testing.T) {
	t.Run("mixed bare ids and objects", func(t *testing.T) {
		raw := json.RawMessage(`["a", {"id":"b"}, {"dealId":"c"}, {}, "a"]`)
		assert.Equal(t, []string{"a", "b", "c"}, NormalizeIDs(raw))
	})

	t.Run("preserves first seen order", func(t *testing.T) {
		raw := json.RawMessage(`[{"id":"z"}, "a", {"id":"m"}]`)
		assert.Equal(t, []string{"z", "a", "m"}, NormalizeIDs(raw))
	})

	t.Run("removes exact duplicates", func(t *testing.T) {
		raw := json.RawMessage(`["a", "b", {"id":"a"}, "b"]`)
		assert.Equal(t, []string{"a", "b"}, NormalizeIDs(raw))
	})

	t.Run("drops malformed elements without failing", func(t *testing.T) {
		raw := json.RawMessage(`[42, {"name":"no id"}, "ok", null]`)
		assert.Equal(t, []string{"ok"}, NormalizeIDs(raw))
	})

	t.Run("nil input", func(t *testing.T) {
		assert.Empty(t, NormalizeIDs(nil))
	})

	t.Run("invalid json", func(t *testing.T) {
		assert.Empty(t, NormalizeIDs(json.RawMessage(`{not json`)))
	})

	t.Run("idempotent", func(t *testing.T) {
		raw := json.RawMessage(`["a", {"id":"b"}, "a", {"dealId":"c"}]`)
		once := NormalizeIDs(raw)
		assert.Equal(t, once, NormalizeStrings(once))
	})
}

func TestNormalizeEntries(t *testing.T) {
	entries := []Entry{
		{ID: "a"},
		{ID: "b", Snapshot: map[string]any{"name": "Beta"}},
		{ID: ""},
		{ID: "a"},
	}
	assert.Equal(t, []string{"a", "b"}, NormalizeEntries(entries))
}

func TestParsePayload(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		raw := json.RawMessage(`{
			"companies": [{"id":"c1","snapshot":{"name":"Acme"}}, "c2"],
			"contacts": ["p1"],
			"salespeople": [{"id":"s1"}],
			"locations": [],
			"primaryCompanyId": "c2"
		}`)
		p := ParsePayload(raw)
		assert.Len(t, p.Companies, 2)
		assert.Equal(t, "c1", p.Companies[0].ID)
		assert.Equal(t, "Acme", p.Companies[0].Snapshot["name"])
		assert.Equal(t, "c2", p.Companies[1].ID)
		assert.Equal(t, []string{"p1"}, NormalizeEntries(p.Contacts))
		assert.Equal(t, "c2", p.PrimaryCompanyID)
		assert.Empty(t, p.Locations)
	})

	t.Run("corrupt bucket does not poison the rest", func(t *testing.T) {
		raw := json.RawMessage(`{"companies": "not an array", "contacts": ["p1"]}`)
		p := ParsePayload(raw)
		assert.Empty(t, p.Companies)
		assert.Equal(t, []string{"p1"}, NormalizeEntries(p.Contacts))
	})

	t.Run("empty payload", func(t *testing.T) {
		p := ParsePayload(nil)
		assert.Empty(t, p.Companies)
		assert.Empty(t, p.PrimaryCompanyID)
	})
}

func TestCountMissingSnapshots(t *testing.T) {
	t.Run("bare id is always missing", func(t *testing.T) {
		entries := []Entry{{ID: "x"}}
		assert.Equal(t, 1, CountMissingSnapshots(entries, CompanySnapshotFields))
	})

	t.Run("one required field suffices", func(t *testing.T) {
		entries := []Entry{{ID: "x", Snapshot: map[string]any{"name": "Acme"}}}
		assert.Equal(t, 0, CountMissingSnapshots(entries, []string{"name", "companyName"}))
	})

	t.Run("snapshot with only irrelevant fields is missing", func(t *testing.T) {
		entries := []Entry{{ID: "x", Snapshot: map[string]any{"phone": "555"}}}
		assert.Equal(t, 1, CountMissingSnapshots(entries, CompanySnapshotFields))
	})

	t.Run("empty string field is not truthy", func(t *testing.T) {
		entries := []Entry{{ID: "x", Snapshot: map[string]any{"name": ""}}}
		assert.Equal(t, 1, CountMissingSnapshots(entries, CompanySnapshotFields))
	})

	t.Run("no required fields accepts any snapshot", func(t *testing.T) {
		entries := []Entry{{ID: "x", Snapshot: map[string]any{"anything": true}}}
		assert.Equal(t, 0, CountMissingSnapshots(entries, nil))
	})
}
