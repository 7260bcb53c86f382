package associations

import "encoding/json"

// NormalizeEntries reduces a bucket to its canonical id list: first-seen
// order, exact duplicates removed, entries without a usable id dropped.
func NormalizeEntries(entries []Entry) []string {
	ids := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}
	return ids
}

// NormalizeIDs decodes a raw bucket value and returns its canonical id
// list. Malformed input yields an empty list, never an error.
func NormalizeIDs(raw json.RawMessage) []string {
	return NormalizeEntries(parseBucket(raw))
}

// NormalizeStrings dedups a plain id list while preserving first-seen
// order. Used to canonicalize the cached id-array columns before
// comparison with freshly normalized bucket ids.
func NormalizeStrings(ids []string) []string {
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = Entry{ID: id}
	}
	return NormalizeEntries(entries)
}
