// Package associations normalizes the heterogeneous association payloads
// carried on deal documents. A bucket element is either a bare string id or
// an object with an id (or dealId) and an optional display snapshot; both
// decode into Entry so the rest of the system never branches on shape.
package associations

import "encoding/json"

// Entry is one element of an association bucket.
type Entry struct {
	ID       string
	Snapshot map[string]any
}

// HasSnapshot reports whether the entry carries a snapshot sub-object.
func (e Entry) HasSnapshot() bool {
	return e.Snapshot != nil
}

// UnmarshalJSON accepts both the bare-id and object forms. Elements of any
// other shape decode to a zero Entry; the normalizer drops those rather
// than failing the whole payload.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		e.ID = v
	case map[string]any:
		if id, ok := v["id"].(string); ok && id != "" {
			e.ID = id
		} else if dealID, ok := v["dealId"].(string); ok && dealID != "" {
			e.ID = dealID
		}
		if snap, ok := v["snapshot"].(map[string]any); ok {
			e.Snapshot = snap
		}
	}

	return nil
}

// MarshalJSON writes the object form, preserving the snapshot when present.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Snapshot == nil {
		return json.Marshal(map[string]any{"id": e.ID})
	}
	return json.Marshal(map[string]any{"id": e.ID, "snapshot": e.Snapshot})
}

// Payload is a deal's raw associations document.
type Payload struct {
	Companies        []Entry `json:"companies"`
	Contacts         []Entry `json:"contacts"`
	Salespeople      []Entry `json:"salespeople"`
	Locations        []Entry `json:"locations"`
	PrimaryCompanyID string  `json:"primaryCompanyId"`
}

// ParsePayload decodes a raw associations document. Buckets that fail to
// decode are left empty; data-quality problems are the integrity reporter's
// to count, not the parser's to raise.
func ParsePayload(raw json.RawMessage) Payload {
	var p Payload
	if len(raw) == 0 {
		return p
	}

	var buckets map[string]json.RawMessage
	if err := json.Unmarshal(raw, &buckets); err != nil {
		return p
	}

	p.Companies = parseBucket(buckets["companies"])
	p.Contacts = parseBucket(buckets["contacts"])
	p.Salespeople = parseBucket(buckets["salespeople"])
	p.Locations = parseBucket(buckets["locations"])

	if rawPrimary, ok := buckets["primaryCompanyId"]; ok {
		var primary string
		if err := json.Unmarshal(rawPrimary, &primary); err == nil {
			p.PrimaryCompanyID = primary
		}
	}

	return p
}

func parseBucket(raw json.RawMessage) []Entry {
	if len(raw) == 0 {
		return nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil
	}

	entries := make([]Entry, 0, len(elements))
	for _, el := range elements {
		var e Entry
		if err := json.Unmarshal(el, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}
