package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/associations"
	"github.com/Ramsey-B/fern/pkg/database"
)

func TestEntityAssociations_EmptyRebuildPatchCarriesDealsKey(t *testing.T) {
	rebuiltAt := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	patch := database.JSONB[EntityAssociations]{Data: EntityAssociations{
		Deals:          make([]associations.Entry, 0),
		DealsRebuiltAt: &rebuiltAt,
	}}

	value, err := patch.Value()
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(value.([]byte), &doc))

	// A jsonb merge only overwrites keys present in the patch, so an
	// entity whose last referencing deal went away must still receive
	// an explicit empty list.
	require.Contains(t, doc, "deals")
	assert.Equal(t, "[]", string(doc["deals"]))
}

func TestEntityAssociations_EmptyIndexRoundTrip(t *testing.T) {
	var assoc EntityAssociations
	require.NoError(t, json.Unmarshal([]byte(`{"deals": []}`), &assoc))
	assert.Empty(t, assoc.DealIDs())
}
