package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGetID(t *testing.T) {
	assert.Equal(t, "42", Record{"id": float64(42)}.GetID())
	assert.Equal(t, "42", Record{"id": json.Number("42")}.GetID())
	assert.Equal(t, "temp-x", Record{"id": "temp-x"}.GetID())
	assert.Equal(t, "", Record{"name": "x"}.GetID())
}

func TestRecordCloneIsDeep(t *testing.T) {
	orig := Record{
		"id":   "1",
		"tags": []any{"a", "b"},
		"meta": map[string]any{"asn": "AS1"},
	}
	cp := orig.Clone()
	cp["tags"].([]any)[0] = "z"
	cp["meta"].(map[string]any)["asn"] = "AS2"

	assert.Equal(t, "a", orig["tags"].([]any)[0])
	assert.Equal(t, "AS1", orig["meta"].(map[string]any)["asn"])
}

func TestRecordMergeIsShallow(t *testing.T) {
	orig := Record{"id": "1", "name": "old", "notes": "keep"}
	merged := orig.Merge(Record{"name": "new"})

	assert.Equal(t, Record{"id": "1", "name": "new", "notes": "keep"}, merged)
	assert.Equal(t, "old", orig["name"])
}

func TestRecordWithIDDoesNotMutate(t *testing.T) {
	orig := Record{"id": "temp-1", "name": "X"}
	canon := orig.WithID("42")

	assert.Equal(t, "42", canon.GetID())
	assert.Equal(t, "temp-1", orig.GetID())
}

func TestRecordLookup(t *testing.T) {
	r := Record{
		"registrant": map[string]any{"name": "ACME"},
		"ips":        []any{"10.0.0.1", "10.0.0.2"},
	}

	v, ok := r.Lookup("registrant.name")
	require.True(t, ok)
	assert.Equal(t, "ACME", v)

	v, ok = r.Lookup("ips.1")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", v)

	_, ok = r.Lookup("registrant.email")
	assert.False(t, ok)
	_, ok = r.Lookup("")
	assert.False(t, ok)
}

func TestRecordKeysPutsIDFirst(t *testing.T) {
	r := Record{"zeta": 1, "id": 2, "alpha": 3}
	assert.Equal(t, []string{"id", "alpha", "zeta"}, r.Keys())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, "100", FormatValue(float64(100)))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "a, b", FormatValue([]any{"a", "b"}))
	assert.Equal(t, `{"k":"v"}`, FormatValue(map[string]any{"k": "v"}))
	assert.Equal(t, "", FormatValue(nil))
}
