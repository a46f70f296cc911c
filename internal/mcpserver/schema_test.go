// file: internal/mcpserver/schema_test.go
package mcpserver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deriveArgs struct {
	Name     string   `json:"name"`
	Count    int      `json:"count,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Internal string   `json:"-"`
	hidden   string   //nolint:unused
}

func TestDeriveInputSchema_NilYieldsEmptyObject(t *testing.T) {
	raw := deriveInputSchema(nil)
	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestDeriveInputSchema_RequiredAndOptionalFields(t *testing.T) {
	raw := deriveInputSchema(deriveArgs{})
	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	props := schema["properties"].(map[string]any)
	_, hasName := props["name"]
	_, hasCount := props["count"]
	_, hasTags := props["tags"]
	_, hasInternal := props["Internal"]
	assert.True(t, hasName)
	assert.True(t, hasCount)
	assert.True(t, hasTags)
	assert.False(t, hasInternal)

	required := schema["required"].([]any)
	assert.Contains(t, required, "name")
	assert.NotContains(t, required, "count")
}

func TestDeriveInputSchema_SliceBecomesArray(t *testing.T) {
	raw := deriveInputSchema(deriveArgs{})
	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	tags := schema["properties"].(map[string]any)["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
}

type embeddedArgs struct {
	deriveArgs
	Extra bool `json:"extra"`
}

func TestDeriveInputSchema_PromotesEmbeddedFields(t *testing.T) {
	raw := deriveInputSchema(embeddedArgs{})
	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	props := schema["properties"].(map[string]any)
	_, hasName := props["name"]
	_, hasExtra := props["extra"]
	assert.True(t, hasName)
	assert.True(t, hasExtra)
}
