// file: internal/mcpserver/validate_test.go
package mcpserver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgSchemaCache_EmptySchemaAllowsAnything(t *testing.T) {
	c := newArgSchemaCache()
	err := c.validateArguments("noop", nil, map[string]any{"whatever": 1})
	assert.NoError(t, err)
}

func TestArgSchemaCache_RejectsMissingRequired(t *testing.T) {
	c := newArgSchemaCache()
	schema := json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`)
	err := c.validateArguments("echo", schema, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "echo")
}

func TestArgSchemaCache_AcceptsValidArguments(t *testing.T) {
	c := newArgSchemaCache()
	schema := json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`)
	err := c.validateArguments("echo", schema, map[string]any{"name": "hi"})
	assert.NoError(t, err)
}

func TestArgSchemaCache_CompilesOncePerName(t *testing.T) {
	c := newArgSchemaCache()
	schema := json.RawMessage(`{"type":"object"}`)
	require.NoError(t, c.validateArguments("echo", schema, map[string]any{}))
	// Second call must not recompile; an invalid raw schema passed the second
	// time should be ignored since the compiled schema is already cached.
	require.NoError(t, c.validateArguments("echo", json.RawMessage(`not json`), map[string]any{}))
}
