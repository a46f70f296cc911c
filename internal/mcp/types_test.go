package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent_TextRoundTrip(t *testing.T) {
	c := TextContent("hello")
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded Content
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ContentTypeText, decoded.Type)
	assert.Equal(t, "hello", decoded.Text)
	assert.Nil(t, decoded.Raw)
}

func TestContent_UnknownTypePassesThrough(t *testing.T) {
	raw := []byte(`{"type":"future_block","payload":{"x":1}}`)

	var decoded Content
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, ContentType("future_block"), decoded.Type)
	assert.NotNil(t, decoded.Raw)

	reencoded, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(reencoded))
}

func TestIsSupportedVersion(t *testing.T) {
	assert.True(t, IsSupportedVersion(LatestProtocolVersion))
	assert.False(t, IsSupportedVersion("1999-01-01"))
}

func TestServerCapabilities_HasChecks(t *testing.T) {
	var nilCaps *ServerCapabilities
	assert.False(t, nilCaps.HasTools())

	caps := &ServerCapabilities{Tools: &ToolsCapability{ListChanged: true}}
	assert.True(t, caps.HasTools())
	assert.False(t, caps.HasPrompts())
}
