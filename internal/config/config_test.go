package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	s := New()
	assert.Equal(t, "mcpcore", s.Server.Name)
	assert.Equal(t, "stdio", s.Server.Transport)
	assert.Equal(t, "info", s.Logging.Level)
	assert.Empty(t, s.Schema.SchemaOverrideURI)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "mcpcore", s.Server.Name)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "server:\n  name: custom-server\n  transport: http\nlogging:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-server", s.Server.Name)
	assert.Equal(t, "http", s.Server.Transport)
	assert.Equal(t, "debug", s.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  name: from-file\n"), 0o600))

	t.Setenv("CG_MCP_SERVER_NAME", "from-env")
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.Server.Name)
}

func TestExpandPath_Tilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/foo/bar")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "foo/bar"), expanded)
}

func TestExpandPath_AbsoluteUnchanged(t *testing.T) {
	expanded, err := ExpandPath("/tmp/foo")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/foo", expanded)
}
