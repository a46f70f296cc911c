// Package config handles application configuration: defaults, an optional YAML file,
// and environment variable overrides, in that order of increasing precedence.
// file: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dkoosis/mcpcore/internal/logging"
)

var logger = logging.GetLogger("config")

// Settings is the root configuration object threaded through cmd/ into every package
// that needs tunables.
type Settings struct {
	Server  ServerConfig  `yaml:"server"`
	Schema  SchemaConfig  `yaml:"schema"`
	Logging LoggingConfig `yaml:"logging"`
	OAuth   OAuthConfig   `yaml:"oauth"`
}

// ServerConfig contains server identity and transport settings.
type ServerConfig struct {
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
	Transport  string `yaml:"transport"` // "stdio" or "http".
	ListenAddr string `yaml:"listen_addr"`
}

// SchemaConfig holds the schema_override_uri setting. No package in this module
// reads it; protocol messages are not validated against a JSON schema.
type SchemaConfig struct {
	SchemaOverrideURI string `yaml:"schema_override_uri"`
}

// LoggingConfig controls the zap-backed logger's verbosity and rendering.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error".
	Format string `yaml:"format"` // "json" or "console".
}

// OAuthConfig configures the authorization-code flow used by the HTTP/SSE client
// transport. TokenPath is loaded from config but is not passed to internal/authstore,
// whose New takes its own fallback directory.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
	RedirectURL  string `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
	TokenPath    string `yaml:"token_path"`
}

// New returns Settings populated with defaults suitable for running a stdio server with
// no configuration file present.
func New() *Settings {
	return &Settings{
		Server: ServerConfig{
			Name:      "mcpcore",
			Version:   "0.1.0",
			Transport: "stdio",
		},
		Schema: SchemaConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		OAuth: OAuthConfig{
			TokenPath: "~/.config/mcpcore/token.json",
		},
	}
}

// Load builds Settings from defaults, then an optional YAML file at path (skipped
// silently if path is empty or the file doesn't exist), then environment variable
// overrides prefixed CG_MCP_.
func Load(path string) (*Settings, error) {
	s := New()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Warn("Config file not found, using defaults and environment.", "path", path)
			} else {
				return nil, fmt.Errorf("read config file %q: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	applyEnvOverrides(s)
	return s, nil
}

// envPrefix is the common prefix for every environment variable override this package
// recognizes.
const envPrefix = "CG_MCP_"

// applyEnvOverrides mutates s in place from CG_MCP_* environment variables. Each
// variable maps to one Settings field; unset variables leave the existing value (file
// or default) untouched.
func applyEnvOverrides(s *Settings) {
	strVar := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	strVar("SERVER_NAME", &s.Server.Name)
	strVar("SERVER_TRANSPORT", &s.Server.Transport)
	strVar("SERVER_LISTEN_ADDR", &s.Server.ListenAddr)
	strVar("SCHEMA_OVERRIDE_URI", &s.Schema.SchemaOverrideURI)
	strVar("LOG_LEVEL", &s.Logging.Level)
	strVar("LOG_FORMAT", &s.Logging.Format)
	strVar("OAUTH_CLIENT_ID", &s.OAuth.ClientID)
	strVar("OAUTH_CLIENT_SECRET", &s.OAuth.ClientSecret)
	strVar("OAUTH_TOKEN_PATH", &s.OAuth.TokenPath)
	if scopes, ok := os.LookupEnv(envPrefix + "OAUTH_SCOPES"); ok {
		s.OAuth.Scopes = strings.Split(scopes, ",")
	}
}

// GetServerName returns the configured server name.
func (s *Settings) GetServerName() string { return s.Server.Name }

// ExpandPath expands a leading ~ to the current user's home directory, leaving any
// other path unchanged.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand path %q: failed to get user home directory: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}
