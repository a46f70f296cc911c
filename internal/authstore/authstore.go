// Package authstore persists OAuth 2.0 tokens for the HTTP/SSE client
// transport, keyed by the authorization server's origin rather than a
// single fixed service account (spec.md §4.C's OAuth flow talks to
// whatever authorization server the target MCP server advertises).
// file: internal/authstore/authstore.go
package authstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"

	"github.com/dkoosis/mcpcore/internal/logging"
)

const keyringService = "mcpcore-oauth"

// Store persists and retrieves an *oauth2.Token per authorization-server
// origin (e.g. "https://auth.example.com").
type Store interface {
	LoadToken(origin string) (*oauth2.Token, error)
	SaveToken(origin string, token *oauth2.Token) error
	DeleteToken(origin string) error
}

// New picks the most appropriate backend: the OS keyring if it's reachable,
// falling back to a token file under fallbackDir otherwise (spec.md §4.C,
// generalizing the teacher's token_storage_interface.go selection logic).
func New(fallbackDir string, logger logging.Logger) (Store, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	keyringStore := &KeyringStore{logger: logger.WithField("component", "authstore_keyring")}
	if keyringStore.isAvailable() {
		logger.Info("authstore: using OS keyring for OAuth token storage")
		return keyringStore, nil
	}

	logger.Info("authstore: OS keyring unavailable, falling back to file storage", "dir", fallbackDir)
	return NewFileStore(fallbackDir, logger)
}

// KeyringStore stores tokens in the OS keychain, one entry per origin.
type KeyringStore struct {
	logger logging.Logger
}

var _ Store = (*KeyringStore)(nil)

func (s *KeyringStore) isAvailable() bool {
	_, err := keyring.Get(keyringService, "probe")
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		s.logger.Warn("authstore: keyring service is inaccessible", "error", err)
		return false
	}
	return true
}

// LoadToken returns the stored token for origin, or nil if none is stored.
func (s *KeyringStore) LoadToken(origin string) (*oauth2.Token, error) {
	raw, err := keyring.Get(keyringService, origin)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "load token for %q from keyring", origin)
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		s.logger.Warn("authstore: stored token is corrupted, deleting", "origin", origin, "error", err)
		_ = s.DeleteToken(origin)
		return nil, errors.Wrapf(err, "parse stored token for %q", origin)
	}
	return &tok, nil
}

// SaveToken persists token for origin, overwriting any previous entry.
func (s *KeyringStore) SaveToken(origin string, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return errors.Wrap(err, "encode token")
	}
	if err := keyring.Set(keyringService, origin, string(raw)); err != nil {
		return errors.Wrapf(err, "save token for %q to keyring", origin)
	}
	return nil
}

// DeleteToken removes any stored token for origin.
func (s *KeyringStore) DeleteToken(origin string) error {
	if err := keyring.Delete(keyringService, origin); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return errors.Wrapf(err, "delete token for %q from keyring", origin)
	}
	return nil
}

// FileStore persists tokens as one JSON file per origin under dir, used
// when the OS keyring backend isn't reachable (headless/CI environments).
type FileStore struct {
	dir    string
	logger logging.Logger
	mu     sync.RWMutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the token directory if needed and returns a FileStore
// rooted at it.
func NewFileStore(dir string, logger logging.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create token directory")
	}
	return &FileStore{dir: dir, logger: logger.WithField("component", "authstore_file")}, nil
}

// originFilename maps an origin URL to a filesystem-safe filename so two
// distinct origins never collide on disk.
func originFilename(origin string) string {
	replacer := strings.NewReplacer("://", "_", "/", "_", ":", "_")
	return replacer.Replace(origin) + ".json"
}

type fileTokenRecord struct {
	oauth2.Token
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *FileStore) path(origin string) string {
	return filepath.Join(s.dir, originFilename(origin))
}

// LoadToken returns the stored token for origin, or nil if none is stored.
func (s *FileStore) LoadToken(origin string) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(origin))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read token file for %q", origin)
	}
	var rec fileTokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "parse token file for %q", origin)
	}
	return &rec.Token, nil
}

// SaveToken persists token for origin with 0600 permissions.
func (s *FileStore) SaveToken(origin string, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := fileTokenRecord{Token: *token, UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode token")
	}
	if err := os.WriteFile(s.path(origin), data, 0o600); err != nil {
		return errors.Wrapf(err, "write token file for %q", origin)
	}
	return nil
}

// DeleteToken removes the stored token file for origin, if any.
func (s *FileStore) DeleteToken(origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(origin)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete token file for %q", origin)
	}
	return nil
}
