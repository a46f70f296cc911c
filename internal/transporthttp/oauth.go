// file: internal/transporthttp/oauth.go
package transporthttp

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2"

	"github.com/dkoosis/mcpcore/internal/authstore"
	"github.com/dkoosis/mcpcore/internal/config"
)

// NewOAuth2Config builds the standard library's authorization-code client
// config from the settings block spec.md §4.C's client transport reads
// (client id/secret, the two endpoint URLs, redirect URL, and scopes).
func NewOAuth2Config(cfg config.OAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}
}

// PersistingTokenSource wraps an oauth2.TokenSource, writing every refreshed
// token back to store so the next process start picks up the refreshed
// token instead of re-running the authorization-code flow.
type PersistingTokenSource struct {
	origin string
	store  authstore.Store
	src    oauth2.TokenSource
	last   *oauth2.Token
}

// NewPersistingTokenSource wraps base (typically oauthConfig.TokenSource(ctx,
// initialToken)) so every call to Token() that returns a refreshed token
// persists it to store under origin.
func NewPersistingTokenSource(origin string, store authstore.Store, base oauth2.TokenSource) *PersistingTokenSource {
	return &PersistingTokenSource{origin: origin, store: store, src: base}
}

// Token implements oauth2.TokenSource, persisting a newly-minted token
// before returning it.
func (p *PersistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, errors.Wrap(err, "refresh oauth token")
	}
	if p.last == nil || tok.AccessToken != p.last.AccessToken {
		if err := p.store.SaveToken(p.origin, tok); err != nil {
			return nil, errors.Wrapf(err, "persist refreshed token for %q", p.origin)
		}
	}
	p.last = tok
	return tok, nil
}

// LoadOrAuthorize returns a usable token source for origin: a token already
// on disk/keyring is reused (and kept refreshed via PersistingTokenSource);
// otherwise the caller must complete the authorization-code flow via
// cfg.AuthCodeURL/cfg.Exchange and call SaveInitialToken with the result.
func LoadOrAuthorize(ctx context.Context, origin string, cfg *oauth2.Config, store authstore.Store) (oauth2.TokenSource, error) {
	tok, err := store.LoadToken(origin)
	if err != nil {
		return nil, errors.Wrapf(err, "load stored token for %q", origin)
	}
	if tok == nil {
		return nil, errors.Newf("no stored token for %q; complete the authorization-code flow first", origin)
	}
	return NewPersistingTokenSource(origin, store, cfg.TokenSource(ctx, tok)), nil
}

// SaveInitialToken persists the token obtained from cfg.Exchange after the
// user completes the authorization-code redirect, seeding the store for the
// next LoadOrAuthorize call.
func SaveInitialToken(origin string, store authstore.Store, tok *oauth2.Token) error {
	return store.SaveToken(origin, tok)
}
