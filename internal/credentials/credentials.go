// Package credentials resolves a Google Drive bearer token: a cached token
// wins, otherwise a refresh-token exchange is made and its result cached
// and persisted for the next run.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"podcast-notes/internal/config"
)

var (
	ErrNotConfigured = errors.New("oauth refresh is not configured")
	ErrMissingToken  = errors.New("missing access_token in response")
)

// RefreshError is a non-2xx answer from the token endpoint.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("oauth refresh failed: %d %s", e.StatusCode, e.Body)
}

// TokenCell holds the access token for the process lifetime.
type TokenCell struct {
	mu    sync.Mutex
	token string
}

func NewTokenCell(token string) *TokenCell {
	return &TokenCell{token: token}
}

func (c *TokenCell) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *TokenCell) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Persister stores a refreshed token for later runs. envfile.Store
// implements it.
type Persister interface {
	Set(key, value string) (bool, error)
}

type Provider struct {
	cfg    config.OAuthConfig
	cell   *TokenCell
	store  Persister
	client *http.Client
}

// NewProvider creates a Provider. store may be nil to skip persisting and
// client may be nil to use http.DefaultClient.
func NewProvider(cfg config.OAuthConfig, cell *TokenCell, store Persister, client *http.Client) *Provider {
	if cell == nil {
		cell = NewTokenCell("")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{cfg: cfg, cell: cell, store: store, client: client}
}

// Token returns the cached token unchanged when there is one. Otherwise it
// tries a single refresh exchange. ok is false when no token could be
// obtained; the reason is logged.
func (p *Provider) Token(ctx context.Context) (token string, ok bool) {
	if token := p.cell.Get(); token != "" {
		return token, true
	}
	token, err := p.Refresh(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			log.Warn().Err(err).Msg("google oauth refresh failed")
		}
		return "", false
	}
	return token, true
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Refresh performs the refresh-token grant, caches the new token and
// persists it under config.AccessTokenKey.
func (p *Provider) Refresh(ctx context.Context) (string, error) {
	if !p.cfg.Configured() {
		return "", ErrNotConfigured
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"refresh_token": {p.cfg.RefreshToken},
	}
	if p.cfg.Scope != "" {
		form.Set("scope", p.cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauth refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read refresh response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RefreshError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", ErrMissingToken
	}

	p.cell.Set(tr.AccessToken)
	p.persist(tr.AccessToken)
	return tr.AccessToken, nil
}

func (p *Provider) persist(token string) {
	if p.store == nil {
		return
	}
	written, err := p.store.Set(config.AccessTokenKey, token)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("could not persist refreshed access token")
	case !written:
		log.Debug().Msg("env file missing, refreshed access token kept in memory only")
	}
}
