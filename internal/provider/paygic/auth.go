package paygic

import (
	"context"
	"fmt"
	"time"

	"saralpe/internal/config"
	"saralpe/internal/domain/token"
	"saralpe/internal/metrics"
	"saralpe/internal/provider/base"
	"saralpe/internal/store/repositories"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	resellerAuthPath = "reseller/createResellerAuthToken"
	merchantAuthPath = "createMerchantToken"
	logBodyLimit     = 512
	providerLabel    = "paygic"
)

// AuthError reports why no token could be obtained. StatusCode and Body are
// set when the provider answered; Err is set for transport and decode failures.
type AuthError struct {
	Scope      token.Scope
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s auth failed with status %d: %v", e.Scope, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s auth failed: %v", e.Scope, e.Err)
	default:
		return fmt.Sprintf("%s auth failed with status %d: %s", e.Scope, e.StatusCode, e.Body)
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// TokenProvider hands out a non-expired token for one provider identity,
// authenticating only when the stored token is absent or expired.
// Concurrent refreshes are coalesced into a single remote call.
type TokenProvider struct {
	scope       token.Scope
	store       repositories.TokenStore
	http        *base.HTTPClient
	authURL     string
	credentials map[string]string
	validity    time.Duration
	metrics     *metrics.Metrics
	now         func() time.Time
	group       singleflight.Group
}

// NewTokenProvider issues reseller tokens against {rid, password}.
func NewTokenProvider(store repositories.TokenStore, httpClient *base.HTTPClient, cfg config.PaygicCfg, m *metrics.Metrics) *TokenProvider {
	return newTokenProvider(token.ScopeReseller, resellerAuthPath,
		map[string]string{"rid": cfg.RID, "password": cfg.Password},
		store, httpClient, cfg, m)
}

// NewMerchantTokenProvider issues tokens for the configured merchant against
// {mid, password}. The store must not be shared with the reseller provider.
func NewMerchantTokenProvider(store repositories.TokenStore, httpClient *base.HTTPClient, cfg config.PaygicCfg, m *metrics.Metrics) *TokenProvider {
	return newTokenProvider(token.ScopeMerchant, merchantAuthPath,
		map[string]string{"mid": cfg.DefaultMID, "password": cfg.MerchantPassword},
		store, httpClient, cfg, m)
}

func newTokenProvider(scope token.Scope, path string, credentials map[string]string,
	store repositories.TokenStore, httpClient *base.HTTPClient, cfg config.PaygicCfg, m *metrics.Metrics) *TokenProvider {
	return &TokenProvider{
		scope:       scope,
		store:       store,
		http:        httpClient,
		authURL:     cfg.BaseURL + "/" + path,
		credentials: credentials,
		validity:    cfg.TokenValidity,
		metrics:     m,
		now:         time.Now,
	}
}

// Scope is the identity this provider issues tokens for.
func (p *TokenProvider) Scope() token.Scope { return p.scope }

// flight is what one coalesced refresh hands to every waiter.
type flight struct {
	token  *token.AuthToken
	issued bool // false when the in-flight re-check found a valid stored token
}

// Acquire returns the cached token when still valid, otherwise a freshly issued
// one. On failure it returns nil and an *AuthError; nothing is stored.
func (p *TokenProvider) Acquire(ctx context.Context) (*token.AuthToken, error) {
	scope := string(p.scope)
	if t := p.cached(ctx); t != nil {
		p.metrics.IncTokenAcquire(scope, metrics.TokenCacheHit)
		return t, nil
	}

	// the flight outlives a cancelled caller so other waiters still get a token
	ch := p.group.DoChan(scope, func() (any, error) {
		flightCtx := context.WithoutCancel(ctx)
		if t := p.cached(flightCtx); t != nil {
			return flight{token: t}, nil
		}
		t, err := p.authenticate(flightCtx)
		if err != nil {
			return nil, err
		}
		return flight{token: t, issued: true}, nil
	})

	select {
	case <-ctx.Done():
		p.metrics.IncTokenAcquire(scope, metrics.TokenFailed)
		return nil, &AuthError{Scope: p.scope, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			p.metrics.IncTokenAcquire(scope, metrics.TokenFailed)
			return nil, res.Err
		}
		f := res.Val.(flight)
		if f.issued {
			p.metrics.IncTokenAcquire(scope, metrics.TokenRefreshed)
		} else {
			p.metrics.IncTokenAcquire(scope, metrics.TokenCacheHit)
		}
		t := *f.token
		return &t, nil
	}
}

// cached returns the stored token if it is valid now. Store errors count as a miss.
func (p *TokenProvider) cached(ctx context.Context) *token.AuthToken {
	t, err := p.store.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Str("scope", string(p.scope)).Msg("token store read failed, re-authenticating")
		return nil
	}
	if !t.ValidAt(p.now()) {
		return nil
	}
	return t
}

func (p *TokenProvider) authenticate(ctx context.Context) (*token.AuthToken, error) {
	resp, err := p.http.PostJSON(ctx, p.authURL, p.credentials, nil)
	if err != nil {
		log.Error().Err(err).Str("provider", providerLabel).Str("scope", string(p.scope)).Msg("auth request failed")
		return nil, &AuthError{Scope: p.scope, Err: err}
	}

	body := base.Truncate(resp.String(), logBodyLimit)
	if !resp.IsSuccess() {
		log.Error().
			Str("provider", providerLabel).
			Str("scope", string(p.scope)).
			Int("status_code", resp.StatusCode).
			Str("body", body).
			Msg("failed to get auth token")
		return nil, &AuthError{Scope: p.scope, StatusCode: resp.StatusCode, Body: body}
	}

	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := resp.UnmarshalJSON(&out); err != nil {
		log.Error().Err(err).Str("provider", providerLabel).Str("scope", string(p.scope)).Str("body", body).Msg("malformed auth response")
		return nil, &AuthError{Scope: p.scope, StatusCode: resp.StatusCode, Body: body, Err: fmt.Errorf("malformed auth response: %w", err)}
	}

	t, err := token.New(out.Data.Token, p.now(), p.validity)
	if err != nil {
		log.Error().Err(err).Str("provider", providerLabel).Str("scope", string(p.scope)).Str("body", body).Msg("auth response carried no token")
		return nil, &AuthError{Scope: p.scope, StatusCode: resp.StatusCode, Body: body, Err: fmt.Errorf("missing data.token: %w", err)}
	}

	// an unpersisted token is still usable for this process
	if err := p.store.Put(ctx, t); err != nil {
		log.Error().Err(err).Str("scope", string(p.scope)).Msg("failed to persist auth token")
	}

	log.Info().
		Str("provider", providerLabel).
		Str("scope", string(p.scope)).
		Time("expires_at", t.ExpiresAt).
		Msg("auth token issued")
	return t, nil
}
