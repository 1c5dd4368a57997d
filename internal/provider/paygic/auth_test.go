package paygic

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"saralpe/internal/domain/token"
	"saralpe/internal/metrics"
	"saralpe/internal/provider/base"
	"saralpe/internal/store/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 13, 8, 0, 0, 0, time.UTC)

func TestAcquireEmptyStore(t *testing.T) {
	f := newFakeProvider(t)
	var got string
	f.setAuth(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		jsonHandler(http.StatusOK, `{"data":{"token":"T1"}}`)(w, r)
	})
	store := memory.NewTokenStore()
	clock := &fixedClock{t: epoch}
	p := newTestProvider(f, store, clock)

	tok, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", tok.Value)
	assert.Equal(t, epoch, tok.IssuedAt)
	assert.Equal(t, epoch.Add(30*24*time.Hour), tok.ExpiresAt)
	assert.Equal(t, int32(1), f.authCalls.Load())
	assert.JSONEq(t, `{"rid":"R123","password":"secret"}`, got)

	stored, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", stored.Value, "persisted before return")
}

func TestAcquireCacheHit(t *testing.T) {
	f := newFakeProvider(t)
	store := memory.NewTokenStore()
	clock := &fixedClock{t: epoch}
	require.NoError(t, store.Put(context.Background(), &token.AuthToken{
		Value: "CACHED", IssuedAt: epoch, ExpiresAt: epoch.Add(time.Hour),
	}))
	p := newTestProvider(f, store, clock)

	first, err := p.Acquire(context.Background())
	require.NoError(t, err)
	second, err := p.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "CACHED", first.Value)
	assert.Equal(t, *first, *second)
	assert.Equal(t, int32(0), f.authCalls.Load())
}

func TestAcquireExpiredToken(t *testing.T) {
	f := newFakeProvider(t)
	f.setAuth(jsonHandler(http.StatusOK, `{"data":{"token":"T2"}}`))
	store := memory.NewTokenStore()
	clock := &fixedClock{t: epoch}
	require.NoError(t, store.Put(context.Background(), &token.AuthToken{
		Value: "T1", IssuedAt: epoch.Add(-31 * 24 * time.Hour), ExpiresAt: epoch.Add(-24 * time.Hour),
	}))
	p := newTestProvider(f, store, clock)

	tok, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T2", tok.Value)
	assert.Equal(t, int32(1), f.authCalls.Load())

	stored, _ := store.Get(context.Background())
	assert.Equal(t, "T2", stored.Value, "old token superseded")
}

func TestAcquireExpiryBoundary(t *testing.T) {
	f := newFakeProvider(t)
	store := memory.NewTokenStore()
	clock := &fixedClock{t: epoch}
	p := newTestProvider(f, store, clock)

	_, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.authCalls.Load())

	clock.Advance(30*24*time.Hour - time.Second)
	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.authCalls.Load(), "still valid one second before expiry")

	clock.Advance(time.Second)
	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.authCalls.Load(), "expired at the expiry instant")
}

func TestAcquireOneRemoteCallPerExpiredAcquire(t *testing.T) {
	f := newFakeProvider(t)
	store := memory.NewTokenStore()
	clock := &fixedClock{t: epoch}
	p := newTestProvider(f, store, clock)

	for i := 1; i <= 3; i++ {
		_, err := p.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(i), f.authCalls.Load())
		clock.Advance(31 * 24 * time.Hour)
	}
}

func TestAcquireFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantErr    bool
	}{
		{
			name:       "server error",
			handler:    jsonHandler(http.StatusInternalServerError, `{"msg":"boom"}`),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "rejected credentials",
			handler:    jsonHandler(http.StatusUnauthorized, `{"msg":"invalid rid"}`),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed body",
			handler:    jsonHandler(http.StatusOK, `not json`),
			wantStatus: http.StatusOK,
			wantErr:    true,
		},
		{
			name:       "missing token field",
			handler:    jsonHandler(http.StatusOK, `{"data":{}}`),
			wantStatus: http.StatusOK,
			wantErr:    true,
		},
		{
			name:       "empty token",
			handler:    jsonHandler(http.StatusOK, `{"data":{"token":""}}`),
			wantStatus: http.StatusOK,
			wantErr:    true,
		},
		{
			name:       "data is not an object",
			handler:    jsonHandler(http.StatusOK, `{"data":"oops"}`),
			wantStatus: http.StatusOK,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeProvider(t)
			f.setAuth(tt.handler)
			store := memory.NewTokenStore()
			p := newTestProvider(f, store, &fixedClock{t: epoch})

			tok, err := p.Acquire(context.Background())
			assert.Nil(t, tok)
			require.Error(t, err)

			var ae *AuthError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.wantStatus, ae.StatusCode)
			assert.Equal(t, tt.wantErr, ae.Err != nil)

			stored, _ := store.Get(context.Background())
			assert.Nil(t, stored, "failures never write the store")
		})
	}
}

func TestAcquireTransportFailure(t *testing.T) {
	f := newFakeProvider(t)
	cfg := f.cfg()
	f.srv.Close()

	store := memory.NewTokenStore()
	p := NewTokenProvider(store, base.NewHTTPClient("paygic", cfg.Timeout), cfg, nil)

	tok, err := p.Acquire(context.Background())
	assert.Nil(t, tok)

	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	var te *base.TransportError
	assert.True(t, errors.As(err, &te))
}

func TestAcquireStoreReadErrorReauthenticates(t *testing.T) {
	f := newFakeProvider(t)
	store := &failingStore{getErr: errBackend}
	cfg := f.cfg()
	p := NewTokenProvider(store, base.NewHTTPClient("paygic", cfg.Timeout), cfg, nil)

	tok, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", tok.Value)
	assert.Equal(t, int32(1), store.puts.Load())
}

func TestAcquireStoreWriteErrorStillReturnsToken(t *testing.T) {
	f := newFakeProvider(t)
	store := &failingStore{putErr: errBackend}
	cfg := f.cfg()
	p := NewTokenProvider(store, base.NewHTTPClient("paygic", cfg.Timeout), cfg, nil)

	tok, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", tok.Value)
}

func TestAcquireCoalescesConcurrentRefresh(t *testing.T) {
	f := newFakeProvider(t)
	release := make(chan struct{})
	f.setAuth(func(w http.ResponseWriter, r *http.Request) {
		<-release
		jsonHandler(http.StatusOK, `{"data":{"token":"T1"}}`)(w, r)
	})
	store := memory.NewTokenStore()
	p := newTestProvider(f, store, &fixedClock{t: epoch})

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := p.Acquire(context.Background())
			if assert.NoError(t, err) {
				results <- tok.Value
			}
		}()
	}

	// let every caller reach the flight before the provider answers
	require.Eventually(t, func() bool { return f.authCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	assert.Equal(t, int32(1), f.authCalls.Load())
	n := 0
	for v := range results {
		assert.Equal(t, "T1", v)
		n++
	}
	assert.Equal(t, callers, n)
}

func TestAcquireCallerCancelled(t *testing.T) {
	f := newFakeProvider(t)
	release := make(chan struct{})
	f.setAuth(func(w http.ResponseWriter, r *http.Request) {
		<-release
		jsonHandler(http.StatusOK, `{"data":{"token":"T1"}}`)(w, r)
	})
	store := memory.NewTokenStore()
	p := newTestProvider(f, store, &fixedClock{t: epoch})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return f.authCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	// the shared flight still completes and stores the token
	close(release)
	require.Eventually(t, func() bool {
		tok, _ := store.Get(context.Background())
		return tok != nil && tok.Value == "T1"
	}, time.Second, 5*time.Millisecond)
}

func TestAcquireLateStoreHitIsNotARefresh(t *testing.T) {
	f := newFakeProvider(t)
	reg := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(reg)
	require.NoError(t, err)

	store := &lateStore{tok: &token.AuthToken{Value: "OTHER", IssuedAt: epoch, ExpiresAt: epoch.Add(time.Hour)}}
	cfg := f.cfg()
	p := NewTokenProvider(store, base.NewHTTPClient("paygic", cfg.Timeout), cfg, m)
	p.now = (&fixedClock{t: epoch}).Now

	tok, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OTHER", tok.Value)
	assert.Equal(t, int32(0), f.authCalls.Load())
	assert.Equal(t, int32(0), store.puts.Load())
	assert.Equal(t, map[string]float64{"reseller/cache_hit": 1}, tokenAcquisitions(t, reg))
}

func TestAcquireCountsByResult(t *testing.T) {
	f := newFakeProvider(t)
	reg := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(reg)
	require.NoError(t, err)

	cfg := f.cfg()
	p := NewTokenProvider(memory.NewTokenStore(), base.NewHTTPClient("paygic", cfg.Timeout), cfg, m)
	p.now = (&fixedClock{t: epoch}).Now

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
	_, err = p.Acquire(context.Background())
	require.NoError(t, err)

	f.setAuth(jsonHandler(http.StatusUnauthorized, `{"msg":"bad"}`))
	failing := NewTokenProvider(memory.NewTokenStore(), base.NewHTTPClient("paygic", cfg.Timeout), cfg, m)
	_, err = failing.Acquire(context.Background())
	require.Error(t, err)

	assert.Equal(t, map[string]float64{
		"reseller/refreshed": 1,
		"reseller/cache_hit": 1,
		"reseller/failed":    1,
	}, tokenAcquisitions(t, reg))
}

func TestMerchantTokenProvider(t *testing.T) {
	f := newFakeProvider(t)
	f.setAuth(jsonHandler(http.StatusOK, `{"data":{"token":"MT1"}}`))
	cfg := f.cfg()
	store := memory.NewTokenStore()
	p := NewMerchantTokenProvider(store, base.NewHTTPClient("paygic", cfg.Timeout), cfg, nil)
	p.now = (&fixedClock{t: epoch}).Now

	tok, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MT1", tok.Value)
	assert.Equal(t, token.ScopeMerchant, p.Scope())

	path, body := f.lastAuth()
	assert.Equal(t, "/createMerchantToken", path)
	assert.JSONEq(t, `{"mid":"M1","password":"mid-secret"}`, body)

	stored, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MT1", stored.Value)
}

func TestMerchantAuthErrorNamesScope(t *testing.T) {
	f := newFakeProvider(t)
	f.setAuth(jsonHandler(http.StatusForbidden, `{"msg":"bad mid"}`))
	cfg := f.cfg()
	p := NewMerchantTokenProvider(memory.NewTokenStore(), base.NewHTTPClient("paygic", cfg.Timeout), cfg, nil)

	_, err := p.Acquire(context.Background())
	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, token.ScopeMerchant, ae.Scope)
	assert.Equal(t, http.StatusForbidden, ae.StatusCode)
	assert.Contains(t, err.Error(), "merchant auth failed with status 403")
}
