package paygic

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"saralpe/internal/config"
	"saralpe/internal/domain/token"
	"saralpe/internal/provider/base"
	"saralpe/internal/store/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// fakeProvider stands in for the remote API. Handlers can be swapped per test.
type fakeProvider struct {
	srv       *httptest.Server
	authCalls atomic.Int32
	opCalls   atomic.Int32

	mu          sync.Mutex
	authHandler http.HandlerFunc
	opHandler   http.HandlerFunc
	lastToken   string
	lastBody    string
	lastPath    string
	authPath    string
	authBody    string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	f := &fakeProvider{
		authHandler: jsonHandler(http.StatusOK, `{"data":{"token":"T1"}}`),
		opHandler:   jsonHandler(http.StatusOK, `{"data":{}}`),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		isAuth := r.URL.Path == "/"+resellerAuthPath || r.URL.Path == "/"+merchantAuthPath

		f.mu.Lock()
		authH, opH := f.authHandler, f.opHandler
		if isAuth {
			f.authPath, f.authBody = r.URL.Path, string(body)
		} else {
			f.lastToken = r.Header.Get("token")
			f.lastBody = string(body)
			f.lastPath = r.URL.Path
		}
		f.mu.Unlock()

		if isAuth {
			f.authCalls.Add(1)
			authH(w, r)
			return
		}
		f.opCalls.Add(1)
		opH(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeProvider) setAuth(h http.HandlerFunc) {
	f.mu.Lock()
	f.authHandler = h
	f.mu.Unlock()
}

func (f *fakeProvider) setOp(h http.HandlerFunc) {
	f.mu.Lock()
	f.opHandler = h
	f.mu.Unlock()
}

func (f *fakeProvider) last() (tok, body, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastToken, f.lastBody, f.lastPath
}

func (f *fakeProvider) lastAuth() (path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authPath, f.authBody
}

func (f *fakeProvider) cfg() config.PaygicCfg {
	return config.PaygicCfg{
		BaseURL:          f.srv.URL,
		RID:              "R123",
		Password:         "secret",
		DefaultMID:       "M1",
		MerchantPassword: "mid-secret",
		TokenValidity:    30 * 24 * time.Hour,
		Timeout:          2 * time.Second,
	}
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// fixedClock is a mutable test clock.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestProvider(f *fakeProvider, store *memory.TokenStore, clock *fixedClock) *TokenProvider {
	cfg := f.cfg()
	p := NewTokenProvider(store, base.NewHTTPClient("paygic", cfg.Timeout), cfg, nil)
	p.now = clock.Now
	return p
}

// failingStore simulates a broken backend.
type failingStore struct {
	getErr error
	putErr error
	puts   atomic.Int32
}

func (s *failingStore) Get(ctx context.Context) (*token.AuthToken, error) {
	return nil, s.getErr
}

func (s *failingStore) Put(ctx context.Context, t *token.AuthToken) error {
	s.puts.Add(1)
	return s.putErr
}

var errBackend = errors.New("backend down")

// lateStore misses on its first read and then holds a valid token, as when
// another process refreshes between the fast-path read and the flight.
type lateStore struct {
	tok  *token.AuthToken
	gets atomic.Int32
	puts atomic.Int32
}

func (s *lateStore) Get(ctx context.Context) (*token.AuthToken, error) {
	if s.gets.Add(1) == 1 {
		return nil, nil
	}
	return s.tok, nil
}

func (s *lateStore) Put(ctx context.Context, t *token.AuthToken) error {
	s.puts.Add(1)
	return nil
}

// tokenAcquisitions returns token_acquisitions_total keyed by "scope/result".
func tokenAcquisitions(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "token_acquisitions_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			out[labels["scope"]+"/"+labels["result"]] += m.GetCounter().GetValue()
		}
	}
	return out
}
