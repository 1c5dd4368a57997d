package paygic

import (
	"context"
	"errors"
	"net/http"
	"time"

	"saralpe/internal/domain/token"
	"saralpe/internal/metrics"
	"saralpe/internal/provider"
	"saralpe/internal/provider/base"

	"github.com/rs/zerolog/log"
)

// TokenSource yields a valid reseller token or an error explaining why none exists.
type TokenSource interface {
	Acquire(ctx context.Context) (*token.AuthToken, error)
}

// Client executes reseller operations against the provider. It holds no
// per-request state and is safe for concurrent use. It never retries.
type Client struct {
	tokens  TokenSource
	http    *base.HTTPClient
	baseURL string
	catalog provider.Catalog
	metrics *metrics.Metrics
}

func NewClient(tokens TokenSource, httpClient *base.HTTPClient, baseURL string, catalog provider.Catalog, m *metrics.Metrics) *Client {
	return &Client{
		tokens:  tokens,
		http:    httpClient,
		baseURL: baseURL,
		catalog: catalog,
		metrics: m,
	}
}

// Execute runs one operation and classifies the outcome. Every failure is
// reported through the Result; Execute itself has no error return.
func (c *Client) Execute(ctx context.Context, req provider.Request) provider.Result {
	start := time.Now()
	res := c.execute(ctx, req)
	c.metrics.ObserveGatewayRequest(string(req.Operation), string(res.Outcome), time.Since(start))

	if res.OK() {
		log.Info().
			Str("operation", string(req.Operation)).
			Int("status_code", res.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("provider operation succeeded")
	} else {
		log.Error().
			Str("operation", string(req.Operation)).
			Str("outcome", string(res.Outcome)).
			Int("status_code", res.StatusCode).
			Str("error", base.Truncate(res.ErrorDetail, logBodyLimit)).
			Dur("duration", time.Since(start)).
			Msg("provider operation failed")
	}
	return res
}

func (c *Client) execute(ctx context.Context, req provider.Request) provider.Result {
	url, ok := c.catalog.URL(c.baseURL, req.Operation)
	if !ok {
		return provider.Result{
			Outcome:     provider.OutcomeRequestFailure,
			StatusCode:  http.StatusNotFound,
			ErrorDetail: "unknown operation " + string(req.Operation),
		}
	}

	tok, err := c.tokens.Acquire(ctx)
	if err != nil || tok == nil {
		detail := "no reseller token available"
		if err != nil {
			detail = err.Error()
		}
		return provider.Result{
			Outcome:     provider.OutcomeAuthFailure,
			StatusCode:  http.StatusUnauthorized,
			ErrorDetail: detail,
		}
	}

	payload := req.Payload
	if payload == nil {
		payload = provider.Payload{}
	}

	resp, err := c.http.PostJSON(ctx, url, payload, map[string]string{"token": tok.Value})
	if err != nil {
		var te *base.TransportError
		if errors.As(err, &te) {
			return provider.Result{
				Outcome:     provider.OutcomeTransportFailure,
				StatusCode:  http.StatusInternalServerError,
				ErrorDetail: te.Error(),
			}
		}
		return provider.Result{
			Outcome:     provider.OutcomeRequestFailure,
			StatusCode:  http.StatusBadRequest,
			ErrorDetail: err.Error(),
		}
	}

	if resp.IsSuccess() {
		return provider.Result{
			Outcome:    provider.OutcomeSuccess,
			StatusCode: resp.StatusCode,
			Body:       resp.Decoded(),
		}
	}

	return provider.Result{
		Outcome:     provider.OutcomeRequestFailure,
		StatusCode:  resp.StatusCode,
		Body:        resp.Decoded(),
		ErrorDetail: base.Truncate(resp.String(), logBodyLimit),
	}
}
