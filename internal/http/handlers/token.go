package handlers

import (
	"context"
	"net/http"

	"saralpe/internal/domain/token"

	"github.com/rs/zerolog/log"
)

// TokenIssuer hands out the current token of one provider identity.
type TokenIssuer interface {
	Acquire(ctx context.Context) (*token.AuthToken, error)
}

// AuthToken exposes the cached token, refreshing it when expired. A nil
// issuer means the identity has no credentials configured.
func AuthToken(scope token.Scope, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tokens == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": string(scope) + " credentials are not configured"})
			return
		}
		t, err := tokens.Acquire(r.Context())
		if err != nil {
			log.Error().Err(err).Str("scope", string(scope)).Msg("failed to generate auth token")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Failed to generate token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":    "Token generated successfully",
			"token":      t.Value,
			"expires_at": t.ExpiresAt,
		})
	}
}
