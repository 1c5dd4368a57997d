package middlewarex

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyAuth requires `Authorization: Bearer <key>`. With an empty key every request is refused.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte(apiKey))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				http.Error(w, "access disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			got := sha256.Sum256([]byte(strings.TrimPrefix(auth, "Bearer ")))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				http.Error(w, "invalid key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MerchantHeader is the header through which callers name their sub-merchant.
const MerchantHeader = "X-Merchant-ID"

// MerchantContext stores the caller's merchant id, when sent, for handlers to fall back on.
func MerchantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mid := strings.TrimSpace(r.Header.Get(MerchantHeader)); mid != "" {
			r = r.WithContext(WithMerchantID(r.Context(), mid))
		}
		next.ServeHTTP(w, r)
	})
}
