package httpx

import (
	"encoding/json"
	"net/http"

	"saralpe/internal/config"
	"saralpe/internal/domain/token"
	"saralpe/internal/http/handlers"
	middlewarex "saralpe/internal/http/middleware"
	"saralpe/internal/metrics"
	"saralpe/internal/services/payment"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDependencies holds all dependencies for the HTTP router. MerchantTokens
// is nil when no merchant credentials are configured.
type RouterDependencies struct {
	Config         config.Cfg
	ResellerTokens handlers.TokenIssuer
	MerchantTokens handlers.TokenIssuer
	PaymentService *payment.Service
	Metrics        *metrics.Metrics
}

// NewRouter maps caller routes onto provider operations
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middlewarex.MerchantContext)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"env":     deps.Config.App.Env,
			"message": "SaralPe reseller gateway running",
		})
	})
	r.Handle("/metrics", deps.Metrics.Handler())

	// provider notifications
	r.Post("/reseller/callback", handlers.TransactionCallback(deps.PaymentService))

	// Payment routes (protected by the caller API key)
	r.Group(func(r chi.Router) {
		r.Use(middlewarex.APIKeyAuth(deps.Config.API.Key))

		r.Post("/reseller/create-payment-request", handlers.CreatePaymentRequest(deps.PaymentService))
		r.Post("/reseller/create-collect-request", handlers.CreateCollectRequest(deps.PaymentService))
		r.Post("/reseller/payment-status", handlers.CheckPaymentStatus(deps.PaymentService))

		r.Post("/merchant/create-payment-page", handlers.CreatePaymentPage(deps.PaymentService))
		r.Post("/merchant/create-payment-request", handlers.CreateMerchantPaymentRequest(deps.PaymentService))
		r.Post("/merchant/create-collect-request", handlers.CreateMerchantCollectRequest(deps.PaymentService))
		r.Post("/merchant/payment-status", handlers.CheckMerchantPaymentStatus(deps.PaymentService))
	})

	// Tokens, ledger and merchant onboarding (protected by admin auth)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarex.APIKeyAuth(deps.Config.Admin.APIKey))

		r.Get("/reseller/auth-token", handlers.AuthToken(token.ScopeReseller, deps.ResellerTokens))
		r.Get("/merchant/auth-token", handlers.AuthToken(token.ScopeMerchant, deps.MerchantTokens))
		r.Get("/transactions", handlers.ListTransactions(deps.PaymentService))

		r.Post("/merchant/fetch-individual", handlers.MerchantFetchIndividual(deps.PaymentService))
		r.Post("/merchant/due-diligence", handlers.MerchantDueDiligence(deps.PaymentService))
		r.Post("/merchant/complete-onboarding", handlers.MerchantCompleteOnboarding(deps.PaymentService))
	})

	return r
}
