package handlers

import (
	"net/http"

	"saralpe/internal/services/payment"
)

func MerchantFetchIndividual(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in payment.MerchantInput
		if !decodeValid(w, r, &in) {
			return
		}
		in.MID = merchantFor(r, in.MID)

		writeResult(w, "Merchant fetch individual status", svc.MerchantFetchIndividual(r.Context(), in))
	}
}

func MerchantDueDiligence(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in payment.DueDiligenceInput
		if !decodeValid(w, r, &in) {
			return
		}
		in.MID = merchantFor(r, in.MID)

		writeResult(w, "Merchant due diligence status", svc.MerchantDueDiligence(r.Context(), in))
	}
}

func MerchantCompleteOnboarding(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in payment.MerchantInput
		if !decodeValid(w, r, &in) {
			return
		}
		in.MID = merchantFor(r, in.MID)

		writeResult(w, "Merchant complete onboarding status", svc.MerchantCompleteOnboarding(r.Context(), in))
	}
}
