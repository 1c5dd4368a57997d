package handlers

import (
	"net/http"
	"strconv"

	"saralpe/internal/services/payment"
)

func CreatePaymentRequest(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in payment.PaymentInput
		if !decodeValid(w, r, &in) {
			return
		}
		in.MID = merchantFor(r, in.MID)

		res, _ := svc.CreatePaymentRequest(r.Context(), in)
		writeResult(w, "Payment request creation status", res)
	}
}

func CreateCollectRequest(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in payment.CollectInput
		if !decodeValid(w, r, &in) {
			return
		}
		in.MID = merchantFor(r, in.MID)

		res, _ := svc.CreateCollectRequest(r.Context(), in)
		writeResult(w, "Collect request creation status", res)
	}
}

func CreatePaymentPage(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in payment.PaymentInput
		if !decodeValid(w, r, &in) {
			return
		}
		writeResult(w, "Payment page creation status", svc.CreatePaymentPage(r.Context(), in))
	}
}

func CheckPaymentStatus(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in payment.StatusInput
		if !decodeValid(w, r, &in) {
			return
		}
		in.MID = merchantFor(r, in.MID)

		writeResult(w, "Payment status retrieval status", svc.CheckPaymentStatus(r.Context(), in))
	}
}

// The merchant-surface handlers ignore caller mids: the merchant token is bound to its own.

func CreateMerchantPaymentRequest(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in payment.PaymentInput
		if !decodeValid(w, r, &in) {
			return
		}
		res, _ := svc.CreateMerchantPaymentRequest(r.Context(), in)
		writeResult(w, "Payment request creation status", res)
	}
}

func CreateMerchantCollectRequest(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in payment.CollectInput
		if !decodeValid(w, r, &in) {
			return
		}
		res, _ := svc.CreateMerchantCollectRequest(r.Context(), in)
		writeResult(w, "Collect request creation status", res)
	}
}

func CheckMerchantPaymentStatus(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in payment.StatusInput
		if !decodeValid(w, r, &in) {
			return
		}
		writeResult(w, "Payment status retrieval status", svc.CheckMerchantPaymentStatus(r.Context(), in))
	}
}

func ListTransactions(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		offset := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		if v := r.URL.Query().Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}
		rows, err := svc.ListTransactions(r.Context(), limit, offset)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Transaction details", "data": toTransactionViews(rows)})
	}
}
