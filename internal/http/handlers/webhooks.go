package handlers

import (
	"net/http"

	"saralpe/internal/domain/transaction"
	"saralpe/internal/services/payment"

	"github.com/rs/zerolog/log"
)

type callbackReq struct {
	Data *transaction.Callback `json:"data" validate:"required"`
}

// TransactionCallback receives the provider's settlement notification.
func TransactionCallback(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in callbackReq
		if !decodeValid(w, r, &in) {
			return
		}

		log.Info().
			Str("paygic_reference_id", in.Data.PaygicReferenceID).
			Str("txn_status", in.Data.TxnStatus).
			Msg("transaction callback received")

		if _, err := svc.ProcessCallback(r.Context(), *in.Data); err != nil {
			log.Error().Err(err).Str("paygic_reference_id", in.Data.PaygicReferenceID).Msg("error processing transaction callback")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "An error occurred while processing the transaction."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Transaction successfully processed."})
	}
}
