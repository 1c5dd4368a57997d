package handlers

import (
	"time"

	"saralpe/internal/domain/transaction"
)

type transactionView struct {
	ID                  int64      `json:"id"`
	RID                 string     `json:"rid"`
	MID                 string     `json:"mid"`
	SaralPeID           string     `json:"saralPeID,omitempty"`
	MerchantReferenceID string     `json:"merchantReferenceId"`
	PaygicReferenceID   string     `json:"paygicReferenceId,omitempty"`
	CustomerName        string     `json:"customer_name,omitempty"`
	CustomerEmail       string     `json:"customer_email,omitempty"`
	CustomerMobile      string     `json:"customer_mobile,omitempty"`
	Amount              float64    `json:"amount"`
	Status              string     `json:"status"`
	PaymentMode         string     `json:"payment_mode,omitempty"`
	PaymentType         string     `json:"payment_type,omitempty"`
	UTR                 string     `json:"utr,omitempty"`
	PayerName           string     `json:"payer_name,omitempty"`
	PayeeUPI            string     `json:"payee_upi,omitempty"`
	SuccessDate         *time.Time `json:"success_date,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toTransactionView(t *transaction.Transaction) transactionView {
	return transactionView{
		ID:                  t.ID,
		RID:                 t.RID,
		MID:                 t.MID,
		SaralPeID:           t.SaralPeID,
		MerchantReferenceID: t.MerchantReferenceID,
		PaygicReferenceID:   t.PaygicReferenceID,
		CustomerName:        t.CustomerName,
		CustomerEmail:       t.CustomerEmail,
		CustomerMobile:      t.CustomerMobile,
		Amount:              t.Amount,
		Status:              string(t.Status),
		PaymentMode:         t.PaymentMode,
		PaymentType:         t.PaymentType,
		UTR:                 t.UTR,
		PayerName:           t.PayerName,
		PayeeUPI:            t.PayeeUPI,
		SuccessDate:         t.SuccessDate,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func toTransactionViews(rows []*transaction.Transaction) []transactionView {
	out := make([]transactionView, 0, len(rows))
	for _, t := range rows {
		out = append(out, toTransactionView(t))
	}
	return out
}
