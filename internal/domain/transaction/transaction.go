package transaction

import (
	"fmt"
	"strings"
	"time"
)

// Transaction is a payment or collect request issued through the reseller account.
type Transaction struct {
	ID                  int64
	RID                 string
	MID                 string
	SaralPeID           string
	MerchantReferenceID string
	PaygicReferenceID   string
	CustomerName        string
	CustomerEmail       string
	CustomerMobile      string
	Amount              float64
	Status              Status
	PaymentMode         string
	PaymentType         string
	UTR                 string
	PayerName           string
	PayeeUPI            string
	SuccessDate         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Status is the provider transaction status, upper-cased.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

const ModeUPI = "upi"

// ParseStatus normalises a provider status string. Unknown values pass through.
func ParseStatus(s string) Status {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "FAIL", "FAILURE":
		return StatusFailed
	case "":
		return StatusPending
	default:
		return Status(v)
	}
}

// StatusOther buckets provider statuses outside the known set for metric labels.
const StatusOther Status = "OTHER"

// Label returns s when it is a known status and StatusOther otherwise.
func (s Status) Label() string {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return string(s)
	default:
		return string(StatusOther)
	}
}

// IsTerminal reports whether no further status change is expected.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// NewPending builds the local record written after the provider accepts a request.
func NewPending(rid, mid, saralPeID, merchantRef, paygicRef string, amount float64, name, email, mobile string) (*Transaction, error) {
	if strings.TrimSpace(merchantRef) == "" {
		return nil, fmt.Errorf("merchant reference id is required")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %v", amount)
	}

	now := time.Now()
	return &Transaction{
		RID:                 rid,
		MID:                 mid,
		SaralPeID:           saralPeID,
		MerchantReferenceID: merchantRef,
		PaygicReferenceID:   paygicRef,
		CustomerName:        name,
		CustomerEmail:       email,
		CustomerMobile:      mobile,
		Amount:              amount,
		Status:              StatusPending,
		PaymentMode:         ModeUPI,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Callback is the `data` object the provider posts when a transaction settles.
type Callback struct {
	PaygicReferenceID string `json:"paygicReferenceId" validate:"required"`
	TxnStatus         string `json:"txnStatus" validate:"required"`
	Type              string `json:"type"`
	PaymentMode       string `json:"payment_mode"`
	UTR               string `json:"utr"`
	PayerName         string `json:"payer_name"`
	PayeeUPI          string `json:"payee_upi"`
	SuccessDate       string `json:"success_date"`
}

var successDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ApplyCallback overwrites the fields the provider reports.
func (t *Transaction) ApplyCallback(cb Callback) {
	t.PaygicReferenceID = cb.PaygicReferenceID
	t.Status = ParseStatus(cb.TxnStatus)
	t.PaymentType = cb.Type
	if cb.PaymentMode != "" {
		t.PaymentMode = cb.PaymentMode
	}
	t.UTR = cb.UTR
	t.PayerName = cb.PayerName
	t.PayeeUPI = cb.PayeeUPI
	t.SuccessDate = parseSuccessDate(cb.SuccessDate)
	t.UpdatedAt = time.Now()
}

func parseSuccessDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range successDateLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &ts
		}
	}
	return nil
}
