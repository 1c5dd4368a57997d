package payment

import "fmt"

// PaymentInput carries the customer fields for a payment or collect request.
// MID is optional; the configured default merchant is used when empty.
type PaymentInput struct {
	MID            string  `json:"mid"`
	Amount         float64 `json:"amount" validate:"required,gte=1,lte=100000"`
	CustomerName   string  `json:"customer_name" validate:"required"`
	CustomerEmail  string  `json:"customer_email" validate:"required,email"`
	CustomerMobile string  `json:"customer_mobile" validate:"required"`
}

// CollectInput adds the payer VPA a collect request is pushed to.
type CollectInput struct {
	PaymentInput
	VPA    string `json:"vpa" validate:"required"`
	Remark string `json:"remark"`
}

// StatusInput identifies a transaction by the reference we generated.
type StatusInput struct {
	MID                 string `json:"mid"`
	MerchantReferenceID string `json:"merchantReferenceId" validate:"required"`
}

// MerchantInput addresses a sub-merchant under the reseller account.
type MerchantInput struct {
	MID string `json:"mid"`
}

// DueDiligenceInput is the KYC bundle submitted during merchant onboarding.
type DueDiligenceInput struct {
	MID    string `json:"mid"`
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	PAN    string `json:"pan" validate:"required"`
	Type   string `json:"type" validate:"required,oneof=AADHAAR DRIVING_LICENSE VOTER_ID"`
	POA    string `json:"poa" validate:"required"`
	DOB    string `json:"dob" validate:"required,datetime=2006-01-02"`
	Gender string `json:"gender" validate:"required,oneof=M F"`
}

const defaultCollectRemark = "Collection Payment"

// ServiceError represents a payment service error
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment service %s: %s (%v)", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("payment service %s: %s", e.Op, e.Message)
}

func (e ServiceError) Unwrap() error {
	return e.Err
}
