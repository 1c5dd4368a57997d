package provider

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Operation names a remote provider endpoint.
type Operation string

const (
	OpCreatePaymentRequest       Operation = "createPaymentRequest"
	OpCreateCollectRequest       Operation = "createCollectRequest"
	OpCheckPaymentStatus         Operation = "checkPaymentStatus"
	OpCreatePaymentPage          Operation = "createPaymentPage"
	OpMerchantFetchIndividual    Operation = "merchantFetchIndividual"
	OpMerchantDueDiligence       Operation = "merchantDueDeligence" // provider spelling
	OpMerchantCompleteOnboarding Operation = "merchantCompleteOnboarding"
)

// Kind tags the concrete type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a single payload field: a string, number or bool.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
}

func String(s string) Value { return Value{kind: KindString, s: s} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func Int(n int64) Value { return Value{kind: KindNumber, n: float64(n)} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) IsZero() bool { return v.kind == KindNull }

// String renders the value for logs and form-style use.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		return json.Marshal(v.n)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// Payload maps provider field names to values.
type Payload map[string]Value

// Request is one outbound operation. It is not modified once handed to a client.
type Request struct {
	Operation Operation
	Payload   Payload
}

// Outcome classifies a Result.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeAuthFailure      Outcome = "auth_failure"
	OutcomeRequestFailure   Outcome = "request_failure"
	OutcomeTransportFailure Outcome = "transport_failure"
)

// Result is the classified response of a single operation.
// Body holds the decoded JSON response, or the raw text when it was not JSON.
type Result struct {
	Outcome     Outcome `json:"outcome"`
	Body        any     `json:"body,omitempty"`
	StatusCode  int     `json:"status_code,omitempty"`
	ErrorDetail string  `json:"error_detail,omitempty"`
}

func (r Result) OK() bool { return r.Outcome == OutcomeSuccess }

// Lookup walks nested JSON objects in Body and returns the scalar at path.
func (r Result) Lookup(path ...string) (string, bool) {
	if len(path) == 0 {
		return "", false
	}
	current := r.Body
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		if current, ok = obj[key]; !ok {
			return "", false
		}
	}

	switch v := current.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

func (r Result) String() string {
	if r.ErrorDetail != "" {
		return fmt.Sprintf("%s (%d): %s", r.Outcome, r.StatusCode, r.ErrorDetail)
	}
	return fmt.Sprintf("%s (%d)", r.Outcome, r.StatusCode)
}
