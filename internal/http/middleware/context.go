package middlewarex

import "context"

type ctxKey string

const (
	ctxMerchantID ctxKey = "merchant_id"
)

func WithMerchantID(ctx context.Context, mid string) context.Context {
	return context.WithValue(ctx, ctxMerchantID, mid)
}

func MerchantID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxMerchantID).(string)
	return v, ok && v != ""
}
