package provider

import "strings"

// Catalog maps operations to endpoint paths relative to the provider base URL.
type Catalog map[Operation]string

// DefaultCatalog is the reseller API surface: each operation lives at reseller/{operation}.
// The provider has no reseller payment page.
func DefaultCatalog() Catalog {
	return prefixed("reseller/",
		OpCreatePaymentRequest,
		OpCreateCollectRequest,
		OpCheckPaymentStatus,
		OpMerchantFetchIndividual,
		OpMerchantDueDiligence,
		OpMerchantCompleteOnboarding,
	)
}

// MerchantCatalog is the surface called with a merchant's own token. Its
// operations sit directly under the base URL.
func MerchantCatalog() Catalog {
	return prefixed("",
		OpCreatePaymentPage,
		OpCreatePaymentRequest,
		OpCreateCollectRequest,
		OpCheckPaymentStatus,
	)
}

func prefixed(prefix string, ops ...Operation) Catalog {
	c := make(Catalog, len(ops))
	for _, op := range ops {
		c[op] = prefix + string(op)
	}
	return c
}

// URL joins base and the operation path. ok is false for unknown operations.
func (c Catalog) URL(base string, op Operation) (string, bool) {
	path, ok := c[op]
	if !ok {
		return "", false
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"), true
}
