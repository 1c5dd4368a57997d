package repositories

import (
	"context"
	"errors"
	"time"

	"saralpe/internal/domain/token"
	"saralpe/internal/domain/transaction"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// TokenStore is a durable single slot holding the current reseller token.
// Get returns (nil, nil) when no token was ever stored. Put supersedes the
// current token atomically: concurrent readers see the old or the new token, never a mix.
type TokenStore interface {
	Get(ctx context.Context) (*token.AuthToken, error)
	Put(ctx context.Context, t *token.AuthToken) error
}

// TransactionRepository defines the contract for transaction data access
type TransactionRepository interface {
	Create(ctx context.Context, t *transaction.Transaction) error
	FindByPaygicReference(ctx context.Context, paygicRef string) (*transaction.Transaction, error)
	FindByMerchantReference(ctx context.Context, merchantRef string) (*transaction.Transaction, error)
	// UpsertCallback applies a provider callback to the transaction with the
	// same paygic reference, creating the row when none exists.
	UpsertCallback(ctx context.Context, cb transaction.Callback) (*transaction.Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status transaction.Status) error
	FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]*transaction.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]*transaction.Transaction, error)
}
