package postgres

import (
	"context"
	"errors"
	"time"

	"saralpe/internal/domain/transaction"
	"saralpe/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, rid, mid, saral_pe_id, merchant_reference_id, paygic_reference_id,
	customer_name, customer_email, customer_mobile, amount, status, payment_mode, payment_type,
	utr, payer_name, payee_upi, success_date, created_at, updated_at`

// TransactionRepository implements repositories.TransactionRepository on Postgres.
type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO transactions (rid, mid, saral_pe_id, merchant_reference_id, paygic_reference_id,
			customer_name, customer_email, customer_mobile, amount, status, payment_mode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		t.RID, t.MID, t.SaralPeID, t.MerchantReferenceID, t.PaygicReferenceID,
		t.CustomerName, t.CustomerEmail, t.CustomerMobile, t.Amount, string(t.Status), t.PaymentMode,
		t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
}

func (r *TransactionRepository) FindByPaygicReference(ctx context.Context, paygicRef string) (*transaction.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+`
		FROM transactions
		WHERE paygic_reference_id = $1 AND paygic_reference_id <> ''`, paygicRef)
	return scanTransaction(row)
}

func (r *TransactionRepository) FindByMerchantReference(ctx context.Context, merchantRef string) (*transaction.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+`
		FROM transactions
		WHERE merchant_reference_id = $1
		ORDER BY id DESC
		LIMIT 1`, merchantRef)
	return scanTransaction(row)
}

// UpsertCallback mirrors updateOrCreate keyed on the paygic reference.
func (r *TransactionRepository) UpsertCallback(ctx context.Context, cb transaction.Callback) (*transaction.Transaction, error) {
	var t transaction.Transaction
	t.ApplyCallback(cb)

	row := r.db.QueryRow(ctx, `
		INSERT INTO transactions (paygic_reference_id, status, payment_type, payment_mode, utr,
			payer_name, payee_upi, success_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (paygic_reference_id) WHERE paygic_reference_id <> ''
		DO UPDATE SET
			status       = EXCLUDED.status,
			payment_type = EXCLUDED.payment_type,
			payment_mode = COALESCE(NULLIF(EXCLUDED.payment_mode, ''), transactions.payment_mode),
			utr          = EXCLUDED.utr,
			payer_name   = EXCLUDED.payer_name,
			payee_upi    = EXCLUDED.payee_upi,
			success_date = EXCLUDED.success_date,
			updated_at   = now()
		RETURNING `+transactionColumns,
		t.PaygicReferenceID, string(t.Status), t.PaymentType, t.PaymentMode, t.UTR,
		t.PayerName, t.PayeeUPI, t.SuccessDate)
	return scanTransaction(row)
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status transaction.Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET status = $1, updated_at = now()
		WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]*transaction.Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+`
		FROM transactions
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`, string(transaction.StatusPending), before, limit)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (r *TransactionRepository) List(ctx context.Context, limit, offset int) ([]*transaction.Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	defer rows.Close()

	out := []*transaction.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// scanTransaction works for both pgx.Row and pgx.Rows.
func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var status string

	err := row.Scan(
		&t.ID, &t.RID, &t.MID, &t.SaralPeID, &t.MerchantReferenceID, &t.PaygicReferenceID,
		&t.CustomerName, &t.CustomerEmail, &t.CustomerMobile, &t.Amount, &status, &t.PaymentMode, &t.PaymentType,
		&t.UTR, &t.PayerName, &t.PayeeUPI, &t.SuccessDate, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	t.Status = transaction.Status(status)
	return &t, nil
}
