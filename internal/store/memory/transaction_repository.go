package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"saralpe/internal/domain/transaction"
	"saralpe/internal/store/repositories"
)

// TransactionRepository is an in-memory repositories.TransactionRepository.
type TransactionRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*transaction.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{rows: make(map[int64]*transaction.Transaction)}
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	t.ID = r.nextID
	cp := *t
	r.rows[t.ID] = &cp
	return nil
}

func (r *TransactionRepository) FindByPaygicReference(ctx context.Context, paygicRef string) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(func(t *transaction.Transaction) bool { return t.PaygicReferenceID == paygicRef })
}

func (r *TransactionRepository) FindByMerchantReference(ctx context.Context, merchantRef string) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(func(t *transaction.Transaction) bool { return t.MerchantReferenceID == merchantRef })
}

func (r *TransactionRepository) UpsertCallback(ctx context.Context, cb transaction.Callback) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// an empty reference never matches, as with the partial unique index in postgres
	for _, t := range r.rows {
		if cb.PaygicReferenceID != "" && t.PaygicReferenceID == cb.PaygicReferenceID {
			t.ApplyCallback(cb)
			cp := *t
			return &cp, nil
		}
	}

	r.nextID++
	t := &transaction.Transaction{ID: r.nextID, CreatedAt: time.Now()}
	t.ApplyCallback(cb)
	r.rows[t.ID] = t
	cp := *t
	return &cp, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status transaction.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.rows[id]
	if !ok {
		return repositories.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

func (r *TransactionRepository) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*transaction.Transaction
	for _, t := range r.sortedLocked() {
		if t.Status == transaction.StatusPending && t.CreatedAt.Before(before) {
			out = append(out, t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// List returns newest first.
func (r *TransactionRepository) List(ctx context.Context, limit, offset int) ([]*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sortedLocked()
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if offset >= len(all) {
		return []*transaction.Transaction{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *TransactionRepository) findLocked(match func(*transaction.Transaction) bool) (*transaction.Transaction, error) {
	for _, t := range r.rows {
		if match(t) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// sortedLocked returns copies ordered by id ascending.
func (r *TransactionRepository) sortedLocked() []*transaction.Transaction {
	out := make([]*transaction.Transaction, 0, len(r.rows))
	for _, t := range r.rows {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
