package reconcile

import (
	"context"
	"time"

	"saralpe/internal/config"
	"saralpe/internal/domain/transaction"
	"saralpe/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// StatusSyncer refreshes one transaction from the provider.
type StatusSyncer interface {
	SyncStatus(ctx context.Context, t *transaction.Transaction) (transaction.Status, error)
}

// Worker polls the provider for transactions still pending after the grace
// period, covering callbacks that never arrived.
type Worker struct {
	syncer    StatusSyncer
	repo      repositories.TransactionRepository
	pollEvery time.Duration
	grace     time.Duration
	batch     int
	now       func() time.Time
}

func NewWorker(syncer StatusSyncer, repo repositories.TransactionRepository, cfg config.ReconcileCfg) *Worker {
	w := &Worker{
		syncer:    syncer,
		repo:      repo,
		pollEvery: cfg.Every,
		grace:     cfg.Grace,
		batch:     cfg.Batch,
		now:       time.Now,
	}
	if w.batch <= 0 {
		w.batch = 50
	}
	return w
}

// Enabled reports whether a poll interval is configured.
func (w *Worker) Enabled() bool { return w.pollEvery > 0 }

func (w *Worker) Run(ctx context.Context) {
	if !w.Enabled() {
		log.Info().Msg("reconcile worker: disabled")
		return
	}

	log.Info().Dur("every", w.pollEvery).Dur("grace", w.grace).Msg("reconcile worker: started")
	t := time.NewTicker(w.pollEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconcile worker: stopping")
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

// tick syncs one batch and returns how many transactions reached a terminal status.
func (w *Worker) tick(ctx context.Context) int {
	pending, err := w.repo.FindPendingBefore(ctx, w.now().Add(-w.grace), w.batch)
	if err != nil {
		log.Error().Err(err).Msg("reconcile worker: fetch pending failed")
		return 0
	}

	settled := 0
	for _, t := range pending {
		if ctx.Err() != nil {
			return settled
		}
		status, err := w.syncer.SyncStatus(ctx, t)
		if err != nil {
			// left pending; the next tick retries it
			log.Error().Err(err).Int64("transaction_id", t.ID).Msg("reconcile worker: sync failed")
			continue
		}
		if status.IsTerminal() {
			settled++
		}
	}

	if len(pending) > 0 {
		log.Debug().Int("checked", len(pending)).Int("settled", settled).Msg("reconcile worker: batch done")
	}
	return settled
}
