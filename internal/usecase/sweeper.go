package usecase

import (
	"context"
	"time"

	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
)

// SweepReport counts what one sweep did.
type SweepReport struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Expired   int `json:"expired"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`
}

// Sweeper periodically reconciles sessions no webhook has resolved.
type Sweeper struct {
	store        repository.Store
	reconciler   *Reconciler
	activeWindow time.Duration
	// pendingAfter is how long a pending session may sit before it is swept.
	pendingAfter time.Duration
	batch        int
	logger       *zap.Logger
	now          func() time.Time
}

func NewSweeper(store repository.Store, reconciler *Reconciler, activeWindow, absoluteTimeout time.Duration, batch int, logger *zap.Logger) *Sweeper {
	if batch <= 0 {
		batch = 50
	}
	return &Sweeper{
		store:        store,
		reconciler:   reconciler,
		activeWindow: activeWindow,
		pendingAfter: absoluteTimeout,
		batch:        batch,
		logger:       logger,
		now:          time.Now,
	}
}

// Sweep reconciles one batch of processing sessions older than the active
// window and pending sessions older than the absolute timeout, oldest first.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.now()

	processing, err := s.store.Sessions().ListStale(ctx, model.SessionStatusProcessing, now.Add(-s.activeWindow), s.batch)
	if err != nil {
		return report, err
	}
	pending, err := s.store.Sessions().ListStale(ctx, model.SessionStatusPending, now.Add(-s.pendingAfter), s.batch)
	if err != nil {
		return report, err
	}

	for _, session := range append(processing, pending...) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		result, err := s.reconciler.Reconcile(ctx, session.TransactionReference, TriggerScheduled)
		if err != nil {
			report.Errors++
			s.logger.Warn("Scheduled reconcile failed",
				zap.String("reference", session.TransactionReference),
				zap.Error(err))
			continue
		}

		switch result.Action {
		case ActionCompleted:
			report.Completed++
		case ActionFailed:
			report.Failed++
		case ActionExpired:
			report.Expired++
		default:
			report.Unchanged++
		}
	}

	if report.Scanned > 0 {
		s.logger.Info("Reconcile sweep finished",
			zap.Int("scanned", report.Scanned),
			zap.Int("completed", report.Completed),
			zap.Int("failed", report.Failed),
			zap.Int("expired", report.Expired),
			zap.Int("errors", report.Errors))
	}
	return report, nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Reconcile sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconcile sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Reconcile sweep failed", zap.Error(err))
			}
		}
	}
}
