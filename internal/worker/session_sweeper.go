package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
)

type SessionExpirer interface {
	ExpireSession(ctx context.Context, orderID, sessionID string) (*services.Outcome, error)
}

type SweepReport struct {
	Expired  int
	Repolled int
	Failed   int
}

// SessionSweeper finds payment sessions nobody is watching any more. Old
// sessions are expired. Provider B sessions past the grace period get a fresh
// poll, which covers polls lost to a restart, unless their order is finished.
type SessionSweeper struct {
	repo       application.OrderRepository
	expirer    SessionExpirer
	scheduler  application.PollScheduler
	interval   time.Duration
	batchSize  int
	pollGrace  time.Duration
	sessionTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

func NewSessionSweeper(
	repo application.OrderRepository,
	expirer SessionExpirer,
	scheduler application.PollScheduler,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *SessionSweeper {
	return &SessionSweeper{
		repo:       repo,
		expirer:    expirer,
		scheduler:  scheduler,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		pollGrace:  cfg.PollGrace,
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
		logger:     logger,
	}
}

func (w *SessionSweeper) WithClock(now func() time.Time) *SessionSweeper {
	w.now = now
	return w
}

func (w *SessionSweeper) Start(ctx context.Context) {
	w.logger.Info("session sweeper started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session sweeper stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SessionSweeper) sweep(ctx context.Context) {
	report, err := w.RunOnce(ctx)
	if err != nil {
		w.logger.Error("session sweep failed", "error", err)
		return
	}
	if report.Expired > 0 || report.Repolled > 0 || report.Failed > 0 {
		w.logger.Info("processed session sweep",
			"expired", report.Expired,
			"repolled", report.Repolled,
			"failed", report.Failed,
		)
	}
}

// RunOnce performs a single sweep.
func (w *SessionSweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := w.now()

	stale, err := w.repo.FindOpenSessions(ctx, application.SessionFilter{
		CreatedBefore: now.Add(-w.sessionTTL),
		Limit:         w.batchSize,
	})
	if err != nil {
		return report, err
	}

	for _, ref := range stale {
		w.expire(ctx, ref, &report)
	}

	waiting, err := w.repo.FindOpenSessions(ctx, application.SessionFilter{
		Provider:      domain.ProviderB,
		CreatedBefore: now.Add(-w.pollGrace),
		Limit:         w.batchSize,
	})
	if err != nil {
		return report, err
	}

	for _, ref := range waiting {
		switch {
		case ref.OrderStatus.IsTerminal():
			// Nothing can pay for a finished order any more.
			w.expire(ctx, ref, &report)
		case ref.State == domain.SessionAwaitingConfirmation && ref.ProviderReference != "":
			w.scheduler.Schedule(ref.OrderID, ref.SessionID)
			report.Repolled++
		}
	}

	return report, nil
}

func (w *SessionSweeper) expire(ctx context.Context, ref application.SessionRef, report *SweepReport) {
	outcome, err := w.expirer.ExpireSession(ctx, ref.OrderID, ref.SessionID)
	if err != nil {
		w.logger.Error("failed to expire session",
			"order_id", ref.OrderID,
			"session_id", ref.SessionID,
			"error", err,
		)
		report.Failed++
		return
	}
	if outcome.Order != nil {
		report.Expired++
	}
}
