package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
)

type Poller interface {
	PollProviderB(ctx context.Context, orderID, sessionID string) (*services.PollResult, error)
}

// PollDispatcher runs bounded provider B polls in the background, at most one
// per session at a time.
type PollDispatcher struct {
	poller Poller
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool
}

func NewPollDispatcher(poller Poller, logger *slog.Logger) *PollDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &PollDispatcher{
		poller:   poller,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
	}
}

func (d *PollDispatcher) Schedule(orderID, sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if _, running := d.inflight[sessionID]; running {
		return
	}
	d.inflight[sessionID] = struct{}{}

	d.wg.Add(1)
	go d.run(orderID, sessionID)
}

func (d *PollDispatcher) run(orderID, sessionID string) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.inflight, sessionID)
		d.mu.Unlock()
	}()

	result, err := d.poller.PollProviderB(d.ctx, orderID, sessionID)
	switch {
	case err == nil:
		d.logger.Info("provider B poll finished",
			"order_id", orderID,
			"session_id", sessionID,
			"outcome", result.Outcome,
			"attempts", result.Attempts,
		)
	case errors.Is(err, context.Canceled):
		d.logger.Debug("provider B poll cancelled", "order_id", orderID, "session_id", sessionID)
	case errors.Is(err, domain.ErrVerificationTimedOut):
		// The gateway already logged it; the sweeper picks the session up again.
	default:
		d.logger.Error("provider B poll failed",
			"order_id", orderID,
			"session_id", sessionID,
			"error", err,
		)
	}
}

// Wait blocks until every scheduled poll has returned.
func (d *PollDispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown stops accepting work, cancels running polls and waits for them.
func (d *PollDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
