package portfolio

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is the price refresh cadence when none is
// configured.
const DefaultPollInterval = 5 * time.Second

// Poller is the explicitly owned polling loop for a portfolio's quotes.
// It fetches once on start, then on a fixed interval, and can be kicked
// to refresh immediately after the identifier set changes. A response
// that raced with an identifier-set change is dropped by the
// portfolio's generation check.
type Poller struct {
	portfolio *Portfolio
	source    PriceSource
	interval  time.Duration

	kick   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// NewPoller creates a poller for p backed by source. A non-positive
// interval falls back to DefaultPollInterval.
func NewPoller(p *Portfolio, source PriceSource, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		portfolio: p,
		source:    source,
		interval:  interval,
		kick:      make(chan struct{}, 1),
	}
}

// Start launches the loop. It is a no-op if the poller already runs; the
// loop stops when ctx is cancelled or Stop is called.
func (pl *Poller) Start(ctx context.Context) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.started {
		return
	}
	pl.started = true

	ctx, pl.cancel = context.WithCancel(ctx)
	pl.wg.Add(1)
	go pl.run(ctx)
}

// Stop cancels the loop and waits for it to exit.
func (pl *Poller) Stop() {
	pl.mu.Lock()
	if !pl.started {
		pl.mu.Unlock()
		return
	}
	pl.started = false
	cancel := pl.cancel
	pl.mu.Unlock()

	cancel()
	pl.wg.Wait()
}

// Kick requests an immediate refresh, coalescing with any pending one.
// Call it after the holdings list changes.
func (pl *Poller) Kick() {
	select {
	case pl.kick <- struct{}{}:
	default:
	}
}

func (pl *Poller) run(ctx context.Context) {
	defer pl.wg.Done()

	ticker := time.NewTicker(pl.interval)
	defer ticker.Stop()

	pl.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-pl.kick:
			pl.poll(ctx)
			ticker.Reset(pl.interval)
		case <-ticker.C:
			pl.poll(ctx)
		}
	}
}

// poll fetches quotes for the identifier set captured at call time. The
// generation from the same snapshot travels with the request, so a
// response for a superseded set never overwrites newer quotes.
func (pl *Poller) poll(ctx context.Context) {
	gen, ids := pl.portfolio.Snapshot()
	if len(ids) == 0 {
		return
	}

	quotes, _, err := pl.source.Fetch(ctx, ids)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Price poll failed, keeping previous quotes", "error", err)
			pl.portfolio.RecordPollError(err)
		}
		return
	}

	if !pl.portfolio.ApplyQuotes(gen, quotes) {
		slog.Debug("Discarded stale price response", "generation", gen)
	}
}
