package service

import (
	"context"
	"sync"
	"time"

	"github.com/amslabs/assethub.go/lib/ledger"
	"github.com/rs/zerolog"
)

// PendingLister is the slice of the ledger client the projector needs.
type PendingLister interface {
	ListPendingTransfers(ctx context.Context) ([]ledger.Transfer, error)
}

// TransferProjector maintains the authoritative in-memory set of transfers
// involving the current user. Every refresh replaces the set wholesale;
// there is no incremental patching, so interleaved refreshes cannot produce
// a merged-stale state. Push events and the poll ticker are both only
// triggers for the same full fetch.
type TransferProjector struct {
	ledger   PendingLister
	userID   string
	interval time.Duration
	logger   zerolog.Logger
	clock    func() time.Time

	mu        sync.RWMutex
	transfers []ledger.Transfer
	refreshed time.Time

	// kick coalesces invalidation hints: capacity 1, non-blocking sends.
	kick chan struct{}
}

func NewTransferProjector(lister PendingLister, userID string, interval time.Duration, logger zerolog.Logger) *TransferProjector {
	return &TransferProjector{
		ledger:   lister,
		userID:   userID,
		interval: interval,
		logger:   logger,
		clock:    time.Now,
		kick:     make(chan struct{}, 1),
	}
}

// Refresh replaces the projected set with the ledger's current answer.
// Concurrent calls are safe: each one is a full replacement, the last
// response to land wins.
func (p *TransferProjector) Refresh(ctx context.Context) error {
	transfers, err := p.ledger.ListPendingTransfers(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("pending transfer refresh failed")
		return err
	}
	p.mu.Lock()
	p.transfers = transfers
	p.refreshed = p.clock()
	p.mu.Unlock()
	return nil
}

// Invalidate requests a refresh from the Run loop. It never blocks; a burst
// of hints collapses into a single pending kick.
func (p *TransferProjector) Invalidate() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Transfers returns display-ready views derived at the current clock
// reading.
func (p *TransferProjector) Transfers() []TransferView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	now := p.clock()
	views := make([]TransferView, 0, len(p.transfers))
	for _, t := range p.transfers {
		views = append(views, NewTransferView(t, p.userID, now))
	}
	return views
}

// Count is the unread-badge number: transfers still waiting on this user.
func (p *TransferProjector) Count() int {
	count := 0
	for _, view := range p.Transfers() {
		if view.Actionable {
			count++
		}
	}
	return count
}

// Run refreshes once immediately, then on every invalidation kick and on a
// timed safety-net interval, until ctx is cancelled.
func (p *TransferProjector) Run(ctx context.Context) {
	if err := p.Refresh(ctx); err == nil {
		p.logger.Info().Int("pending", p.Count()).Msg("transfer projector primed")
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		case <-p.kick:
			p.Refresh(ctx)
		}
	}
}
