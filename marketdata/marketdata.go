// Package marketdata polls funding-rate and price data from the supported
// exchanges and serves normalized snapshots from an in-memory cache. A failed
// poll keeps the previous snapshot and raises an error flag until the next
// success (stale-while-error).
package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the poll cadence.
const DefaultInterval = 5 * time.Minute

// TrackedAssets are the markets every source is asked for.
var TrackedAssets = []string{"BTC", "ETH"}

// Snapshot is the normalized per-venue, per-asset funding view. Each fetch
// replaces a source's snapshots wholesale.
type Snapshot struct {
	Venue           string    `json:"venue"`
	Asset           string    `json:"asset"`
	FundingRate     float64   `json:"fundingRate"`
	MarkPrice       float64   `json:"markPrice,omitempty"`
	NextFundingTime time.Time `json:"nextFundingTime"`
	IsPositive      bool      `json:"isPositive"`
	FormattedRate   string    `json:"formattedRate"`
	FetchedAt       time.Time `json:"fetchedAt"`
}

// FormatRate renders a funding rate fraction as a percentage string.
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.4f%%", rate*100)
}

// Source fetches snapshots for one exchange. A source may report more than
// one venue per asset (Lighter quotes several exchanges).
type Source interface {
	Name() string
	Fetch(ctx context.Context, assets []string) ([]Snapshot, error)
}

type sourceState struct {
	snapshots []Snapshot
	err       error
	updatedAt time.Time
}

// Poller drives all sources on a shared ticker and caches their latest
// snapshots.
type Poller struct {
	sources  []Source
	interval time.Duration
	assets   []string
	logger   zerolog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	state map[string]*sourceState

	wg sync.WaitGroup
}

// NewPoller constructs a poller over the given sources. A zero interval
// selects DefaultInterval.
func NewPoller(sources []Source, interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		sources:  sources,
		interval: interval,
		assets:   TrackedAssets,
		logger:   logger.With().Str("component", "marketdata").Logger(),
		now:      time.Now,
		state:    make(map[string]*sourceState, len(sources)),
	}
}

// Start fetches once immediately, then on every tick until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.Refresh(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Refresh(ctx)
			}
		}
	}()
}

// Wait blocks until the poll loop has exited.
func (p *Poller) Wait() { p.wg.Wait() }

// Refresh polls every source once. Usable for manual refresh between ticks.
func (p *Poller) Refresh(ctx context.Context) {
	for _, source := range p.sources {
		snapshots, err := source.Fetch(ctx, p.assets)
		p.mu.Lock()
		st, ok := p.state[source.Name()]
		if !ok {
			st = &sourceState{}
			p.state[source.Name()] = st
		}
		if err != nil {
			// Keep the stale snapshots readable alongside the error.
			st.err = err
			p.mu.Unlock()
			p.logger.Warn().Err(err).Str("source", source.Name()).Msg("poll failed")
			continue
		}
		st.snapshots = snapshots
		st.err = nil
		st.updatedAt = p.now()
		p.mu.Unlock()
	}
}

// Snapshots returns all cached snapshots plus per-source error messages.
func (p *Poller) Snapshots() ([]Snapshot, map[string]string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Snapshot
	errs := make(map[string]string)
	for name, st := range p.state {
		out = append(out, st.snapshots...)
		if st.err != nil {
			errs[name] = st.err.Error()
		}
	}
	return out, errs
}

// BestRate returns the minimum (most negative) funding rate for an asset
// among the venues present in the cache; negative funding pays longs, so the
// minimum is the cheapest venue to be long.
func (p *Poller) BestRate(asset string) (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var best Snapshot
	found := false
	for _, st := range p.state {
		for _, snap := range st.snapshots {
			if snap.Asset != asset {
				continue
			}
			if !found || snap.FundingRate < best.FundingRate {
				best = snap
				found = true
			}
		}
	}
	return best, found
}

// SourceError reports the stored error for a source, if any.
func (p *Poller) SourceError(name string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if st, ok := p.state[name]; ok {
		return st.err
	}
	return nil
}
