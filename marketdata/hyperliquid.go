package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/perpdesk/perpdesk/exchanges/hyperliquid"
)

// HyperliquidSource reads funding and mark prices from the
// metaAndAssetCtxs info endpoint. Hyperliquid funding settles hourly.
type HyperliquidSource struct {
	client *hyperliquid.Client
	now    func() time.Time
}

// NewHyperliquidSource wraps an exchange client as a Source.
func NewHyperliquidSource(client *hyperliquid.Client) *HyperliquidSource {
	return &HyperliquidSource{client: client, now: time.Now}
}

// Name implements Source.
func (s *HyperliquidSource) Name() string { return "hyperliquid" }

// Fetch implements Source.
func (s *HyperliquidSource) Fetch(ctx context.Context, assets []string) ([]Snapshot, error) {
	contexts, err := s.client.MetaAndAssetContexts(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	nextFunding := now.Truncate(time.Hour).Add(time.Hour)

	wanted := make(map[string]bool, len(assets))
	for _, asset := range assets {
		wanted[strings.ToUpper(asset)] = true
	}

	var out []Snapshot
	for i := range contexts.Meta.Universe {
		market := &contexts.Meta.Universe[i]
		if market.IsDelisted || !wanted[strings.ToUpper(market.Name)] || i >= len(contexts.AssetContexts) {
			continue
		}
		assetCtx := &contexts.AssetContexts[i]
		rate := assetCtx.Funding.Float64()
		out = append(out, Snapshot{
			Venue:           s.Name(),
			Asset:           strings.ToUpper(market.Name),
			FundingRate:     rate,
			MarkPrice:       assetCtx.MarkPrice.Float64(),
			NextFundingTime: nextFunding,
			IsPositive:      rate > 0,
			FormattedRate:   FormatRate(rate),
			FetchedAt:       now,
		})
	}
	return out, nil
}
