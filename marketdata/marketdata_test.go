package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/perpdesk/perpdesk/exchanges/hyperliquid"
)

type scriptedSource struct {
	name    string
	batches [][]Snapshot
	errs    []error
	calls   int
}

func (s *scriptedSource) Name() string { return s.name }

func (s *scriptedSource) Fetch(context.Context, []string) ([]Snapshot, error) {
	defer func() { s.calls++ }()
	if s.calls < len(s.errs) && s.errs[s.calls] != nil {
		return nil, s.errs[s.calls]
	}
	if s.calls < len(s.batches) {
		return s.batches[s.calls], nil
	}
	return nil, nil
}

func snap(venue, asset string, rate float64) Snapshot {
	return Snapshot{Venue: venue, Asset: asset, FundingRate: rate, IsPositive: rate > 0, FormattedRate: FormatRate(rate)}
}

func TestPollerStaleWhileError(t *testing.T) {
	t.Parallel()
	source := &scriptedSource{
		name: "hyperliquid",
		batches: [][]Snapshot{
			{snap("hyperliquid", "BTC", 0.0000125)},
			nil,
			{snap("hyperliquid", "BTC", -0.0000055)},
		},
		errs: []error{nil, errors.New("connection refused"), nil},
	}
	poller := NewPoller([]Source{source}, time.Minute, zerolog.Nop())

	poller.Refresh(context.Background())
	snaps, errs := poller.Snapshots()
	require.Len(t, snaps, 1)
	require.Empty(t, errs)
	require.Equal(t, 0.0000125, snaps[0].FundingRate)

	// Failed poll keeps the previous snapshot and raises the error flag.
	poller.Refresh(context.Background())
	snaps, errs = poller.Snapshots()
	require.Len(t, snaps, 1)
	require.Equal(t, 0.0000125, snaps[0].FundingRate)
	require.Contains(t, errs["hyperliquid"], "connection refused")
	require.Error(t, poller.SourceError("hyperliquid"))

	// Next success clears the flag and replaces the snapshot wholesale.
	poller.Refresh(context.Background())
	snaps, errs = poller.Snapshots()
	require.Len(t, snaps, 1)
	require.Equal(t, -0.0000055, snaps[0].FundingRate)
	require.Empty(t, errs)
	require.NoError(t, poller.SourceError("hyperliquid"))
}

func TestBestRateIsMinimum(t *testing.T) {
	t.Parallel()
	lighter := &scriptedSource{
		name: "lighter",
		batches: [][]Snapshot{{
			snap("binance", "BTC", 0.0000100),
			snap("bybit", "BTC", -0.0000300),
			snap("binance", "ETH", 0.0000200),
		}},
	}
	hl := &scriptedSource{
		name:    "hyperliquid",
		batches: [][]Snapshot{{snap("hyperliquid", "BTC", -0.0000100)}},
	}
	poller := NewPoller([]Source{lighter, hl}, time.Minute, zerolog.Nop())
	poller.Refresh(context.Background())

	best, ok := poller.BestRate("BTC")
	require.True(t, ok)
	require.Equal(t, "bybit", best.Venue)
	require.Equal(t, -0.0000300, best.FundingRate)

	best, ok = poller.BestRate("ETH")
	require.True(t, ok)
	require.Equal(t, "binance", best.Venue)

	_, ok = poller.BestRate("SOL")
	require.False(t, ok)
}

func TestHyperliquidSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":40},{"name":"ETH","szDecimals":4,"maxLeverage":25},{"name":"SOL","szDecimals":2,"maxLeverage":20}]},
			[{"funding":"0.0000125","markPx":"50000"},{"funding":"-0.0000055","markPx":"3000"},{"funding":"0.0001","markPx":"150"}]
		]`))
	}))
	t.Cleanup(server.Close)

	client := hyperliquid.New(hyperliquid.Config{BaseURL: server.URL, HTTPClient: server.Client()})
	source := NewHyperliquidSource(client)
	source.now = func() time.Time { return time.Date(2026, 8, 30, 12, 30, 0, 0, time.UTC) }

	snaps, err := source.Fetch(context.Background(), []string{"BTC", "ETH"})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	require.Equal(t, "BTC", snaps[0].Asset)
	require.Equal(t, 0.0000125, snaps[0].FundingRate)
	require.True(t, snaps[0].IsPositive)
	require.Equal(t, float64(50000), snaps[0].MarkPrice)
	require.Equal(t, time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC), snaps[0].NextFundingTime)
	require.Equal(t, "ETH", snaps[1].Asset)
	require.False(t, snaps[1].IsPositive)
	require.Equal(t, "-0.0006%", snaps[1].FormattedRate)
}

func TestAsterSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, asterPremiumIndexPath, r.URL.Path)
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","markPrice":"50123.40","lastFundingRate":"0.00010000","nextFundingTime":1767225600000}`))
		case "ETHUSDT":
			_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","markPrice":"3001.12","lastFundingRate":"-0.00005000","nextFundingTime":1767225600000}`))
		default:
			t.Fatalf("unexpected symbol %s", r.URL.Query().Get("symbol"))
		}
	}))
	t.Cleanup(server.Close)

	source := NewAsterSource(server.URL, server.Client())
	snaps, err := source.Fetch(context.Background(), []string{"BTC", "ETH"})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	require.Equal(t, 0.0001, snaps[0].FundingRate)
	require.Equal(t, 50123.4, snaps[0].MarkPrice)
	require.Equal(t, time.UnixMilli(1767225600000).UTC(), snaps[0].NextFundingTime)
	require.Equal(t, -0.00005, snaps[1].FundingRate)
	require.False(t, snaps[1].IsPositive)
}

func TestLighterSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, lighterFundingRatesPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"funding_rates":[
			{"market_id":0,"exchange":"lighter","symbol":"BTC","rate":"0.0000120"},
			{"market_id":0,"exchange":"binance","symbol":"BTC","rate":"-0.0000310"},
			{"market_id":1,"exchange":"lighter","symbol":"ETH","rate":"0.0000050"},
			{"market_id":7,"exchange":"lighter","symbol":"SOL","rate":"0.0000400"}
		]}`))
	}))
	t.Cleanup(server.Close)

	source := NewLighterSource(server.URL, server.Client())
	snaps, err := source.Fetch(context.Background(), []string{"BTC", "ETH"})
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	require.Equal(t, "lighter", snaps[0].Venue)
	require.Equal(t, "binance", snaps[1].Venue)
	require.Equal(t, -0.0000310, snaps[1].FundingRate)
	require.Equal(t, "ETH", snaps[2].Asset)
}
