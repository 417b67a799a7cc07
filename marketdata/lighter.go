package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
)

// LighterMainnetAPIURL is the public Lighter REST endpoint.
const LighterMainnetAPIURL = "https://mainnet.zklighter.elliot.ai"

const lighterFundingRatesPath = "/api/v1/funding-rates"

// LighterSource polls the funding-rates endpoint. Lighter quotes rates for
// several exchanges per market, so one fetch yields multiple venues per
// asset; best-rate selection happens in the poller.
type LighterSource struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewLighterSource builds a source. An empty baseURL selects the public
// endpoint.
func NewLighterSource(baseURL string, httpClient *http.Client) *LighterSource {
	if baseURL == "" {
		baseURL = LighterMainnetAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &LighterSource{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Name implements Source.
func (s *LighterSource) Name() string { return "lighter" }

// Fetch implements Source. The payload is a single large array scanned with
// jsonparser rather than decoded wholesale.
func (s *LighterSource) Fetch(ctx context.Context, assets []string) ([]Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+lighterFundingRatesPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lighter: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	wanted := make(map[string]bool, len(assets))
	for _, asset := range assets {
		wanted[strings.ToUpper(asset)] = true
	}

	now := s.now()
	var out []Snapshot
	var parseErr error
	_, err = jsonparser.ArrayEach(body, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		symbol, err := jsonparser.GetString(value, "symbol")
		if err != nil || !wanted[strings.ToUpper(symbol)] {
			return
		}
		exchange, err := jsonparser.GetString(value, "exchange")
		if err != nil {
			return
		}
		rateRaw, err := jsonparser.GetString(value, "rate")
		if err != nil {
			return
		}
		rate, err := strconv.ParseFloat(rateRaw, 64)
		if err != nil {
			parseErr = fmt.Errorf("lighter: parse rate %q for %s: %w", rateRaw, symbol, err)
			return
		}
		out = append(out, Snapshot{
			Venue:         exchange,
			Asset:         strings.ToUpper(symbol),
			FundingRate:   rate,
			IsPositive:    rate > 0,
			FormattedRate: FormatRate(rate),
			FetchedAt:     now,
		})
	}, "funding_rates")
	if err != nil {
		return nil, fmt.Errorf("lighter: scan funding rates: %w", err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}
