package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/perpdesk/perpdesk/types"
)

// AsterMainnetAPIURL is the public Aster futures REST endpoint. The API is
// binance-compatible.
const AsterMainnetAPIURL = "https://fapi.asterdex.com"

const asterPremiumIndexPath = "/fapi/v1/premiumIndex"

// AsterSource polls the premium-index endpoint, one request per asset.
type AsterSource struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewAsterSource builds a source. An empty baseURL selects the public
// endpoint.
func NewAsterSource(baseURL string, httpClient *http.Client) *AsterSource {
	if baseURL == "" {
		baseURL = AsterMainnetAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &AsterSource{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Name implements Source.
func (s *AsterSource) Name() string { return "aster" }

type asterPremiumIndex struct {
	Symbol          string       `json:"symbol"`
	MarkPrice       types.Number `json:"markPrice"`
	LastFundingRate types.Number `json:"lastFundingRate"`
	NextFundingTime types.Time   `json:"nextFundingTime"`
}

// Fetch implements Source.
func (s *AsterSource) Fetch(ctx context.Context, assets []string) ([]Snapshot, error) {
	now := s.now()
	out := make([]Snapshot, 0, len(assets))
	for _, asset := range assets {
		asset = strings.ToUpper(asset)
		index, err := s.premiumIndex(ctx, asset+"USDT")
		if err != nil {
			return nil, fmt.Errorf("aster %s: %w", asset, err)
		}
		rate := index.LastFundingRate.Float64()
		out = append(out, Snapshot{
			Venue:           s.Name(),
			Asset:           asset,
			FundingRate:     rate,
			MarkPrice:       index.MarkPrice.Float64(),
			NextFundingTime: time.Time(index.NextFundingTime),
			IsPositive:      rate > 0,
			FormattedRate:   FormatRate(rate),
			FetchedAt:       now,
		})
	}
	return out, nil
}

func (s *AsterSource) premiumIndex(ctx context.Context, symbol string) (*asterPremiumIndex, error) {
	url := s.baseURL + asterPremiumIndexPath + "?symbol=" + symbol
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	index := new(asterPremiumIndex)
	if err := json.Unmarshal(body, index); err != nil {
		return nil, fmt.Errorf("decode premium index: %w", err)
	}
	return index, nil
}
