package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mhollert/bret/internal/core"
)

const (
	baseURL   = "https://api.binance.com"
	pageLimit = 1000 // klines per request, Binance maximum
)

// Binance implements the feed Provider interface for the Binance exchange
type Binance struct {
	client  *http.Client
	baseURL string
}

// New creates a new Binance provider
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Binance provider with custom base URL (for testing)
func NewWithBaseURL(url string) *Binance {
	b := New()
	b.baseURL = url
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// Fetch pages backwards through /api/v3/klines until count bars are collected
// or the exchange history runs out. Binance interval names match the core
// timeframes, so no mapping is needed.
func (b *Binance) Fetch(ctx context.Context, instrument string, tf core.Timeframe, count int) (core.Series, error) {
	if count <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("bar count must be > 0, got %d", count))
	}

	var series core.Series
	end := time.Now().UnixMilli()

	for len(series) < count {
		limit := count - len(series)
		if limit > pageLimit {
			limit = pageLimit
		}

		page, err := b.fetchPage(ctx, instrument, tf, end, limit)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		series = append(page, series...)
		end = page[0].Time.UnixMilli() - 1

		if len(page) < limit {
			break // history exhausted
		}
	}

	if len(series) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("binance returned no klines for %s", instrument))
	}
	return series, nil
}

func (b *Binance) fetchPage(ctx context.Context, instrument string, tf core.Timeframe, endMilli int64, limit int) (core.Series, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&endTime=%d&limit=%d",
		b.baseURL, instrument, tf, endMilli, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("fetching klines: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding response: %w", err))
	}

	series := make(core.Series, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}

		openTime, _ := k[0].(float64)
		openStr, _ := k[1].(string)
		highStr, _ := k[2].(string)
		lowStr, _ := k[3].(string)
		closeStr, _ := k[4].(string)
		volumeStr, _ := k[5].(string)

		open, _ := strconv.ParseFloat(openStr, 64)
		high, _ := strconv.ParseFloat(highStr, 64)
		low, _ := strconv.ParseFloat(lowStr, 64)
		closePrice, _ := strconv.ParseFloat(closeStr, 64)
		volume, _ := strconv.ParseFloat(volumeStr, 64)

		series = append(series, core.Bar{
			Time:   time.UnixMilli(int64(openTime)),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: int64(volume),
		})
	}

	return series, nil
}
