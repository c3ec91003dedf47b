package finance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultMarketDataURL serves daily bars as CSV.
const DefaultMarketDataURL = "https://stooq.com/q/d/l/"

// ErrNoData is returned when a ticker has no bars in the requested range.
var ErrNoData = errors.New("no data available")

// Bar is one daily price record.
type Bar struct {
	Ticker string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// MarketData fetches daily bars for one ticker in [start, end).
type MarketData interface {
	Daily(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
}

// HTTPMarketData downloads bars from a Stooq compatible CSV endpoint.
type HTTPMarketData struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPMarketData creates a fetcher. An empty baseURL uses the default.
func NewHTTPMarketData(baseURL string, client *http.Client) *HTTPMarketData {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultMarketDataURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPMarketData{BaseURL: baseURL, Client: client}
}

func (m *HTTPMarketData) Daily(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	u, err := url.Parse(m.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid market data url: %w", err)
	}
	q := u.Query()
	q.Set("s", symbolFor(ticker))
	q.Set("d1", start.Format("20060102"))
	// end 为开区间
	q.Set("d2", end.AddDate(0, 0, -1).Format("20060102"))
	q.Set("i", "d")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", ticker, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", ticker, resp.StatusCode)
	}

	bars, err := parseBars(ticker, resp.Body)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, ticker)
	}
	return bars, nil
}

func symbolFor(ticker string) string {
	t := strings.ToLower(ticker)
	if strings.Contains(t, ".") {
		return t
	}
	return t + ".us"
}

// parseBars reads a Date,Open,High,Low,Close,Volume CSV.
func parseBars(ticker string, r io.Reader) ([]Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := cols[name]; !ok {
			// Stooq answers "No data" as a one-line body
			return nil, nil
		}
	}

	var bars []Bar
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		bar, err := barFromRecord(ticker, rec, cols)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func barFromRecord(ticker string, rec []string, cols map[string]int) (Bar, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	num := func(name string) (float64, error) {
		v := field(name)
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q for %s: %w", name, v, ticker, err)
		}
		return f, nil
	}

	date, err := time.Parse(DateLayout, field("date"))
	if err != nil {
		return Bar{}, fmt.Errorf("invalid date for %s: %w", ticker, err)
	}
	bar := Bar{Ticker: ticker, Date: date}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
		{"volume", &bar.Volume},
	} {
		if *f.dst, err = num(f.name); err != nil {
			return Bar{}, err
		}
	}
	return bar, nil
}
