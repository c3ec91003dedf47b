package finance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultFetchConcurrency = 4

// Stats summarizes one ticker.
type Stats struct {
	Ticker        string  `json:"ticker"`
	RecordsCount  int     `json:"records_count"`
	DateRange     string  `json:"date_range"`
	AvgClosePrice float64 `json:"avg_close_price"`
	PriceChange   float64 `json:"price_change"`
	HighestPrice  float64 `json:"highest_price"`
	LowestPrice   float64 `json:"lowest_price"`
}

// Request is one finance report job.
type Request struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Tickers  string `json:"tickers"`
	Dir      string `json:"dir"`
	WriteCSV bool   `json:"write_csv"`
}

// Report is the outcome of a finance job.
type Report struct {
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Tickers []string `json:"tickers"`
	Failed  []string `json:"failed_tickers,omitempty"`
	CSVPath string   `json:"csv_path,omitempty"`
	Summary []Stats  `json:"summary"`
	// LabelIntervalMonths is the spacing of date labels for a price chart.
	LabelIntervalMonths int `json:"label_interval_months"`
}

// Analyzer fetches and summarizes market data.
type Analyzer struct {
	market      MarketData
	concurrency int
	now         func() time.Time
}

// NewAnalyzer creates an Analyzer over market.
func NewAnalyzer(market MarketData) *Analyzer {
	return &Analyzer{
		market:      market,
		concurrency: defaultFetchConcurrency,
		now:         time.Now,
	}
}

// Combine downloads every ticker. Tickers that fail are reported in failed
// and do not abort the others; bars keep the ticker order.
func (a *Analyzer) Combine(ctx context.Context, tickers []string, start, end time.Time) (bars []Bar, failed []string, err error) {
	results := make([][]Bar, len(tickers))
	errs := make([]error, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			got, err := a.market.Daily(gctx, ticker, start, end)
			results[i], errs[i] = got, err
			return nil
		})
	}
	_ = g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}

	for i, ticker := range tickers {
		if errs[i] != nil || len(results[i]) == 0 {
			slog.Warn("ticker fetch failed", "ticker", ticker, "error", errs[i])
			failed = append(failed, ticker)
			continue
		}
		bars = append(bars, results[i]...)
	}
	return bars, failed, nil
}

// Run validates req, fetches the data, optionally writes the CSV and
// summarizes every ticker.
func (a *Analyzer) Run(ctx context.Context, req Request) (Report, error) {
	start, end, err := ParseDateRange(req.Start, req.End)
	if err != nil {
		return Report{}, err
	}
	tickers, err := ParseTickers(req.Tickers)
	if err != nil {
		return Report{}, err
	}
	if req.WriteCSV {
		if err := ValidatePath(req.Dir); err != nil {
			return Report{}, err
		}
	}
	tickers = RemoveDuplicates(tickers)

	bars, failed, err := a.Combine(ctx, tickers, start, end)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		Start:   req.Start,
		End:     req.End,
		Tickers: tickers,
		Failed:  failed,
	}
	if len(bars) == 0 {
		return report, fmt.Errorf("%w for any ticker (failed: %v)", ErrNoData, failed)
	}

	if req.WriteCSV {
		path, err := SaveCSV(req.Dir, bars, a.now())
		if err != nil {
			return report, err
		}
		report.CSVPath = path
	}
	report.Summary = Summarize(bars)
	first, last := dateBounds(bars)
	report.LabelIntervalMonths = DateLabelInterval(first, last)
	return report, nil
}

// SaveCSV writes bars to dir/stock_data_<timestamp>.csv, creating dir.
func SaveCSV(dir string, bars []Bar, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(dir, "stock_data_"+now.Format("20060102_150405")+".csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create csv: %w", err)
	}
	if err := writeBars(f, bars); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close csv: %w", err)
	}
	return path, nil
}

func writeBars(out io.Writer, bars []Bar) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume", "Ticker"}); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	for _, b := range bars {
		row := []string{
			b.Date.Format(DateLayout),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
			b.Ticker,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Summarize computes Stats per ticker in order of first appearance. Bars of
// a ticker are expected oldest first.
func Summarize(bars []Bar) []Stats {
	var order []string
	byTicker := make(map[string][]Bar)
	for _, b := range bars {
		if _, ok := byTicker[b.Ticker]; !ok {
			order = append(order, b.Ticker)
		}
		byTicker[b.Ticker] = append(byTicker[b.Ticker], b)
	}

	out := make([]Stats, 0, len(order))
	for _, ticker := range order {
		tb := byTicker[ticker]
		var sum float64
		high, low := tb[0].High, tb[0].Low
		for _, b := range tb {
			sum += b.Close
			high = math.Max(high, b.High)
			low = math.Min(low, b.Low)
		}
		first, last := dateBounds(tb)
		out = append(out, Stats{
			Ticker:        ticker,
			RecordsCount:  len(tb),
			DateRange:     first.Format(DateLayout) + " to " + last.Format(DateLayout),
			AvgClosePrice: round2(sum / float64(len(tb))),
			PriceChange:   round2(tb[len(tb)-1].Close - tb[0].Close),
			HighestPrice:  round2(high),
			LowestPrice:   round2(low),
		})
	}
	return out
}

func dateBounds(bars []Bar) (time.Time, time.Time) {
	if len(bars) == 0 {
		return time.Time{}, time.Time{}
	}
	first, last := bars[0].Date, bars[0].Date
	for _, b := range bars[1:] {
		if b.Date.Before(first) {
			first = b.Date
		}
		if b.Date.After(last) {
			last = b.Date
		}
	}
	return first, last
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DateLabelInterval returns the months between chart date labels: monthly
// for spans up to about five years, otherwise a multiple of six.
func DateLabelInterval(start, end time.Time) int {
	days := math.Floor(end.Sub(start).Hours() / 24)
	tenth := days / 30.44 / 10
	if tenth < 6 {
		return 1
	}
	return int(math.Floor((tenth+5)/6)) * 6
}
