package finance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDateRange(t *testing.T) {
	if _, _, err := ParseDateRange("2023-01-01", "2023-12-31"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := ParseDateRange("2023/01/01", "2023-12-31"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, _, err := ParseDateRange("2023-12-31", "2023-12-31"); !errors.Is(err, ErrDateOrder) {
		t.Fatalf("expected ErrDateOrder, got %v", err)
	}
}

func TestParseTickers(t *testing.T) {
	got, err := ParseTickers(" aapl, googl ,,msft")
	if err != nil {
		t.Fatalf("ParseTickers returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"AAPL", "GOOGL", "MSFT"}, got); diff != "" {
		t.Fatalf("tickers mismatch (-want +got):\n%s", diff)
	}

	for _, in := range []string{"", "  ", ",,", "AAPL,TOOLONG", "BRK.B", "A1"} {
		if _, err := ParseTickers(in); !errors.Is(err, ErrInvalidTickers) {
			t.Fatalf("input %q: expected ErrInvalidTickers, got %v", in, err)
		}
	}
}

func TestRemoveDuplicates(t *testing.T) {
	got := RemoveDuplicates([]string{"aapl", "MSFT", "AAPL ", "msft", "goog"})
	if diff := cmp.Diff([]string{"AAPL", "MSFT", "GOOG"}, got); diff != "" {
		t.Fatalf("dedup mismatch (-want +got):\n%s", diff)
	}
}

func TestValidatePath(t *testing.T) {
	for _, ok := range []string{"./finance_data", "C:/data", "/tmp/out"} {
		if err := ValidatePath(ok); err != nil {
			t.Fatalf("path %q: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []string{"", "  ", "out<1>", "a|b", "what?", "star*", `q"uote`, strings.Repeat("a", 256)} {
		if err := ValidatePath(bad); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("path %q: expected ErrInvalidPath, got %v", bad, err)
		}
	}
}

func TestDateLabelInterval(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"2023-01-01", "2023-12-31", 1},
		{"2019-01-01", "2023-12-31", 1},
		{"2018-01-01", "2023-06-24", 6},
		{"2014-01-01", "2023-12-31", 12},
	}
	for _, c := range cases {
		if got := DateLabelInterval(day(c.start), day(c.end)); got != c.want {
			t.Fatalf("%s..%s: expected %d, got %d", c.start, c.end, c.want, got)
		}
	}
}

func TestSummarize(t *testing.T) {
	bars := []Bar{
		{Ticker: "AAPL", Date: day("2023-01-03"), High: 12, Low: 9, Close: 10},
		{Ticker: "MSFT", Date: day("2023-01-03"), High: 101, Low: 99, Close: 100},
		{Ticker: "AAPL", Date: day("2023-01-04"), High: 13.456, Low: 10, Close: 12.5},
		{Ticker: "AAPL", Date: day("2023-01-05"), High: 12, Low: 8.123, Close: 11},
	}
	got := Summarize(bars)
	want := []Stats{
		{
			Ticker:        "AAPL",
			RecordsCount:  3,
			DateRange:     "2023-01-03 to 2023-01-05",
			AvgClosePrice: 11.17,
			PriceChange:   1,
			HighestPrice:  13.46,
			LowestPrice:   8.12,
		},
		{
			Ticker:        "MSFT",
			RecordsCount:  1,
			DateRange:     "2023-01-03 to 2023-01-03",
			AvgClosePrice: 100,
			PriceChange:   0,
			HighestPrice:  101,
			LowestPrice:   99,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	path, err := SaveCSV(dir, []Bar{{Ticker: "AAPL", Date: day("2023-01-03"), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100}}, now)
	if err != nil {
		t.Fatalf("SaveCSV returned error: %v", err)
	}
	if filepath.Base(path) != "stock_data_20240305_140709.csv" {
		t.Fatalf("unexpected file name %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read csv: %v", err)
	}
	want := "Date,Open,High,Low,Close,Volume,Ticker\n2023-01-03,1,2,0.5,1.5,100,AAPL\n"
	if string(data) != want {
		t.Fatalf("unexpected csv:\n%s", data)
	}
}

type fakeMarket struct {
	bars map[string][]Bar
}

func (f *fakeMarket) Daily(_ context.Context, ticker string, _, _ time.Time) ([]Bar, error) {
	bars, ok := f.bars[ticker]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoData, ticker)
	}
	return bars, nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteBarsReportsWriteErrors(t *testing.T) {
	err := writeBars(failingWriter{}, []Bar{{Ticker: "AAPL", Date: day("2023-01-03"), Close: 1}})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestSaveCSVFailsWhenDirIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := SaveCSV(file, nil, time.Now()); err == nil {
		t.Fatalf("expected error when output dir is a file")
	}
}

func TestAnalyzerRun(t *testing.T) {
	market := &fakeMarket{bars: map[string][]Bar{
		"AAPL": {{Ticker: "AAPL", Date: day("2023-01-03"), High: 2, Low: 1, Close: 1.5}},
		"MSFT": {{Ticker: "MSFT", Date: day("2023-01-03"), High: 3, Low: 2, Close: 2.5}},
	}}
	analyzer := NewAnalyzer(market)
	analyzer.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	dir := t.TempDir()
	report, err := analyzer.Run(context.Background(), Request{
		Start:    "2023-01-01",
		End:      "2023-12-31",
		Tickers:  "msft,zzzz,aapl,MSFT",
		Dir:      dir,
		WriteCSV: true,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"MSFT", "ZZZZ", "AAPL"}, report.Tickers); diff != "" {
		t.Fatalf("tickers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ZZZZ"}, report.Failed); diff != "" {
		t.Fatalf("failed mismatch (-want +got):\n%s", diff)
	}
	if len(report.Summary) != 2 || report.Summary[0].Ticker != "MSFT" {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if report.CSVPath == "" || filepath.Dir(report.CSVPath) != dir {
		t.Fatalf("unexpected csv path %q", report.CSVPath)
	}
}

func TestAnalyzerRunNoData(t *testing.T) {
	analyzer := NewAnalyzer(&fakeMarket{})
	report, err := analyzer.Run(context.Background(), Request{Start: "2023-01-01", End: "2023-02-01", Tickers: "AAPL"})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if diff := cmp.Diff([]string{"AAPL"}, report.Failed); diff != "" {
		t.Fatalf("failed mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzerRunValidates(t *testing.T) {
	analyzer := NewAnalyzer(&fakeMarket{})
	if _, err := analyzer.Run(context.Background(), Request{Start: "2023-01-01", End: "2023-02-01", Tickers: "AAPL", WriteCSV: true, Dir: "bad|dir"}); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestHTTPMarketData(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.URL.Query().Get("s") == "none.us" {
			fmt.Fprint(w, "No data")
			return
		}
		fmt.Fprint(w, "Date,Open,High,Low,Close,Volume\n2023-01-03,130.28,130.9,124.17,125.07,112117471\n2023-01-04,126.89,128.66,125.08,126.36,89113633\n")
	}))
	defer srv.Close()

	market := NewHTTPMarketData(srv.URL, srv.Client())
	bars, err := market.Daily(context.Background(), "AAPL", day("2023-01-01"), day("2023-01-10"))
	if err != nil {
		t.Fatalf("Daily returned error: %v", err)
	}
	if len(bars) != 2 || bars[0].Ticker != "AAPL" || bars[1].Close != 126.36 {
		t.Fatalf("unexpected bars: %+v", bars)
	}
	if !strings.Contains(gotQuery, "d1=20230101") || !strings.Contains(gotQuery, "d2=20230109") || !strings.Contains(gotQuery, "s=aapl.us") {
		t.Fatalf("unexpected query %q", gotQuery)
	}

	if _, err := market.Daily(context.Background(), "NONE", day("2023-01-01"), day("2023-01-10")); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
