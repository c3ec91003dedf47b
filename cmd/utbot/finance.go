package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/easeaico/utbot/internal/app"
	"github.com/easeaico/utbot/internal/finance"
)

var financeFlags struct {
	start   string
	end     string
	tickers string
	dir     string
	noCSV   bool
}

var financeCmd = &cobra.Command{
	Use:   "finance",
	Short: "Fetch daily stock data and print a summary report",
	Long: `Fetch daily bars for up to a handful of tickers, write them to a combined
CSV file and print per-ticker statistics.

Example:
  utbot finance --start 2023-01-01 --end 2023-12-31 --tickers AAPL,GOOGL,MSFT`,
	RunE: runFinance,
}

func init() {
	f := financeCmd.Flags()
	f.StringVar(&financeFlags.start, "start", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&financeFlags.end, "end", "", "End date (YYYY-MM-DD)")
	f.StringVar(&financeFlags.tickers, "tickers", "", "Comma separated tickers, e.g. AAPL,GOOGL")
	f.StringVar(&financeFlags.dir, "dir", "", "Output directory (defaults to FINANCE_DATA_DIR)")
	f.BoolVar(&financeFlags.noCSV, "no-csv", false, "Only print the summary")
	_ = financeCmd.MarkFlagRequired("start")
	_ = financeCmd.MarkFlagRequired("end")
	_ = financeCmd.MarkFlagRequired("tickers")
}

func runFinance(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	dir := financeFlags.dir
	if dir == "" {
		dir = cfg.FinanceDataDir
	}

	report, err := app.NewAnalyzer(cfg).Run(cmd.Context(), finance.Request{
		Start:    financeFlags.start,
		End:      financeFlags.end,
		Tickers:  financeFlags.tickers,
		Dir:      dir,
		WriteCSV: !financeFlags.noCSV,
	})
	printReport(cmd.OutOrStdout(), report, err)
	return err
}

var errInvalidChoice = errors.New("invalid choice, enter 1, 2, quit or exit")

type wizardCmd int

const (
	cmdNone wizardCmd = iota
	cmdQuit
	cmdExit
)

// wizard prompts for one finance request, re-asking on invalid input.
type wizard struct {
	in         *bufio.Scanner
	out        io.Writer
	defaultDir string
}

// collect returns a validated request, or the quit/exit command the user
// typed instead. EOF counts as exit.
func (w *wizard) collect() (finance.Request, wizardCmd, error) {
	var req finance.Request

	fmt.Fprintln(w.out, "\nWhat would you like to do?")
	fmt.Fprintln(w.out, "1. Generate CSV data and summary")
	fmt.Fprintln(w.out, "2. Summary only")
	choice, cmd, err := w.ask("\nYour choice (1/2, or quit/exit): ", func(s string) error {
		if s != "1" && s != "2" {
			return errInvalidChoice
		}
		return nil
	})
	if cmd != cmdNone || err != nil {
		return req, cmd, err
	}
	req.WriteCSV = choice == "1"

	req.Start, cmd, err = w.ask("Enter start date (YYYY-MM-DD): ", func(s string) error {
		_, err := finance.ParseDate(s)
		return err
	})
	if cmd != cmdNone || err != nil {
		return req, cmd, err
	}
	req.End, cmd, err = w.ask("Enter end date (YYYY-MM-DD): ", func(s string) error {
		_, _, err := finance.ParseDateRange(req.Start, s)
		return err
	})
	if cmd != cmdNone || err != nil {
		return req, cmd, err
	}
	req.Tickers, cmd, err = w.ask("Enter stock tickers (comma-separated, e.g., AAPL,GOOGL,MSFT): ", func(s string) error {
		_, err := finance.ParseTickers(s)
		return err
	})
	if cmd != cmdNone || err != nil {
		return req, cmd, err
	}
	if !req.WriteCSV {
		return req, cmdNone, nil
	}

	prompt := "Enter saving path (directory): "
	if w.defaultDir != "" {
		prompt = fmt.Sprintf("Enter saving path (directory) [%s]: ", w.defaultDir)
	}
	req.Dir, cmd, err = w.ask(prompt, func(s string) error {
		if s == "" && w.defaultDir != "" {
			return nil
		}
		return finance.ValidatePath(s)
	})
	if req.Dir == "" {
		req.Dir = w.defaultDir
	}
	return req, cmd, err
}

// ask prompts until valid accepts the answer.
func (w *wizard) ask(prompt string, valid func(string) error) (string, wizardCmd, error) {
	for {
		fmt.Fprint(w.out, prompt)
		if !w.in.Scan() {
			return "", cmdExit, w.in.Err()
		}
		answer := strings.TrimSpace(w.in.Text())
		switch strings.ToLower(answer) {
		case "quit":
			return "", cmdQuit, nil
		case "exit":
			return "", cmdExit, nil
		}
		if err := valid(answer); err != nil {
			fmt.Fprintln(w.out, err.Error())
			continue
		}
		return answer, cmdNone, nil
	}
}

func printReport(out io.Writer, report finance.Report, err error) {
	if err != nil {
		if errors.Is(err, finance.ErrNoData) {
			fmt.Fprintln(out, "No valid data was fetched for any ticker.")
			fmt.Fprintf(out, "Failed tickers: %v\n", report.Failed)
			return
		}
		fmt.Fprintf(out, "Error during analysis: %v\n", err)
		fmt.Fprintln(out, "Please check your inputs and try again.")
		return
	}

	if report.CSVPath != "" {
		fmt.Fprintf(out, "CSV data saved to: %s\n", report.CSVPath)
	}
	if len(report.Failed) > 0 {
		fmt.Fprintf(out, "Failed tickers: %v\n", report.Failed)
	}
	fmt.Fprintln(out, "\nSummary Report:")
	for _, s := range report.Summary {
		fmt.Fprintf(out, "  %s:\n", s.Ticker)
		fmt.Fprintf(out, "    Records: %d\n", s.RecordsCount)
		fmt.Fprintf(out, "    Date Range: %s\n", s.DateRange)
		fmt.Fprintf(out, "    Avg Close Price: $%.2f\n", s.AvgClosePrice)
		fmt.Fprintf(out, "    Price Change: $%.2f\n", s.PriceChange)
		fmt.Fprintf(out, "    Highest Price: $%.2f\n", s.HighestPrice)
		fmt.Fprintf(out, "    Lowest Price: $%.2f\n", s.LowestPrice)
	}
}
