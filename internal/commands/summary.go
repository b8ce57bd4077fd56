package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/trogers1052/market-returns/internal/analytics"
	"github.com/trogers1052/market-returns/internal/catalog"
	"github.com/trogers1052/market-returns/internal/marketdata"
)

var (
	summaryTickers     []string
	summaryCategory    string
	summaryStart       string
	summaryEnd         string
	summaryReference   string
	summaryPolicy      string
	summaryPerformance bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print headline returns",
	Long: `Fetch closing prices and print the last price and trailing returns of each
ticker. Returns are in percent, rounded to two decimals.

Examples:
  returns summary                                  # catalog indices, last year
  returns summary --tickers AAPL,MSFT --reference 2024-01-02
  returns summary --category currency --policy keep
  returns summary --tickers PETR4.SA --performance # also print the rebased series`,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringSliceVarP(&summaryTickers, "tickers", "t", nil, "Tickers to analyse (default: catalog category)")
	summaryCmd.Flags().StringVarP(&summaryCategory, "category", "c", string(catalog.CategoryIndex), "Catalog category used when no tickers are given")
	summaryCmd.Flags().StringVar(&summaryStart, "start", "", "Start date YYYY-MM-DD (default: one year before end)")
	summaryCmd.Flags().StringVar(&summaryEnd, "end", "", "End date YYYY-MM-DD (default: today)")
	summaryCmd.Flags().StringVar(&summaryReference, "reference", "", "Reference date for the since-reference return (default: start)")
	summaryCmd.Flags().StringVar(&summaryPolicy, "policy", string(analytics.DropIncomplete), "Missing value policy (drop, keep)")
	summaryCmd.Flags().BoolVar(&summaryPerformance, "performance", false, "Also print the performance series")

	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	start, end, err := marketdata.DateRange(summaryStart, summaryEnd, 1, time.Now())
	if err != nil {
		return err
	}
	reference := start
	if summaryReference != "" {
		if reference, err = time.Parse(dateLayout, summaryReference); err != nil {
			return fmt.Errorf("invalid --reference %q, expected YYYY-MM-DD", summaryReference)
		}
	}
	policy, err := analytics.ParseMissingPolicy(summaryPolicy)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	tickers, err := resolveTickers(cfg.MarketData.CatalogPath, summaryTickers, summaryCategory)
	if err != nil {
		return err
	}

	svc, err := newServices(cfg, log, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	fetch, err := svc.source.FetchCloses(cmd.Context(), marketdata.Request{
		Tickers:  tickers,
		Start:    start,
		End:      end,
		Interval: marketdata.Daily,
		Policy:   policy,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Returns %s to %s\n\n", start.Format(dateLayout), end.Format(dateLayout))
	if err := renderSummary(out, analytics.ComputeSummary(fetch.Table, &reference)); err != nil {
		return err
	}
	if summaryPerformance {
		fmt.Fprintln(out)
		if err := renderPerformance(out, analytics.ComputePerformanceSeries(fetch.Table)); err != nil {
			return err
		}
	}
	renderWarnings(out, fetch.Warnings)
	return nil
}

// resolveTickers returns the explicit tickers, or the catalog category
func resolveTickers(catalogPath string, explicit []string, category string) ([]string, error) {
	if tickers := splitTickers(explicit); len(tickers) > 0 {
		return tickers, nil
	}

	cat := catalog.Category(category)
	if !cat.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	c, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return nil, err
	}
	return c.Symbols(cat), nil
}

func renderSummary(w io.Writer, summary analytics.ReturnSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Symbol\tLast\t1D %\t1W %\t1M %\tSince Ref %\tSince Start %\t")
	for _, row := range summary.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			row.Symbol,
			formatCell(row.LastPrice),
			formatCell(row.Return1Day),
			formatCell(row.Return1Week),
			formatCell(row.Return1Month),
			formatCell(row.ReturnSinceReference),
			formatCell(row.ReturnSinceTableStart),
		)
	}
	return tw.Flush()
}

func renderPerformance(w io.Writer, perf analytics.PerformanceSeries) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "Date\t")
	for _, s := range perf.Series {
		fmt.Fprintf(tw, "%s %%\t", s.Symbol)
	}
	fmt.Fprintln(tw)

	for i, d := range perf.Dates {
		fmt.Fprintf(tw, "%s\t", d.Format(dateLayout))
		for _, s := range perf.Series {
			var v *float64
			if i < len(s.Values) && s.Values[i] != nil {
				r := analytics.Round2(*s.Values[i])
				v = &r
			}
			fmt.Fprintf(tw, "%s\t", formatCell(v))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func renderWarnings(w io.Writer, warnings []marketdata.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s omitted: %s\n", warn.Symbol, warn.Reason)
	}
}

// formatCell prints an optional value, "-" when undefined
func formatCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
