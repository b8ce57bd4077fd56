package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/trogers1052/market-returns/internal/analytics"
	"github.com/trogers1052/market-returns/internal/marketdata"
)

var (
	monthlyStart string
	monthlyEnd   string
)

var monthlyCmd = &cobra.Command{
	Use:   "monthly SYMBOL",
	Short: "Print a monthly return pivot",
	Long: `Fetch month-end closes of one ticker and print its returns by year and month,
with the compounded annual return in the last column.

Examples:
  returns monthly ^BVSP                       # last five years
  returns monthly GC=F --start 2015-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: runMonthly,
}

func init() {
	monthlyCmd.Flags().StringVar(&monthlyStart, "start", "", "Start date YYYY-MM-DD (default: five years before end)")
	monthlyCmd.Flags().StringVar(&monthlyEnd, "end", "", "End date YYYY-MM-DD (default: today)")

	rootCmd.AddCommand(monthlyCmd)
}

func runMonthly(cmd *cobra.Command, args []string) error {
	symbol := strings.TrimSpace(args[0])
	start, end, err := marketdata.DateRange(monthlyStart, monthlyEnd, 5, time.Now())
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	svc, err := newServices(cfg, log, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	fetch, err := svc.source.FetchCloses(cmd.Context(), marketdata.Request{
		Tickers:  []string{symbol},
		Start:    start,
		End:      end,
		Interval: marketdata.Monthly,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s monthly returns %s to %s\n\n", symbol, start.Format(dateLayout), end.Format(dateLayout))
	if err := renderPivot(out, analytics.ComputeMonthlyPivot(fetch.Table.Observations(symbol))); err != nil {
		return err
	}
	renderWarnings(out, fetch.Warnings)
	return nil
}

func renderPivot(w io.Writer, pivot analytics.MonthlyPivot) error {
	if pivot.Insufficient() {
		_, err := fmt.Fprintln(w, "insufficient data")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Year\t%s\tAnnual\t\n", strings.Join(analytics.MonthLabels[:], "\t"))
	for _, row := range pivot.Percentages().Years {
		fmt.Fprintf(tw, "%d\t", row.Year)
		for _, m := range row.Months {
			fmt.Fprintf(tw, "%s\t", formatCell(m))
		}
		fmt.Fprintf(tw, "%.2f\t\n", row.Annual)
	}
	return tw.Flush()
}
