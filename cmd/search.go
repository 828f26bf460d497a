package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hdtickets/ticketsearch/internal/aggregator"
	"github.com/hdtickets/ticketsearch/internal/model"
	"github.com/hdtickets/ticketsearch/internal/monitoring"
)

var (
	searchKeyword  string
	searchDateFrom string
	searchDateTo   string
	searchMaxPrice string
	searchLocation string
	searchSources  []string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search all configured sources for an event",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("search"); err != nil {
			return err
		}

		e, err := initEnv(ctx, monitoring.NewLogRecorder())
		if err != nil {
			return err
		}
		defer e.Close()

		crit := model.Criteria{model.CriteriaKeyword: searchKeyword}
		if searchDateFrom != "" {
			crit[model.CriteriaDateFrom] = searchDateFrom
		}
		if searchDateTo != "" {
			crit[model.CriteriaDateTo] = searchDateTo
		}
		if searchMaxPrice != "" {
			crit[model.CriteriaPriceMax] = searchMaxPrice
		}
		if searchLocation != "" {
			crit[model.CriteriaLocation] = searchLocation
		}
		crit = e.SrcConfig.Canonicalize(crit)

		res, err := e.Orch.Aggregate(ctx, crit, aggregator.SearchOpts{Sources: searchSources})
		if err != nil {
			return eris.Wrap(err, "search")
		}

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		printResultTable(os.Stdout, res)
		return nil
	},
}

func printResultTable(out io.Writer, res *aggregator.Result) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDATE\tVENUE\tPRICE\tCONF\tQUALITY\tSOURCES")
	for _, ev := range res.Events {
		date := "-"
		if !ev.Date.IsZero() {
			date = ev.Date.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			ev.Name,
			date,
			ev.Venue,
			formatPrice(ev),
			ev.Confidence,
			ev.DataQuality,
			strings.Join(mergedSources(ev), ","),
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d events (%d raw) from %d sources in %s",
		len(res.Events), res.RawCount, len(res.Queried), res.Elapsed.Round(time.Millisecond))
	if len(res.Skipped) > 0 {
		fmt.Fprintf(out, ", skipped: %s", strings.Join(res.Skipped, ","))
	}
	if len(res.Failed) > 0 {
		fmt.Fprintf(out, ", failed: %s", strings.Join(res.Failed, ","))
	}
	fmt.Fprintln(out)
}

func formatPrice(ev model.MergedEvent) string {
	switch {
	case ev.PriceMin != nil && ev.PriceMax != nil:
		return fmt.Sprintf("%.0f-%.0f %s", *ev.PriceMin, *ev.PriceMax, ev.Currency)
	case ev.PriceMin != nil:
		return fmt.Sprintf("from %.0f %s", *ev.PriceMin, ev.Currency)
	default:
		return "-"
	}
}

func mergedSources(ev model.MergedEvent) []string {
	if len(ev.Sources) > 0 {
		return ev.Sources
	}
	return []string{ev.Source}
}

func init() {
	searchCmd.Flags().StringVar(&searchKeyword, "keyword", "", "event keyword (required)")
	searchCmd.Flags().StringVar(&searchDateFrom, "date-from", "", "earliest event date (yyyy-mm-dd)")
	searchCmd.Flags().StringVar(&searchDateTo, "date-to", "", "latest event date (yyyy-mm-dd)")
	searchCmd.Flags().StringVar(&searchMaxPrice, "max-price", "", "price ceiling")
	searchCmd.Flags().StringVar(&searchLocation, "location", "", "city or region filter")
	searchCmd.Flags().StringSliceVar(&searchSources, "sources", nil, "restrict to specific sources")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the full result as JSON")
	_ = searchCmd.MarkFlagRequired("keyword")
	rootCmd.AddCommand(searchCmd)
}
