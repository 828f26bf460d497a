package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hdtickets/ticketsearch/internal/monitoring"
	"github.com/hdtickets/ticketsearch/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and their rate-limit state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("search"); err != nil {
			return err
		}

		e, err := initEnv(ctx, monitoring.NopRecorder{})
		if err != nil {
			return err
		}
		defer e.Close()

		registered := make(map[string]bool)
		for _, name := range e.Registry.AllNames() {
			registered[name] = true
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tSTATE\tLIMITS (s/h/d)\tADMITTED\tBACKOFF")
		for _, sc := range e.SrcConfig.Sources {
			state := "active"
			switch {
			case !sc.IsEnabled():
				state = "disabled"
			case !registered[sc.Name]:
				state = "unavailable"
			}

			admitted, backoff := "-", "-"
			if registered[sc.Name] {
				if e.Limiter.CanQuery(ctx, sc.Name, source.DefaultEndpoint) {
					admitted = "yes"
				} else {
					admitted = "no"
				}
				if wait := e.Limiter.WaitTime(ctx, sc.Name, source.DefaultEndpoint); wait > 0 {
					backoff = wait.String()
				}
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				sc.Name, state, formatThresholds(sc), admitted, backoff)
		}
		return w.Flush()
	},
}

func formatThresholds(sc source.AdapterConfig) string {
	if sc.RateLimits.Unbounded() {
		return "unbounded"
	}
	return fmt.Sprintf("%s/%s/%s",
		formatThreshold(sc.RateLimits.PerSecond),
		formatThreshold(sc.RateLimits.PerHour),
		formatThreshold(sc.RateLimits.PerDay),
	)
}

func formatThreshold(n int) string {
	if n <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
