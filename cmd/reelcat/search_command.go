package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"reelcat/internal/catalog"
	"reelcat/internal/config"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var showPaths bool

	cmd := &cobra.Command{
		Use:   "search <tag>",
		Short: "Search the catalog by tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				runCtx, cancel := signalContext()
				defer cancel()

				results, err := store.SearchByTag(runCtx, args[0])
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, results)
				}

				out := cmd.OutOrStdout()
				if len(results) == 0 {
					fmt.Fprintf(out, "No content tagged %q\n", args[0])
					return nil
				}

				rows := make([][]string, 0, len(results))
				for _, result := range results {
					row := []string{
						result.Fingerprint,
						fmt.Sprintf("%.1f", result.Weight),
						formatTags(result.MatchedTags),
					}
					if showPaths {
						locations, err := store.LocationsFor(runCtx, result.Fingerprint)
						if err != nil {
							return err
						}
						first := "-"
						if len(locations) > 0 {
							first = locations[0].Path
						}
						row = append(row, first)
					}
					rows = append(rows, row)
				}

				columns := []column{
					{header: "FINGERPRINT"},
					{header: "WEIGHT", alignRight: true},
					{header: "MATCHED TAGS"},
				}
				if showPaths {
					columns = append(columns, column{header: "FIRST COPY"})
				}
				fmt.Fprintln(out, renderTable(columns, rows))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit results as JSON")
	cmd.Flags().BoolVar(&showPaths, "paths", false, "Include the first known copy of each result")
	return cmd
}
