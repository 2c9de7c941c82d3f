package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"reelcat/internal/catalog"
	"reelcat/internal/config"
	"reelcat/internal/lookup"
)

func newDupesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var limit int

	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "List duplicate content with reclaimable space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				svc := lookup.NewService(store, logger)

				runCtx, cancel := signalContext()
				defer cancel()

				report, err := svc.Duplicates(runCtx)
				if err != nil {
					return err
				}
				if limit > 0 && len(report.Groups) > limit {
					report.Groups = report.Groups[:limit]
				}

				if jsonOut {
					return writeJSON(cmd, report)
				}

				out := cmd.OutOrStdout()
				if len(report.Groups) == 0 {
					fmt.Fprintln(out, "No duplicates found")
					return nil
				}

				rows := make([][]string, 0, len(report.Groups))
				for _, group := range report.Groups {
					first := group.Locations[0].Path
					rows = append(rows, []string{
						group.Fingerprint,
						fmt.Sprintf("%d", len(group.Locations)),
						formatBytes(group.ReclaimableBytes()),
						first,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "FINGERPRINT"},
					{header: "COPIES", alignRight: true},
					{header: "RECLAIMABLE", alignRight: true},
					{header: "FIRST COPY"},
				}, rows))

				fmt.Fprintf(out, "Total reclaimable: %s across %s\n",
					formatBytes(report.TotalReclaimable),
					pluralize(len(report.Groups), "duplicate group"))
				if report.VolumeFree > 0 {
					fmt.Fprintf(out, "Volume free space: %s\n", formatBytes(int64(report.VolumeFree)))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the report as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many groups (0 for all)")
	return cmd
}
