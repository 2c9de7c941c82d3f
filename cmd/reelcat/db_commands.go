package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"reelcat/internal/catalog"
	"reelcat/internal/config"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Catalog database utilities",
	}

	dbCmd.AddCommand(newDBHealthCommand(ctx))
	dbCmd.AddCommand(newDBStatsCommand(ctx))
	dbCmd.AddCommand(newDBEventsCommand(ctx))
	dbCmd.AddCommand(newDBScansCommand(ctx))

	return dbCmd
}

func newDBHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check database integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				runCtx, cancel := signalContext()
				defer cancel()

				health, err := store.CheckHealth(runCtx)
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, health)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database:      %s\n", health.DBPath)
				fmt.Fprintf(out, "Exists:        %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable:      %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Integrity:     %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Contents:      %d\n", health.TotalContents)
				fmt.Fprintf(out, "Locations:     %d\n", health.TotalLocations)
				fmt.Fprintf(out, "Orphans:       %d\n", health.OrphanedContents)
				if health.Error != "" {
					fmt.Fprintf(out, "Error:         %s\n", health.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit health as JSON")
	return cmd
}

func newDBStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				runCtx, cancel := signalContext()
				defer cancel()

				stats, err := store.Stats(runCtx)
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, stats)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Contents:            %d\n", stats.Contents)
				fmt.Fprintf(out, "Locations:           %d\n", stats.Locations)
				fmt.Fprintf(out, "Duplicate contents:  %d\n", stats.DuplicateContents)
				fmt.Fprintf(out, "Pending annotations: %d\n", stats.PendingAnnotations)
				fmt.Fprintf(out, "Failed annotations:  %d\n", stats.FailedAnnotations)
				fmt.Fprintf(out, "Indexed tags:        %d\n", stats.IndexedTags)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit stats as JSON")
	return cmd
}

func newDBEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent location events (rebinds and removals)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				runCtx, cancel := signalContext()
				defer cancel()

				events, err := store.Events(runCtx, limit)
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, events)
				}

				out := cmd.OutOrStdout()
				if len(events) == 0 {
					fmt.Fprintln(out, "No location events recorded")
					return nil
				}

				rows := make([][]string, 0, len(events))
				for _, event := range events {
					oldFP := event.OldFingerprint
					if oldFP == "" {
						oldFP = "-"
					}
					newFP := event.NewFingerprint
					if newFP == "" {
						newFP = "-"
					}
					rows = append(rows, []string{
						formatTime(event.CreatedAt),
						event.Event,
						event.Path,
						oldFP,
						newFP,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "WHEN"},
					{header: "EVENT"},
					{header: "PATH"},
					{header: "OLD"},
					{header: "NEW"},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Number of events to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit events as JSON")
	return cmd
}

func newDBScansCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "scans",
		Short: "Show scan history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				runCtx, cancel := signalContext()
				defer cancel()

				scans, err := store.Scans(runCtx, limit)
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, scans)
				}

				out := cmd.OutOrStdout()
				if len(scans) == 0 {
					fmt.Fprintln(out, "No scans recorded")
					return nil
				}

				rows := make([][]string, 0, len(scans))
				for _, scan := range scans {
					rows = append(rows, []string{
						formatTime(scan.StartedAt),
						scan.Root,
						fmt.Sprintf("%d", scan.Processed),
						fmt.Sprintf("%d", scan.Skipped),
						fmt.Sprintf("%d", scan.Errors),
						formatTimePtr(scan.FinishedAt),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "STARTED"},
					{header: "ROOT"},
					{header: "PROCESSED", alignRight: true},
					{header: "SKIPPED", alignRight: true},
					{header: "ERRORS", alignRight: true},
					{header: "FINISHED"},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of scans to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit scans as JSON")
	return cmd
}
