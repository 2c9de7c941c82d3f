package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"reelcat/internal/catalog"
	"reelcat/internal/config"
	"reelcat/internal/indexer"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Remove catalog entries for paths (files on disk are untouched)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				ix := indexer.New(cfg, store, nil, logger)

				runCtx, cancel := signalContext()
				defer cancel()

				out := cmd.OutOrStdout()
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}
					fp, remaining, err := ix.Remove(runCtx, path)
					if err != nil {
						return err
					}
					switch remaining {
					case 0:
						fmt.Fprintf(out, "Removed %s; content %s had no other copies and was purged\n", path, fp)
					case 1:
						fmt.Fprintf(out, "Removed %s; content %s keeps 1 copy\n", path, fp)
					default:
						fmt.Fprintf(out, "Removed %s; content %s keeps %d copies\n", path, fp, remaining)
					}
				}
				return nil
			})
		},
	}
	return cmd
}

func newPurgeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete contents that have lost every location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				runCtx, cancel := signalContext()
				defer cancel()

				purged, err := store.PurgeOrphans(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %s\n", pluralize(int(purged), "orphaned content"))
				return nil
			})
		},
	}
	return cmd
}
