package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"reelcat/internal/catalog"
	"reelcat/internal/config"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "index <file>...",
		Short: "Index individual video files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				ix, err := ctx.newIndexer(cfg, store, logger)
				if err != nil {
					return err
				}

				runCtx, cancel := signalContext()
				defer cancel()

				out := cmd.OutOrStdout()
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}
					outcome, err := ix.Index(runCtx, path)
					if err != nil {
						return err
					}
					if jsonOut {
						if err := writeJSON(cmd, outcome); err != nil {
							return err
						}
						continue
					}
					switch {
					case outcome.ContentNew:
						fmt.Fprintf(out, "%s: new content %s (analysis %s)\n", path, outcome.Fingerprint, formatStatus(outcome.Status))
					case outcome.Rebound:
						fmt.Fprintf(out, "%s: content changed, rebound to %s\n", path, outcome.Fingerprint)
					default:
						fmt.Fprintf(out, "%s: copy of known content %s\n", path, outcome.Fingerprint)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit outcomes as JSON")
	return cmd
}
