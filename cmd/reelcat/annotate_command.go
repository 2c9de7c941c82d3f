package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"reelcat/internal/catalog"
	"reelcat/internal/config"
)

func newAnnotateCommand(ctx *commandContext) *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Run the analyzer for content that is still pending or failed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !retry {
				return fmt.Errorf("nothing to do: pass --retry to re-run pending and failed analyses")
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				ix, err := ctx.newIndexer(cfg, store, logger)
				if err != nil {
					return err
				}

				runCtx, cancel := signalContext()
				defer cancel()

				retried, failed, err := ix.Reanalyze(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reanalyzed %s (%s still failing)\n",
					pluralize(retried, "annotation"), pluralize(failed, "annotation"))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&retry, "retry", false, "Re-run analysis for pending and failed annotations")
	return cmd
}
