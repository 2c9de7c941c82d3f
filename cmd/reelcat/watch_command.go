package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"reelcat/internal/catalog"
	"reelcat/internal/config"
	"reelcat/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var scanFirst bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the configured roots and keep the catalog current",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				return ctx.withWriterLock(cfg, func() error {
					ix, err := ctx.newIndexer(cfg, store, logger)
					if err != nil {
						return err
					}

					runCtx, cancel := signalContext()
					defer cancel()

					if scanFirst {
						for _, root := range cfg.Watch.Roots {
							expanded, err := config.ExpandPath(root)
							if err != nil {
								return err
							}
							run, err := ix.Scan(runCtx, expanded)
							if err != nil {
								return err
							}
							for range run.Results() {
							}
							if _, err := run.Wait(); err != nil {
								return err
							}
						}
					}

					svc, err := watch.NewService(cfg, ix, logger)
					if err != nil {
						return err
					}
					if err := svc.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&scanFirst, "scan-first", false, "Scan the watch roots before watching")
	return cmd
}
