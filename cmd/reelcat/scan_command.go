package main

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"reelcat/internal/catalog"
	"reelcat/internal/config"
	"reelcat/internal/indexer"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "scan <root>...",
		Short: "Scan directories and index every video file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				return ctx.withWriterLock(cfg, func() error {
					ix, err := ctx.newIndexer(cfg, store, logger)
					if err != nil {
						return err
					}

					runCtx, cancel := signalContext()
					defer cancel()

					var summaries []*indexer.Summary
					for _, arg := range args {
						root, err := config.ExpandPath(arg)
						if err != nil {
							return err
						}

						run, err := ix.Scan(runCtx, root)
						if err != nil {
							return err
						}
						progress := newScanProgress(jsonOut)
						for range run.Results() {
							progress.advance()
						}
						progress.finish()
						summary, err := run.Wait()
						if err != nil {
							return err
						}
						summaries = append(summaries, summary)

						if !jsonOut {
							fmt.Fprintf(cmd.OutOrStdout(), "Scanned %s: %s processed, %s skipped, %s pruned, %s, %s elapsed\n",
								root,
								pluralize(summary.Processed, "file"),
								pluralize(summary.Skipped, "file"),
								pluralize(summary.Pruned, "stale path"),
								pluralize(summary.Errors, "error"),
								summary.Elapsed.Round(timeRounding))
						}
					}

					if jsonOut {
						return writeJSON(cmd, summaries)
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit scan summaries as JSON")
	return cmd
}

// scanProgress renders a spinner-style progress bar on terminals and stays
// silent otherwise.
type scanProgress struct {
	bar *progressbar.ProgressBar
}

func newScanProgress(jsonOut bool) *scanProgress {
	if jsonOut || !stdoutIsTerminal() {
		return &scanProgress{}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &scanProgress{bar: bar}
}

func (p *scanProgress) advance() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *scanProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
