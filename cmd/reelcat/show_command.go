package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"reelcat/internal/catalog"
	"reelcat/internal/config"
	"reelcat/internal/lookup"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <fingerprint|path|tag>",
		Short: "Show everything known about a piece of content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				svc := lookup.NewService(store, logger)

				runCtx, cancel := signalContext()
				defer cancel()

				resolution, err := svc.Resolve(runCtx, args[0])
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, resolution)
				}

				out := cmd.OutOrStdout()
				if resolution.Kind == lookup.KindTag {
					if len(resolution.Results) == 0 {
						fmt.Fprintf(out, "Nothing matches %q\n", args[0])
						return nil
					}
					for _, result := range resolution.Results {
						fmt.Fprintf(out, "%s  (weight %.1f, tags: %s)\n",
							result.Fingerprint, result.Weight, formatTags(result.MatchedTags))
					}
					return nil
				}

				printEntry(out, resolution.Entry)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the entry as JSON")
	return cmd
}

func printEntry(out io.Writer, entry *catalog.Entry) {
	fmt.Fprintf(out, "Fingerprint:  %s\n", entry.Content.Fingerprint)
	fmt.Fprintf(out, "First seen:   %s\n", formatTime(entry.Content.FirstSeenAt))
	fmt.Fprintf(out, "Copies:       %d\n", entry.LocationCount())
	for _, loc := range entry.Locations {
		fmt.Fprintf(out, "  %s  (%s, modified %s)\n", loc.Path, formatBytes(loc.Size), formatTime(loc.LastModified))
	}

	ann := entry.Annotation
	if ann == nil {
		fmt.Fprintln(out, "Annotation:   none")
		return
	}
	fmt.Fprintf(out, "Analysis:     %s (analyzed %s)\n", formatStatus(ann.Status), formatTimePtr(ann.AnalyzedAt))
	if ann.Description != "" {
		fmt.Fprintf(out, "Description:  %s\n", ann.Description)
	}
	for _, group := range []struct {
		name string
		tags []string
	}{
		{"Technical", ann.Technical},
		{"Content", ann.Content},
		{"Emotional", ann.Emotional},
		{"Business", ann.Business},
		{"Search tags", ann.SearchTags},
	} {
		if len(group.tags) > 0 {
			fmt.Fprintf(out, "%-13s %s\n", group.name+":", formatTags(group.tags))
		}
	}
}
