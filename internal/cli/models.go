// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

func newModelsCommand(opts *Options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models installed on the server",
		Example: `  rigchat models
  rigchat models --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout.Duration)
			defer cancel()
			models, err := newClient(cfg).ListModels(ctx)
			if err != nil {
				return fmt.Errorf("list models at %s: %w", cfg.Host, err)
			}
			sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

			w := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(w, models)
			}
			theme := styles.NewTheme(w, cfg.UI.Theme, cfg.UI.Color && ColorsEnabled())
			printModelTable(w, theme, models, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the list as JSON")
	return cmd
}

// printModelTable writes one row per model with its size and age.
func printModelTable(w io.Writer, theme *styles.Theme, models []ollama.ModelInfo, now time.Time) {
	if len(models) == 0 {
		fmt.Fprintln(w, theme.RenderStatus(styles.StatusInfo, "No models installed. Try: ollama pull llama3.2"))
		return
	}

	nameWidth := len("NAME")
	for _, m := range models {
		nameWidth = max(nameWidth, runewidth.StringWidth(m.Name))
	}

	header := fmt.Sprintf("%s  %-10s  %-8s  %-8s  %s",
		runewidth.FillRight("NAME", nameWidth), "SIZE", "PARAMS", "QUANT", "MODIFIED")
	fmt.Fprintln(w, theme.Label.Render(header))

	for _, m := range models {
		modified := "-"
		if !m.ModifiedAt.IsZero() {
			modified = formatDuration(now.Sub(m.ModifiedAt)) + " ago"
		}
		fmt.Fprintf(w, "%s  %-10s  %-8s  %-8s  %s\n",
			theme.Value.Render(runewidth.FillRight(m.Name, nameWidth)),
			m.FormatSize(),
			orDash(m.Details.ParameterSize),
			orDash(m.Details.QuantizationLevel),
			modified,
		)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
