package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/internal/render"
	"github.com/dyluth/drey/internal/timespec"
	"github.com/spf13/cobra"
)

func newHistoryCmd(global *globalOptions) *cobra.Command {
	var (
		since  string
		until  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List changes replicated to the mirror",
		Long: `List the change events recorded by the configured mirror, oldest first.

Output Formats:
  default - Human-readable table with change counts and ages
  jsonl   - Line-delimited JSON, one change event per line

Time Filters:
  --since  - Show changes replicated after this time
  --until  - Show changes replicated before this time

Both accept a duration ("2h", "30m") or a timestamp ("2025-10-29T13:00:00Z").

Examples:
  drey history --since 1h
  drey history --output jsonl | jq '.added | length'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			format, err := render.ParseOutputFormat(output)
			if err != nil {
				return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
			}

			sinceMs, untilMs, err := timespec.ParseRange(since, until)
			if err != nil {
				return printer.Error(
					"invalid time filter",
					err.Error(),
					[]string{"Use duration format like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z'"},
				)
			}

			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := connectMirror(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			events, err := client.History(ctx, sinceMs, untilMs)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}

			out := cmd.OutOrStdout()
			if format == render.OutputFormatJSONL {
				return render.FormatHistoryJSONL(out, events)
			}
			render.FormatHistory(out, events, client.Name(), time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Show changes after time (duration or RFC3339)")
	cmd.Flags().StringVar(&until, "until", "", "Show changes before time (duration or RFC3339)")
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")

	return cmd
}
