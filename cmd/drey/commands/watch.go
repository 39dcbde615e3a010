package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/internal/render"
	"github.com/dyluth/drey/internal/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(global *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream changes replicated to the mirror",
		Long: `Print every change event published by the configured mirror as it happens.
Stops on Ctrl-C.

Output Formats:
  default - Human-readable output with timestamps
  jsonl   - Line-delimited JSON for programmatic processing

Examples:
  drey watch
  drey watch --output=jsonl > changes.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseOutputFormat(output)
			if err != nil {
				return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
			}

			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := connectMirror(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if format == render.OutputFormatDefault {
				printer.Step("Watching mirror '%s' (Ctrl-C to stop)\n", client.Name())
			}
			return watch.StreamChanges(ctx, client, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")

	return cmd
}
