package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/drey/internal/document"
	"github.com/dyluth/drey/internal/logging"
	"github.com/dyluth/drey/internal/metrics"
	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/internal/render"
	"github.com/dyluth/drey/pkg/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type applyOptions struct {
	treePath    string
	patchPath   string
	outPath     string
	showDiff    bool
	replicate   bool
	metricsPath string
}

func newApplyCmd(global *globalOptions) *cobra.Command {
	opts := &applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a patch to an instance tree",
		Long: `Apply a patch file to a tree file and report the changes that took effect.

Removals run first, then additions, then updates. Removals and updates that
name instances which no longer exist are logged as warnings and skipped.

Examples:
  # Preview a patch
  drey apply --tree tree.yml --patch patch.yml --diff

  # Apply and write the result back
  drey apply --tree tree.yml --patch patch.yml --out tree.yml

  # Apply and replicate the accepted changes to the configured mirror
  drey apply --tree tree.yml --patch patch.yml --replicate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.treePath, "tree", "t", "", "Tree file to patch (required)")
	cmd.Flags().StringVarP(&opts.patchPath, "patch", "p", "", "Patch file to apply (required)")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "Write the patched tree to this file")
	cmd.Flags().BoolVar(&opts.showDiff, "diff", false, "Show a diff of the tree outline before and after")
	cmd.Flags().BoolVar(&opts.replicate, "replicate", false, "Replicate applied changes to the configured mirror")
	cmd.Flags().StringVar(&opts.metricsPath, "metrics", "", "Write Prometheus metrics to this textfile (overrides metrics.textfile)")
	cmd.MarkFlagRequired("tree")
	cmd.MarkFlagRequired("patch")

	return cmd
}

func runApply(cmd *cobra.Command, global *globalOptions, opts *applyOptions) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	cfg, err := global.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := global.newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	t, err := document.LoadTree(opts.treePath)
	if err != nil {
		return printer.Error("failed to load tree", err.Error(), nil)
	}
	patch, err := document.LoadPatch(opts.patchPath)
	if err != nil {
		return printer.Error("failed to load patch", err.Error(), nil)
	}

	var before string
	if opts.showDiff {
		before = render.Outline(t, true)
	}

	logger.Debug("applying patch",
		zap.String("tree", opts.treePath),
		zap.String("patch", opts.patchPath),
		zap.Int("instances", t.Len()))

	requested := metrics.CountRequests(patch)
	applied := snapshot.ApplyPatchSet(t, patch, logging.Diagnostics(logger))

	logger.Info("patch applied",
		zap.Int("removed", len(applied.Removed)),
		zap.Int("added", len(applied.Added)),
		zap.Int("updated", len(applied.Updated)))

	render.FormatApplied(out, applied, t)

	if opts.showDiff {
		writeDiff(out, render.DiffOutlines(before, render.Outline(t, true)))
	}

	if opts.outPath != "" {
		if err := document.WriteTree(opts.outPath, t); err != nil {
			return fmt.Errorf("failed to write tree: %w", err)
		}
		printer.Success("Wrote patched tree to %s\n", opts.outPath)
	}

	if opts.replicate {
		client, err := connectMirror(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		event, err := client.Replicate(ctx, t, applied)
		if err != nil {
			return fmt.Errorf("failed to replicate changes: %w", err)
		}
		if event == nil {
			printer.Info("Nothing to replicate\n")
		} else {
			printer.Success("Replicated change %s to mirror '%s'\n", event.ID, client.Name())
		}
	}

	metricsPath := opts.metricsPath
	if metricsPath == "" && cfg.Metrics != nil {
		metricsPath = cfg.Metrics.Textfile
	}
	if metricsPath != "" {
		reg := prometheus.NewRegistry()
		metrics.NewRecorder(reg).Observe(requested, applied)
		if err := metrics.WriteTextfile(metricsPath, reg); err != nil {
			return err
		}
		logger.Debug("metrics written", zap.String("path", metricsPath))
	}

	return nil
}

func writeDiff(w io.Writer, diff string) {
	if diff == "" {
		fmt.Fprintln(w, "\nTree unchanged")
		return
	}
	fmt.Fprintf(w, "\n%s", diff)
}
