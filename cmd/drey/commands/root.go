package commands

import (
	"fmt"

	"github.com/dyluth/drey/internal/config"
	"github.com/dyluth/drey/internal/logging"
	"github.com/dyluth/drey/internal/printer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var versionString = "dev"

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
}

// loadConfig reads the configuration file. A missing file yields the
// defaults unless the path was given explicitly.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.DreyConfig, error) {
	var (
		cfg *config.DreyConfig
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.LoadOrDefault(o.configPath)
	}
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Check %s or create one with:\n  drey init", o.configPath)},
		)
	}
	return cfg, nil
}

// newLogger builds the logger described by cfg. --log-level takes precedence
// over the configured level.
func (o *globalOptions) newLogger(cfg *config.DreyConfig) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger, err := logging.New(level, cfg.Logging.Format)
	if err != nil {
		return nil, printer.Error(
			"invalid logging configuration",
			err.Error(),
			[]string{"Valid levels: debug, info, warn, error"},
		)
	}
	return logger, nil
}

// newRootCmd builds the command tree. Each call returns independent commands
// and flag state.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "drey",
		Short: "drey - apply patches to instance trees",
		Long: `drey applies precomputed patches to a hierarchical instance tree.

A patch removes, adds and updates instances. Added instances may reference
each other before they exist; drey applies changes in an order that lets
every reference resolve and reports what actually took effect.

Applied changes can be replicated to a Redis mirror, where other processes
can inspect the tree, browse the change history and watch changes live.`,
		Version: versionString,
		// Prevent silent success when unknown flags are passed to root command
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "f", config.DefaultPath, "Path to drey configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newInitCmd(),
		newApplyCmd(opts),
		newTreeCmd(),
		newGetCmd(opts),
		newSyncCmd(opts),
		newHistoryCmd(opts),
		newWatchCmd(opts),
	)

	return root
}

// Execute runs the CLI. This is called by main.main().
func Execute() error {
	return newRootCmd().Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
