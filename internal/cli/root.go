// Package cli implements the streamctl commands using Cobra.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"torrentstream/streamresolver/internal/app"
)

// Version is set at build time via ldflags.
var Version = "dev"

type options struct {
	configFile string
	searchBase string
	noFallback bool
	debug      bool
	cfg        app.Config
	logger     *slog.Logger
}

// NewRootCommand builds the streamctl command tree. Flags override the
// environment and config file: defaults < file < env < flags.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "streamctl",
		Short: "Resolve media identifiers into magnet streams from the terminal",
		Long: `streamctl runs the stream-resolution pipeline once and prints the outcome.
It uses the same configuration as the addon server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "TOML config file (overrides STREAM_CONFIG_FILE)")
	root.PersistentFlags().StringVar(&opts.searchBase, "search-base", "", "Search surface base URL")
	root.PersistentFlags().BoolVar(&opts.noFallback, "no-fallback", false, "Disable the fallback provider")
	root.PersistentFlags().BoolVarP(&opts.debug, "debug", "x", false, "Debug logging to stderr")

	root.AddCommand(newResolveCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *options) load(stderr io.Writer) error {
	if o.configFile != "" {
		if err := os.Setenv("STREAM_CONFIG_FILE", o.configFile); err != nil {
			return fmt.Errorf("setting config file: %w", err)
		}
	}
	o.cfg = app.LoadConfig()
	if o.configFile != "" && o.cfg.ConfigFileWarning != "" {
		return fmt.Errorf("loading config: %s", o.cfg.ConfigFileWarning)
	}

	if o.searchBase != "" {
		o.cfg.SearchBase = o.searchBase
	}
	if o.noFallback {
		o.cfg.FallbackEnabled = false
	}
	if o.debug {
		o.cfg.LogLevel = "debug"
	}

	level := o.cfg.LogLevel
	if !o.debug && level == "info" {
		level = "warn"
	}
	o.logger = app.NewLogger(stderr, level, o.cfg.LogFormat)
	return nil
}
