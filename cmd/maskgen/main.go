// Package main provides the maskgen command-line tool for building masked language
// modeling datasets from news article splits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"newsmask/internal/config"
	"newsmask/internal/logger"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/maskgen.yaml"

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "maskgen",
		Short: "Build masked language modeling datasets from news articles",
		Long: `maskgen reads news article splits, corrupts each article with a
document, sentence and word/n-gram masking policy, and writes the augmented
records with masked_article and answer fields.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newPreviewCmd(opts))
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// load reads the config and builds the logger it describes.
func (o *options) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	return cfg, logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "maskgen %s (commit %s)\n", version, commit)

			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}
