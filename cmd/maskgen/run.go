package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"newsmask/internal/pipeline"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		seed    uint64
		workers int
		split   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Mask every enabled split and write the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("seed") {
				cfg.Advanced.Seed = seed
			}

			if cmd.Flags().Changed("workers") {
				cfg.Advanced.Workers = workers
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			log.Info("Configuration loaded", "config", cfg.String(), "seed", cfg.Advanced.Seed)

			runner, err := pipeline.NewRunner(cfg, log)
			if err != nil {
				return err
			}

			start := time.Now()

			var reports []pipeline.SplitReport

			if split != "" {
				report, err := runner.RunNamed(cmd.Context(), split)
				if err != nil {
					return err
				}

				reports = append(reports, report)
			} else {
				reports, err = runner.Run(cmd.Context())
				if err != nil {
					return err
				}
			}

			printReports(cmd.OutOrStdout(), reports, time.Since(start))

			return nil
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "override advanced.seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "override advanced.workers (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&split, "split", "", "process only this split")

	return cmd
}

func printReports(w io.Writer, reports []pipeline.SplitReport, elapsed time.Duration) {
	fmt.Fprintln(w, "\n================================================================")
	fmt.Fprintln(w, "📊 Summary")
	fmt.Fprintln(w, "================================================================")

	for _, r := range reports {
		fmt.Fprintf(w, "✅ %-8s %d/%d records → %s", r.Split, r.Written, r.Input, r.Path)

		if r.Skipped > 0 {
			fmt.Fprintf(w, " (⚠️  %d skipped)", r.Skipped)
		}

		fmt.Fprintln(w)
		fmt.Fprintf(w, "   %s\n", r.Stats)

		if r.Manifest != nil {
			fmt.Fprintf(w, "   🔏 sha256 %s\n", r.Manifest.Hash)
		}
	}

	fmt.Fprintf(w, "⏱️  Done in %v\n", elapsed.Round(time.Millisecond))
}
