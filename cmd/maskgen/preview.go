package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsmask/internal/pipeline"
	"newsmask/internal/preview"
)

func newPreviewCmd(opts *options) *cobra.Command {
	var (
		limit int
		split string
		width int
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Mask the first records of a split and print them as a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			if split == "" {
				enabled := cfg.GetEnabledSplits()
				split = enabled[0].Name
			}

			if !cmd.Flags().Changed("width") {
				width = cfg.Advanced.PreviewWidth
			}

			runner, err := pipeline.NewRunner(cfg, log)
			if err != nil {
				return err
			}

			records, err := runner.Preview(cmd.Context(), split, limit)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), preview.Render(records, width))

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "number of records to show")
	cmd.Flags().StringVar(&split, "split", "", "split to preview (default: first enabled split)")
	cmd.Flags().IntVar(&width, "width", 0, "maximum cell width (default: advanced.preview_width)")

	return cmd
}
