package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"newsmask/pkg/metadata"
)

// ErrVerifyFailed is returned when at least one blob fails verification.
var ErrVerifyFailed = errors.New("verification failed")

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <blob>...",
		Short: "Check generated blobs against their manifests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0

			for _, blob := range args {
				m, err := metadata.Verify(blob)
				if err != nil {
					fmt.Fprintf(out, "❌ %s: %v\n", blob, err)

					failed++

					continue
				}

				fmt.Fprintf(out, "✅ %s: split=%s records=%d seed=%d\n", blob, m.Split, m.Records, m.Seed)
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d blobs", ErrVerifyFailed, failed, len(args))
			}

			return nil
		},
	}
}
