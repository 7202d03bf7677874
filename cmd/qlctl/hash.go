package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"querylane/pkg/commitment"
)

func newHashCmd() *cobra.Command {
	var answer, nonce string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute the commitment hash for an answer and nonce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if nonce == "" {
				return fmt.Errorf("--nonce is required")
			}
			fmt.Fprintln(cmd.OutOrStdout(), commitment.Hash([]byte(answer), nonce))
			return nil
		},
	}
	cmd.Flags().StringVar(&answer, "answer", "", "answer to commit to")
	cmd.Flags().StringVar(&nonce, "nonce", "", "reveal nonce (keep secret until reveal)")
	return cmd
}

func newNonceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nonce",
		Short: "Mint a fresh reveal nonce",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), commitment.NewNonce())
		},
	}
}
