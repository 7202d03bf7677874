// qlctl is the querylane demonstration harness: it drives a full request
// lifecycle against an in-process engine and exposes small commitment
// utilities for agents scripting against the resolve service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "qlctl",
		Short:         "querylane demo harness and commitment utilities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newDemoCmd(), newHashCmd(), newNonceCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
