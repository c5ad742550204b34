// Command ospfsctl is the CLI front end for the ospfs core, replacing the
// teacher's flat getopt-style sqfs tool with a github.com/spf13/cobra command
// tree so each verb gets its own flag set instead of manual os.Args slicing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ospfsctl: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ospfsctl",
		Short: "Inspect and manipulate ospfs images",
		Long: `ospfsctl operates on ospfs images: journaled, block-addressed
filesystem images compatible with the in-memory ospfs core.`,
	}

	root.AddCommand(
		newMkfsCmd(),
		newLsCmd(),
		newCatCmd(),
		newInfoCmd(),
		newFsckCmd(),
		newMountCmd(),
	)
	return root
}
