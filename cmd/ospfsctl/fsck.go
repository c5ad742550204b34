package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFsckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fsck <image>",
		Short: "Check chain integrity and bitmap consistency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, store, err := openImage(args[0])
			if err != nil {
				return err
			}
			defer closeStore(store)

			problems := fsys.Fsck()
			if len(problems) == 0 {
				fmt.Println("ospfsctl: image is consistent")
				return nil
			}
			for _, p := range problems {
				fmt.Println(p)
			}
			return fmt.Errorf("%d problem(s) found", len(problems))
		},
	}
	return cmd
}
