package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <image>",
		Short: "Print superblock layout information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, store, err := openImage(args[0])
			if err != nil {
				return err
			}
			defer closeStore(store)

			sb := fsys.Superblock()
			fmt.Printf("block size:     %d\n", store.BlockSize())
			fmt.Printf("blocks:         %d\n", sb.NBlocks)
			fmt.Printf("inodes:         %d\n", sb.NInodes)
			fmt.Printf("inode table at: %d\n", sb.FirstInoB)
			fmt.Printf("journal at:     %d (%d blocks)\n", sb.FirstJourB, sb.NJournalB)
			fmt.Printf("data starts at: %d\n", sb.FirstDataB)
			return nil
		},
	}
	return cmd
}
