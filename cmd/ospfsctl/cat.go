package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newCatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <image> <path>",
		Short: "Print a file's contents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, store, err := openImage(args[0])
			if err != nil {
				return err
			}
			defer closeStore(store)

			parentIno, err := resolve(fsys, filepath.Dir(args[1]))
			if err != nil {
				return err
			}
			ino, err := fsys.Lookup(parentIno, filepath.Base(args[1]))
			if err != nil {
				return err
			}

			const chunk = 64 * 1024
			var pos uint32
			for {
				n, err := fsys.Read(ino, os.Stdout, pos, chunk)
				pos += n
				if n == 0 || err != nil {
					return err
				}
			}
		},
	}
	return cmd
}
