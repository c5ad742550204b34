package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ospfs/ospfs"
)

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <image> [path]",
		Short: "List a directory's entries",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) > 1 {
				path = args[1]
			}

			fsys, store, err := openImage(args[0])
			if err != nil {
				return err
			}
			defer closeStore(store)

			dirIno, err := resolve(fsys, path)
			if err != nil {
				return err
			}

			entries, _, err := fsys.Readdir(dirIno, dirIno, 0)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.Name == "." || e.Name == ".." {
					continue
				}
				suffix := ""
				if e.Ftype == ospfs.FtypeDir {
					suffix = "/"
				}
				fmt.Printf("%8d  %s%s\n", e.Ino, e.Name, suffix)
			}
			return nil
		},
	}
	return cmd
}

// resolve walks a '/'-separated path from the root inode, per spec.md §6's
// Lookup being the only name-resolution primitive the core exposes: there is
// no multi-component path lookup in the core itself.
func resolve(fsys *ospfs.FileSystem, path string) (uint32, error) {
	ino := uint32(ospfs.RootIno)
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" || part == "." {
			continue
		}
		next, err := fsys.Lookup(ino, part)
		if err != nil {
			return 0, err
		}
		ino = next
	}
	return ino, nil
}
