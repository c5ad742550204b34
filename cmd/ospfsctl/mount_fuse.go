//go:build fuse

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ospfs/ospfs/fuseadapter"
)

func newMountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <image> <mountpoint>",
		Short: "Mount an ospfs image over FUSE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, store, err := openImage(args[0])
			if err != nil {
				return err
			}
			defer closeStore(store)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return fuseadapter.Mount(ctx, fsys, args[1])
		},
	}
	return cmd
}
