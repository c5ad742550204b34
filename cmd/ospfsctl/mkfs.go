package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ospfs/ospfs"
)

func newMkfsCmd() *cobra.Command {
	var blockSize uint32
	var nblocks uint32
	var ninodes uint32
	var fromDir string
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "mkfs <image>",
		Short: "Create a new ospfs image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config: %w", err)
				}
				if v.IsSet("block_size") {
					blockSize = v.GetUint32("block_size")
				}
				if v.IsSet("ninodes") {
					ninodes = v.GetUint32("ninodes")
				}
			}

			store, err := ospfs.NewMmapStore(args[0], nblocks, blockSize)
			if err != nil {
				return err
			}
			defer store.Close()

			fsys, err := ospfs.Format(store, ninodes)
			if err != nil {
				return err
			}

			if fromDir != "" {
				if err := ospfs.BuildFromDir(fsys, ospfs.RootIno, fromDir); err != nil {
					return fmt.Errorf("populating from %s: %w", fromDir, err)
				}
			}

			return store.Sync()
		},
	}

	cmd.Flags().Uint32Var(&blockSize, "block-size", 4096, "block size in bytes")
	cmd.Flags().Uint32Var(&nblocks, "blocks", 16384, "image size in blocks")
	cmd.Flags().Uint32Var(&ninodes, "inodes", 1024, "number of inodes")
	cmd.Flags().StringVar(&fromDir, "from-dir", "", "populate the new image from this host directory")
	cmd.Flags().StringVar(&cfgFile, "config", "", "YAML/TOML/JSON config overriding block-size/inodes")
	return cmd
}
