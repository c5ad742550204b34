package main

import (
	"github.com/ospfs/ospfs"
)

const defaultCliBlockSize = 4096

// openImage mmaps an existing image file and mounts it. The block size is
// fixed at defaultCliBlockSize for commands that only read an image (ls, cat,
// info, fsck): it is only actually needed to slice the mapped bytes, and
// Open's superblock validation will fail loudly if it doesn't match what the
// image was formatted with.
func openImage(path string) (*ospfs.FileSystem, *ospfs.MmapStore, error) {
	store, err := ospfs.OpenMmapStore(path, defaultCliBlockSize)
	if err != nil {
		return nil, nil, err
	}
	fsys, err := ospfs.Open(store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return fsys, store, nil
}

func closeStore(store *ospfs.MmapStore) {
	if store != nil {
		store.Close()
	}
}
