//go:build linux || darwin

package ospfs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MmapStore is a BlockStore backed by a memory-mapped regular file, for
// images too large to comfortably hold as a single Go byte slice. The
// teacher depends on golang.org/x/sys purely for its inode_linux.go /
// inode_darwin.go platform build tags; here the same dependency backs an
// actual alternate storage backing, as SPEC_FULL.md's domain-stack wiring
// calls for.
type MmapStore struct {
	f         *os.File
	data      []byte
	blockSize uint32
}

// OpenMmapStore maps an existing image file of the given block size. The
// file's length must already be a multiple of blockSize (use NewMmapStore to
// create one).
func OpenMmapStore(path string, blockSize uint32) (*MmapStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if blockSize == 0 || fi.Size()%int64(blockSize) != 0 {
		f.Close()
		return nil, fmt.Errorf("ospfs: image size %d not a multiple of block size %d", fi.Size(), blockSize)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MmapStore{f: f, data: data, blockSize: blockSize}, nil
}

// NewMmapStore creates a new zero-filled image file of nblocks blocks and
// maps it.
func NewMmapStore(path string, nblocks, blockSize uint32) (*MmapStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	size := int64(nblocks) * int64(blockSize)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()
	return OpenMmapStore(path, blockSize)
}

func (s *MmapStore) Block(n uint32) []byte {
	off := uint64(n) * uint64(s.blockSize)
	return s.data[off : off+uint64(s.blockSize) : off+uint64(s.blockSize)]
}

func (s *MmapStore) NBlocks() uint32 {
	return uint32(uint64(len(s.data)) / uint64(s.blockSize))
}

func (s *MmapStore) BlockSize() uint32 {
	return s.blockSize
}

// Sync flushes mapped pages to the backing file.
func (s *MmapStore) Sync() error {
	return unix.Msync(s.data, unix.MS_SYNC)
}

// Close unmaps and closes the backing file.
func (s *MmapStore) Close() error {
	if err := unix.Munmap(s.data); err != nil {
		return err
	}
	return s.f.Close()
}
