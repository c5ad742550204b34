package ospfs

import "fmt"

// BlockStore maps a block number to the fixed-size byte buffer backing it.
// Implementations need not be safe for concurrent use; FileSystem serializes
// all access through its own lock (see fs.go).
type BlockStore interface {
	// Block returns the live buffer for block n. Mutations to the returned
	// slice are mutations to the image. The slice has length BlockSize().
	Block(n uint32) []byte

	// NBlocks returns the total number of blocks in the store.
	NBlocks() uint32

	// BlockSize returns the fixed block size, in bytes.
	BlockSize() uint32
}

// memStore is the default BlockStore: a single contiguous byte slice, sliced
// into fixed-size blocks. This is the "backing store is a memory array"
// model of SPEC_FULL.md / spec.md §2.
type memStore struct {
	buf       []byte
	blockSize uint32
}

// NewMemStore allocates a zeroed in-memory block store of nblocks blocks of
// blockSize bytes each.
func NewMemStore(nblocks, blockSize uint32) BlockStore {
	return &memStore{
		buf:       make([]byte, uint64(nblocks)*uint64(blockSize)),
		blockSize: blockSize,
	}
}

// WrapMemStore wraps an existing byte slice as a BlockStore without copying.
// len(buf) must be a multiple of blockSize.
func WrapMemStore(buf []byte, blockSize uint32) (BlockStore, error) {
	if blockSize == 0 || uint64(len(buf))%uint64(blockSize) != 0 {
		return nil, fmt.Errorf("ospfs: buffer length %d not a multiple of block size %d", len(buf), blockSize)
	}
	return &memStore{buf: buf, blockSize: blockSize}, nil
}

func (s *memStore) Block(n uint32) []byte {
	off := uint64(n) * uint64(s.blockSize)
	return s.buf[off : off+uint64(s.blockSize) : off+uint64(s.blockSize)]
}

func (s *memStore) NBlocks() uint32 {
	return uint32(uint64(len(s.buf)) / uint64(s.blockSize))
}

func (s *memStore) BlockSize() uint32 {
	return s.blockSize
}

// Bytes returns the whole backing array, for dump/export use (see image.go).
func (s *memStore) Bytes() []byte {
	return s.buf
}

// ExportBytes serializes store's full block range into one contiguous
// buffer, independent of the concrete BlockStore implementation backing it.
// Used by the image package's dump command.
func ExportBytes(store BlockStore) []byte {
	b := store.BlockSize()
	buf := make([]byte, uint64(store.NBlocks())*uint64(b))
	for n := uint32(0); n < store.NBlocks(); n++ {
		copy(buf[uint64(n)*uint64(b):], store.Block(n))
	}
	return buf
}
