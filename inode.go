package ospfs

import (
	"bytes"
	"encoding/binary"
)

// Inode is the fixed-size metadata record for a file, directory, or
// symlink, per spec.md §3/§6. Fields are exported for use by journal replay
// (which stages a post-image Inode wholesale) but the type itself is never
// safe to use outside of a locked FileSystem.
type Inode struct {
	fs  *FileSystem
	Num uint32

	Size   uint32
	Ftype  FileType
	Mode   uint32
	NLink  uint32
	Direct [NDirect]uint32
	Indir  uint32
	Indir2 uint32
}

// Free reports whether this inode slot is unused (spec.md §3: "link_count==0
// means the inode slot is free").
func (i *Inode) Free() bool {
	return i.NLink == 0
}

// NBlocks returns ceil(size/B), the number of data blocks reachable through
// this inode's chain, per spec.md's size2nblocks.
func (i *Inode) NBlocks() uint32 {
	return size2nblocks(i.Size, i.fs.blockSize())
}

func size2nblocks(size uint32, blockSize uint32) uint32 {
	return (size + blockSize - 1) / blockSize
}

// maxFileSize is the largest size reachable through direct + indirect +
// doubly-indirect chains at the current block size.
func (fs *FileSystem) maxFileSize() uint64 {
	ni := uint64(fs.ni())
	b := uint64(fs.blockSize())
	return (uint64(NDirect) + ni + ni*ni) * b
}

// ni returns NI = B/4, the number of block pointers per indirect block.
func (fs *FileSystem) ni() uint32 {
	return fs.blockSize() / 4
}

// setSize sets the in-memory Size field only; callers needing the full
// resize semantics (block allocation/free, journal commit) must go through
// FileSystem.changeSize instead.
func (i *Inode) setSize(size uint32) {
	i.Size = size
}

// inodeLocked loads inode number ino from the inode table. The caller must
// hold fs.mu.
func (fs *FileSystem) inodeLocked(ino uint32) *Inode {
	buf := fs.inodeBytes(ino)
	i := &Inode{fs: fs, Num: ino}
	i.unmarshal(buf)
	return i
}

// inodeBytes returns the raw InodeSize-byte record for ino, spanning inode
// table blocks as needed.
func (fs *FileSystem) inodeBytes(ino uint32) []byte {
	byteOff := uint64(ino) * InodeSize
	blockOff := byteOff / uint64(fs.blockSize())
	inBlock := byteOff % uint64(fs.blockSize())
	block := fs.store.Block(fs.super.FirstInoB + uint32(blockOff))
	// Inodes never straddle a block boundary: blockSize is always a
	// multiple of InodeSize for any image mkfs produces (see layout()).
	return block[inBlock : inBlock+InodeSize]
}

func (i *Inode) unmarshal(buf []byte) {
	r := bytes.NewReader(buf)
	binary.Read(r, binary.LittleEndian, &i.Size)
	var ftype, mode, nlink uint32
	binary.Read(r, binary.LittleEndian, &ftype)
	binary.Read(r, binary.LittleEndian, &mode)
	binary.Read(r, binary.LittleEndian, &nlink)
	i.Ftype = FileType(ftype)
	i.Mode = mode
	i.NLink = nlink
	for n := 0; n < NDirect; n++ {
		binary.Read(r, binary.LittleEndian, &i.Direct[n])
	}
	binary.Read(r, binary.LittleEndian, &i.Indir)
	binary.Read(r, binary.LittleEndian, &i.Indir2)
}

func (i *Inode) marshal() []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, i.Size)
	binary.Write(buf, binary.LittleEndian, uint32(i.Ftype))
	binary.Write(buf, binary.LittleEndian, i.Mode)
	binary.Write(buf, binary.LittleEndian, i.NLink)
	for n := 0; n < NDirect; n++ {
		binary.Write(buf, binary.LittleEndian, i.Direct[n])
	}
	binary.Write(buf, binary.LittleEndian, i.Indir)
	binary.Write(buf, binary.LittleEndian, i.Indir2)
	return buf.Bytes()
}

// writeBack persists the in-memory Inode to the live inode table
// immediately, bypassing the journal. This is safe only for single-word-
// equivalent updates the original ospfsmod.c's unlink path also performs
// without a journal (spec.md §4.6: "single-word write is atomic on
// word-aligned storage; journal not required"); multi-field mutations
// (resize, create, link) must instead be staged into a journal header and
// applied through replay (see journal.go).
func (i *Inode) writeBack() {
	copy(i.fs.inodeBytes(i.Num), i.marshal())
}

// clone returns a detached copy suitable for staging into a journal
// transaction and mutating without touching the live inode.
func (i *Inode) clone() *Inode {
	c := *i
	return &c
}

// symlinkCapacity is how many bytes of target text fit inline in a
// symlink's direct/indirect/indirect2 fields reinterpreted as a flat byte
// buffer — the original ospfsmod.c reuses its inode's block-pointer array
// as the symlink's character buffer rather than spending a whole data
// block on a handful of bytes, and this keeps that trick.
const symlinkCapacity = NDirect*4 + 8

func (i *Inode) symlinkBytes() []byte {
	buf := make([]byte, symlinkCapacity)
	for n := 0; n < NDirect; n++ {
		putLe32(buf[n*4:n*4+4], i.Direct[n])
	}
	putLe32(buf[NDirect*4:NDirect*4+4], i.Indir)
	putLe32(buf[NDirect*4+4:NDirect*4+8], i.Indir2)
	return buf[:i.Size]
}

func (i *Inode) setSymlinkBytes(target []byte) {
	buf := make([]byte, symlinkCapacity)
	copy(buf, target)
	for n := 0; n < NDirect; n++ {
		i.Direct[n] = le32(buf[n*4 : n*4+4])
	}
	i.Indir = le32(buf[NDirect*4 : NDirect*4+4])
	i.Indir2 = le32(buf[NDirect*4+4 : NDirect*4+8])
	i.setSize(uint32(len(target)))
}
