package ospfs

import (
	"bytes"
	"encoding/binary"
)

// journalOp identifies the kind of mutation a journal transaction stages,
// per spec.md §3. The first three match original_source/journal.h's
// JOURNAL_EMPTY/WRITE/FREE; ALLOC/SYMLINK/HARDLINK/CREATE are spec.md's
// additions beyond the original's four-kind journal.
type journalOp uint32

const (
	JournalEmpty journalOp = iota
	JournalWrite
	JournalFree
	JournalAlloc
	JournalSymlink
	JournalHardlink
	JournalCreate
)

// resize_flags bits, per spec.md §3.
const (
	flagIndirectTouched  uint32 = 1 << 0
	flagIndirect2Touched uint32 = 1 << 1
)

// journalHeader is the staged-transaction record at journal block 0.
type journalHeader struct {
	OpKind           journalOp
	Completed        uint32
	InodeNo          uint32
	Inode            Inode
	NBlocks          uint32
	IndirectBlockno  uint32
	Indirect2Blockno uint32
	ResizeFlags      uint32
	DirDataBlockno   uint32
}

func (h *journalHeader) marshal() []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, uint32(h.OpKind))
	binary.Write(buf, binary.LittleEndian, h.Completed)
	binary.Write(buf, binary.LittleEndian, h.InodeNo)
	buf.Write(h.Inode.marshal())
	binary.Write(buf, binary.LittleEndian, h.NBlocks)
	binary.Write(buf, binary.LittleEndian, h.IndirectBlockno)
	binary.Write(buf, binary.LittleEndian, h.Indirect2Blockno)
	binary.Write(buf, binary.LittleEndian, h.ResizeFlags)
	binary.Write(buf, binary.LittleEndian, h.DirDataBlockno)
	return buf.Bytes()
}

func (h *journalHeader) unmarshal(data []byte) {
	r := bytes.NewReader(data)
	var opKind uint32
	binary.Read(r, binary.LittleEndian, &opKind)
	h.OpKind = journalOp(opKind)
	binary.Read(r, binary.LittleEndian, &h.Completed)
	binary.Read(r, binary.LittleEndian, &h.InodeNo)
	inodeBuf := make([]byte, InodeSize)
	r.Read(inodeBuf)
	h.Inode.unmarshal(inodeBuf)
	binary.Read(r, binary.LittleEndian, &h.NBlocks)
	binary.Read(r, binary.LittleEndian, &h.IndirectBlockno)
	binary.Read(r, binary.LittleEndian, &h.Indirect2Blockno)
	binary.Read(r, binary.LittleEndian, &h.ResizeFlags)
	binary.Read(r, binary.LittleEndian, &h.DirDataBlockno)
}

// journal views the fixed journal region described in spec.md §3: header,
// block-number list, saved indirect2, saved indirect, MAX_BATCH data slots.
type journal struct {
	fs *FileSystem
}

func (fs *FileSystem) journal() journal {
	return journal{fs: fs}
}

func (j journal) blockAt(offset uint32) []byte {
	return j.fs.store.Block(j.fs.super.FirstJourB + offset)
}

func (j journal) readHeader() journalHeader {
	var h journalHeader
	h.unmarshal(j.blockAt(journalHeaderBlock))
	return h
}

// writeHeader persists all of h's fields, Completed included, exactly as
// given. commitLocked passes Completed=0 here and flips it separately with
// setCompleted to preserve the ordering barrier.
func (j journal) writeHeader(h journalHeader) {
	copy(j.blockAt(journalHeaderBlock), h.marshal())
}

func (j journal) blocknoList() []uint32 {
	buf := j.blockAt(journalBlocknoBlock)
	out := make([]uint32, MaxBatch)
	for i := range out {
		out[i] = le32(buf[i*4 : i*4+4])
	}
	return out
}

func (j journal) setBlockno(i int, blockno uint32) {
	buf := j.blockAt(journalBlocknoBlock)
	putLe32(buf[i*4:i*4+4], blockno)
}

func (j journal) savedIndirect2() []byte {
	return j.blockAt(journalIndirect2Block)
}

func (j journal) savedIndirect() []byte {
	return j.blockAt(journalIndirectBlock)
}

func (j journal) writeSavedIndirect(ptrs []uint32) {
	buf := j.savedIndirect()
	for i, p := range ptrs {
		putLe32(buf[i*4:i*4+4], p)
	}
}

func (j journal) writeSavedIndirect2(ptrs []uint32) {
	buf := j.savedIndirect2()
	for i, p := range ptrs {
		putLe32(buf[i*4:i*4+4], p)
	}
}

// dataSlot returns journal data slot i (0-based, 0 <= i < MaxBatch), the
// staging area for WRITE payloads and CREATE/HARDLINK's directory-block
// post-image (always slot 0 for the latter two).
func (j journal) dataSlot(i int) []byte {
	return j.blockAt(journalDataBlock0 + uint32(i))
}

// clearLocked resets the header to EMPTY/uncommitted. Called at Format time
// and after every successful apply.
func (j journal) clearLocked() {
	j.writeHeader(journalHeader{OpKind: JournalEmpty})
	putLe32(j.blockAt(journalHeaderBlock)[4:8], 0)
}

// setCompleted flips the commit-barrier word in place, independent of the
// rest of writeHeader, so it is always the last byte of the transaction
// written. FileSystem.mu's single-exclusive-lock model (spec.md §5) means
// there is never a concurrent reader to race with; the barrier here is about
// write ORDERING (data/list/saved-blocks before the flip, the flip before
// apply) rather than hardware memory-fence semantics, so a plain store
// suffices where a real disk-backed journal would need an fsync.
func (j journal) setCompleted(v uint32) {
	putLe32(j.blockAt(journalHeaderBlock)[4:8], v)
}

func (j journal) completed() uint32 {
	return le32(j.blockAt(journalHeaderBlock)[4:8])
}

// commitLocked stages h's non-Completed fields (already written by the
// caller into the header/list/saved-block/data regions), then flips
// Completed 0→1, per spec.md §4.5's commit-barrier rule. It then applies the
// transaction and clears the journal.
func (j journal) commitLocked(h journalHeader) error {
	h.Completed = 0
	j.writeHeader(h)
	j.setCompleted(1)

	if err := j.applyLocked(); err != nil {
		return err
	}
	j.clearLocked()
	return nil
}

// recoverLocked is run once at mount. If a committed transaction was left
// behind by a crash between commit and clear, it is replayed; an
// uncommitted (staged but not completed) transaction is simply discarded by
// clearing, per spec.md §2's restart rule.
func (j journal) recoverLocked() error {
	if j.completed() == 0 {
		j.clearLocked()
		return nil
	}
	log.WithField("session", j.fs.session).Warn("ospfs: replaying committed journal transaction found at mount")
	if err := j.applyLocked(); err != nil {
		return err
	}
	j.clearLocked()
	return nil
}

// applyLocked performs the replay table of spec.md §4.5 against the current
// header contents. Idempotent: replaying an already-applied header (opKind
// reset to EMPTY) is a no-op, which is what makes exactly-once-apply safe to
// call again after a crash mid-apply.
func (j journal) applyLocked() error {
	h := j.readHeader()
	bm := j.fs.bitmap()

	switch h.OpKind {
	case JournalEmpty:
		return nil

	case JournalWrite:
		list := j.blocknoList()
		for i := uint32(0); i < h.NBlocks; i++ {
			copy(j.fs.store.Block(list[i]), j.dataSlot(int(i)))
		}

	case JournalAlloc:
		list := j.blocknoList()
		for i := uint32(0); i < h.NBlocks; i++ {
			bm.markAllocated(list[i])
		}
		if h.ResizeFlags&flagIndirectTouched != 0 {
			bm.markAllocated(h.IndirectBlockno)
			copy(j.fs.store.Block(h.IndirectBlockno), j.savedIndirect())
		}
		if h.ResizeFlags&flagIndirect2Touched != 0 {
			bm.markAllocated(h.Indirect2Blockno)
			copy(j.fs.store.Block(h.Indirect2Blockno), j.savedIndirect2())
		}
		i := h.Inode
		i.fs = j.fs
		i.Num = h.InodeNo
		i.writeBack()

	case JournalFree:
		if h.ResizeFlags&flagIndirect2Touched != 0 {
			bm.markFree(h.Indirect2Blockno)
		} else if h.Indirect2Blockno != 0 {
			copy(j.fs.store.Block(h.Indirect2Blockno), j.savedIndirect2())
		}
		if h.ResizeFlags&flagIndirectTouched != 0 {
			bm.markFree(h.IndirectBlockno)
		} else if h.IndirectBlockno != 0 {
			copy(j.fs.store.Block(h.IndirectBlockno), j.savedIndirect())
		}
		list := j.blocknoList()
		for i := uint32(0); i < h.NBlocks; i++ {
			bm.markFree(list[i])
		}
		i := h.Inode
		i.fs = j.fs
		i.Num = h.InodeNo
		i.writeBack()

	case JournalCreate, JournalHardlink:
		i := h.Inode
		i.fs = j.fs
		i.Num = h.InodeNo
		i.writeBack()
		copy(j.fs.store.Block(h.DirDataBlockno), j.dataSlot(0))

	case JournalSymlink:
		i := h.Inode
		i.fs = j.fs
		i.Num = h.InodeNo
		i.writeBack()
		if h.DirDataBlockno != 0 {
			copy(j.fs.store.Block(h.DirDataBlockno), j.dataSlot(0))
		}
	}

	return nil
}
