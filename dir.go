package ospfs

import (
	"bytes"
	"strings"
)

// dirEntry is the in-memory view of one ENTRY_SIZE-stride directory slot.
type dirEntry struct {
	Ino  uint32
	Name string
}

func decodeDirEntry(buf []byte) dirEntry {
	ino := le32(buf[:4])
	nameBuf := buf[4:EntrySize]
	n := bytes.IndexByte(nameBuf, 0)
	if n < 0 {
		n = len(nameBuf)
	}
	return dirEntry{Ino: ino, Name: string(nameBuf[:n])}
}

func encodeDirEntry(buf []byte, e dirEntry) {
	putLe32(buf[:4], e.Ino)
	nameBuf := buf[4:EntrySize]
	for i := range nameBuf {
		nameBuf[i] = 0
	}
	copy(nameBuf, e.Name)
}

func (fs *FileSystem) entriesPerBlock() int {
	return int(fs.blockSize()) / EntrySize
}

// findEntry linear-scans dir's data bytes at ENTRY_SIZE stride, per
// spec.md §4.6: a match requires a non-zero inode number, equal length, and
// a byte-equal name (decodeDirEntry already trims at the first NUL, giving
// byte-exact comparison rather than C-string comparison of the full field).
func (fs *FileSystem) findEntry(dir *Inode, name string) (entry dirEntry, blockno uint32, offset int, found bool) {
	perBlock := fs.entriesPerBlock()
	b := fs.blockSize()
	for k := uint32(0); k < dir.NBlocks(); k++ {
		bn := dir.blockno(k * b)
		if bn == 0 {
			continue
		}
		block := fs.store.Block(bn)
		for slot := 0; slot < perBlock; slot++ {
			off := slot * EntrySize
			e := decodeDirEntry(block[off : off+EntrySize])
			if e.Ino != 0 && e.Name == name {
				return e, bn, off, true
			}
		}
	}
	return dirEntry{}, 0, 0, false
}

// findBlankEntry returns the first ino==0 slot in dirIno's data, growing the
// directory by exactly one zeroed block via changeSize if none exists, per
// spec.md §4.6.
func (fs *FileSystem) findBlankEntry(dirIno uint32) (blockno uint32, offset int, err error) {
	perBlock := fs.entriesPerBlock()
	b := fs.blockSize()

	dir := fs.inodeLocked(dirIno)
	nblocks := dir.NBlocks()
	for k := uint32(0); k < nblocks; k++ {
		bn := dir.blockno(k * b)
		if bn == 0 {
			continue
		}
		block := fs.store.Block(bn)
		for slot := 0; slot < perBlock; slot++ {
			off := slot * EntrySize
			if le32(block[off:off+4]) == 0 {
				return bn, off, nil
			}
		}
	}

	if err := fs.changeSize(dirIno, dir.Size+b); err != nil {
		return 0, 0, err
	}
	dir = fs.inodeLocked(dirIno)
	bn := dir.blockno(nblocks * b)
	if bn == 0 {
		return 0, 0, ErrIO
	}
	block := fs.store.Block(bn)
	for i := range block {
		block[i] = 0
	}
	return bn, 0, nil
}

func (fs *FileSystem) findFreeInode() (uint32, bool) {
	for ino := uint32(1); ino < fs.super.NInodes; ino++ {
		if fs.inodeLocked(ino).Free() {
			return ino, true
		}
	}
	return 0, false
}

// stageDirEntryBlock loads blockno's current contents, overwrites the
// ENTRY_SIZE-wide slot at offset with e, and returns the full-block
// post-image to go into journal data slot 0 for CREATE/HARDLINK/SYMLINK.
func (fs *FileSystem) stageDirEntryBlock(blockno uint32, offset int, e dirEntry) []byte {
	buf := make([]byte, fs.blockSize())
	copy(buf, fs.store.Block(blockno))
	encodeDirEntry(buf[offset:offset+EntrySize], e)
	return buf
}

// link adds a second name for an existing inode, per spec.md §4.6.
func (fs *FileSystem) link(dirIno uint32, name string, targetIno uint32) error {
	if len(name) > NameLen {
		return ErrNameTooLong
	}
	dir := fs.inodeLocked(dirIno)
	if _, _, _, found := fs.findEntry(dir, name); found {
		return ErrExist
	}

	blockno, offset, err := fs.findBlankEntry(dirIno)
	if err != nil {
		return err
	}

	staged := fs.inodeLocked(targetIno).clone()
	staged.NLink++

	j := fs.journal()
	copy(j.dataSlot(0), fs.stageDirEntryBlock(blockno, offset, dirEntry{Ino: targetIno, Name: name}))

	return j.commitLocked(journalHeader{
		OpKind:         JournalHardlink,
		InodeNo:        staged.Num,
		Inode:          *staged,
		DirDataBlockno: blockno,
	})
}

// create allocates a fresh inode and a name for it, per spec.md §4.6.
func (fs *FileSystem) create(dirIno uint32, name string, mode uint32) (uint32, error) {
	return fs.createTyped(dirIno, name, mode, FtypeReg)
}

// createTyped is create generalized over file type, so mkfs.go's directory
// creation can share the same blank-entry/free-inode/CREATE-commit path
// instead of patching a regular-file inode after the fact.
func (fs *FileSystem) createTyped(dirIno uint32, name string, mode uint32, ftype FileType) (uint32, error) {
	if len(name) > NameLen {
		return 0, ErrNameTooLong
	}
	dir := fs.inodeLocked(dirIno)
	if _, _, _, found := fs.findEntry(dir, name); found {
		return 0, ErrExist
	}

	newIno, ok := fs.findFreeInode()
	if !ok {
		return 0, ErrNoSpace
	}

	blockno, offset, err := fs.findBlankEntry(dirIno)
	if err != nil {
		return 0, err
	}

	staged := fs.inodeLocked(newIno)
	staged.Ftype = ftype
	staged.Mode = mode
	staged.NLink = 1
	staged.setSize(0)
	staged.Direct = [NDirect]uint32{}
	staged.Indir = 0
	staged.Indir2 = 0

	j := fs.journal()
	copy(j.dataSlot(0), fs.stageDirEntryBlock(blockno, offset, dirEntry{Ino: newIno, Name: name}))

	if err := j.commitLocked(journalHeader{
		OpKind:         JournalCreate,
		InodeNo:        newIno,
		Inode:          *staged,
		DirDataBlockno: blockno,
	}); err != nil {
		return 0, err
	}
	return newIno, nil
}

// unlink removes name from dirIno, per spec.md §4.6. The directory-entry
// write is a single aligned word and applies directly without a journal
// transaction; freeing the target's blocks (when its link count reaches
// zero) goes through the regular changeSize path, which is itself
// journaled.
func (fs *FileSystem) unlink(dirIno uint32, name string) error {
	dir := fs.inodeLocked(dirIno)
	entry, blockno, offset, found := fs.findEntry(dir, name)
	if !found {
		return ErrNotExist
	}

	block := fs.store.Block(blockno)
	putLe32(block[offset:offset+4], 0)

	target := fs.inodeLocked(entry.Ino)
	target.NLink--
	if target.Ftype == FtypeSymlink {
		target.Direct = [NDirect]uint32{}
		target.Indir = 0
		target.Indir2 = 0
		target.setSize(0)
	}
	freeNow := target.NLink == 0
	target.writeBack()

	if freeNow && target.Ftype != FtypeSymlink {
		return fs.changeSize(entry.Ino, 0)
	}
	return nil
}

// rewriteRootConditional implements spec.md §3/§4.6's root?A:B convention:
// a target beginning with the literal "root?" has its first subsequent ':'
// replaced by a single NUL and gets a trailing NUL appended, so the stored
// form is "root?A\0B\0".
func rewriteRootConditional(target string) string {
	const prefix = "root?"
	if !strings.HasPrefix(target, prefix) {
		return target
	}
	rest := target[len(prefix):]
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return target
	}
	b := []byte(target)
	b[len(prefix)+idx] = 0
	return string(b) + "\x00"
}

// symlink creates a symbolic link entry, per spec.md §4.6.
func (fs *FileSystem) symlink(dirIno uint32, name, target string) error {
	if len(name) > NameLen {
		return ErrNameTooLong
	}
	dir := fs.inodeLocked(dirIno)
	if _, _, _, found := fs.findEntry(dir, name); found {
		return ErrExist
	}

	rewritten := rewriteRootConditional(target)
	if len(rewritten) > symlinkCapacity {
		return ErrNameTooLong
	}

	newIno, ok := fs.findFreeInode()
	if !ok {
		return ErrNoSpace
	}

	blockno, offset, err := fs.findBlankEntry(dirIno)
	if err != nil {
		return err
	}

	staged := fs.inodeLocked(newIno)
	staged.Ftype = FtypeSymlink
	staged.Mode = 0777
	staged.NLink = 1
	staged.setSymlinkBytes([]byte(rewritten))

	j := fs.journal()
	copy(j.dataSlot(0), fs.stageDirEntryBlock(blockno, offset, dirEntry{Ino: newIno, Name: name}))

	return j.commitLocked(journalHeader{
		OpKind:         JournalSymlink,
		InodeNo:        newIno,
		Inode:          *staged,
		DirDataBlockno: blockno,
	})
}
