package ospfs

import "strings"

// DirEntry is one entry yielded by Readdir: a name, the inode it names, and
// its type.
type DirEntry struct {
	Name  string
	Ino   uint32
	Ftype FileType
}

// Lookup resolves name within dirIno, per spec.md §6. A negative lookup
// (name not found) is reported as ErrNotExist.
func (fs *FileSystem) Lookup(dirIno uint32, name string) (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.inodeLocked(dirIno)
	entry, _, _, found := fs.findEntry(dir, name)
	if !found {
		return 0, ErrNotExist
	}
	return entry.Ino, nil
}

// Readdir yields '.' at pos 0, '..' at pos 1, then live directory entries
// skipping holes, per spec.md §6. pos is the stream position to resume
// from; the returned nextPos is fed back on the following call. '..'
// reports parentIno exactly as the caller passes it: OSPFS inodes carry no
// parent pointer and the image records none.
func (fs *FileSystem) Readdir(dirIno uint32, parentIno uint32, pos uint32) (entries []DirEntry, nextPos uint32, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.inodeLocked(dirIno)
	if dir.Ftype != FtypeDir {
		return nil, pos, ErrNotDirectory
	}

	if pos == 0 {
		entries = append(entries, DirEntry{Name: ".", Ino: dirIno, Ftype: FtypeDir})
		pos = 1
	}
	if pos == 1 {
		entries = append(entries, DirEntry{Name: "..", Ino: parentIno, Ftype: FtypeDir})
		pos = 2
	}

	perBlock := uint32(fs.entriesPerBlock())
	b := fs.blockSize()
	slot := pos - 2
	for {
		k := slot / perBlock
		if k >= dir.NBlocks() {
			break
		}
		bn := dir.blockno(k * b)
		if bn != 0 {
			off := int(slot%perBlock) * EntrySize
			block := fs.store.Block(bn)
			e := decodeDirEntry(block[off : off+EntrySize])
			if e.Ino != 0 {
				target := fs.inodeLocked(e.Ino)
				entries = append(entries, DirEntry{Name: e.Name, Ino: e.Ino, Ftype: target.Ftype})
			}
		}
		slot++
	}
	return entries, slot + 2, nil
}

// Create makes a new regular file named name in dirIno, per spec.md §4.6/§6.
func (fs *FileSystem) Create(dirIno uint32, name string, mode uint32) (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.create(dirIno, name, mode)
}

// CreateDir makes a new subdirectory named name in dirIno. Not part of the
// minimal §6 surface (directory trees are built one file at a time there),
// but needed by mkfs.go to populate an image from a host directory tree.
func (fs *FileSystem) CreateDir(dirIno uint32, name string, mode uint32) (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.createTyped(dirIno, name, mode, FtypeDir)
}

// Link adds name in dirIno as a second reference to srcIno, per spec.md §6.
func (fs *FileSystem) Link(srcIno uint32, dirIno uint32, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.link(dirIno, name, srcIno)
}

// Unlink removes name from dirIno, per spec.md §6.
func (fs *FileSystem) Unlink(dirIno uint32, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.unlink(dirIno, name)
}

// Symlink creates a symbolic link named name in dirIno pointing at target,
// per spec.md §6.
func (fs *FileSystem) Symlink(dirIno uint32, name, target string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.symlink(dirIno, name, target)
}

// Setattr applies a size and/or mode change to ino, per spec.md §6's
// setattr rule (recovered from original_source/ospfsmod.c's
// ospfs_notify_change): size routes through changeSize, mode is a direct
// field write. Directories reject size changes with ErrPermission.
func (fs *FileSystem) Setattr(ino uint32, size *uint32, mode *uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	inode := fs.inodeLocked(ino)
	if size != nil {
		if inode.Ftype == FtypeDir {
			return ErrPermission
		}
		if err := fs.changeSize(ino, *size); err != nil {
			return err
		}
	}
	if mode != nil {
		inode = fs.inodeLocked(ino)
		inode.Mode = *mode
		inode.writeBack()
	}
	return nil
}

// Followlink returns the target text stored in a symlink inode, per
// spec.md §6: a "root?" prefix returns the bytes after it when euid is 0,
// otherwise the bytes after the first internal NUL (the "B" side of a
// root?A:B conditional link).
func (fs *FileSystem) Followlink(ino uint32, euid uint32) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	inode := fs.inodeLocked(ino)
	if inode.Ftype != FtypeSymlink {
		return "", ErrIO
	}
	target := string(inode.symlinkBytes())

	const prefix = "root?"
	if !strings.HasPrefix(target, prefix) {
		return target, nil
	}
	idx := strings.IndexByte(target, 0)
	if idx < 0 {
		// no rewritten ':' found at symlink-creation time; fall back to the
		// whole suffix for both sides.
		return target[len(prefix):], nil
	}
	a := target[len(prefix):idx]
	if euid == 0 {
		return a, nil
	}
	rest := target[idx+1:]
	if end := strings.IndexByte(rest, 0); end >= 0 {
		rest = rest[:end]
	}
	return rest, nil
}
