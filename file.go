package ospfs

import "io"

// Read implements spec.md §4.7: copies min(count, inode.size-pos) bytes
// starting at pos into w, one block at a time, reporting ErrIO if the chain
// yields a zero blockno mid-stream and ErrFault if the copy into w fails.
func (fs *FileSystem) Read(ino uint32, w io.Writer, pos uint32, count uint32) (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	inode := fs.inodeLocked(ino)
	if pos >= inode.Size {
		return 0, nil
	}
	remaining := count
	if avail := inode.Size - pos; remaining > avail {
		remaining = avail
	}

	b := fs.blockSize()
	var copied uint32
	for remaining > 0 {
		blockno := inode.blockno(pos)
		if blockno == 0 {
			return copied, ErrIO
		}
		inBlock := pos % b
		chunk := b - inBlock
		if chunk > remaining {
			chunk = remaining
		}
		block := fs.store.Block(blockno)
		n, err := w.Write(block[inBlock : inBlock+chunk])
		copied += uint32(n)
		if err != nil || uint32(n) != chunk {
			return copied, ErrFault
		}
		pos += chunk
		remaining -= chunk
	}
	return copied, nil
}

// Write implements spec.md §4.7. If appendMode is set pos is forced to the
// current size; a write that extends past the current size grows the file
// first via changeSize. The user's bytes are staged into scratch block
// images and committed in WRITE journal batches of up to MAX_BATCH data
// slots, flushing a partial batch at the end; within a batch, data slots
// are written before the block-number list, which is written before the
// commit barrier, per spec.md's stated WRITE commit ordering (already the
// order commitLocked's caller contract enforces: stage data+list, then
// commitLocked flips completed=1).
func (fs *FileSystem) Write(ino uint32, r io.Reader, pos uint32, count uint32, appendMode bool) (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	inode := fs.inodeLocked(ino)
	if appendMode {
		pos = inode.Size
	}

	if end := uint64(pos) + uint64(count); end > uint64(inode.Size) {
		if end > uint64(^uint32(0)) {
			return 0, ErrNoSpace
		}
		if err := fs.changeSize(ino, uint32(end)); err != nil {
			return 0, err
		}
		inode = fs.inodeLocked(ino)
	}

	b := fs.blockSize()
	j := fs.journal()
	list := make([]uint32, 0, MaxBatch)

	flush := func() error {
		if len(list) == 0 {
			return nil
		}
		for i, blockno := range list {
			j.setBlockno(i, blockno)
		}
		err := j.commitLocked(journalHeader{
			OpKind:  JournalWrite,
			InodeNo: ino,
			NBlocks: uint32(len(list)),
		})
		list = list[:0]
		return err
	}

	var copied uint32
	remaining := count
	for remaining > 0 {
		blockno := inode.blockno(pos)
		if blockno == 0 {
			if err := flush(); err != nil {
				return copied, err
			}
			return copied, ErrIO
		}

		inBlockOff := pos % b
		chunk := b - inBlockOff
		if chunk > remaining {
			chunk = remaining
		}

		scratch := make([]byte, b)
		copy(scratch, fs.store.Block(blockno))
		n, err := io.ReadFull(r, scratch[inBlockOff:inBlockOff+chunk])
		copied += uint32(n)
		if err != nil {
			flush()
			return copied, ErrFault
		}
		copy(j.dataSlot(len(list)), scratch)
		list = append(list, blockno)

		pos += chunk
		remaining -= chunk

		if uint32(len(list)) == MaxBatch {
			if err := flush(); err != nil {
				return copied, err
			}
		}
	}

	if err := flush(); err != nil {
		return copied, err
	}
	return copied, nil
}
