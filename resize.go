package ospfs

// resizeRequest stages the running state of one bounded batch of the grow
// or shrink algorithm. Its fields mirror the journal header's resize fields
// exactly (spec.md §3), so a completed request serializes directly into a
// journalHeader at commit time.
type resizeRequest struct {
	N                uint32
	IndirectBlockno  uint32
	Indirect2Blockno uint32
	ResizeFlags      uint32
}

// changeSize implements spec.md §4.4's public contract: on success, ino's
// size equals newSize and exactly ceil(newSize/B) blocks are reachable
// through its chain. Work proceeds in MAX_BATCH-bounded rounds, each staged
// and committed as a single journal transaction, so a crash mid-resize
// leaves the file at the size achieved by the last completed round.
func (fs *FileSystem) changeSize(ino uint32, newSize uint32) error {
	if uint64(newSize) > fs.maxFileSize() {
		return ErrNoSpace
	}

	for {
		inode := fs.inodeLocked(ino)
		switch {
		case inode.Size == newSize:
			return nil
		case inode.Size < newSize:
			reached, err := fs.growRound(inode, newSize)
			if err != nil {
				return err
			}
			if reached {
				return nil
			}
		default:
			reached, err := fs.shrinkRound(inode, newSize)
			if err != nil {
				return err
			}
			if reached {
				return nil
			}
		}
	}
}

// growRound stages and commits at most one MAX_BATCH-bounded round of block
// additions, per spec.md §4.4's grow algorithm. It returns true when newSize
// has been fully reached (whether by this round's commit or because no
// further progress is possible, e.g. -NOSPC).
func (fs *FileSystem) growRound(inode *Inode, newSize uint32) (bool, error) {
	b := fs.blockSize()
	ni := fs.ni()
	targetBlocks := size2nblocks(newSize, b)

	staged := inode.clone()
	req := resizeRequest{}
	list := make([]uint32, 0, MaxBatch)

	startQ := staged.NBlocks()
	i2idx, iIdx, _ := fs.classify(startQ)
	var ind2Scratch, indScratch []uint32
	if i2idx == 0 && staged.Indir2 != 0 {
		ind2Scratch = fs.indirectBlock(staged.Indir2)
	} else {
		ind2Scratch = make([]uint32, ni)
	}
	var curIndBlockno uint32
	switch {
	case iIdx < 0:
		indScratch = make([]uint32, ni)
	case i2idx == 0:
		curIndBlockno = ind2Scratch[iIdx]
	default:
		curIndBlockno = staged.Indir
	}
	if curIndBlockno != 0 {
		indScratch = fs.indirectBlock(curIndBlockno)
	} else if indScratch == nil {
		indScratch = make([]uint32, ni)
	}

	lower, upper := fs.super.FirstDataB-1, fs.super.FirstDataB

	for req.N < MaxBatch && staged.NBlocks() < targetBlocks {
		q := staged.NBlocks()
		i2idx, iIdx, dIdx := fs.classify(q)

		needNewIndirect2 := i2idx == 0 && iIdx == 0 && dIdx == 0
		needNewIndirect := iIdx >= 0 && dIdx == 0

		if (needNewIndirect2 || needNewIndirect) && req.N != 0 {
			// abandon this pick; it becomes the first entry of the next round.
			break
		}

		dataBlockno, ok := fs.bitmap().findFree(lower, upper)
		if !ok {
			if req.N == 0 {
				return true, ErrNoSpace
			}
			if err := fs.commitGrowRound(staged, req, list, ind2Scratch, indScratch); err != nil {
				return true, err
			}
			return true, ErrNoSpace
		}
		lower, upper = dataBlockno, dataBlockno+1

		if needNewIndirect2 {
			newInd2, ok := fs.bitmap().findFree(lower, upper)
			if !ok {
				return true, ErrNoSpace
			}
			lower, upper = newInd2, newInd2+1
			staged.Indir2 = newInd2
			req.Indirect2Blockno = newInd2
			req.ResizeFlags |= flagIndirect2Touched
			ind2Scratch = make([]uint32, ni)
		}

		if needNewIndirect {
			newInd, ok := fs.bitmap().findFree(lower, upper)
			if !ok {
				return true, ErrNoSpace
			}
			lower, upper = newInd, newInd+1
			if i2idx == 0 {
				ind2Scratch[iIdx] = newInd
				if req.Indirect2Blockno == 0 {
					req.Indirect2Blockno = staged.Indir2
				}
				req.ResizeFlags |= flagIndirect2Touched
			} else {
				staged.Indir = newInd
			}
			req.IndirectBlockno = newInd
			req.ResizeFlags |= flagIndirectTouched
			indScratch = make([]uint32, ni)
		}

		if iIdx >= 0 {
			indScratch[dIdx] = dataBlockno
			req.ResizeFlags |= flagIndirectTouched
			if req.IndirectBlockno == 0 {
				if i2idx == 0 {
					req.IndirectBlockno = ind2Scratch[iIdx]
				} else {
					req.IndirectBlockno = staged.Indir
				}
			}
		} else {
			staged.Direct[dIdx] = dataBlockno
		}

		list = append(list, dataBlockno)
		req.N++
		staged.setSize(staged.Size + b)
	}

	if staged.NBlocks() >= targetBlocks {
		staged.setSize(newSize)
	}

	if err := fs.commitGrowRound(staged, req, list, ind2Scratch, indScratch); err != nil {
		return true, err
	}
	return staged.Size == newSize, nil
}

func (fs *FileSystem) commitGrowRound(staged *Inode, req resizeRequest, list []uint32, ind2Scratch, indScratch []uint32) error {
	j := fs.journal()
	for i, blockno := range list {
		j.setBlockno(i, blockno)
	}
	if req.ResizeFlags&flagIndirectTouched != 0 {
		j.writeSavedIndirect(indScratch)
	}
	if req.ResizeFlags&flagIndirect2Touched != 0 {
		j.writeSavedIndirect2(ind2Scratch)
	}
	h := journalHeader{
		OpKind:           JournalAlloc,
		InodeNo:          staged.Num,
		Inode:            *staged,
		NBlocks:          req.N,
		IndirectBlockno:  req.IndirectBlockno,
		Indirect2Blockno: req.Indirect2Blockno,
		ResizeFlags:      req.ResizeFlags,
	}
	return j.commitLocked(h)
}

// shrinkRound stages and commits at most one MAX_BATCH-bounded round of
// block removals, per spec.md §4.4's shrink algorithm (symmetric to grow).
// Blocks are freed from the highest index down; crossing into a now-empty
// indirect or doubly-indirect block frees that block too and ends the
// round, since the freed indirect/indirect2 must be reflected in the same
// transaction as the data blocks it held.
//
// The shrink-to-zero edge case (spec.md §9's resolved open question) needs
// no special case here: direct[0] is freed by the same uniform per-block
// loop as every other direct slot, since the loop runs exactly until
// nblocks(size) reaches targetBlocks.
func (fs *FileSystem) shrinkRound(inode *Inode, newSize uint32) (bool, error) {
	b := fs.blockSize()
	targetBlocks := size2nblocks(newSize, b)

	staged := inode.clone()
	req := resizeRequest{}
	list := make([]uint32, 0, MaxBatch)

	var ind2Scratch, indScratch []uint32
	var indBlockno, ind2Blockno uint32
	indDirty, ind2Dirty := false, false
	indFreed, ind2Freed := false, false

	for req.N < MaxBatch && staged.NBlocks() > targetBlocks {
		q := staged.NBlocks() - 1
		i2idx, iIdx, dIdx := fs.classify(q)

		var blockno uint32
		if iIdx < 0 {
			blockno = staged.Direct[dIdx]
			staged.Direct[dIdx] = 0
		} else {
			if i2idx == 0 {
				if ind2Scratch == nil {
					ind2Blockno = staged.Indir2
					ind2Scratch = fs.indirectBlock(ind2Blockno)
				}
				candidate := ind2Scratch[iIdx]
				if indScratch == nil || indBlockno != candidate {
					indBlockno = candidate
					indScratch = fs.indirectBlock(indBlockno)
				}
			} else if indScratch == nil {
				indBlockno = staged.Indir
				indScratch = fs.indirectBlock(indBlockno)
			}
			blockno = indScratch[dIdx]
			indScratch[dIdx] = 0
			indDirty = true
		}

		list = append(list, blockno)
		req.N++
		staged.setSize(staged.Size - b)

		if iIdx >= 0 && dIdx == 0 {
			// the indirect block just emptied out: free it.
			indFreed = true
			if i2idx == 0 && iIdx == 0 {
				ind2Freed = true
				ind2Dirty = true
				staged.Indir2 = 0
			} else if i2idx == 0 {
				ind2Scratch[iIdx] = 0
				ind2Dirty = true
			} else {
				staged.Indir = 0
			}
			break
		}
	}

	if staged.NBlocks() <= targetBlocks {
		staged.setSize(newSize)
	}

	if indDirty {
		req.IndirectBlockno = indBlockno
		if indFreed {
			req.ResizeFlags |= flagIndirectTouched
		}
	}
	if ind2Dirty {
		req.Indirect2Blockno = ind2Blockno
		if ind2Freed {
			req.ResizeFlags |= flagIndirect2Touched
		}
	}

	if err := fs.commitShrinkRound(staged, req, list, ind2Scratch, indScratch); err != nil {
		return true, err
	}
	return staged.Size == newSize, nil
}

func (fs *FileSystem) commitShrinkRound(staged *Inode, req resizeRequest, list []uint32, ind2Scratch, indScratch []uint32) error {
	j := fs.journal()
	for i, blockno := range list {
		j.setBlockno(i, blockno)
	}
	if indScratch != nil {
		j.writeSavedIndirect(indScratch)
	}
	if ind2Scratch != nil {
		j.writeSavedIndirect2(ind2Scratch)
	}
	h := journalHeader{
		OpKind:           JournalFree,
		InodeNo:          staged.Num,
		Inode:            *staged,
		NBlocks:          req.N,
		IndirectBlockno:  req.IndirectBlockno,
		Indirect2Blockno: req.Indirect2Blockno,
		ResizeFlags:      req.ResizeFlags,
	}
	return j.commitLocked(h)
}
