package ospfs

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jacobsa/syncutil"
)

// FileSystem is a mounted ospfs image: a block store plus the superblock
// view over it, guarded by a single exclusive lock. spec.md §5 requires
// every core operation to run under one lock with no reader/writer split;
// syncutil.InvariantMutex (the dependency gcsfuse carries and the pattern
// other_examples' in-pack FUSE memfs reference uses) gives that lock a
// checkInvariants hook that runs before/after every critical section in
// debug builds, catching an invariant violation at the operation that
// introduced it rather than downstream.
type FileSystem struct {
	mu syncutil.InvariantMutex // GUARDED_BY: guards everything below

	store BlockStore
	super Superblock

	// session is a per-mount id used only to correlate log lines across a
	// single FileSystem's lifetime; it is never written to the image.
	session uuid.UUID
}

// Open mounts an existing ospfs image backed by store. It validates the
// superblock and replays any committed-but-unapplied journal transaction,
// per spec.md §7's crash-recovery rule.
func Open(store BlockStore) (*FileSystem, error) {
	var sb Superblock
	if err := sb.UnmarshalBinary(store.Block(superBlock)); err != nil {
		return nil, err
	}

	fs := &FileSystem{
		store:   store,
		super:   sb,
		session: uuid.New(),
	}
	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)

	log.WithFields(map[string]interface{}{
		"session": fs.session,
		"nblocks": sb.NBlocks,
		"ninodes": sb.NInodes,
	}).Debug("ospfs: mounted image")

	fs.mu.Lock()
	err := fs.journal().recoverLocked()
	fs.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("ospfs: journal recovery: %w", err)
	}
	return fs, nil
}

// Format initializes a fresh image in store: writes the superblock, zeroes
// the bitmap with reserved blocks marked allocated and data blocks marked
// free, zeroes the inode table, clears the journal, and creates the root
// directory inode. ninodes and store's block count/size determine the
// layout (see layout() in super.go).
func Format(store BlockStore, ninodes uint32) (*FileSystem, error) {
	sb := layout(store.NBlocks(), ninodes, store.BlockSize())

	buf, err := sb.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(store.Block(superBlock), buf)

	fs := &FileSystem{
		store:   store,
		super:   sb,
		session: uuid.New(),
	}
	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	bm := fs.bitmap()
	for b := uint32(0); b < sb.NBlocks; b++ {
		if b < sb.FirstDataB {
			bm.clear(b)
		} else {
			bm.set(b)
		}
	}

	for b := sb.FirstInoB; b < sb.FirstJourB; b++ {
		block := store.Block(b)
		for i := range block {
			block[i] = 0
		}
	}

	fs.journal().clearLocked()

	root := fs.inodeLocked(RootIno)
	root.setSize(0)
	root.Ftype = FtypeDir
	root.Mode = 0755
	root.NLink = 1
	root.writeBack()

	log.WithField("session", fs.session).Info("ospfs: formatted new image")
	return fs, nil
}

func (fs *FileSystem) blockSize() uint32 {
	return fs.store.BlockSize()
}

// Superblock returns a copy of the mounted image's layout header, for
// introspection tools (see cmd/ospfsctl's info command).
func (fs *FileSystem) Superblock() Superblock {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.super
}

// checkInvariants walks the superblock fields declared in spec.md §3 and
// panics on the first violation found, per the invariant-mutex pattern. It
// is intentionally cheap: a bounds check on the fixed superblock fields, not
// a full chain/bitmap walk (that full check is Fsck's job in fsck.go and
// the test suite, run explicitly rather than on every lock/unlock).
func (fs *FileSystem) checkInvariants() {
	sb := fs.super
	if sb.MagicVal != Magic {
		panic("ospfs: superblock magic corrupted")
	}
	if sb.FirstDataB <= sb.FirstJourB+sb.NJournalB {
		panic("ospfs: superblock layout corrupted: data region overlaps journal")
	}
	if sb.NJournalB != JournalBlocks {
		panic("ospfs: superblock layout corrupted: journal size mismatch")
	}
}
