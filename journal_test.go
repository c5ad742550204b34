package ospfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestJournalReplayIsIdempotent covers spec.md §4.5's exactly-once-apply
// property: applying an already-applied (opKind reset to EMPTY) header a
// second time is a safe no-op.
func TestJournalReplayIsIdempotent(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.create(RootIno, "f", 0644)
	require.NoError(t, err)
	require.NoError(t, fsys.changeSize(ino, 10*testBlockSize))

	j := fsys.journal()
	require.NoError(t, j.applyLocked())
	require.NoError(t, j.applyLocked())

	inode := fsys.inodeLocked(ino)
	require.Equal(t, uint32(10*testBlockSize), inode.Size)
}

// TestRecoverReplaysCommittedTransaction simulates a crash between the
// commit barrier flipping and the post-apply clear: a committed header left
// in the journal is replayed exactly once the next time the image is
// mounted via Open, the actual restart path (not just recoverLocked called
// in-process on a FileSystem that never unmounted).
func TestRecoverReplaysCommittedTransaction(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.create(RootIno, "f", 0644)
	require.NoError(t, err)

	inode := fsys.inodeLocked(ino)
	j := fsys.journal()
	freeBlock := fsys.super.NBlocks - 1
	j.setBlockno(0, freeBlock)
	staged := inode.clone()
	staged.Direct[0] = freeBlock
	staged.setSize(testBlockSize)

	h := journalHeader{
		OpKind:          JournalAlloc,
		InodeNo:         ino,
		Inode:           *staged,
		NBlocks:         1,
		IndirectBlockno: 0,
	}
	j.writeHeader(h)
	// Flip the commit barrier without running applyLocked/clearLocked,
	// simulating a crash right after commit but before apply.
	j.setCompleted(1)

	// Restart: mount the same backing store fresh, as a real remount would.
	reopened, err := Open(fsys.store)
	require.NoError(t, err)

	got := reopened.inodeLocked(ino)
	require.Equal(t, uint32(testBlockSize), got.Size)
	require.Equal(t, freeBlock, got.Direct[0])

	// Journal is clear afterward.
	require.Equal(t, JournalEmpty, reopened.journal().readHeader().OpKind)
}

// TestRecoverDiscardsUncommittedTransaction covers the other half of
// spec.md §2's restart rule: a staged-but-never-committed header (completed
// still 0) is simply cleared, never applied, at the next real Open.
func TestRecoverDiscardsUncommittedTransaction(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.create(RootIno, "f", 0644)
	require.NoError(t, err)

	inode := fsys.inodeLocked(ino)
	staged := inode.clone()
	staged.setSize(99 * testBlockSize)

	j := fsys.journal()
	j.writeHeader(journalHeader{OpKind: JournalAlloc, InodeNo: ino, Inode: *staged, NBlocks: 0})

	reopened, err := Open(fsys.store)
	require.NoError(t, err)

	got := reopened.inodeLocked(ino)
	require.NotEqual(t, uint32(99*testBlockSize), got.Size)
	require.Equal(t, JournalEmpty, reopened.journal().readHeader().OpKind)
}
