package ospfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestChangeSizeChainIntegrity covers invariant 1: after changeSize returns,
// exactly ceil(size/B) blocks are reachable through the inode's chain, and
// NBlocks() reports that count.
func TestChangeSizeChainIntegrity(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.create(RootIno, "f", 0644)
	require.NoError(t, err)

	for _, size := range []uint32{0, 10, testBlockSize, 100 * testBlockSize, 300} {
		require.NoError(t, fsys.changeSize(ino, size))
		inode := fsys.inodeLocked(ino)
		require.Equal(t, size, inode.Size)
		want := size2nblocks(size, testBlockSize)
		require.Equal(t, want, inode.NBlocks())
		for q := uint32(0); q < want; q++ {
			require.NotZero(t, inode.blockno(q*testBlockSize), "block index %d", q)
		}
	}
}

// TestGrowCrossesIndirectBoundary exercises S1: growing past NDirect blocks
// allocates an indirect block, and growing past NDirect+NI allocates a
// doubly-indirect block, both reachable afterward.
func TestGrowCrossesIndirectBoundary(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.create(RootIno, "big", 0644)
	require.NoError(t, err)

	ni := fsys.ni()
	target := (NDirect + ni + 1) * testBlockSize
	require.NoError(t, fsys.changeSize(ino, target))

	inode := fsys.inodeLocked(ino)
	require.NotZero(t, inode.Indir)
	require.NotZero(t, inode.Indir2)
	require.Equal(t, size2nblocks(target, testBlockSize), inode.NBlocks())
}

// TestShrinkToZeroFreesEverything covers S2 and the resolved direct[0]
// open question: shrinking a file that spans direct+indirect+indirect2
// blocks back to zero leaves no reachable blocks and frees Indir/Indir2.
func TestShrinkToZeroFreesEverything(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.create(RootIno, "big", 0644)
	require.NoError(t, err)

	ni := fsys.ni()
	require.NoError(t, fsys.changeSize(ino, (NDirect+ni+2)*testBlockSize))
	require.NoError(t, fsys.changeSize(ino, 0))

	inode := fsys.inodeLocked(ino)
	require.Zero(t, inode.Size)
	require.Zero(t, inode.Indir)
	require.Zero(t, inode.Indir2)
	for _, d := range inode.Direct {
		require.Zero(t, d)
	}
}

// TestAllocatorMonotonicWithinBatch checks that a single grow round's data
// block numbers are strictly increasing, per spec.md §4.2's batch
// allocation rule (the (lower, upper) running-bound discipline in
// growRound).
func TestAllocatorMonotonicWithinBatch(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.create(RootIno, "f", 0644)
	require.NoError(t, err)

	inode := fsys.inodeLocked(ino)
	reached, err := fsys.growRound(inode, 5*testBlockSize)
	require.NoError(t, err)
	require.True(t, reached)

	inode = fsys.inodeLocked(ino)
	var prev uint32
	for q := uint32(0); q < inode.NBlocks(); q++ {
		bn := inode.blockno(q * testBlockSize)
		require.Greater(t, bn, prev)
		prev = bn
	}
}

// TestChangeSizeNoSpaceLeavesNoSideEffects covers spec.md §9's zero-side-
// effect guarantee for an over-budget grow request: maxFileSize is exceeded
// before any block is touched.
func TestChangeSizeNoSpaceLeavesNoSideEffects(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.create(RootIno, "f", 0644)
	require.NoError(t, err)

	before := fsys.inodeLocked(ino).clone()
	err = fsys.changeSize(ino, uint32(fsys.maxFileSize())+testBlockSize)
	require.ErrorIs(t, err, ErrNoSpace)

	after := fsys.inodeLocked(ino)
	require.Equal(t, before.Size, after.Size)
}

// TestChangeSizeExhaustedDataRegionReturnsNoSpace covers spec.md §8's
// scenario S3 literally: fill every free data block, then attempt to grow
// further. findFree must wrap all the way to block 0 and genuinely exhaust
// the scan, reporting ErrNoSpace instead of cycling forever through the
// already-fully-allocated data range.
func TestChangeSizeExhaustedDataRegionReturnsNoSpace(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.create(RootIno, "f", 0644)
	require.NoError(t, err)

	avail := fsys.super.NBlocks - fsys.super.FirstDataB
	err = fsys.changeSize(ino, (avail+10)*testBlockSize)
	require.ErrorIs(t, err, ErrNoSpace)

	// The data region is now (at least almost) full; a further grow request
	// must still return promptly with ErrNoSpace rather than hang.
	before := fsys.inodeLocked(ino).Size
	err = fsys.changeSize(ino, before+2*testBlockSize)
	require.ErrorIs(t, err, ErrNoSpace)
}
