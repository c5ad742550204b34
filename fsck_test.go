package ospfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFsckCleanAfterMixedOperations covers invariants 1 and 2 together:
// after a sequence of create/write/grow/shrink/unlink/symlink operations,
// Fsck reports no problems.
func TestFsckCleanAfterMixedOperations(t *testing.T) {
	fsys := newTestFS(t)

	a, err := fsys.Create(RootIno, "a", 0644)
	require.NoError(t, err)
	_, err = fsys.Write(a, bytes.NewReader(bytes.Repeat([]byte{1}, 50*testBlockSize)), 0, 50*testBlockSize, false)
	require.NoError(t, err)

	b, err := fsys.Create(RootIno, "b", 0644)
	require.NoError(t, err)
	_, err = fsys.Write(b, bytes.NewReader(bytes.Repeat([]byte{2}, 5*testBlockSize)), 0, 5*testBlockSize, false)
	require.NoError(t, err)

	require.NoError(t, fsys.Symlink(RootIno, "link", "a"))
	require.NoError(t, fsys.Link(a, RootIno, "a-alias"))
	require.NoError(t, fsys.Unlink(RootIno, "b"))

	problems := fsys.Fsck()
	require.Empty(t, problems, "%v", problems)
}
