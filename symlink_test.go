package ospfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSymlinkPlainTarget covers the non-conditional case: the stored target
// text round-trips unchanged through Followlink regardless of euid.
func TestSymlinkPlainTarget(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, fsys.Symlink(RootIno, "link", "/etc/passwd"))

	for _, euid := range []uint32{0, 1000} {
		target, err := fsys.Followlink(fsys.mustLookup(t, "link"), euid)
		require.NoError(t, err)
		require.Equal(t, "/etc/passwd", target)
	}
}

// TestSymlinkRootConditional covers spec.md §3/§4.6's root?A:B convention:
// root (euid 0) follows the A side, everyone else follows B.
func TestSymlinkRootConditional(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, fsys.Symlink(RootIno, "link", "root?/root/secret:/home/shared"))

	ino := fsys.mustLookup(t, "link")

	asRoot, err := fsys.Followlink(ino, 0)
	require.NoError(t, err)
	require.Equal(t, "/root/secret", asRoot)

	asUser, err := fsys.Followlink(ino, 1000)
	require.NoError(t, err)
	require.Equal(t, "/home/shared", asUser)
}

// TestSymlinkTargetTooLong covers the inline-storage capacity boundary.
func TestSymlinkTargetTooLong(t *testing.T) {
	fsys := newTestFS(t)
	target := make([]byte, symlinkCapacity+1)
	for i := range target {
		target[i] = 'a'
	}
	err := fsys.Symlink(RootIno, "link", string(target))
	require.ErrorIs(t, err, ErrNameTooLong)
}

// TestUnlinkSymlinkDoesNotShrink covers dir.go's unlink branch for
// symlinks: there is no data chain to free via changeSize, only the inline
// fields to clear.
func TestUnlinkSymlinkDoesNotShrink(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, fsys.Symlink(RootIno, "link", "target"))
	require.NoError(t, fsys.Unlink(RootIno, "link"))

	_, err := fsys.Lookup(RootIno, "link")
	require.ErrorIs(t, err, ErrNotExist)
}

func (fsys *FileSystem) mustLookup(t *testing.T, name string) uint32 {
	t.Helper()
	ino, err := fsys.Lookup(RootIno, name)
	require.NoError(t, err)
	return ino
}
