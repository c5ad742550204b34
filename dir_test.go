package ospfs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCreateLookupUnlink covers the basic create/lookup/unlink cycle and S5:
// unlink frees the name, and a freed inode is reused by the next create.
func TestCreateLookupUnlink(t *testing.T) {
	fsys := newTestFS(t)

	ino, err := fsys.Create(RootIno, "a.txt", 0644)
	require.NoError(t, err)

	got, err := fsys.Lookup(RootIno, "a.txt")
	require.NoError(t, err)
	require.Equal(t, ino, got)

	require.NoError(t, fsys.Unlink(RootIno, "a.txt"))
	_, err = fsys.Lookup(RootIno, "a.txt")
	require.ErrorIs(t, err, ErrNotExist)

	ino2, err := fsys.Create(RootIno, "b.txt", 0644)
	require.NoError(t, err)
	require.Equal(t, ino, ino2, "freed inode slot should be reused")
}

// TestCreateDuplicateNameFails covers the ErrExist path.
func TestCreateDuplicateNameFails(t *testing.T) {
	fsys := newTestFS(t)
	_, err := fsys.Create(RootIno, "dup", 0644)
	require.NoError(t, err)
	_, err = fsys.Create(RootIno, "dup", 0644)
	require.ErrorIs(t, err, ErrExist)
}

// TestCreateNameTooLong covers the NAMELEN boundary.
func TestCreateNameTooLong(t *testing.T) {
	fsys := newTestFS(t)
	name := make([]byte, NameLen+1)
	for i := range name {
		name[i] = 'x'
	}
	_, err := fsys.Create(RootIno, string(name), 0644)
	require.ErrorIs(t, err, ErrNameTooLong)
}

// TestDirectoryGrowsAcrossBlocks creates enough entries to force the
// directory past entriesPerBlock()*1, exercising findBlankEntry's grow path.
func TestDirectoryGrowsAcrossBlocks(t *testing.T) {
	fsys := newTestFS(t)
	perBlock := fsys.entriesPerBlock()
	n := perBlock*2 + 1

	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("file%d", i)
		_, err := fsys.Create(RootIno, names[i], 0644)
		require.NoError(t, err)
	}

	for _, name := range names {
		_, err := fsys.Lookup(RootIno, name)
		require.NoError(t, err)
	}

	dir := fsys.inodeLocked(RootIno)
	require.GreaterOrEqual(t, dir.NBlocks(), uint32(3))
}

// TestLinkAddsSecondName covers hardlink: both names resolve to the same
// inode and NLink is 2.
func TestLinkAddsSecondName(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.Create(RootIno, "orig", 0644)
	require.NoError(t, err)

	require.NoError(t, fsys.Link(ino, RootIno, "alias"))

	got, err := fsys.Lookup(RootIno, "alias")
	require.NoError(t, err)
	require.Equal(t, ino, got)
	require.Equal(t, uint32(2), fsys.inodeLocked(ino).NLink)

	require.NoError(t, fsys.Unlink(RootIno, "alias"))
	require.Equal(t, uint32(1), fsys.inodeLocked(ino).NLink)

	_, err = fsys.Lookup(RootIno, "orig")
	require.NoError(t, err, "original name still resolves after unlinking the alias")
}

// TestReaddirSynthesizesDotEntries covers spec.md §6's readdir contract.
func TestReaddirSynthesizesDotEntries(t *testing.T) {
	fsys := newTestFS(t)
	_, err := fsys.Create(RootIno, "only", 0644)
	require.NoError(t, err)

	entries, _, err := fsys.Readdir(RootIno, RootIno, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 3)
	require.Equal(t, ".", entries[0].Name)
	require.Equal(t, "..", entries[1].Name)
	require.Equal(t, "only", entries[2].Name)
}
