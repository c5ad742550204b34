package ospfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestWriteReadRoundTrip covers spec.md §4.7's basic contract: bytes written
// at an offset are read back unchanged.
func TestWriteReadRoundTrip(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.Create(RootIno, "f", 0644)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("abcdefgh"), 200) // spans several blocks
	n, err := fsys.Write(ino, bytes.NewReader(payload), 0, uint32(len(payload)), false)
	require.NoError(t, err)
	require.Equal(t, uint32(len(payload)), n)

	var out bytes.Buffer
	n, err = fsys.Read(ino, &out, 0, uint32(len(payload)))
	require.NoError(t, err)
	require.Equal(t, uint32(len(payload)), n)
	require.Equal(t, payload, out.Bytes())
}

// TestWriteExtendsFile covers the auto-grow-on-write path: writing past the
// current size grows the file first via changeSize.
func TestWriteExtendsFile(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.Create(RootIno, "f", 0644)
	require.NoError(t, err)

	payload := []byte("hello world")
	_, err = fsys.Write(ino, bytes.NewReader(payload), 100, uint32(len(payload)), false)
	require.NoError(t, err)

	inode := fsys.inodeLocked(ino)
	require.Equal(t, uint32(100+len(payload)), inode.Size)

	var out bytes.Buffer
	_, err = fsys.Read(ino, &out, 100, uint32(len(payload)))
	require.NoError(t, err)
	require.Equal(t, payload, out.Bytes())
}

// TestAppendModeIgnoresPos covers appendMode forcing pos to the current size
// regardless of the caller-supplied pos.
func TestAppendModeIgnoresPos(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.Create(RootIno, "f", 0644)
	require.NoError(t, err)

	_, err = fsys.Write(ino, bytes.NewReader([]byte("first-")), 0, 6, false)
	require.NoError(t, err)
	_, err = fsys.Write(ino, bytes.NewReader([]byte("second")), 999, 6, true)
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = fsys.Read(ino, &out, 0, 12)
	require.NoError(t, err)
	require.Equal(t, "first-second", out.String())
}

// TestReadPastEndOfFileIsShort covers spec.md §4.7's short-read rule: a read
// whose count extends past size is truncated to the available bytes.
func TestReadPastEndOfFileIsShort(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.Create(RootIno, "f", 0644)
	require.NoError(t, err)
	_, err = fsys.Write(ino, bytes.NewReader([]byte("abc")), 0, 3, false)
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := fsys.Read(ino, &out, 0, 100)
	require.NoError(t, err)
	require.Equal(t, uint32(3), n)
	require.Equal(t, "abc", out.String())
}

// TestWriteBatchesAcrossMaxBatch covers the journal batching/flush boundary
// in Write: a write spanning more than MaxBatch blocks must flush more than
// once and still produce a correct result.
func TestWriteBatchesAcrossMaxBatch(t *testing.T) {
	fsys := newTestFS(t)
	ino, err := fsys.Create(RootIno, "f", 0644)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0xAB}, (MaxBatch+10)*testBlockSize)
	_, err = fsys.Write(ino, bytes.NewReader(payload), 0, uint32(len(payload)), false)
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = fsys.Read(ino, &out, 0, uint32(len(payload)))
	require.NoError(t, err)
	require.Equal(t, payload, out.Bytes())
}
