// Package image implements at-rest (de)compression for exported ospfs
// images, the way the teacher's comp_zstd.go/comp_xz.go register codecs for
// SquashFS's own at-rest compressed tables. Compression here is applied to
// the serialized byte array as a whole, never to individual blocks, so it
// never touches the on-disk layout invariants the core relies on.
package image

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/ospfs/ospfs"
)

// Codec names accepted by Dump/Load.
const (
	CodecNone = "none"
	CodecGzip = "gzip"
	CodecZstd = "zstd"
	CodecXZ   = "xz"
)

// Dump writes store's full byte image to w, compressed with codec.
func Dump(w io.Writer, store ospfs.BlockStore, codec string) error {
	raw := ospfs.ExportBytes(store)

	switch codec {
	case CodecNone, "":
		_, err := w.Write(raw)
		return err

	case CodecGzip:
		gw := gzip.NewWriter(w)
		if _, err := gw.Write(raw); err != nil {
			gw.Close()
			return err
		}
		return gw.Close()

	case CodecZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := zw.Write(raw); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()

	case CodecXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := xw.Write(raw); err != nil {
			xw.Close()
			return err
		}
		return xw.Close()

	default:
		return fmt.Errorf("image: unknown codec %q", codec)
	}
}

// Load decompresses r with codec into a fresh in-memory block store with
// the given block size.
func Load(r io.Reader, codec string, blockSize uint32) (ospfs.BlockStore, error) {
	var rc io.Reader

	switch codec {
	case CodecNone, "":
		rc = r

	case CodecGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		rc = gr

	case CodecZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		rc = zr

	case CodecXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		rc = xr

	default:
		return nil, fmt.Errorf("image: unknown codec %q", codec)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, err
	}
	return ospfs.WrapMemStore(buf.Bytes(), blockSize)
}
