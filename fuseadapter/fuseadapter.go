//go:build fuse

// Package fuseadapter exposes an ospfs.FileSystem over FUSE. The teacher's
// own inode_fuse.go talks to the low-level github.com/hanwen/go-fuse/v2/fuse
// API directly (squashfs is read-only, so Lookup/Open/OpenDir/ReadDir is all
// it needs); ospfs additionally needs create/write/unlink/symlink/setattr, so
// this package is built on the higher-level github.com/hanwen/go-fuse/v2/fs
// node API instead, which supplies default bookkeeping (generation numbers,
// NodeID allocation, attribute caching) for the write path the low-level API
// leaves to the caller.
package fuseadapter

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/ospfs/ospfs"
)

// Root is the FUSE root node. Every node wraps the same *ospfs.FileSystem and
// an inode number into it; fs.Inode's own reference-counted tree handles
// dentry caching, so nodes here stay thin.
type Root struct {
	fs.Inode
	fsys *ospfs.FileSystem
}

// Mount attaches an ospfs.FileSystem at mountpoint and serves it until ctx is
// canceled or the mount is unmounted externally.
func Mount(ctx context.Context, fsys *ospfs.FileSystem, mountpoint string) error {
	root := &Root{fsys: fsys}
	server, err := fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName: "ospfs",
			Name:   "ospfs",
		},
	})
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		server.Unmount()
	}()
	server.Wait()
	return nil
}

type node struct {
	fs.Inode
	fsys *ospfs.FileSystem
	ino  uint32
}

func (r *Root) newNode(ino uint32, mode uint32) *fs.Inode {
	ops := &node{fsys: r.fsys, ino: ino}
	return r.NewInode(context.Background(), ops, fs.StableAttr{
		Mode: mode,
		Ino:  uint64(ino),
	})
}

var _ fs.NodeLookuper = (*node)(nil)
var _ fs.NodeReaddirer = (*node)(nil)
var _ fs.NodeGetattrer = (*node)(nil)
var _ fs.NodeSetattrer = (*node)(nil)
var _ fs.NodeCreater = (*node)(nil)
var _ fs.NodeMkdirer = (*node)(nil)
var _ fs.NodeUnlinker = (*node)(nil)
var _ fs.NodeRmdirer = (*node)(nil)
var _ fs.NodeSymlinker = (*node)(nil)
var _ fs.NodeReadlinker = (*node)(nil)
var _ fs.NodeLinker = (*node)(nil)
var _ fs.FileReader = (*fileHandle)(nil)
var _ fs.FileWriter = (*fileHandle)(nil)

func ftypeToFuseMode(t ospfs.FileType) uint32 {
	switch t {
	case ospfs.FtypeDir:
		return syscall.S_IFDIR
	case ospfs.FtypeSymlink:
		return syscall.S_IFLNK
	default:
		return syscall.S_IFREG
	}
}

func errnoOf(err error) syscall.Errno {
	switch err {
	case nil:
		return 0
	case ospfs.ErrNotExist:
		return syscall.ENOENT
	case ospfs.ErrExist:
		return syscall.EEXIST
	case ospfs.ErrNoSpace:
		return syscall.ENOSPC
	case ospfs.ErrNameTooLong:
		return syscall.ENAMETOOLONG
	case ospfs.ErrNotDirectory:
		return syscall.ENOTDIR
	case ospfs.ErrPermission:
		return syscall.EPERM
	default:
		return syscall.EIO
	}
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	ino, err := n.fsys.Lookup(n.ino, name)
	if err != nil {
		return nil, errnoOf(err)
	}
	mode := n.modeOf(ino)
	child := n.newChild(ino, mode)
	return child, 0
}

func (n *node) newChild(ino uint32, mode uint32) *fs.Inode {
	ops := &node{fsys: n.fsys, ino: ino}
	return n.NewInode(context.Background(), ops, fs.StableAttr{Mode: mode, Ino: uint64(ino)})
}

func (n *node) modeOf(ino uint32) uint32 {
	entries, _, err := n.fsys.Readdir(n.ino, n.ino, 0)
	if err == nil {
		for _, e := range entries {
			if e.Ino == ino {
				return ftypeToFuseMode(e.Ftype)
			}
		}
	}
	return syscall.S_IFREG
}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, _, err := n.fsys.Readdir(n.ino, n.parentIno(), 0)
	if err != nil {
		return nil, errnoOf(err)
	}
	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, fuse.DirEntry{
			Name: e.Name,
			Ino:  uint64(e.Ino),
			Mode: ftypeToFuseMode(e.Ftype),
		})
	}
	return fs.NewListDirStream(out), 0
}

func (n *node) parentIno() uint32 {
	if parent := n.Inode.Parent(); parent != nil {
		if p, ok := parent.Operations().(*node); ok {
			return p.ino
		}
	}
	return ospfs.RootIno
}

func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Ino = uint64(n.ino)
	return 0
}

func (n *node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	var size *uint32
	var mode *uint32
	if s, ok := in.GetSize(); ok {
		sz := uint32(s)
		size = &sz
	}
	if m, ok := in.GetMode(); ok {
		mode = &m
	}
	if err := n.fsys.Setattr(n.ino, size, mode); err != nil {
		return errnoOf(err)
	}
	out.Ino = uint64(n.ino)
	return 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	ino, err := n.fsys.Create(n.ino, name, mode)
	if err != nil {
		return nil, nil, 0, errnoOf(err)
	}
	child := n.newChild(ino, syscall.S_IFREG)
	return child, &fileHandle{fsys: n.fsys, ino: ino}, 0, 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	ino, err := n.fsys.CreateDir(n.ino, name, mode)
	if err != nil {
		return nil, errnoOf(err)
	}
	return n.newChild(ino, syscall.S_IFDIR), 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return errnoOf(n.fsys.Unlink(n.ino, name))
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return errnoOf(n.fsys.Unlink(n.ino, name))
}

func (n *node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if err := n.fsys.Symlink(n.ino, name, target); err != nil {
		return nil, errnoOf(err)
	}
	ino, err := n.fsys.Lookup(n.ino, name)
	if err != nil {
		return nil, errnoOf(err)
	}
	return n.newChild(ino, syscall.S_IFLNK), 0
}

func (n *node) Link(ctx context.Context, target fs.InodeEmbedder, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	src, ok := target.(*node)
	if !ok {
		return nil, syscall.EINVAL
	}
	if err := n.fsys.Link(src.ino, n.ino, name); err != nil {
		return nil, errnoOf(err)
	}
	return n.newChild(src.ino, syscall.S_IFREG), 0
}

func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.fsys.Followlink(n.ino, uint32(0))
	if err != nil {
		return nil, errnoOf(err)
	}
	return []byte(target), 0
}

func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return &fileHandle{fsys: n.fsys, ino: n.ino}, 0, 0
}

// fileHandle is the open-file object Read/Write operate through; ospfs has
// no separate open-file state of its own (every call takes the inode number
// directly), so this only carries enough to route back into the core.
type fileHandle struct {
	fsys *ospfs.FileSystem
	ino  uint32
}

func (h *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	buf := &sliceWriter{buf: dest}
	n, err := h.fsys.Read(h.ino, buf, uint32(off), uint32(len(dest)))
	if err != nil {
		return nil, errnoOf(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *fileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := h.fsys.Write(h.ino, &sliceReader{buf: data}, uint32(off), uint32(len(data)), false)
	if err != nil {
		return 0, errnoOf(err)
	}
	return n, 0
}

// sliceWriter/sliceReader adapt plain byte slices to the io.Writer/io.Reader
// interface ospfs.Read/Write expect, avoiding a bytes.Buffer allocation per
// FUSE callback.
type sliceWriter struct {
	buf []byte
	n   int
}

func (w *sliceWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.n:], p)
	w.n += n
	return n, nil
}

type sliceReader struct {
	buf []byte
	n   int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	n := copy(p, r.buf[r.n:])
	r.n += n
	if n == 0 {
		return 0, nil
	}
	return n, nil
}
