package ospfs

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
)

// BuildFromDir walks a host directory tree and populates fs starting at
// rootIno (normally RootIno) by calling Create/Write/Symlink/Link for each
// entry, grounded on the teacher's Writer.Add walking shape (writer.go) but
// expressed through the core's own write path instead of squashfs's
// compressed-table builder: original_source/ospfsmod.c notes its initial
// image is "based on your 'base' directory", and this is the functional
// equivalent of that build step.
func BuildFromDir(fsys *FileSystem, rootIno uint32, hostDir string) error {
	dirInodes := map[string]uint32{".": rootIno}

	return filepath.WalkDir(hostDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(hostDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		parentRel := filepath.Dir(rel)
		parentIno, ok := dirInodes[parentRel]
		if !ok {
			return fs.ErrNotExist
		}
		name := filepath.Base(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			ino, err := fsys.CreateDir(parentIno, name, uint32(info.Mode().Perm()))
			if err != nil {
				return err
			}
			dirInodes[rel] = ino

		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := fsys.Symlink(parentIno, name, target); err != nil {
				return err
			}

		default:
			ino, err := fsys.Create(parentIno, name, uint32(info.Mode().Perm()))
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if _, err := fsys.Write(ino, bytes.NewReader(data), 0, uint32(len(data)), false); err != nil {
				return err
			}
		}
		return nil
	})
}
