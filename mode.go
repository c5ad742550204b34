package ospfs

import "io/fs"

// Adapted from the teacher's UnixToMode/ModeToUnix (based on
// https://golang.org/src/os/stat_linux.go), reduced to the three file
// types spec.md's data model actually carries: regular, directory, symlink.

// ModeOf converts an inode's (Ftype, Mode) pair into a standard-library
// fs.FileMode, for use by cmd/ospfsctl and fuseadapter.
func (i *Inode) ModeOf() fs.FileMode {
	res := fs.FileMode(i.Mode & 0777)
	switch i.Ftype {
	case FtypeDir:
		res |= fs.ModeDir
	case FtypeSymlink:
		res |= fs.ModeSymlink
	}
	return res
}

// ftypeToUnix returns the on-disk FileType corresponding to a standard
// fs.FileMode, for use by mkfs when populating an image from a host tree.
func ftypeToUnix(mode fs.FileMode) FileType {
	switch {
	case mode&fs.ModeDir != 0:
		return FtypeDir
	case mode&fs.ModeSymlink != 0:
		return FtypeSymlink
	default:
		return FtypeReg
	}
}
