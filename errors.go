package ospfs

import "errors"

// Package-specific error variables, usable with errors.Is(), mapped 1:1 to
// the caller-visible error codes of SPEC_FULL.md §9.
var (
	// ErrNoSpace is returned when no free block or inode is available, or a
	// requested size exceeds maxFileSize().
	ErrNoSpace = errors.New("ospfs: no space left on image")

	// ErrIO is returned when an address translation fails: a chain pointer
	// that should be non-zero is zero.
	ErrIO = errors.New("ospfs: i/o error, inconsistent block chain")

	// ErrNotExist is returned when a lookup or unlink target does not exist.
	ErrNotExist = errors.New("ospfs: no such file or directory")

	// ErrExist is returned when create/link/symlink targets an existing name.
	ErrExist = errors.New("ospfs: file exists")

	// ErrNameTooLong is returned when a name exceeds NameLen bytes.
	ErrNameTooLong = errors.New("ospfs: name too long")

	// ErrPermission is returned for operations not permitted on the target
	// type (e.g. setattr size on a directory).
	ErrPermission = errors.New("ospfs: operation not permitted")

	// ErrFault is returned when a caller-supplied io.Reader/io.Writer fails.
	ErrFault = errors.New("ospfs: bad address")

	// ErrNoMemory is returned when an in-memory allocation the core needs
	// (e.g. a scratch buffer) cannot be made.
	ErrNoMemory = errors.New("ospfs: cannot allocate memory")

	// ErrNotDirectory is returned when a directory operation targets a
	// non-directory inode.
	ErrNotDirectory = errors.New("ospfs: not a directory")

	// ErrInvalidImage is returned when a superblock fails to validate.
	ErrInvalidImage = errors.New("ospfs: invalid image, bad superblock")
)
