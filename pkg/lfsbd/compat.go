package lfsbd

import (
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// AsAfero exposes dev as an afero.Fs of block files.
func AsAfero(dev BlockDevice, opts ...Option) afero.Fs {
	return NewBlockFs(dev, opts...)
}

type BlockIO struct {
	*BlockFs
}

var _ fs.FS = (*BlockIO)(nil)

func (f *BlockIO) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return f.BlockFs.Open(name)
}

// AsIO exposes dev as a read-only fs.FS of block files.
func AsIO(dev BlockDevice, opts ...Option) *BlockIO {
	return &BlockIO{NewBlockFs(dev, opts...)}
}

type accessMode uint8

const (
	accessRead accessMode = 1 << iota
	accessWrite
	accessAppend
)

// translateFlags translates osFlags such as os.O_RDONLY into the access
// a block file grants.
func translateFlags(osFlags int) accessMode {
	var result accessMode
	switch osFlags & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_RDONLY:
		result = accessRead
	case os.O_WRONLY:
		result = accessWrite
	case os.O_RDWR:
		result = accessRead | accessWrite
	}
	if osFlags&os.O_APPEND != 0 {
		result |= accessAppend
	}
	return result
}
