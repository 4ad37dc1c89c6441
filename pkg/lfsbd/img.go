package lfsbd

import (
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/fclairamb/go-log"
	"github.com/spf13/afero"
)

// assert that ImageFile implements the BlockDevice interface
var _ BlockDevice = (*ImageFile)(nil)

// ImageFile is a BlockDevice backed by a disk image or a raw device
// node. It owns the file handle from OpenImageFile until Destroy.
type ImageFile struct {
	path   string
	file   afero.File
	geom   Geometry
	logger log.Logger
}

// OpenImageFile opens the existing file or device at path for reading
// and writing. Zero fields of requested are probed from the device, or
// set to DefaultBlockSize and DefaultBlockCount when it can't tell.
func OpenImageFile(path string, requested Geometry, opts ...Option) (*ImageFile, error) {
	o := newOptions(opts)
	o.logger.Debug("create", "path", path, "blockSize", requested.BlockSize, "blockCount", requested.BlockCount)

	f, err := o.fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &Error{Op: "create", Kind: KindOpen, Path: path, Err: err}
	}

	geom, err := resolveGeometry(f, requested, o.logger)
	if err != nil {
		f.Close()
		return nil, err
	}

	o.logger.Info("Opened block device", "path", path, "blockSize", geom.BlockSize, "blockCount", geom.BlockCount)
	return &ImageFile{
		path:   path,
		file:   f,
		geom:   geom,
		logger: o.logger,
	}, nil
}

// Path returns the path the image was opened from.
func (img *ImageFile) Path() string {
	return img.path
}

// Geometry returns the resolved block size and count.
func (img *ImageFile) Geometry() Geometry {
	return img.geom
}

// ReadBlock reads exactly len(buf) bytes at off within block.
func (img *ImageFile) ReadBlock(block, off uint32, buf []byte) error {
	img.logger.Debug("read", "block", block, "off", off, "size", len(buf))
	if img.file == nil {
		return &Error{Op: "read", Kind: KindClosed, Block: block, Offset: off, Length: len(buf), Err: ErrClosed}
	}
	if err := img.geom.check("read", block, off, len(buf)); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}

	if err := img.seek("read", block, off, len(buf)); err != nil {
		return err
	}

	n, err := io.ReadFull(img.file, buf)
	if err != nil {
		kind := KindRead
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			kind = KindShortIO
			err = fmt.Errorf("got %d of %d bytes: %w", n, len(buf), err)
		}
		return &Error{Op: "read", Kind: kind, Block: block, Offset: off, Length: len(buf), Err: err}
	}
	return nil
}

// ProgramBlock writes exactly len(buf) bytes at off within block. The
// bytes around the range are left untouched.
func (img *ImageFile) ProgramBlock(block, off uint32, buf []byte) error {
	img.logger.Debug("prog", "block", block, "off", off, "size", len(buf))
	if img.file == nil {
		return &Error{Op: "prog", Kind: KindClosed, Block: block, Offset: off, Length: len(buf), Err: ErrClosed}
	}
	if err := img.geom.check("prog", block, off, len(buf)); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}

	if err := img.seek("prog", block, off, len(buf)); err != nil {
		return err
	}

	n, err := img.file.Write(buf)
	if err == nil && n == len(buf) {
		return nil
	}
	kind := KindWrite
	if n > 0 || err == nil || errors.Is(err, io.ErrShortWrite) {
		kind = KindShortIO
		if err == nil {
			err = io.ErrShortWrite
		}
		err = fmt.Errorf("wrote %d of %d bytes: %w", n, len(buf), err)
	}
	return &Error{Op: "prog", Kind: kind, Block: block, Offset: off, Length: len(buf), Err: err}
}

// EraseBlock does nothing. A file needs no erase before it is written,
// so erased blocks keep their previous contents instead of reading
// back as 0xff like real flash would.
func (img *ImageFile) EraseBlock(block uint32) error {
	img.logger.Debug("erase", "block", block)
	if img.file == nil {
		return &Error{Op: "erase", Kind: KindClosed, Block: block, Err: ErrClosed}
	}
	return img.geom.check("erase", block, 0, 0)
}

// Sync flushes the host's buffers for the image.
func (img *ImageFile) Sync() error {
	img.logger.Debug("sync")
	if img.file == nil {
		return &Error{Op: "sync", Kind: KindClosed, Path: img.path, Err: ErrClosed}
	}
	if err := img.file.Sync(); err != nil {
		return &Error{Op: "sync", Kind: KindFlush, Path: img.path, Err: err}
	}
	return nil
}

// Close releases the file handle and reports any error doing so.
func (img *ImageFile) Close() error {
	if img.file == nil {
		return nil
	}
	err := img.file.Close()
	img.file = nil
	return err
}

// Destroy releases the file handle. A failing close is logged and
// otherwise ignored.
func (img *ImageFile) Destroy() {
	img.logger.Debug("destroy", "path", img.path)
	if err := img.Close(); err != nil {
		img.logger.Warn("Closing block device failed", "path", img.path, "err", err)
	}
}

func (img *ImageFile) seek(op string, block, off uint32, length int) error {
	offset := img.geom.Offset(block, off)
	pos, err := img.file.Seek(offset, io.SeekStart)
	if err == nil && pos != offset {
		err = fmt.Errorf("landed at %d instead of %d", pos, offset)
	}
	if err != nil {
		return &Error{Op: op, Kind: KindSeek, Block: block, Offset: off, Length: length, Err: err}
	}
	return nil
}
