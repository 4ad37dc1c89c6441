package lfsbd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/fclairamb/go-log"
	"github.com/spf13/afero"
)

// errBlockFull is returned by writes that run past the end of a block.
var errBlockFull = errors.New("write past end of block")

// BlockFs presents a BlockDevice as a flat directory holding one
// fixed-size file per block. Block 10 is the file "/00000010".
type BlockFs struct {
	dev     BlockDevice
	geom    Geometry
	modTime time.Time
	logger  log.Logger

	// mu serializes device access between open files.
	mu sync.Mutex
}

var _ afero.Fs = (*BlockFs)(nil)

// NewBlockFs wraps dev. Only WithLogger is meaningful in opts.
func NewBlockFs(dev BlockDevice, opts ...Option) *BlockFs {
	o := newOptions(opts)
	return &BlockFs{
		dev:     dev,
		geom:    dev.Geometry(),
		modTime: time.Now(),
		logger:  o.logger,
	}
}

// FileInfo describes a block file or the root directory.
type FileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
	mode    os.FileMode
}

func (fi FileInfo) Name() string       { return fi.name }
func (fi FileInfo) Size() int64        { return fi.size }
func (fi FileInfo) IsDir() bool        { return fi.isDir }
func (fi FileInfo) ModTime() time.Time { return fi.modTime }
func (fi FileInfo) Mode() os.FileMode  { return fi.mode }
func (fi FileInfo) Sys() interface{}   { return nil }

var _ os.FileInfo = FileInfo{}

func blockName(block uint32) string {
	return fmt.Sprintf("%08d", block)
}

// lookup resolves name to a block index, or to the root directory.
func (f *BlockFs) lookup(name string) (block uint32, isRoot bool, ok bool) {
	clean := path.Clean("/" + filepath.ToSlash(name))
	if clean == "/" {
		return 0, true, true
	}
	base := clean[1:]
	if strings.Contains(base, "/") {
		return 0, false, false
	}
	n, err := strconv.ParseUint(base, 10, 32)
	if err != nil || n >= uint64(f.geom.BlockCount) || base != blockName(uint32(n)) {
		return 0, false, false
	}
	return uint32(n), false, true
}

func (f *BlockFs) rootInfo() FileInfo {
	return FileInfo{
		name:    "/",
		size:    f.geom.Size(),
		isDir:   true,
		modTime: f.modTime,
		mode:    os.ModeDir | 0o755,
	}
}

func (f *BlockFs) blockInfo(block uint32) FileInfo {
	return FileInfo{
		name:    blockName(block),
		size:    int64(f.geom.BlockSize),
		modTime: f.modTime,
		mode:    0o644,
	}
}

func (f *BlockFs) Name() string {
	return "lfsbd"
}

func (f *BlockFs) Stat(name string) (os.FileInfo, error) {
	f.logger.Debug("Stat", "name", name)
	block, isRoot, ok := f.lookup(name)
	switch {
	case !ok:
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	case isRoot:
		return f.rootInfo(), nil
	default:
		return f.blockInfo(block), nil
	}
}

func (f *BlockFs) Open(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens an existing block file. O_CREATE and O_TRUNC are
// accepted, since block files always exist and have a fixed size.
func (f *BlockFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f.logger.Debug("OpenFile", "name", name, "flag", flag, "perm", uint32(perm))
	block, isRoot, ok := f.lookup(name)
	if !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	if flag&(os.O_CREATE|os.O_EXCL) == os.O_CREATE|os.O_EXCL {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrExist}
	}

	access := translateFlags(flag)
	if isRoot {
		if access&accessWrite != 0 {
			return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
		}
		return &blockDir{fs: f}, nil
	}

	file := &blockFile{
		fs:     f,
		block:  block,
		info:   f.blockInfo(block),
		access: access,
	}
	if access&accessAppend != 0 {
		file.pos = file.info.size
	}
	return file, nil
}

func (f *BlockFs) Create(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (f *BlockFs) Mkdir(name string, perm os.FileMode) error {
	f.logger.Debug("Mkdir", "name", name, "perm", uint32(perm))
	return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrPermission}
}

func (f *BlockFs) MkdirAll(name string, perm os.FileMode) error {
	if _, isRoot, _ := f.lookup(name); isRoot {
		return nil
	}
	return f.Mkdir(name, perm)
}

func (f *BlockFs) Remove(name string) error {
	f.logger.Debug("Remove", "name", name)
	return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
}

func (f *BlockFs) RemoveAll(name string) error {
	f.logger.Debug("RemoveAll", "name", name)
	return &os.PathError{Op: "removeall", Path: name, Err: os.ErrPermission}
}

func (f *BlockFs) Rename(oldname, newname string) error {
	f.logger.Debug("Rename", "old", oldname, "new", newname)
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
}

// Chmod, Chown and Chtimes are accepted and ignored so that clients
// which set attributes after an upload don't fail.
func (f *BlockFs) Chmod(name string, mode os.FileMode) error {
	f.logger.Debug("Chmod", "name", name, "mode", uint32(mode))
	return f.exists("chmod", name)
}

func (f *BlockFs) Chown(name string, uid, gid int) error {
	f.logger.Debug("Chown", "name", name, "uid", uid, "gid", gid)
	return f.exists("chown", name)
}

func (f *BlockFs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	f.logger.Debug("Chtimes", "name", name, "atime", atime, "mtime", mtime)
	return f.exists("chtimes", name)
}

func (f *BlockFs) exists(op, name string) error {
	if _, _, ok := f.lookup(name); !ok {
		return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
	}
	return nil
}

func (f *BlockFs) readBlock(block, off uint32, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dev.ReadBlock(block, off, buf)
}

func (f *BlockFs) programBlock(block, off uint32, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dev.ProgramBlock(block, off, buf)
}

func (f *BlockFs) sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dev.Sync()
}

// blockFile is an open handle on a single block.
type blockFile struct {
	fs     *BlockFs
	block  uint32
	info   FileInfo
	access accessMode
	pos    int64
	closed bool
}

var _ afero.File = (*blockFile)(nil)

func (f *blockFile) Name() string {
	return f.info.name
}

func (f *blockFile) Stat() (os.FileInfo, error) {
	return f.info, nil
}

func (f *blockFile) pathError(op string, err error) error {
	return &os.PathError{Op: op, Path: f.info.name, Err: err}
}

func (f *blockFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *blockFile) ReadAt(p []byte, off int64) (int, error) {
	switch {
	case f.closed:
		return 0, f.pathError("read", os.ErrClosed)
	case f.access&accessRead == 0:
		return 0, f.pathError("read", os.ErrPermission)
	case off < 0:
		return 0, f.pathError("read", os.ErrInvalid)
	case off >= f.info.size:
		return 0, io.EOF
	}

	n := len(p)
	if remaining := f.info.size - off; int64(n) > remaining {
		n = int(remaining)
	}
	if err := f.fs.readBlock(f.block, uint32(off), p[:n]); err != nil {
		return 0, f.pathError("read", err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *blockFile) Write(p []byte) (int, error) {
	n, err := f.WriteAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *blockFile) WriteAt(p []byte, off int64) (int, error) {
	switch {
	case f.closed:
		return 0, f.pathError("write", os.ErrClosed)
	case f.access&accessWrite == 0:
		return 0, f.pathError("write", os.ErrPermission)
	case off < 0:
		return 0, f.pathError("write", os.ErrInvalid)
	case len(p) == 0:
		return 0, nil
	case off >= f.info.size:
		return 0, f.pathError("write", errBlockFull)
	}

	n := len(p)
	if remaining := f.info.size - off; int64(n) > remaining {
		n = int(remaining)
	}
	if err := f.fs.programBlock(f.block, uint32(off), p[:n]); err != nil {
		return 0, f.pathError("write", err)
	}
	if n < len(p) {
		return n, f.pathError("write", errBlockFull)
	}
	return n, nil
}

func (f *blockFile) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *blockFile) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, f.pathError("seek", os.ErrClosed)
	}
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += f.pos
	case io.SeekEnd:
		offset += f.info.size
	default:
		return 0, f.pathError("seek", os.ErrInvalid)
	}
	if offset < 0 {
		return 0, f.pathError("seek", os.ErrInvalid)
	}
	f.pos = offset
	return offset, nil
}

func (f *blockFile) Readdir(count int) ([]os.FileInfo, error) {
	return nil, f.pathError("readdir", os.ErrInvalid)
}

func (f *blockFile) Readdirnames(n int) ([]string, error) {
	return nil, f.pathError("readdir", os.ErrInvalid)
}

func (f *blockFile) Sync() error {
	if f.closed {
		return f.pathError("sync", os.ErrClosed)
	}
	if err := f.fs.sync(); err != nil {
		return f.pathError("sync", err)
	}
	return nil
}

// Truncate only accepts the block size, which is the size the file
// already has.
func (f *blockFile) Truncate(size int64) error {
	if size != f.info.size {
		return f.pathError("truncate", os.ErrPermission)
	}
	return nil
}

func (f *blockFile) Close() error {
	if f.closed {
		return f.pathError("close", os.ErrClosed)
	}
	f.closed = true
	return nil
}

// blockDir is an open handle on the root directory.
type blockDir struct {
	fs     *BlockFs
	next   uint32
	closed bool
}

var _ afero.File = (*blockDir)(nil)

func (d *blockDir) Name() string {
	return "/"
}

func (d *blockDir) Stat() (os.FileInfo, error) {
	return d.fs.rootInfo(), nil
}

func (d *blockDir) pathError(op string, err error) error {
	return &os.PathError{Op: op, Path: "/", Err: err}
}

// Readdir lists the blocks not returned by a previous call. With
// count > 0 at most count entries are returned, and io.EOF once the
// listing is exhausted.
func (d *blockDir) Readdir(count int) ([]os.FileInfo, error) {
	if d.closed {
		return nil, d.pathError("readdir", os.ErrClosed)
	}
	total := d.fs.geom.BlockCount
	remaining := total - d.next
	if count > 0 {
		if remaining == 0 {
			return nil, io.EOF
		}
		if uint32(count) < remaining {
			remaining = uint32(count)
		}
	}

	infos := make([]os.FileInfo, 0, remaining)
	for i := uint32(0); i < remaining; i++ {
		infos = append(infos, d.fs.blockInfo(d.next))
		d.next++
	}
	return infos, nil
}

func (d *blockDir) Readdirnames(n int) ([]string, error) {
	infos, err := d.Readdir(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

// ReadDir makes blockDir an fs.ReadDirFile.
func (d *blockDir) ReadDir(n int) ([]fs.DirEntry, error) {
	infos, err := d.Readdir(n)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	return entries, nil
}

func (d *blockDir) Read(p []byte) (int, error) {
	return 0, d.pathError("read", os.ErrInvalid)
}

func (d *blockDir) ReadAt(p []byte, off int64) (int, error) {
	return 0, d.pathError("read", os.ErrInvalid)
}

func (d *blockDir) Write(p []byte) (int, error) {
	return 0, d.pathError("write", os.ErrPermission)
}

func (d *blockDir) WriteAt(p []byte, off int64) (int, error) {
	return 0, d.pathError("write", os.ErrPermission)
}

func (d *blockDir) WriteString(s string) (int, error) {
	return 0, d.pathError("write", os.ErrPermission)
}

// Seek only supports rewinding the listing.
func (d *blockDir) Seek(offset int64, whence int) (int64, error) {
	if offset != 0 || whence != io.SeekStart {
		return 0, d.pathError("seek", os.ErrInvalid)
	}
	d.next = 0
	return 0, nil
}

func (d *blockDir) Sync() error {
	return nil
}

func (d *blockDir) Truncate(size int64) error {
	return d.pathError("truncate", os.ErrPermission)
}

func (d *blockDir) Close() error {
	if d.closed {
		return d.pathError("close", os.ErrClosed)
	}
	d.closed = true
	return nil
}
