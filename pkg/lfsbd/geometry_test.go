package lfsbd

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/fclairamb/go-log/noop"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// deviceNode reports itself as a device node but has no descriptor to
// query, like a device exposed through a virtual filesystem.
type deviceNode struct {
	afero.File
}

func (f deviceNode) Stat() (os.FileInfo, error) {
	return FileInfo{name: "sda", size: 0, modTime: time.Unix(0, 0), mode: os.ModeDevice | 0o660}, nil
}

func (f deviceNode) Name() string {
	return "/dev/sda"
}

func TestResolveGeometryDeviceWithoutDescriptor(t *testing.T) {
	g, err := resolveGeometry(deviceNode{}, Geometry{}, noop.NewNoOpLogger())
	require.NoError(t, err)
	require.Equal(t, Geometry{BlockSize: DefaultBlockSize, BlockCount: DefaultBlockCount}, g)

	g, err = resolveGeometry(deviceNode{}, Geometry{BlockSize: 4096}, noop.NewNoOpLogger())
	require.NoError(t, err)
	require.Equal(t, Geometry{BlockSize: 4096, BlockCount: DefaultBlockCount}, g)
}

// deviceFile is an open device node with a descriptor. Only the calls
// made while opening are implemented.
type deviceFile struct {
	afero.File
	closes int
}

func (f *deviceFile) Stat() (os.FileInfo, error) {
	return FileInfo{name: "mmcblk0", modTime: time.Unix(0, 0), mode: os.ModeDevice | 0o660}, nil
}

func (f *deviceFile) Name() string {
	return "/dev/mmcblk0"
}

func (f *deviceFile) Fd() uintptr {
	return 3
}

func (f *deviceFile) Close() error {
	f.closes++
	return nil
}

// deviceFs opens file for every name.
type deviceFs struct {
	afero.Fs
	file *deviceFile
}

func (fs deviceFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	return fs.file, nil
}

func setProbeDevice(t *testing.T, probe func(fd uintptr) (uint32, int64, error)) {
	original := probeDevice
	probeDevice = probe
	t.Cleanup(func() { probeDevice = original })
}

func TestOpenImageFileGeometryQueryFailure(t *testing.T) {
	setProbeDevice(t, func(fd uintptr) (uint32, int64, error) {
		require.Equal(t, uintptr(3), fd)
		return 0, 0, errors.New("BLKSSZGET: input/output error")
	})
	file := &deviceFile{}

	_, err := OpenImageFile("/dev/mmcblk0", Geometry{}, WithFs(deviceFs{file: file}))
	require.ErrorIs(t, err, KindGeometryQuery)
	require.Equal(t, "lfsbd: create /dev/mmcblk0: geometry query: BLKSSZGET: input/output error", err.Error())
	require.Equal(t, 1, file.closes)
}

func TestOpenImageFileGeometryQueryUnsupported(t *testing.T) {
	setProbeDevice(t, func(fd uintptr) (uint32, int64, error) {
		return 0, 0, fmt.Errorf("BLKSSZGET: %w", errGeometryUnsupported)
	})
	file := &deviceFile{}

	img, err := OpenImageFile("/dev/mmcblk0", Geometry{}, WithFs(deviceFs{file: file}))
	require.NoError(t, err)
	require.Equal(t, Geometry{BlockSize: DefaultBlockSize, BlockCount: DefaultBlockCount}, img.Geometry())
	require.Equal(t, 0, file.closes)
	img.Destroy()
	require.Equal(t, 1, file.closes)
}

func TestOpenImageFileGeometryFromDevice(t *testing.T) {
	setProbeDevice(t, func(fd uintptr) (uint32, int64, error) {
		return 4096, 4096 * 100, nil
	})

	img, err := OpenImageFile("/dev/mmcblk0", Geometry{}, WithFs(deviceFs{file: &deviceFile{}}))
	require.NoError(t, err)
	require.Equal(t, Geometry{BlockSize: 4096, BlockCount: 100}, img.Geometry())

	// A caller block size is kept; the count follows from the device size.
	img, err = OpenImageFile("/dev/mmcblk0", Geometry{BlockSize: 512}, WithFs(deviceFs{file: &deviceFile{}}))
	require.NoError(t, err)
	require.Equal(t, Geometry{BlockSize: 512, BlockCount: 800}, img.Geometry())
}

func TestResolveGeometryKeepsCallerValues(t *testing.T) {
	// A fully specified geometry never touches the handle.
	g, err := resolveGeometry(nil, Geometry{BlockSize: 256, BlockCount: 3}, noop.NewNoOpLogger())
	require.NoError(t, err)
	require.Equal(t, Geometry{BlockSize: 256, BlockCount: 3}, g)
}

func TestGeometryCheck(t *testing.T) {
	g := Geometry{BlockSize: 512, BlockCount: 64}
	require.Equal(t, int64(32768), g.Size())
	require.Equal(t, int64(10*512+7), g.Offset(10, 7))

	require.NoError(t, g.Check(0, 0, 512))
	require.NoError(t, g.Check(63, 511, 1))
	require.NoError(t, g.Check(63, 512, 0))
	require.ErrorIs(t, g.Check(64, 0, 0), KindInvalidAddress)
	require.ErrorIs(t, g.Check(0, 1, 512), KindInvalidAddress)
	require.ErrorIs(t, g.Check(0, 0, -1), KindInvalidAddress)
	require.False(t, Geometry{BlockSize: 512}.Valid())
}
