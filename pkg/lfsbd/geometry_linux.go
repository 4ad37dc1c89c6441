//go:build linux

package lfsbd

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctlGeometry returns the logical sector size and total size in bytes
// of the block device behind fd.
func ioctlGeometry(fd uintptr) (uint32, int64, error) {
	sectorSize, err := unix.IoctlGetInt(int(fd), unix.BLKSSZGET)
	if err != nil {
		return 0, 0, ioctlError("BLKSSZGET", err)
	}
	var sizeBytes uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&sizeBytes))); errno != 0 {
		return 0, 0, ioctlError("BLKGETSIZE64", errno)
	}
	return uint32(sectorSize), int64(sizeBytes), nil
}
