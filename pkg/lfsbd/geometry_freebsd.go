//go:build freebsd

package lfsbd

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctlGeometry returns the sector size and media size in bytes of the
// disk behind fd.
func ioctlGeometry(fd uintptr) (uint32, int64, error) {
	var sectorSize uint32
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.DIOCGSECTORSIZE, uintptr(unsafe.Pointer(&sectorSize))); errno != 0 {
		return 0, 0, ioctlError("DIOCGSECTORSIZE", errno)
	}
	var sizeBytes int64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.DIOCGMEDIASIZE, uintptr(unsafe.Pointer(&sizeBytes))); errno != 0 {
		return 0, 0, ioctlError("DIOCGMEDIASIZE", errno)
	}
	return sectorSize, sizeBytes, nil
}
