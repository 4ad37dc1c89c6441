//go:build !linux && !freebsd

package lfsbd

// ioctlGeometry is a stub for platforms without a supported geometry
// ioctl. Callers fall back to the defaults.
func ioctlGeometry(fd uintptr) (uint32, int64, error) {
	return 0, 0, errGeometryUnsupported
}
