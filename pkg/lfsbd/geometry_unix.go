//go:build linux || freebsd

package lfsbd

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ioctlError wraps the failure of a geometry ioctl. Errors meaning the
// device can't answer the request map to errGeometryUnsupported.
func ioctlError(request string, err error) error {
	if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOSYS) {
		return fmt.Errorf("%s: %w: %w", request, errGeometryUnsupported, err)
	}
	return fmt.Errorf("%s: %w", request, err)
}
