package lfsbd

import (
	"errors"
	"math"
	"os"

	log "github.com/fclairamb/go-log"
	"github.com/spf13/afero"
)

// errGeometryUnsupported is returned by probeDevice on platforms or
// devices that can't report a sector size.
var errGeometryUnsupported = errors.New("geometry query not supported")

// probeDevice queries the sector size and total size of the device
// behind fd.
var probeDevice = ioctlGeometry

type fder interface {
	Fd() uintptr
}

// resolveGeometry fills in the zero fields of requested. A field given
// by the caller always wins, then whatever the device reports, then
// the package defaults.
func resolveGeometry(f afero.File, requested Geometry, logger log.Logger) (Geometry, error) {
	g := requested
	if g.Valid() {
		return g, nil
	}

	var sectorSize uint32
	var sizeBytes int64
	info, err := f.Stat()
	switch {
	case err != nil:
		logger.Debug("Size query failed, using defaults", "path", f.Name(), "err", err)
	case info.Mode()&os.ModeDevice != 0:
		fd, ok := f.(fder)
		if !ok {
			logger.Debug("Handle has no descriptor, using defaults", "path", f.Name())
			break
		}
		sectorSize, sizeBytes, err = probeDevice(fd.Fd())
		if errors.Is(err, errGeometryUnsupported) {
			logger.Debug("Geometry query unsupported, using defaults", "path", f.Name(), "err", err)
		} else if err != nil {
			return Geometry{}, &Error{Op: "create", Kind: KindGeometryQuery, Path: f.Name(), Err: err}
		}
	default:
		// Plain files have no sector size of their own.
		sizeBytes = info.Size()
	}

	if g.BlockSize == 0 {
		g.BlockSize = sectorSize
		if g.BlockSize == 0 {
			g.BlockSize = DefaultBlockSize
		}
	}
	if g.BlockCount == 0 {
		switch n := sizeBytes / int64(g.BlockSize); {
		case n <= 0:
			g.BlockCount = DefaultBlockCount
		case n > math.MaxUint32:
			g.BlockCount = math.MaxUint32
		default:
			g.BlockCount = uint32(n)
		}
	}
	return g, nil
}
