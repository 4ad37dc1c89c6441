package lfsbd

import "errors"

// Config is the part of the littlefs configuration that the block
// device layer reads and fills in.
type Config struct {
	// BlockSize in bytes. Zero asks Create to detect it.
	BlockSize uint32
	// BlockCount in blocks. Zero asks Create to detect it.
	BlockCount uint32
	// Device is bound by Create and released by Destroy.
	Device BlockDevice
}

// Geometry returns the configured block size and count.
func (cfg *Config) Geometry() Geometry {
	return Geometry{BlockSize: cfg.BlockSize, BlockCount: cfg.BlockCount}
}

// Create opens the image at path and binds it into cfg, replacing zero
// geometry fields with the resolved values.
func Create(cfg *Config, path string, opts ...Option) error {
	if cfg.Device != nil {
		return &Error{Op: "create", Kind: KindOpen, Path: path, Err: errors.New("config already has a device bound")}
	}

	img, err := OpenImageFile(path, cfg.Geometry(), opts...)
	if err != nil {
		return err
	}

	geom := img.Geometry()
	cfg.BlockSize = geom.BlockSize
	cfg.BlockCount = geom.BlockCount
	cfg.Device = img
	return nil
}

// Destroy releases the device bound into cfg. It never fails.
func Destroy(cfg *Config) {
	if cfg.Device == nil {
		return
	}
	if d, ok := cfg.Device.(interface{ Destroy() }); ok {
		d.Destroy()
	}
	cfg.Device = nil
}
