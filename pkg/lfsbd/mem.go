package lfsbd

import "fmt"

var _ BlockDevice = (*MemoryDevice)(nil)

// MemoryDevice is a BlockDevice backed by a byte slice. It follows the
// same addressing and erase rules as ImageFile.
type MemoryDevice struct {
	geom   Geometry
	memory []byte
}

// NewMemoryDevice allocates a zero-filled device. Both dimensions of
// geom must be set.
func NewMemoryDevice(geom Geometry) (*MemoryDevice, error) {
	if !geom.Valid() {
		return nil, fmt.Errorf("invalid geometry %d x %d", geom.BlockSize, geom.BlockCount)
	}
	return &MemoryDevice{
		geom:   geom,
		memory: make([]byte, geom.Size()),
	}, nil
}

func (bd *MemoryDevice) Geometry() Geometry {
	return bd.geom
}

func (bd *MemoryDevice) ReadBlock(block, off uint32, buf []byte) error {
	if bd.memory == nil {
		return &Error{Op: "read", Kind: KindClosed, Block: block, Offset: off, Length: len(buf), Err: ErrClosed}
	}
	if err := bd.geom.check("read", block, off, len(buf)); err != nil {
		return err
	}
	copy(buf, bd.memory[bd.geom.Offset(block, off):])
	return nil
}

func (bd *MemoryDevice) ProgramBlock(block, off uint32, buf []byte) error {
	if bd.memory == nil {
		return &Error{Op: "prog", Kind: KindClosed, Block: block, Offset: off, Length: len(buf), Err: ErrClosed}
	}
	if err := bd.geom.check("prog", block, off, len(buf)); err != nil {
		return err
	}
	copy(bd.memory[bd.geom.Offset(block, off):], buf)
	return nil
}

func (bd *MemoryDevice) EraseBlock(block uint32) error {
	if bd.memory == nil {
		return &Error{Op: "erase", Kind: KindClosed, Block: block, Err: ErrClosed}
	}
	return bd.geom.check("erase", block, 0, 0)
}

func (bd *MemoryDevice) Sync() error {
	if bd.memory == nil {
		return &Error{Op: "sync", Kind: KindClosed, Err: ErrClosed}
	}
	return nil
}

// Destroy drops the backing memory.
func (bd *MemoryDevice) Destroy() {
	bd.memory = nil
}
