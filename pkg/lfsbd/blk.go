package lfsbd

import "fmt"

const (
	// DefaultBlockSize is used when the block size is neither given by
	// the caller nor reported by the backing device.
	DefaultBlockSize = 512

	// DefaultBlockCount is used when the block count is neither given by
	// the caller nor derivable from the size of the backing file.
	DefaultBlockCount = 64
)

// BlockDevice is the block contract littlefs programs against. Blocks
// are addressed by index, and every access stays inside a single
// block.
//
// Implementations don't lock. The filesystem serializes all calls.
type BlockDevice interface {
	// ReadBlock fills buf with the bytes stored at off within block.
	ReadBlock(block, off uint32, buf []byte) error
	// ProgramBlock writes buf at off within block.
	ProgramBlock(block, off uint32, buf []byte) error
	// EraseBlock prepares block for programming.
	EraseBlock(block uint32) error
	// Sync makes all previous writes durable.
	Sync() error
	// Geometry reports the resolved block size and count.
	Geometry() Geometry
}

// Geometry describes the layout of a block device.
type Geometry struct {
	BlockSize  uint32
	BlockCount uint32
}

// Size returns the number of addressable bytes.
func (g Geometry) Size() int64 {
	return int64(g.BlockSize) * int64(g.BlockCount)
}

// Valid reports whether both dimensions are non-zero.
func (g Geometry) Valid() bool {
	return g.BlockSize > 0 && g.BlockCount > 0
}

// Check verifies that length bytes starting at off lie within block.
func (g Geometry) Check(block, off uint32, length int) error {
	return g.check("check", block, off, length)
}

func (g Geometry) check(op string, block, off uint32, length int) error {
	var cause error
	switch {
	case block >= g.BlockCount:
		cause = fmt.Errorf("block %d out of range, device has %d blocks", block, g.BlockCount)
	case length < 0 || uint64(off)+uint64(length) > uint64(g.BlockSize):
		cause = fmt.Errorf("range %d+%d exceeds block size %d", off, length, g.BlockSize)
	default:
		return nil
	}
	return &Error{
		Op:     op,
		Kind:   KindInvalidAddress,
		Block:  block,
		Offset: off,
		Length: length,
		Err:    cause,
	}
}

// Offset translates a block address into a byte offset. The address
// must have passed Check.
func (g Geometry) Offset(block, off uint32) int64 {
	return int64(block)*int64(g.BlockSize) + int64(off)
}
