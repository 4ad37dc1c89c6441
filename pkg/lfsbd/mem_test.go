package lfsbd_test

import (
	"bytes"
	"testing"

	"github.com/shiv50084/littlefs-fuse/pkg/lfsbd"
	"github.com/stretchr/testify/require"
)

func TestMemoryDevice(t *testing.T) {
	_, err := lfsbd.NewMemoryDevice(lfsbd.Geometry{BlockSize: 512})
	require.Error(t, err)

	bd, err := lfsbd.NewMemoryDevice(lfsbd.Geometry{BlockSize: 128, BlockCount: 4})
	require.NoError(t, err)

	data := bytes.Repeat([]byte{0xab}, 64)
	require.NoError(t, bd.ProgramBlock(2, 32, data))
	require.NoError(t, bd.EraseBlock(2))
	require.NoError(t, bd.Sync())

	got := make([]byte, 128)
	require.NoError(t, bd.ReadBlock(2, 0, got))
	require.Equal(t, make([]byte, 32), got[:32])
	require.Equal(t, data, got[32:96])
	require.Equal(t, make([]byte, 32), got[96:])

	require.ErrorIs(t, bd.ReadBlock(4, 0, got[:1]), lfsbd.KindInvalidAddress)
	require.ErrorIs(t, bd.ProgramBlock(3, 100, data), lfsbd.KindInvalidAddress)
	require.ErrorIs(t, bd.EraseBlock(4), lfsbd.KindInvalidAddress)

	bd.Destroy()
	require.ErrorIs(t, bd.ReadBlock(0, 0, got), lfsbd.ErrClosed)
	require.ErrorIs(t, bd.Sync(), lfsbd.KindClosed)
}
