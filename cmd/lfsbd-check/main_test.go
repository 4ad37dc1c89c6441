package main

import (
	"os"
	"testing"

	"github.com/fclairamb/go-log/noop"
	"github.com/shiv50084/littlefs-fuse/pkg/lfsbd"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, createImage(fs, "/disk.img", 32768))

	c := &check{
		fs:     fs,
		path:   "/disk.img",
		cfg:    lfsbd.Config{BlockSize: 512, BlockCount: 64},
		block:  10,
		logger: noop.NewNoOpLogger(),
	}
	require.NoError(t, c.run())
	require.Nil(t, c.cfg.Device)

	raw, err := afero.ReadFile(fs, "/disk.img")
	require.NoError(t, err)
	require.Len(t, raw, 32768)
	for i, b := range raw[10*512 : 10*512+64] {
		require.Equal(t, byte(0xab), b, "byte %d", i)
	}
	require.Equal(t, byte(0), raw[10*512+64])
}

func TestCheckFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, createImage(fs, "/disk.img", 1024))
	require.ErrorIs(t, createImage(fs, "/disk.img", 1024), os.ErrExist)

	c := &check{fs: fs, path: "/missing.img", logger: noop.NewNoOpLogger()}
	require.ErrorIs(t, c.run(), lfsbd.KindOpen)

	c = &check{fs: fs, path: "/disk.img", block: 2, logger: noop.NewNoOpLogger()}
	require.ErrorIs(t, c.run(), lfsbd.KindInvalidAddress)
	require.Nil(t, c.cfg.Device)
}
