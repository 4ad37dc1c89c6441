package lfsbd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenImageFileCharacterDevice(t *testing.T) {
	if _, err := os.Stat("/dev/zero"); err != nil {
		t.Skip("/dev/zero is not available")
	}

	// Character devices don't answer BLKSSZGET.
	img, err := OpenImageFile("/dev/zero", Geometry{})
	require.NoError(t, err)
	defer img.Destroy()
	require.Equal(t, Geometry{BlockSize: DefaultBlockSize, BlockCount: DefaultBlockCount}, img.Geometry())
}
