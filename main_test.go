package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ftpserver "github.com/fclairamb/ftpserverlib"
	"github.com/fclairamb/go-log/noop"
	"github.com/shiv50084/littlefs-fuse/pkg/lfsbd"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*lfsbd.MemoryDevice, http.Handler) {
	bd, err := lfsbd.NewMemoryDevice(lfsbd.Geometry{BlockSize: 64, BlockCount: 8})
	require.NoError(t, err)
	dev := lfsbd.NewMetricsBlockDevice(bd, t.Name())
	return bd, newRouter(lfsbd.AsAfero(dev), io.Discard, noop.NewNoOpLogger())
}

func TestWebDAVGet(t *testing.T) {
	bd, router := newTestRouter(t)
	data := bytes.Repeat([]byte("block 1 "), 8)
	require.NoError(t, bd.ProgramBlock(1, 0, data))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mount/00000001", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, data, rec.Body.Bytes())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mount/00000008", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebDAVPut(t *testing.T) {
	bd, router := newTestRouter(t)
	data := bytes.Repeat([]byte{0xab}, 64)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/mount/00000002", bytes.NewReader(data)))
	require.Equal(t, http.StatusCreated, rec.Code)

	got := make([]byte, 64)
	require.NoError(t, bd.ReadBlock(2, 0, got))
	require.Equal(t, data, got)
}

func TestWebDAVPropfind(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest("PROPFIND", "/mount/", nil)
	req.Header.Set("Depth", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	require.Contains(t, rec.Body.String(), "/mount/00000007")
}

func TestMetricsEndpoint(t *testing.T) {
	bd, router := newTestRouter(t)
	require.NoError(t, bd.Sync())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mount/00000000", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "littlefs_blockdevice_operations_started_total"))
}

func TestFTPServerAuth(t *testing.T) {
	bd, err := lfsbd.NewMemoryDevice(lfsbd.Geometry{BlockSize: 64, BlockCount: 1})
	require.NoError(t, err)
	driver := &FTPServer{
		Settings:   &ftpserver.Settings{ListenAddr: "127.0.0.1:0"},
		FileSystem: lfsbd.AsAfero(bd),
		Logger:     noop.NewNoOpLogger(),
		User:       "lfs",
		Pass:       "secret",
	}

	settings, err := driver.GetSettings()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:0", settings.ListenAddr)

	_, err = driver.AuthUser(nil, "lfs", "wrong")
	require.Equal(t, errInvalidCredentials, err)

	fs, err := driver.AuthUser(nil, "lfs", "secret")
	require.NoError(t, err)
	_, err = fs.Stat("/00000000")
	require.NoError(t, err)

	_, err = driver.GetTLSConfig()
	require.Equal(t, errNoTLS, err)
}

func TestServeListenFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))

	cfg := lfsbd.Config{}
	driver := &FTPServer{
		Settings: &ftpserver.Settings{ListenAddr: "127.0.0.1:-1"},
	}
	code := serve(path, &cfg, driver, "127.0.0.1:0", noop.NewNoOpLogger())
	require.Equal(t, ErrorCodes["serve"], code)
	require.Nil(t, cfg.Device)
	require.Equal(t, lfsbd.Geometry{BlockSize: 512, BlockCount: 8}, cfg.Geometry())

	require.Equal(t, ErrorCodes["open"], serve(filepath.Join(t.TempDir(), "missing.img"), &lfsbd.Config{}, driver, "", noop.NewNoOpLogger()))
}

func TestHandleSignalsRelease(t *testing.T) {
	stopped := false
	release := handleSignals(func() { stopped = true })
	release()
	require.False(t, stopped)
}
