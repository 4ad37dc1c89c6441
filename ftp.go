package main

import (
	"crypto/tls"
	"errors"

	ftpserver "github.com/fclairamb/ftpserverlib"
	log "github.com/fclairamb/go-log"
	"github.com/spf13/afero"
)

var (
	errNoTLS              = errors.New("TLS is not configured")
	errInvalidCredentials = errors.New("invalid credentials")
)

// FTPServer is the ftpserverlib main driver. Every authenticated client
// gets the same FileSystem.
type FTPServer struct {
	Settings   *ftpserver.Settings
	FileSystem afero.Fs
	Logger     log.Logger

	// User and Pass are checked when User is set.
	User string
	Pass string
}

var _ ftpserver.MainDriver = (*FTPServer)(nil)

func (s *FTPServer) GetSettings() (*ftpserver.Settings, error) {
	return s.Settings, nil
}

func (s *FTPServer) ClientConnected(cc ftpserver.ClientContext) (string, error) {
	s.Logger.Info("Client connected", "clientId", cc.ID(), "remoteAddr", cc.RemoteAddr())
	return "littlefs block device", nil
}

func (s *FTPServer) ClientDisconnected(cc ftpserver.ClientContext) {
	s.Logger.Info("Client disconnected", "clientId", cc.ID())
}

func (s *FTPServer) AuthUser(cc ftpserver.ClientContext, user, pass string) (ftpserver.ClientDriver, error) {
	if s.User != "" && (user != s.User || pass != s.Pass) {
		return nil, errInvalidCredentials
	}
	return s.FileSystem, nil
}

func (s *FTPServer) GetTLSConfig() (*tls.Config, error) {
	return nil, errNoTLS
}
