package lfsbd

import (
	log "github.com/fclairamb/go-log"
	"github.com/fclairamb/go-log/noop"
	"github.com/spf13/afero"
)

type options struct {
	fs     afero.Fs
	logger log.Logger
}

// Option configures how a block device is opened.
type Option func(*options)

// WithFs opens backing files through fs instead of the host filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithLogger sets the logger that receives one debug event per
// operation. Nothing is logged by default.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		fs:     afero.NewOsFs(),
		logger: noop.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
