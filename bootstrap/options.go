package bootstrap

import (
	"time"

	"github.com/kbukum/gfnkit/compose"
	"github.com/kbukum/gfnkit/logger"
	"github.com/kbukum/gfnkit/store"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	store           store.Store
	loader          compose.Loader
	gracefulTimeout *time.Duration
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger instead of initializing the global one
// from cfg.Logging.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithStore uses s instead of building a store from cfg.Storage.
func WithStore(s store.Store) Option {
	return func(o *appOptions) {
		o.store = s
	}
}

// WithLoader uses l instead of a compose.FileLoader over cfg.Compose.Dirs.
func WithLoader(l compose.Loader) Option {
	return func(o *appOptions) {
		o.loader = l
	}
}

// WithGracefulTimeout sets the maximum duration for Shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}
