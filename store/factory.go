package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/logger"
)

// Factory creates a Store from configuration.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (Store, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a backend factory for the given provider name.
// Backend packages call this from an init function.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers returns the names of the registered backends.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates a Store for cfg.Provider. The backend package must have been
// imported (e.g. _ "github.com/kbukum/gfnkit/store/local") so its factory
// is registered.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	l := log.WithComponent("store")

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.InvalidInput("storage.provider",
			fmt.Sprintf("unsupported provider %q (not registered)", cfg.Provider))
	}

	l.Info("initializing archive store", logger.Fields("provider", cfg.Provider))
	return f(ctx, cfg, l)
}
