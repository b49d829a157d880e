package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// First registered name in this list wins in Default.
	backendPriority = []string{BackendWGPU, BackendNull}
)

func init() {
	Register(BackendNull, func(hal.Device) (psocache.Compiler, error) {
		return NewNullCompiler(), nil
	})
}

// Register registers a factory under name, replacing any previous one.
// It is typically called from init functions in backend packages.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend. It is useful in tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// New creates a compiler from the named backend.
func New(name string, device hal.Device) (psocache.Compiler, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	return factory(device)
}

// Default creates a compiler from the highest priority backend that accepts
// the device, and returns its name.
func Default(device hal.Device) (psocache.Compiler, string, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		factory, ok := factories[name]
		if !ok {
			continue
		}
		c, err := factory(device)
		if err == nil && c != nil {
			return c, name, nil
		}
	}
	return nil, "", ErrBackendNotAvailable
}
