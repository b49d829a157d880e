package backend

import (
	"errors"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache"
)

var (
	// ErrBackendNotAvailable is returned when no backend with the requested
	// name is registered.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend names.
const (
	BackendWGPU = "wgpu"
	BackendNull = "null"
)

// Factory creates a pipeline compiler for a HAL device. Backends that do not
// talk to a device accept nil.
type Factory func(device hal.Device) (psocache.Compiler, error)
