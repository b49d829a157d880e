package wgpu

import "errors"

var (
	// ErrNilDevice is returned when creating a compiler without a device.
	ErrNilDevice = errors.New("wgpu: HAL device is nil")

	// ErrNoHALDevice is returned when a device provider does not expose a
	// HAL device.
	ErrNoHALDevice = errors.New("wgpu: provider does not expose a HAL device")

	// ErrUnsupported is wrapped by errors for pipeline features the HAL
	// cannot express.
	ErrUnsupported = errors.New("wgpu: unsupported pipeline feature")

	// ErrForeignModule is returned when a stage's module does not carry a
	// HAL shader module.
	ErrForeignModule = errors.New("wgpu: shader module has no HAL module")

	// ErrNoTargets is returned for a graphics pipeline whose attachment
	// formats are unknown.
	ErrNoTargets = errors.New("wgpu: no render target formats")

	// ErrNoDepthTarget is returned when depth/stencil state is set but the
	// render target has no depth/stencil format.
	ErrNoDepthTarget = errors.New("wgpu: depth/stencil state without depth/stencil format")
)
