package wgpu

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache"
	"github.com/gogpu/psocache/backend"
)

func init() {
	backend.Register(backend.BackendWGPU, func(device hal.Device) (psocache.Compiler, error) {
		return NewCompiler(device)
	})
}
