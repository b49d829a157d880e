package wgpu

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache"
)

// halModule is implemented by shader modules that carry a HAL module.
type halModule interface {
	Raw() hal.ShaderModule
}

// halDevicer is implemented by *wgpu.Device.
type halDevicer interface {
	HalDevice() hal.Device
}

// halProvider is implemented by device providers that expose their HAL
// device directly.
type halProvider interface {
	HalDevice() any
}

// Compiler creates HAL pipelines for the cache.
//
// Thread Safety:
// Compiler is safe for concurrent use if the HAL device is.
type Compiler struct {
	device hal.Device

	renders  atomic.Uint64
	computes atomic.Uint64
}

var _ psocache.Compiler = (*Compiler)(nil)

// NewCompiler returns a compiler creating pipelines on device.
func NewCompiler(device hal.Device) (*Compiler, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &Compiler{device: device}, nil
}

// NewCompilerFromProvider returns a compiler for the HAL device behind a
// gpucontext provider.
func NewCompilerFromProvider(provider gpucontext.DeviceProvider) (*Compiler, error) {
	if provider == nil {
		return nil, ErrNilDevice
	}
	if hp, ok := provider.(halProvider); ok {
		if d, ok := hp.HalDevice().(hal.Device); ok && d != nil {
			return NewCompiler(d)
		}
	}
	if hd, ok := provider.Device().(halDevicer); ok {
		if d := hd.HalDevice(); d != nil {
			return NewCompiler(d)
		}
	}
	return nil, ErrNoHALDevice
}

// Device returns the HAL device.
func (c *Compiler) Device() hal.Device { return c.device }

// Created returns how many render and compute pipelines the compiler has
// created.
func (c *Compiler) Created() (render, compute uint64) {
	return c.renders.Load(), c.computes.Load()
}

// CreateLayout creates a pipeline layout from bind group layouts.
func (c *Compiler) CreateLayout(label string, groups ...hal.BindGroupLayout) (*Layout, error) {
	raw, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: groups,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline layout %q: %w", label, err)
	}
	return &Layout{
		id:     nextLayoutID.Add(1),
		raw:    raw,
		device: c.device,
	}, nil
}

// Build implements psocache.Compiler.
func (c *Compiler) Build(desc *psocache.Descriptor, base *psocache.Pipeline, flags psocache.CreateFlags) (psocache.Object, error) {
	p := &Pipeline{
		device: c.device,
		hashes: psocache.ComputeHashes(desc),
		label:  desc.Label,
		flags:  flags,
	}
	if base != nil && flags.Has(psocache.FlagDerivative) {
		p.baseID = base.ID()
		psocache.Logger().Debug("wgpu: derivation hint ignored",
			"label", desc.Label, "base", base.ID())
	}

	var err error
	if desc.IsCompute() {
		err = c.buildCompute(desc, p)
	} else {
		err = c.buildRender(desc, p)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Compiler) buildRender(desc *psocache.Descriptor, p *Pipeline) error {
	hd, err := translateRender(desc)
	if err != nil {
		return err
	}
	raw, err := c.device.CreateRenderPipeline(hd)
	if err != nil {
		return fmt.Errorf("wgpu: create render pipeline %q: %w", desc.Label, err)
	}
	p.render = raw
	c.renders.Add(1)
	return nil
}

func (c *Compiler) buildCompute(desc *psocache.Descriptor, p *Pipeline) error {
	hd, err := translateCompute(desc)
	if err != nil {
		return err
	}
	raw, err := c.device.CreateComputePipeline(hd)
	if err != nil {
		return fmt.Errorf("wgpu: create compute pipeline %q: %w", desc.Label, err)
	}
	p.compute = raw
	c.computes.Add(1)
	return nil
}
