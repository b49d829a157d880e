package wgpu

import (
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache"
)

// Pipeline is the object a Compiler builds. Exactly one of Render and
// Compute is non-nil.
type Pipeline struct {
	device  hal.Device
	render  hal.RenderPipeline
	compute hal.ComputePipeline

	hashes psocache.HashPair
	flags  psocache.CreateFlags
	baseID uint64
	label  string

	once sync.Once
}

var (
	_ psocache.Object       = (*Pipeline)(nil)
	_ psocache.HashReporter = (*Pipeline)(nil)
)

// Render returns the HAL render pipeline, or nil for a compute pipeline.
func (p *Pipeline) Render() hal.RenderPipeline { return p.render }

// Compute returns the HAL compute pipeline, or nil for a render pipeline.
func (p *Pipeline) Compute() hal.ComputePipeline { return p.compute }

// Hashes returns the hashes of the descriptor as seen when the HAL pipeline
// was created.
func (p *Pipeline) Hashes() psocache.HashPair { return p.hashes }

// Flags returns the flags the pipeline was built with.
func (p *Pipeline) Flags() psocache.CreateFlags { return p.flags }

// DerivedFrom returns the ID of the cache pipeline that was offered as a
// base, or 0.
func (p *Pipeline) DerivedFrom() uint64 { return p.baseID }

// Label returns the descriptor label.
func (p *Pipeline) Label() string { return p.label }

// Destroy releases the HAL pipeline. It is safe to call more than once.
func (p *Pipeline) Destroy() {
	p.once.Do(func() {
		switch {
		case p.render != nil:
			p.device.DestroyRenderPipeline(p.render)
		case p.compute != nil:
			p.device.DestroyComputePipeline(p.compute)
		}
		p.render = nil
		p.compute = nil
	})
}
