package wgpu

import (
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache/internal/hashkey"
)

const (
	tagRenderTarget uint32 = 0x7267
)

// RenderTarget describes the attachments a render pipeline draws into.
// It is used as the descriptor's render pass.
//
// Two targets with the same formats are interchangeable.
type RenderTarget struct {
	ColorFormats       []gputypes.TextureFormat
	DepthStencilFormat gputypes.TextureFormat
}

// Identity hashes the attachment formats. A nil target has the identity of
// an absent render pass.
func (t *RenderTarget) Identity() uint64 {
	if t == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagRenderTarget)
	w.Len(len(t.ColorFormats))
	for _, f := range t.ColorFormats {
		w.Uint32(uint32(f))
	}
	w.Uint32(uint32(t.DepthStencilFormat))
	return w.Sum()
}

// SurfaceTarget returns a target with one color attachment in the
// provider's surface format and the given depth/stencil format. Headless
// providers report TextureFormatUndefined; BGRA8Unorm is used then.
func SurfaceTarget(p gpucontext.DeviceProvider, depth gputypes.TextureFormat) *RenderTarget {
	format := p.SurfaceFormat()
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	return &RenderTarget{
		ColorFormats:       []gputypes.TextureFormat{format},
		DepthStencilFormat: depth,
	}
}

var nextLayoutID atomic.Uint64

// Layout wraps a HAL pipeline layout. Each Layout has its own identity, so
// pipelines built against different Layout values never share a cache entry.
type Layout struct {
	id     uint64
	raw    hal.PipelineLayout
	device hal.Device
}

// Identity returns the layout's unique ID, or the identity of an absent
// layout for nil.
func (l *Layout) Identity() uint64 {
	if l == nil {
		return hashkey.Absent
	}
	return l.id
}

// Raw returns the HAL pipeline layout.
func (l *Layout) Raw() hal.PipelineLayout { return l.raw }

// Destroy releases the HAL pipeline layout. Pipelines using it must have
// been released first.
func (l *Layout) Destroy() {
	if l.raw != nil && l.device != nil {
		l.device.DestroyPipelineLayout(l.raw)
		l.raw = nil
	}
}
