package psocache

import (
	"fmt"
)

// Layout is the resource layout a pipeline is created against.
// Identity must be stable and equal for interchangeable layouts.
type Layout interface {
	Identity() uint64
}

// RenderPass is the render pass a graphics pipeline is compatible with.
type RenderPass interface {
	Identity() uint64
}

// Descriptor is the full description of a pipeline.
//
// A nil block means the stage of the pipeline it configures is absent, which
// hashes differently from a present block with zero values. Rasterization is
// always present.
//
// The cache does not retain the descriptor or anything it points to beyond
// the duration of a call.
type Descriptor struct {
	// Label is used for debugging only and never takes part in identity.
	Label string

	Flags  CreateFlags
	Stages []ShaderStage

	VertexInput   *VertexInputState
	InputAssembly *InputAssemblyState
	Tessellation  *TessellationState
	Viewport      *ViewportState
	Rasterization RasterizationState
	Multisample   *MultisampleState
	DepthStencil  *DepthStencilState
	ColorBlend    *ColorBlendState
	Dynamic       *DynamicState

	Layout     Layout
	RenderPass RenderPass
	Subpass    uint32

	// Extensions is the pipeline-level extension chain.
	Extensions []Extension
}

// IsCompute reports whether the descriptor describes a compute pipeline.
func (d *Descriptor) IsCompute() bool {
	return len(d.Stages) == 1 && d.Stages[0].Kind == StageCompute
}

// Stage returns the stage of the given kind, or nil.
func (d *Descriptor) Stage(kind StageKind) *ShaderStage {
	for i := range d.Stages {
		if d.Stages[i].Kind == kind {
			return &d.Stages[i]
		}
	}
	return nil
}

// RenderingFormats returns the dynamic rendering formats attached to the
// pipeline chain, or nil.
func (d *Descriptor) RenderingFormats() *RenderingFormats {
	if e, ok := findExtension(d.Extensions, ExtRenderingFormats).(*RenderingFormats); ok {
		return e
	}
	return nil
}

// Validate reports structural problems that would make the descriptor
// unbuildable. The returned error wraps ErrInvalidDescriptor.
func (d *Descriptor) Validate() error {
	if d == nil {
		return ErrNilDescriptor
	}
	if len(d.Stages) == 0 {
		return invalid(d, "no shader stages")
	}

	var seen [StageCompute + 1]bool
	for i := range d.Stages {
		s := &d.Stages[i]
		if s.Kind < StageVertex || s.Kind > StageCompute {
			return invalid(d, "stage %d: unknown kind %d", i, s.Kind)
		}
		if seen[s.Kind] {
			return invalid(d, "duplicate %s stage", s.Kind)
		}
		seen[s.Kind] = true
		if s.Module == nil {
			return invalid(d, "%s stage has no module", s.Kind)
		}
	}

	if seen[StageCompute] {
		if len(d.Stages) != 1 {
			return invalid(d, "compute stage combined with graphics stages")
		}
		if d.RenderPass != nil {
			return invalid(d, "compute pipeline has a render pass")
		}
	} else if !seen[StageVertex] {
		return invalid(d, "graphics pipeline has no vertex stage")
	}

	if seen[StageTessControl] != seen[StageTessEval] {
		return invalid(d, "tessellation needs both control and evaluation stages")
	}
	if seen[StageTessEval] && d.Tessellation == nil {
		return invalid(d, "tessellation stages without tessellation state")
	}

	if err := checkChain(d, d.Rasterization.Extensions, ChainRasterization); err != nil {
		return err
	}
	if d.ColorBlend != nil {
		if err := checkChain(d, d.ColorBlend.Extensions, ChainColorBlend); err != nil {
			return err
		}
	}
	return checkChain(d, d.Extensions, ChainPipeline)
}

func checkChain(d *Descriptor, chain []Extension, at ChainPoint) error {
	for i, e := range chain {
		if e == nil {
			return invalid(d, "%s chain entry %d is nil", at, i)
		}
		if e.Chain() != at {
			return invalid(d, "%s chain entry %d belongs to the %s chain", at, i, e.Chain())
		}
	}
	return nil
}

func invalid(d *Descriptor, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if d.Label != "" {
		return fmt.Errorf("%w: %q: %s", ErrInvalidDescriptor, d.Label, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalidDescriptor, msg)
}

// Equal reports whether two descriptors describe the same pipeline.
// It compares every field that takes part in hashing, so Equal descriptors
// always produce equal hashes. Label is ignored.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Flags.identityFlags() == o.Flags.identityFlags() &&
		stagesEqual(d.Stages, o.Stages) &&
		d.VertexInput.Equal(o.VertexInput) &&
		d.InputAssembly.Equal(o.InputAssembly) &&
		d.Tessellation.Equal(o.Tessellation) &&
		d.Viewport.Equal(o.Viewport) &&
		d.Rasterization.Equal(&o.Rasterization) &&
		d.Multisample.Equal(o.Multisample) &&
		d.DepthStencil.Equal(o.DepthStencil) &&
		d.ColorBlend.Equal(o.ColorBlend) &&
		d.Dynamic.Equal(o.Dynamic) &&
		identity(d.Layout) == identity(o.Layout) &&
		identity(d.RenderPass) == identity(o.RenderPass) &&
		d.Subpass == o.Subpass &&
		chainEqual(d.Extensions, o.Extensions)
}

type identifier interface {
	Identity() uint64
}

// identity returns the identity of a layout or render pass, Absent for nil.
func identity(v identifier) uint64 {
	if v == nil {
		return absent
	}
	return v.Identity()
}
