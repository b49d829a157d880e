package psocache

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/psocache/internal/hashkey"
)

// ChainPoint names the state block an extension chain hangs off.
type ChainPoint uint8

const (
	ChainRasterization ChainPoint = iota + 1
	ChainColorBlend
	ChainPipeline
)

// String returns the chain name.
func (c ChainPoint) String() string {
	switch c {
	case ChainRasterization:
		return "rasterization"
	case ChainColorBlend:
		return "color-blend"
	case ChainPipeline:
		return "pipeline"
	default:
		return "unknown"
	}
}

// ExtensionKind identifies an extension variant.
type ExtensionKind uint32

const (
	ExtConservativeRasterization ExtensionKind = iota + 1
	ExtLineRasterization
	ExtProvokingVertex
	ExtDepthClipControl
	ExtColorWriteEnable
	ExtAdvancedBlend
	ExtRenderingFormats
)

// Extension is one entry of an extension chain. The set of variants is
// closed; the types in this file are the only implementations.
//
// Chains are hashed and compared in the order the entries appear, so the
// same extensions attached in a different order form a different pipeline.
type Extension interface {
	Kind() ExtensionKind
	Chain() ChainPoint

	hash(w *hashkey.Writer)
	equal(o Extension) bool
}

// ConservativeMode is the conservative rasterization mode.
type ConservativeMode uint32

const (
	ConservativeDisabled ConservativeMode = iota
	ConservativeOverestimate
	ConservativeUnderestimate
)

// ConservativeRasterization enables conservative rasterization.
type ConservativeRasterization struct {
	Mode      ConservativeMode
	ExtraSize float32
}

func (*ConservativeRasterization) Kind() ExtensionKind { return ExtConservativeRasterization }
func (*ConservativeRasterization) Chain() ChainPoint   { return ChainRasterization }

func (e *ConservativeRasterization) hash(w *hashkey.Writer) {
	w.Uint32(uint32(e.Mode))
	w.Float32(e.ExtraSize)
}

func (e *ConservativeRasterization) equal(o Extension) bool {
	x, ok := o.(*ConservativeRasterization)
	return ok && e.Mode == x.Mode && f32eq(e.ExtraSize, x.ExtraSize)
}

// LineMode is the line rasterization algorithm.
type LineMode uint32

const (
	LineDefault LineMode = iota
	LineRectangular
	LineBresenham
	LineRectangularSmooth
)

// LineRasterization selects the line algorithm and stippling.
type LineRasterization struct {
	Mode           LineMode
	Stipple        bool
	StippleFactor  uint32
	StipplePattern uint16
}

func (*LineRasterization) Kind() ExtensionKind { return ExtLineRasterization }
func (*LineRasterization) Chain() ChainPoint   { return ChainRasterization }

func (e *LineRasterization) hash(w *hashkey.Writer) {
	w.Uint32(uint32(e.Mode))
	w.Bool(e.Stipple)
	w.Uint32(e.StippleFactor)
	w.Uint32(uint32(e.StipplePattern))
}

func (e *LineRasterization) equal(o Extension) bool {
	x, ok := o.(*LineRasterization)
	return ok && *e == *x
}

// ProvokingVertex selects which vertex of a primitive supplies flat
// attributes.
type ProvokingVertex struct {
	Last bool
}

func (*ProvokingVertex) Kind() ExtensionKind { return ExtProvokingVertex }
func (*ProvokingVertex) Chain() ChainPoint   { return ChainRasterization }

func (e *ProvokingVertex) hash(w *hashkey.Writer) { w.Bool(e.Last) }

func (e *ProvokingVertex) equal(o Extension) bool {
	x, ok := o.(*ProvokingVertex)
	return ok && *e == *x
}

// DepthClipControl selects the clip-space depth range.
type DepthClipControl struct {
	NegativeOneToOne bool
}

func (*DepthClipControl) Kind() ExtensionKind { return ExtDepthClipControl }
func (*DepthClipControl) Chain() ChainPoint   { return ChainRasterization }

func (e *DepthClipControl) hash(w *hashkey.Writer) { w.Bool(e.NegativeOneToOne) }

func (e *DepthClipControl) equal(o Extension) bool {
	x, ok := o.(*DepthClipControl)
	return ok && *e == *x
}

// ColorWriteEnable toggles writes per color attachment.
type ColorWriteEnable struct {
	Enables []bool
}

func (*ColorWriteEnable) Kind() ExtensionKind { return ExtColorWriteEnable }
func (*ColorWriteEnable) Chain() ChainPoint   { return ChainColorBlend }

func (e *ColorWriteEnable) hash(w *hashkey.Writer) {
	w.Len(len(e.Enables))
	for _, v := range e.Enables {
		w.Bool(v)
	}
}

func (e *ColorWriteEnable) equal(o Extension) bool {
	x, ok := o.(*ColorWriteEnable)
	if !ok || len(e.Enables) != len(x.Enables) {
		return false
	}
	for i := range e.Enables {
		if e.Enables[i] != x.Enables[i] {
			return false
		}
	}
	return true
}

// BlendOverlap is the advanced-blend overlap mode.
type BlendOverlap uint32

const (
	OverlapUncorrelated BlendOverlap = iota
	OverlapDisjoint
	OverlapConjoint
)

// AdvancedBlend configures advanced blend equations.
type AdvancedBlend struct {
	SrcPremultiplied bool
	DstPremultiplied bool
	Overlap          BlendOverlap
}

func (*AdvancedBlend) Kind() ExtensionKind { return ExtAdvancedBlend }
func (*AdvancedBlend) Chain() ChainPoint   { return ChainColorBlend }

func (e *AdvancedBlend) hash(w *hashkey.Writer) {
	w.Bool(e.SrcPremultiplied)
	w.Bool(e.DstPremultiplied)
	w.Uint32(uint32(e.Overlap))
}

func (e *AdvancedBlend) equal(o Extension) bool {
	x, ok := o.(*AdvancedBlend)
	return ok && *e == *x
}

// RenderingFormats describes the attachments of a pipeline used with
// dynamic rendering, in place of a render pass.
type RenderingFormats struct {
	ViewMask      uint32
	ColorFormats  []gputypes.TextureFormat
	DepthFormat   gputypes.TextureFormat
	StencilFormat gputypes.TextureFormat
}

func (*RenderingFormats) Kind() ExtensionKind { return ExtRenderingFormats }
func (*RenderingFormats) Chain() ChainPoint   { return ChainPipeline }

func (e *RenderingFormats) hash(w *hashkey.Writer) {
	w.Uint32(e.ViewMask)
	w.Len(len(e.ColorFormats))
	for _, f := range e.ColorFormats {
		w.Uint32(uint32(f))
	}
	w.Uint32(uint32(e.DepthFormat))
	w.Uint32(uint32(e.StencilFormat))
}

func (e *RenderingFormats) equal(o Extension) bool {
	x, ok := o.(*RenderingFormats)
	if !ok || e.ViewMask != x.ViewMask || e.DepthFormat != x.DepthFormat ||
		e.StencilFormat != x.StencilFormat || len(e.ColorFormats) != len(x.ColorFormats) {
		return false
	}
	for i := range e.ColorFormats {
		if e.ColorFormats[i] != x.ColorFormats[i] {
			return false
		}
	}
	return true
}

// writeChain hashes an extension chain into w. Each entry contributes its
// kind followed by its fields; a nil entry contributes Absent.
func writeChain(w *hashkey.Writer, chain []Extension) {
	w.Len(len(chain))
	for _, e := range chain {
		if e == nil {
			w.Uint64(hashkey.Absent)
			continue
		}
		w.Uint32(uint32(e.Kind()))
		e.hash(w)
	}
}

// hashChain returns the standalone digest of a chain.
func hashChain(tag uint32, chain []Extension) uint64 {
	w := hashkey.NewWriter(tag)
	writeChain(w, chain)
	return w.Sum()
}

func chainEqual(a, b []Extension) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == nil || b[i] == nil {
			if a[i] != b[i] {
				return false
			}
			continue
		}
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}

// findExtension returns the first entry of kind k, or nil.
func findExtension(chain []Extension, k ExtensionKind) Extension {
	for _, e := range chain {
		if e != nil && e.Kind() == k {
			return e
		}
	}
	return nil
}
