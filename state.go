package psocache

import (
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/psocache/internal/hashkey"
)

// State blocks are plain values owned by the caller's Descriptor.
// Every block is nil-safe: a nil block hashes to hashkey.Absent and equals
// only another nil block. Floats are hashed and compared by bit pattern so
// that Hash and Equal always agree.

// VertexInputState describes the vertex buffers read by the vertex stage.
type VertexInputState struct {
	Buffers []gputypes.VertexBufferLayout
}

// Hash returns the digest of the block.
func (s *VertexInputState) Hash() uint64 {
	if s == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagVertexInput)
	w.Len(len(s.Buffers))
	for i := range s.Buffers {
		b := &s.Buffers[i]
		w.Uint64(b.ArrayStride)
		w.Uint32(uint32(b.StepMode))
		w.Len(len(b.Attributes))
		for j := range b.Attributes {
			a := &b.Attributes[j]
			w.Uint32(uint32(a.Format))
			w.Uint64(a.Offset)
			w.Uint32(a.ShaderLocation)
		}
	}
	return w.Sum()
}

// Equal reports whether both blocks describe the same vertex input.
func (s *VertexInputState) Equal(o *VertexInputState) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.Buffers) != len(o.Buffers) {
		return false
	}
	for i := range s.Buffers {
		a, b := &s.Buffers[i], &o.Buffers[i]
		if a.ArrayStride != b.ArrayStride || a.StepMode != b.StepMode ||
			len(a.Attributes) != len(b.Attributes) {
			return false
		}
		for j := range a.Attributes {
			if a.Attributes[j] != b.Attributes[j] {
				return false
			}
		}
	}
	return true
}

// InputAssemblyState describes primitive assembly.
type InputAssemblyState struct {
	Topology gputypes.PrimitiveTopology

	// StripIndexFormat enables primitive restart for strip topologies.
	// IndexFormatUndefined disables it.
	StripIndexFormat gputypes.IndexFormat
}

// Hash returns the digest of the block.
func (s *InputAssemblyState) Hash() uint64 {
	if s == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagInputAssembly)
	w.Uint32(uint32(s.Topology))
	w.Uint32(uint32(s.StripIndexFormat))
	return w.Sum()
}

// Equal reports whether both blocks are identical.
func (s *InputAssemblyState) Equal(o *InputAssemblyState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return *s == *o
}

// TessellationState describes the tessellator input.
type TessellationState struct {
	PatchControlPoints uint32
}

// Hash returns the digest of the block.
func (s *TessellationState) Hash() uint64 {
	if s == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagTessellation)
	w.Uint32(s.PatchControlPoints)
	return w.Sum()
}

// Equal reports whether both blocks are identical.
func (s *TessellationState) Equal(o *TessellationState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return *s == *o
}

// Viewport is a static viewport rectangle with its depth range.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Scissor is a static scissor rectangle.
type Scissor struct {
	X, Y          int32
	Width, Height uint32
}

// ViewportState holds the static viewports and scissors of a pipeline.
// Pipelines that set them at record time list DynamicViewport and
// DynamicScissor in their DynamicState and may leave the slices empty.
type ViewportState struct {
	Viewports []Viewport
	Scissors  []Scissor
}

// Hash returns the digest of the block.
func (s *ViewportState) Hash() uint64 {
	if s == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagViewport)
	w.Len(len(s.Viewports))
	for _, v := range s.Viewports {
		w.Float32(v.X)
		w.Float32(v.Y)
		w.Float32(v.Width)
		w.Float32(v.Height)
		w.Float32(v.MinDepth)
		w.Float32(v.MaxDepth)
	}
	w.Len(len(s.Scissors))
	for _, r := range s.Scissors {
		w.Int32(r.X)
		w.Int32(r.Y)
		w.Uint32(r.Width)
		w.Uint32(r.Height)
	}
	return w.Sum()
}

// Equal reports whether both blocks hold the same rectangles.
func (s *ViewportState) Equal(o *ViewportState) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.Viewports) != len(o.Viewports) || len(s.Scissors) != len(o.Scissors) {
		return false
	}
	for i, a := range s.Viewports {
		b := o.Viewports[i]
		if !f32eq(a.X, b.X) || !f32eq(a.Y, b.Y) ||
			!f32eq(a.Width, b.Width) || !f32eq(a.Height, b.Height) ||
			!f32eq(a.MinDepth, b.MinDepth) || !f32eq(a.MaxDepth, b.MaxDepth) {
			return false
		}
	}
	for i := range s.Scissors {
		if s.Scissors[i] != o.Scissors[i] {
			return false
		}
	}
	return true
}

// RasterizationState configures the rasterizer.
type RasterizationState struct {
	FrontFace         gputypes.FrontFace
	CullMode          gputypes.CullMode
	PolygonMode       PolygonMode
	UnclippedDepth    bool
	RasterizerDiscard bool

	DepthBias           int32
	DepthBiasSlopeScale float32
	DepthBiasClamp      float32

	LineWidth float32

	// Extensions is the rasterization extension chain, hashed in order.
	Extensions []Extension
}

// Hash returns the digest of the block, including its extension chain.
func (s *RasterizationState) Hash() uint64 {
	if s == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagRasterization)
	w.Uint32(uint32(s.FrontFace))
	w.Uint32(uint32(s.CullMode))
	w.Uint32(uint32(s.PolygonMode))
	w.Bool(s.UnclippedDepth)
	w.Bool(s.RasterizerDiscard)
	w.Int32(s.DepthBias)
	w.Float32(s.DepthBiasSlopeScale)
	w.Float32(s.DepthBiasClamp)
	w.Float32(s.LineWidth)
	writeChain(w, s.Extensions)
	return w.Sum()
}

// Equal reports whether both blocks configure the rasterizer identically.
func (s *RasterizationState) Equal(o *RasterizationState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.FrontFace == o.FrontFace &&
		s.CullMode == o.CullMode &&
		s.PolygonMode == o.PolygonMode &&
		s.UnclippedDepth == o.UnclippedDepth &&
		s.RasterizerDiscard == o.RasterizerDiscard &&
		s.DepthBias == o.DepthBias &&
		f32eq(s.DepthBiasSlopeScale, o.DepthBiasSlopeScale) &&
		f32eq(s.DepthBiasClamp, o.DepthBiasClamp) &&
		f32eq(s.LineWidth, o.LineWidth) &&
		chainEqual(s.Extensions, o.Extensions)
}

// MultisampleState configures multisampling.
type MultisampleState struct {
	Count           uint32
	Mask            uint64
	AlphaToCoverage bool
	AlphaToOne      bool

	SampleShading    bool
	MinSampleShading float32
}

// Hash returns the digest of the block.
func (s *MultisampleState) Hash() uint64 {
	if s == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagMultisample)
	w.Uint32(s.Count)
	w.Uint64(s.Mask)
	w.Bool(s.AlphaToCoverage)
	w.Bool(s.AlphaToOne)
	w.Bool(s.SampleShading)
	w.Float32(s.MinSampleShading)
	return w.Sum()
}

// Equal reports whether both blocks are identical.
func (s *MultisampleState) Equal(o *MultisampleState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Count == o.Count &&
		s.Mask == o.Mask &&
		s.AlphaToCoverage == o.AlphaToCoverage &&
		s.AlphaToOne == o.AlphaToOne &&
		s.SampleShading == o.SampleShading &&
		f32eq(s.MinSampleShading, o.MinSampleShading)
}

// DepthStencilState configures depth and stencil testing.
type DepthStencilState struct {
	DepthTest    bool
	DepthWrite   bool
	DepthCompare gputypes.CompareFunction

	DepthBoundsTest bool
	MinDepthBounds  float32
	MaxDepthBounds  float32

	StencilTest      bool
	Front            gputypes.StencilFaceState
	Back             gputypes.StencilFaceState
	StencilReadMask  uint32
	StencilWriteMask uint32
	StencilReference uint32
}

// Hash returns the digest of the block.
func (s *DepthStencilState) Hash() uint64 {
	if s == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagDepthStencil)
	w.Bool(s.DepthTest)
	w.Bool(s.DepthWrite)
	w.Uint32(uint32(s.DepthCompare))
	w.Bool(s.DepthBoundsTest)
	w.Float32(s.MinDepthBounds)
	w.Float32(s.MaxDepthBounds)
	w.Bool(s.StencilTest)
	writeStencilFace(w, s.Front)
	writeStencilFace(w, s.Back)
	w.Uint32(s.StencilReadMask)
	w.Uint32(s.StencilWriteMask)
	w.Uint32(s.StencilReference)
	return w.Sum()
}

func writeStencilFace(w *hashkey.Writer, f gputypes.StencilFaceState) {
	w.Uint32(uint32(f.Compare))
	w.Uint32(uint32(f.FailOp))
	w.Uint32(uint32(f.DepthFailOp))
	w.Uint32(uint32(f.PassOp))
}

// Equal reports whether both blocks are identical.
func (s *DepthStencilState) Equal(o *DepthStencilState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.DepthTest == o.DepthTest &&
		s.DepthWrite == o.DepthWrite &&
		s.DepthCompare == o.DepthCompare &&
		s.DepthBoundsTest == o.DepthBoundsTest &&
		f32eq(s.MinDepthBounds, o.MinDepthBounds) &&
		f32eq(s.MaxDepthBounds, o.MaxDepthBounds) &&
		s.StencilTest == o.StencilTest &&
		s.Front == o.Front &&
		s.Back == o.Back &&
		s.StencilReadMask == o.StencilReadMask &&
		s.StencilWriteMask == o.StencilWriteMask &&
		s.StencilReference == o.StencilReference
}

// ColorBlendAttachment configures blending for one color attachment.
type ColorBlendAttachment struct {
	// Blend is nil when blending is disabled for the attachment.
	Blend     *gputypes.BlendState
	WriteMask gputypes.ColorWriteMask
}

func (a *ColorBlendAttachment) equal(b *ColorBlendAttachment) bool {
	if a.WriteMask != b.WriteMask {
		return false
	}
	if a.Blend == nil || b.Blend == nil {
		return a.Blend == b.Blend
	}
	return *a.Blend == *b.Blend
}

// ColorBlendState configures color blending for every attachment.
type ColorBlendState struct {
	LogicOpEnable bool
	LogicOp       LogicOp
	Attachments   []ColorBlendAttachment
	Constants     [4]float32

	// Extensions is the color-blend extension chain, hashed in order.
	Extensions []Extension
}

// Hash returns the digest of the block, including the per-attachment array,
// the blend constants and the extension chain.
func (s *ColorBlendState) Hash() uint64 {
	if s == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagColorBlend)
	w.Bool(s.LogicOpEnable)
	w.Uint32(uint32(s.LogicOp))
	w.Len(len(s.Attachments))
	for i := range s.Attachments {
		a := &s.Attachments[i]
		if a.Blend == nil {
			w.Bool(false)
		} else {
			w.Bool(true)
			writeBlendComponent(w, a.Blend.Color)
			writeBlendComponent(w, a.Blend.Alpha)
		}
		w.Uint32(uint32(a.WriteMask))
	}
	for _, c := range s.Constants {
		w.Float32(c)
	}
	writeChain(w, s.Extensions)
	return w.Sum()
}

func writeBlendComponent(w *hashkey.Writer, c gputypes.BlendComponent) {
	w.Uint32(uint32(c.SrcFactor))
	w.Uint32(uint32(c.DstFactor))
	w.Uint32(uint32(c.Operation))
}

// Equal reports whether both blocks blend identically.
func (s *ColorBlendState) Equal(o *ColorBlendState) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.LogicOpEnable != o.LogicOpEnable || s.LogicOp != o.LogicOp ||
		len(s.Attachments) != len(o.Attachments) {
		return false
	}
	for i := range s.Attachments {
		if !s.Attachments[i].equal(&o.Attachments[i]) {
			return false
		}
	}
	for i := range s.Constants {
		if !f32eq(s.Constants[i], o.Constants[i]) {
			return false
		}
	}
	return chainEqual(s.Extensions, o.Extensions)
}

// DynamicState lists the state supplied at record time.
type DynamicState struct {
	States []DynamicStateKind
}

// Hash returns the digest of the block. The list is order sensitive.
func (s *DynamicState) Hash() uint64 {
	if s == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagDynamic)
	w.Len(len(s.States))
	for _, k := range s.States {
		w.Uint32(uint32(k))
	}
	return w.Sum()
}

// Equal reports whether both lists are identical.
func (s *DynamicState) Equal(o *DynamicState) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.States) != len(o.States) {
		return false
	}
	for i := range s.States {
		if s.States[i] != o.States[i] {
			return false
		}
	}
	return true
}

// Has reports whether kind is listed.
func (s *DynamicState) Has(kind DynamicStateKind) bool {
	if s == nil {
		return false
	}
	for _, k := range s.States {
		if k == kind {
			return true
		}
	}
	return false
}

func f32eq(a, b float32) bool {
	return math.Float32bits(a) == math.Float32bits(b)
}
