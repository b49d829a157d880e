package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache"
)

func unsupported(desc *psocache.Descriptor, what string) error {
	return fmt.Errorf("%w: %q: %s", ErrUnsupported, desc.Label, what)
}

func rawModule(desc *psocache.Descriptor, s *psocache.ShaderStage) (hal.ShaderModule, error) {
	m, ok := s.Module.(halModule)
	if !ok || m.Raw() == nil {
		return nil, fmt.Errorf("%w: %q: %s stage", ErrForeignModule, desc.Label, s.Kind)
	}
	return m.Raw(), nil
}

func rawLayout(l psocache.Layout) hal.PipelineLayout {
	if hl, ok := l.(*Layout); ok && hl != nil {
		return hl.raw
	}
	return nil
}

func translateCompute(desc *psocache.Descriptor) (*hal.ComputePipelineDescriptor, error) {
	s := desc.Stage(psocache.StageCompute)
	mod, err := rawModule(desc, s)
	if err != nil {
		return nil, err
	}
	var constants map[string]float64
	if len(s.Constants) > 0 {
		constants = make(map[string]float64, len(s.Constants))
		for _, c := range s.Constants {
			constants[c.Name] = c.Value
		}
	}
	return &hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: rawLayout(desc.Layout),
		Compute: hal.ComputeState{
			Module:                         mod,
			EntryPoint:                     s.EntryPoint,
			Constants:                      constants,
			ZeroInitializeWorkgroupMemory: true,
		},
	}, nil
}

func translateRender(desc *psocache.Descriptor) (*hal.RenderPipelineDescriptor, error) {
	if err := checkRenderSupport(desc); err != nil {
		return nil, err
	}

	colors, depth, err := targetFormats(desc)
	if err != nil {
		return nil, err
	}

	vs := desc.Stage(psocache.StageVertex)
	vmod, err := rawModule(desc, vs)
	if err != nil {
		return nil, err
	}
	hd := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: rawLayout(desc.Layout),
		Vertex: hal.VertexState{
			Module:     vmod,
			EntryPoint: vs.EntryPoint,
		},
		Primitive:   primitiveState(desc),
		Multisample: multisampleState(desc.Multisample),
	}
	if desc.VertexInput != nil {
		hd.Vertex.Buffers = desc.VertexInput.Buffers
	}

	if desc.DepthStencil != nil {
		if depth == gputypes.TextureFormatUndefined {
			return nil, fmt.Errorf("%w: %q", ErrNoDepthTarget, desc.Label)
		}
		hd.DepthStencil = depthStencilState(desc.DepthStencil, &desc.Rasterization, depth)
	}

	if fs := desc.Stage(psocache.StageFragment); fs != nil {
		fmod, err := rawModule(desc, fs)
		if err != nil {
			return nil, err
		}
		hd.Fragment = &hal.FragmentState{
			Module:     fmod,
			EntryPoint: fs.EntryPoint,
			Targets:    colorTargets(desc.ColorBlend, colors),
		}
	}
	return hd, nil
}

func checkRenderSupport(desc *psocache.Descriptor) error {
	for i := range desc.Stages {
		s := &desc.Stages[i]
		switch s.Kind {
		case psocache.StageTessControl, psocache.StageTessEval, psocache.StageGeometry:
			return unsupported(desc, s.Kind.String()+" stage")
		}
		if len(s.Constants) > 0 {
			return unsupported(desc, "constants on "+s.Kind.String()+" stage")
		}
	}
	if desc.Tessellation != nil {
		return unsupported(desc, "tessellation state")
	}
	r := &desc.Rasterization
	if r.PolygonMode != psocache.PolygonFill {
		return unsupported(desc, "polygon mode")
	}
	if r.RasterizerDiscard {
		return unsupported(desc, "rasterizer discard")
	}
	if r.LineWidth != 0 && r.LineWidth != 1 {
		return unsupported(desc, fmt.Sprintf("line width %g", r.LineWidth))
	}
	if desc.DepthStencil == nil && (r.DepthBias != 0 || r.DepthBiasSlopeScale != 0 || r.DepthBiasClamp != 0) {
		return unsupported(desc, "depth bias without depth/stencil state")
	}
	for _, e := range r.Extensions {
		if what := rasterizationExtension(e); what != "" {
			return unsupported(desc, what)
		}
	}
	if ms := desc.Multisample; ms != nil {
		if ms.AlphaToOne {
			return unsupported(desc, "alpha to one")
		}
		if ms.SampleShading || ms.MinSampleShading != 0 {
			return unsupported(desc, "sample shading")
		}
	}
	if desc.DepthStencil != nil && desc.DepthStencil.DepthBoundsTest {
		return unsupported(desc, "depth bounds test")
	}
	if cb := desc.ColorBlend; cb != nil {
		if cb.LogicOpEnable {
			return unsupported(desc, "logic op")
		}
		for _, e := range cb.Extensions {
			if _, ok := e.(*psocache.AdvancedBlend); ok {
				return unsupported(desc, "advanced blend")
			}
		}
	}
	if desc.Subpass != 0 {
		return unsupported(desc, fmt.Sprintf("subpass %d", desc.Subpass))
	}
	return nil
}

// rasterizationExtension names a rasterization extension the HAL cannot
// express, or returns "" when the extension asks for the default behavior.
func rasterizationExtension(e psocache.Extension) string {
	switch x := e.(type) {
	case *psocache.ConservativeRasterization:
		if x.Mode != psocache.ConservativeDisabled {
			return "conservative rasterization"
		}
	case *psocache.LineRasterization:
		if x.Mode != psocache.LineDefault || x.Stipple {
			return "line rasterization mode"
		}
	case *psocache.ProvokingVertex:
		if x.Last {
			return "last provoking vertex"
		}
	case *psocache.DepthClipControl:
		if x.NegativeOneToOne {
			return "negative one to one depth clip"
		}
	}
	return ""
}

// targetFormats resolves attachment formats from the render pass or the
// dynamic rendering extension, the render pass taking precedence.
func targetFormats(desc *psocache.Descriptor) ([]gputypes.TextureFormat, gputypes.TextureFormat, error) {
	if rt, ok := desc.RenderPass.(*RenderTarget); ok && rt != nil {
		return rt.ColorFormats, rt.DepthStencilFormat, nil
	}
	if rf := desc.RenderingFormats(); rf != nil {
		depth := rf.DepthFormat
		if depth == gputypes.TextureFormatUndefined {
			depth = rf.StencilFormat
		}
		return rf.ColorFormats, depth, nil
	}
	return nil, gputypes.TextureFormatUndefined, fmt.Errorf("%w: %q", ErrNoTargets, desc.Label)
}

func primitiveState(desc *psocache.Descriptor) gputypes.PrimitiveState {
	ps := gputypes.PrimitiveState{
		Topology:       gputypes.PrimitiveTopologyTriangleList,
		FrontFace:      desc.Rasterization.FrontFace,
		CullMode:       desc.Rasterization.CullMode,
		UnclippedDepth: desc.Rasterization.UnclippedDepth,
	}
	if ia := desc.InputAssembly; ia != nil {
		ps.Topology = ia.Topology
		if ia.StripIndexFormat != gputypes.IndexFormatUndefined {
			f := ia.StripIndexFormat
			ps.StripIndexFormat = &f
		}
	}
	return ps
}

func multisampleState(ms *psocache.MultisampleState) gputypes.MultisampleState {
	if ms == nil {
		return gputypes.DefaultMultisampleState()
	}
	out := gputypes.MultisampleState{
		Count:                  ms.Count,
		Mask:                   ms.Mask,
		AlphaToCoverageEnabled: ms.AlphaToCoverage,
	}
	if out.Count == 0 {
		out.Count = 1
	}
	return out
}

func depthStencilState(ds *psocache.DepthStencilState, r *psocache.RasterizationState, format gputypes.TextureFormat) *hal.DepthStencilState {
	out := &hal.DepthStencilState{
		Format:              format,
		DepthCompare:        gputypes.CompareFunctionAlways,
		StencilFront:        keepStencil(),
		StencilBack:         keepStencil(),
		DepthBias:           r.DepthBias,
		DepthBiasSlopeScale: r.DepthBiasSlopeScale,
		DepthBiasClamp:      r.DepthBiasClamp,
	}
	if ds.DepthTest {
		out.DepthCompare = ds.DepthCompare
		out.DepthWriteEnabled = ds.DepthWrite
	}
	if ds.StencilTest {
		out.StencilFront = stencilFace(ds.Front)
		out.StencilBack = stencilFace(ds.Back)
		out.StencilReadMask = ds.StencilReadMask
		out.StencilWriteMask = ds.StencilWriteMask
	}
	return out
}

func keepStencil() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
}

func stencilFace(f gputypes.StencilFaceState) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     f.Compare,
		FailOp:      stencilOp(f.FailOp),
		DepthFailOp: stencilOp(f.DepthFailOp),
		PassOp:      stencilOp(f.PassOp),
	}
}

// stencilOp maps a gputypes operation to the HAL's. Undefined maps to Keep.
func stencilOp(op gputypes.StencilOperation) hal.StencilOperation {
	switch op {
	case gputypes.StencilOperationZero:
		return hal.StencilOperationZero
	case gputypes.StencilOperationReplace:
		return hal.StencilOperationReplace
	case gputypes.StencilOperationInvert:
		return hal.StencilOperationInvert
	case gputypes.StencilOperationIncrementClamp:
		return hal.StencilOperationIncrementClamp
	case gputypes.StencilOperationDecrementClamp:
		return hal.StencilOperationDecrementClamp
	case gputypes.StencilOperationIncrementWrap:
		return hal.StencilOperationIncrementWrap
	case gputypes.StencilOperationDecrementWrap:
		return hal.StencilOperationDecrementWrap
	default:
		return hal.StencilOperationKeep
	}
}

// colorTargets pairs formats with blend attachments by index. Formats
// without an attachment write all channels unblended.
func colorTargets(cb *psocache.ColorBlendState, formats []gputypes.TextureFormat) []gputypes.ColorTargetState {
	targets := make([]gputypes.ColorTargetState, len(formats))
	var enables []bool
	if cb != nil {
		for _, e := range cb.Extensions {
			if cw, ok := e.(*psocache.ColorWriteEnable); ok {
				enables = cw.Enables
			}
		}
	}
	for i, f := range formats {
		t := gputypes.ColorTargetState{
			Format:    f,
			WriteMask: gputypes.ColorWriteMaskAll,
		}
		if cb != nil && i < len(cb.Attachments) {
			a := cb.Attachments[i]
			t.WriteMask = a.WriteMask
			if a.Blend != nil {
				b := *a.Blend
				t.Blend = &b
			}
		}
		if i < len(enables) && !enables[i] {
			t.WriteMask = gputypes.ColorWriteMaskNone
		}
		targets[i] = t
	}
	return targets
}
