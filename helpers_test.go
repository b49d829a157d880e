package psocache

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// =============================================================================
// Test Helpers
// =============================================================================

// mockModule is a shader module identified by a fixed code hash.
type mockModule uint64

func (m mockModule) Hash() uint64 { return uint64(m) }

// mockLayout and mockPass are opaque identities.
type mockLayout uint64

func (l mockLayout) Identity() uint64 { return uint64(l) }

type mockPass uint64

func (p mockPass) Identity() uint64 { return uint64(p) }

// mockObject records how often it was destroyed.
type mockObject struct {
	name      string
	destroyed atomic.Int32
}

func (o *mockObject) Destroy() { o.destroyed.Add(1) }

// reportingObject claims to have been built for a fixed pair of hashes.
type reportingObject struct {
	mockObject
	hashes HashPair
}

func (o *reportingObject) Hashes() HashPair { return o.hashes }

// buildCall is one recorded compiler invocation.
type buildCall struct {
	label string
	base  *Pipeline
	flags CreateFlags
}

// mockCompiler records its calls and returns a fresh mockObject for each.
type mockCompiler struct {
	mu      sync.Mutex
	calls   []buildCall
	objects []*mockObject

	// fail, when set, is returned for descriptors with that label.
	fail map[string]error
	// gate, when set, blocks every Build until it is closed.
	gate chan struct{}
}

func (c *mockCompiler) Build(desc *Descriptor, base *Pipeline, flags CreateFlags) (Object, error) {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, buildCall{label: desc.Label, base: base, flags: flags})
	if err := c.fail[desc.Label]; err != nil {
		return nil, err
	}
	obj := &mockObject{name: desc.Label}
	c.objects = append(c.objects, obj)
	return obj, nil
}

func (c *mockCompiler) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *mockCompiler) call(i int) buildCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[i]
}

var errMockCompile = errors.New("mock: shader failed to link")

// testRasterization is rasterization state R1 of the scenarios.
func testRasterization() RasterizationState {
	return RasterizationState{
		FrontFace: gputypes.FrontFaceCCW,
		CullMode:  gputypes.CullModeBack,
		LineWidth: 1,
	}
}

var alphaBlend = gputypes.BlendStateAlpha()

// graphicsDescriptor returns a fully populated graphics descriptor using the
// given vertex and fragment module hashes.
func graphicsDescriptor(label string, vs, fs uint64) *Descriptor {
	return &Descriptor{
		Label: label,
		Stages: []ShaderStage{
			{Kind: StageVertex, Module: mockModule(vs), EntryPoint: "vs_main"},
			{Kind: StageFragment, Module: mockModule(fs), EntryPoint: "fs_main"},
		},
		VertexInput: &VertexInputState{
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: 20,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
				},
			}},
		},
		InputAssembly: &InputAssemblyState{Topology: gputypes.PrimitiveTopologyTriangleList},
		Viewport:      &ViewportState{Viewports: []Viewport{{Width: 800, Height: 600, MaxDepth: 1}}},
		Rasterization: testRasterization(),
		Multisample:   &MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		DepthStencil: &DepthStencilState{
			DepthTest:    true,
			DepthWrite:   true,
			DepthCompare: gputypes.CompareFunctionLess,
		},
		ColorBlend: &ColorBlendState{
			Attachments: []ColorBlendAttachment{{
				Blend:     &alphaBlend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Dynamic:    &DynamicState{States: []DynamicStateKind{DynamicViewport, DynamicScissor}},
		Layout:     mockLayout(7),
		RenderPass: mockPass(11),
	}
}

func computeDescriptor(label string, cs uint64) *Descriptor {
	return &Descriptor{
		Label:  label,
		Stages: []ShaderStage{{Kind: StageCompute, Module: mockModule(cs), EntryPoint: "main"}},
		Layout: mockLayout(3),
	}
}

// keysFor returns distinct synthetic keys.
func keysFor(full, rs, shader uint64) Keys {
	return Keys{HashPair: HashPair{Full: full, RenderState: rs}, Shader: shader}
}
