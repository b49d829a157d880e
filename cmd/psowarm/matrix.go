package main

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/psocache"
	"github.com/gogpu/psocache/backend/wgpu"
	"github.com/gogpu/psocache/shader"
)

const solidVS = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
}

@vertex
fn main(@location(0) pos: vec3<f32>, @location(1) color: vec4<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(pos, 1.0);
    out.color = color;
    return out;
}
`

const solidFS = `
@fragment
fn main(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> {
    return color;
}
`

const texturedVS = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn main(@location(0) pos: vec2<f32>, @location(1) uv: vec2<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(pos, 0.0, 1.0);
    out.uv = uv;
    return out;
}
`

const texturedFS = `
@group(0) @binding(0) var tex: texture_2d<f32>;
@group(0) @binding(1) var samp: sampler;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, uv);
}
`

const blurCS = `
@group(0) @binding(0) var<storage, read_write> data: array<f32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * 0.5;
}
`

// program is a vertex/fragment pair with its vertex layout.
type program struct {
	name    string
	vs, fs  *shader.Module
	buffers []gputypes.VertexBufferLayout
}

// shaderSet holds the compiled modules the matrix is built from.
type shaderSet struct {
	programs []program
	blur     *shader.Module
}

// compileShaders compiles every module concurrently.
func compileShaders(lib *shader.Library) (*shaderSet, error) {
	sources := []struct {
		label string
		src   string
	}{
		{"solid.vs", solidVS},
		{"solid.fs", solidFS},
		{"textured.vs", texturedVS},
		{"textured.fs", texturedFS},
		{"blur.cs", blurCS},
	}
	mods := make([]*shader.Module, len(sources))

	var g errgroup.Group
	g.SetLimit(4)
	for i, s := range sources {
		g.Go(func() error {
			m, err := lib.CompileWGSL(s.label, s.src)
			if err != nil {
				return err
			}
			mods[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &shaderSet{
		programs: []program{
			{
				name: "solid", vs: mods[0], fs: mods[1],
				buffers: []gputypes.VertexBufferLayout{{
					ArrayStride: 28,
					StepMode:    gputypes.VertexStepModeVertex,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
					},
				}},
			},
			{
				name: "textured", vs: mods[2], fs: mods[3],
				buffers: []gputypes.VertexBufferLayout{{
					ArrayStride: 16,
					StepMode:    gputypes.VertexStepModeVertex,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
						{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					},
				}},
			},
		},
		blur: mods[4],
	}, nil
}

type blendVariant struct {
	name  string
	state *gputypes.BlendState
}

func blendVariants() []blendVariant {
	alpha := gputypes.BlendStateAlpha()
	premul := gputypes.BlendStatePremultiplied()
	return []blendVariant{
		{"opaque", nil},
		{"alpha", &alpha},
		{"premul", &premul},
	}
}

// variantMatrix returns every program crossed with blend, cull and depth
// variants, followed by compute variants.
func variantMatrix(set *shaderSet) []*psocache.Descriptor {
	color := &wgpu.RenderTarget{
		ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm},
	}
	depth := &wgpu.RenderTarget{
		ColorFormats:       []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm},
		DepthStencilFormat: gputypes.TextureFormatDepth24PlusStencil8,
	}

	var descs []*psocache.Descriptor
	for _, p := range set.programs {
		for _, b := range blendVariants() {
			for _, cull := range []gputypes.CullMode{gputypes.CullModeNone, gputypes.CullModeBack} {
				for _, depthTest := range []bool{false, true} {
					d := &psocache.Descriptor{
						Label: fmt.Sprintf("%s/%s/cull=%d/depth=%t", p.name, b.name, cull, depthTest),
						Stages: []psocache.ShaderStage{
							{Kind: psocache.StageVertex, Module: p.vs, EntryPoint: "main"},
							{Kind: psocache.StageFragment, Module: p.fs, EntryPoint: "main"},
						},
						VertexInput:   &psocache.VertexInputState{Buffers: p.buffers},
						InputAssembly: &psocache.InputAssemblyState{Topology: gputypes.PrimitiveTopologyTriangleList},
						Rasterization: psocache.RasterizationState{
							FrontFace: gputypes.FrontFaceCCW,
							CullMode:  cull,
							LineWidth: 1,
						},
						ColorBlend: &psocache.ColorBlendState{
							Attachments: []psocache.ColorBlendAttachment{
								{Blend: b.state, WriteMask: gputypes.ColorWriteMaskAll},
							},
						},
						Dynamic: &psocache.DynamicState{
							States: []psocache.DynamicStateKind{psocache.DynamicViewport, psocache.DynamicScissor},
						},
						RenderPass: color,
					}
					if depthTest {
						d.RenderPass = depth
						d.DepthStencil = &psocache.DepthStencilState{
							DepthTest:    true,
							DepthWrite:   b.state == nil,
							DepthCompare: gputypes.CompareFunctionLess,
						}
					}
					descs = append(descs, d)
				}
			}
		}
	}

	for _, radius := range []float64{1, 2, 4} {
		descs = append(descs, &psocache.Descriptor{
			Label: fmt.Sprintf("blur/radius=%g", radius),
			Stages: []psocache.ShaderStage{{
				Kind:       psocache.StageCompute,
				Module:     set.blur,
				EntryPoint: "main",
				Constants:  []psocache.SpecConstant{{Name: "radius", Value: radius}},
			}},
		})
	}
	return descs
}
