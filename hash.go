package psocache

import (
	"github.com/gogpu/psocache/internal/hashkey"
)

const absent = hashkey.Absent

// Block tags. Every block digest starts with its tag.
const (
	tagShaderStage uint32 = iota + 1
	tagVertexInput
	tagInputAssembly
	tagTessellation
	tagViewport
	tagRasterization
	tagMultisample
	tagDepthStencil
	tagColorBlend
	tagDynamic
	tagPipelineChain
)

// HashPair is the identity of a pipeline.
type HashPair struct {
	// Full covers every hashed field of the descriptor.
	Full uint64
	// RenderState covers everything except the shader stages.
	RenderState uint64
}

// Keys are all the registry keys of a pipeline.
type Keys struct {
	HashPair
	// Shader covers the shader stages alone.
	Shader uint64
}

// ComputeHashes returns the full and render-state hashes of d.
// Equal descriptors always produce equal hashes.
func ComputeHashes(d *Descriptor) HashPair {
	return ComputeKeys(d).HashPair
}

// ComputeKeys returns every registry key of d. All keys are produced in one
// pass over the descriptor.
//
// Both composite hashes fold the same sequence of block digests in a fixed
// order; the render-state hash simply skips the shader stages.
func ComputeKeys(d *Descriptor) Keys {
	if d == nil {
		return Keys{HashPair: HashPair{Full: absent, RenderState: absent}, Shader: absent}
	}

	shader := hashStages(d.Stages)
	flags := uint64(d.Flags.identityFlags())

	full := hashkey.NewAccumulator()
	rs := hashkey.NewAccumulator()
	add := func(v uint64) {
		full.Add(v)
		rs.Add(v)
	}

	add(flags)
	full.Add(shader)
	add(d.VertexInput.Hash())
	add(d.InputAssembly.Hash())
	add(d.Tessellation.Hash())
	add(d.Viewport.Hash())
	add(d.Rasterization.Hash())
	add(d.Multisample.Hash())
	add(d.DepthStencil.Hash())
	add(d.ColorBlend.Hash())
	add(d.Dynamic.Hash())
	add(identity(d.Layout))
	add(identity(d.RenderPass))
	add(uint64(d.Subpass))
	add(hashChain(tagPipelineChain, d.Extensions))

	return Keys{
		HashPair: HashPair{Full: full.Sum(), RenderState: rs.Sum()},
		Shader:   shader,
	}
}
