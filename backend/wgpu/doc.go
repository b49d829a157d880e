// Package wgpu implements a psocache.Compiler on top of the gogpu/wgpu HAL.
//
// Render pipelines are created with hal.Device.CreateRenderPipeline and
// compute pipelines with hal.Device.CreateComputePipeline. Shader stages must
// use modules that expose their HAL module, such as *shader.Module.
//
// Attachment formats come from a *RenderTarget used as the descriptor's
// render pass, or from a psocache.RenderingFormats extension when the
// pipeline is used with dynamic rendering.
//
// The HAL has no derivative pipelines. A base chosen by the cache is recorded
// on the built Pipeline and logged, and otherwise ignored.
//
// Features the HAL cannot express fail with ErrUnsupported:
//   - tessellation and geometry stages
//   - polygon modes other than fill, rasterizer discard, depth bounds
//   - line widths other than 0 or 1, and depth bias without depth/stencil state
//   - conservative rasterization, line modes and stippling, last-vertex
//     provoking, and [-1, 1] depth clip; these extensions are accepted when
//     they ask for the default behavior
//   - alpha-to-one and sample shading
//   - logic ops and advanced blending
//   - subpasses other than zero
//   - pipeline constants on graphics stages
//
// Usage:
//
//	compiler, err := wgpu.NewCompilerFromProvider(provider)
//	if err != nil {
//	    return err
//	}
//	cache, err := psocache.New(compiler)
package wgpu
