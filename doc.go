// Package psocache caches compiled GPU pipeline objects.
//
// # Overview
//
// Pipeline objects bundle shader stages with fixed-function state and are
// expensive to create. psocache derives a structural identity from a
// pipeline Descriptor, reuses an already compiled pipeline for identical
// descriptors, and compiles new pipelines as derivatives of a registered
// pipeline with the same render state or the same shader stages.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/psocache"
//	    "github.com/gogpu/psocache/backend/wgpu"
//	)
//
//	compiler, err := wgpu.NewCompiler(halDevice)
//	if err != nil {
//	    return err
//	}
//	cache, err := psocache.New(compiler)
//	if err != nil {
//	    return err
//	}
//	defer cache.Close()
//
//	p, err := cache.LookupOrBuild(desc)
//	if err != nil {
//	    return err
//	}
//	defer p.Release()
//
// # Identity
//
// Every descriptor has three keys:
//   - the full hash, over every field except Label
//   - the render-state hash, over every field except the shader stages
//   - the shader hash, over the shader stages alone
//
// Absent state blocks hash to a fixed marker distinct from empty ones.
// Extension chains are hashed in the order they are attached. The derivation
// bits of CreateFlags are set by the cache and never part of identity.
//
// Two distinct descriptors with the same 64-bit full hash are treated as the
// same pipeline.
//
// # Architecture
//
//   - psocache: state blocks, Descriptor, key builder, Registry, Cache
//   - shader: WGSL compilation and shader module identity
//   - backend: named compiler backends and the device-less null compiler
//   - backend/wgpu: a Compiler on top of the gogpu/wgpu HAL
//   - cmd/psowarm: warms a cache with a matrix of pipeline variants
package psocache

// Version is the current version of the library.
const Version = "0.1.0"
