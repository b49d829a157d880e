// Package backend selects the pipeline compiler a cache builds with.
//
// Backends register a Factory by name from init functions. The null backend
// is always registered; importing github.com/gogpu/psocache/backend/wgpu
// registers the "wgpu" backend:
//
//	import _ "github.com/gogpu/psocache/backend/wgpu"
//
// Use Default to get the best available backend for a device, or New to
// request one by name:
//
//	compiler, name, err := backend.Default(device)
//	if err != nil {
//		log.Fatal(err)
//	}
//	cache, err := psocache.New(compiler)
//
// Available backends:
//   - "wgpu": HAL pipelines on a gogpu/wgpu device
//   - "null": placeholder objects, no device needed
package backend
