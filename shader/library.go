// Package shader compiles shader sources into modules usable in pipeline
// descriptors.
//
// A Module's identity is the xxhash of its SPIR-V code, so two modules built
// from different sources that compile to the same code are interchangeable
// for pipeline caching. A Library de-duplicates modules by source and owns
// the HAL shader modules it creates.
//
// Usage:
//
//	lib := shader.NewLibrary(device)
//	defer lib.Close()
//
//	vs, err := lib.CompileWGSL("quad.vs", quadVertexWGSL)
//	if err != nil {
//	    return err
//	}
//	desc.Stages = []psocache.ShaderStage{{Kind: psocache.StageVertex, Module: vs, EntryPoint: "main"}}
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache"
	"github.com/gogpu/psocache/internal/hashkey"
)

var (
	// ErrEmptySource is returned for an empty WGSL source or SPIR-V blob.
	ErrEmptySource = errors.New("shader: empty source")

	// ErrInvalidSPIRV is returned when compiled code is not a whole number
	// of 32-bit words.
	ErrInvalidSPIRV = errors.New("shader: SPIR-V length is not a multiple of 4")

	// ErrClosed is returned after Library.Close.
	ErrClosed = errors.New("shader: library is closed")
)

// Source tags keep WGSL and SPIR-V inputs with equal bytes apart.
const (
	tagWGSL  uint32 = 1
	tagSPIRV uint32 = 2
)

// Module is a compiled shader module.
type Module struct {
	hash  uint64
	label string
	spirv []uint32
	raw   hal.ShaderModule
}

// Hash returns the xxhash of the module's SPIR-V code.
func (m *Module) Hash() uint64 { return m.hash }

// Label returns the label the module was created with.
func (m *Module) Label() string { return m.label }

// SPIRV returns the module's code. The slice must not be modified.
func (m *Module) SPIRV() []uint32 { return m.spirv }

// Raw returns the HAL shader module, or nil for a library without device.
func (m *Module) Raw() hal.ShaderModule { return m.raw }

// Option configures a Library.
type Option func(*Library)

// WithCompileOptions sets the naga options used for WGSL sources.
func WithCompileOptions(opts naga.CompileOptions) Option {
	return func(l *Library) {
		l.compileOpts = opts
	}
}

// Library compiles and de-duplicates shader modules.
//
// Thread Safety:
// Library is safe for concurrent use.
type Library struct {
	device      hal.Device
	compileOpts naga.CompileOptions
	modules     *moduleMap
	closed      atomic.Bool
}

// NewLibrary returns a library creating HAL modules on device. A nil device
// yields modules that carry code and identity only.
func NewLibrary(device hal.Device, opts ...Option) *Library {
	l := &Library{
		device:      device,
		compileOpts: naga.DefaultOptions(),
		modules:     newModuleMap(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CompileWGSL compiles WGSL source with naga. Requests for a source that was
// already compiled return the existing module.
func (l *Library) CompileWGSL(label, source string) (*Module, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if source == "" {
		return nil, ErrEmptySource
	}

	w := hashkey.NewWriter(tagWGSL)
	w.String(source)
	return l.modules.getOrCreate(w.Sum(), func() (*Module, error) {
		code, err := naga.CompileWithOptions(source, l.compileOpts)
		if err != nil {
			return nil, fmt.Errorf("shader: compile %q: %w", label, err)
		}
		words, err := toWords(code)
		if err != nil {
			return nil, fmt.Errorf("shader: compile %q: %w", label, err)
		}
		return l.create(label, words, code)
	})
}

// LoadSPIRV wraps precompiled SPIR-V code. The library keeps its own copy.
func (l *Library) LoadSPIRV(label string, code []uint32) (*Module, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if len(code) == 0 {
		return nil, ErrEmptySource
	}

	words := append([]uint32(nil), code...)
	raw := fromWords(words)
	w := hashkey.NewWriter(tagSPIRV)
	w.Bytes(raw)
	return l.modules.getOrCreate(w.Sum(), func() (*Module, error) {
		return l.create(label, words, raw)
	})
}

func (l *Library) create(label string, words []uint32, raw []byte) (*Module, error) {
	m := &Module{
		hash:  hashkey.Sum64(raw),
		label: label,
		spirv: words,
	}
	if l.device != nil {
		hm, err := l.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  label,
			Source: hal.ShaderSource{SPIRV: words},
		})
		if err != nil {
			return nil, fmt.Errorf("shader: create module %q: %w", label, err)
		}
		m.raw = hm
	}
	psocache.Logger().Debug("shader: module created", "label", label, "hash", m.hash, "words", len(words))
	return m, nil
}

// Len returns the number of distinct sources held by the library.
func (l *Library) Len() int {
	return l.modules.len()
}

// Stats returns how many requests were served from the library and how many
// compiled a new module.
func (l *Library) Stats() (hits, misses uint64) {
	return l.modules.hits.Load(), l.modules.misses.Load()
}

// Close destroys every HAL module created by the library. Pipelines built
// from them must have been released first. Close is safe to call multiple
// times.
func (l *Library) Close() {
	if !l.closed.CompareAndSwap(false, true) {
		return
	}
	for _, m := range l.modules.drain() {
		if m.raw != nil && l.device != nil {
			l.device.DestroyShaderModule(m.raw)
		}
	}
}

func toWords(code []byte) ([]uint32, error) {
	if len(code) == 0 {
		return nil, ErrEmptySource
	}
	if len(code)%4 != 0 {
		return nil, ErrInvalidSPIRV
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words, nil
}

func fromWords(words []uint32) []byte {
	b := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}
