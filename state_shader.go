package psocache

import (
	"math"

	"github.com/gogpu/psocache/internal/hashkey"
)

// ShaderModule is a compiled shader module as seen by the cache.
//
// Hash must be stable for the lifetime of the module and derived from the
// compiled code, so that two modules holding identical code are
// interchangeable as far as pipeline identity goes. See the shader package
// for an implementation backed by naga and the wgpu HAL.
type ShaderModule interface {
	Hash() uint64
}

// SpecConstant overrides a pipeline-overridable constant of a stage.
type SpecConstant struct {
	Name  string
	Value float64
}

// ShaderStage is one programmable stage of a pipeline.
type ShaderStage struct {
	Kind       StageKind
	Module     ShaderModule
	EntryPoint string

	// Constants are hashed in order. Callers that build them from a map
	// must sort them first.
	Constants []SpecConstant
}

// Hash returns the digest of the stage.
func (s *ShaderStage) Hash() uint64 {
	if s == nil {
		return hashkey.Absent
	}
	w := hashkey.NewWriter(tagShaderStage)
	w.Uint32(uint32(s.Kind))
	w.Uint64(moduleHash(s.Module))
	w.String(s.EntryPoint)
	w.Len(len(s.Constants))
	for i := range s.Constants {
		w.String(s.Constants[i].Name)
		w.Float64(s.Constants[i].Value)
	}
	return w.Sum()
}

// Equal reports whether two stages are interchangeable.
// Modules are compared by hash.
func (s *ShaderStage) Equal(o *ShaderStage) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Kind != o.Kind || s.EntryPoint != o.EntryPoint ||
		moduleHash(s.Module) != moduleHash(o.Module) ||
		len(s.Constants) != len(o.Constants) {
		return false
	}
	for i := range s.Constants {
		a, b := s.Constants[i], o.Constants[i]
		if a.Name != b.Name || math.Float64bits(a.Value) != math.Float64bits(b.Value) {
			return false
		}
	}
	return true
}

func moduleHash(m ShaderModule) uint64 {
	if m == nil {
		return hashkey.Absent
	}
	return m.Hash()
}

// hashStages hashes the ordered stage list. The result is the shader hash
// used by the third registry mapping.
func hashStages(stages []ShaderStage) uint64 {
	acc := hashkey.NewAccumulator()
	acc.Add(uint64(len(stages)))
	for i := range stages {
		acc.Add(stages[i].Hash())
	}
	return acc.Sum()
}

func stagesEqual(a, b []ShaderStage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(&b[i]) {
			return false
		}
	}
	return true
}
