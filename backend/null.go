package backend

import (
	"sync/atomic"

	"github.com/gogpu/psocache"
)

// NullCompiler builds placeholder objects without touching a device. It is
// used to exercise cache keys and derivation offline.
//
// Thread Safety:
// NullCompiler is safe for concurrent use.
type NullCompiler struct {
	builds    atomic.Uint64
	derived   atomic.Uint64
	destroyed atomic.Int64
}

// NewNullCompiler returns a compiler that never fails.
func NewNullCompiler() *NullCompiler {
	return &NullCompiler{}
}

// Build implements psocache.Compiler.
func (c *NullCompiler) Build(desc *psocache.Descriptor, base *psocache.Pipeline, flags psocache.CreateFlags) (psocache.Object, error) {
	c.builds.Add(1)
	obj := &NullObject{
		compiler: c,
		hashes:   psocache.ComputeHashes(desc),
		compute:  desc.IsCompute(),
	}
	if base != nil && flags.Has(psocache.FlagDerivative) {
		c.derived.Add(1)
		obj.baseID = base.ID()
	}
	return obj, nil
}

// Builds returns how many objects were built and how many of them were
// derived from a base.
func (c *NullCompiler) Builds() (total, derived uint64) {
	return c.builds.Load(), c.derived.Load()
}

// Live returns the number of built objects not yet destroyed.
func (c *NullCompiler) Live() int64 {
	return int64(c.builds.Load()) - c.destroyed.Load()
}

// NullObject is the object built by NullCompiler.
type NullObject struct {
	compiler  *NullCompiler
	hashes    psocache.HashPair
	compute   bool
	baseID    uint64
	destroyed atomic.Bool
}

// Hashes implements psocache.HashReporter.
func (o *NullObject) Hashes() psocache.HashPair { return o.hashes }

// IsCompute reports whether the object stands for a compute pipeline.
func (o *NullObject) IsCompute() bool { return o.compute }

// BaseID returns the ID of the base pipeline, or 0.
func (o *NullObject) BaseID() uint64 { return o.baseID }

// Destroy implements psocache.Object.
func (o *NullObject) Destroy() {
	if o.destroyed.CompareAndSwap(false, true) {
		o.compiler.destroyed.Add(1)
	}
}
