package psocache

import (
	"sync/atomic"
)

// Object is a compiled pipeline produced by a Compiler.
type Object interface {
	// Destroy releases the driver resources of the object. It is called
	// exactly once, when the last reference to the pipeline is released.
	Destroy()
}

// HashReporter is implemented by objects that remember the hashes they were
// built for. The cache checks them against the descriptor's own hashes.
type HashReporter interface {
	Hashes() HashPair
}

// nextPipelineID is the global counter for pipeline IDs. Zero is never
// assigned and means "no base".
var nextPipelineID atomic.Uint64

// Pipeline is a reference-counted handle to a compiled pipeline object.
//
// The registry holds one reference for as long as the pipeline is
// registered. Every handle returned by the cache carries an additional
// reference that the caller gives back with Release.
type Pipeline struct {
	object Object
	keys   Keys
	flags  CreateFlags
	baseID uint64
	id     uint64
	label  string

	refs      atomic.Int64
	destroyed atomic.Bool
}

func newPipeline(obj Object, keys Keys, flags CreateFlags, base *Pipeline, label string) *Pipeline {
	p := &Pipeline{
		object: obj,
		keys:   keys,
		flags:  flags,
		id:     nextPipelineID.Add(1),
		label:  label,
	}
	if base != nil {
		p.baseID = base.id
	}
	p.refs.Store(1)
	return p
}

// ID returns the process-unique pipeline ID.
func (p *Pipeline) ID() uint64 { return p.id }

// BaseID returns the ID of the pipeline this one was derived from, or zero.
func (p *Pipeline) BaseID() uint64 { return p.baseID }

// Label returns the label of the descriptor the pipeline was built from.
func (p *Pipeline) Label() string { return p.label }

// Object returns the compiled object.
func (p *Pipeline) Object() Object { return p.object }

// Flags returns the flags the pipeline was compiled with, derivation bits
// included.
func (p *Pipeline) Flags() CreateFlags { return p.flags }

// Hashes returns the identity of the pipeline.
func (p *Pipeline) Hashes() HashPair { return p.keys.HashPair }

// Keys returns every registry key of the pipeline.
func (p *Pipeline) Keys() Keys { return p.keys }

// Derived reports whether the pipeline was built from a base.
func (p *Pipeline) Derived() bool { return p.baseID != 0 }

// Refs returns the current reference count.
func (p *Pipeline) Refs() int64 { return p.refs.Load() }

// Retain adds a reference. It returns false if the pipeline has already been
// destroyed, in which case no reference was taken.
func (p *Pipeline) Retain() bool {
	for {
		n := p.refs.Load()
		if n <= 0 {
			return false
		}
		if p.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference. The object is destroyed when the count
// reaches zero. Releasing more often than retaining is a no-op.
func (p *Pipeline) Release() {
	for {
		n := p.refs.Load()
		if n <= 0 {
			return
		}
		if p.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				p.destroy()
			}
			return
		}
	}
}

// IsDestroyed reports whether the object has been destroyed.
func (p *Pipeline) IsDestroyed() bool { return p.destroyed.Load() }

func (p *Pipeline) destroy() {
	if !p.destroyed.CompareAndSwap(false, true) {
		return
	}
	if p.object != nil {
		p.object.Destroy()
	}
}
