package psocache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/psocache/internal/parallel"
)

var errNilObject = errors.New("psocache: compiler returned a nil object")

// Cache returns compiled pipelines for descriptors, building each distinct
// pipeline once and deriving new pipelines from similar registered ones.
//
// Thread Safety:
// Cache is safe for concurrent use. Concurrent misses on the same
// descriptor compile it once; every caller receives the same pipeline.
//
// Usage:
//
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
type Cache struct {
	compiler     Compiler
	registry     *Registry
	ownsRegistry bool
	policy       DerivationPolicy
	workers      int

	poolMu sync.Mutex
	pool   *parallel.WorkerPool

	closed atomic.Bool

	hits     atomic.Uint64
	misses   atomic.Uint64
	builds   atomic.Uint64
	derived  atomic.Uint64
	failures atomic.Uint64
}

// New creates a cache that compiles pipelines with compiler.
func New(compiler Compiler, opts ...Option) (*Cache, error) {
	if compiler == nil {
		return nil, ErrNilCompiler
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache{
		compiler: compiler,
		registry: o.registry,
		policy:   o.policy,
		workers:  o.workers,
	}
	if c.registry == nil {
		c.registry = NewRegistry(WithCapacity(o.capacity))
		c.ownsRegistry = true
	}
	return c, nil
}

// LookupOrBuild returns the pipeline for desc, compiling it on a miss.
//
// The returned pipeline is retained; call Release when done with it.
// Calling LookupOrBuild twice with equal descriptors returns the same
// pipeline and compiles at most once.
//
// On a miss the derivation policy may pick a registered pipeline as the
// base; the compiler then receives it together with FlagDerivative.
func (c *Cache) LookupOrBuild(desc *Descriptor) (*Pipeline, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	keys := ComputeKeys(desc)

	missed := false
	for {
		if p := c.registry.Find(keys.Full, ByFull); p != nil {
			c.registry.Touch(keys.Full)
			if p.Retain() {
				if !missed {
					c.hits.Add(1)
					Logger().Debug("psocache: hit", "label", desc.Label, "id", p.id)
				}
				return p, nil
			}
			continue
		}

		if !missed {
			missed = true
			c.misses.Add(1)
			Logger().Debug("psocache: miss", "label", desc.Label,
				"full", keys.Full, "render_state", keys.RenderState)
		}

		p, _, err := c.registry.do(keys.Full, func() (*Pipeline, error) {
			return c.build(desc, keys)
		})
		if err != nil {
			return nil, err
		}
		if p.Retain() {
			return p, nil
		}
		// Evicted and destroyed before we could retain it; look again.
	}
}

// build compiles and registers desc. It runs inside the registry's
// in-flight group, so only one build per full hash is active.
func (c *Cache) build(desc *Descriptor, keys Keys) (*Pipeline, error) {
	// A build for the same hash may have finished after our lookup.
	if p := c.registry.Find(keys.Full, ByFull); p != nil {
		return p, nil
	}

	base := c.policy.ChooseBase(keys.RenderState, keys.Shader, c.registry)
	if base != nil && !base.Retain() {
		base = nil
	}
	if base != nil {
		defer base.Release()
		Logger().Debug("psocache: deriving", "label", desc.Label, "base", base.id)
	}
	flags := c.policy.AdjustFlags(desc.Flags, base != nil)

	obj, err := c.compiler.Build(desc, base, flags)
	if err == nil && obj == nil {
		err = errNilObject
	}
	if err != nil {
		c.failures.Add(1)
		return nil, &BuildError{Label: desc.Label, Hashes: keys.HashPair, Err: err}
	}

	if err := verifyHashes(desc, keys.HashPair, obj); err != nil {
		c.failures.Add(1)
		obj.Destroy()
		return nil, err
	}

	p := newPipeline(obj, keys, flags, base, desc.Label)
	if err := c.registry.Insert(keys, p); err != nil {
		c.failures.Add(1)
		p.Release()
		var ce *ConsistencyError
		if errors.As(err, &ce) {
			return nil, fault(ce)
		}
		return nil, err
	}

	c.builds.Add(1)
	if base != nil {
		c.derived.Add(1)
	}
	return p, nil
}

// verifyHashes checks that the descriptor still hashes to want after the
// compile and that an object reporting its own hashes agrees.
func verifyHashes(desc *Descriptor, want HashPair, obj Object) error {
	if got := ComputeHashes(desc); got != want {
		return fault(&ConsistencyError{Kind: HashMismatch, Want: want, Got: got})
	}
	if hr, ok := obj.(HashReporter); ok {
		if got := hr.Hashes(); got != want {
			return fault(&ConsistencyError{Kind: HashMismatch, Want: want, Got: got})
		}
	}
	return nil
}

// FindExisting returns the registered pipeline for desc without compiling,
// or nil. A non-nil result is retained.
func (c *Cache) FindExisting(desc *Descriptor) *Pipeline {
	if desc == nil || c.closed.Load() {
		return nil
	}
	keys := ComputeKeys(desc)
	p := c.registry.Find(keys.Full, ByFull)
	if p == nil || !p.Retain() {
		return nil
	}
	c.registry.Touch(keys.Full)
	return p
}

// BuildAll looks up or builds every descriptor on the cache's worker pool.
//
// The result has one entry per descriptor, nil where the build failed.
// Failures are joined into the returned error. Equal descriptors compile
// once and share a pipeline.
func (c *Cache) BuildAll(descs []*Descriptor) ([]*Pipeline, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	pool := c.workerPool()
	if pool == nil {
		return nil, ErrClosed
	}

	out := make([]*Pipeline, len(descs))
	errs := make([]error, len(descs))
	pool.ForEach(len(descs), func(i int) {
		p, err := c.LookupOrBuild(descs[i])
		if err != nil {
			errs[i] = fmt.Errorf("descriptor %d: %w", i, err)
			return
		}
		out[i] = p
	})
	return out, errors.Join(errs...)
}

// workerPool returns the pool, starting it on first use. It returns nil
// when the cache was closed before a pool was started.
func (c *Cache) workerPool() *parallel.WorkerPool {
	c.poolMu.Lock()
	defer c.poolMu.Unlock()
	if c.pool == nil && !c.closed.Load() {
		c.pool = parallel.NewWorkerPool(c.workers)
	}
	return c.pool
}

// CachedCount returns the number of registered pipelines.
func (c *Cache) CachedCount() int {
	return c.registry.Count()
}

// Registry returns the registry the cache stores pipelines in.
func (c *Cache) Registry() *Registry {
	return c.registry
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Builds    uint64
	Derived   uint64
	Failures  uint64
	Evictions uint64
}

// Stats returns the current counters. Evictions are those of the registry,
// which may be shared with other caches.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Builds:    c.builds.Load(),
		Derived:   c.derived.Load(),
		Failures:  c.failures.Load(),
		Evictions: c.registry.Evictions(),
	}
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (c *Cache) HitRate() float64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Close stops the worker pool and, when the cache created its own registry,
// clears it. Pipelines still retained by callers stay valid until released.
// Close is safe to call multiple times.
func (c *Cache) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.poolMu.Lock()
	if c.pool != nil {
		c.pool.Close()
	}
	c.poolMu.Unlock()

	if c.ownsRegistry {
		c.registry.Clear()
	}
}
