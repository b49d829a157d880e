package psocache

import (
	"strconv"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Index selects one of the registry mappings.
type Index uint8

const (
	// ByFull maps full hashes to pipelines. Every registered pipeline has
	// exactly one entry here.
	ByFull Index = iota
	// ByRenderState maps render-state hashes to the oldest registered
	// pipeline with that render state.
	ByRenderState
	// ByShader maps shader hashes to the oldest registered pipeline with
	// that stage list.
	ByShader
)

func (i Index) String() string {
	switch i {
	case ByFull:
		return "full"
	case ByRenderState:
		return "render-state"
	case ByShader:
		return "shader"
	default:
		return "unknown"
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	capacity    int
	shaderIndex bool
}

func defaultRegistryOptions() registryOptions {
	return registryOptions{shaderIndex: true}
}

// WithCapacity bounds the registry to n pipelines. When full, inserting
// evicts the least recently used pipeline. n <= 0 means unbounded, which is
// the default.
func WithCapacity(n int) RegistryOption {
	return func(o *registryOptions) {
		o.capacity = n
	}
}

// WithoutShaderIndex disables the shader-hash mapping. Derivation then only
// finds bases through the render-state mapping.
func WithoutShaderIndex() RegistryOption {
	return func(o *registryOptions) {
		o.shaderIndex = false
	}
}

// Registry stores built pipelines under their keys.
//
// Thread Safety:
// Registry is safe for concurrent use. Lookups take a read lock and inserts
// a write lock; an entry becomes visible under all of its mappings at once.
//
// A Registry can be shared by several caches. They then also share the
// de-duplication of in-flight builds.
type Registry struct {
	mu            sync.RWMutex
	byFull        map[uint64]*Pipeline
	byRenderState map[uint64]*Pipeline
	byShader      map[uint64]*Pipeline

	// recency is nil for an unbounded registry. Its eviction callback runs
	// with mu held.
	recency *lru.Cache[uint64, *Pipeline]
	evicted []*Pipeline

	shaderIndex bool
	evictions   atomic.Uint64
	inflight    singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := defaultRegistryOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		byFull:        make(map[uint64]*Pipeline),
		byRenderState: make(map[uint64]*Pipeline),
		byShader:      make(map[uint64]*Pipeline),
		shaderIndex:   o.shaderIndex,
	}
	if o.capacity > 0 {
		// NewWithEvict only fails for a non-positive size.
		r.recency, _ = lru.NewWithEvict(o.capacity, r.onEvict)
	}
	return r
}

// Find returns the pipeline registered under hash in the given mapping, or
// nil. It has no side effects; use Touch to mark a pipeline as used.
//
// The returned pipeline is not retained.
func (r *Registry) Find(hash uint64, idx Index) *Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(hash, idx)
}

func (r *Registry) find(hash uint64, idx Index) *Pipeline {
	switch idx {
	case ByFull:
		return r.byFull[hash]
	case ByRenderState:
		return r.byRenderState[hash]
	case ByShader:
		return r.byShader[hash]
	default:
		return nil
	}
}

// Insert registers p under keys. The registry takes over the creation
// reference of p.
//
// Inserting the same pipeline twice is a no-op. Inserting a different
// pipeline under a full hash that is already taken returns a
// ConsistencyError matching ErrRegistryCollision and leaves the registry
// unchanged.
//
// The render-state and shader mappings keep the first pipeline registered
// under a hash.
func (r *Registry) Insert(keys Keys, p *Pipeline) error {
	r.mu.Lock()
	if existing, ok := r.byFull[keys.Full]; ok {
		r.mu.Unlock()
		if existing == p {
			return nil
		}
		return &ConsistencyError{Kind: RegistryCollision, Want: keys.HashPair, Got: existing.keys.HashPair}
	}

	r.byFull[keys.Full] = p
	if _, ok := r.byRenderState[keys.RenderState]; !ok {
		r.byRenderState[keys.RenderState] = p
	}
	if r.shaderIndex {
		if _, ok := r.byShader[keys.Shader]; !ok {
			r.byShader[keys.Shader] = p
		}
	}
	if r.recency != nil {
		r.recency.Add(keys.Full, p)
	}
	evicted := r.takeEvicted()
	r.mu.Unlock()

	releaseAll(evicted)
	return nil
}

// Touch marks the pipeline registered under full as recently used. It only
// has an effect on a bounded registry.
func (r *Registry) Touch(full uint64) {
	if r.recency != nil {
		r.recency.Get(full)
	}
}

// Remove unregisters the pipeline under full and drops the registry's
// reference to it. It reports whether a pipeline was registered.
func (r *Registry) Remove(full uint64) bool {
	r.mu.Lock()
	p, ok := r.byFull[full]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.unlink(full, p)
	if r.recency != nil {
		r.recency.Remove(full)
	}
	evicted := r.takeEvicted()
	r.mu.Unlock()

	p.Release()
	releaseAll(evicted)
	return true
}

// Clear unregisters every pipeline and drops the registry's references.
// Pipelines still retained by callers stay alive until released.
func (r *Registry) Clear() {
	r.mu.Lock()
	all := make([]*Pipeline, 0, len(r.byFull))
	for _, p := range r.byFull {
		all = append(all, p)
	}
	r.byFull = make(map[uint64]*Pipeline)
	r.byRenderState = make(map[uint64]*Pipeline)
	r.byShader = make(map[uint64]*Pipeline)
	if r.recency != nil {
		r.recency.Purge()
	}
	all = append(all, r.takeEvicted()...)
	r.mu.Unlock()

	releaseAll(all)
}

// Count returns the number of registered pipelines.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byFull)
}

// Evictions returns how many pipelines a bounded registry has evicted.
func (r *Registry) Evictions() uint64 {
	return r.evictions.Load()
}

// onEvict runs inside recency.Add with mu held. Entries already unlinked by
// Remove or Clear are ignored.
func (r *Registry) onEvict(full uint64, p *Pipeline) {
	if r.byFull[full] != p {
		return
	}
	r.unlink(full, p)
	r.evicted = append(r.evicted, p)
	r.evictions.Add(1)
	Logger().Debug("psocache: evicted pipeline", "id", p.id, "full", full)
}

// unlink removes p from every mapping. A secondary slot owned by p moves to
// the oldest remaining pipeline with the same key. Must be called with mu
// held.
func (r *Registry) unlink(full uint64, p *Pipeline) {
	delete(r.byFull, full)
	if r.byRenderState[p.keys.RenderState] == p {
		r.repoint(r.byRenderState, p.keys.RenderState, func(q *Pipeline) uint64 { return q.keys.RenderState })
	}
	if r.byShader[p.keys.Shader] == p {
		r.repoint(r.byShader, p.keys.Shader, func(q *Pipeline) uint64 { return q.keys.Shader })
	}
}

func (r *Registry) repoint(m map[uint64]*Pipeline, hash uint64, key func(*Pipeline) uint64) {
	var next *Pipeline
	for _, q := range r.byFull {
		if key(q) == hash && (next == nil || q.id < next.id) {
			next = q
		}
	}
	if next == nil {
		delete(m, hash)
		return
	}
	m[hash] = next
}

func (r *Registry) takeEvicted() []*Pipeline {
	ev := r.evicted
	r.evicted = nil
	return ev
}

func releaseAll(ps []*Pipeline) {
	for _, p := range ps {
		p.Release()
	}
}

// do runs build at most once at a time per full hash. Concurrent callers
// with the same hash wait for the first one and share its result.
func (r *Registry) do(full uint64, build func() (*Pipeline, error)) (*Pipeline, bool, error) {
	v, err, shared := r.inflight.Do(strconv.FormatUint(full, 16), func() (any, error) {
		return build()
	})
	if err != nil {
		return nil, shared, err
	}
	return v.(*Pipeline), shared, nil
}
