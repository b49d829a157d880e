package psocache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T, opts ...Option) (*Cache, *mockCompiler) {
	t.Helper()
	mc := &mockCompiler{}
	c, err := New(mc, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, mc
}

func mustBuild(t *testing.T, c *Cache, d *Descriptor) *Pipeline {
	t.Helper()
	p, err := c.LookupOrBuild(d)
	if err != nil {
		t.Fatalf("LookupOrBuild(%q): %v", d.Label, err)
	}
	return p
}

func TestNew_NilCompiler(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilCompiler) {
		t.Errorf("New(nil) = %v, want ErrNilCompiler", err)
	}
}

func TestCache_Scenarios(t *testing.T) {
	c, mc := newTestCache(t)

	// A: {vs1, fs1} with R1.
	a := mustBuild(t, c, graphicsDescriptor("A", 1, 1))
	if c.CachedCount() != 1 {
		t.Fatalf("after A: CachedCount() = %d, want 1", c.CachedCount())
	}
	ha := a.Hashes()
	if c.Registry().Find(ha.Full, ByFull) != a || c.Registry().Find(ha.RenderState, ByRenderState) != a {
		t.Fatal("A should be registered under both hashes")
	}
	if call := mc.call(0); call.base != nil || call.flags != FlagAllowDerivatives {
		t.Errorf("A compiled with base %v flags %b, want no base and allow-derivatives", call.base, call.flags)
	}

	// B: {vs2, fs1} with the same R1 derives from A.
	b := mustBuild(t, c, graphicsDescriptor("B", 2, 1))
	if mc.callCount() != 2 {
		t.Fatalf("compiler called %d times, want 2", mc.callCount())
	}
	call := mc.call(1)
	if call.base != a {
		t.Errorf("B compiled with base %v, want A", call.base)
	}
	if !call.flags.Has(FlagDerivative | FlagAllowDerivatives) {
		t.Errorf("B flags = %b, want derivative and allow-derivatives", call.flags)
	}
	if b.BaseID() != a.ID() {
		t.Errorf("B.BaseID() = %d, want %d", b.BaseID(), a.ID())
	}
	if c.CachedCount() != 2 {
		t.Errorf("after B: CachedCount() = %d, want 2", c.CachedCount())
	}
	if got := c.Registry().Find(ha.RenderState, ByRenderState); got != a {
		t.Error("render-state mapping should still resolve to A")
	}

	// C: identical to A returns A without compiling.
	cp := mustBuild(t, c, graphicsDescriptor("C", 1, 1))
	if cp != a {
		t.Error("C should return A")
	}
	if mc.callCount() != 2 {
		t.Errorf("compiler called %d times after C, want 2", mc.callCount())
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 2 || s.Builds != 2 || s.Derived != 1 || s.Failures != 0 {
		t.Errorf("Stats() = %+v", s)
	}
	if hr := c.HitRate(); hr < 0.33 || hr > 0.34 {
		t.Errorf("HitRate() = %v, want 1/3", hr)
	}

	a.Release()
	b.Release()
	cp.Release()
}

func TestCache_Idempotent(t *testing.T) {
	c, mc := newTestCache(t)
	d := graphicsDescriptor("idem", 1, 2)

	p1 := mustBuild(t, c, d)
	p2 := mustBuild(t, c, d)
	if p1 != p2 {
		t.Error("LookupOrBuild returned different handles for the same descriptor")
	}
	if mc.callCount() != 1 {
		t.Errorf("compiler called %d times, want 1", mc.callCount())
	}
	if p1.Refs() != 3 {
		t.Errorf("Refs() = %d, want registry + two callers", p1.Refs())
	}
}

func TestCache_ComputePipeline(t *testing.T) {
	c, mc := newTestCache(t)

	a := mustBuild(t, c, computeDescriptor("cs-a", 1))
	b := mustBuild(t, c, computeDescriptor("cs-b", 2))
	if a == b {
		t.Fatal("different compute shaders should build different pipelines")
	}
	if mc.call(1).base != a {
		t.Error("compute pipeline with the same layout should derive from the first")
	}
}

func TestCache_ConcurrentIdenticalBuilds(t *testing.T) {
	gate := make(chan struct{})
	mc := &mockCompiler{gate: gate}
	c, err := New(mc)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	const n = 16
	results := make([]*Pipeline, n)
	errs := make([]error, n)
	var ready, done sync.WaitGroup
	ready.Add(n)
	for i := range n {
		done.Add(1)
		go func() {
			defer done.Done()
			ready.Done()
			results[i], errs[i] = c.LookupOrBuild(graphicsDescriptor("race", 1, 2))
		}()
	}
	ready.Wait()
	close(gate)
	done.Wait()

	for i := range n {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d received a different pipeline", i)
		}
	}
	if mc.callCount() != 1 {
		t.Errorf("compiler called %d times, want 1", mc.callCount())
	}
	if c.CachedCount() != 1 {
		t.Errorf("CachedCount() = %d, want 1", c.CachedCount())
	}
	if got := results[0].Refs(); got != n+1 {
		t.Errorf("Refs() = %d, want %d", got, n+1)
	}
}

func TestCache_ConcurrentDistinctBuilds(t *testing.T) {
	c, mc := newTestCache(t)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.LookupOrBuild(graphicsDescriptor("d", uint64(i%8+1), 100))
			if err != nil {
				t.Errorf("LookupOrBuild: %v", err)
				return
			}
			p.Release()
		}()
	}
	wg.Wait()

	if c.CachedCount() != 8 {
		t.Errorf("CachedCount() = %d, want 8", c.CachedCount())
	}
	if mc.callCount() != 8 {
		t.Errorf("compiler called %d times, want 8", mc.callCount())
	}
}

func TestCache_BuildFailure(t *testing.T) {
	c, mc := newTestCache(t)
	mc.fail = map[string]error{"broken": errMockCompile}

	p, err := c.LookupOrBuild(graphicsDescriptor("broken", 1, 2))
	if p != nil {
		t.Error("failed build returned a pipeline")
	}
	if !errors.Is(err, ErrCompilerFailed) || !errors.Is(err, errMockCompile) {
		t.Fatalf("err = %v, want ErrCompilerFailed wrapping the compiler error", err)
	}
	var be *BuildError
	if !errors.As(err, &be) || be.Label != "broken" {
		t.Errorf("err = %v, want *BuildError for label broken", err)
	}
	if c.CachedCount() != 0 {
		t.Errorf("CachedCount() = %d after failure, want 0", c.CachedCount())
	}
	if c.Stats().Failures != 1 {
		t.Errorf("Failures = %d, want 1", c.Stats().Failures)
	}

	// Failures are not cached; the next call compiles again.
	delete(mc.fail, "broken")
	p = mustBuild(t, c, graphicsDescriptor("broken", 1, 2))
	if mc.callCount() != 2 || p == nil {
		t.Errorf("compiler called %d times, want 2", mc.callCount())
	}
}

func TestCache_NilObject(t *testing.T) {
	c, err := New(CompilerFunc(func(*Descriptor, *Pipeline, CreateFlags) (Object, error) {
		return nil, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.LookupOrBuild(computeDescriptor("nil", 1)); !errors.Is(err, ErrCompilerFailed) {
		t.Errorf("err = %v, want ErrCompilerFailed", err)
	}
}

func TestCache_InvalidDescriptor(t *testing.T) {
	c, mc := newTestCache(t)

	if _, err := c.LookupOrBuild(nil); !errors.Is(err, ErrNilDescriptor) {
		t.Errorf("LookupOrBuild(nil) = %v, want ErrNilDescriptor", err)
	}
	if _, err := c.LookupOrBuild(&Descriptor{}); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("LookupOrBuild(empty) = %v, want ErrInvalidDescriptor", err)
	}
	if mc.callCount() != 0 {
		t.Error("invalid descriptors must not reach the compiler")
	}
}

func TestCache_FindExisting(t *testing.T) {
	c, _ := newTestCache(t)
	d := graphicsDescriptor("f", 1, 2)

	if c.FindExisting(d) != nil {
		t.Fatal("FindExisting on empty cache should return nil")
	}
	p := mustBuild(t, c, d)
	found := c.FindExisting(graphicsDescriptor("other label", 1, 2))
	if found != p {
		t.Fatal("FindExisting should return the registered pipeline")
	}
	if p.Refs() != 3 {
		t.Errorf("FindExisting should retain: Refs() = %d, want 3", p.Refs())
	}
	if c.Stats().Hits != 0 {
		t.Error("FindExisting should not count as a hit")
	}
}

func TestCache_BuildAll(t *testing.T) {
	c, mc := newTestCache(t, WithWorkers(4))
	mc.fail = map[string]error{"bad": errMockCompile}

	descs := []*Descriptor{
		graphicsDescriptor("a", 1, 1),
		graphicsDescriptor("a2", 1, 1),
		graphicsDescriptor("b", 2, 1),
		graphicsDescriptor("bad", 3, 1),
		graphicsDescriptor("a3", 1, 1),
	}
	out, err := c.BuildAll(descs)
	if !errors.Is(err, ErrCompilerFailed) {
		t.Fatalf("BuildAll error = %v, want joined ErrCompilerFailed", err)
	}
	if len(out) != len(descs) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(descs))
	}
	if out[3] != nil {
		t.Error("failed descriptor should have a nil result")
	}
	if out[0] == nil || out[0] != out[1] || out[0] != out[4] {
		t.Error("equal descriptors should share one pipeline")
	}
	if out[2] == nil || out[2] == out[0] {
		t.Error("distinct descriptor should get its own pipeline")
	}
	if c.CachedCount() != 2 {
		t.Errorf("CachedCount() = %d, want 2", c.CachedCount())
	}
	if got := c.Stats().Builds; got != 2 {
		t.Errorf("Builds = %d, want 2", got)
	}
}

func TestCache_NoDerivationPolicy(t *testing.T) {
	c, mc := newTestCache(t, WithDerivationPolicy(NoDerivation{}))

	mustBuild(t, c, graphicsDescriptor("a", 1, 1))
	b := mustBuild(t, c, graphicsDescriptor("b", 2, 1))
	if mc.call(1).base != nil || b.Derived() {
		t.Error("NoDerivation should never pass a base")
	}
	if c.Stats().Derived != 0 {
		t.Error("no derived builds expected")
	}
}

func TestCache_SharedRegistry(t *testing.T) {
	reg := NewRegistry()
	c1, mc1 := newTestCache(t, WithRegistry(reg))
	c2, mc2 := newTestCache(t, WithRegistry(reg))

	p1 := mustBuild(t, c1, graphicsDescriptor("s", 1, 2))
	p2 := mustBuild(t, c2, graphicsDescriptor("s", 1, 2))
	if p1 != p2 {
		t.Error("caches sharing a registry should share pipelines")
	}
	if mc1.callCount() != 1 || mc2.callCount() != 0 {
		t.Errorf("compile counts = %d, %d; want 1, 0", mc1.callCount(), mc2.callCount())
	}

	c1.Close()
	if reg.Count() != 1 {
		t.Error("Close must not clear a registry the cache does not own")
	}
}

func TestCache_BoundedRegistry(t *testing.T) {
	c, mc := newTestCache(t, WithRegistryCapacity(1))

	a := mustBuild(t, c, graphicsDescriptor("a", 1, 1))
	a.Release()
	b := mustBuild(t, c, graphicsDescriptor("b", 2, 2))
	defer b.Release()

	if c.CachedCount() != 1 {
		t.Fatalf("CachedCount() = %d, want 1", c.CachedCount())
	}
	if !a.IsDestroyed() || mc.objects[0].destroyed.Load() != 1 {
		t.Error("evicted pipeline should be destroyed once released by everyone")
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", c.Stats().Evictions)
	}

	// A is compiled again after eviction.
	a2 := mustBuild(t, c, graphicsDescriptor("a", 1, 1))
	defer a2.Release()
	if a2 == a || mc.callCount() != 3 {
		t.Errorf("expected a fresh build after eviction, compiler called %d times", mc.callCount())
	}
}

func TestCache_Close(t *testing.T) {
	mc := &mockCompiler{}
	c, err := New(mc)
	if err != nil {
		t.Fatal(err)
	}
	kept := mustBuild(t, c, graphicsDescriptor("kept", 1, 1))
	dropped := mustBuild(t, c, graphicsDescriptor("dropped", 2, 2))
	dropped.Release()

	c.Close()
	c.Close()

	if _, err := c.LookupOrBuild(graphicsDescriptor("x", 3, 3)); !errors.Is(err, ErrClosed) {
		t.Errorf("LookupOrBuild after Close = %v, want ErrClosed", err)
	}
	if _, err := c.BuildAll(nil); !errors.Is(err, ErrClosed) {
		t.Errorf("BuildAll after Close = %v, want ErrClosed", err)
	}
	if !dropped.IsDestroyed() {
		t.Error("unreferenced pipeline should be destroyed by Close")
	}
	if kept.IsDestroyed() {
		t.Error("retained pipeline should survive Close")
	}
	kept.Release()
	if !kept.IsDestroyed() {
		t.Error("retained pipeline should be destroyed on its last Release")
	}
}

func TestCache_CloseDuringBuildAll(t *testing.T) {
	c, _ := newTestCache(t, WithWorkers(2))

	descs := make([]*Descriptor, 20000)
	for i := range descs {
		descs[i] = computeDescriptor(fmt.Sprintf("cs%d", i), uint64(i+1))
	}

	type result struct {
		out []*Pipeline
		err error
	}
	finished := make(chan result, 1)
	go func() {
		out, err := c.BuildAll(descs)
		finished <- result{out, err}
	}()

	time.Sleep(2 * time.Millisecond)
	c.Close()

	var res result
	select {
	case res = <-finished:
	case <-time.After(30 * time.Second):
		t.Fatal("BuildAll did not return after Close")
	}
	if res.err != nil && !errors.Is(res.err, ErrClosed) {
		t.Errorf("BuildAll error = %v, want nil or ErrClosed", res.err)
	}
	for _, p := range res.out {
		if p != nil {
			p.Release()
		}
	}
}

func BenchmarkCache_Hit(b *testing.B) {
	c, err := New(&mockCompiler{})
	if err != nil {
		b.Fatal(err)
	}
	defer c.Close()
	d := graphicsDescriptor("bench", 1, 2)
	p, _ := c.LookupOrBuild(d)
	p.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, _ := c.LookupOrBuild(d)
		p.Release()
	}
}
