package backend

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache"
)

type testModule uint64

func (m testModule) Hash() uint64 { return uint64(m) }

type testTarget uint64

func (t testTarget) Identity() uint64 { return uint64(t) }

func graphics(vs, fs uint64, cull bool) *psocache.Descriptor {
	d := &psocache.Descriptor{
		Stages: []psocache.ShaderStage{
			{Kind: psocache.StageVertex, Module: testModule(vs), EntryPoint: "main"},
			{Kind: psocache.StageFragment, Module: testModule(fs), EntryPoint: "main"},
		},
		RenderPass: testTarget(1),
	}
	if cull {
		d.Rasterization.CullMode = 2
	}
	return d
}

func TestRegistryNullRegistered(t *testing.T) {
	if !IsRegistered(BackendNull) {
		t.Fatal("null backend should be registered by default")
	}
	c, err := New(BackendNull, nil)
	if err != nil {
		t.Fatalf("New(null) error = %v", err)
	}
	if _, ok := c.(*NullCompiler); !ok {
		t.Errorf("New(null) = %T, want *NullCompiler", c)
	}
}

func TestRegistryNewUnregistered(t *testing.T) {
	if _, err := New("nonexistent", nil); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("New(nonexistent) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryRegisterAndUnregister(t *testing.T) {
	called := false
	Register("test", func(hal.Device) (psocache.Compiler, error) {
		called = true
		return NewNullCompiler(), nil
	})
	defer Unregister("test")

	if !slices.Contains(Available(), "test") {
		t.Errorf("Available() = %v, want it to contain test", Available())
	}
	if _, err := New("test", nil); err != nil || !called {
		t.Errorf("New(test) error = %v, called = %v", err, called)
	}

	Unregister("test")
	if IsRegistered("test") {
		t.Error("test backend should be unregistered")
	}
}

func TestRegistryDefaultPriority(t *testing.T) {
	errRefused := errors.New("no device")
	Register(BackendWGPU, func(d hal.Device) (psocache.Compiler, error) {
		if d == nil {
			return nil, errRefused
		}
		return NewNullCompiler(), nil
	})
	defer Unregister(BackendWGPU)

	_, name, err := Default(nil)
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if name != BackendNull {
		t.Errorf("Default(nil) = %q, want fallback to %q", name, BackendNull)
	}
}

func TestNullCompiler_WithCache(t *testing.T) {
	nc := NewNullCompiler()
	cache, err := psocache.New(nc)
	if err != nil {
		t.Fatal(err)
	}

	descs := []*psocache.Descriptor{
		graphics(1, 2, false),
		graphics(1, 2, true),
		graphics(1, 2, false),
		graphics(3, 4, true),
	}
	ps, err := cache.BuildAll(descs)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if ps[0] != ps[2] {
		t.Error("identical descriptors should share a pipeline")
	}
	total, _ := nc.Builds()
	if total != 3 {
		t.Errorf("Builds() total = %d, want 3", total)
	}
	obj := ps[1].Object().(*NullObject)
	if obj.Hashes() != ps[1].Hashes() {
		t.Error("object should report the cache's hashes")
	}
	if obj.IsCompute() {
		t.Error("graphics pipeline reported as compute")
	}

	for _, p := range ps {
		p.Release()
	}
	cache.Close()
	if nc.Live() != 0 {
		t.Errorf("Live() = %d after Close, want 0", nc.Live())
	}
}

func TestNullCompiler_Derivation(t *testing.T) {
	nc := NewNullCompiler()
	cache, err := psocache.New(nc)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	base, err := cache.LookupOrBuild(graphics(1, 2, false))
	if err != nil {
		t.Fatal(err)
	}
	defer base.Release()
	child, err := cache.LookupOrBuild(graphics(1, 2, true))
	if err != nil {
		t.Fatal(err)
	}
	defer child.Release()

	if got := child.Object().(*NullObject).BaseID(); got != base.ID() {
		t.Errorf("BaseID() = %d, want %d", got, base.ID())
	}
	if _, derived := nc.Builds(); derived != 1 {
		t.Errorf("derived = %d, want 1", derived)
	}
}

func TestNullCompiler_Concurrent(t *testing.T) {
	nc := NewNullCompiler()
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obj, err := nc.Build(graphics(uint64(i), 2, false), nil, 0)
			if err != nil {
				t.Errorf("Build: %v", err)
				return
			}
			obj.Destroy()
			obj.Destroy()
		}()
	}
	wg.Wait()
	if total, _ := nc.Builds(); total != 32 || nc.Live() != 0 {
		t.Errorf("Builds() = %d, Live() = %d; want 32, 0", total, nc.Live())
	}
}
