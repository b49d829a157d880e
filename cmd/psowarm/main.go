// Command psowarm warms a pipeline cache with a matrix of render and compute
// pipeline variants on the headless HAL device and reports cache statistics.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/psocache"
	"github.com/gogpu/psocache/backend"
	"github.com/gogpu/psocache/shader"
)

func main() {
	var (
		backendName = flag.String("backend", backend.BackendWGPU, "pipeline backend (wgpu, null)")
		passes      = flag.Int("passes", 2, "number of warm-up passes over the matrix")
		workers     = flag.Int("workers", 0, "build workers (0 = GOMAXPROCS)")
		capacity    = flag.Int("capacity", 0, "registry capacity (0 = unbounded)")
		noDerive    = flag.Bool("no-derive", false, "disable pipeline derivation")
		verbose     = flag.Bool("v", false, "log cache activity")
	)
	flag.Parse()

	if *verbose {
		psocache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	device := &noop.Device{}
	compiler, err := backend.New(*backendName, device)
	if err != nil {
		log.Fatalf("Failed to create compiler: %v", err)
	}

	lib := shader.NewLibrary(device)
	defer lib.Close()

	set, err := compileShaders(lib)
	if err != nil {
		log.Fatalf("Failed to compile shaders: %v", err)
	}

	opts := []psocache.Option{
		psocache.WithWorkers(*workers),
		psocache.WithRegistryCapacity(*capacity),
	}
	if *noDerive {
		opts = append(opts, psocache.WithDerivationPolicy(psocache.NoDerivation{}))
	}
	cache, err := psocache.New(compiler, opts...)
	if err != nil {
		log.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	descs := variantMatrix(set)
	for pass := 1; pass <= *passes; pass++ {
		pipelines, err := cache.BuildAll(descs)
		if err != nil {
			log.Printf("Pass %d: %v", pass, err)
		}
		for _, p := range pipelines {
			if p != nil {
				p.Release()
			}
		}
		log.Printf("Pass %d: %d descriptors, %d cached", pass, len(descs), cache.CachedCount())
	}

	s := cache.Stats()
	hits, misses := lib.Stats()
	log.Printf("Backend %s: builds=%d derived=%d failures=%d evictions=%d",
		*backendName, s.Builds, s.Derived, s.Failures, s.Evictions)
	log.Printf("Lookups: hits=%d misses=%d hit rate=%.1f%%", s.Hits, s.Misses, cache.HitRate()*100)
	log.Printf("Shaders: modules=%d hits=%d misses=%d", lib.Len(), hits, misses)
}
