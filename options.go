package psocache

// Option configures a Cache during creation.
//
// Example:
//
//	// Unbounded cache with its own registry
//	c, err := psocache.New(compiler)
//
//	// Two caches sharing one registry
//	reg := psocache.NewRegistry()
//	a, _ := psocache.New(compilerA, psocache.WithRegistry(reg))
//	b, _ := psocache.New(compilerB, psocache.WithRegistry(reg))
type Option func(*options)

type options struct {
	registry *Registry
	policy   DerivationPolicy
	workers  int
	capacity int
}

func defaultOptions() options {
	return options{
		policy: DefaultDerivation{},
	}
}

// WithRegistry makes the cache use r instead of creating its own registry.
// Close then leaves r untouched.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithDerivationPolicy replaces DefaultDerivation. A nil policy is ignored.
func WithDerivationPolicy(p DerivationPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithWorkers sets the number of goroutines BuildAll compiles on.
// Zero or negative means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithRegistryCapacity bounds the cache's own registry to n pipelines,
// evicting the least recently used one when full. It has no effect together
// with WithRegistry.
func WithRegistryCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}
