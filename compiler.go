package psocache

// Compiler turns a descriptor into a pipeline object.
//
// base is the pipeline the new one may be derived from, or nil. It stays
// alive for the duration of the call. flags are the descriptor's flags with
// the derivation bits set by the DerivationPolicy.
//
// Build is called concurrently for different descriptors and must be safe
// for concurrent use.
type Compiler interface {
	Build(desc *Descriptor, base *Pipeline, flags CreateFlags) (Object, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(desc *Descriptor, base *Pipeline, flags CreateFlags) (Object, error)

// Build calls f.
func (f CompilerFunc) Build(desc *Descriptor, base *Pipeline, flags CreateFlags) (Object, error) {
	return f(desc, base, flags)
}
