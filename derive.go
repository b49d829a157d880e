package psocache

// DerivationPolicy decides which registered pipeline, if any, a new pipeline
// is derived from, and which derivation flags it is compiled with.
//
// Implementations must not modify the registry.
type DerivationPolicy interface {
	// ChooseBase returns a registered pipeline to derive from, or nil.
	ChooseBase(renderState, shader uint64, r *Registry) *Pipeline

	// AdjustFlags returns the flags the pipeline is compiled with.
	AdjustFlags(flags CreateFlags, hasBase bool) CreateFlags
}

// DefaultDerivation prefers a pipeline with the same render state and falls
// back to one with the same shader stages. Every pipeline it builds is
// marked as a possible future base.
type DefaultDerivation struct{}

func (DefaultDerivation) ChooseBase(renderState, shader uint64, r *Registry) *Pipeline {
	if p := r.Find(renderState, ByRenderState); p != nil {
		return p
	}
	return r.Find(shader, ByShader)
}

func (DefaultDerivation) AdjustFlags(flags CreateFlags, hasBase bool) CreateFlags {
	flags |= FlagAllowDerivatives
	if hasBase {
		flags |= FlagDerivative
	}
	return flags
}

// NoDerivation never derives. Pipelines are compiled with the caller's flags
// minus the derivation bits.
type NoDerivation struct{}

func (NoDerivation) ChooseBase(uint64, uint64, *Registry) *Pipeline { return nil }

func (NoDerivation) AdjustFlags(flags CreateFlags, _ bool) CreateFlags {
	return flags.identityFlags()
}
