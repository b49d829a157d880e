package psocache

// CreateFlags are the pipeline creation flags passed to the compiler.
type CreateFlags uint32

const (
	// FlagDisableOptimization asks the compiler to skip optimisation passes.
	FlagDisableOptimization CreateFlags = 1 << 0

	// FlagAllowDerivatives marks the new pipeline as usable as a future
	// derivation base. The cache always sets it.
	FlagAllowDerivatives CreateFlags = 1 << 1

	// FlagDerivative marks the new pipeline as derived from the base pipeline
	// handed to the compiler. The cache sets it when a base was chosen.
	FlagDerivative CreateFlags = 1 << 2
)

// derivationFlags are owned by the cache and never part of a pipeline's identity.
const derivationFlags = FlagAllowDerivatives | FlagDerivative

// identityFlags returns the flags that take part in hashing and equality.
func (f CreateFlags) identityFlags() CreateFlags {
	return f &^ derivationFlags
}

// Has reports whether every bit of flag is set.
func (f CreateFlags) Has(flag CreateFlags) bool {
	return f&flag == flag
}

// StageKind identifies a programmable pipeline stage.
type StageKind uint32

const (
	StageVertex StageKind = iota + 1
	StageTessControl
	StageTessEval
	StageGeometry
	StageFragment
	StageCompute
)

// String returns the stage name.
func (k StageKind) String() string {
	switch k {
	case StageVertex:
		return "vertex"
	case StageTessControl:
		return "tess-control"
	case StageTessEval:
		return "tess-eval"
	case StageGeometry:
		return "geometry"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// PolygonMode is the triangle fill mode.
//
// The zero value is PolygonFill.
type PolygonMode uint32

const (
	PolygonFill PolygonMode = iota
	PolygonLine
	PolygonPoint
)

// LogicOp is a framebuffer logic operation.
type LogicOp uint32

const (
	LogicOpClear LogicOp = iota
	LogicOpAnd
	LogicOpAndReverse
	LogicOpCopy
	LogicOpAndInverted
	LogicOpNoOp
	LogicOpXor
	LogicOpOr
	LogicOpNor
	LogicOpEquivalent
	LogicOpInvert
	LogicOpOrReverse
	LogicOpCopyInverted
	LogicOpOrInverted
	LogicOpNand
	LogicOpSet
)

// DynamicStateKind names a piece of state that is supplied at record time
// instead of being baked into the pipeline.
type DynamicStateKind uint32

const (
	DynamicViewport DynamicStateKind = iota + 1
	DynamicScissor
	DynamicLineWidth
	DynamicDepthBias
	DynamicBlendConstants
	DynamicDepthBounds
	DynamicStencilCompareMask
	DynamicStencilWriteMask
	DynamicStencilReference
	DynamicCullMode
	DynamicFrontFace
	DynamicPrimitiveTopology
	DynamicDepthTestEnable
	DynamicDepthWriteEnable
	DynamicDepthCompareOp
	DynamicStencilTestEnable
	DynamicStencilOp
)
