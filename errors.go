package psocache

import (
	"errors"
	"fmt"
)

var (
	// ErrNilDescriptor is returned when a nil descriptor is passed in.
	ErrNilDescriptor = errors.New("psocache: descriptor is nil")

	// ErrNilCompiler is returned by New without a compiler.
	ErrNilCompiler = errors.New("psocache: compiler is nil")

	// ErrInvalidDescriptor is wrapped by Descriptor.Validate failures.
	ErrInvalidDescriptor = errors.New("psocache: invalid descriptor")

	// ErrClosed is returned by a cache after Close.
	ErrClosed = errors.New("psocache: cache is closed")

	// ErrCompilerFailed matches every *BuildError.
	ErrCompilerFailed = errors.New("psocache: pipeline compilation failed")

	// ErrHashMismatch matches a ConsistencyError where the hashes reported
	// for a built object differ from the descriptor's.
	ErrHashMismatch = errors.New("psocache: pipeline hash mismatch")

	// ErrRegistryCollision matches a ConsistencyError where a different
	// pipeline is already registered under the same full hash.
	ErrRegistryCollision = errors.New("psocache: registry collision")
)

// BuildError is returned when the compiler fails. Nothing is registered for
// the descriptor and the compiler's error is available through Unwrap.
type BuildError struct {
	Label  string
	Hashes HashPair
	Err    error
}

func (e *BuildError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("psocache: build %q (full %016x): %v", e.Label, e.Hashes.Full, e.Err)
	}
	return fmt.Sprintf("psocache: build %016x: %v", e.Hashes.Full, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCompilerFailed.
func (e *BuildError) Is(target error) bool { return target == ErrCompilerFailed }

// ConsistencyKind classifies a ConsistencyError.
type ConsistencyKind uint8

const (
	HashMismatch ConsistencyKind = iota + 1
	RegistryCollision
)

func (k ConsistencyKind) String() string {
	switch k {
	case HashMismatch:
		return "hash mismatch"
	case RegistryCollision:
		return "registry collision"
	default:
		return "unknown"
	}
}

// ConsistencyError reports an internal invariant violation. It indicates a
// hashing bug or a compiler reporting the wrong identity, never a user error.
type ConsistencyError struct {
	Kind ConsistencyKind
	Want HashPair
	Got  HashPair
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("psocache: %s: want {full %016x, render-state %016x}, got {full %016x, render-state %016x}",
		e.Kind, e.Want.Full, e.Want.RenderState, e.Got.Full, e.Got.RenderState)
}

// Is matches ErrHashMismatch or ErrRegistryCollision according to Kind.
func (e *ConsistencyError) Is(target error) bool {
	switch e.Kind {
	case HashMismatch:
		return target == ErrHashMismatch
	case RegistryCollision:
		return target == ErrRegistryCollision
	}
	return false
}

// fault logs a consistency error and, in builds tagged psocache_debug,
// panics with it.
func fault(err *ConsistencyError) error {
	Logger().Error("psocache: consistency fault",
		"kind", err.Kind.String(),
		"want_full", err.Want.Full,
		"got_full", err.Got.Full)
	if debugFaults {
		panic(err)
	}
	return err
}
