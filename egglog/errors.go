package egglog

import (
	"errors"
	"fmt"
)

// Declaration and compilation errors. All of them indicate a mistake in the
// declarations or rule specifications and are raised synchronously at the
// offending call; nothing is committed to the engine for a failed call.
var (
	// ErrDuplicateSort reports a sort name that was already declared.
	ErrDuplicateSort = errors.New("duplicate sort")
	// ErrDuplicateVariant reports a constructor or function name collision.
	ErrDuplicateVariant = errors.New("duplicate variant")
	// ErrUnknownSort reports a reference to an undeclared sort.
	ErrUnknownSort = errors.New("unknown sort")
	// ErrUnknownSymbol reports a call target that was never declared.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrTypeMismatch reports an argument whose sort disagrees with the
	// declared input sort at that position, or a wrong argument count.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrSortMismatch reports a rewrite whose right-hand side has a
	// different sort than its left-hand side.
	ErrSortMismatch = errors.New("sort mismatch")
	// ErrUnboundVariable reports a pattern variable used without a prior
	// sort binding, or a guard/action variable outside the pattern scope.
	ErrUnboundVariable = errors.New("unbound variable")
	// ErrFreeVariable reports a define over a non-ground expression.
	ErrFreeVariable = errors.New("free variable")
	// ErrFactNotEqual reports a checked fact that does not hold in the
	// engine's current term universe.
	ErrFactNotEqual = errors.New("fact not equal")
)

// EngineError wraps a failure reported by the external engine. Context
// carries the command that failed together with the engine's diagnostic
// output.
type EngineError struct {
	Context string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine error: %s: %v", e.Context, e.Err)
	}
	return "engine error: " + e.Context
}

func (e *EngineError) Unwrap() error { return e.Err }

func engineErrorf(err error, format string, args ...any) *EngineError {
	return &EngineError{Context: fmt.Sprintf(format, args...), Err: err}
}
