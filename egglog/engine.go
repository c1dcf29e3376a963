package egglog

import "time"

// RunReport carries the per-run duration measurements the engine reports
// after saturating: rule matching, rule application, and congruence rebuild.
type RunReport struct {
	MatchTime   time.Duration
	ApplyTime   time.Duration
	RebuildTime time.Duration
}

// Engine is the sole boundary to the external equality-saturation engine.
// All calls are synchronous. Registration calls are atomic with respect to
// the engine's state: a failed call leaves nothing behind. Engine-side
// failures surface as *EngineError; CheckFact additionally wraps
// ErrFactNotEqual when the assertion does not hold.
//
// The engine owns the mutable term universe; this layer holds no copy of it
// and re-queries for every read. Concurrent calls are not supported and must
// be serialized by the caller.
type Engine interface {
	// DeclareSort declares a named sort.
	DeclareSort(name string) error
	// DeclareConstructor declares a constructor belonging to v.Sort.
	DeclareConstructor(v Variant) error
	// DeclareFunction declares a function signature, including its merge
	// policy for conflicting values on equal inputs.
	DeclareFunction(fd FunctionDecl) error
	// Define binds a name to a ground expression as a shorthand constant.
	// A cost of 0 means unspecified.
	Define(name string, expr Expr, cost int) error
	// AddRewrite registers a compiled rewrite and returns an opaque handle
	// usable for diagnostics. A bidirectional rewrite also registers the
	// converse rule under the same handle.
	AddRewrite(rw *RewriteDecl) (string, error)
	// AddRule registers a compiled inference rule and returns its handle.
	AddRule(rl *RuleDecl) (string, error)
	// RunRules saturates for at most limit iterations. Re-running on an
	// already saturated universe is a no-op.
	RunRules(limit int) (RunReport, error)
	// CheckFact verifies the fact holds in the current universe, failing
	// with an error wrapping ErrFactNotEqual otherwise.
	CheckFact(f Fact) error
	// CheckFactFails verifies the fact does NOT hold, failing with an
	// error wrapping ErrFactNotEqual when it does.
	CheckFactFails(f Fact) error
	// Extract requests the lowest-cost representative of the expression's
	// equivalence class, in the engine's textual form. With variants > 1
	// it returns up to that many equivalent candidates.
	Extract(e Expr, variants int) ([]string, error)
	// ParseAndRunProgram feeds a raw textual program to the engine and
	// returns its ordered output lines.
	ParseAndRunProgram(text string) ([]string, error)
}
