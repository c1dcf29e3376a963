package egglog

// EGraph is the session facade pairing a declaration registry with an engine
// adapter. One EGraph owns one logical session against one engine instance;
// the accumulated program grows monotonically and is never retracted.
type EGraph struct {
	reg     *Registry
	eng     Engine
	handles []string
}

// New creates an EGraph over the given engine adapter.
func New(eng Engine) *EGraph {
	return &EGraph{reg: NewRegistry(eng), eng: eng}
}

// Registry exposes the underlying declaration registry.
func (g *EGraph) Registry() *Registry { return g.reg }

// DeclareSort declares a named sort.
func (g *EGraph) DeclareSort(name string) error { return g.reg.DeclareSort(name) }

// DeclareConstructor declares a constructor for its owning sort.
func (g *EGraph) DeclareConstructor(v Variant) error { return g.reg.DeclareConstructor(v) }

// DeclareFunction declares a function signature.
func (g *EGraph) DeclareFunction(fd FunctionDecl) error { return g.reg.DeclareFunction(fd) }

// Relation declares a Unit-valued function.
func (g *EGraph) Relation(name string, argSorts ...string) error {
	return g.reg.Relation(name, argSorts...)
}

// Constant declares a named nullary function and returns its call expression.
func (g *EGraph) Constant(name, sort string) (Expr, error) { return g.reg.Constant(name, sort) }

// Define binds a name to a ground expression; see Registry.Define.
func (g *EGraph) Define(name string, expr Expr, cost int) (Expr, error) {
	return g.reg.Define(name, expr, cost)
}

// Var binds a pattern variable to a sort; see Registry.Var.
func (g *EGraph) Var(name, sort string) (Expr, error) { return g.reg.Var(name, sort) }

// Call builds a typed call expression; see Registry.Call.
func (g *EGraph) Call(name string, args ...any) (Expr, error) { return g.reg.Call(name, args...) }

// Register compiles and submits any number of rewrites and rules, returning
// the engine-side handles in registration order. Compilation is fail-fast:
// the first invalid item stops the batch and nothing after it is submitted.
// Firing order of the registered items is unspecified; the engine saturates
// to a fixed point regardless.
func (g *EGraph) Register(items ...Registration) ([]string, error) {
	var handles []string
	for _, it := range items {
		if err := it.compile(g.reg); err != nil {
			return handles, err
		}
		h, err := it.submit(g.eng)
		if err != nil {
			return handles, err
		}
		handles = append(handles, h)
		g.handles = append(g.handles, h)
	}
	return handles, nil
}

// Handles returns every rewrite/rule handle issued in this session.
func (g *EGraph) Handles() []string {
	out := make([]string, len(g.handles))
	copy(out, g.handles)
	return out
}

// Run saturates for at most limit iterations and returns the engine's
// timing report. Running an already saturated universe is a no-op.
func (g *EGraph) Run(limit int) (RunReport, error) {
	return g.eng.RunRules(limit)
}

// Check verifies each fact holds in the current universe, failing with an
// error wrapping ErrFactNotEqual on the first that does not.
func (g *EGraph) Check(facts ...Fact) error {
	for _, f := range facts {
		if err := checkFactShape(f); err != nil {
			return err
		}
		if err := g.eng.CheckFact(f); err != nil {
			return err
		}
	}
	return nil
}

// CheckFail verifies the fact does NOT hold.
func (g *EGraph) CheckFail(f Fact) error {
	if err := checkFactShape(f); err != nil {
		return err
	}
	return g.eng.CheckFactFails(f)
}

// ParseAndRunProgram feeds raw engine text through the adapter and returns
// the ordered output lines.
func (g *EGraph) ParseAndRunProgram(text string) ([]string, error) {
	return g.eng.ParseAndRunProgram(text)
}
