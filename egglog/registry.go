package egglog

import "fmt"

// MergePolicy describes how the engine combines conflicting function values
// for equal inputs.
type MergePolicy int

const (
	// MergeError rejects a second distinct value (the default).
	MergeError MergePolicy = iota
	// MergeNew keeps the newest value.
	MergeNew
	// MergeMin keeps the minimum-cost value. Only meaningful for
	// i64-valued functions.
	MergeMin
)

var mergePolicyNames = map[MergePolicy]string{
	MergeError: "error",
	MergeNew:   "new",
	MergeMin:   "min",
}

func (m MergePolicy) String() string {
	if s, ok := mergePolicyNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MergePolicy(%d)", int(m))
}

// Variant describes a constructor belonging to a sort. A Cost of 0 means
// unspecified; the engine then charges the default cost of 1 per node.
type Variant struct {
	Name     string
	Sort     string
	ArgSorts []string
	Cost     int
}

// FunctionDecl describes a total or partial function signature.
type FunctionDecl struct {
	Name     string
	ArgSorts []string
	OutSort  string
	Cost     int
	Merge    MergePolicy
}

// symbolDecl is the registry's internal record for anything callable or
// referenceable by name: constructors, functions, relations, constants, and
// defined shorthand names.
type symbolDecl struct {
	name     string
	argSorts []string
	out      string
	isDefine bool // referenced as a bare name rather than a call
}

// Registry is the single source of truth for sorts, constructors, functions,
// and pattern-variable bindings within a session. Every successful
// declaration is committed to the engine adapter immediately, in call order,
// so rewrites and rules never reach the engine before the symbols they
// reference. One registry pairs with one engine instance; concurrent use is
// not supported.
type Registry struct {
	engine  Engine
	sorts   map[string]bool // name -> builtin
	symbols map[string]*symbolDecl
	ctors   map[string]map[string]bool // sort -> constructor names
	vars    map[string]string          // pattern variable -> sort
}

// NewRegistry creates a registry bound to the given engine with the builtin
// sorts pre-registered. The builtins are already known to the engine, so no
// commands are emitted for them.
func NewRegistry(eng Engine) *Registry {
	r := &Registry{
		engine: eng,
		sorts: map[string]bool{
			SortInt:    true,
			SortString: true,
			SortUnit:   true,
		},
		symbols: make(map[string]*symbolDecl),
		ctors:   make(map[string]map[string]bool),
		vars:    make(map[string]string),
	}
	// Builtin i64 arithmetic, pre-declared by the engine.
	for _, op := range []string{"+", "-", "*", "min", "max"} {
		r.symbols[op] = &symbolDecl{name: op, argSorts: []string{SortInt, SortInt}, out: SortInt}
	}
	return r
}

// DeclareSort declares a new named sort.
func (r *Registry) DeclareSort(name string) error {
	if _, ok := r.sorts[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateSort, name)
	}
	if err := r.engine.DeclareSort(name); err != nil {
		return err
	}
	r.sorts[name] = false
	return nil
}

// HasSort reports whether the sort has been declared (builtins included).
func (r *Registry) HasSort(name string) bool {
	_, ok := r.sorts[name]
	return ok
}

func (r *Registry) checkSorts(names ...string) error {
	for _, n := range names {
		if !r.HasSort(n) {
			return fmt.Errorf("%w: %q", ErrUnknownSort, n)
		}
	}
	return nil
}

func (r *Registry) checkFreshSymbol(name string) error {
	if _, ok := r.symbols[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateVariant, name)
	}
	return nil
}

// DeclareConstructor declares a constructor for its owning sort. The owning
// sort and every argument sort must already be declared, and the name must
// be fresh both within the sort's constructor namespace and globally.
func (r *Registry) DeclareConstructor(v Variant) error {
	if err := r.checkSorts(append([]string{v.Sort}, v.ArgSorts...)...); err != nil {
		return err
	}
	if r.ctors[v.Sort][v.Name] {
		return fmt.Errorf("%w: constructor %q on sort %q", ErrDuplicateVariant, v.Name, v.Sort)
	}
	if err := r.checkFreshSymbol(v.Name); err != nil {
		return err
	}
	if err := r.engine.DeclareConstructor(v); err != nil {
		return err
	}
	if r.ctors[v.Sort] == nil {
		r.ctors[v.Sort] = make(map[string]bool)
	}
	r.ctors[v.Sort][v.Name] = true
	r.symbols[v.Name] = &symbolDecl{name: v.Name, argSorts: v.ArgSorts, out: v.Sort}
	return nil
}

// DeclareFunction declares a function signature together with its merge
// policy.
func (r *Registry) DeclareFunction(fd FunctionDecl) error {
	if err := r.checkSorts(append([]string{fd.OutSort}, fd.ArgSorts...)...); err != nil {
		return err
	}
	if err := r.checkFreshSymbol(fd.Name); err != nil {
		return err
	}
	if err := r.engine.DeclareFunction(fd); err != nil {
		return err
	}
	r.symbols[fd.Name] = &symbolDecl{name: fd.Name, argSorts: fd.ArgSorts, out: fd.OutSort}
	return nil
}

// Relation declares a Unit-valued function, the engine's representation of a
// relation over the given argument sorts.
func (r *Registry) Relation(name string, argSorts ...string) error {
	return r.DeclareFunction(FunctionDecl{Name: name, ArgSorts: argSorts, OutSort: SortUnit})
}

// Constant declares a named nullary function of the given sort and returns
// the call expression referencing it.
func (r *Registry) Constant(name, sort string) (Expr, error) {
	if err := r.DeclareFunction(FunctionDecl{Name: name, OutSort: sort}); err != nil {
		return Expr{}, err
	}
	return Expr{kind: ExprCall, sort: sort, sym: name}, nil
}

// Define binds a name to a ground expression and registers it with the
// engine as a shorthand constant. A cost of 0 means unspecified. The
// returned expression references the binding and can be used wherever an
// expression of the same sort is expected.
func (r *Registry) Define(name string, expr Expr, cost int) (Expr, error) {
	if err := r.checkFreshSymbol(name); err != nil {
		return Expr{}, err
	}
	if err := r.checkGround(expr); err != nil {
		return Expr{}, err
	}
	if err := r.engine.Define(name, expr, cost); err != nil {
		return Expr{}, err
	}
	r.symbols[name] = &symbolDecl{name: name, out: expr.Sort(), isDefine: true}
	return Expr{kind: ExprVar, sort: expr.Sort(), sym: name}, nil
}

// checkGround fails with ErrFreeVariable when the expression contains a
// pattern variable. References to defined names are ground.
func (r *Registry) checkGround(expr Expr) error {
	for _, name := range r.freeVars(expr) {
		return fmt.Errorf("%w: %q", ErrFreeVariable, name)
	}
	return nil
}

// Var binds a pattern variable name to a sort and returns the variable
// expression. Variables exist only inside rule and rewrite patterns;
// rebinding a name to a different sort fails with ErrSortMismatch, and a
// name already taken by a declared symbol or define fails with
// ErrDuplicateVariant so the variable cannot shadow it.
func (r *Registry) Var(name, sort string) (Expr, error) {
	if err := r.checkSorts(sort); err != nil {
		return Expr{}, err
	}
	if _, ok := r.symbols[name]; ok {
		return Expr{}, fmt.Errorf("%w: %q is already a declared symbol", ErrDuplicateVariant, name)
	}
	if prev, ok := r.vars[name]; ok && prev != sort {
		return Expr{}, fmt.Errorf("%w: variable %q is %q, redeclared as %q", ErrSortMismatch, name, prev, sort)
	}
	r.vars[name] = sort
	return Expr{kind: ExprVar, sort: sort, sym: name}, nil
}

// varSort returns the declared sort of a pattern variable.
func (r *Registry) varSort(name string) (string, bool) {
	s, ok := r.vars[name]
	return s, ok
}

// lookupSymbol returns the declaration record for a callable name.
func (r *Registry) lookupSymbol(name string) (*symbolDecl, bool) {
	s, ok := r.symbols[name]
	return s, ok
}

// freeVars returns the pattern variables reachable from the expression in
// first-occurrence order, excluding references to defined names.
func (r *Registry) freeVars(e Expr) []string {
	var names []string
	for _, n := range e.Vars() {
		if sym, ok := r.symbols[n]; ok && sym.isDefine {
			continue
		}
		names = append(names, n)
	}
	return names
}
