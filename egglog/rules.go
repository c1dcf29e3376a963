package egglog

import "fmt"

// FactKind discriminates the assertion forms.
type FactKind int

const (
	// FactEq asserts two expressions are in the same equivalence class.
	FactEq FactKind = iota
	// FactAssign asserts a function call currently carries a value. The
	// left-hand side must be a call expression.
	FactAssign
)

// Fact is an assertion over expressions, used both for user-level checks and
// for rule premises and rewrite guards.
type Fact struct {
	Kind FactKind
	LHS  Expr
	RHS  Expr
}

// Eq builds an equality fact between two expressions.
func Eq(a, b Expr) Fact { return Fact{Kind: FactEq, LHS: a, RHS: b} }

// Assign builds a fact asserting the call expression lhs carries the value
// rhs.
func Assign(lhs, rhs Expr) Fact { return Fact{Kind: FactAssign, LHS: lhs, RHS: rhs} }

// ActionKind discriminates the "then" statement forms of a rule.
type ActionKind int

const (
	// ActionLet binds a name to an expression for subsequent actions in
	// the same rule.
	ActionLet ActionKind = iota
	// ActionUnion asserts two expressions equal.
	ActionUnion
	// ActionSet assigns a value to a function call.
	ActionSet
	// ActionDelete removes a function call's row.
	ActionDelete
	// ActionPanic aborts saturation with a message.
	ActionPanic
	// ActionExpr introduces a new term into the universe.
	ActionExpr
)

// Action is a single statement in a rule's "then" clause.
type Action struct {
	Kind ActionKind
	Name string // let binding name or panic message
	LHS  Expr
	RHS  Expr
}

// Let binds name to the value for subsequent actions in the same rule only.
func Let(name string, value Expr) Action {
	return Action{Kind: ActionLet, Name: name, LHS: value}
}

// Union asserts the two expressions are equal.
func Union(a, b Expr) Action { return Action{Kind: ActionUnion, LHS: a, RHS: b} }

// Set assigns value to the function call.
func Set(call, value Expr) Action { return Action{Kind: ActionSet, LHS: call, RHS: value} }

// Delete removes the function call's entry.
func Delete(call Expr) Action { return Action{Kind: ActionDelete, LHS: call} }

// Panic aborts saturation with the message when the rule fires.
func Panic(msg string) Action { return Action{Kind: ActionPanic, Name: msg} }

// ExprAction introduces the expression as a new term in the universe.
func ExprAction(e Expr) Action { return Action{Kind: ActionExpr, LHS: e} }

// RewriteDecl is a compiled directed equality rule. Immutable once
// registered; the engine adapter assigns each an opaque handle.
type RewriteDecl struct {
	LHS           Expr
	RHS           Expr
	Guards        []Fact
	Bidirectional bool
}

// RuleDecl is a compiled inference rule: premises matched against the term
// universe and the actions applied on a match.
type RuleDecl struct {
	Premises []Fact
	Actions  []Action
}

// Registration is anything the rule compiler can validate against a registry
// and submit through the engine adapter. Application order is deliberately
// unspecified: the engine saturates to a fixed point independent of
// registration order.
type Registration interface {
	compile(r *Registry) error
	submit(eng Engine) (string, error)
}

// RewriteBuilder accumulates a rewrite specification.
type RewriteBuilder struct {
	lhs           Expr
	bidirectional bool
}

// Rewrite starts a directed rewrite with the given left-hand pattern.
func Rewrite(lhs Expr) *RewriteBuilder { return &RewriteBuilder{lhs: lhs} }

// Birewrite starts a rewrite that also registers the converse rule.
func Birewrite(lhs Expr) *RewriteBuilder {
	return &RewriteBuilder{lhs: lhs, bidirectional: true}
}

// To completes the rewrite with a replacement and optional guard facts. All
// guards must hold for the rewrite to fire.
func (b *RewriteBuilder) To(rhs Expr, guards ...Fact) *RewriteDecl {
	return &RewriteDecl{LHS: b.lhs, RHS: rhs, Guards: guards, Bidirectional: b.bidirectional}
}

// RuleBuilder accumulates a rule specification.
type RuleBuilder struct {
	premises []Fact
}

// Rule starts an inference rule from its premise facts.
func Rule(premises ...Fact) *RuleBuilder { return &RuleBuilder{premises: premises} }

// Then completes the rule with its action statements.
func (b *RuleBuilder) Then(actions ...Action) *RuleDecl {
	return &RuleDecl{Premises: b.premises, Actions: actions}
}

// varScope tracks which variable names are visible while compiling a rule or
// rewrite.
type varScope map[string]bool

func (s varScope) add(names []string) {
	for _, n := range names {
		s[n] = true
	}
}

func (s varScope) check(r *Registry, e Expr) error {
	for _, n := range r.freeVars(e) {
		if !s[n] {
			return fmt.Errorf("%w: %q", ErrUnboundVariable, n)
		}
	}
	return nil
}

// declaredVars verifies every pattern variable in the expression carries an
// explicit sort binding from Registry.Var and returns their names.
func declaredVars(r *Registry, e Expr) ([]string, error) {
	names := r.freeVars(e)
	for _, n := range names {
		if _, ok := r.varSort(n); !ok {
			return nil, fmt.Errorf("%w: %q was never bound to a sort", ErrUnboundVariable, n)
		}
	}
	return names, nil
}

func (rw *RewriteDecl) compile(r *Registry) error {
	patternVars, err := declaredVars(r, rw.LHS)
	if err != nil {
		return err
	}
	if rw.RHS.Sort() != rw.LHS.Sort() {
		return fmt.Errorf("%w: rewrite lhs is %q, rhs is %q",
			ErrSortMismatch, rw.LHS.Sort(), rw.RHS.Sort())
	}
	scope := varScope{}
	scope.add(patternVars)
	// The replacement and the guards cannot introduce variables the
	// pattern does not bind.
	if err := scope.check(r, rw.RHS); err != nil {
		return err
	}
	for _, g := range rw.Guards {
		if err := checkFactShape(g); err != nil {
			return err
		}
		if err := checkFactVars(r, scope, g); err != nil {
			return err
		}
	}
	return nil
}

func (rw *RewriteDecl) submit(eng Engine) (string, error) {
	return eng.AddRewrite(rw)
}

func (rl *RuleDecl) compile(r *Registry) error {
	scope := varScope{}
	for _, p := range rl.Premises {
		if err := checkFactShape(p); err != nil {
			return err
		}
		for _, e := range []Expr{p.LHS, p.RHS} {
			names, err := declaredVars(r, e)
			if err != nil {
				return err
			}
			scope.add(names)
		}
	}
	// Each let extends the scope for subsequent actions in this rule only;
	// the binding is invisible outside.
	for _, a := range rl.Actions {
		if err := compileAction(r, scope, a); err != nil {
			return err
		}
	}
	return nil
}

func (rl *RuleDecl) submit(eng Engine) (string, error) {
	return eng.AddRule(rl)
}

func compileAction(r *Registry, scope varScope, a Action) error {
	switch a.Kind {
	case ActionLet:
		if err := scope.check(r, a.LHS); err != nil {
			return err
		}
		scope[a.Name] = true
	case ActionUnion:
		if a.LHS.Sort() != a.RHS.Sort() {
			return fmt.Errorf("%w: union of %q and %q",
				ErrSortMismatch, a.LHS.Sort(), a.RHS.Sort())
		}
		if err := scope.check(r, a.LHS); err != nil {
			return err
		}
		return scope.check(r, a.RHS)
	case ActionSet:
		if a.LHS.Kind() != ExprCall {
			return fmt.Errorf("%w: set target must be a call", ErrTypeMismatch)
		}
		if a.LHS.Sort() != a.RHS.Sort() {
			return fmt.Errorf("%w: set of %q to %q",
				ErrSortMismatch, a.LHS.Sort(), a.RHS.Sort())
		}
		if err := scope.check(r, a.LHS); err != nil {
			return err
		}
		return scope.check(r, a.RHS)
	case ActionDelete:
		if a.LHS.Kind() != ExprCall {
			return fmt.Errorf("%w: delete target must be a call", ErrTypeMismatch)
		}
		return scope.check(r, a.LHS)
	case ActionPanic:
		// Nothing to validate.
	case ActionExpr:
		return scope.check(r, a.LHS)
	}
	return nil
}

func checkFactVars(r *Registry, scope varScope, f Fact) error {
	if err := scope.check(r, f.LHS); err != nil {
		return err
	}
	return scope.check(r, f.RHS)
}

func checkFactShape(f Fact) error {
	if f.Kind == FactAssign && f.LHS.Kind() != ExprCall {
		return fmt.Errorf("%w: assign fact needs a call on the left", ErrTypeMismatch)
	}
	if f.LHS.Sort() != f.RHS.Sort() {
		return fmt.Errorf("%w: fact compares %q with %q",
			ErrSortMismatch, f.LHS.Sort(), f.RHS.Sort())
	}
	return nil
}
