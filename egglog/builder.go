package egglog

import "fmt"

// Call builds the expression applying a declared constructor or function to
// the given arguments. This is pure tree construction: no engine interaction
// happens, so expressions can be composed and reused freely before any rule
// registration.
//
// Arguments are Expr values, or raw Go literals promoted to the builtin
// literal sorts: int/int64 to i64 and string to String. Promotion only fills
// a position whose declared sort is the matching builtin; there is no
// coercion between declared sorts. A sort disagreement fails with
// ErrTypeMismatch, an undeclared target with ErrUnknownSymbol.
func (r *Registry) Call(name string, args ...any) (Expr, error) {
	sym, ok := r.lookupSymbol(name)
	if !ok {
		return Expr{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
	}
	if sym.isDefine {
		if len(args) != 0 {
			return Expr{}, fmt.Errorf("%w: %q is a defined constant, not callable", ErrTypeMismatch, name)
		}
		return Expr{kind: ExprVar, sort: sym.out, sym: name}, nil
	}
	if len(args) != len(sym.argSorts) {
		return Expr{}, fmt.Errorf("%w: %q expects %d args, got %d",
			ErrTypeMismatch, name, len(sym.argSorts), len(args))
	}
	built := make([]Expr, len(args))
	for i, a := range args {
		arg, err := promoteArg(a, sym.argSorts[i])
		if err != nil {
			return Expr{}, fmt.Errorf("%s arg %d: %w", name, i, err)
		}
		built[i] = arg
	}
	return Expr{kind: ExprCall, sort: sym.out, sym: name, args: built}, nil
}

// MustCall is Call for statically known-good expressions; it panics on
// error. Intended for tests and examples.
func (r *Registry) MustCall(name string, args ...any) Expr {
	e, err := r.Call(name, args...)
	if err != nil {
		panic(err)
	}
	return e
}

// MustVar is Var for statically known-good bindings; it panics on error.
func (r *Registry) MustVar(name, sort string) Expr {
	e, err := r.Var(name, sort)
	if err != nil {
		panic(err)
	}
	return e
}

func promoteArg(a any, want string) (Expr, error) {
	switch v := a.(type) {
	case Expr:
		if v.Sort() != want {
			return Expr{}, fmt.Errorf("%w: have %q, want %q", ErrTypeMismatch, v.Sort(), want)
		}
		return v, nil
	case int:
		return promoteLit(IntVal(int64(v)), want)
	case int64:
		return promoteLit(IntVal(v), want)
	case string:
		return promoteLit(StringVal(v), want)
	default:
		return Expr{}, fmt.Errorf("%w: unsupported argument type %T", ErrTypeMismatch, a)
	}
}

func promoteLit(lit Expr, want string) (Expr, error) {
	if lit.Sort() != want {
		return Expr{}, fmt.Errorf("%w: literal is %q, want %q", ErrTypeMismatch, lit.Sort(), want)
	}
	return lit, nil
}
