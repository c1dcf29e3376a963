package egglog

import (
	"fmt"
	"strconv"
)

// Extraction: ask the engine for the lowest-cost representative of an
// expression's equivalence class and rebuild it as a typed Expr, using the
// registry as the decoder table. The registry resolves every constructor and
// function name back to its declared sort and arity, so the reconstructed
// tree is shaped exactly like one built through the builder.

// Extract saturates up to limit iterations (idempotent when already
// saturated) and returns the lowest-cost term equivalent to expr. When
// several equal-cost terms exist the engine's internal preference decides;
// any saturated-equivalent answer is valid.
func (g *EGraph) Extract(expr Expr, limit int) (Expr, error) {
	if limit > 0 {
		if _, err := g.Run(limit); err != nil {
			return Expr{}, err
		}
	}
	terms, err := g.eng.Extract(expr, 1)
	if err != nil {
		return Expr{}, err
	}
	if len(terms) == 0 {
		return Expr{}, engineErrorf(nil, "extract returned no term for %s", expr)
	}
	return g.decodeTerm(terms[0], expr.Sort())
}

// ExtractMultiple returns up to n equivalent candidate terms for expr,
// lowest-cost first.
func (g *EGraph) ExtractMultiple(expr Expr, n, limit int) ([]Expr, error) {
	if limit > 0 {
		if _, err := g.Run(limit); err != nil {
			return nil, err
		}
	}
	terms, err := g.eng.Extract(expr, n)
	if err != nil {
		return nil, err
	}
	if len(terms) > n {
		terms = terms[:n]
	}
	out := make([]Expr, 0, len(terms))
	for _, t := range terms {
		e, err := g.decodeTerm(t, expr.Sort())
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Simplify is Extract under its original name: run-then-extract in one call.
func (g *EGraph) Simplify(expr Expr, limit int) (Expr, error) {
	return g.Extract(expr, limit)
}

func (g *EGraph) decodeTerm(text, wantSort string) (Expr, error) {
	nodes, err := parseSExprs(text)
	if err != nil {
		return Expr{}, engineErrorf(err, "malformed extraction result %q", text)
	}
	if len(nodes) != 1 {
		return Expr{}, engineErrorf(nil, "expected one extracted term, got %d in %q", len(nodes), text)
	}
	e, err := decodeExpr(g.reg, nodes[0])
	if err != nil {
		return Expr{}, err
	}
	if wantSort != "" && e.Sort() != wantSort {
		return Expr{}, engineErrorf(nil, "extracted term has sort %q, want %q", e.Sort(), wantSort)
	}
	return e, nil
}

// decodeExpr rebuilds a typed expression from a reader node. Call arguments
// go back through the checked builder so a decoder disagreement surfaces as
// the same TypeMismatch/UnknownSymbol errors the builder raises.
func decodeExpr(r *Registry, s sexp) (Expr, error) {
	if !s.isList {
		return decodeAtom(r, s)
	}
	if len(s.list) == 0 {
		return UnitVal(), nil
	}
	head := s.list[0]
	if head.isList || head.isString {
		return Expr{}, engineErrorf(nil, "call head is not a symbol")
	}
	args := make([]any, 0, len(s.list)-1)
	for _, c := range s.list[1:] {
		arg, err := decodeExpr(r, c)
		if err != nil {
			return Expr{}, err
		}
		args = append(args, arg)
	}
	return r.Call(head.atom, args...)
}

func decodeAtom(r *Registry, s sexp) (Expr, error) {
	if s.isString {
		return StringVal(s.atom), nil
	}
	if v, err := strconv.ParseInt(s.atom, 10, 64); err == nil {
		return IntVal(v), nil
	}
	if sym, ok := r.lookupSymbol(s.atom); ok {
		if sym.isDefine {
			return Expr{kind: ExprVar, sort: sym.out, sym: s.atom}, nil
		}
		if len(sym.argSorts) == 0 {
			return Expr{kind: ExprCall, sort: sym.out, sym: s.atom}, nil
		}
	}
	if sort, ok := r.varSort(s.atom); ok {
		return Expr{kind: ExprVar, sort: sort, sym: s.atom}, nil
	}
	return Expr{}, fmt.Errorf("%w: %q in extraction result", ErrUnknownSymbol, s.atom)
}
