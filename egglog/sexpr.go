package egglog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Serialization to and from the engine's textual s-expression format. The
// writer produces one command string per registration; the reader decodes
// the terms the engine prints for extraction results.

func writeExpr(b *strings.Builder, e Expr) {
	switch e.Kind() {
	case ExprLit:
		switch e.Sort() {
		case SortInt:
			b.WriteString(strconv.FormatInt(e.Int(), 10))
		case SortString:
			b.WriteString(strconv.Quote(e.Str()))
		default:
			b.WriteString("()")
		}
	case ExprVar:
		b.WriteString(e.Sym())
	case ExprCall:
		b.WriteByte('(')
		b.WriteString(e.Sym())
		for _, a := range e.Children() {
			b.WriteByte(' ')
			writeExpr(b, a)
		}
		b.WriteByte(')')
	}
}

func writeFact(b *strings.Builder, f Fact) {
	// Assign facts match the current value of a function row; on the wire
	// both forms are an equality over the call and the value.
	b.WriteString("(= ")
	writeExpr(b, f.LHS)
	b.WriteByte(' ')
	writeExpr(b, f.RHS)
	b.WriteByte(')')
}

func sortCommand(name string) string {
	return "(sort " + name + ")"
}

func writeSignature(b *strings.Builder, name string, argSorts []string, out string) {
	b.WriteString(name)
	b.WriteString(" (")
	for i, s := range argSorts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	b.WriteByte(')')
	if out != "" {
		b.WriteByte(' ')
		b.WriteString(out)
	}
}

func variantCommand(v Variant) string {
	var b strings.Builder
	b.WriteString("(function ")
	writeSignature(&b, v.Name, v.ArgSorts, v.Sort)
	if v.Cost > 0 {
		fmt.Fprintf(&b, " :cost %d", v.Cost)
	}
	b.WriteByte(')')
	return b.String()
}

func functionCommand(fd FunctionDecl) string {
	var b strings.Builder
	if fd.OutSort == SortUnit {
		// Unit-valued functions are relations; merge policy is moot.
		b.WriteString("(relation ")
		writeSignature(&b, fd.Name, fd.ArgSorts, "")
		b.WriteByte(')')
		return b.String()
	}
	b.WriteString("(function ")
	writeSignature(&b, fd.Name, fd.ArgSorts, fd.OutSort)
	if fd.Cost > 0 {
		fmt.Fprintf(&b, " :cost %d", fd.Cost)
	}
	switch fd.Merge {
	case MergeNew:
		b.WriteString(" :merge new")
	case MergeMin:
		b.WriteString(" :merge (min old new)")
	}
	b.WriteByte(')')
	return b.String()
}

func defineCommand(name string, expr Expr, cost int) string {
	var b strings.Builder
	b.WriteString("(define ")
	b.WriteString(name)
	b.WriteByte(' ')
	writeExpr(&b, expr)
	if cost > 0 {
		fmt.Fprintf(&b, " :cost %d", cost)
	}
	b.WriteByte(')')
	return b.String()
}

// rewriteCommands returns one command for a directed rewrite and two for a
// bidirectional one (the converse keeps the same guards).
func rewriteCommands(rw *RewriteDecl) []string {
	cmds := []string{rewriteCommand(rw.LHS, rw.RHS, rw.Guards)}
	if rw.Bidirectional {
		cmds = append(cmds, rewriteCommand(rw.RHS, rw.LHS, rw.Guards))
	}
	return cmds
}

func rewriteCommand(lhs, rhs Expr, guards []Fact) string {
	var b strings.Builder
	b.WriteString("(rewrite ")
	writeExpr(&b, lhs)
	b.WriteByte(' ')
	writeExpr(&b, rhs)
	if len(guards) > 0 {
		b.WriteString(" :when (")
		for i, g := range guards {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeFact(&b, g)
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String()
}

func ruleCommand(rl *RuleDecl) string {
	var b strings.Builder
	b.WriteString("(rule (")
	for i, p := range rl.Premises {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeFact(&b, p)
	}
	b.WriteString(") (")
	for i, a := range rl.Actions {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeAction(&b, a)
	}
	b.WriteString("))")
	return b.String()
}

func writeAction(b *strings.Builder, a Action) {
	switch a.Kind {
	case ActionLet:
		b.WriteString("(let ")
		b.WriteString(a.Name)
		b.WriteByte(' ')
		writeExpr(b, a.LHS)
		b.WriteByte(')')
	case ActionUnion:
		b.WriteString("(union ")
		writeExpr(b, a.LHS)
		b.WriteByte(' ')
		writeExpr(b, a.RHS)
		b.WriteByte(')')
	case ActionSet:
		b.WriteString("(set ")
		writeExpr(b, a.LHS)
		b.WriteByte(' ')
		writeExpr(b, a.RHS)
		b.WriteByte(')')
	case ActionDelete:
		b.WriteString("(delete ")
		writeExpr(b, a.LHS)
		b.WriteByte(')')
	case ActionPanic:
		b.WriteString("(panic ")
		b.WriteString(strconv.Quote(a.Name))
		b.WriteByte(')')
	case ActionExpr:
		writeExpr(b, a.LHS)
	}
}

func checkCommand(f Fact, expectFail bool) string {
	var b strings.Builder
	if expectFail {
		b.WriteString("(fail ")
	}
	b.WriteString("(check ")
	writeFact(&b, f)
	b.WriteByte(')')
	if expectFail {
		b.WriteByte(')')
	}
	return b.String()
}

func runCommand(limit int) string {
	return "(run " + strconv.Itoa(limit) + ")"
}

func extractCommand(e Expr, variants int) string {
	var b strings.Builder
	b.WriteString("(extract ")
	writeExpr(&b, e)
	if variants > 1 {
		fmt.Fprintf(&b, " :variants %d", variants)
	}
	b.WriteByte(')')
	return b.String()
}

// sexp is the generic reader node: either an atom (possibly a quoted string)
// or a list.
type sexp struct {
	atom     string
	isString bool
	isList   bool
	list     []sexp
}

// parseSExprs reads every top-level s-expression from the text.
func parseSExprs(text string) ([]sexp, error) {
	p := &sexpParser{src: text}
	var nodes []sexp
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nodes, nil
		}
		n, err := p.parse()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

type sexpParser struct {
	src string
	pos int
}

func (p *sexpParser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ';' {
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		if !unicode.IsSpace(rune(c)) {
			return
		}
		p.pos++
	}
}

func (p *sexpParser) parse() (sexp, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return sexp{}, fmt.Errorf("unexpected end of input")
	}
	switch p.src[p.pos] {
	case '(':
		p.pos++
		node := sexp{isList: true}
		for {
			p.skipSpace()
			if p.pos >= len(p.src) {
				return sexp{}, fmt.Errorf("unterminated list")
			}
			if p.src[p.pos] == ')' {
				p.pos++
				return node, nil
			}
			child, err := p.parse()
			if err != nil {
				return sexp{}, err
			}
			node.list = append(node.list, child)
		}
	case ')':
		return sexp{}, fmt.Errorf("unexpected %q at offset %d", ')', p.pos)
	case '"':
		return p.parseString()
	default:
		return p.parseAtom(), nil
	}
}

func (p *sexpParser) parseString() (sexp, error) {
	start := p.pos
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' && p.pos+1 < len(p.src) {
			next := p.src[p.pos+1]
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(next)
			}
			p.pos += 2
			continue
		}
		if c == '"' {
			p.pos++
			return sexp{atom: b.String(), isString: true}, nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return sexp{}, fmt.Errorf("unterminated string at offset %d", start)
}

func (p *sexpParser) parseAtom() sexp {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '(' || c == ')' || c == '"' || unicode.IsSpace(rune(c)) {
			break
		}
		p.pos++
	}
	return sexp{atom: p.src[start:p.pos]}
}
