package egglog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingEngine is an in-memory Engine used by the unit tests. It records
// every command in the textual form the real adapter would emit and serves
// scripted extraction results.
type recordingEngine struct {
	commands     []string
	extractOut   []string // scripted lines returned by Extract
	extractEmpty bool     // when set, Extract returns no terms and no error
	failWith     error    // when set, the next call fails and clears it
	checkErr     error    // returned by CheckFact
	nextHandle   int
}

func (e *recordingEngine) record(cmd string) error {
	if err := e.failWith; err != nil {
		e.failWith = nil
		return &EngineError{Context: cmd, Err: err}
	}
	e.commands = append(e.commands, cmd)
	return nil
}

func (e *recordingEngine) DeclareSort(name string) error {
	return e.record(sortCommand(name))
}

func (e *recordingEngine) DeclareConstructor(v Variant) error {
	return e.record(variantCommand(v))
}

func (e *recordingEngine) DeclareFunction(fd FunctionDecl) error {
	return e.record(functionCommand(fd))
}

func (e *recordingEngine) Define(name string, expr Expr, cost int) error {
	return e.record(defineCommand(name, expr, cost))
}

func (e *recordingEngine) AddRewrite(rw *RewriteDecl) (string, error) {
	for _, cmd := range rewriteCommands(rw) {
		if err := e.record(cmd); err != nil {
			return "", err
		}
	}
	return e.handle(), nil
}

func (e *recordingEngine) AddRule(rl *RuleDecl) (string, error) {
	if err := e.record(ruleCommand(rl)); err != nil {
		return "", err
	}
	return e.handle(), nil
}

func (e *recordingEngine) handle() string {
	e.nextHandle++
	return fmt.Sprintf("handle-%d", e.nextHandle)
}

func (e *recordingEngine) RunRules(limit int) (RunReport, error) {
	if err := e.record(runCommand(limit)); err != nil {
		return RunReport{}, err
	}
	return RunReport{}, nil
}

func (e *recordingEngine) CheckFact(f Fact) error {
	if e.checkErr != nil {
		return e.checkErr
	}
	return e.record(checkCommand(f, false))
}

func (e *recordingEngine) CheckFactFails(f Fact) error {
	return e.record(checkCommand(f, true))
}

func (e *recordingEngine) Extract(expr Expr, variants int) ([]string, error) {
	if err := e.failWith; err != nil {
		e.failWith = nil
		return nil, &EngineError{Context: "extract", Err: err}
	}
	if e.extractEmpty {
		return nil, nil
	}
	if len(e.extractOut) == 0 {
		return []string{expr.String()}, nil
	}
	return e.extractOut, nil
}

func (e *recordingEngine) ParseAndRunProgram(text string) ([]string, error) {
	if err := e.record(text); err != nil {
		return nil, err
	}
	return []string{"ok"}, nil
}

// newMathGraph declares the small integer-expression algebra shared by the
// unit tests: a Math sort with Num/Add/Mul constructors.
func newMathGraph(t *testing.T) (*EGraph, *recordingEngine) {
	t.Helper()
	eng := &recordingEngine{}
	g := New(eng)
	require.NoError(t, g.DeclareSort("Math"))
	require.NoError(t, g.DeclareConstructor(Variant{Name: "Num", Sort: "Math", ArgSorts: []string{SortInt}}))
	require.NoError(t, g.DeclareConstructor(Variant{Name: "Add", Sort: "Math", ArgSorts: []string{"Math", "Math"}}))
	require.NoError(t, g.DeclareConstructor(Variant{Name: "Mul", Sort: "Math", ArgSorts: []string{"Math", "Math"}}))
	return g, eng
}
