package egglog

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRunReport(t *testing.T) {
	lines := []string{
		"[INFO ] Ran 10 iterations.",
		"[INFO ] Report: search 1.5ms, apply 200us, rebuild 0.1ms",
	}
	rep, ok := parseRunReport(lines)
	require.True(t, ok)
	require.Equal(t, 1500*time.Microsecond, rep.MatchTime)
	require.Equal(t, 200*time.Microsecond, rep.ApplyTime)
	require.Equal(t, 100*time.Microsecond, rep.RebuildTime)
}

func TestParseRunReportAccumulatesAcrossLines(t *testing.T) {
	lines := []string{
		"ruleset a: search 1ms, apply 1ms, rebuild 1ms",
		"ruleset b: search 2ms, apply 2ms, rebuild 2ms",
	}
	rep, ok := parseRunReport(lines)
	require.True(t, ok)
	require.Equal(t, 3*time.Millisecond, rep.MatchTime)
	require.Equal(t, 3*time.Millisecond, rep.ApplyTime)
	require.Equal(t, 3*time.Millisecond, rep.RebuildTime)
}

func TestParseRunReportAbsent(t *testing.T) {
	_, ok := parseRunReport([]string{"Ran 10 iterations."})
	require.False(t, ok)
}

func TestExtractedTermsFiltersLogNoise(t *testing.T) {
	lines := []string{
		"[INFO ] Ran 2 iterations.",
		"extracted with cost 3: (Mul (Num 2) (Num 3))",
		"",
		"7",
	}
	terms := extractedTerms(lines)
	require.Equal(t, []string{"(Mul (Num 2) (Num 3))", "7"}, terms)
}

func TestProcEngineDefaults(t *testing.T) {
	p := NewProcEngine()
	require.Equal(t, "egglog", p.binary)
	require.Equal(t, 30*time.Second, p.timeout)

	p = NewProcEngine(WithBinary("/opt/egglog/bin/egglog"), WithTimeout(time.Second))
	require.Equal(t, "/opt/egglog/bin/egglog", p.binary)
	require.Equal(t, time.Second, p.timeout)
}

func TestProcEngineHandlesAreOpaqueAndTracked(t *testing.T) {
	p := NewProcEngine()
	h1 := p.mintHandle("(rewrite a b)")
	h2 := p.mintHandle("(rewrite b a)")
	require.NotEqual(t, h1, h2)

	src, ok := p.SourceOf(h1)
	require.True(t, ok)
	require.Equal(t, "(rewrite a b)", src)

	_, ok = p.SourceOf("no-such-handle")
	require.False(t, ok)
}

// fakeEngine writes a shell script standing in for the engine binary.
func fakeEngine(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine stub needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "egglog")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCheckTimeoutIsNotARefutedFact(t *testing.T) {
	p := NewProcEngine(
		WithBinary(fakeEngine(t, "sleep 5")),
		WithTimeout(100*time.Millisecond),
	)

	err := p.CheckFact(Eq(IntVal(1), IntVal(1)))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrFactNotEqual)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
}

func TestCheckRejectionMapsToFactNotEqual(t *testing.T) {
	p := NewProcEngine(WithBinary(fakeEngine(t, "echo 'Check failed' >&2\nexit 1")))

	err := p.CheckFact(Eq(IntVal(1), IntVal(2)))
	require.ErrorIs(t, err, ErrFactNotEqual)

	// The inverse check maps the same way.
	err = p.CheckFactFails(Eq(IntVal(1), IntVal(1)))
	require.ErrorIs(t, err, ErrFactNotEqual)
}

func TestCheckMissingBinaryIsEngineError(t *testing.T) {
	p := NewProcEngine(WithBinary(filepath.Join(t.TempDir(), "no-such-engine")))

	err := p.CheckFact(Eq(IntVal(1), IntVal(1)))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrFactNotEqual)
	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
}

// requireEngine skips the test when the egglog binary is not installed, the
// exec-adapter counterpart of building without the engine's headers.
func requireEngine(t *testing.T) *ProcEngine {
	t.Helper()
	p := NewProcEngine()
	if !p.Available() {
		t.Skip("egglog binary not found in PATH")
	}
	return p
}

func TestProcEngineSmoke(t *testing.T) {
	p := requireEngine(t)
	g := New(p)

	require.NoError(t, g.DeclareSort("Math"))
	require.NoError(t, g.DeclareConstructor(Variant{Name: "Num", Sort: "Math", ArgSorts: []string{SortInt}}))
	require.NoError(t, g.DeclareConstructor(Variant{Name: "Add", Sort: "Math", ArgSorts: []string{"Math", "Math"}}))

	r := g.Registry()
	a, b := r.MustVar("a", "Math"), r.MustVar("b", "Math")
	_, err := g.Register(Rewrite(r.MustCall("Add", a, b)).To(r.MustCall("Add", b, a)))
	require.NoError(t, err)

	_, err = g.Define("s", r.MustCall("Add", r.MustCall("Num", 1), r.MustCall("Num", 2)), 0)
	require.NoError(t, err)

	_, err = g.Run(2)
	require.NoError(t, err)

	got, err := g.Extract(r.MustCall("Add", r.MustCall("Num", 1), r.MustCall("Num", 2)), 1)
	require.NoError(t, err)
	require.Equal(t, "Math", got.Sort())
}
