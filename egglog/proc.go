package egglog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProcEngine drives the egglog binary as the external engine. The engine
// keeps no state between invocations, so the adapter retains the committed
// program (which only ever grows) and replays it for every call, reading the
// output produced past the already-committed prefix. Read-only commands
// (check, extract) and failed commands are never committed, which makes each
// registration atomic with respect to the engine's state.
type ProcEngine struct {
	binary  string
	timeout time.Duration
	log     *zap.Logger

	program []string
	baseOut int // stdout lines owed to the committed program
	baseErr int // stderr lines owed to the committed program
	handles map[string]string
}

// ProcOption configures a ProcEngine.
type ProcOption func(*ProcEngine)

// WithBinary overrides the engine binary path (default "egglog").
func WithBinary(path string) ProcOption {
	return func(p *ProcEngine) { p.binary = path }
}

// WithTimeout bounds each engine invocation (default 30s).
func WithTimeout(d time.Duration) ProcOption {
	return func(p *ProcEngine) { p.timeout = d }
}

// WithLogger installs a logger for per-command debug output. The default is
// a no-op logger.
func WithLogger(l *zap.Logger) ProcOption {
	return func(p *ProcEngine) { p.log = l }
}

// NewProcEngine creates an adapter around the egglog binary.
func NewProcEngine(opts ...ProcOption) *ProcEngine {
	p := &ProcEngine{
		binary:  "egglog",
		timeout: 30 * time.Second,
		log:     zap.NewNop(),
		handles: make(map[string]string),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Available reports whether the engine binary can be found.
func (p *ProcEngine) Available() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// Program returns the committed program text, one command per line.
func (p *ProcEngine) Program() string {
	return strings.Join(p.program, "\n")
}

// SourceOf returns the command text registered under a rewrite/rule handle.
func (p *ProcEngine) SourceOf(handle string) (string, bool) {
	src, ok := p.handles[handle]
	return src, ok
}

// run replays the given program through a fresh engine process and returns
// its stdout and stderr lines.
func (p *ProcEngine) run(prog []string) ([]string, []string, error) {
	f, err := os.CreateTemp("", "egglog-*.egg")
	if err != nil {
		return nil, nil, err
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(strings.Join(prog, "\n") + "\n"); err != nil {
		f.Close()
		return nil, nil, err
	}
	if err := f.Close(); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, p.binary, f.Name())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	outLines := splitLines(stdout.String())
	errLines := splitLines(stderr.String())
	if runErr != nil {
		// A process killed by the timeout also reports an exit error;
		// surface the context error so callers see the timeout, not a
		// rejected command.
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = fmt.Errorf("%w: %v", ctxErr, runErr)
		}
		return outLines, errLines, fmt.Errorf("%w: %s", runErr, lastLine(errLines))
	}
	return outLines, errLines, nil
}

// submit appends the command to the committed program, replays, and returns
// the new stdout lines. When commit is false (reads) or the replay fails,
// the program is left untouched.
func (p *ProcEngine) submit(cmd string, commit bool) ([]string, []string, error) {
	prog := make([]string, 0, len(p.program)+1)
	prog = append(prog, p.program...)
	prog = append(prog, cmd)
	p.log.Debug("egglog command",
		zap.String("command", cmd),
		zap.Bool("commit", commit),
		zap.Int("program_len", len(p.program)))
	out, errOut, err := p.run(prog)
	if err != nil {
		p.log.Debug("egglog command failed",
			zap.String("command", cmd),
			zap.Error(err))
		return nil, nil, &EngineError{Context: cmd, Err: err}
	}
	outDelta := tail(out, p.baseOut)
	errDelta := tail(errOut, p.baseErr)
	if commit {
		p.program = prog
		p.baseOut = len(out)
		p.baseErr = len(errOut)
	}
	return outDelta, errDelta, nil
}

// DeclareSort implements Engine.
func (p *ProcEngine) DeclareSort(name string) error {
	_, _, err := p.submit(sortCommand(name), true)
	return err
}

// DeclareConstructor implements Engine.
func (p *ProcEngine) DeclareConstructor(v Variant) error {
	_, _, err := p.submit(variantCommand(v), true)
	return err
}

// DeclareFunction implements Engine.
func (p *ProcEngine) DeclareFunction(fd FunctionDecl) error {
	_, _, err := p.submit(functionCommand(fd), true)
	return err
}

// Define implements Engine.
func (p *ProcEngine) Define(name string, expr Expr, cost int) error {
	_, _, err := p.submit(defineCommand(name, expr, cost), true)
	return err
}

// AddRewrite implements Engine. A bidirectional rewrite commits both
// directions under a single handle; if the converse fails the original is
// rolled back so no half-registered rewrite remains.
func (p *ProcEngine) AddRewrite(rw *RewriteDecl) (string, error) {
	cmds := rewriteCommands(rw)
	committed := len(p.program)
	baseOut, baseErr := p.baseOut, p.baseErr
	for _, cmd := range cmds {
		if _, _, err := p.submit(cmd, true); err != nil {
			p.program = p.program[:committed]
			p.baseOut, p.baseErr = baseOut, baseErr
			return "", err
		}
	}
	return p.mintHandle(strings.Join(cmds, "\n")), nil
}

// AddRule implements Engine.
func (p *ProcEngine) AddRule(rl *RuleDecl) (string, error) {
	cmd := ruleCommand(rl)
	if _, _, err := p.submit(cmd, true); err != nil {
		return "", err
	}
	return p.mintHandle(cmd), nil
}

func (p *ProcEngine) mintHandle(src string) string {
	h := uuid.NewString()
	p.handles[h] = src
	return h
}

// RunRules implements Engine. The run is committed so saturation state
// survives into later replays. Timings are parsed from the engine's run
// report; when the report format is absent the wall-clock delta is
// attributed to match time so observability degrades instead of failing.
func (p *ProcEngine) RunRules(limit int) (RunReport, error) {
	start := time.Now()
	out, errOut, err := p.submit(runCommand(limit), true)
	if err != nil {
		return RunReport{}, err
	}
	rep, ok := parseRunReport(append(out, errOut...))
	if !ok {
		rep.MatchTime = time.Since(start)
	}
	return rep, nil
}

// CheckFact implements Engine. The check is a read: it is never committed.
// An engine process that ran and rejected the check maps to
// ErrFactNotEqual; failing to run the engine at all stays an EngineError.
func (p *ProcEngine) CheckFact(f Fact) error {
	return p.check(checkCommand(f, false), "")
}

// CheckFactFails implements Engine: the inverse check, passing only when the
// fact does not hold.
func (p *ProcEngine) CheckFactFails(f Fact) error {
	return p.check(checkCommand(f, true), "fact unexpectedly holds: ")
}

func (p *ProcEngine) check(cmd, prefix string) error {
	_, _, err := p.submit(cmd, false)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return engineErrorf(ErrFactNotEqual, "%s%s", prefix, cmd)
	}
	return err
}

// Extract implements Engine. Extraction is a read and is not committed; the
// returned lines are the engine's textual terms, lowest-cost first.
func (p *ProcEngine) Extract(e Expr, variants int) ([]string, error) {
	out, errOut, err := p.submit(extractCommand(e, variants), false)
	if err != nil {
		return nil, err
	}
	terms := extractedTerms(out)
	if len(terms) == 0 {
		terms = extractedTerms(errOut)
	}
	if len(terms) == 0 {
		return nil, engineErrorf(nil, "extract produced no term for %s", e)
	}
	return terms, nil
}

// ParseAndRunProgram implements Engine. The raw text may declare and mutate,
// so it is committed wholesale; its ordered stdout lines are returned.
func (p *ProcEngine) ParseAndRunProgram(text string) ([]string, error) {
	out, _, err := p.submit(text, true)
	return out, err
}

var reportTimeRe = regexp.MustCompile(`(?i)(search|match|apply|rebuild)[^0-9]*?([0-9]+(?:\.[0-9]+)?)\s*(ns|µs|us|ms|s)`)

// parseRunReport scans output lines for the engine's search/apply/rebuild
// timings. Multiple report lines (one per ruleset) accumulate.
func parseRunReport(lines []string) (RunReport, bool) {
	var rep RunReport
	found := false
	for _, line := range lines {
		for _, m := range reportTimeRe.FindAllStringSubmatch(line, -1) {
			d, err := parseDuration(m[2], m[3])
			if err != nil {
				continue
			}
			found = true
			switch strings.ToLower(m[1]) {
			case "search", "match":
				rep.MatchTime += d
			case "apply":
				rep.ApplyTime += d
			case "rebuild":
				rep.RebuildTime += d
			}
		}
	}
	return rep, found
}

func parseDuration(value, unit string) (time.Duration, error) {
	if unit == "µs" {
		unit = "us"
	}
	return time.ParseDuration(value + unit)
}

// extractedTerms keeps the lines that parse as standalone terms, skipping
// log prefixes the engine may interleave.
func extractedTerms(lines []string) []string {
	var terms []string
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if i := strings.IndexByte(t, '('); i > 0 {
			t = t[i:]
		}
		if t == "" {
			continue
		}
		nodes, err := parseSExprs(t)
		if err != nil || len(nodes) != 1 {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func tail(lines []string, base int) []string {
	if base >= len(lines) {
		return nil
	}
	return lines[base:]
}

func lastLine(lines []string) string {
	if len(lines) == 0 {
		return "no output"
	}
	return lines[len(lines)-1]
}
