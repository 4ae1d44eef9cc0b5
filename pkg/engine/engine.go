// Package engine evaluates scene scripts. It wraps zygomys in a sandboxed
// environment and produces a scene graph from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/iconframe/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a problem in the script itself: a parse error, an unknown
// symbol or a builtin rejecting its arguments. Line is 0 when zygomys did
// not report one.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter for scene evaluation.
// Each call to Evaluate creates a fresh sandboxed environment for
// determinism. An Engine serves one stream of edits: starting a new
// evaluation supersedes any still in flight. Use one Engine per asset when
// evaluating concurrently.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine returns an Engine using EvalTimeout unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs a scene script and returns the graph it built.
//
// A script that fails to parse or run yields its EvalErrors and no graph.
// The error result is reserved for failures outside the script: a panic,
// a timeout, or a newer Evaluate call superseding this one.
func (e *Engine) Evaluate(source string) (*scene.Graph, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	done := make(chan evalResult, 1)
	go run(source, time.Now().Add(e.timeout), done)
	return waitWithTimeout(done, gen, e.timeout, &e.mu, &e.generation)
}

// run evaluates source and sends exactly one result, converting a panic
// inside zygomys or a builtin into an error.
func run(source string, deadline time.Time, done chan<- evalResult) {
	defer func() {
		if r := recover(); r != nil {
			done <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
		}
	}()
	g, evalErrs, err := evaluate(source, deadline)
	done <- evalResult{graph: g, errors: evalErrs, err: err}
}

// evaluate runs source in a new sandbox, so no definitions survive from an
// earlier script and user code cannot reach the filesystem. Builtins fail
// once deadline passes; a zero deadline disables the check.
func evaluate(source string, deadline time.Time) (*scene.Graph, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return scene.New(), nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()

	g := scene.New()
	registerBuiltins(env, newBuilder(g, deadline))

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	g.ResolveRoots()
	return g, nil, nil
}

// linePatterns find the line number in zygomys messages, tried in order:
// "Error on line N: msg" anywhere, then a leading "line N: msg".
var linePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`),
	regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`),
}

// parseZygomysError converts a zygomys error into one or more EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range linePatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
