package engine

import (
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEvaluateProducesEmptyGraph(t *testing.T) {
	// None of these call a scene builtin, so each yields an empty graph.
	sources := map[string]string{
		"empty":           "",
		"whitespace only": "   \n\t  \n  ",
		"comments only":   ";; nothing here\n; still nothing\n",
		"arithmetic":      "(+ 1 2)",
		"definitions":     "(def x 10)\n(def y 20)\n(+ x y)",
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			g, evalErrs, err := NewEngine().Evaluate(src)
			if err != nil {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			if len(evalErrs) > 0 {
				t.Fatalf("unexpected eval errors: %v", evalErrs)
			}
			if g == nil {
				t.Fatal("expected non-nil graph")
			}
			if g.NodeCount() != 0 || len(g.Roots) != 0 {
				t.Errorf("expected empty graph, got %d nodes and %d roots", g.NodeCount(), len(g.Roots))
			}
		})
	}
}

func TestEvaluateReportsScriptErrors(t *testing.T) {
	sources := map[string]string{
		"unmatched paren":  "(+ 1 2",
		"undefined symbol": "(+ 1 undefined-symbol)",
		"error on line 2":  "(mesh \"a\" (box 1 1 1))\n(mesh \"b\"",
		"builtin failure":  `(sphere :radius "big")`,
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			g, evalErrs, err := NewEngine().Evaluate(src)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if g != nil {
				t.Fatal("a failed script must not return a partial graph")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected at least one eval error")
			}
			if evalErrs[0].Message == "" {
				t.Error("eval error message should not be empty")
			}
			if evalErrs[0].Line < 0 {
				t.Errorf("line = %d, want >= 0", evalErrs[0].Line)
			}
		})
	}
}

func TestEvalErrorString(t *testing.T) {
	tests := []struct {
		err  EvalError
		want string
	}{
		{EvalError{Line: 5, Message: "something went wrong"}, "line 5: something went wrong"},
		{EvalError{Line: 0, Col: 3, Message: "no location"}, "no location"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestEvaluateFreshSandboxEachCall(t *testing.T) {
	eng := NewEngine()

	// A definition from one evaluation must not leak into the next.
	if _, errs, err := eng.Evaluate(`(def jarheight 3)`); err != nil || len(errs) > 0 {
		t.Fatalf("first evaluation failed: %v %v", err, errs)
	}
	g, errs, err := eng.Evaluate(`(mesh "m" (box jarheight 1 1))`)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(errs) == 0 || g != nil {
		t.Error("expected `jarheight` to be undefined in a new sandbox")
	}

	// The same mesh name may be reused across evaluations.
	for i := 0; i < 3; i++ {
		g, errs, err := eng.Evaluate(`(mesh "m" (box 1 1 1))`)
		if err != nil || len(errs) > 0 {
			t.Fatalf("iteration %d: %v %v", i, err, errs)
		}
		if g.NodeCount() != 1 {
			t.Errorf("iteration %d: expected 1 node, got %d", i, g.NodeCount())
		}
	}
}

func TestEvaluateSequentialCallsNotSuperseded(t *testing.T) {
	var mu sync.Mutex
	eng := NewEngine()
	var wg sync.WaitGroup
	failures := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Serialized callers each see their own result.
			mu.Lock()
			defer mu.Unlock()
			if _, _, err := eng.Evaluate(`(mesh "m" (sphere :radius 1))`); err != nil {
				failures <- err
			}
		}()
	}
	wg.Wait()
	close(failures)
	for err := range failures {
		t.Errorf("serialized evaluation failed: %v", err)
	}
}

func TestWaitWithTimeout(t *testing.T) {
	var mu sync.Mutex

	t.Run("times out", func(t *testing.T) {
		// A script that loops forever would pin a CPU after the test ends,
		// so drive waitWithTimeout with a channel that never sends.
		gen := uint64(1)
		ch := make(chan evalResult)
		start := time.Now()
		_, _, err := waitWithTimeout(ch, 1, 50*time.Millisecond, &mu, &gen)
		if err == nil || !strings.Contains(err.Error(), "timed out after 50ms") {
			t.Fatalf("expected timeout error, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("timeout took %s", elapsed)
		}
	})

	t.Run("stale generation", func(t *testing.T) {
		gen := uint64(2)
		ch := make(chan evalResult, 1)
		ch <- evalResult{}
		_, _, err := waitWithTimeout(ch, 1, time.Second, &mu, &gen)
		if err == nil || !strings.Contains(err.Error(), "superseded") {
			t.Fatalf("expected superseded error, got %v", err)
		}
	})

	t.Run("current generation", func(t *testing.T) {
		gen := uint64(3)
		ch := make(chan evalResult, 1)
		ch <- evalResult{errors: []EvalError{{Message: "boom"}}}
		_, errs, err := waitWithTimeout(ch, 3, time.Second, &mu, &gen)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(errs) != 1 || errs[0].Message != "boom" {
			t.Errorf("errors = %v, want [boom]", errs)
		}
	})
}

func TestWithTimeout(t *testing.T) {
	tests := []struct {
		opts []Option
		want time.Duration
	}{
		{nil, EvalTimeout},
		{[]Option{WithTimeout(time.Second)}, time.Second},
		{[]Option{WithTimeout(0)}, EvalTimeout},
		{[]Option{WithTimeout(-time.Second)}, EvalTimeout},
	}
	for _, tt := range tests {
		if got := NewEngine(tt.opts...).timeout; got != tt.want {
			t.Errorf("timeout = %s, want %s", got, tt.want)
		}
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short form", "line 3: bad thing", 3, "bad thing"},
		{"embedded", "parse failed: error on line 7: oops", 7, "oops"},
		{"no line info", "  some generic error  ", 0, "some generic error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %d", len(errs))
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if errs[0].Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestBuiltinsFailPastDeadline(t *testing.T) {
	g, evalErrs, err := evaluate(`(mesh "late" (box 1 1 1))`, time.Now().Add(-time.Second))
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if g != nil {
		t.Error("expected no graph once the deadline has passed")
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "deadline exceeded") {
		t.Errorf("expected a deadline error, got %v", evalErrs)
	}

	g, evalErrs, err = evaluate(`(mesh "on-time" (box 1 1 1))`, time.Now().Add(time.Minute))
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("evaluate before deadline: %v %v", err, evalErrs)
	}
	if g.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", g.NodeCount())
	}
}

func TestTimedOutLoopStopsAtNextBuiltin(t *testing.T) {
	before := runtime.NumGoroutine()
	e := NewEngine(WithTimeout(50 * time.Millisecond))
	_, _, err := e.Evaluate(`(for [(def i 0) true (set i (+ i 1))] (vec3 1 2 3))`)
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout, got %v", err)
	}

	stopped := false
	for end := time.Now().Add(2 * time.Second); time.Now().Before(end); time.Sleep(10 * time.Millisecond) {
		if runtime.NumGoroutine() <= before {
			stopped = true
			break
		}
	}
	if !stopped {
		t.Errorf("evaluation goroutine still running: %d goroutines, started with %d", runtime.NumGoroutine(), before)
	}

	g, evalErrs, err := e.Evaluate(`(mesh "after" (box 1 1 1))`)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("evaluate after timeout: %v %v", err, evalErrs)
	}
	if g.Lookup("after") == nil {
		t.Error("expected the follow-up graph")
	}
}
