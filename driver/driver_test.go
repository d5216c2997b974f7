package driver_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/driver"
	"github.com/takoeight0821/ember/eval"
	"github.com/takoeight0821/ember/nameresolve"
	"github.com/takoeight0821/ember/parser"
	"github.com/takoeight0821/ember/utils"
)

func TestRunFromTestData(t *testing.T) {
	t.Parallel()
	s, err := os.ReadFile("../testdata/testcase.yaml")
	if err != nil {
		panic(err)
	}

	for _, testcase := range utils.ReadTestData(s) {
		t.Run(testcase.Label, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			r := driver.NewRuntime(driver.WithOutput(&out))
			v, err := r.Run(context.Background(), testcase.Input)

			if want, ok := testcase.Expected["error"]; ok {
				diags := utils.Diagnostics(err)
				if len(diags) == 0 {
					t.Fatalf("Run returned %v, want diagnostic %q", err, want)
				}
				if got := diags[0].Error(); got != want {
					t.Errorf("diagnostic = %q, want %q", got, want)
				}
				return
			}
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if want, ok := testcase.Expected["result"]; ok {
				if got := eval.Stringify(v); got != want {
					t.Errorf("result = %q, want %q", got, want)
				}
			}
			if want, ok := testcase.Expected["output"]; ok {
				if diff := cmp.Diff(want, out.String()); diff != "" {
					t.Errorf("output mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestPhaseWrapping(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		input string
		phase utils.Phase
	}{
		{"var a = @;", utils.Lexing},
		{"var = 1;", utils.Parsing},
		{"return x;", utils.Resolving},
		{"1 / 0;", utils.Interpreting},
	}

	for _, tc := range testcases {
		_, err := driver.NewRuntime().Run(context.Background(), tc.input)
		if err == nil {
			t.Errorf("Run(%q) succeeded, want a %s error", tc.input, tc.phase)
			continue
		}
		if !strings.HasPrefix(err.Error(), string(tc.phase)+": ") {
			t.Errorf("Run(%q) = %q, want prefix %q", tc.input, err, tc.phase)
		}
		diags := utils.Diagnostics(err)
		if len(diags) == 0 || diags[0].Phase != tc.phase {
			t.Errorf("Run(%q) diagnostics = %v, want phase %s", tc.input, diags, tc.phase)
		}
	}
}

func TestMultipleDiagnostics(t *testing.T) {
	t.Parallel()

	_, err := driver.NewRuntime().Run(context.Background(), "print a;\nprint b;\nreturn c;")
	var got []string
	for _, d := range utils.Diagnostics(err) {
		got = append(got, d.Message)
	}
	want := []string{"undefined variable 'a'", "undefined variable 'b'", "undefined variable 'c'"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestStagedAPI(t *testing.T) {
	t.Parallel()

	r := driver.NewRuntime()
	stmts, err := r.Compile("fun sq(x) { return x * x; } sq(9);")
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	bindings, err := r.Resolve(stmts)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	v, err := r.Interpret(context.Background(), stmts, bindings)
	if err != nil {
		t.Fatalf("Interpret returned error: %v", err)
	}
	if diff := cmp.Diff(eval.Value(eval.Number(81)), v); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	var perr *parser.Error
	if _, err := r.Compile("fun ("); !errors.As(err, &perr) {
		t.Errorf("Compile returned %v, want a *parser.Error", err)
	}
	var rerr *nameresolve.Error
	if _, err := r.Resolve(stmts[1:]); !errors.As(err, &rerr) {
		t.Errorf("Resolve returned %v, want a *nameresolve.Error", err)
	}
}

func TestTopLevelReturnOption(t *testing.T) {
	t.Parallel()

	_, err := driver.NewRuntime(driver.WithTopLevelReturn(false)).Run(context.Background(), "return 1;")
	var rerr *nameresolve.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("Run returned %v, want a *nameresolve.Error", err)
	}
	if want := "can't return from top-level code"; rerr.Message != want {
		t.Errorf("message = %q, want %q", rerr.Message, want)
	}
}

func TestNativeModules(t *testing.T) {
	t.Parallel()

	x, err := eval.NewNativeModule("X", map[string]any{
		"twice": func(s string) string { return s + s },
	})
	if err != nil {
		t.Fatalf("NewNativeModule returned error: %v", err)
	}

	r := driver.NewRuntime()
	if err := r.RegisterNativeModule(x); err != nil {
		t.Fatalf("RegisterNativeModule returned error: %v", err)
	}
	if err := r.RegisterNativeModule(x); err == nil {
		t.Errorf("RegisterNativeModule accepted a duplicate module")
	}

	v, err := r.Run(context.Background(), `module X; twice("ab");`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := eval.Stringify(v); got != "abab" {
		t.Errorf("got %q, want abab", got)
	}

	_, err = r.Run(context.Background(), "native fun X.foo(); foo();")
	var rerr *eval.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("Run returned %v, want a RuntimeError", err)
	}
	if want := "Function 'foo' is not supported by module 'X'"; rerr.Message != want {
		t.Errorf("message = %q, want %q", rerr.Message, want)
	}

	_, err = r.Run(context.Background(), "module Missing;")
	if diags := utils.Diagnostics(err); len(diags) != 1 || diags[0].Message != "module 'Missing' is not registered" {
		t.Errorf("Run returned %v, want an unregistered module error", err)
	}
}

func TestExpressionCustomizer(t *testing.T) {
	t.Parallel()

	text, err := eval.NewNativeModule("text", map[string]any{
		"length": func(s string) int { return len(s) },
	})
	if err != nil {
		t.Fatalf("NewNativeModule returned error: %v", err)
	}

	r := driver.NewRuntime()
	if err := r.RegisterNativeModule(text); err != nil {
		t.Fatalf("RegisterNativeModule returned error: %v", err)
	}
	r.RegisterCustomizer(driver.ExpressionCustomizer{})

	sc, err := r.Evaluate(context.Background(), `length("four") == 4;`)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if diff := cmp.Diff(map[string]bool{driver.ValidationTest: true}, sc.Results()); diff != "" {
		t.Errorf("Results() mismatch (-want +got):\n%s", diff)
	}
	if got := eval.Stringify(sc.Result); got != "true" {
		t.Errorf("Result = %s, want true", got)
	}

	if _, err := r.Run(context.Background(), "var a = 1; a;"); err == nil {
		t.Errorf("Run accepted two statements")
	}
}

func TestCustomizerOrder(t *testing.T) {
	t.Parallel()

	r := driver.NewRuntime()
	var trace []string
	var b ast.Builder
	r.RegisterCustomizer(driver.CustomizerFunc{On: utils.Parsing, Func: func(sc *driver.ScriptContext) error {
		trace = append(trace, "parsing:first")
		return nil
	}})
	r.RegisterCustomizer(driver.CustomizerFunc{On: utils.Resolving, Func: func(sc *driver.ScriptContext) error {
		trace = append(trace, "resolving")
		sc.Statements = append(sc.Statements, b.Return(b.Literal("rewritten")))
		return nil
	}})
	r.RegisterCustomizer(driver.CustomizerFunc{On: utils.Parsing, Func: func(sc *driver.ScriptContext) error {
		trace = append(trace, "parsing:second")
		return nil
	}})

	v, err := r.Run(context.Background(), "1;")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := eval.Stringify(v); got != "rewritten" {
		t.Errorf("got %q, want rewritten", got)
	}
	if diff := cmp.Diff([]string{"parsing:first", "parsing:second", "resolving"}, trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}

	failing := driver.NewRuntime()
	failing.RegisterCustomizer(driver.CustomizerFunc{On: utils.Lexing, Func: func(*driver.ScriptContext) error {
		return errors.New("rejected")
	}})
	if _, err := failing.Run(context.Background(), "1;"); err == nil || err.Error() != "lexing: rejected" {
		t.Errorf("Run returned %v, want lexing: rejected", err)
	}
}

func TestAddPass(t *testing.T) {
	t.Parallel()

	r := driver.NewRuntime()
	var counted int
	err := r.AddPass(utils.Parsing, driver.PassFunc{Name: "count", Func: func(sc *driver.ScriptContext) error {
		counted = len(sc.Statements)
		return nil
	}})
	if err != nil {
		t.Fatalf("AddPass returned error: %v", err)
	}
	if err := r.AddPass("optimizing", driver.PassFunc{Name: "x"}); err == nil {
		t.Errorf("AddPass accepted an unknown phase")
	}

	if _, err := r.Run(context.Background(), "1; 2; 3;"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if counted != 3 {
		t.Errorf("counted %d statements, want 3", counted)
	}
}

func TestHostGlobals(t *testing.T) {
	t.Parallel()

	r := driver.NewRuntime()
	r.SetGlobal("limit", eval.Number(10))
	v, err := r.Run(context.Background(), "limit * 2;")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := eval.Stringify(v); got != "20" {
		t.Errorf("got %s, want 20", got)
	}
}

func TestSession(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := driver.NewRuntime(driver.WithOutput(&out)).NewSession()
	inputs := []string{
		"var n = 1;",
		"fun bump(by) { n = n + by; return n; }",
		"bump(2);",
		"print missing;",
		"var n = 10;",
		"bump(1);",
		"final var k = 1;",
		"k = 2;",
	}

	var got []string
	for _, input := range inputs {
		v, err := s.Run(context.Background(), input)
		if err != nil {
			got = append(got, "error")
			continue
		}
		got = append(got, eval.Stringify(v))
	}
	want := []string{"null", "null", "3", "error", "null", "11", "null", "error"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("session results mismatch (-want +got):\n%s", diff)
	}
}

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if _, err := driver.NewRuntime(driver.WithLogger(logger)).Run(context.Background(), "1;"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for _, phase := range []utils.Phase{utils.Lexing, utils.Parsing, utils.Resolving, utils.Interpreting} {
		if !strings.Contains(buf.String(), "phase="+string(phase)) {
			t.Errorf("log has no entry for phase %s:\n%s", phase, buf.String())
		}
	}
	if !strings.Contains(buf.String(), "script=") {
		t.Errorf("log entries carry no script id:\n%s", buf.String())
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := driver.NewRuntime().Run(ctx, "while (true) {}")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
