package parser_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/lexer"
	"github.com/takoeight0821/ember/parser"
	"github.com/takoeight0821/ember/token"
	"github.com/takoeight0821/ember/utils"
)

func parse(t *testing.T, input string) ([]ast.Stmt, error) {
	t.Helper()
	tokens, err := lexer.Lex(input)
	if err != nil {
		t.Fatalf("Lex(%q) returned error: %v", input, err)
	}
	return parser.NewParser(tokens).Parse()
}

func dump(stmts []ast.Stmt) string {
	lines := make([]string, len(stmts))
	for i, stmt := range stmts {
		lines[i] = stmt.String()
	}
	return strings.Join(lines, "\n")
}

func TestGolden(t *testing.T) {
	t.Parallel()

	testfiles, err := utils.FindSourceFiles("../testdata")
	if err != nil {
		t.Errorf("failed to find test files: %v", err)
		return
	}

	for _, testfile := range testfiles {
		source, err := os.ReadFile(testfile)
		if err != nil {
			t.Errorf("failed to read %s: %v", testfile, err)
			return
		}

		stmts, err := parse(t, string(source))
		if err != nil {
			t.Errorf("%s returned error: %v", testfile, err)
			return
		}

		g := goldie.New(t)
		g.Assert(t, testfile, []byte(dump(stmts)+"\n"))
	}
}

func TestExpressions(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"a = b ?: c ? d : e", "(= a (?: (var b) (? (var c) (var d) (var e))))"},
		{"a or b and c", "(or (var a) (and (var b) (var c)))"},
		{"a || b && c", "(|| (var a) (&& (var b) (var c)))"},
		{"1 | 2 ^ 3 & 4 == 5", "(| 1 (^ 2 (& 3 (== 4 5))))"},
		{"1 << 2 + 3", "(<< 1 (+ 2 3))"},
		{"1 < 2 << 3", "(< 1 (<< 2 3))"},
		{"-a.b(1, 2).c", "(- (get (call (get (var a) b) 1 2) c))"},
		{"!~x", "(! (~ (var x)))"},
		{"this.x = super.m", "(set this x (super m))"},
		{"a.b = c = 1", "(set (var a) b (= c 1))"},
		{"fun (a, b) { return a; }", "(fun (a b) (return (var a)))"},
		{"(1)", "(group 1)"},
		{`null ?: "s"`, `(?: null "s")`},
		{"f()()", "(call (call (var f)))"},
		{"[1, 2, 3]", "(array 1 2 3)"},
		{"[]", "(array)"},
		{"a[0] = b[1][2]", "(set-index (var a) 0 (index (index (var b) 1) 2))"},
		{"1..n + 1", "(.. 1 (+ (var n) 1))"},
		{"[x * 2 for x in xs if x > 1 else 0]", "(comprehension (* (var x) 2) x (var xs) (> (var x) 1) 0)"},
		{"[s for s in 1..3]", "(comprehension (var s) s (.. 1 3))"},
		{"i++", "(post++ (var i))"},
		{"--a.b", "(-- (get (var a) b))"},
		{"x += y *= 2", "(+= (var x) (*= (var y) 2))"},
		{"a[i] >>>= 1", "(>>>= (index (var a) (var i)) 1)"},
	}

	for _, testcase := range testcases {
		tokens, err := lexer.Lex(testcase.input)
		if err != nil {
			t.Fatalf("Lex(%q) returned error: %v", testcase.input, err)
		}
		expr, err := parser.NewParser(tokens).ParseExpr()
		if err != nil {
			t.Errorf("ParseExpr(%q) returned error: %v", testcase.input, err)
			continue
		}
		if diff := cmp.Diff(testcase.expected, expr.String()); diff != "" {
			t.Errorf("ParseExpr(%q) mismatch (-want +got):\n%s", testcase.input, diff)
		}
	}
}

func TestStatements(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		input    string
		expected string
	}{
		{"final var x = 1; var y;", "(final var x 1)\n(var y)"},
		{
			"if (a) { b; } else if (c) { d; } else { e; }",
			"(if (var a) (block (expr (var b))) (if (var c) (block (expr (var d))) (block (expr (var e)))))",
		},
		{"while (x) { break; continue; }", "(while (var x) (block (break) (continue)))"},
		{"do { x = x - 1; } while (x > 0);", "(do (block (expr (= x (- (var x) 1)))) (> (var x) 0))"},
		{
			"for (var i = 0; i < 3; i = i + 1) { print i; }",
			"(for (var i 0) (< (var i) 3) (= i (+ (var i) 1)) (block (print (var i))))",
		},
		{"repeat (3) { }", "(repeat 3 (block))"},
		{"module math; native fun std.math.max(a, b);", "(module math)\n(native std.math.max (a b))"},
		{
			"class B extends A { private final x = 1; y; constructor(v) { this.y = v; } fun get() { return this.x; } }",
			"(class B < A (final private field x 1) (field y) (fun constructor (v) (expr (set this y (var v)))) (fun get () (return (get this x))))",
		},
		{`test("adds") { var a = 1; return a + 1 == 2; }`, `(test "adds" (var a 1) (return (== (+ (var a) 1) 2)))`},
		{"return;", "(return)"},
		{"fun (x) { return x; };", "(expr (fun (x) (return (var x))))"},
		{"for (var x in xs) { print x; }", "(foreach x (var xs) (block (print (var x))))"},
		{
			`switch (v) { case 1: print 1; case "a": default: print 0; }`,
			`(switch (var v) (case 1 (print 1)) (case "a") (default (print 0)))`,
		},
		{"switch (n) { case -1: break; }", "(switch (var n) (case -1 (break)))"},
		{"fun K:area(s) { return s; }", "(extend K (fun area (s) (return (var s))))"},
	}

	for _, testcase := range testcases {
		stmts, err := parse(t, testcase.input)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", testcase.input, err)
			continue
		}
		if diff := cmp.Diff(testcase.expected, dump(stmts)); diff != "" {
			t.Errorf("Parse(%q) mismatch (-want +got):\n%s", testcase.input, diff)
		}
	}
}

func TestTestStatementSplitsReturn(t *testing.T) {
	t.Parallel()

	stmts, err := parse(t, `test("t") { print 1; return true; }`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	test, ok := stmts[0].(*ast.Test)
	if !ok {
		t.Fatalf("expected *ast.Test, got %T", stmts[0])
	}
	if len(test.Body) != 1 || test.Return == nil {
		t.Errorf("expected one body statement and a return, got %v", test)
	}
	if test.Name.Literal != "t" {
		t.Errorf("expected test name t, got %v", test.Name.Literal)
	}
}

func TestErrorRecovery(t *testing.T) {
	t.Parallel()

	stmts, err := parse(t, "var = 1;\nprint (1;\nvar ok = 2;\n")
	if err == nil {
		t.Fatal("expected errors")
	}

	var parseErr *parser.Error
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *parser.Error, got %T", err)
	}

	diags := utils.Diagnostics(err)
	got := make([]string, len(diags))
	for i, d := range diags {
		got[i] = d.Error()
	}
	expected := []string{
		"[parsing] 1:5: expected IDENT variable name, found `=`",
		"[parsing] 2:9: expected RIGHTPAREN after expression, found `;`",
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff("(var ok 2)", dump(stmts)); diff != "" {
		t.Errorf("recovered statements mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorRecoveryInsideBlock(t *testing.T) {
	t.Parallel()

	stmts, err := parse(t, "fun f() { var x = 1 + } fun g() { return 2; }")
	diags := utils.Diagnostics(err)
	got := make([]string, len(diags))
	for i, d := range diags {
		got[i] = d.Error()
	}
	if diff := cmp.Diff([]string{"[parsing] 1:23: expected expression, found `}`"}, got); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("(fun f ())\n(fun g () (return 2))", dump(stmts)); diff != "" {
		t.Errorf("recovered statements mismatch (-want +got):\n%s", diff)
	}
}

func TestStrayBraceAtTopLevel(t *testing.T) {
	t.Parallel()

	stmts, err := parse(t, "} var ok = 1;")
	if err == nil || !strings.Contains(err.Error(), "expected expression, found `}`") {
		t.Errorf("expected an error at the stray brace, got %v", err)
	}
	if diff := cmp.Diff("(var ok 1)", dump(stmts)); diff != "" {
		t.Errorf("recovered statements mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidTargets(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		input string
		want  string
	}{
		{"1 += 2;", "1:3: invalid assignment target"},
		{"f()++;", "1:4: invalid ++ target"},
		{"--1;", "1:1: invalid -- target"},
		{"switch (x) { case y: }", "1:19: case value must be a literal"},
		{"switch (x) { default: default: }", "1:23: switch already has a default case"},
	}

	for _, tc := range testcases {
		_, err := parse(t, tc.input)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("Parse(%q) returned %v, want %q", tc.input, err, tc.want)
		}
	}
}

func TestErrorAtEnd(t *testing.T) {
	t.Parallel()

	_, err := parse(t, "print 1")
	expected := "[parsing] 1:8: expected SEMICOLON after value, found end of input"
	if err == nil || err.Error() != expected {
		t.Errorf("expected %q, got %v", expected, err)
	}
}

func TestInvalidAssignmentTarget(t *testing.T) {
	t.Parallel()

	stmts, err := parse(t, "1 = 2;")
	if err == nil || !strings.Contains(err.Error(), "1:3: invalid assignment target") {
		t.Errorf("expected invalid assignment target, got %v", err)
	}
	if len(stmts) != 1 {
		t.Errorf("expected the statement to be kept, got %v", stmts)
	}
}

func TestTooManyArguments(t *testing.T) {
	t.Parallel()

	args := func(n int) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = "1"
		}
		return "f(" + strings.Join(parts, ", ") + ");"
	}

	if _, err := parse(t, args(parser.MaxArgs)); err != nil {
		t.Errorf("%d arguments returned error: %v", parser.MaxArgs, err)
	}
	if _, err := parse(t, args(parser.MaxArgs+1)); err == nil || !strings.Contains(err.Error(), "can't have more than 255 arguments") {
		t.Errorf("expected too many arguments error, got %v", err)
	}
}

func TestAddStatementParser(t *testing.T) {
	t.Parallel()

	tokens, err := lexer.Lex("unless (x) { print 1; }")
	if err != nil {
		t.Fatalf("Lex returned error: %v", err)
	}

	p := parser.NewParser(tokens)
	p.AddStatementParser(parser.StatementParser{
		Name: "unless",
		Match: func(p *parser.Parser) bool {
			return p.Check(token.IDENT) && p.Peek().Lexeme == "unless" && p.CheckNth(1, token.LEFTPAREN)
		},
		Parse: func(p *parser.Parser) ast.Stmt {
			kw := p.Advance()
			p.Consume(token.LEFTPAREN, "after unless")
			cond := p.Expression()
			p.Consume(token.RIGHTPAREN, "after condition")
			not := &ast.Unary{Op: token.Synthetic(token.BANG, "!", nil), Right: cond}
			return &ast.If{Keyword: kw, Condition: not, Then: p.Block()}
		},
	})

	stmts, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if diff := cmp.Diff("(if (! (var x)) (block (print 1)))", dump(stmts)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
