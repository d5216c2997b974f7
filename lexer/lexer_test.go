package lexer_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/takoeight0821/ember/lexer"
	"github.com/takoeight0821/ember/token"
	"github.com/takoeight0821/ember/utils"
)

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

		tokens, err := lexer.Lex(string(source))
		if err != nil {
			t.Errorf("%s returned error: %v", testfile, err)
			return
		}

		var builder strings.Builder
		for _, token := range tokens {
			builder.WriteString(token.String())
			builder.WriteString("\n")
		}

		g := goldie.New(t)
		g.Assert(t, testfile, []byte(builder.String()))
	}
}

func kinds(tokens []token.Token) []token.Kind {
	ks := make([]token.Kind, len(tokens))
	for i, t := range tokens {
		ks[i] = t.Kind
	}
	return ks
}

func TestOperators(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		input    string
		expected []token.Kind
	}{
		{"a && b || c", []token.Kind{token.IDENT, token.AND, token.IDENT, token.OR, token.IDENT, token.EOF}},
		{"a and b or c", []token.Kind{token.IDENT, token.AND, token.IDENT, token.OR, token.IDENT, token.EOF}},
		{"1 << 2 >> 3 >>> 4", []token.Kind{token.NUMBER, token.SHIFTLEFT, token.NUMBER, token.SHIFTRIGHT, token.NUMBER, token.LOGICALSHIFTRIGHT, token.NUMBER, token.EOF}},
		{"a ? b : c ?: d", []token.Kind{token.IDENT, token.QUESTION, token.IDENT, token.COLON, token.IDENT, token.ELVIS, token.IDENT, token.EOF}},
		{"!a != ~b == -c", []token.Kind{token.BANG, token.IDENT, token.BANGEQUAL, token.TILDE, token.IDENT, token.EQUALEQUAL, token.MINUS, token.IDENT, token.EOF}},
		{"x <= y >= z % 2", []token.Kind{token.IDENT, token.LESSEQUAL, token.IDENT, token.GREATEREQUAL, token.IDENT, token.PERCENT, token.NUMBER, token.EOF}},
		{"a & b | c ^ d", []token.Kind{token.IDENT, token.AMPERSAND, token.IDENT, token.PIPE, token.IDENT, token.CARET, token.IDENT, token.EOF}},
		{"final var this super", []token.Kind{token.FINAL, token.VAR, token.THIS, token.SUPER, token.EOF}},
		{"a /* skip\n me */ / b // trailing", []token.Kind{token.IDENT, token.SLASH, token.IDENT, token.EOF}},
		{"a[1..n]", []token.Kind{token.IDENT, token.LEFTBRACKET, token.NUMBER, token.DOTDOT, token.IDENT, token.RIGHTBRACKET, token.EOF}},
		{"i++ --j", []token.Kind{token.IDENT, token.PLUSPLUS, token.MINUSMINUS, token.IDENT, token.EOF}},
		{"a += b -= c *= d /= e %= f", []token.Kind{
			token.IDENT, token.PLUSEQUAL, token.IDENT, token.MINUSEQUAL, token.IDENT, token.STAREQUAL,
			token.IDENT, token.SLASHEQUAL, token.IDENT, token.PERCENTEQUAL, token.IDENT, token.EOF,
		}},
		{"a &= b |= c ^= d <<= e >>= f >>>= g", []token.Kind{
			token.IDENT, token.AMPERSANDEQUAL, token.IDENT, token.PIPEEQUAL, token.IDENT, token.CARETEQUAL, token.IDENT,
			token.SHIFTLEFTEQUAL, token.IDENT, token.SHIFTRIGHTEQUAL, token.IDENT, token.LOGICALSHIFTRIGHTEQUAL, token.IDENT, token.EOF,
		}},
		{"switch case default in", []token.Kind{token.SWITCH, token.CASE, token.DEFAULT, token.IN, token.EOF}},
	}

	for _, testcase := range testcases {
		tokens, err := lexer.Lex(testcase.input)
		if err != nil {
			t.Errorf("Lex(%q) returned error: %v", testcase.input, err)
			continue
		}
		if diff := cmp.Diff(testcase.expected, kinds(tokens)); diff != "" {
			t.Errorf("Lex(%q) mismatch (-want +got):\n%s", testcase.input, diff)
		}
	}
}

func TestLiterals(t *testing.T) {
	t.Parallel()

	tokens, err := lexer.Lex(`12.5 "a\tb\"c" 7.`)
	if err != nil {
		t.Fatalf("Lex returned error: %v", err)
	}

	expected := []any{12.5, "a\tb\"c", 7.0, nil, nil}
	got := make([]any, len(tokens))
	for i, tok := range tokens {
		got[i] = tok.Literal
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("literals mismatch (-want +got):\n%s", diff)
	}
}

func TestPositions(t *testing.T) {
	t.Parallel()

	tokens, err := lexer.Lex("var\n  héllo = 1;")
	if err != nil {
		t.Fatalf("Lex returned error: %v", err)
	}

	type pos struct{ Line, Column int }
	got := []pos{}
	for _, tok := range tokens {
		got = append(got, pos{tok.Line, tok.Column})
	}
	expected := []pos{{1, 1}, {2, 3}, {2, 9}, {2, 11}, {2, 12}, {2, 13}}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorsAccumulate(t *testing.T) {
	t.Parallel()

	tokens, err := lexer.Lex("var a = @;\nvar b = #;\nprint \"open")
	if err == nil {
		t.Fatal("expected errors")
	}

	var lexErr *lexer.Error
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *lexer.Error, got %T", err)
	}

	diags := utils.Diagnostics(err)
	got := make([]string, len(diags))
	for i, d := range diags {
		got[i] = d.Error()
	}
	expected := []string{
		"[lexing] 1:9: unexpected character: '@'",
		"[lexing] 2:9: unexpected character: '#'",
		"[lexing] 3:7: unterminated string",
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}

	// scanning continues past every error
	if last := tokens[len(tokens)-1]; last.Kind != token.EOF {
		t.Errorf("expected trailing EOF, got %v", last)
	}
	if n := len(kinds(tokens)); n != 10 {
		t.Errorf("expected 10 tokens, got %d", n)
	}
}

func TestUnterminatedComment(t *testing.T) {
	t.Parallel()

	_, err := lexer.Lex("1 /* never closed")
	if err == nil || !strings.Contains(err.Error(), "unterminated block comment") {
		t.Errorf("expected unterminated block comment error, got %v", err)
	}
}
