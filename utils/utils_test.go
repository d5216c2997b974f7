package utils_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takoeight0821/ember/token"
	"github.com/takoeight0821/ember/utils"
)

type diagnosed struct {
	d utils.Diagnostic
}

func (e diagnosed) Error() string                { return e.d.Error() }
func (e diagnosed) Diagnostic() utils.Diagnostic { return e.d }

func TestDiagnosticAt(t *testing.T) {
	t.Parallel()

	d := utils.DiagnosticAt(utils.Parsing, token.Token{Kind: token.EOF, Line: 3, Column: 1}, nil, "expected ';'")
	if got, want := d.Error(), "[parsing] 3:1: at end: expected ';'"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	d = utils.Diagnostic{Phase: utils.Interpreting, Line: -1, Message: "boom"}
	if got, want := d.Error(), "[interpreting] boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()

	a := diagnosed{utils.Diagnostic{Phase: utils.Lexing, Line: 1, Column: 2, Message: "a"}}
	b := diagnosed{utils.Diagnostic{Phase: utils.Lexing, Line: 4, Column: 5, Message: "b"}}
	err := fmt.Errorf("lexing: %w", errors.Join(a, errors.New("plain"), fmt.Errorf("wrapped: %w", b)))

	var got []string
	for _, d := range utils.Diagnostics(err) {
		got = append(got, d.Error())
	}
	want := []string{"[lexing] 1:2: a", "[lexing] 4:5: b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diagnostics mismatch (-want +got):\n%s", diff)
	}

	if diags := utils.Diagnostics(nil); diags != nil {
		t.Errorf("Diagnostics(nil) = %v", diags)
	}
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	a, b, c := errors.New("a"), errors.New("b"), errors.New("c")
	err := fmt.Errorf("parsing: %w", errors.Join(a, errors.Join(b, c)))

	var got []string
	for _, err := range utils.Flatten(err) {
		got = append(got, err.Error())
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
	}

	single := fmt.Errorf("outer: %w", a)
	if got := utils.Flatten(single); len(got) != 1 || got[0] != single {
		t.Errorf("Flatten(%v) = %v", single, got)
	}
}

func TestReadTestData(t *testing.T) {
	t.Parallel()

	data := utils.ReadTestData([]byte(`
- label: on
  enable: true
  input: "1;"
  expected:
    result: "1"
- label: off
  enable: false
  input: "2;"
`))
	want := []utils.TestData{{Label: "on", Enable: true, Input: "1;", Expected: map[string]string{"result": "1"}}}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("ReadTestData mismatch (-want +got):\n%s", diff)
	}
}

func TestFindSourceFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, name := range []string{"a.em", "notes.txt", filepath.Join("sub", "b.em")} {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	got, err := utils.FindSourceFiles(root)
	if err != nil {
		t.Fatalf("FindSourceFiles returned error: %v", err)
	}
	want := []string{filepath.Join(root, "a.em"), filepath.Join(root, "sub", "b.em")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindSourceFiles mismatch (-want +got):\n%s", diff)
	}
}
