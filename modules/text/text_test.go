package text_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takoeight0821/ember/driver"
	"github.com/takoeight0821/ember/eval"
	"github.com/takoeight0821/ember/modules/text"
)

func newRuntime(t *testing.T) *driver.Runtime {
	t.Helper()
	m, err := text.Module()
	if err != nil {
		t.Fatalf("Module returned error: %v", err)
	}
	r := driver.NewRuntime()
	if err := r.RegisterNativeModule(m); err != nil {
		t.Fatalf("RegisterNativeModule returned error: %v", err)
	}
	return r
}

func TestFunctions(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		expr string
		want string
	}{
		{`length("héllo")`, "5"},
		{`width("日本")`, "4"},
		{`truncate("hello world", 8, "...")`, "hello..."},
		{`upper("abc")`, "ABC"},
		{`lower("ABC")`, "abc"},
		{`trim("  x  ")`, "x"},
		{`contains("haystack", "st")`, "true"},
		{`startsWith("haystack", "hay")`, "true"},
		{`endsWith("haystack", "hay")`, "false"},
		{`indexOf("añb", "b")`, "2"},
		{`indexOf("abc", "z")`, "-1"},
		{`replace("a-b-c", "-", "+")`, "a+b+c"},
		{`times("ab", 3)`, "ababab"},
		{`substring("héllo", 1, 3)`, "él"},
		{`field("a,b,c", ",", 1)`, "b"},
		{`count("a,b,c", ",")`, "3"},
		{`concat("a", "b", "c")`, "abc"},
		{`concat()`, ""},
		{`comma(1234567)`, "1,234,567"},
		{`ordinal(3)`, "3rd"},
		{`bytes(1500)`, "1.5 kB"},
	}

	r := newRuntime(t)
	for _, tc := range testcases {
		v, err := r.Run(context.Background(), "module text; return "+tc.expr+";")
		if err != nil {
			t.Errorf("%s: Run returned error: %v", tc.expr, err)
			continue
		}
		if diff := cmp.Diff(tc.want, eval.Stringify(v)); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", tc.expr, diff)
		}
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	r := newRuntime(t)
	for _, expr := range []string{
		`times("a", -1)`,
		`substring("abc", 2, 1)`,
		`field("a,b", ",", 5)`,
		`upper(1)`,
	} {
		_, err := r.Run(context.Background(), "module text; "+expr+";")
		var rerr *eval.RuntimeError
		var nerr *eval.NativeExecutionError
		if !errors.As(err, &rerr) && !errors.As(err, &nerr) {
			t.Errorf("%s: Run returned %v, want a runtime error", expr, err)
		}
	}
}

func TestModuleName(t *testing.T) {
	t.Parallel()

	m, err := text.Module()
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "text" {
		t.Errorf("Name() = %q, want text", m.Name())
	}
	if len(m.Functions()) == 0 {
		t.Errorf("module has no functions")
	}
}
