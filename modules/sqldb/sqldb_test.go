package sqldb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takoeight0821/ember/driver"
	"github.com/takoeight0821/ember/eval"
	"github.com/takoeight0821/ember/modules/sqldb"
)

func open(t *testing.T) *driver.Runtime {
	t.Helper()
	db, err := sqldb.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close returned error: %v", err)
		}
	})

	m, err := db.Module()
	if err != nil {
		t.Fatalf("Module returned error: %v", err)
	}
	r := driver.NewRuntime()
	if err := r.RegisterNativeModule(m); err != nil {
		t.Fatalf("RegisterNativeModule returned error: %v", err)
	}
	return r
}

func TestModuleFunctions(t *testing.T) {
	t.Parallel()

	db, err := sqldb.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	m, err := db.Module()
	if err != nil {
		t.Fatalf("Module returned error: %v", err)
	}
	want := []string{"exec", "field", "query", "queryValue", "rowCount"}
	if diff := cmp.Diff(want, m.Functions()); diff != "" {
		t.Errorf("Functions() mismatch (-want +got):\n%s", diff)
	}
	if db.Driver() != "sqlite" {
		t.Errorf("Driver() = %q, want sqlite", db.Driver())
	}
}

func TestScript(t *testing.T) {
	t.Parallel()

	r := open(t)
	v, err := r.Run(context.Background(), `
module sql;
exec("create table users (id integer primary key, name text, age integer)");
var added = exec("insert into users (name, age) values (?, ?), (?, ?)", "ann", 31, "bob", 27);
var rows = query("select name, age from users order by age");
var first = field(rows, 0, "name");
var total = queryValue("select sum(age) from users");
return first + " " + rowCount(rows) + " " + added + " " + total;`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := eval.Stringify(v); got != "bob 2 2 58" {
		t.Errorf("got %q, want %q", got, "bob 2 2 58")
	}
}

func TestQueryValueEmpty(t *testing.T) {
	t.Parallel()

	r := open(t)
	v, err := r.Run(context.Background(), `
module sql;
exec("create table t (x integer)");
queryValue("select x from t");`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if v != nil {
		t.Errorf("got %v, want null", v)
	}
}

func TestSQLErrorIsRuntimeError(t *testing.T) {
	t.Parallel()

	r := open(t)
	_, err := r.Run(context.Background(), `module sql; exec("not sql at all");`)
	var rerr *eval.RuntimeError
	if !errors.As(err, &rerr) {
		t.Errorf("Run returned %v, want a RuntimeError", err)
	}

	_, err = r.Run(context.Background(), `module sql; field(query("select 1 as one"), 3, "one");`)
	if !errors.As(err, &rerr) {
		t.Errorf("Run returned %v, want a RuntimeError", err)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	t.Parallel()

	if _, err := sqldb.Open("oracle", "x"); err == nil {
		t.Errorf("Open accepted an unsupported database type")
	}
}
