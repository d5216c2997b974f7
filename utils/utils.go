package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
	"gopkg.in/yaml.v3"
)

// Phase names a step of the script pipeline.
type Phase string

const (
	Lexing       Phase = "lexing"
	Parsing      Phase = "parsing"
	Resolving    Phase = "resolving"
	Interpreting Phase = "interpreting"
)

// Diagnostic is the position-carrying report every pipeline error exposes to hosts.
type Diagnostic struct {
	Phase   Phase
	Line    int
	Column  int
	Node    ast.Node // nil for lexical errors
	Message string
}

func (d Diagnostic) Error() string {
	if d.Line < 0 {
		return fmt.Sprintf("[%s] %s", d.Phase, d.Message)
	}
	return fmt.Sprintf("[%s] %d:%d: %s", d.Phase, d.Line, d.Column, d.Message)
}

// DiagnosticAt builds a Diagnostic positioned at the given token.
func DiagnosticAt(phase Phase, where token.Token, node ast.Node, msg string) Diagnostic {
	if where.Kind == token.EOF {
		msg = "at end: " + msg
	}
	return Diagnostic{Phase: phase, Line: where.Line, Column: where.Column, Node: node, Message: msg}
}

// Diagnosed is implemented by errors that carry a Diagnostic.
type Diagnosed interface {
	error
	Diagnostic() Diagnostic
}

// Diagnostics collects every Diagnostic reachable from err, walking wrapped and joined errors.
func Diagnostics(err error) []Diagnostic {
	var diags []Diagnostic
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if d, ok := err.(Diagnosed); ok {
			diags = append(diags, d.Diagnostic())
			return
		}
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return diags
}

// Flatten returns the leaves of a tree of joined errors.
// A single wrapper around a joined error (such as a phase prefix) is looked through.
func Flatten(err error) []error {
	switch e := err.(type) {
	case nil:
		return nil
	case interface{ Unwrap() []error }:
		var errs []error
		for _, inner := range e.Unwrap() {
			errs = append(errs, Flatten(inner)...)
		}
		return errs
	}
	if inner := errors.Unwrap(err); inner != nil {
		if _, ok := inner.(interface{ Unwrap() []error }); ok {
			return Flatten(inner)
		}
	}
	return []error{err}
}

type TestData struct {
	Label    string
	Enable   bool
	Input    string
	Expected map[string]string
}

func ReadTestData(s []byte) []TestData {
	var data []TestData
	if err := yaml.Unmarshal(s, &data); err != nil {
		panic(err)
	}

	// Remove disabled test cases.
	i := 0
	for _, d := range data {
		if d.Enable {
			data[i] = d
			i++
		}
	}
	data = data[:i]

	return data
}

// FindSourceFiles lists script files (*.em) under root.
func FindSourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".em") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
