// Package text is the "text" native module: string helpers for scripts.
package text

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/takoeight0821/ember/eval"
)

const ModuleName = "text"

// Module returns a fresh text module ready to register with a runtime.
func Module() (*eval.NativeModule, error) {
	return eval.NativeModuleOf(ModuleName, functions{})
}

type functions struct{}

// Length counts runes, not bytes.
func (functions) Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Width is the number of terminal cells s occupies.
func (functions) Width(s string) int {
	return runewidth.StringWidth(s)
}

func (functions) Truncate(s string, width int, tail string) string {
	return runewidth.Truncate(s, width, tail)
}

func (functions) Upper(s string) string { return strings.ToUpper(s) }

func (functions) Lower(s string) string { return strings.ToLower(s) }

func (functions) Trim(s string) string { return strings.TrimSpace(s) }

func (functions) Contains(s, substr string) bool { return strings.Contains(s, substr) }

func (functions) StartsWith(s, prefix string) bool { return strings.HasPrefix(s, prefix) }

func (functions) EndsWith(s, suffix string) bool { return strings.HasSuffix(s, suffix) }

// IndexOf returns the rune index of the first substr in s, or -1.
func (functions) IndexOf(s, substr string) int {
	i := strings.Index(s, substr)
	if i < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:i])
}

func (functions) Replace(s, old, replacement string) string {
	return strings.ReplaceAll(s, old, replacement)
}

// Times concatenates count copies of s.
func (functions) Times(s string, count int) (string, error) {
	if count < 0 {
		return "", fmt.Errorf("negative repeat count %d", count)
	}
	return strings.Repeat(s, count), nil
}

// Substring slices s by rune index, end exclusive.
func (functions) Substring(s string, start, end int) (string, error) {
	runes := []rune(s)
	if start < 0 || end > len(runes) || start > end {
		return "", fmt.Errorf("substring [%d, %d) out of range for length %d", start, end, len(runes))
	}
	return string(runes[start:end]), nil
}

// Field returns the index-th piece of s split by sep.
func (functions) Field(s, sep string, index int) (string, error) {
	parts := strings.Split(s, sep)
	if index < 0 || index >= len(parts) {
		return "", fmt.Errorf("field %d out of range [0, %d)", index, len(parts))
	}
	return parts[index], nil
}

func (functions) Count(s, sep string) int {
	return len(strings.Split(s, sep))
}

func (functions) Concat(parts ...string) string {
	return strings.Join(parts, "")
}

// Comma formats n with thousands separators.
func (functions) Comma(n int64) string {
	return humanize.Comma(n)
}

func (functions) Ordinal(n int) string {
	return humanize.Ordinal(n)
}

// Bytes renders a byte count in SI units ("82 kB").
func (functions) Bytes(n uint64) string {
	return humanize.Bytes(n)
}
