// Package sqlfn evaluates the SQL helper functions on the host.
//
// Queries reference these helpers through the expr.Func* descriptors and
// the translator turns them into SQL. The functions here give the same
// results in memory, for filtering materialized values or checking a
// translation against a fixture.
package sqlfn

import (
	"reflect"
	"strings"
)

// Pattern classifies a LIKE pattern by its wildcards.
type Pattern int

const (
	// PatternEqual has no wildcard and matches by equality.
	PatternEqual Pattern = iota
	// PatternPrefix ends with % and matches by prefix.
	PatternPrefix
	// PatternSuffix starts with % and matches by suffix.
	PatternSuffix
	// PatternContains is wrapped in % and matches by substring.
	PatternContains
)

func (p Pattern) String() string {
	switch p {
	case PatternPrefix:
		return "prefix"
	case PatternSuffix:
		return "suffix"
	case PatternContains:
		return "contains"
	default:
		return "equal"
	}
}

// Classify returns the kind of pattern and the literal text between its
// wildcards. Only leading and trailing % are wildcards.
func Classify(pattern string) (Pattern, string) {
	text := pattern
	leading := strings.HasPrefix(text, "%")
	if leading {
		text = text[1:]
	}
	trailing := strings.HasSuffix(text, "%")
	if trailing {
		text = text[:len(text)-1]
	}

	switch {
	case leading && trailing:
		return PatternContains, text
	case trailing:
		return PatternPrefix, text
	case leading:
		return PatternSuffix, text
	}
	return PatternEqual, text
}

// Like reports whether source matches pattern under SQL LIKE semantics
// for patterns whose only wildcards are a leading and/or trailing %.
func Like(source, pattern string) bool {
	kind, text := Classify(pattern)
	switch kind {
	case PatternContains:
		return strings.Contains(source, text)
	case PatternPrefix:
		return strings.HasPrefix(source, text)
	case PatternSuffix:
		return strings.HasSuffix(source, text)
	}
	return source == text
}

// IsNull reports whether v is nil or a nil pointer, map, slice or
// interface.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// IsNotNull is the negation of IsNull.
func IsNotNull(v any) bool {
	return !IsNull(v)
}

// In reports whether v is one of values.
func In[T comparable](v T, values ...T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
