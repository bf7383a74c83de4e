package objectbuilder

import (
	"fmt"
	"reflect"
	"strings"
)

// ParseArray parses a PostgreSQL array literal such as {1,"a b",NULL}
// into its elements. NULL elements are nil.
func ParseArray(s string) ([]*string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, fmt.Errorf("malformed array literal %q", s)
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return []*string{}, nil
	}

	var (
		out     []*string
		cur     strings.Builder
		quoted  bool
		inQuote bool
	)
	flush := func() {
		item := cur.String()
		cur.Reset()
		if !quoted && strings.EqualFold(item, "NULL") {
			out = append(out, nil)
		} else {
			out = append(out, &item)
		}
		quoted = false
	}

	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case inQuote && ch == '\\' && i+1 < len(body):
			i++
			cur.WriteByte(body[i])
		case ch == '"':
			inQuote = !inQuote
			quoted = true
		case ch == ',' && !inQuote:
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote in array literal %q", s)
	}
	flush()
	return out, nil
}

// FormatArray renders a slice as a PostgreSQL array literal. Text
// elements are always quoted.
func FormatArray(v any) (string, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", fmt.Errorf("format array: %T is not a slice", v)
	}

	parts := make([]string, rv.Len())
	for i := range parts {
		item := rv.Index(i)
		for item.Kind() == reflect.Pointer || item.Kind() == reflect.Interface {
			if item.IsNil() {
				break
			}
			item = item.Elem()
		}
		switch {
		case (item.Kind() == reflect.Pointer || item.Kind() == reflect.Interface) && item.IsNil():
			parts[i] = "NULL"
		case item.Kind() == reflect.String:
			parts[i] = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(item.String()) + `"`
		default:
			parts[i] = fmt.Sprint(item.Interface())
		}
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}
