package objectbuilder

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

var (
	scannerType = reflect.TypeFor[sql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
)

// timeLayouts are tried in order when a timestamp arrives as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Convert converts a driver value into a value of type t. A nil value
// yields the zero value of t; pointer types receive a fresh pointer.
func Convert(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}

	if t.Kind() == reflect.Pointer {
		elem, err := Convert(value, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	if rv.Kind() == reflect.Array && t.Kind() == reflect.Array && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}

	// uuid.UUID and most driver-aware types land here.
	if reflect.PointerTo(t).Implements(scannerType) {
		ptr := reflect.New(t)
		if err := ptr.Interface().(sql.Scanner).Scan(value); err != nil {
			return reflect.Value{}, &Error{Type: t, Message: err.Error()}
		}
		return ptr.Elem(), nil
	}

	if t == timeType {
		return convertTime(rv, t)
	}

	switch t.Kind() {
	case reflect.String:
		switch {
		case rv.Kind() == reflect.String:
			return rv.Convert(t), nil
		case isBytes(rv):
			return reflect.ValueOf(string(rv.Bytes())).Convert(t), nil
		}

	case reflect.Bool:
		switch {
		case rv.Kind() == reflect.Bool:
			return rv.Convert(t), nil
		case isInt(rv.Kind()):
			return reflect.ValueOf(rv.Int() != 0).Convert(t), nil
		case rv.Kind() == reflect.String || isBytes(rv):
			b, err := strconv.ParseBool(text(rv))
			if err != nil {
				return reflect.Value{}, mismatch(value, t)
			}
			return reflect.ValueOf(b).Convert(t), nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt64(rv)
		if !ok {
			return reflect.Value{}, mismatch(value, t)
		}
		out := reflect.New(t).Elem()
		if out.OverflowInt(n) {
			return reflect.Value{}, &Error{Type: t, Message: fmt.Sprintf("value %d overflows", n)}
		}
		out.SetInt(n)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := toInt64(rv)
		if !ok || n < 0 {
			return reflect.Value{}, mismatch(value, t)
		}
		out := reflect.New(t).Elem()
		if out.OverflowUint(uint64(n)) {
			return reflect.Value{}, &Error{Type: t, Message: fmt.Sprintf("value %d overflows", n)}
		}
		out.SetUint(uint64(n))
		return out, nil

	case reflect.Float32, reflect.Float64:
		f, ok := toFloat64(rv)
		if !ok {
			return reflect.Value{}, mismatch(value, t)
		}
		out := reflect.New(t).Elem()
		out.SetFloat(f)
		return out, nil

	case reflect.Slice:
		return convertSlice(rv, t)
	}

	return reflect.Value{}, mismatch(value, t)
}

func convertTime(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	switch {
	case rv.Kind() == reflect.String || isBytes(rv):
		s := text(rv)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return reflect.ValueOf(ts), nil
			}
		}
		return reflect.Value{}, &Error{Type: t, Message: fmt.Sprintf("unrecognized timestamp %q", s)}
	case isInt(rv.Kind()):
		return reflect.ValueOf(time.Unix(rv.Int(), 0).UTC()), nil
	}
	return reflect.Value{}, mismatch(rv.Interface(), t)
}

// convertSlice converts element-wise. Text sources are array literals
// such as {1,2,3}; byte slices become text when t is []byte.
func convertSlice(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	if t.Elem().Kind() == reflect.Uint8 && rv.Kind() == reflect.String {
		return reflect.ValueOf([]byte(rv.String())).Convert(t), nil
	}

	var items []any
	switch {
	case rv.Kind() == reflect.String || isBytes(rv):
		parsed, err := ParseArray(text(rv))
		if err != nil {
			return reflect.Value{}, &Error{Type: t, Message: err.Error()}
		}
		for _, p := range parsed {
			if p == nil {
				items = append(items, nil)
				continue
			}
			items = append(items, *p)
		}
	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			items = append(items, rv.Index(i).Interface())
		}
	default:
		return reflect.Value{}, mismatch(rv.Interface(), t)
	}

	out := reflect.MakeSlice(t, len(items), len(items))
	for i, item := range items {
		v, err := Convert(item, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(v)
	}
	return out, nil
}

func toInt64(rv reflect.Value) (int64, bool) {
	switch {
	case isInt(rv.Kind()):
		return rv.Int(), true
	case isUint(rv.Kind()):
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	case rv.Kind() == reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	case rv.Kind() == reflect.String || isBytes(rv):
		n, err := strconv.ParseInt(text(rv), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toFloat64(rv reflect.Value) (float64, bool) {
	switch {
	case rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64:
		return rv.Float(), true
	case isInt(rv.Kind()):
		return float64(rv.Int()), true
	case isUint(rv.Kind()):
		return float64(rv.Uint()), true
	case rv.Kind() == reflect.String || isBytes(rv):
		f, err := strconv.ParseFloat(text(rv), 64)
		return f, err == nil
	}
	return 0, false
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isBytes(rv reflect.Value) bool {
	return rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8
}

func text(rv reflect.Value) string {
	if isBytes(rv) {
		return string(rv.Bytes())
	}
	return rv.String()
}

func mismatch(value any, t reflect.Type) *Error {
	return &Error{Type: t, Message: fmt.Sprintf("cannot convert %T to %v", value, t)}
}
