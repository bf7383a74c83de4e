package expr

import (
	"reflect"
	"strings"
	"unicode"
)

// BinaryOp enumerates host binary operators.
type BinaryOp int

const (
	OpEqual BinaryOp = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpAndAlso
	OpOrElse
	OpExclusiveOr
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpCoalesce
)

var binaryOpSymbols = [...]string{
	OpEqual:              "==",
	OpNotEqual:           "!=",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
	OpAndAlso:            "&&",
	OpOrElse:             "||",
	OpExclusiveOr:        "^",
	OpAdd:                "+",
	OpSubtract:           "-",
	OpMultiply:           "*",
	OpDivide:             "/",
	OpModulo:             "%",
	OpCoalesce:           "??",
}

func (o BinaryOp) String() string {
	if o < 0 || int(o) >= len(binaryOpSymbols) {
		return "?"
	}
	return binaryOpSymbols[o]
}

// IsComparison reports whether o yields a bool from two values.
func (o BinaryOp) IsComparison() bool {
	return o <= OpExclusiveOr
}

// UnaryOp enumerates host unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNegate
)

func (o UnaryOp) String() string {
	if o == OpNot {
		return "!"
	}
	return "-"
}

// Param creates a lambda parameter of type t.
func Param(name string, t reflect.Type) *Parameter {
	return &Parameter{Name: name, typ: t}
}

// Const captures v. A nil v has type any.
func Const(v any) *Constant {
	if v == nil {
		return &Constant{typ: anyType}
	}
	return &Constant{Value: v, typ: reflect.TypeOf(v)}
}

// TypedConst captures v with an explicit static type, for example a nil
// pointer of a known type.
func TypedConst(v any, t reflect.Type) *Constant {
	return &Constant{Value: v, typ: t}
}

// Field accesses the exported field name of target. Pointer targets are
// dereferenced. An unknown field yields an unresolved Member that
// translation reports as unsupported.
func Field(target Node, name string) *Member {
	m := &Member{Target: target, Name: name}
	t := target.Type()
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(name); ok {
			m.Field = f
		}
	}
	return m
}

func newBinary(op BinaryOp, left, right Node) *Binary {
	typ := boolType
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulo:
		typ = left.Type()
	case OpCoalesce:
		typ = right.Type()
	}
	return &Binary{Op: op, Left: left, Right: right, typ: typ}
}

func Equal(left, right Node) *Binary              { return newBinary(OpEqual, left, right) }
func NotEqual(left, right Node) *Binary           { return newBinary(OpNotEqual, left, right) }
func GreaterThan(left, right Node) *Binary        { return newBinary(OpGreaterThan, left, right) }
func GreaterThanOrEqual(left, right Node) *Binary { return newBinary(OpGreaterThanOrEqual, left, right) }
func LessThan(left, right Node) *Binary           { return newBinary(OpLessThan, left, right) }
func LessThanOrEqual(left, right Node) *Binary    { return newBinary(OpLessThanOrEqual, left, right) }
func ExclusiveOr(left, right Node) *Binary        { return newBinary(OpExclusiveOr, left, right) }
func Add(left, right Node) *Binary                { return newBinary(OpAdd, left, right) }
func Subtract(left, right Node) *Binary           { return newBinary(OpSubtract, left, right) }
func Multiply(left, right Node) *Binary           { return newBinary(OpMultiply, left, right) }
func Divide(left, right Node) *Binary             { return newBinary(OpDivide, left, right) }
func Modulo(left, right Node) *Binary             { return newBinary(OpModulo, left, right) }
func Coalesce(left, right Node) *Binary           { return newBinary(OpCoalesce, left, right) }

// MakeBinary builds a binary node from an operator value.
func MakeBinary(op BinaryOp, left, right Node) *Binary { return newBinary(op, left, right) }

// And conjoins one or more operands left to right.
func And(first Node, rest ...Node) Node {
	out := first
	for _, n := range rest {
		out = newBinary(OpAndAlso, out, n)
	}
	return out
}

// Or disjoins one or more operands left to right.
func Or(first Node, rest ...Node) Node {
	out := first
	for _, n := range rest {
		out = newBinary(OpOrElse, out, n)
	}
	return out
}

// Not negates a boolean operand.
func Not(operand Node) *Unary {
	return &Unary{Op: OpNot, Operand: operand, typ: boolType}
}

// Negate is arithmetic negation.
func Negate(operand Node) *Unary {
	return &Unary{Op: OpNegate, Operand: operand, typ: operand.Type()}
}

// Condition is test ? ifTrue : ifFalse.
func Condition(test, ifTrue, ifFalse Node) *Conditional {
	return &Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}
}

// Assignment pairs a member name with its value for New.
func Assignment(name string, value Node) MemberAssignment {
	return MemberAssignment{Name: name, Value: value}
}

// NewStruct constructs a value of t, which must be a struct or pointer to
// struct type, from member assignments.
func NewStruct(t reflect.Type, members ...MemberAssignment) *New {
	return &New{Members: members, typ: t}
}

// Lambda creates a lambda over params.
func Lambda(body Node, params ...*Parameter) *Lambda {
	return &Lambda{Params: params, Body: body}
}

// Func creates a one-parameter lambda of parameter type t. The parameter
// is named after the lower-cased initial of the type name.
func Func(t reflect.Type, body func(p *Parameter) Node) *Lambda {
	p := Param(paramName(t), t)
	return Lambda(body(p), p)
}

func paramName(t reflect.Type) string {
	name := typeName(t)
	for _, r := range name {
		if unicode.IsLetter(r) {
			return strings.ToLower(string(r))
		}
		break
	}
	return "x"
}

// MakeCall invokes method with args. typ is the static result type.
func MakeCall(method MemberInfo, typ reflect.Type, args ...Node) *Call {
	return &Call{Method: method, Args: args, typ: typ}
}
