package expr

import (
	"fmt"
	"reflect"
)

// Node is a host expression.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	Type() reflect.Type
	exprNode()
}

var (
	boolType = reflect.TypeFor[bool]()
	anyType  = reflect.TypeFor[any]()
)

// MemberInfo identifies a method or field by declaring type, name and arity.
type MemberInfo struct {
	Declaring string
	Name      string
	Arity     int
}

// Matches reports whether m and other name the same member.
func (m MemberInfo) Matches(other MemberInfo) bool {
	return m.Declaring == other.Declaring && m.Name == other.Name && m.Arity == other.Arity
}

func (m MemberInfo) String() string {
	return fmt.Sprintf("%s.%s/%d", m.Declaring, m.Name, m.Arity)
}

// Parameter is a lambda parameter.
type Parameter struct {
	Name string
	typ  reflect.Type
}

func (p *Parameter) Type() reflect.Type { return p.typ }
func (*Parameter) exprNode()            {}

// Constant is a host value captured by the query.
type Constant struct {
	Value any
	typ   reflect.Type
}

func (c *Constant) Type() reflect.Type { return c.typ }
func (*Constant) exprNode()            {}

// Member is a field access on Target. Field is the zero StructField when
// Target has no field of that name.
type Member struct {
	Target Node
	Name   string
	Field  reflect.StructField
}

func (m *Member) Type() reflect.Type { return m.Field.Type }
func (*Member) exprNode()            {}

// Resolved reports whether the field exists on the target type.
func (m *Member) Resolved() bool { return m.Field.Type != nil }

// Info describes the accessed field.
func (m *Member) Info() MemberInfo {
	return MemberInfo{Declaring: typeName(m.Target.Type()), Name: m.Name}
}

// Binary applies Op to two operands.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
	typ   reflect.Type
}

func (b *Binary) Type() reflect.Type { return b.typ }
func (*Binary) exprNode()            {}

// Unary applies Op to one operand.
type Unary struct {
	Op      UnaryOp
	Operand Node
	typ     reflect.Type
}

func (u *Unary) Type() reflect.Type { return u.typ }
func (*Unary) exprNode()            {}

// Conditional is Test ? IfTrue : IfFalse.
type Conditional struct {
	Test    Node
	IfTrue  Node
	IfFalse Node
}

func (c *Conditional) Type() reflect.Type { return c.IfTrue.Type() }
func (*Conditional) exprNode()            {}

// MemberAssignment is one member of a New node.
type MemberAssignment struct {
	Name  string
	Value Node
}

// New constructs a value of a struct type from member assignments.
type New struct {
	Members []MemberAssignment
	typ     reflect.Type
}

func (n *New) Type() reflect.Type { return n.typ }
func (*New) exprNode()            {}

// Lambda is a function literal over Params.
type Lambda struct {
	Params []*Parameter
	Body   Node
}

func (l *Lambda) Type() reflect.Type { return l.Body.Type() }
func (*Lambda) exprNode()            {}

// Call invokes a query operator or SQL helper.
type Call struct {
	Method MemberInfo
	Args   []Node
	typ    reflect.Type
}

func (c *Call) Type() reflect.Type { return c.typ }
func (*Call) exprNode()            {}

// ItemType returns the element type of a sequence node, or the node type
// itself for scalars.
func ItemType(n Node) reflect.Type {
	t := n.Type()
	if t != nil && t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 {
		return t.Elem()
	}
	return t
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
