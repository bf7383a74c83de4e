package sqlexpr

import "reflect"

var (
	boolType   = reflect.TypeFor[bool]()
	stringType = reflect.TypeFor[string]()
)

// Projection selects bindings from a source.
//
//	SELECT [DISTINCT] <Bindings> FROM <Source> [GROUP BY <GroupBy>]
type Projection struct {
	Item       reflect.Type
	Source     Expression
	Bindings   []Expression
	IsDistinct bool
	GroupBy    []Expression
}

func (*Projection) Kind() Kind               { return KindProjection }
func (p *Projection) ItemType() reflect.Type { return p.Item }

// Filter restricts a source by a predicate.
type Filter struct {
	Item      reflect.Type
	Source    Expression
	Predicate Expression
}

func (*Filter) Kind() Kind               { return KindFilter }
func (f *Filter) ItemType() reflect.Type { return f.Item }

// Join is an inner join of two sources.
type Join struct {
	Item  reflect.Type
	Left  Expression
	Right Expression
	On    Expression
}

func (*Join) Kind() Kind               { return KindJoin }
func (j *Join) ItemType() reflect.Type { return j.Item }

// NamedSource gives a source an alias. Source is either a QuerySource or a
// nested query rendered as a subquery.
type NamedSource struct {
	Item      reflect.Type
	Source    Expression
	Parameter *Parameter
}

func (*NamedSource) Kind() Kind               { return KindNamedSource }
func (n *NamedSource) ItemType() reflect.Type { return n.Item }

// QuerySource is a physical table.
type QuerySource struct {
	Item   reflect.Type
	Schema string
	Table  string
}

func (*QuerySource) Kind() Kind               { return KindQuerySource }
func (q *QuerySource) ItemType() reflect.Type { return q.Item }

// Binary applies an operator to two operands.
type Binary struct {
	Item     reflect.Type
	Operator BinaryOperator
	Left     Expression
	Right    Expression
}

func (*Binary) Kind() Kind { return KindBinary }

func (b *Binary) ItemType() reflect.Type {
	if b.Item != nil {
		return b.Item
	}
	return boolType
}

// Unary applies an operator to one operand.
type Unary struct {
	Item     reflect.Type
	Operator UnaryOperator
	Operand  Expression
}

func (*Unary) Kind() Kind               { return KindUnary }
func (u *Unary) ItemType() reflect.Type { return u.Item }

// Conditional is CASE WHEN <When> THEN <Then> ELSE <Else> END.
type Conditional struct {
	Item reflect.Type
	When Expression
	Then Expression
	Else Expression
}

func (*Conditional) Kind() Kind               { return KindConditional }
func (c *Conditional) ItemType() reflect.Type { return c.Item }

// SimpleBinding references a column, optionally qualified by an alias.
type SimpleBinding struct {
	Item   reflect.Type
	Source *Parameter
	Name   string
}

func (*SimpleBinding) Kind() Kind               { return KindSimpleBinding }
func (s *SimpleBinding) ItemType() reflect.Type { return s.Item }

// NamedBinding is an expression projected under an output name.
type NamedBinding struct {
	Name       string
	Expression Expression
}

func (*NamedBinding) Kind() Kind { return KindNamedBinding }

func (n *NamedBinding) ItemType() reflect.Type {
	if n.Expression == nil {
		return nil
	}
	return n.Expression.ItemType()
}

// Constant is an inline literal. A nil Value renders as NULL.
type Constant struct {
	Item  reflect.Type
	Value any
}

func (*Constant) Kind() Kind               { return KindConstant }
func (c *Constant) ItemType() reflect.Type { return c.Item }

// IsNull reports whether the constant is the SQL NULL literal.
func (c *Constant) IsNull() bool { return c.Value == nil }

// Parameter is a source alias (a, b, c, ...).
type Parameter struct {
	Item reflect.Type
	Name string
}

func (*Parameter) Kind() Kind               { return KindParameter }
func (p *Parameter) ItemType() reflect.Type { return p.Item }

// QueryParameter is a bound runtime value rendered as a named placeholder.
type QueryParameter struct {
	Item  reflect.Type
	Name  string
	Value any
}

func (*QueryParameter) Kind() Kind               { return KindQueryParameter }
func (q *QueryParameter) ItemType() reflect.Type { return q.Item }

// MethodCall is a SQL function call NAME(args).
type MethodCall struct {
	Item      reflect.Type
	Name      string
	Source    Expression
	Arguments []Expression
}

func (*MethodCall) Kind() Kind               { return KindMethodCall }
func (m *MethodCall) ItemType() reflect.Type { return m.Item }

// New is a projection constructor: every member becomes a named binding.
type New struct {
	Item     reflect.Type
	Bindings []*NamedBinding
}

func (*New) Kind() Kind               { return KindNew }
func (n *New) ItemType() reflect.Type { return n.Item }

// List is a parenthesized value list, typically the right side of IN.
type List struct {
	Item  reflect.Type
	Items []Expression
}

func (*List) Kind() Kind               { return KindList }
func (l *List) ItemType() reflect.Type { return l.Item }

// Special is raw SQL text emitted verbatim, such as "*".
type Special struct {
	Item reflect.Type
	Text string
}

func (*Special) Kind() Kind               { return KindSpecial }
func (s *Special) ItemType() reflect.Type { return s.Item }

// Assign is a SET clause entry of an UPDATE.
type Assign struct {
	Left  *SimpleBinding
	Right Expression
}

func (*Assign) Kind() Kind { return KindAssign }

func (a *Assign) ItemType() reflect.Type {
	if a.Left == nil {
		return nil
	}
	return a.Left.ItemType()
}

// JSONAttribute walks a JSON column along Path. The last step yields text.
type JSONAttribute struct {
	Item   reflect.Type
	Source Expression
	Path   []string
}

func (*JSONAttribute) Kind() Kind { return KindJSONAttribute }

func (j *JSONAttribute) ItemType() reflect.Type {
	if j.Item != nil {
		return j.Item
	}
	return stringType
}

// GroupBy is a two-query grouping: Keys selects the distinct key set and
// Values builds the per-key row query on demand.
type GroupBy struct {
	Item    reflect.Type
	KeyType reflect.Type
	Keys    *Projection
	Values  ValuesProducer
}

func (*GroupBy) Kind() Kind               { return KindGroupBy }
func (g *GroupBy) ItemType() reflect.Type { return g.Item }

// OrderBy sorts a source by its bindings, in order.
type OrderBy struct {
	Item     reflect.Type
	Source   Expression
	Bindings []*OrderByBinding
}

func (*OrderBy) Kind() Kind               { return KindOrderBy }
func (o *OrderBy) ItemType() reflect.Type { return o.Item }

// OrderByBinding is one sort key.
type OrderByBinding struct {
	Expression Expression
	Direction  OrderDirection
}

func (*OrderByBinding) Kind() Kind { return KindOrderByBinding }

func (o *OrderByBinding) ItemType() reflect.Type {
	if o.Expression == nil {
		return nil
	}
	return o.Expression.ItemType()
}

// RowsFetchLimit caps the number of rows a source yields.
type RowsFetchLimit struct {
	Item   reflect.Type
	Source Expression
	Limit  int
}

func (*RowsFetchLimit) Kind() Kind               { return KindRowsFetchLimit }
func (r *RowsFetchLimit) ItemType() reflect.Type { return r.Item }

// Explain requests the JSON execution plan of its source.
type Explain struct {
	Source  Expression
	Analyze bool
}

func (*Explain) Kind() Kind             { return KindExplain }
func (*Explain) ItemType() reflect.Type { return stringType }

// Insert writes rows into a table. Values holds one row per entity, each
// aligned with Columns.
type Insert struct {
	Item     reflect.Type
	Table    *QuerySource
	Columns  []string
	Values   [][]Expression
	Behavior InsertBehavior
}

func (*Insert) Kind() Kind               { return KindInsert }
func (i *Insert) ItemType() reflect.Type { return i.Item }

// Update modifies rows of Source matching Predicate.
type Update struct {
	Item        reflect.Type
	Source      *NamedSource
	Assignments []*Assign
	Predicate   Expression
}

func (*Update) Kind() Kind               { return KindUpdate }
func (u *Update) ItemType() reflect.Type { return u.Item }

// Delete removes rows of Source matching Predicate.
type Delete struct {
	Item      reflect.Type
	Source    *NamedSource
	Predicate Expression
}

func (*Delete) Kind() Kind               { return KindDelete }
func (d *Delete) ItemType() reflect.Type { return d.Item }
