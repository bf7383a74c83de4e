package compiler

import (
	"fmt"
	"reflect"
	"slices"

	"cuelang.org/go/cue"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/objectbuilder"
)

// Condition operators accepted in a query where clause.
const (
	OpEqual          = "=="
	OpNotEqual       = "!="
	OpGreater        = ">"
	OpGreaterOrEqual = ">="
	OpLess           = "<"
	OpLessOrEqual    = "<="
	OpLike           = "like"
	OpIn             = "in"
	OpNull           = "null"
	OpNotNull        = "notnull"
)

// QuerySpec is a named query as declared in CUE, before it is bound to
// entity types.
type QuerySpec struct {
	Name     string
	From     string
	Where    []Condition // combined with AND
	Select   []string    // empty selects the whole entity
	Distinct bool
	OrderBy  []OrderKey
	Limit    int // 0 means no limit
	Cache    string
	Explain  bool
	Analyze  bool
}

// Condition compares one column with a literal value.
type Condition struct {
	Field string
	Op    string
	Value any
}

// OrderKey is one sort key of a query.
type OrderKey struct {
	Field string
	Desc  bool
}

// Query is a QuerySpec bound to an entity type. Node is an ordinary host
// expression; Item is the type of the values it yields.
type Query struct {
	Name    string
	Entity  reflect.Type
	Item    reflect.Type
	Node    expr.Node
	Explain bool
	Analyze bool
}

// ParseQuery parses a CUE value into a QuerySpec.
func ParseQuery(v cue.Value) (*QuerySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &QuerySpec{Name: label(v)}

	fromVal := v.LookupPath(cue.ParsePath("from"))
	if !fromVal.Exists() {
		return nil, &CompileError{Field: "from", Message: "from is required", Pos: v.Pos()}
	}
	from, err := fromVal.String()
	if err != nil {
		return nil, &CompileError{Field: "from", Message: "must be an entity name", Pos: fromVal.Pos()}
	}
	spec.From = from

	if spec.Where, err = parseConditions(v); err != nil {
		return nil, err
	}
	if spec.Select, err = parseSelect(v); err != nil {
		return nil, err
	}
	if spec.OrderBy, err = parseOrderBy(v); err != nil {
		return nil, err
	}
	if spec.Distinct, err = optionalBool(v, "distinct", "distinct"); err != nil {
		return nil, err
	}
	if spec.Cache, err = optionalString(v, "cache", "cache"); err != nil {
		return nil, err
	}
	if spec.Analyze, err = optionalBool(v, "analyze", "analyze"); err != nil {
		return nil, err
	}
	if spec.Explain, err = optionalBool(v, "explain", "explain"); err != nil {
		return nil, err
	}
	limit, ok, err := optionalInt(v, "limit", "limit")
	if err != nil {
		return nil, err
	}
	if ok && limit <= 0 {
		return nil, &CompileError{
			Field:   "limit",
			Message: fmt.Sprintf("must be positive, got %d", limit),
			Pos:     v.LookupPath(cue.ParsePath("limit")).Pos(),
		}
	}
	spec.Limit = limit

	return spec, nil
}

func parseConditions(v cue.Value) ([]Condition, error) {
	whereVal := v.LookupPath(cue.ParsePath("where"))
	if !whereVal.Exists() {
		return nil, nil
	}
	list, err := whereVal.List()
	if err != nil {
		return nil, &CompileError{Field: "where", Message: "must be a list of conditions", Pos: whereVal.Pos()}
	}

	var conds []Condition
	for i := 0; list.Next(); i++ {
		item := list.Value()
		name := fmt.Sprintf("where[%d]", i)

		field, err := optionalString(item, "field", name+".field")
		if err != nil {
			return nil, err
		}
		op, err := optionalString(item, "op", name+".op")
		if err != nil {
			return nil, err
		}
		if field == "" || op == "" {
			return nil, &CompileError{Field: name, Message: "condition needs field and op", Pos: item.Pos()}
		}

		cond := Condition{Field: field, Op: op}
		if valueVal := item.LookupPath(cue.ParsePath("value")); valueVal.Exists() {
			if cond.Value, err = literal(valueVal, name+".value"); err != nil {
				return nil, err
			}
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func parseSelect(v cue.Value) ([]string, error) {
	selectVal := v.LookupPath(cue.ParsePath("select"))
	if !selectVal.Exists() {
		return nil, nil
	}
	list, err := selectVal.List()
	if err != nil {
		return nil, &CompileError{Field: "select", Message: "must be a list of columns", Pos: selectVal.Pos()}
	}
	var columns []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, &CompileError{Field: "select", Message: "column names must be strings", Pos: list.Value().Pos()}
		}
		columns = append(columns, s)
	}
	return columns, nil
}

func parseOrderBy(v cue.Value) ([]OrderKey, error) {
	orderVal := v.LookupPath(cue.ParsePath("orderBy"))
	if !orderVal.Exists() {
		return nil, nil
	}
	list, err := orderVal.List()
	if err != nil {
		return nil, &CompileError{Field: "orderBy", Message: "must be a list", Pos: orderVal.Pos()}
	}

	var keys []OrderKey
	for i := 0; list.Next(); i++ {
		item := list.Value()
		name := fmt.Sprintf("orderBy[%d]", i)

		// Shorthand: orderBy: ["Total"]
		if item.Kind() == cue.StringKind {
			field, _ := item.String()
			keys = append(keys, OrderKey{Field: field})
			continue
		}
		field, err := optionalString(item, "field", name+".field")
		if err != nil {
			return nil, err
		}
		if field == "" {
			return nil, &CompileError{Field: name, Message: "field is required", Pos: item.Pos()}
		}
		desc, err := optionalBool(item, "desc", name+".desc")
		if err != nil {
			return nil, err
		}
		keys = append(keys, OrderKey{Field: field, Desc: desc})
	}
	return keys, nil
}

// BuildQuery binds spec to its entity in models and builds the host
// expression.
func BuildQuery(spec *QuerySpec, models *model.Provider) (*Query, error) {
	entity, ok := models.Lookup(spec.From)
	if !ok {
		return nil, &CompileError{Field: "from", Message: fmt.Sprintf("unknown entity %q", spec.From)}
	}
	table, err := models.Table(entity)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", spec.Name, err)
	}

	var node expr.Node = expr.All(entity)

	if len(spec.Where) > 0 {
		predicate, err := buildPredicate(models, table, spec.Where)
		if err != nil {
			return nil, err
		}
		node = expr.Where(node, predicate)
	}

	for i, key := range spec.OrderBy {
		col, err := lookupColumn(table, key.Field, fmt.Sprintf("orderBy[%d]", i))
		if err != nil {
			return nil, err
		}
		if col.Relation != nil && col.Relation.Multiple {
			return nil, &CompileError{Field: fmt.Sprintf("orderBy[%d]", i), Message: fmt.Sprintf("cannot order by collection %s", key.Field)}
		}
		selector := expr.Func(entity, func(x *expr.Parameter) expr.Node { return expr.Field(x, col.Field) })
		switch {
		case i == 0 && key.Desc:
			node = expr.OrderByDescending(node, selector)
		case i == 0:
			node = expr.OrderBy(node, selector)
		case key.Desc:
			node = expr.ThenByDescending(node, selector)
		default:
			node = expr.ThenBy(node, selector)
		}
	}

	item := entity
	if len(spec.Select) > 0 {
		selector, err := buildSelector(table, spec.Select)
		if err != nil {
			return nil, err
		}
		node = expr.Select(node, selector)
		item = selector.Body.Type()
	}

	if spec.Distinct {
		node = expr.Distinct(node)
	}
	if spec.Limit > 0 {
		node = expr.Take(node, spec.Limit)
	}
	if spec.Cache != "" {
		node = expr.CachedExpression(node, spec.Cache)
	}

	return &Query{
		Name:    spec.Name,
		Entity:  entity,
		Item:    item,
		Node:    node,
		Explain: spec.Explain || spec.Analyze,
		Analyze: spec.Analyze,
	}, nil
}

// CompileQuery parses and builds a query in one step.
func CompileQuery(v cue.Value, models *model.Provider) (*Query, error) {
	spec, err := ParseQuery(v)
	if err != nil {
		return nil, err
	}
	return BuildQuery(spec, models)
}

func lookupColumn(table *model.Table, name, field string) (*model.Column, error) {
	if col, ok := table.Column(name); ok {
		return col, nil
	}
	if col, ok := table.ColumnByField(name); ok {
		return col, nil
	}
	return nil, &CompileError{Field: field, Message: fmt.Sprintf("entity %s has no column %q", table.Name, name)}
}

func buildPredicate(models *model.Provider, table *model.Table, conds []Condition) (*expr.Lambda, error) {
	x := expr.Param("x", table.Type)
	terms := make([]expr.Node, 0, len(conds))
	for i, cond := range conds {
		term, err := buildCondition(models, table, x, cond, fmt.Sprintf("where[%d]", i))
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return expr.Lambda(expr.And(terms[0], terms[1:]...), x), nil
}

func buildCondition(models *model.Provider, table *model.Table, x *expr.Parameter, cond Condition, field string) (expr.Node, error) {
	col, err := lookupColumn(table, cond.Field, field+".field")
	if err != nil {
		return nil, err
	}
	if col.Relation != nil && col.Relation.Multiple {
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("cannot filter on collection %s", cond.Field)}
	}
	member := expr.Field(x, col.Field)

	switch cond.Op {
	case OpNull:
		return expr.IsNull(member), nil
	case OpNotNull:
		return expr.IsNotNull(member), nil
	case OpIn:
		if col.Relation != nil {
			return nil, &CompileError{Field: field + ".op", Message: fmt.Sprintf("relation %s only supports == and !=", cond.Field)}
		}
		values, ok := cond.Value.([]any)
		if !ok {
			return nil, &CompileError{Field: field + ".value", Message: "in needs a list value"}
		}
		elem := valueType(col)
		list := reflect.MakeSlice(reflect.SliceOf(elem), 0, len(values))
		for _, v := range values {
			rv, err := convertValue(models, col, v, field+".value")
			if err != nil {
				return nil, err
			}
			list = reflect.Append(list, rv)
		}
		return expr.In(member, expr.TypedConst(list.Interface(), list.Type())), nil
	case OpLike:
		pattern, ok := cond.Value.(string)
		if !ok {
			return nil, &CompileError{Field: field + ".value", Message: "like needs a string pattern"}
		}
		return expr.Like(member, expr.Const(pattern)), nil
	}

	op, ok := comparisons[cond.Op]
	if !ok {
		return nil, &CompileError{Field: field + ".op", Message: fmt.Sprintf("unknown operator %q", cond.Op)}
	}
	if col.Relation != nil && op != expr.OpEqual && op != expr.OpNotEqual {
		return nil, &CompileError{Field: field + ".op", Message: fmt.Sprintf("relation %s only supports == and !=", cond.Field)}
	}
	if cond.Value == nil {
		return nil, &CompileError{Field: field + ".value", Message: fmt.Sprintf("%s needs a value, use null or notnull to test for NULL", cond.Op)}
	}
	rv, err := convertValue(models, col, cond.Value, field+".value")
	if err != nil {
		return nil, err
	}
	return expr.MakeBinary(op, member, expr.TypedConst(rv.Interface(), rv.Type())), nil
}

var comparisons = map[string]expr.BinaryOp{
	OpEqual:          expr.OpEqual,
	OpNotEqual:       expr.OpNotEqual,
	OpGreater:        expr.OpGreaterThan,
	OpGreaterOrEqual: expr.OpGreaterThanOrEqual,
	OpLess:           expr.OpLessThan,
	OpLessOrEqual:    expr.OpLessThanOrEqual,
}

// valueType is the type a literal compared with col is converted to.
// Nullable columns compare with their element type; relations compare
// with an entity carrying only the primary key.
func valueType(col *model.Column) reflect.Type {
	if col.Relation != nil {
		return col.Relation.Target
	}
	if col.Type.Kind() == reflect.Pointer {
		return col.Type.Elem()
	}
	return col.Type
}

func convertValue(models *model.Provider, col *model.Column, value any, field string) (reflect.Value, error) {
	t := valueType(col)
	if col.Relation != nil {
		target, err := models.Table(t)
		if err != nil {
			return reflect.Value{}, err
		}
		key, err := objectbuilder.Convert(value, target.PrimaryKey.Type)
		if err != nil {
			return reflect.Value{}, &CompileError{Field: field, Message: err.Error()}
		}
		ref := reflect.New(t.Elem())
		ref.Elem().FieldByIndex(target.PrimaryKey.Index).Set(key)
		return ref, nil
	}
	rv, err := objectbuilder.Convert(value, t)
	if err != nil {
		return reflect.Value{}, &CompileError{Field: field, Message: err.Error()}
	}
	return rv, nil
}

func buildSelector(table *model.Table, columns []string) (*expr.Lambda, error) {
	x := expr.Param("x", table.Type)

	cols := make([]*model.Column, 0, len(columns))
	for i, name := range columns {
		col, err := lookupColumn(table, name, fmt.Sprintf("select[%d]", i))
		if err != nil {
			return nil, err
		}
		if col.Relation != nil {
			return nil, &CompileError{Field: fmt.Sprintf("select[%d]", i), Message: fmt.Sprintf("cannot select relation %s", name)}
		}
		if slices.Contains(cols, col) {
			return nil, &CompileError{Field: fmt.Sprintf("select[%d]", i), Message: fmt.Sprintf("column %s selected twice", name)}
		}
		cols = append(cols, col)
	}

	if len(cols) == 1 {
		return expr.Lambda(expr.Field(x, cols[0].Field), x), nil
	}

	fields := make([]reflect.StructField, 0, len(cols))
	members := make([]expr.MemberAssignment, 0, len(cols))
	for _, col := range cols {
		fields = append(fields, reflect.StructField{
			Name: col.Field,
			Type: col.Type,
			Tag:  reflect.StructTag(fmt.Sprintf(`orm:%q json:%q`, col.Name, col.Name)),
		})
		members = append(members, expr.Assignment(col.Field, expr.Field(x, col.Field)))
	}
	row := reflect.StructOf(fields)
	return expr.Lambda(expr.NewStruct(row, members...), x), nil
}
