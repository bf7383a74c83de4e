package translate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// Context holds the state of one translation: a stack of open scopes plus
// registries shared with detached child contexts.
//
// A scope is an intermediate node still waiting for children. When a
// scope closes, its node is applied to the next-outer scope, or becomes
// the translation result when no scope is left.
type Context struct {
	stack  []sqlexpr.Expression
	result sqlexpr.Expression
	shared *registry
}

// registry is shared by a context and every context detached from it.
type registry struct {
	translator *Translator
	aliases    int
	params     []*sqlexpr.QueryParameter
	bindings   map[*expr.Parameter]*binding
	joins      map[joinKey]*binding
	thenBy     map[*sqlexpr.OrderBy]bool
	distinct   map[*sqlexpr.Projection]bool
	cacheKey   string
}

// binding is what a lambda parameter stands for.
type binding struct {
	// alias is the SQL alias rows are read through.
	alias *sqlexpr.Parameter

	// table is set when alias exposes entity columns.
	table *model.Table

	// holder points at the source field relation joins are attached to.
	// Nil disables relation navigation.
	holder *sqlexpr.Expression

	// projection is set when the parameter stands for projected rows; its
	// members resolve to the projected expressions.
	projection *sqlexpr.Projection
}

type joinKey struct {
	alias    *sqlexpr.Parameter
	relation *model.Relation
}

func newContext(t *Translator) *Context {
	return &Context{
		shared: &registry{
			translator: t,
			bindings:   map[*expr.Parameter]*binding{},
			joins:      map[joinKey]*binding{},
			thenBy:     map[*sqlexpr.OrderBy]bool{},
			distinct:   map[*sqlexpr.Projection]bool{},
		},
	}
}

// detached returns a context with an empty stack sharing c's registries.
func (c *Context) detached() *Context {
	return &Context{shared: c.shared}
}

// Models returns the model provider of the translation.
func (c *Context) Models() *model.Provider {
	return c.shared.translator.models
}

// Top returns the innermost open scope, or nil.
func (c *Context) Top() sqlexpr.Expression {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// Scope is the guard returned by WithinScope.
type Scope struct {
	ctx    *Context
	node   sqlexpr.Expression
	closed bool
}

// WithinScope pushes node and returns its guard. The guard must be closed
// exactly once, typically with defer:
//
//	scope := ctx.WithinScope(node)
//	defer scope.Close(&err)
func (c *Context) WithinScope(node sqlexpr.Expression) *Scope {
	c.stack = append(c.stack, node)
	return &Scope{ctx: c, node: node}
}

// Close pops the scope. When *errp is nil the finished node is applied to
// the enclosing scope and any failure to do so is stored in *errp.
func (s *Scope) Close(errp *error) {
	if s.closed {
		return
	}
	s.closed = true

	c := s.ctx
	if c.Top() != s.node {
		if *errp == nil {
			*errp = unresolved("scope %s closed out of order", s.node.Kind())
		}
		return
	}
	c.stack = c.stack[:len(c.stack)-1]

	if *errp != nil {
		return
	}
	if err := c.complete(s.node); err != nil {
		*errp = err
		return
	}
	*errp = c.Apply(s.node)
}

// Apply attaches child to the innermost open scope, or publishes it as
// the result when no scope is open.
func (c *Context) Apply(child sqlexpr.Expression) error {
	top := c.Top()
	if top == nil {
		if c.result != nil {
			return unresolved("second root %s produced", child.Kind())
		}
		c.result = child
		return nil
	}
	return c.applyTo(top, child)
}

// NextAlias allocates the next source alias: a, b, ..., z, aa, ab, ...
func (c *Context) NextAlias(item reflect.Type) *sqlexpr.Parameter {
	n := c.shared.aliases
	c.shared.aliases++
	return &sqlexpr.Parameter{Item: item, Name: aliasName(n)}
}

func aliasName(n int) string {
	var b []byte
	for {
		b = append([]byte{byte('a' + n%26)}, b...)
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return string(b)
}

// NextParameter binds value as a query parameter. A nil value becomes the
// NULL literal instead.
func (c *Context) NextParameter(value any, t reflect.Type) sqlexpr.Expression {
	if isNil(value) {
		return &sqlexpr.Constant{Item: t}
	}
	p := &sqlexpr.QueryParameter{Item: t, Name: parameterName(len(c.shared.params)), Value: value}
	c.shared.params = append(c.shared.params, p)
	return p
}

func parameterName(n int) string {
	return fmt.Sprintf("param_%d", n)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// tableFor returns the table behind t, or nil when t is not mapped.
func (c *Context) tableFor(t reflect.Type) *model.Table {
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil
	}
	table, err := c.Models().Table(t)
	if err != nil {
		return nil
	}
	return table
}

// querySource creates an aliased table source for entity type item.
func (c *Context) querySource(item reflect.Type, table *model.Table) *sqlexpr.NamedSource {
	return &sqlexpr.NamedSource{
		Item:      item,
		Source:    &sqlexpr.QuerySource{Item: item, Schema: table.Schema, Table: table.Name},
		Parameter: c.NextAlias(item),
	}
}

// describeStack is used in diagnostics.
func (c *Context) describeStack() string {
	kinds := make([]string, len(c.stack))
	for i, n := range c.stack {
		kinds[i] = string(n.Kind())
	}
	return strings.Join(kinds, " > ")
}
