package sqlexpr

import "fmt"

// ValidationResult lists structural problems found in an expression tree.
type ValidationResult struct {
	// Valid is true when no problems were found.
	Valid bool

	// Problems describes each violation, in discovery order.
	Problems []string
}

// Validate checks the structural invariants a renderable tree must hold:
//  1. Sources are non-nil wherever a node requires one
//  2. Binding names are unique within a projection
//  3. Fetch limits are positive
//  4. Operators are declared ones
//  5. Commands carry a target table
//
// Validate is a pure function with no side effects.
func Validate(e Expression) ValidationResult {
	v := &validator{}
	v.validate(e)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validate(e Expression) {
	if e == nil {
		v.addProblem("nil expression")
		return
	}

	switch n := e.(type) {
	case *Projection:
		v.validateProjection(n)
	case *Filter:
		if n.Source == nil {
			v.addProblem("filter without source")
		}
		if n.Predicate == nil {
			v.addProblem("filter without predicate")
		}
	case *Join:
		if n.Left == nil || n.Right == nil {
			v.addProblem("join without both sides")
		}
		if n.On == nil {
			v.addProblem("join without condition")
		}
	case *NamedSource:
		if n.Source == nil {
			v.addProblem("named source without source")
		}
		if n.Parameter == nil {
			v.addProblem("named source without alias")
		}
	case *Binary:
		if !n.Operator.Valid() {
			v.addProblem("unknown binary operator %d", int(n.Operator))
		}
		if n.Left == nil || n.Right == nil {
			v.addProblem("binary %s with missing operand", n.Operator)
		}
	case *Unary:
		if n.Operand == nil {
			v.addProblem("unary %s without operand", n.Operator)
		}
	case *OrderBy:
		if n.Source == nil {
			v.addProblem("order by without source")
		}
		if len(n.Bindings) == 0 {
			v.addProblem("order by without keys")
		}
	case *RowsFetchLimit:
		if n.Source == nil {
			v.addProblem("fetch limit without source")
		}
		if n.Limit <= 0 {
			v.addProblem("fetch limit must be positive, got %d", n.Limit)
		}
	case *Explain:
		if n.Source == nil {
			v.addProblem("explain without source")
		}
	case *GroupBy:
		if n.Keys == nil {
			v.addProblem("group by without keys query")
		}
		if n.Values == nil {
			v.addProblem("group by without values producer")
		}
	case *Insert:
		if n.Table == nil {
			v.addProblem("insert without table")
		}
		for i, row := range n.Values {
			if len(row) != len(n.Columns) {
				v.addProblem("insert row %d has %d values for %d columns", i, len(row), len(n.Columns))
			}
		}
	case *Update:
		if n.Source == nil {
			v.addProblem("update without table")
		}
		if len(n.Assignments) == 0 {
			v.addProblem("update without assignments")
		}
	case *Delete:
		if n.Source == nil {
			v.addProblem("delete without table")
		}
	}

	for _, c := range Children(e) {
		v.validate(c)
	}
}

func (v *validator) validateProjection(p *Projection) {
	if p.Source == nil {
		v.addProblem("projection without source")
	}

	seen := map[string]bool{}
	for _, b := range p.Bindings {
		name := bindingName(b)
		if name == "" {
			continue
		}
		if seen[name] {
			v.addProblem("duplicate binding %q in projection", name)
		}
		seen[name] = true
	}
}

// bindingName is the output column name of a projection binding.
func bindingName(e Expression) string {
	switch b := e.(type) {
	case *NamedBinding:
		return b.Name
	case *SimpleBinding:
		if b.Source != nil {
			return b.Source.Name + "." + b.Name
		}
		return b.Name
	}
	return ""
}
