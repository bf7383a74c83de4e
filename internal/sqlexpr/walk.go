package sqlexpr

// Children returns the direct child nodes of e in rendering order.
// GroupBy exposes only its keys query; values queries do not exist until a
// key is materialized.
func Children(e Expression) []Expression {
	var out []Expression
	add := func(children ...Expression) {
		for _, c := range children {
			if c != nil {
				out = append(out, c)
			}
		}
	}

	switch n := e.(type) {
	case *Projection:
		add(n.Bindings...)
		add(n.Source)
		add(n.GroupBy...)
	case *Filter:
		add(n.Source, n.Predicate)
	case *Join:
		add(n.Left, n.Right, n.On)
	case *NamedSource:
		add(n.Source)
		if n.Parameter != nil {
			add(n.Parameter)
		}
	case *Binary:
		add(n.Left, n.Right)
	case *Unary:
		add(n.Operand)
	case *Conditional:
		add(n.When, n.Then, n.Else)
	case *SimpleBinding:
		if n.Source != nil {
			add(n.Source)
		}
	case *NamedBinding:
		add(n.Expression)
	case *MethodCall:
		add(n.Source)
		add(n.Arguments...)
	case *New:
		for _, b := range n.Bindings {
			add(b)
		}
	case *List:
		add(n.Items...)
	case *Assign:
		if n.Left != nil {
			add(n.Left)
		}
		add(n.Right)
	case *JSONAttribute:
		add(n.Source)
	case *GroupBy:
		if n.Keys != nil {
			add(n.Keys)
		}
	case *OrderBy:
		add(n.Source)
		for _, b := range n.Bindings {
			add(b)
		}
	case *OrderByBinding:
		add(n.Expression)
	case *RowsFetchLimit:
		add(n.Source)
	case *Explain:
		add(n.Source)
	case *Insert:
		if n.Table != nil {
			add(n.Table)
		}
		for _, row := range n.Values {
			add(row...)
		}
	case *Update:
		if n.Source != nil {
			add(n.Source)
		}
		for _, a := range n.Assignments {
			add(a)
		}
		add(n.Predicate)
	case *Delete:
		if n.Source != nil {
			add(n.Source)
		}
		add(n.Predicate)
	}
	return out
}

// Walk visits e and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func Walk(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// QueryParameters collects every query parameter reachable from e, in
// walk order, without duplicates.
func QueryParameters(e Expression) []*QueryParameter {
	var params []*QueryParameter
	seen := map[*QueryParameter]bool{}
	Walk(e, func(n Expression) bool {
		if p, ok := n.(*QueryParameter); ok && !seen[p] {
			seen[p] = true
			params = append(params, p)
		}
		return true
	})
	return params
}
