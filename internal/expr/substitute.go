package expr

// Substitute returns a copy of n in which every occurrence of param is
// replaced by replacement. Subtrees without param are shared, not copied.
func Substitute(n Node, param *Parameter, replacement Node) Node {
	out, _ := substitute(n, param, replacement)
	return out
}

func substitute(n Node, param *Parameter, r Node) (Node, bool) {
	switch n := n.(type) {
	case *Parameter:
		if n == param {
			return r, true
		}
		return n, false
	case *Constant:
		return n, false
	case *Member:
		target, changed := substitute(n.Target, param, r)
		if !changed {
			return n, false
		}
		out := Field(target, n.Name)
		return out, true
	case *Binary:
		left, lc := substitute(n.Left, param, r)
		right, rc := substitute(n.Right, param, r)
		if !lc && !rc {
			return n, false
		}
		return &Binary{Op: n.Op, Left: left, Right: right, typ: n.typ}, true
	case *Unary:
		operand, changed := substitute(n.Operand, param, r)
		if !changed {
			return n, false
		}
		return &Unary{Op: n.Op, Operand: operand, typ: n.typ}, true
	case *Conditional:
		test, tc := substitute(n.Test, param, r)
		ifTrue, ic := substitute(n.IfTrue, param, r)
		ifFalse, ec := substitute(n.IfFalse, param, r)
		if !tc && !ic && !ec {
			return n, false
		}
		return &Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}, true
	case *New:
		members := make([]MemberAssignment, len(n.Members))
		touched := false
		for i, m := range n.Members {
			v, changed := substitute(m.Value, param, r)
			members[i] = MemberAssignment{Name: m.Name, Value: v}
			touched = touched || changed
		}
		if !touched {
			return n, false
		}
		return &New{Members: members, typ: n.typ}, true
	case *Lambda:
		body, changed := substitute(n.Body, param, r)
		if !changed {
			return n, false
		}
		return &Lambda{Params: n.Params, Body: body}, true
	case *Call:
		args := make([]Node, len(n.Args))
		touched := false
		for i, a := range n.Args {
			v, changed := substitute(a, param, r)
			args[i] = v
			touched = touched || changed
		}
		if !touched {
			return n, false
		}
		return &Call{Method: n.Method, Args: args, typ: n.typ}, true
	}
	return n, false
}
