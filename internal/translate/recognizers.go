package translate

import (
	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// Recognition is the translation a recognizer proposes for a member: Node
// is opened as a scope and Args are translated into it in order.
type Recognition struct {
	Node sqlexpr.Expression
	Args []expr.Node
}

// MemberRecognizer maps a method or member to an intermediate node.
//
// Recognizers are consulted in order and must not overlap: when more than
// one matches, translation fails with AMBIGUOUS_MEMBER.
type MemberRecognizer interface {
	Recognize(ctx *Context, member expr.MemberInfo, node expr.Node) (Recognition, bool)
}

// RecognizerFunc adapts a function to MemberRecognizer.
type RecognizerFunc func(ctx *Context, member expr.MemberInfo, node expr.Node) (Recognition, bool)

func (f RecognizerFunc) Recognize(ctx *Context, member expr.MemberInfo, node expr.Node) (Recognition, bool) {
	return f(ctx, member, node)
}

// DefaultRecognizers returns the built-in SQL helper recognizers.
func DefaultRecognizers() []MemberRecognizer {
	return []MemberRecognizer{
		RecognizerFunc(recognizeLike),
		RecognizerFunc(recognizeIsNull),
		RecognizerFunc(recognizeIsNotNull),
		RecognizerFunc(recognizeAssign),
		RecognizerFunc(recognizeIn),
		RecognizerFunc(recognizeJSONAttribute),
	}
}

// recognize runs the recognizers for node. It reports false when none
// matched.
func (c *Context) recognize(node expr.Node, member expr.MemberInfo) (handled bool, err error) {
	var found []Recognition
	for _, r := range c.shared.translator.recognizers {
		if rec, ok := r.Recognize(c, member, node); ok {
			found = append(found, rec)
		}
	}

	switch len(found) {
	case 0:
		return false, nil
	case 1:
	default:
		return true, &Error{
			Code:       ErrCodeAmbiguousMember,
			Message:    "more than one recognizer matched",
			Expression: expr.String(node),
			Member:     member,
		}
	}

	rec := found[0]
	if rec.Node == nil {
		return true, unresolved("recognizer for %s produced no node", member)
	}

	scope := c.WithinScope(rec.Node)
	defer scope.Close(&err)

	for _, arg := range rec.Args {
		if err = c.visit(arg); err != nil {
			return true, err
		}
	}
	return true, nil
}

func callArgs(node expr.Node) []expr.Node {
	if call, ok := node.(*expr.Call); ok {
		return call.Args
	}
	return nil
}

func recognizeLike(_ *Context, member expr.MemberInfo, node expr.Node) (Recognition, bool) {
	if !member.Matches(expr.FuncLike) {
		return Recognition{}, false
	}
	return Recognition{
		Node: &sqlexpr.Binary{Item: node.Type(), Operator: sqlexpr.Like},
		Args: callArgs(node),
	}, true
}

// IsNull and IsNotNull become comparisons whose right operand is already
// the NULL literal; the renderer turns them into IS / IS NOT.
func recognizeIsNull(_ *Context, member expr.MemberInfo, node expr.Node) (Recognition, bool) {
	if !member.Matches(expr.FuncIsNull) {
		return Recognition{}, false
	}
	return Recognition{
		Node: &sqlexpr.Binary{Item: node.Type(), Operator: sqlexpr.Equal, Right: &sqlexpr.Constant{}},
		Args: callArgs(node),
	}, true
}

func recognizeIsNotNull(_ *Context, member expr.MemberInfo, node expr.Node) (Recognition, bool) {
	if !member.Matches(expr.FuncIsNotNull) {
		return Recognition{}, false
	}
	return Recognition{
		Node: &sqlexpr.Binary{Item: node.Type(), Operator: sqlexpr.NotEqual, Right: &sqlexpr.Constant{}},
		Args: callArgs(node),
	}, true
}

func recognizeAssign(_ *Context, member expr.MemberInfo, node expr.Node) (Recognition, bool) {
	if !member.Matches(expr.FuncAssign) {
		return Recognition{}, false
	}
	return Recognition{Node: &sqlexpr.Assign{}, Args: callArgs(node)}, true
}

func recognizeIn(_ *Context, member expr.MemberInfo, node expr.Node) (Recognition, bool) {
	if !member.Matches(expr.FuncIn) {
		return Recognition{}, false
	}
	return Recognition{
		Node: &sqlexpr.Binary{Item: node.Type(), Operator: sqlexpr.Contains},
		Args: callArgs(node),
	}, true
}

// recognizeJSONAttribute flattens nested attribute calls into one path.
func recognizeJSONAttribute(_ *Context, member expr.MemberInfo, node expr.Node) (Recognition, bool) {
	if !member.Matches(expr.FuncJSONAttribute) {
		return Recognition{}, false
	}

	var path []string
	current := node
	for {
		call, ok := current.(*expr.Call)
		if !ok || !call.Method.Matches(expr.FuncJSONAttribute) || len(call.Args) != 2 {
			break
		}
		name, ok := call.Args[1].(*expr.Constant)
		if !ok {
			return Recognition{}, false
		}
		s, ok := name.Value.(string)
		if !ok {
			return Recognition{}, false
		}
		path = append([]string{s}, path...)
		current = call.Args[0]
	}

	return Recognition{
		Node: &sqlexpr.JSONAttribute{Item: node.Type(), Path: path},
		Args: []expr.Node{current},
	}, true
}
