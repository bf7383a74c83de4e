package expr

import (
	"fmt"
	"strings"
)

// String renders n as a compact textual description for diagnostics,
// for example All[Order]().Where(o => (o.CustomerID == 5)).
func String(n Node) string {
	var b strings.Builder
	write(&b, n)
	return b.String()
}

func write(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Parameter:
		b.WriteString(n.Name)
	case *Constant:
		if s, ok := n.Value.(string); ok {
			fmt.Fprintf(b, "%q", s)
		} else {
			fmt.Fprintf(b, "%v", n.Value)
		}
	case *Member:
		write(b, n.Target)
		b.WriteString(".")
		b.WriteString(n.Name)
	case *Binary:
		if n.Op == OpCoalesce {
			b.WriteString("(")
			write(b, n.Left)
			b.WriteString(" ?? ")
			write(b, n.Right)
			b.WriteString(")")
			return
		}
		b.WriteString("(")
		write(b, n.Left)
		b.WriteString(" " + n.Op.String() + " ")
		write(b, n.Right)
		b.WriteString(")")
	case *Unary:
		b.WriteString(n.Op.String())
		write(b, n.Operand)
	case *Conditional:
		b.WriteString("(")
		write(b, n.Test)
		b.WriteString(" ? ")
		write(b, n.IfTrue)
		b.WriteString(" : ")
		write(b, n.IfFalse)
		b.WriteString(")")
	case *New:
		b.WriteString("new " + typeName(n.typ) + "{")
		for i, m := range n.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.Name + " = ")
			write(b, m.Value)
		}
		b.WriteString("}")
	case *Lambda:
		names := make([]string, len(n.Params))
		for i, p := range n.Params {
			names[i] = p.Name
		}
		b.WriteString(strings.Join(names, ", ") + " => ")
		write(b, n.Body)
	case *Call:
		writeCall(b, n)
	default:
		fmt.Fprintf(b, "%T", n)
	}
}

func writeCall(b *strings.Builder, c *Call) {
	if c.Method.Declaring == QueryableType {
		switch c.Method.Name {
		case "All", "Update", "Delete":
			fmt.Fprintf(b, "%s[%s]()", c.Method.Name, typeName(ItemType(c)))
			return
		}
		if len(c.Args) > 0 {
			write(b, c.Args[0])
			b.WriteString("." + c.Method.Name + "(")
			for i, a := range c.Args[1:] {
				if i > 0 {
					b.WriteString(", ")
				}
				write(b, a)
			}
			b.WriteString(")")
			return
		}
	}

	b.WriteString(c.Method.Name + "(")
	for i, a := range c.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		write(b, a)
	}
	b.WriteString(")")
}
