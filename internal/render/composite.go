package render

import (
	"fmt"
	"strings"

	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// Command is rendered SQL text with the parameters it references, in the
// order they first appear in the text.
type Command struct {
	Text       string
	Parameters []*sqlexpr.QueryParameter
}

// Args returns the parameter values keyed by parameter name.
func (c *Command) Args() map[string]any {
	out := make(map[string]any, len(c.Parameters))
	for _, p := range c.Parameters {
		out[p.Name] = p.Value
	}
	return out
}

// Translator renders one node kind.
type Translator interface {
	Translate(r *Renderer, e sqlexpr.Expression, depth int) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(r *Renderer, e sqlexpr.Expression, depth int) (string, error)

func (f TranslatorFunc) Translate(r *Renderer, e sqlexpr.Expression, depth int) (string, error) {
	return f(r, e, depth)
}

// Typed adapts a function over one concrete node type. A node of another
// type fails with NotSupportedError.
func Typed[T sqlexpr.Expression](fn func(r *Renderer, n T, depth int) (string, error)) Translator {
	return TranslatorFunc(func(r *Renderer, e sqlexpr.Expression, depth int) (string, error) {
		n, ok := e.(T)
		if !ok {
			return "", notSupported(e)
		}
		return fn(r, n, depth)
	})
}

// Composite is the registration table of per-kind translators.
//
// Register every translator before the first Render; after that the table
// is only read and Render is safe for concurrent use.
type Composite struct {
	translators map[sqlexpr.Kind]Translator
}

// NewComposite creates an empty registration table.
func NewComposite() *Composite {
	return &Composite{translators: map[sqlexpr.Kind]Translator{}}
}

// Register sets the translator of kind, replacing any previous one.
func (c *Composite) Register(kind sqlexpr.Kind, t Translator) {
	c.translators[kind] = t
}

// Lookup returns the translator of kind.
func (c *Composite) Lookup(kind sqlexpr.Kind) (Translator, bool) {
	t, ok := c.translators[kind]
	return t, ok
}

// Missing lists the core kinds without a registered translator.
func (c *Composite) Missing() []sqlexpr.Kind {
	var out []sqlexpr.Kind
	for _, k := range sqlexpr.Kinds() {
		if _, ok := c.translators[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// Verify fails when any core kind lacks a translator.
func (c *Composite) Verify() error {
	missing := c.Missing()
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, k := range missing {
		names[i] = string(k)
	}
	return fmt.Errorf("verify translators: missing %s", strings.Join(names, ", "))
}

// Render renders e at depth zero.
func (c *Composite) Render(e sqlexpr.Expression) (*Command, error) {
	r := &Renderer{composite: c, seen: map[string]bool{}}
	text, err := r.Render(e, 0)
	if err != nil {
		return nil, err
	}
	return &Command{Text: text, Parameters: r.params}, nil
}

// Renderer is the per-call rendering state handed to translators.
type Renderer struct {
	composite *Composite
	params    []*sqlexpr.QueryParameter
	seen      map[string]bool
}

// Render dispatches e to its translator.
func (r *Renderer) Render(e sqlexpr.Expression, depth int) (string, error) {
	if e == nil {
		return "", fmt.Errorf("render: nil expression at depth %d", depth)
	}
	t, ok := r.composite.translators[e.Kind()]
	if !ok {
		return "", notSupported(e)
	}
	return t.Translate(r, e, depth)
}

// RenderAll renders each expression at depth.
func (r *Renderer) RenderAll(es []sqlexpr.Expression, depth int) ([]string, error) {
	out := make([]string, len(es))
	for i, e := range es {
		s, err := r.Render(e, depth)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Emit records p as referenced by the text. Repeated names are recorded
// once.
func (r *Renderer) Emit(p *sqlexpr.QueryParameter) {
	if r.seen[p.Name] {
		return
	}
	r.seen[p.Name] = true
	r.params = append(r.params, p)
}

// Indent returns depth tabs. Negative depths yield no indentation.
func Indent(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("\t", depth)
}
