package render

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

func testComposite() *Composite {
	c := NewComposite()
	c.Register(sqlexpr.KindSpecial, Typed(func(_ *Renderer, s *sqlexpr.Special, depth int) (string, error) {
		return Indent(depth) + s.Text, nil
	}))
	c.Register(sqlexpr.KindQueryParameter, Typed(func(r *Renderer, p *sqlexpr.QueryParameter, _ int) (string, error) {
		r.Emit(p)
		return "@" + p.Name, nil
	}))
	c.Register(sqlexpr.KindList, Typed(func(r *Renderer, l *sqlexpr.List, depth int) (string, error) {
		parts, err := r.RenderAll(l.Items, depth+1)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(parts), nil
	}))
	return c
}

func TestComposite_DispatchesByKind(t *testing.T) {
	p := &sqlexpr.QueryParameter{Name: "param_0", Value: 1}
	out, err := testComposite().Render(&sqlexpr.List{Items: []sqlexpr.Expression{
		&sqlexpr.Special{Text: "x"}, p, p,
	}})
	require.NoError(t, err)

	assert.Equal(t, "[\tx @param_0 @param_0]", out.Text)
	require.Len(t, out.Parameters, 1, "repeated parameters are collected once")
	assert.Equal(t, map[string]any{"param_0": 1}, out.Args())
}

func TestComposite_MissingTranslator(t *testing.T) {
	_, err := testComposite().Render(&sqlexpr.List{Items: []sqlexpr.Expression{&sqlexpr.Constant{}}})

	require.Error(t, err)
	assert.True(t, IsNotSupportedError(err))
	var ne *NotSupportedError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, sqlexpr.KindConstant, ne.Kind)
	assert.Equal(t, "*sqlexpr.Constant", ne.Type)
}

func TestTyped_RejectsOtherNodes(t *testing.T) {
	c := NewComposite()
	c.Register(sqlexpr.KindConstant, Typed(func(_ *Renderer, s *sqlexpr.Special, _ int) (string, error) {
		return s.Text, nil
	}))

	_, err := c.Render(&sqlexpr.Constant{})
	assert.True(t, IsNotSupportedError(err))
}

func TestComposite_Verify(t *testing.T) {
	c := testComposite()
	missing := c.Missing()
	assert.Len(t, missing, len(sqlexpr.Kinds())-3)
	assert.NotContains(t, missing, sqlexpr.KindSpecial)

	err := c.Verify()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Projection")
}

func TestRenderer_NilExpression(t *testing.T) {
	_, err := testComposite().Render(nil)
	assert.Error(t, err)
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "", Indent(-1))
	assert.Equal(t, "", Indent(0))
	assert.Equal(t, "\t\t", Indent(2))
}
