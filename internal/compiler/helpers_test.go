package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/require"

	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/render/postgres"
	"github.com/warning-explosive/Core-sub004/internal/translate"
)

// shopSpec declares Order before Customer so that compiling it has to
// reorder the definitions.
const shopSpec = `
entity: Order: {
	columns: {
		Id:       {type: "int64", pk: true}
		Customer: {reference: "Customer", nullable: true}
		Total:    "float"
		Version:  {type: "int64", version: true}
	}
}

entity: Customer: {
	columns: {
		Id:   {type: "int64", pk: true}
		Name: "string"
	}
}

query: bigOrders: {
	from: "Order"
	where: [{field: "Total", op: ">", value: 10}]
	orderBy: [{field: "Total", desc: true}, "Id"]
	limit: 5
}
`

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func compileShop(t *testing.T, extra string) (*Spec, *model.Provider) {
	t.Helper()
	models := model.NewProvider("public")
	spec, err := Compile(compileString(t, shopSpec+extra), models)
	require.NoError(t, err)
	return spec, models
}

func renderQuery(t *testing.T, models *model.Provider, q *Query) *render.Command {
	t.Helper()
	cmd, err := translate.New(models).Translate(q.Node)
	require.NoError(t, err)
	out, err := postgres.New().Render(cmd.Expression)
	require.NoError(t, err)
	return out
}
