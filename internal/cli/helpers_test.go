package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// shopSpec is a valid specs file over Customer and Order.
const shopSpec = `package test

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

query: ordersOf: {
	from: "Order"
	where: [{field: "Customer", op: "==", value: 1}]
	orderBy: ["Id"]
}

query: names: {
	from: "Customer"
	select: ["Name"]
	orderBy: ["Name"]
}

query: totals: {
	from: "Order"
	select: ["Id", "Total"]
	orderBy: ["Id"]
}
`

// writeSpecs writes files into a new directory and returns its path.
func writeSpecs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeConfig writes a settings file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
