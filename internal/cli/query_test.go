package cli

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shopTables = []string{
	`CREATE TABLE "Customer" ("Id" INTEGER PRIMARY KEY, "Name" TEXT NOT NULL)`,
	`CREATE TABLE "Order" ("Id" INTEGER PRIMARY KEY, "Customer" INTEGER, "Total" REAL NOT NULL, "Version" INTEGER NOT NULL)`,
	`INSERT INTO "Customer" ("Id", "Name") VALUES (1, 'ann'), (2, 'bob')`,
	`INSERT INTO "Order" ("Id", "Customer", "Total", "Version") VALUES (1, 1, 12.5, 1), (2, 2, 4, 1), (3, 1, 30, 1)`,
}

const customersSpec = `package test

query: customers: {
	from: "Customer"
	orderBy: ["Id"]
}
`

// newShopDB creates a seeded SQLite file and returns a settings file
// pointing at it.
func newShopDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range shopTables {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	return writeConfig(t, fmt.Sprintf("driver: sqlite3\nschema: main\ndsn: %s\n", path))
}

func TestQuery_Table(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})
	config := newShopDB(t)

	out, err := execute(t, "--config", config, "query", dir, "totals")
	require.NoError(t, err)

	assert.Contains(t, out, "Id")
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "12.5")
	assert.Contains(t, out, "30")
	assert.Contains(t, out, "(3 rows)")
}

func TestQuery_JSON(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})
	config := newShopDB(t)

	out, err := execute(t, "--config", config, "--format", "json", "query", dir, "totals")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "totals", resp.Data.Query)
	assert.Equal(t, []string{"Id", "Total"}, resp.Data.Columns)
	require.Len(t, resp.Data.Rows, 3)
	assert.Equal(t, map[string]any{"Id": float64(1), "Total": 12.5}, resp.Data.Rows[0])
	assert.Equal(t, map[string]any{"Id": float64(3), "Total": float64(30)}, resp.Data.Rows[2])
}

func TestQuery_ScalarSelection(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})
	config := newShopDB(t)

	out, err := execute(t, "--config", config, "--format", "json", "query", dir, "names")
	require.NoError(t, err)

	var resp struct {
		Data QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"value"}, resp.Data.Columns)
	require.Len(t, resp.Data.Rows, 2)
	assert.Equal(t, "ann", resp.Data.Rows[0]["value"])
	assert.Equal(t, "bob", resp.Data.Rows[1]["value"])
}

func TestQuery_Entities(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec, "customers.cue": customersSpec})
	config := newShopDB(t)

	out, err := execute(t, "--config", config, "--format", "json", "query", dir, "customers")
	require.NoError(t, err)

	var resp struct {
		Data QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"Id", "Name"}, resp.Data.Columns)
	require.Len(t, resp.Data.Rows, 2)
	assert.Equal(t, map[string]any{"Id": float64(2), "Name": "bob"}, resp.Data.Rows[1])
}

func TestQuery_UnknownName(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})
	config := newShopDB(t)

	out, err := execute(t, "--config", config, "query", dir, "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeUnknownName)
	assert.Contains(t, out, "Error [E009]")
}

func TestQuery_DatabaseUnavailable(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})
	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "shop.db")
	config := writeConfig(t, fmt.Sprintf("driver: sqlite3\nschema: main\ndsn: %s\n", missing))

	_, err := execute(t, "--config", config, "query", dir, "totals")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeDatabase)
}

func TestExplain_UnknownName(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})
	config := writeConfig(t, postgresConfig)

	_, err := execute(t, "--config", config, "explain", dir, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeUnknownName)
}
