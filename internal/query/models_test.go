package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warning-explosive/Core-sub004/internal/database"
	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
	"github.com/warning-explosive/Core-sub004/internal/testutil"
)

type Details struct {
	Note string `json:"note"`
	Gift bool   `json:"gift"`
}

type Order struct {
	ID         int64    `orm:"Id,pk"`
	CustomerID int64    `orm:"CustomerId"`
	Total      float64  `orm:"Total"`
	Flags      uint8    `orm:"Flags,flags"`
	Details    *Details `orm:"Details,json"`
	Version    int64    `orm:"Version,version"`
}

type Author struct {
	ID   int64  `orm:"Id,pk"`
	Name string `orm:"Name"`
}

type Tag struct {
	ID   int64  `orm:"Id,pk"`
	Text string `orm:"Text"`
}

type Post struct {
	ID      int64   `orm:"Id,pk"`
	Title   string  `orm:"Title"`
	Author  *Author `orm:"Author"`
	Tags    []*Tag  `orm:"Tags,mtm"`
	Version int64   `orm:"Version,version"`
}

type Person struct {
	ID     int64   `orm:"Id,pk"`
	Name   string  `orm:"Name"`
	Friend *Person `orm:"Friend"`
}

type OrderTotal struct {
	ID    int64   `orm:"Id"`
	Total float64 `orm:"Total"`
}

var schema = []string{
	`CREATE TABLE "Order" ("Id" INTEGER PRIMARY KEY, "CustomerId" INTEGER NOT NULL, "Total" REAL NOT NULL,
		"Flags" TEXT NOT NULL, "Details" TEXT, "Version" INTEGER NOT NULL)`,
	`CREATE TABLE "Author" ("Id" INTEGER PRIMARY KEY, "Name" TEXT NOT NULL)`,
	`CREATE TABLE "Tag" ("Id" INTEGER PRIMARY KEY, "Text" TEXT NOT NULL)`,
	`CREATE TABLE "Post" ("Id" INTEGER PRIMARY KEY, "Title" TEXT NOT NULL, "Author" INTEGER, "Version" INTEGER NOT NULL)`,
	`CREATE TABLE "Post_Tags_Tag" ("Left" INTEGER NOT NULL, "Right" INTEGER NOT NULL, PRIMARY KEY ("Left", "Right"))`,
	`CREATE TABLE "Person" ("Id" INTEGER PRIMARY KEY, "Name" TEXT NOT NULL, "Friend" INTEGER)`,
}

// newSQLiteProvider returns a provider over a fresh in-memory database.
// The first transaction gets version 7.
func newSQLiteProvider(t *testing.T, opts ...Option) *Provider {
	t.Helper()

	db := database.New(testutil.NewSQLite(t, schema...), database.SQLite,
		database.WithVersions(testutil.NewDeterministicClockAt(6)))
	p, err := NewProvider(db, model.NewProvider("main"), opts...)
	require.NoError(t, err)
	return p
}

func begin(t *testing.T, p *Provider) *Session {
	t.Helper()

	s, err := p.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Rollback(context.Background()) })
	return s
}

// seed inserts entities in their own committed transaction.
func seed[T any](t *testing.T, p *Provider, entities ...T) {
	t.Helper()

	ctx := context.Background()
	s := begin(t, p)
	_, err := Insert(ctx, s, sqlexpr.InsertDefault, entities...)
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx))
}

// seedOrders commits five orders, three of them for customer 5.
func seedOrders(t *testing.T, p *Provider) {
	t.Helper()

	seed(t, p,
		&Order{ID: 1, CustomerID: 5, Total: 10, Flags: 5, Details: &Details{Note: "first", Gift: true}},
		&Order{ID: 2, CustomerID: 7, Total: 20},
		&Order{ID: 3, CustomerID: 5, Total: 30},
		&Order{ID: 4, CustomerID: 7, Total: 40},
		&Order{ID: 5, CustomerID: 5, Total: 50, Flags: 2},
	)
}

func customerIs(id int64) func(o *expr.Parameter) expr.Node {
	return func(o *expr.Parameter) expr.Node {
		return expr.Equal(expr.Field(o, "CustomerID"), expr.Const(id))
	}
}

func byID(o *expr.Parameter) expr.Node { return expr.Field(o, "ID") }
