package testutil

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGoldenSQL compares rendered SQL text against
// testdata/golden/{name}.golden in the calling package.
//
// To regenerate golden files, run the package tests with -update.
func AssertGoldenSQL(t *testing.T, name, text string) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(text))
}
