package testutil

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares doc against testdata/golden/<name>.golden in the
// calling package's directory.
//
// To regenerate golden files, run the package tests with -update.
func AssertGolden(t *testing.T, name, doc string) {
	t.Helper()
	AssertGoldenAt(t, "testdata/golden", name, doc)
}

// AssertGoldenAt is AssertGolden with an explicit fixture directory, for
// tests that check output owned by another package.
func AssertGoldenAt(t *testing.T, fixtureDir, name, doc string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir(fixtureDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(doc))
}
