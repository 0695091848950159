// Package goldie wraps github.com/sebdah/goldie/v2 with the fixture layout used by this module:
// golden files live in the testdata directory of the package under test.
package goldie

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

func New(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
		goldie.WithDiffEngine(goldie.ClassicDiff),
	)
}

// Assert compares actual with testdata/<name>.golden. Run the tests with -update to rewrite
// the fixture, goldie registers that flag itself.
func Assert(t *testing.T, name string, actual []byte) {
	t.Helper()
	New(t).Assert(t, name, normalizeLineEndings(actual))
}

func normalizeLineEndings(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}
