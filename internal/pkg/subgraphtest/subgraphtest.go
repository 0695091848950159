// Package subgraphtest builds validated subgraphs from SDL in tests.
package subgraphtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wundergraph/fedcomposer/pkg/federation/directives"
	"github.com/wundergraph/fedcomposer/pkg/federation/subgraph"
)

// Source is the SDL of one subgraph.
type Source struct {
	Name string
	SDL  string
}

func MustInitial(t testing.TB, name, sdl string) *subgraph.Initial {
	t.Helper()
	initial, err := subgraph.Parse(name, "http://"+name+".local/graphql", sdl)
	require.NoError(t, err)
	return initial
}

// MustValidated runs a subgraph through all subgraph phases and fails the test on any error.
func MustValidated(t testing.TB, name, sdl string) *subgraph.Validated {
	t.Helper()
	expanded, err := MustInitial(t, name, sdl).Expand(directives.Default)
	require.NoError(t, err)
	validated, err := expanded.Upgrade().Validate(directives.Default)
	require.NoError(t, err)
	return validated
}

func MustValidatedAll(t testing.TB, sources ...Source) []*subgraph.Validated {
	t.Helper()
	out := make([]*subgraph.Validated, 0, len(sources))
	for _, source := range sources {
		out = append(out, MustValidated(t, source.Name, source.SDL))
	}
	return out
}

func MustInitialAll(t testing.TB, sources ...Source) []*subgraph.Initial {
	t.Helper()
	out := make([]*subgraph.Initial, 0, len(sources))
	for _, source := range sources {
		out = append(out, MustInitial(t, source.Name, source.SDL))
	}
	return out
}
