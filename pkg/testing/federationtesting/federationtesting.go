// Package federationtesting provides the subgraphs of a small federated shop for tests:
// accounts, products and reviews are federation 2 subgraphs, inventory still uses
// federation 1 syntax.
package federationtesting

import (
	"embed"
	"path"

	"github.com/wundergraph/fedcomposer/pkg/federation/subgraph"
)

type Upstream string

const (
	UpstreamAccounts  Upstream = "accounts"
	UpstreamInventory Upstream = "inventory"
	UpstreamProducts  Upstream = "products"
	UpstreamReviews   Upstream = "reviews"
)

// Upstreams lists all subgraphs of the shop.
var Upstreams = []Upstream{UpstreamAccounts, UpstreamInventory, UpstreamProducts, UpstreamReviews}

//go:embed */schema.graphqls
var schemas embed.FS

func LoadTestingSubgraphSDL(upstream Upstream) ([]byte, error) {
	return schemas.ReadFile(path.Join(string(upstream), "schema.graphqls"))
}

func URL(upstream Upstream) string {
	return "http://" + string(upstream) + ":4000/graphql"
}

// InitialSubgraphs parses the SDL of the given upstreams, of all upstreams if none are given.
func InitialSubgraphs(upstreams ...Upstream) ([]*subgraph.Initial, error) {
	if len(upstreams) == 0 {
		upstreams = Upstreams
	}
	out := make([]*subgraph.Initial, 0, len(upstreams))
	for _, upstream := range upstreams {
		sdl, err := LoadTestingSubgraphSDL(upstream)
		if err != nil {
			return nil, err
		}
		initial, err := subgraph.Parse(string(upstream), URL(upstream), string(sdl))
		if err != nil {
			return nil, err
		}
		out = append(out, initial)
	}
	return out, nil
}
