package composition

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/fedcomposer/pkg/supergraph"
	"github.com/wundergraph/fedcomposer/pkg/testing/federationtesting"
)

func composeShop(t *testing.T, upstreams ...federationtesting.Upstream) *supergraph.Supergraph {
	t.Helper()
	initial, err := federationtesting.InitialSubgraphs(upstreams...)
	require.NoError(t, err)
	composed, err := Compose(initial)
	require.NoError(t, err)
	return composed
}

func TestCompose_Shop(t *testing.T) {
	composed := composeShop(t)
	assert.True(t, composed.Verified())
	assert.Empty(t, composed.Hints())

	s := composed.Schema()
	assert.Equal(t, []string{"Query", "Mutation", "Subscription"}, s.RootTypeNames())

	product, ok := s.TypeByName("Product")
	require.True(t, ok)
	assert.Equal(t, []string{"accounts", "inventory", "products", "reviews"}, product.Subgraphs())
	source, ok := product.Source("inventory")
	require.True(t, ok)
	assert.True(t, source.Extension, "inventory extends Product in federation 1 syntax")

	shipping := product.Field("shippingEstimate")
	require.NotNil(t, shipping)
	inventory, _ := shipping.Source("inventory")
	assert.Equal(t, "weight", inventory.Requires)
	assert.Equal(t, []string{"products"}, product.Field("weight").ResolvingSubgraphs())
	assert.Equal(t, []string{"accounts", "inventory", "products", "reviews"}, product.Field("upc").ResolvingSubgraphs())

	user, _ := s.TypeByName("User")
	assert.Equal(t, []string{"accounts"}, user.Field("username").ResolvingSubgraphs())
	review, _ := s.TypeByName("Review")
	author, _ := review.Field("author").Source("reviews")
	assert.Equal(t, "username", author.Provides)
}

func TestCompose_ShopOrderIndependence(t *testing.T) {
	forward := composeShop(t,
		federationtesting.UpstreamAccounts,
		federationtesting.UpstreamInventory,
		federationtesting.UpstreamProducts,
		federationtesting.UpstreamReviews,
	)
	backward := composeShop(t,
		federationtesting.UpstreamReviews,
		federationtesting.UpstreamProducts,
		federationtesting.UpstreamInventory,
		federationtesting.UpstreamAccounts,
	)
	if diff := cmp.Diff(forward.SDL(), backward.SDL()); diff != "" {
		t.Errorf("supergraph depends on subgraph order (-forward +backward):\n%s", diff)
	}
	assert.Equal(t, forward.Fingerprint(), backward.Fingerprint())
}

func TestCompose_ShopWithoutProducts(t *testing.T) {
	initial, err := federationtesting.InitialSubgraphs(
		federationtesting.UpstreamAccounts,
		federationtesting.UpstreamInventory,
		federationtesting.UpstreamReviews,
	)
	require.NoError(t, err)

	// weight is @external in inventory and no other subgraph resolves it
	_, err = Compose(initial)
	report := requireReport(t, err, PhaseMerged)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "Product.weight", report.Errors[0].Coordinate)
}
