package federationtesting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialSubgraphs(t *testing.T) {
	initial, err := InitialSubgraphs()
	require.NoError(t, err)
	require.Len(t, initial, len(Upstreams))
	for i, upstream := range Upstreams {
		assert.Equal(t, string(upstream), initial[i].Name())
		assert.Equal(t, URL(upstream), initial[i].URL())
	}

	_, err = LoadTestingSubgraphSDL("shipping")
	assert.Error(t, err)
}
