package satisfiability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/fedcomposer/internal/pkg/subgraphtest"
	"github.com/wundergraph/fedcomposer/pkg/composition/merge"
	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

func mergeSources(t *testing.T, a, b string) *merge.Schema {
	t.Helper()
	validated := subgraphtest.MustValidatedAll(t,
		subgraphtest.Source{Name: "a", SDL: a},
		subgraphtest.Source{Name: "b", SDL: b},
	)
	subgraphs := make([]*schema.Subgraph, len(validated))
	for i := range validated {
		subgraphs[i] = validated[i].Subgraph()
	}
	merged, report := merge.Merge(subgraphs, merge.Options{})
	require.False(t, report.HasErrors(), report.Error())
	return merged
}

func TestChecker_Check(t *testing.T) {
	run := func(a, b string, expectedErrors []compositionreport.ErrorKind, expectedCoordinates []string) func(t *testing.T) {
		return func(t *testing.T) {
			report := New(Policy{}).Check(mergeSources(t, a, b))
			var kinds []compositionreport.ErrorKind
			var coordinates []string
			for _, err := range report.Errors {
				kinds = append(kinds, err.Kind)
				coordinates = append(coordinates, err.Coordinate)
			}
			assert.Equal(t, expectedErrors, kinds)
			assert.Equal(t, expectedCoordinates, coordinates)
		}
	}

	t.Run("key jump to the resolving subgraph", run(
		`type Query { t: T } type T @key(fields: "id") { id: ID! }`,
		`type T @key(fields: "id") { id: ID! name: String }`,
		nil, nil))
	t.Run("no key in the resolving subgraph", run(
		`type Query { t: T } type T @key(fields: "id") { id: ID! }`,
		`type T { id: ID! @shareable name: String }`,
		[]compositionreport.ErrorKind{compositionreport.ErrorKindUnreachableField},
		[]string{"T.name"}))
	t.Run("key fields cannot be selected", run(
		`type Query { t: T } type T @key(fields: "id") { id: ID! }`,
		`type T @key(fields: "upc") { upc: ID! name: String }`,
		[]compositionreport.ErrorKind{compositionreport.ErrorKindUnreachableField, compositionreport.ErrorKindUnreachableField},
		[]string{"T.name", "T.upc"}))
	t.Run("key is not resolvable", run(
		`type Query { t: T } type T @key(fields: "id") { id: ID! }`,
		`type T @key(fields: "id", resolvable: false) { id: ID! name: String }`,
		[]compositionreport.ErrorKind{compositionreport.ErrorKindUnreachableField},
		[]string{"T.name"}))
	t.Run("nested key fields", run(
		`type Query { t: T } type T @key(fields: "id { upc }") { id: Id! } type Id @shareable { upc: ID! }`,
		`type T @key(fields: "id { upc }") { id: Id! name: String } type Id @shareable { upc: ID! }`,
		nil, nil))
	t.Run("provided external field", run(
		`type Query { t: T @provides(fields: "name") } type T @key(fields: "id") { id: ID! name: String @external }`,
		`type T @key(fields: "id", resolvable: false) { id: ID! name: String @shareable }`,
		nil, nil))
	t.Run("external field without provides", run(
		`type Query { t: T } type T @key(fields: "id") { id: ID! name: String @external }`,
		`type T @key(fields: "id", resolvable: false) { id: ID! name: String @shareable }`,
		[]compositionreport.ErrorKind{compositionreport.ErrorKindUnreachableField},
		[]string{"T.name"}))
	t.Run("union members", run(
		`type Query { media: [Media] } union Media = Book type Book @key(fields: "id") { id: ID! }`,
		`type Book @key(fields: "id") { id: ID! title: String }`,
		nil, nil))
	t.Run("interface implementations", run(
		`type Query { node: Node } interface Node { id: ID! } type User implements Node @key(fields: "id") { id: ID! }`,
		`type User @key(fields: "id") { id: ID! name: String }`,
		nil, nil))
	t.Run("mutation root", run(
		`type Query { a: Int } type Mutation { create: T } type T @key(fields: "id") { id: ID! }`,
		`type T @key(fields: "id") { id: ID! name: String }`,
		nil, nil))
	t.Run("types unreachable from roots are not checked", run(
		`type Query { a: Int }`,
		`type Orphan { x: Int }`,
		nil, nil))
	t.Run("root fields of every subgraph", run(
		`type Query { a: Int }`,
		`type Query { b: Account } type Account { name: String }`,
		nil, nil))
}

func TestChecker_UnreachableFieldMessage(t *testing.T) {
	report := New(Policy{}).Check(mergeSources(t,
		`type Query { t: T } type T @key(fields: "id") { id: ID! }`,
		`type T { id: ID! @shareable name: String }`,
	))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, []string{"b"}, report.Errors[0].Subgraphs)
	assert.Contains(t, report.Errors[0].Message, `only reachable in "a"`)
}

func TestChecker_Requires(t *testing.T) {
	const (
		owner = `
			type Query { t: T }
			type T @key(fields: "id") {
				id: ID!
				weight: Int @external
				shipping: Int @requires(fields: "weight")
			}
		`
		resolvable   = `type T @key(fields: "id") { id: ID! weight: Int }`
		unresolvable = `type T @key(fields: "id", resolvable: false) { id: ID! weight: Int }`
	)

	t.Run("requires satisfied through a key", func(t *testing.T) {
		report := New(Policy{}).Check(mergeSources(t, owner, resolvable))
		assert.False(t, report.HasErrors(), report.Error())
		assert.False(t, report.HasHints())
	})

	t.Run("unsatisfied requires as hint", func(t *testing.T) {
		report := New(Policy{UnsatisfiedRequires: RequiresAsHint}).Check(mergeSources(t, owner, unresolvable))
		hints := report.HintsOfKind(compositionreport.HintKindFragileRequiresChain)
		require.Len(t, hints, 1)
		assert.Equal(t, "T.shipping", hints[0].Coordinate)
		assert.Equal(t, []string{"a"}, hints[0].Subgraphs)
		assert.Empty(t, report.ErrorsOfKind(compositionreport.ErrorKindUnsatisfiableRequires))

		unreachable := report.ErrorsOfKind(compositionreport.ErrorKindUnreachableField)
		require.Len(t, unreachable, 1)
		assert.Equal(t, "T.weight", unreachable[0].Coordinate)
	})

	t.Run("unsatisfied requires as error", func(t *testing.T) {
		report := New(Policy{UnsatisfiedRequires: RequiresAsError}).Check(mergeSources(t, owner, unresolvable))
		errs := report.ErrorsOfKind(compositionreport.ErrorKindUnsatisfiableRequires)
		require.Len(t, errs, 1)
		assert.Equal(t, "T.shipping", errs[0].Coordinate)
		assert.Empty(t, report.HintsOfKind(compositionreport.HintKindFragileRequiresChain))
	})
}

func TestChecker_Concurrency(t *testing.T) {
	merged := mergeSources(t,
		`type Query { t: T } type Mutation { t: T } type T @key(fields: "id") { id: ID! }`,
		`type Subscription { t: T } type T @key(fields: "id") { id: ID! name: String secret: Secret } type Secret { code: String }`,
	)
	sequential := New(Policy{}, WithConcurrency(1)).Check(merged)
	parallel := New(Policy{}).Check(merged)
	assert.Equal(t, sequential, parallel)
	assert.False(t, parallel.HasErrors(), parallel.Error())
}

func TestBuildGraph(t *testing.T) {
	merged := mergeSources(t,
		`type Query { t: T @provides(fields: "name") } type T @key(fields: "id") { id: ID! name: String @external }`,
		`type T @key(fields: "id") { id: ID! name: String @shareable }`,
	)
	g := buildGraph(merged)

	provided, ok := g.index[state{subgraph: "a", typeName: "T", provided: g.parse("name")}.key()]
	require.True(t, ok)
	base := g.index[state{subgraph: "a", typeName: "T"}.key()]
	other := g.index[state{subgraph: "b", typeName: "T"}.key()]

	assert.Equal(t, edgeKindKey, g.kinds[[2]int64{provided, other}])
	assert.Equal(t, edgeKindKey, g.kinds[[2]int64{base, other}])
	assert.Equal(t, edgeKindKey, g.kinds[[2]int64{other, base}])

	reached := g.walk(g.roots["Query"], nil)
	assert.Contains(t, reached, provided)
	assert.Contains(t, reached, other)
	assert.Contains(t, reached, base, "jumping back from b reaches the state without provided fields")
}

func TestParseRequiresPolicy(t *testing.T) {
	policy, err := ParseRequiresPolicy("error")
	require.NoError(t, err)
	assert.Equal(t, RequiresAsError, policy)
	assert.Equal(t, "error", policy.String())

	policy, err = ParseRequiresPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RequiresAsHint, policy)

	_, err = ParseRequiresPolicy("fatal")
	assert.Error(t, err)
}
