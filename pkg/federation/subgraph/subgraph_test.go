package subgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/directives"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

func expand(t *testing.T, name, sdl string) *Expanded {
	t.Helper()
	initial, err := Parse(name, "http://"+name, sdl)
	require.NoError(t, err)
	expanded, err := initial.Expand(directives.Default)
	require.NoError(t, err)
	return expanded
}

func validate(t *testing.T, name, sdl string) (*Validated, error) {
	t.Helper()
	return expand(t, name, sdl).Upgrade().Validate(directives.Default)
}

func requireReport(t *testing.T, err error) compositionreport.Report {
	t.Helper()
	require.Error(t, err)
	report, ok := compositionreport.FromError(err)
	require.True(t, ok)
	return report
}

func TestParse(t *testing.T) {
	t.Run("valid sdl", func(t *testing.T) {
		initial, err := Parse("users", "http://users", `type Query { me: String }`)
		require.NoError(t, err)
		assert.Equal(t, "users", initial.Name())
		assert.Equal(t, "http://users", initial.URL())
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := Parse("users", "", `type Query { me: }`)
		report := requireReport(t, err)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, compositionreport.ErrorKindInvalidGraphQL, report.Errors[0].Kind)
		assert.Equal(t, []string{"users"}, report.Errors[0].Subgraphs)
	})
}

func TestInitial_Expand(t *testing.T) {
	t.Run("link imports and aliases", func(t *testing.T) {
		expanded := expand(t, "users", `
			extend schema @link(url: "https://specs.apollo.dev/federation/v2.3", import: ["@key", { name: "@shareable", as: "@share" }])

			type Query {
				users: [User] @share
			}

			type User @key(fields: "id") {
				id: ID!
				name: String @federation__tag(name: "public")
			}
		`)
		s := expanded.Schema()
		assert.Equal(t, 2, s.FederationVersion)

		query, ok := s.TypeByName("Query")
		require.True(t, ok)
		assert.True(t, query.Field("users").Shareable)

		user, ok := s.TypeByName("User")
		require.True(t, ok)
		assert.Equal(t, []schema.Key{{Fields: "id", Resolvable: true}}, user.Keys)
		assert.Equal(t, []string{"public"}, user.Field("name").Tags)
	})

	t.Run("custom link prefix", func(t *testing.T) {
		expanded := expand(t, "users", `
			extend schema @link(url: "https://specs.apollo.dev/federation/v2.3", as: "fed")

			type User @fed__key(fields: "id", resolvable: false) {
				id: ID!
			}
		`)
		user, ok := expanded.Schema().TypeByName("User")
		require.True(t, ok)
		assert.Equal(t, []schema.Key{{Fields: "id", Resolvable: false}}, user.Keys)
	})

	t.Run("extensions are merged into their definition", func(t *testing.T) {
		expanded := expand(t, "users", `
			type Query { me: User }
			type User { id: ID! }
			extend type User implements Node @key(fields: "id") { name: String }
			interface Node { id: ID! }
		`)
		user, ok := expanded.Schema().TypeByName("User")
		require.True(t, ok)
		assert.False(t, user.Extension)
		assert.Len(t, user.Fields, 2)
		assert.Equal(t, []string{"Node"}, user.Interfaces)
		assert.Len(t, user.Keys, 1)
		assert.Equal(t, 2, expanded.Schema().FederationVersion)
	})

	t.Run("root types are renamed and federation internals removed", func(t *testing.T) {
		expanded := expand(t, "users", `
			schema { query: RootQuery }
			scalar _Any
			scalar _FieldSet
			type _Service { sdl: String }
			union _Entity = User
			type RootQuery {
				me: User
				_service: _Service!
				_entities(representations: [_Any!]!): [_Entity]!
			}
			type User @key(fields: "id") { id: ID! self: RootQuery }
		`)
		s := expanded.Schema()
		assert.Equal(t, "Query", s.QueryType)
		_, ok := s.TypeByName("RootQuery")
		assert.False(t, ok)
		query, ok := s.TypeByName("Query")
		require.True(t, ok)
		require.Len(t, query.Fields, 1)
		assert.Equal(t, "me", query.Fields[0].Name)
		user, _ := s.TypeByName("User")
		assert.Equal(t, "Query", user.Field("self").Type.Name())
		for _, internal := range []string{"_Any", "_FieldSet", "_Service", "_Entity"} {
			_, ok := s.TypeByName(internal)
			assert.False(t, ok, internal)
		}
	})

	t.Run("query with only federation fields is removed", func(t *testing.T) {
		expanded := expand(t, "users", `
			type Query { _service: _Service! }
			type _Service { sdl: String }
			type User @key(fields: "id") { id: ID! }
		`)
		assert.Equal(t, "", expanded.Schema().QueryType)
		_, ok := expanded.Schema().TypeByName("Query")
		assert.False(t, ok)
	})

	t.Run("custom directive definitions are kept, applications dropped", func(t *testing.T) {
		expanded := expand(t, "users", `
			"caching hints"
			directive @cacheControl(maxAge: Int) on FIELD_DEFINITION
			type Query { me: String @cacheControl(maxAge: 10) @deprecated }
		`)
		s := expanded.Schema()
		require.Len(t, s.Directives, 1)
		assert.Equal(t, "cacheControl", s.Directives[0].Name)
		assert.Equal(t, "caching hints", s.Directives[0].Description)
		query, _ := s.TypeByName("Query")
		require.NotNil(t, query.Field("me").Deprecation)
		assert.Equal(t, "No longer supported", *query.Field("me").Deprecation)
	})

	runExpandError := func(sdl, expectedMessage string) func(t *testing.T) {
		return func(t *testing.T) {
			initial, err := Parse("users", "", sdl)
			require.NoError(t, err)
			_, err = initial.Expand(directives.Default)
			report := requireReport(t, err)
			require.NotEmpty(t, report.Errors)
			assert.Equal(t, compositionreport.ErrorKindInvalidGraphQL, report.Errors[0].Kind)
			assert.Contains(t, report.Errors[0].Message, expectedMessage)
		}
	}

	t.Run("undefined directive", runExpandError(`type Query { me: String @auth }`, "directive @auth is not defined"))
	t.Run("duplicate type", runExpandError(`type Query { a: String } type Query { b: String }`, `type "Query" is defined more than once`))
	t.Run("duplicate field", runExpandError(`type Query { a: String a: Int }`, `"a" is defined more than once on type "Query"`))
	t.Run("extension of another kind", runExpandError(`type User { id: ID } extend interface User { name: String }`, `cannot extend OBJECT "User"`))
	t.Run("undefined root type", runExpandError(`schema { query: Root } type Query { a: String }`, `root query type "Root" is not defined`))
}

func TestExpanded_Upgrade(t *testing.T) {
	t.Run("federation 1", func(t *testing.T) {
		expanded := expand(t, "reviews", `
			type Query { latest: Review }
			type Review { body: String author: User }
			extend type User @key(fields: "id") {
				id: ID! @external
				reviews: [Review]
			}
		`)
		require.Equal(t, 1, expanded.Schema().FederationVersion)

		upgraded := expanded.Upgrade()
		assert.Equal(t, 1, upgraded.UpgradedFrom())
		assert.Equal(t, 2, upgraded.Schema().FederationVersion)

		user, ok := upgraded.Schema().TypeByName("User")
		require.True(t, ok)
		assert.True(t, user.Extension)
		assert.False(t, user.Field("id").External)
		assert.True(t, user.Field("id").Shareable)
		assert.True(t, user.Field("reviews").Shareable)

		review, _ := upgraded.Schema().TypeByName("Review")
		assert.True(t, review.Field("body").Shareable)
	})

	t.Run("expanded subgraph is left untouched", func(t *testing.T) {
		expanded := expand(t, "inventory", `
			extend type User @key(fields: "id") {
				id: ID! @external
				stock: Int
			}
		`)

		first := expanded.Upgrade()
		second := expanded.Upgrade()
		assert.Equal(t, 1, first.UpgradedFrom())
		assert.Equal(t, 1, second.UpgradedFrom())
		assert.Equal(t, 1, expanded.Schema().FederationVersion)

		user, _ := expanded.Schema().TypeByName("User")
		assert.True(t, user.Field("id").External)
		assert.False(t, user.Field("stock").Shareable)

		upgradedUser, _ := second.Schema().TypeByName("User")
		assert.False(t, upgradedUser.Field("id").External)
		assert.True(t, upgradedUser.Field("stock").Shareable)
		assert.NotSame(t, user, upgradedUser)
	})

	t.Run("federation 2 is unchanged", func(t *testing.T) {
		upgraded := expand(t, "users", `type Query { me: String }`).Upgrade()
		assert.Equal(t, 2, upgraded.UpgradedFrom())
		query, _ := upgraded.Schema().TypeByName("Query")
		assert.False(t, query.Field("me").Shareable)
	})
}

func TestUpgraded_Validate(t *testing.T) {
	t.Run("valid subgraph", func(t *testing.T) {
		validated, err := validate(t, "products", `
			type Query { products: [Product!] @provides(fields: "name") }
			type Product @key(fields: "sku") @key(fields: "upc details { id }") {
				sku: String!
				upc: String!
				details: Details
				name: String! @external
				weight: Int @external
				shipping: Int @requires(fields: "weight")
			}
			type Details { id: ID! }
		`)
		require.NoError(t, err)
		assert.Equal(t, "products", validated.Name())
		assert.Equal(t, "http://products", validated.URL())
		assert.Equal(t, "products", validated.Subgraph().Name)
		_, ok := validated.Schema().TypeByName("Product")
		assert.True(t, ok)
	})

	runValidateError := func(sdl string, expectedKind compositionreport.ErrorKind, expectedMessage string) func(t *testing.T) {
		return func(t *testing.T) {
			_, err := validate(t, "products", sdl)
			report := requireReport(t, err)
			require.Len(t, report.Errors, 1)
			assert.Equal(t, expectedKind, report.Errors[0].Kind)
			assert.Contains(t, report.Errors[0].Message, expectedMessage)
		}
	}

	t.Run("unknown key field", runValidateError(
		`type Product @key(fields: "uuid") { id: ID! }`,
		compositionreport.ErrorKindInvalidFieldSet, `field "uuid" does not exist on type "Product"`))
	t.Run("key on composite field without selection", runValidateError(
		`type Product @key(fields: "details") { details: Details } type Details { id: ID! }`,
		compositionreport.ErrorKindInvalidFieldSet, `needs a selection set`))
	t.Run("selection on leaf field", runValidateError(
		`type Product @key(fields: "id { x }") { id: ID! }`,
		compositionreport.ErrorKindInvalidFieldSet, `cannot have a selection set`))
	t.Run("requires non external field", runValidateError(
		`type Product @key(fields: "id") { id: ID! weight: Int shipping: Int @requires(fields: "weight") }`,
		compositionreport.ErrorKindInvalidFieldSet, `field "weight" must be marked @external`))
	t.Run("provides on leaf field", runValidateError(
		`type Query { name: String @provides(fields: "x") }`,
		compositionreport.ErrorKindInvalidFieldSet, `not a composite type`))
	t.Run("unsupported directive", runValidateError(
		`type Media @key(fields: "id") @interfaceObject { id: ID! }`,
		compositionreport.ErrorKindInvalidFederationDirective, `directive @interfaceObject is not supported`))
	t.Run("directive at a wrong location", runValidateError(
		`type Query { me: String @key(fields: "me") }`,
		compositionreport.ErrorKindInvalidFederationDirective, `directive @key is not allowed on FIELD_DEFINITION`))
	t.Run("undefined type", runValidateError(
		`type Query { me: User }`,
		compositionreport.ErrorKindInvalidGraphQL, `Query.me: type "User" is not defined`))
	t.Run("input type in output position", runValidateError(
		`type Query { me: UserInput } input UserInput { id: ID }`,
		compositionreport.ErrorKindInvalidGraphQL, `input type "UserInput" cannot be used as an output type`))
	t.Run("union of scalars", runValidateError(
		`type Query { a: A } union A = String`,
		compositionreport.ErrorKindInvalidGraphQL, `union member "String" is not an object type`))
}
