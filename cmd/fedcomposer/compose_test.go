package main

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
)

const (
	usersSDL = `
type Query {
  me: User
}

type User @key(fields: "id") {
  id: ID!
  name: String
}
`
	ordersSDL = `
type User @key(fields: "id") {
  id: ID!
  orders: [Order!]
}

type Order {
  id: ID!
  total: Int
}
`
)

func writeConfig(t *testing.T, config string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "users.graphql"), []byte(usersSDL), 0o644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "orders.graphql"), []byte(ordersSDL), 0o644))
	path := filepath.Join(dir, "supergraph.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(config), 0o644))
	return path
}

const validConfig = `
subgraphs:
  - name: users
    url: http://users/graphql
    schema_files: [users.graphql]
  - name: orders
    url: http://orders/graphql
    schema_files: [orders.graphql]
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCompose(t *testing.T) {
	t.Run("supergraph", func(t *testing.T) {
		stdout, _, err := execute(t, "compose", "--config", writeConfig(t, validConfig))
		require.NoError(t, err)
		assert.Contains(t, stdout, "  @link(url: \"https://specs.apollo.dev/join/v0.3\", for: EXECUTION)\n")
		assert.Contains(t, stdout, "  ORDERS @join__graph(name: \"orders\", url: \"http://orders/graphql\")\n")
		assert.Contains(t, stdout, "  orders: [Order!] @join__field(graph: ORDERS)\n")
	})

	t.Run("api schema to file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "api.graphql")
		stdout, _, err := execute(t, "compose", "--config", writeConfig(t, validConfig), "--api-schema", "--out", out)
		require.NoError(t, err)
		assert.Empty(t, stdout)

		data, err := ioutil.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), "type User {\n  id: ID!\n  orders: [Order!]\n  name: String\n}\n")
		assert.NotContains(t, string(data), "join__")
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "compose", "--config", writeConfig(t, validConfig), "--format", "json")
		require.NoError(t, err)

		var result composeResult
		require.NoError(t, json.Unmarshal([]byte(stdout), &result))
		assert.Equal(t, "satisfiable", result.State)
		assert.Len(t, result.Fingerprint, 16)
		assert.Contains(t, result.Supergraph, "type Order")
		assert.Empty(t, result.Errors)
		assert.NotNil(t, result.Hints)
	})

	t.Run("json errors", func(t *testing.T) {
		config := writeConfig(t, `
subgraphs:
  - name: users
    schema_files: [users.graphql]
  - name: users
    schema_files: [orders.graphql]
`)
		stdout, _, err := execute(t, "compose", "--config", config, "--format", "json")
		assert.Equal(t, errCompositionFailed, err)

		var result composeResult
		require.NoError(t, json.Unmarshal([]byte(stdout), &result))
		assert.Equal(t, "pre-merge validation", result.Phase)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, compositionreport.ErrorKindDuplicateSubgraphName, result.Errors[0].Kind)
		assert.Empty(t, result.Supergraph)
	})

	t.Run("failed composition keeps the previous output file", func(t *testing.T) {
		config := writeConfig(t, `
subgraphs:
  - name: users
    schema: 'type Query { me: Missing }'
`)
		out := filepath.Join(t.TempDir(), "supergraph.graphql")
		require.NoError(t, ioutil.WriteFile(out, []byte("previous supergraph\n"), 0o644))

		_, _, err := execute(t, "compose", "--config", config, "--out", out)
		report, ok := compositionreport.FromError(err)
		require.True(t, ok)
		assert.Equal(t, compositionreport.ErrorKindInvalidGraphQL, report.Errors[0].Kind)

		stdout, _, err := execute(t, "compose", "--config", config, "--out", out, "--format", "json")
		assert.Equal(t, errCompositionFailed, err)
		var result composeResult
		require.NoError(t, json.Unmarshal([]byte(stdout), &result))
		assert.Equal(t, "validate", result.Phase)

		data, err := ioutil.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "previous supergraph\n", string(data))

		files, err := ioutil.ReadDir(filepath.Dir(out))
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("skip satisfiability", func(t *testing.T) {
		config := writeConfig(t, `
subgraphs:
  - name: entry
    schema: 'type Query { t: T } type T @key(fields: "id") { id: ID! }'
  - name: keyless
    schema: 'type T { id: ID! @shareable name: String }'
`)
		_, _, err := execute(t, "compose", "--config", config)
		report, ok := compositionreport.FromError(err)
		require.True(t, ok)
		assert.Equal(t, compositionreport.ErrorKindUnreachableField, report.Errors[0].Kind)

		stdout, stderr, err := execute(t, "compose", "--config", config, "--skip-satisfiability", "--format", "json")
		require.NoError(t, err)
		var result composeResult
		require.NoError(t, json.Unmarshal([]byte(stdout), &result))
		assert.Equal(t, "assumed-satisfiable", result.State)
		assert.Empty(t, stderr)
	})

	t.Run("hints and debug logs go to stderr", func(t *testing.T) {
		config := writeConfig(t, validConfig+`
  - name: extra
    schema: 'type Unused { x: Int }'
`)
		stdout, stderr, err := execute(t, "compose", "--config", config, "--log-level", "debug")
		require.NoError(t, err)
		assert.NotContains(t, stdout, "hint:")
		assert.Contains(t, stderr, "hint: [ORPHAN_TYPE] Unused: type is not reachable from any root operation type\n")
		assert.Contains(t, stderr, "composition phase completed")
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("FEDCOMPOSER_FORMAT", "yaml")
		_, _, err := execute(t, "compose", "--config", writeConfig(t, validConfig))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown format "yaml"`)
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, _, err := execute(t, "compose", "--config", writeConfig(t, validConfig), "--log-level", "loud")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid log level "loud"`)
	})

	t.Run("missing config", func(t *testing.T) {
		_, _, err := execute(t, "compose", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config")
	})
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}
