package compositionreport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Error(t *testing.T) {
	report := Report{Phase: "merge"}
	report.AddError(ErrFieldTypeConflict("T.f", []string{"a", "b"}, []string{"Int", "String"}))
	report.AddError(ErrEmptySubgraphSet())

	assert.Equal(t, `merge:
[FIELD_TYPE_CONFLICT] T.f: incompatible types: "Int" in subgraph "a", "String" in subgraph "b"
[EMPTY_SUBGRAPH_SET] cannot compose an empty set of subgraphs`, report.Error())
}

func TestReport_Err(t *testing.T) {
	t.Run("nil without errors", func(t *testing.T) {
		report := Report{}
		report.AddHint(HintOrphanType("Orphan"))
		assert.NoError(t, report.Err())
	})

	t.Run("report with errors", func(t *testing.T) {
		report := Report{}
		report.AddError(ErrDuplicateSubgraphName("A", 2))
		err := report.Err()
		require.Error(t, err)

		extracted, ok := FromError(fmt.Errorf("compose: %w", err))
		require.True(t, ok)
		assert.Len(t, extracted.ErrorsOfKind(ErrorKindDuplicateSubgraphName), 1)
		assert.Equal(t, []string{"A"}, extracted.Errors[0].Subgraphs)
	})
}

func TestFromError(t *testing.T) {
	runFromError := func(err error, expectedOk bool) func(t *testing.T) {
		return func(t *testing.T) {
			_, ok := FromError(err)
			assert.Equal(t, expectedOk, ok)
		}
	}

	t.Run("plain error is not a report", runFromError(errors.New("plain"), false))
	t.Run("report is found", runFromError(Report{Errors: []CompositionError{ErrEmptySubgraphSet()}}, true))
	t.Run("wrapped report is found", runFromError(fmt.Errorf("outer: %w", Report{}), true))
}

func TestReport_Sort(t *testing.T) {
	report := Report{}
	report.AddError(ErrTypeKindMismatch("User", []string{"a", "b"}, []string{"OBJECT", "INTERFACE"}))
	report.AddError(ErrInvalidFieldSharing("Product.name", []string{"b", "a"}, []string{"b"}))
	report.AddError(ErrEmptySubgraphSet())
	report.AddHint(HintOrphanType("Zeta"))
	report.AddHint(HintOrphanType("Alpha"))

	report.Sort()

	assert.Equal(t, "", report.Errors[0].Coordinate)
	assert.Equal(t, "Product.name", report.Errors[1].Coordinate)
	assert.Equal(t, []string{"a", "b"}, report.Errors[1].Subgraphs)
	assert.Equal(t, "User", report.Errors[2].Coordinate)
	assert.Equal(t, "Alpha", report.Hints[0].Coordinate)
	assert.Equal(t, "Zeta", report.Hints[1].Coordinate)
}

func TestReport_Append(t *testing.T) {
	report := Report{Phase: "validate"}
	other := Report{Phase: "other"}
	other.AddError(ErrInvalidGraphQL("accounts", "unexpected }"))
	other.AddHint(HintOrphanType("Thing"))

	report.Append(other)

	assert.Equal(t, "validate", report.Phase)
	assert.True(t, report.HasErrors())
	assert.True(t, report.HasHints())

	report.Reset()
	assert.False(t, report.HasErrors())
	assert.False(t, report.HasHints())
}

func TestHints(t *testing.T) {
	hint := HintInconsistentEnumValues("Color", []string{"Z", "Y"}, []string{"b", "a"})
	assert.Equal(t, HintKindInconsistentEnumValue, hint.Kind)
	assert.Equal(t, []string{"a", "b"}, hint.Subgraphs)
	assert.Contains(t, hint.Message, "Y, Z")
	assert.Equal(t, "[INCONSISTENT_ENUM_VALUE] Color: "+hint.Message, hint.String())
}
