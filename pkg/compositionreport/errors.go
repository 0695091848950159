package compositionreport

import (
	"fmt"
	"sort"
	"strings"
)

type ErrorKind string

const (
	ErrorKindEmptySubgraphSet             ErrorKind = "EMPTY_SUBGRAPH_SET"
	ErrorKindDuplicateSubgraphName        ErrorKind = "DUPLICATE_SUBGRAPH_NAME"
	ErrorKindFieldTypeConflict            ErrorKind = "FIELD_TYPE_CONFLICT"
	ErrorKindDirectiveArgumentMismatch    ErrorKind = "DIRECTIVE_ARGUMENT_MISMATCH"
	ErrorKindUnmergeableScalarOrDirective ErrorKind = "UNMERGEABLE_SCALAR_OR_DIRECTIVE"
	ErrorKindUnreachableField             ErrorKind = "UNREACHABLE_FIELD"
	ErrorKindInvalidSupergraphStructure   ErrorKind = "INVALID_SUPERGRAPH_STRUCTURE"
	ErrorKindInvalidGraphQL               ErrorKind = "INVALID_GRAPHQL"
	ErrorKindInvalidFederationDirective   ErrorKind = "INVALID_FEDERATION_DIRECTIVE"
	ErrorKindInvalidFieldSet              ErrorKind = "INVALID_FIELD_SET"
	ErrorKindTypeKindMismatch             ErrorKind = "TYPE_KIND_MISMATCH"
	ErrorKindInvalidFieldSharing          ErrorKind = "INVALID_FIELD_SHARING"
	ErrorKindFieldArgumentMismatch        ErrorKind = "FIELD_ARGUMENT_MISMATCH"
	ErrorKindEnumValueMismatch            ErrorKind = "ENUM_VALUE_MISMATCH"
	ErrorKindEmptyMergedType              ErrorKind = "EMPTY_MERGED_TYPE"
	ErrorKindInvalidOverride              ErrorKind = "INVALID_OVERRIDE"
	ErrorKindUnsatisfiableRequires        ErrorKind = "UNSATISFIABLE_REQUIRES"
	ErrorKindExternalMissingOnBase        ErrorKind = "EXTERNAL_MISSING_ON_BASE"
)

func newError(kind ErrorKind, coordinate string, subgraphs []string, format string, args ...interface{}) CompositionError {
	return CompositionError{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Coordinate: coordinate,
		Subgraphs:  sortedCopy(subgraphs),
	}
}

func ErrEmptySubgraphSet() CompositionError {
	return newError(ErrorKindEmptySubgraphSet, "", nil, "cannot compose an empty set of subgraphs")
}

func ErrDuplicateSubgraphName(name string, occurrences int) CompositionError {
	return newError(ErrorKindDuplicateSubgraphName, "", []string{name}, "subgraph name %q is used by %d subgraphs", name, occurrences)
}

// ErrFieldTypeConflict reports a field whose definitions have incompatible types.
// typesBySubgraph must be ordered like subgraphs.
func ErrFieldTypeConflict(coordinate string, subgraphs []string, typesBySubgraph []string) CompositionError {
	parts := make([]string, 0, len(subgraphs))
	for i := range subgraphs {
		parts = append(parts, fmt.Sprintf("%q in subgraph %q", typesBySubgraph[i], subgraphs[i]))
	}
	return newError(ErrorKindFieldTypeConflict, coordinate, subgraphs, "incompatible types: %s", strings.Join(parts, ", "))
}

func ErrDirectiveArgumentMismatch(coordinate string, subgraphs []string, detail string) CompositionError {
	return newError(ErrorKindDirectiveArgumentMismatch, coordinate, subgraphs, "directive arguments differ between subgraphs: %s", detail)
}

func ErrUnmergeableScalarOrDirective(coordinate string, subgraphs []string, detail string) CompositionError {
	return newError(ErrorKindUnmergeableScalarOrDirective, coordinate, subgraphs, "definitions must be identical in all subgraphs: %s", detail)
}

func ErrUnreachableField(coordinate string, resolvingSubgraphs, reachableIn []string) CompositionError {
	reachable := "the type is not reachable in any subgraph"
	if len(reachableIn) > 0 {
		reachable = fmt.Sprintf("the type is only reachable in %s", quoteList(sortedCopy(reachableIn)))
	}
	return newError(ErrorKindUnreachableField, coordinate, resolvingSubgraphs,
		"cannot be resolved by any query: only %s can resolve it but %s and no @key allows jumping there",
		quoteList(sortedCopy(resolvingSubgraphs)), reachable)
}

func ErrInvalidSupergraphStructure(coordinate string, format string, args ...interface{}) CompositionError {
	return newError(ErrorKindInvalidSupergraphStructure, coordinate, nil, format, args...)
}

func ErrInvalidGraphQL(subgraph string, detail string) CompositionError {
	return newError(ErrorKindInvalidGraphQL, "", []string{subgraph}, "subgraph %q is not valid GraphQL: %s", subgraph, detail)
}

func ErrInvalidFederationDirective(subgraph, coordinate string, format string, args ...interface{}) CompositionError {
	return newError(ErrorKindInvalidFederationDirective, coordinate, []string{subgraph}, "[%s] %s", subgraph, fmt.Sprintf(format, args...))
}

func ErrInvalidFieldSet(subgraph, coordinate, directive, fields string, detail string) CompositionError {
	return newError(ErrorKindInvalidFieldSet, coordinate, []string{subgraph},
		"[%s] invalid @%s(fields: %q): %s", subgraph, directive, fields, detail)
}

func ErrTypeKindMismatch(typeName string, subgraphs []string, kindsBySubgraph []string) CompositionError {
	parts := make([]string, 0, len(subgraphs))
	for i := range subgraphs {
		parts = append(parts, fmt.Sprintf("%s in subgraph %q", kindsBySubgraph[i], subgraphs[i]))
	}
	return newError(ErrorKindTypeKindMismatch, typeName, subgraphs, "type is defined with different kinds: %s", strings.Join(parts, ", "))
}

func ErrInvalidFieldSharing(coordinate string, resolvingSubgraphs, nonShareable []string) CompositionError {
	return newError(ErrorKindInvalidFieldSharing, coordinate, resolvingSubgraphs,
		"field is resolved by %s but is not marked @shareable in %s",
		quoteList(sortedCopy(resolvingSubgraphs)), quoteList(sortedCopy(nonShareable)))
}

func ErrFieldArgumentMismatch(coordinate string, subgraphs []string, detail string) CompositionError {
	return newError(ErrorKindFieldArgumentMismatch, coordinate, subgraphs, "arguments differ between subgraphs: %s", detail)
}

func ErrEnumValueMismatch(typeName string, subgraphs []string) CompositionError {
	return newError(ErrorKindEnumValueMismatch, typeName, subgraphs,
		"enum is used as both input and output type and must define the same values in all subgraphs")
}

func ErrEmptyMergedType(typeName string, kind string, subgraphs []string) CompositionError {
	return newError(ErrorKindEmptyMergedType, typeName, subgraphs, "%s has no member common to all subgraphs defining it", kind)
}

func ErrInvalidOverride(coordinate, subgraph string, format string, args ...interface{}) CompositionError {
	return newError(ErrorKindInvalidOverride, coordinate, []string{subgraph}, "[%s] %s", subgraph, fmt.Sprintf(format, args...))
}

func ErrUnsatisfiableRequires(coordinate string, subgraphs []string, requires string) CompositionError {
	return newError(ErrorKindUnsatisfiableRequires, coordinate, subgraphs,
		"field is only resolvable through @requires(fields: %q) which cannot be satisfied", requires)
}

func ErrExternalMissingOnBase(coordinate string, subgraphs []string) CompositionError {
	return newError(ErrorKindExternalMissingOnBase, coordinate, subgraphs,
		"field is marked @external in %s but no subgraph resolves it", quoteList(sortedCopy(subgraphs)))
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i := range values {
		quoted[i] = fmt.Sprintf("%q", values[i])
	}
	return strings.Join(quoted, ", ")
}

func sortedCopy(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
