package compositionreport

import (
	"fmt"
	"strings"
)

type HintKind string

const (
	HintKindInconsistentEnumValue        HintKind = "INCONSISTENT_ENUM_VALUE"
	HintKindInconsistentInputObjectField HintKind = "INCONSISTENT_INPUT_OBJECT_FIELD"
	HintKindInconsistentNullability      HintKind = "INCONSISTENT_NULLABILITY"
	HintKindDroppedArgument              HintKind = "DROPPED_ARGUMENT"
	HintKindOverriddenField              HintKind = "OVERRIDDEN_FIELD"
	HintKindOrphanType                   HintKind = "ORPHAN_TYPE"
	HintKindFragileRequiresChain         HintKind = "FRAGILE_REQUIRES_CHAIN"
)

func newHint(kind HintKind, coordinate string, subgraphs []string, format string, args ...interface{}) Hint {
	return Hint{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Coordinate: coordinate,
		Subgraphs:  sortedCopy(subgraphs),
	}
}

// HintInconsistentEnumValues reports enum values dropped by intersecting an input-only enum.
func HintInconsistentEnumValues(typeName string, dropped []string, subgraphs []string) Hint {
	return newHint(HintKindInconsistentEnumValue, typeName, subgraphs,
		"enum is only used as an input type; values %s are not defined in every subgraph and were removed from the supergraph",
		strings.Join(sortedCopy(dropped), ", "))
}

func HintInconsistentInputObjectField(coordinate string, definedIn, missingIn []string) Hint {
	return newHint(HintKindInconsistentInputObjectField, coordinate, definedIn,
		"input field is defined in %s but not in %s and was removed from the supergraph",
		quoteList(sortedCopy(definedIn)), quoteList(sortedCopy(missingIn)))
}

func HintInconsistentNullability(coordinate string, mergedType string, subgraphs []string) Hint {
	return newHint(HintKindInconsistentNullability, coordinate, subgraphs,
		"type differs in nullability between subgraphs; merged as %q", mergedType)
}

func HintDroppedArgument(coordinate string, missingIn []string) Hint {
	return newHint(HintKindDroppedArgument, coordinate, missingIn,
		"argument is not defined in %s and was removed from the supergraph", quoteList(sortedCopy(missingIn)))
}

func HintOverriddenField(coordinate, overriddenIn, overridingSubgraph string) Hint {
	return newHint(HintKindOverriddenField, coordinate, []string{overriddenIn, overridingSubgraph},
		"field is overridden by subgraph %q; the definition in %q is no longer used and can be removed", overridingSubgraph, overriddenIn)
}

func HintOrphanType(typeName string) Hint {
	return newHint(HintKindOrphanType, typeName, nil, "type is not reachable from any root operation type")
}

func HintFragileRequiresChain(coordinate string, subgraphs []string, requires string) Hint {
	return newHint(HintKindFragileRequiresChain, coordinate, subgraphs,
		"field is only resolvable through @requires(fields: %q) which cannot be satisfied by any other subgraph; queries selecting it will fail at runtime",
		requires)
}
