package composition

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/fedcomposer/pkg/composition/merge"
	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/directives"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
	"github.com/wundergraph/fedcomposer/pkg/federation/subgraph"
	"github.com/wundergraph/fedcomposer/pkg/supergraph"
)

// ExpandSubgraphs resolves the federation directives of every subgraph. The errors of
// all subgraphs are collected.
func ExpandSubgraphs(subgraphs []*subgraph.Initial) ([]*subgraph.Expanded, error) {
	return expandSubgraphs(directives.Default, subgraphs)
}

func expandSubgraphs(registry *directives.Registry, subgraphs []*subgraph.Initial) ([]*subgraph.Expanded, error) {
	report := compositionreport.Report{Phase: PhaseExpanded.Step()}
	out := make([]*subgraph.Expanded, 0, len(subgraphs))
	for _, initial := range subgraphs {
		expanded, err := initial.Expand(registry)
		if err != nil {
			appendError(&report, err, initial.Name())
			continue
		}
		out = append(out, expanded)
	}
	if report.HasErrors() {
		report.Sort()
		return nil, report
	}
	return out, nil
}

// UpgradeSubgraphs brings federation 1 subgraphs to federation 2 semantics.
func UpgradeSubgraphs(subgraphs []*subgraph.Expanded) []*subgraph.Upgraded {
	out := make([]*subgraph.Upgraded, len(subgraphs))
	for i, expanded := range subgraphs {
		out[i] = expanded.Upgrade()
	}
	return out
}

func ValidateSubgraphs(subgraphs []*subgraph.Upgraded) ([]*subgraph.Validated, error) {
	return validateSubgraphs(directives.Default, subgraphs)
}

func validateSubgraphs(registry *directives.Registry, subgraphs []*subgraph.Upgraded) ([]*subgraph.Validated, error) {
	report := compositionreport.Report{Phase: PhaseValidated.Step()}
	out := make([]*subgraph.Validated, 0, len(subgraphs))
	for _, upgraded := range subgraphs {
		validated, err := upgraded.Validate(registry)
		if err != nil {
			appendError(&report, err, upgraded.Name())
			continue
		}
		out = append(out, validated)
	}
	if report.HasErrors() {
		report.Sort()
		return nil, report
	}
	return out, nil
}

func appendError(report *compositionreport.Report, err error, subgraphName string) {
	if other, ok := compositionreport.FromError(err); ok {
		report.Append(other)
		return
	}
	report.AddError(compositionreport.ErrInvalidGraphQL(subgraphName, err.Error()))
}

// PreMergeValidations requires a non-empty set of uniquely named subgraphs.
func PreMergeValidations(subgraphs []*subgraph.Validated) error {
	report := compositionreport.Report{Phase: PhasePreMergeChecked.Step()}
	if len(subgraphs) == 0 {
		report.AddError(compositionreport.ErrEmptySubgraphSet())
		return report
	}

	occurrences := make(map[string]int, len(subgraphs))
	names := make([]string, 0, len(subgraphs))
	for _, validated := range subgraphs {
		if occurrences[validated.Name()] == 0 {
			names = append(names, validated.Name())
		}
		occurrences[validated.Name()]++
	}
	for _, name := range names {
		if occurrences[name] > 1 {
			report.AddError(compositionreport.ErrDuplicateSubgraphName(name, occurrences[name]))
		}
	}
	report.Sort()
	return report.Err()
}

func MergeSubgraphs(subgraphs []*subgraph.Validated) (*supergraph.Merged, error) {
	return mergeSubgraphs(subgraphs, merge.Options{})
}

func mergeSubgraphs(subgraphs []*subgraph.Validated, options merge.Options) (*supergraph.Merged, error) {
	in := make([]*schema.Subgraph, len(subgraphs))
	for i, validated := range subgraphs {
		in[i] = validated.Subgraph()
	}
	merged, report := merge.Merge(in, options)
	if report.HasErrors() {
		report.Phase = PhaseMerged.Step()
		return nil, report
	}
	return supergraph.NewMerged(merged, report.Hints), nil
}

// PostMergeValidations checks that the merged schema is a well-formed GraphQL schema:
// it has a Query root object with fields, every referenced type exists and has a kind
// allowed at the reference, and objects implement the fields of their interfaces.
// Types not reachable from a root operation type are returned as hints.
func PostMergeValidations(merged *supergraph.Merged) ([]compositionreport.Hint, error) {
	v := &structureValidator{
		schema: merged.Schema(),
		report: compositionreport.Report{Phase: PhasePostMergeChecked.Step()},
	}
	v.validateQueryRoot()
	for _, t := range v.schema.Types() {
		v.validateType(t)
	}
	if v.report.HasErrors() {
		v.report.Sort()
		return nil, v.report
	}

	reachable := v.schema.ReachableTypeNames()
	var hints []compositionreport.Hint
	for _, t := range v.schema.Types() {
		if _, ok := reachable[t.Name]; !ok {
			hints = append(hints, compositionreport.HintOrphanType(t.Name))
		}
	}
	return hints, nil
}

type structureValidator struct {
	schema *merge.Schema
	report compositionreport.Report
}

func (v *structureValidator) invalid(coordinate, format string, args ...interface{}) {
	v.report.AddError(compositionreport.ErrInvalidSupergraphStructure(coordinate, format, args...))
}

func (v *structureValidator) validateQueryRoot() {
	if v.schema.QueryType == "" {
		v.invalid("", "the supergraph has no Query root type")
		return
	}
	query, ok := v.schema.TypeByName(v.schema.QueryType)
	switch {
	case !ok:
		v.invalid(v.schema.QueryType, "the Query root type %q is not defined", v.schema.QueryType)
	case query.Kind != schema.TypeKindObject:
		v.invalid(query.Name, "the Query root type must be an object type, found %s", query.Kind)
	case len(query.Fields) == 0:
		v.invalid(query.Name, "the Query root type has no fields")
	}
	for _, name := range []string{v.schema.MutationType, v.schema.SubscriptionType} {
		if name == "" {
			continue
		}
		if root, ok := v.schema.TypeByName(name); !ok || root.Kind != schema.TypeKindObject {
			v.invalid(name, "the root type %q must be a defined object type", name)
		}
	}
}

func (v *structureValidator) lookupKind(name string) (schema.TypeKind, bool) {
	if schema.IsBuiltInScalar(name) {
		return schema.TypeKindScalar, true
	}
	t, ok := v.schema.TypeByName(name)
	if !ok {
		return 0, false
	}
	return t.Kind, true
}

func (v *structureValidator) validateOutput(coordinate string, t *ast.Type) {
	kind, ok := v.lookupKind(t.Name())
	switch {
	case !ok:
		v.invalid(coordinate, "type %q is not defined", t.Name())
	case !kind.IsOutputType():
		v.invalid(coordinate, "input type %q cannot be used as an output type", t.Name())
	}
}

func (v *structureValidator) validateInput(coordinate string, t *ast.Type) {
	kind, ok := v.lookupKind(t.Name())
	switch {
	case !ok:
		v.invalid(coordinate, "type %q is not defined", t.Name())
	case !kind.IsInputType():
		v.invalid(coordinate, "output type %q cannot be used as an input type", t.Name())
	}
}

func (v *structureValidator) validateType(t *merge.Type) {
	for _, field := range t.Fields {
		coordinate := t.Name + "." + field.Name
		v.validateOutput(coordinate, field.Type)
		for _, argument := range field.Arguments {
			v.validateInput(coordinate+"("+argument.Name+":)", argument.Type)
		}
	}
	for _, field := range t.InputFields {
		v.validateInput(t.Name+"."+field.Name, field.Type)
	}
	for _, member := range t.Members {
		if kind, ok := v.lookupKind(member.Name); !ok || kind != schema.TypeKindObject {
			v.invalid(t.Name, "union member %q is not an object type", member.Name)
		}
	}
	for _, member := range t.Interfaces {
		iface, ok := v.schema.TypeByName(member.Name)
		if !ok || iface.Kind != schema.TypeKindInterface {
			v.invalid(t.Name, "implemented type %q is not an interface", member.Name)
			continue
		}
		v.validateImplementation(t, iface)
	}
}

func (v *structureValidator) validateImplementation(t, iface *merge.Type) {
	for _, expected := range iface.Fields {
		coordinate := t.Name + "." + expected.Name
		field := t.Field(expected.Name)
		if field == nil {
			v.invalid(coordinate, "field required by interface %q is missing", iface.Name)
			continue
		}
		if !v.isSubtype(field.Type, expected.Type) {
			v.invalid(coordinate, "type %s is not compatible with %s of interface %q", field.Type, expected.Type, iface.Name)
		}
		for _, argument := range expected.Arguments {
			if field.Argument(argument.Name) == nil {
				v.invalid(coordinate, "argument %q required by interface %q is missing", argument.Name, iface.Name)
			}
		}
	}
}

// isSubtype reports whether a field of type sub can implement an interface field of type super.
func (v *structureValidator) isSubtype(sub, super *ast.Type) bool {
	if super.NonNull && !sub.NonNull {
		return false
	}
	if sub.Elem != nil || super.Elem != nil {
		if sub.Elem == nil || super.Elem == nil {
			return false
		}
		return v.isSubtype(sub.Elem, super.Elem)
	}
	if sub.NamedType == super.NamedType {
		return true
	}
	superType, ok := v.schema.TypeByName(super.NamedType)
	if !ok {
		return false
	}
	subType, ok := v.schema.TypeByName(sub.NamedType)
	if !ok {
		return false
	}
	switch superType.Kind {
	case schema.TypeKindUnion:
		return superType.HasMember(subType.Name)
	case schema.TypeKindInterface:
		return subType.Implements(superType.Name)
	default:
		return false
	}
}
