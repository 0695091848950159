package merge

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/directives"
	"github.com/wundergraph/fedcomposer/pkg/federation/fieldset"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

type fieldDefinition struct {
	subgraph   string
	parent     *schema.Type
	field      *schema.Field
	overridden bool
}

// shareable reports whether the subgraph allows other subgraphs to resolve the field as well.
// Fields of the type's keys are implicitly shareable.
func (f *fieldDefinition) shareable() bool {
	if f.field.Shareable || f.parent.Shareable {
		return true
	}
	for _, key := range f.parent.Keys {
		set, err := fieldset.Parse(key.Fields)
		if err != nil {
			continue
		}
		if set.Lookup(f.field.Name) != nil {
			return true
		}
	}
	return false
}

func fieldSubgraphs(definitions []*fieldDefinition) []string {
	out := make([]string, len(definitions))
	for i := range definitions {
		out[i] = definitions[i].subgraph
	}
	return out
}

func (m *merger) mergeFields(out *Type, definitions []definition, report *compositionreport.Report) {
	var order []string
	byName := make(map[string][]*fieldDefinition)
	for _, def := range definitions {
		for _, field := range def.t.Fields {
			if _, seen := byName[field.Name]; !seen {
				order = append(order, field.Name)
			}
			byName[field.Name] = append(byName[field.Name], &fieldDefinition{subgraph: def.subgraph, parent: def.t, field: field})
		}
	}

	for _, name := range order {
		if field := m.mergeField(out, byName[name], report); field != nil {
			out.Fields = append(out.Fields, field)
		}
	}
}

func (m *merger) mergeField(parent *Type, definitions []*fieldDefinition, report *compositionreport.Report) *Field {
	name := definitions[0].field.Name
	coordinate := parent.Name + "." + name

	m.applyOverrides(coordinate, definitions, report)

	var active, resolving []*fieldDefinition
	for _, def := range definitions {
		if def.overridden {
			continue
		}
		active = append(active, def)
		if !def.field.External {
			resolving = append(resolving, def)
		}
	}
	if len(active) == 0 {
		report.AddError(compositionreport.ErrInvalidOverride(coordinate, definitions[0].subgraph,
			"definitions in %s override each other", quoted(fieldSubgraphs(definitions))))
		return nil
	}

	types := make([]*ast.Type, len(active))
	for i := range active {
		types[i] = active[i].field.Type
	}
	if !sameShapes(types) {
		typeNames := make([]string, len(active))
		for i := range types {
			typeNames[i] = types[i].String()
		}
		report.AddError(compositionreport.ErrFieldTypeConflict(coordinate, fieldSubgraphs(active), typeNames))
		return nil
	}

	if parent.Kind == schema.TypeKindObject {
		switch {
		case len(resolving) == 0:
			report.AddError(compositionreport.ErrExternalMissingOnBase(coordinate, fieldSubgraphs(active)))
		case len(resolving) > 1:
			var nonShareable []string
			for _, def := range resolving {
				if !def.shareable() {
					nonShareable = append(nonShareable, def.subgraph)
				}
			}
			if len(nonShareable) > 0 {
				report.AddError(compositionreport.ErrInvalidFieldSharing(coordinate, fieldSubgraphs(resolving), nonShareable))
			}
		}
	}

	out := &Field{
		Name: name,
		Type: leastRestrictive(types),
	}
	if !equalTypes(types) {
		report.AddHint(compositionreport.HintInconsistentNullability(coordinate, out.Type.String(), fieldSubgraphs(active)))
	}

	for _, def := range active {
		if out.Description == "" {
			out.Description = def.field.Description
		}
		if out.Deprecation == nil && def.field.Deprecation != nil {
			reason := *def.field.Deprecation
			out.Deprecation = &reason
		}
	}
	for _, def := range definitions {
		out.Inaccessible = out.Inaccessible || def.field.Inaccessible
		out.Tags = unionStrings(out.Tags, def.field.Tags)
		out.Sources = append(out.Sources, FieldSource{
			Subgraph:   def.subgraph,
			Type:       def.field.Type,
			External:   def.field.External,
			Shareable:  def.shareable(),
			Overridden: def.overridden,
			Override:   def.field.Override,
			Requires:   def.field.Requires,
			Provides:   def.field.Provides,
		})
	}

	out.Arguments = m.mergeArguments(coordinate, active, report)
	return out
}

// applyOverrides marks the definitions taken over by @override(from:) in another subgraph.
func (m *merger) applyOverrides(coordinate string, definitions []*fieldDefinition, report *compositionreport.Report) {
	for _, def := range definitions {
		from := def.field.Override
		if from == "" {
			continue
		}
		switch {
		case from == def.subgraph:
			report.AddError(compositionreport.ErrInvalidOverride(coordinate, def.subgraph, "field cannot override its own subgraph"))
		case def.field.External:
			report.AddError(compositionreport.ErrInvalidOverride(coordinate, def.subgraph, "@external field cannot use @override"))
		case !m.hasSubgraph(from):
			report.AddError(compositionreport.ErrInvalidOverride(coordinate, def.subgraph, "subgraph %q does not exist", from))
		default:
			for _, other := range definitions {
				if other.subgraph != from || other.field.External {
					continue
				}
				other.overridden = true
				report.AddHint(compositionreport.HintOverriddenField(coordinate, from, def.subgraph))
			}
		}
	}
}

type inputValueDefinition struct {
	subgraph string
	value    *schema.InputValue
}

func (m *merger) mergeArguments(coordinate string, definitions []*fieldDefinition, report *compositionreport.Report) []*Argument {
	policy := m.registry.FieldArgumentPolicy()

	var order []string
	byName := make(map[string][]inputValueDefinition)
	for _, def := range definitions {
		for _, argument := range def.field.Arguments {
			if _, seen := byName[argument.Name]; !seen {
				order = append(order, argument.Name)
			}
			byName[argument.Name] = append(byName[argument.Name], inputValueDefinition{subgraph: def.subgraph, value: argument})
		}
	}

	var out []*Argument
	var mismatches []string
	for _, name := range order {
		values := byName[name]
		if len(values) < len(definitions) {
			missing := missingSubgraphs(fieldSubgraphs(definitions), values)
			if policy == directives.PolicyIntersect {
				report.AddHint(compositionreport.HintDroppedArgument(fmt.Sprintf("%s(%s:)", coordinate, name), missing))
				continue
			}
			mismatches = append(mismatches, fmt.Sprintf("argument %q is not defined in %s", name, quoted(missing)))
			continue
		}
		merged, detail := mergeInputValue(values, policy != directives.PolicyIntersect, true)
		if detail != "" {
			mismatches = append(mismatches, fmt.Sprintf("argument %q %s", name, detail))
			continue
		}
		out = append(out, merged)
	}

	if len(mismatches) > 0 {
		report.AddError(compositionreport.ErrFieldArgumentMismatch(coordinate, fieldSubgraphs(definitions), strings.Join(mismatches, "; ")))
	}
	return out
}

func missingSubgraphs(all []string, values []inputValueDefinition) []string {
	var out []string
	for _, subgraph := range all {
		found := false
		for _, value := range values {
			if value.subgraph == subgraph {
				found = true
				break
			}
		}
		if !found {
			out = append(out, subgraph)
		}
	}
	return out
}

// mergeInputValue merges an argument or input field defined in several subgraphs.
// Input types merge to the most restrictive nullability. A non-empty detail describes
// why the definitions cannot be merged.
func mergeInputValue(values []inputValueDefinition, identicalTypes, identicalDefaults bool) (*InputValue, string) {
	types := make([]*ast.Type, len(values))
	for i := range values {
		types[i] = values[i].value.Type
	}
	if !sameShapes(types) || (identicalTypes && !equalTypes(types)) {
		parts := make([]string, len(values))
		for i := range values {
			parts[i] = fmt.Sprintf("%q in %q", types[i].String(), values[i].subgraph)
		}
		return nil, "has different types: " + strings.Join(parts, ", ")
	}

	if identicalDefaults {
		first := valueString(values[0].value.DefaultValue)
		for _, value := range values[1:] {
			if valueString(value.value.DefaultValue) != first {
				return nil, fmt.Sprintf("has different default values in %q and %q", values[0].subgraph, value.subgraph)
			}
		}
	}

	out := &InputValue{
		Name:         values[0].value.Name,
		Type:         mostRestrictive(types),
		DefaultValue: values[0].value.DefaultValue,
	}
	for _, value := range values {
		if out.Description == "" {
			out.Description = value.value.Description
		}
		if out.Deprecation == nil && value.value.Deprecation != nil {
			reason := *value.value.Deprecation
			out.Deprecation = &reason
		}
		if out.DefaultValue == nil {
			out.DefaultValue = value.value.DefaultValue
		}
		out.Inaccessible = out.Inaccessible || value.value.Inaccessible
		out.Tags = unionStrings(out.Tags, value.value.Tags)
		out.Subgraphs = append(out.Subgraphs, value.subgraph)
	}
	return out, ""
}

func valueString(value *ast.Value) string {
	if value == nil {
		return ""
	}
	return value.String()
}
