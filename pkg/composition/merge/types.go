package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

type enumValueDefinition struct {
	subgraph string
	value    *schema.EnumValue
}

// mergeEnumValues unions the values of enums only used as output types, intersects the
// values of enums only used as input types and requires identical values otherwise.
func (m *merger) mergeEnumValues(out *Type, definitions []definition, report *compositionreport.Report) {
	_, input := m.inputEnums[out.Name]
	_, output := m.outputEnums[out.Name]
	subgraphs := subgraphsOf(definitions)

	var order []string
	byName := make(map[string][]enumValueDefinition)
	for _, def := range definitions {
		for _, value := range def.t.EnumValues {
			if _, seen := byName[value.Name]; !seen {
				order = append(order, value.Name)
			}
			byName[value.Name] = append(byName[value.Name], enumValueDefinition{subgraph: def.subgraph, value: value})
		}
	}
	inEverySubgraph := func(name string) bool {
		return len(byName[name]) == len(definitions)
	}

	keep := func(string) bool { return true }
	switch {
	case input && output:
		for _, name := range order {
			if !inEverySubgraph(name) {
				report.AddError(compositionreport.ErrEnumValueMismatch(out.Name, subgraphs))
				break
			}
		}
	case input:
		var dropped []string
		for _, name := range order {
			if !inEverySubgraph(name) {
				dropped = append(dropped, name)
			}
		}
		if len(dropped) > 0 {
			report.AddHint(compositionreport.HintInconsistentEnumValues(out.Name, dropped, subgraphs))
			keep = inEverySubgraph
		}
	}

	for _, name := range order {
		if !keep(name) {
			continue
		}
		merged := &EnumValue{Name: name}
		for _, def := range byName[name] {
			if merged.Description == "" {
				merged.Description = def.value.Description
			}
			if merged.Deprecation == nil && def.value.Deprecation != nil {
				reason := *def.value.Deprecation
				merged.Deprecation = &reason
			}
			merged.Inaccessible = merged.Inaccessible || def.value.Inaccessible
			merged.Tags = unionStrings(merged.Tags, def.value.Tags)
			merged.Subgraphs = append(merged.Subgraphs, def.subgraph)
		}
		out.EnumValues = append(out.EnumValues, merged)
	}

	if len(out.EnumValues) == 0 {
		report.AddError(compositionreport.ErrEmptyMergedType(out.Name, "enum", subgraphs))
	}
}

// mergeInputFields keeps the input fields defined in every subgraph.
func (m *merger) mergeInputFields(out *Type, definitions []definition, report *compositionreport.Report) {
	subgraphs := subgraphsOf(definitions)

	var order []string
	byName := make(map[string][]inputValueDefinition)
	for _, def := range definitions {
		for _, field := range def.t.InputFields {
			if _, seen := byName[field.Name]; !seen {
				order = append(order, field.Name)
			}
			byName[field.Name] = append(byName[field.Name], inputValueDefinition{subgraph: def.subgraph, value: field})
		}
	}

	for _, name := range order {
		values := byName[name]
		coordinate := out.Name + "." + name
		if len(values) < len(definitions) {
			definedIn := make([]string, len(values))
			for i := range values {
				definedIn[i] = values[i].subgraph
			}
			report.AddHint(compositionreport.HintInconsistentInputObjectField(coordinate, definedIn, missingSubgraphs(subgraphs, values)))
			continue
		}

		merged, detail := mergeInputValue(values, false, false)
		if detail != "" {
			typeNames := make([]string, len(values))
			for i := range values {
				typeNames[i] = values[i].value.Type.String()
			}
			report.AddError(compositionreport.ErrFieldTypeConflict(coordinate, subgraphs, typeNames))
			continue
		}
		out.InputFields = append(out.InputFields, merged)
	}

	if len(out.InputFields) == 0 {
		report.AddError(compositionreport.ErrEmptyMergedType(out.Name, "input object", subgraphs))
	}
}

// mergeScalar requires all subgraphs that specify a @specifiedBy URL to agree on it.
func mergeScalar(out *Type, definitions []definition, report *compositionreport.Report) {
	var specifying []definition
	for _, def := range definitions {
		if def.t.SpecifiedBy != "" {
			specifying = append(specifying, def)
		}
	}
	if len(specifying) == 0 {
		return
	}

	out.SpecifiedBy = specifying[0].t.SpecifiedBy
	for _, def := range specifying[1:] {
		if def.t.SpecifiedBy == out.SpecifiedBy {
			continue
		}
		parts := make([]string, len(specifying))
		for i := range specifying {
			parts[i] = fmt.Sprintf("%q in %q", specifying[i].t.SpecifiedBy, specifying[i].subgraph)
		}
		report.AddError(compositionreport.ErrUnmergeableScalarOrDirective(out.Name, subgraphsOf(specifying),
			"@specifiedBy(url:) differs: "+strings.Join(parts, ", ")))
		return
	}
}

type directiveDefinition struct {
	subgraph  string
	directive *schema.DirectiveDefinition
}

// mergeDirectiveDefinitions merges the custom directive definitions, which must be identical.
func (m *merger) mergeDirectiveDefinitions(report *compositionreport.Report) []*DirectiveDefinition {
	var names []string
	byName := make(map[string][]directiveDefinition)
	for _, subgraph := range m.subgraphs {
		for _, directive := range subgraph.Schema.Directives {
			if _, seen := byName[directive.Name]; !seen {
				names = append(names, directive.Name)
			}
			byName[directive.Name] = append(byName[directive.Name], directiveDefinition{subgraph: subgraph.Name, directive: directive})
		}
	}
	sort.Strings(names)

	out := make([]*DirectiveDefinition, 0, len(names))
	for _, name := range names {
		definitions := byName[name]
		coordinate := "@" + name
		first := definitions[0]
		subgraphs := make([]string, len(definitions))
		for i := range definitions {
			subgraphs[i] = definitions[i].subgraph
		}

		for _, def := range definitions[1:] {
			if !sameLocations(first.directive.Locations, def.directive.Locations) || first.directive.Repeatable != def.directive.Repeatable {
				report.AddError(compositionreport.ErrUnmergeableScalarOrDirective(coordinate, subgraphs,
					fmt.Sprintf("locations or repeatable differ between %q and %q", first.subgraph, def.subgraph)))
				break
			}
		}

		merged := &DirectiveDefinition{
			Name:       name,
			Locations:  append([]ast.DirectiveLocation(nil), first.directive.Locations...),
			Repeatable: first.directive.Repeatable,
			Subgraphs:  subgraphs,
		}
		for _, def := range definitions {
			if merged.Description == "" {
				merged.Description = def.directive.Description
			}
		}

		var argumentOrder []string
		arguments := make(map[string][]inputValueDefinition)
		for _, def := range definitions {
			for _, argument := range def.directive.Arguments {
				if _, seen := arguments[argument.Name]; !seen {
					argumentOrder = append(argumentOrder, argument.Name)
				}
				arguments[argument.Name] = append(arguments[argument.Name], inputValueDefinition{subgraph: def.subgraph, value: argument})
			}
		}
		var mismatches []string
		for _, argumentName := range argumentOrder {
			values := arguments[argumentName]
			if len(values) < len(definitions) {
				mismatches = append(mismatches, fmt.Sprintf("argument %q is not defined in %s", argumentName, quoted(missingSubgraphs(subgraphs, values))))
				continue
			}
			argument, detail := mergeInputValue(values, true, true)
			if detail != "" {
				mismatches = append(mismatches, fmt.Sprintf("argument %q %s", argumentName, detail))
				continue
			}
			merged.Arguments = append(merged.Arguments, argument)
		}
		if len(mismatches) > 0 {
			report.AddError(compositionreport.ErrDirectiveArgumentMismatch(coordinate, subgraphs, strings.Join(mismatches, "; ")))
		}

		out = append(out, merged)
	}
	return out
}

func sameLocations(left, right []ast.DirectiveLocation) bool {
	if len(left) != len(right) {
		return false
	}
	set := make(map[ast.DirectiveLocation]struct{}, len(left))
	for _, location := range left {
		set[location] = struct{}{}
	}
	for _, location := range right {
		if _, ok := set[location]; !ok {
			return false
		}
	}
	return true
}

// sameShapes reports whether all types have the same named type and list structure.
func sameShapes(types []*ast.Type) bool {
	for _, t := range types[1:] {
		if !sameShape(types[0], t) {
			return false
		}
	}
	return true
}

func sameShape(left, right *ast.Type) bool {
	if left.NamedType != right.NamedType {
		return false
	}
	if (left.Elem == nil) != (right.Elem == nil) {
		return false
	}
	if left.Elem != nil {
		return sameShape(left.Elem, right.Elem)
	}
	return true
}

func equalTypes(types []*ast.Type) bool {
	first := types[0].String()
	for _, t := range types[1:] {
		if t.String() != first {
			return false
		}
	}
	return true
}

// leastRestrictive combines types of the same shape; a level is non-null only if it is non-null in every type.
func leastRestrictive(types []*ast.Type) *ast.Type {
	return combineTypes(types, func(every, _ bool) bool { return every })
}

// mostRestrictive combines types of the same shape; a level is non-null if it is non-null in any type.
func mostRestrictive(types []*ast.Type) *ast.Type {
	return combineTypes(types, func(_, some bool) bool { return some })
}

func combineTypes(types []*ast.Type, nonNull func(every, some bool) bool) *ast.Type {
	every, some := true, false
	for _, t := range types {
		every = every && t.NonNull
		some = some || t.NonNull
	}
	out := &ast.Type{NamedType: types[0].NamedType, NonNull: nonNull(every, some)}
	if types[0].Elem != nil {
		elems := make([]*ast.Type, len(types))
		for i := range types {
			elems[i] = types[i].Elem
		}
		out.Elem = combineTypes(elems, nonNull)
	}
	return out
}
