package subgraph

import (
	"fmt"

	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/directives"
	"github.com/wundergraph/fedcomposer/pkg/federation/fieldset"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

// Validate checks the federation directive applications against the registry,
// the type references of the schema and the field sets of @key, @requires and @provides.
func (u *Upgraded) Validate(registry *directives.Registry) (*Validated, error) {
	v := &validator{
		registry:     registry,
		subgraphName: u.subgraph.Name,
		schema:       u.subgraph.Schema,
	}
	v.validateApplications(u.applications)
	v.validateTypeReferences()
	v.validateFieldSets()
	if err := v.report.Err(); err != nil {
		return nil, err
	}
	return &Validated{subgraph: u.subgraph}, nil
}

type validator struct {
	registry     *directives.Registry
	subgraphName string
	schema       *schema.Schema
	report       compositionreport.Report
}

func (v *validator) validateApplications(applications []application) {
	for _, applied := range applications {
		name := applied.directive.Name
		if v.registry.IsUnsupported(name) {
			v.report.AddError(compositionreport.ErrInvalidFederationDirective(v.subgraphName, applied.coordinate,
				"directive @%s is not supported", name))
			continue
		}
		if err := v.registry.Validate(applied.directive, applied.location); err != nil {
			v.report.AddError(compositionreport.ErrInvalidFederationDirective(v.subgraphName, applied.coordinate, "%s", err.Error()))
		}
	}
}

func (v *validator) invalidGraphQL(format string, args ...interface{}) {
	v.report.AddError(compositionreport.ErrInvalidGraphQL(v.subgraphName, fmt.Sprintf(format, args...)))
}

func (v *validator) lookupNamedType(name string) (schema.TypeKind, bool) {
	if schema.IsBuiltInScalar(name) {
		return schema.TypeKindScalar, true
	}
	t, ok := v.schema.TypeByName(name)
	if !ok {
		return 0, false
	}
	return t.Kind, true
}

func (v *validator) validateOutputType(coordinate, name string) {
	kind, ok := v.lookupNamedType(name)
	switch {
	case !ok:
		v.invalidGraphQL("%s: type %q is not defined", coordinate, name)
	case !kind.IsOutputType():
		v.invalidGraphQL("%s: input type %q cannot be used as an output type", coordinate, name)
	}
}

func (v *validator) validateInputType(coordinate, name string) {
	kind, ok := v.lookupNamedType(name)
	switch {
	case !ok:
		v.invalidGraphQL("%s: type %q is not defined", coordinate, name)
	case !kind.IsInputType():
		v.invalidGraphQL("%s: output type %q cannot be used as an input type", coordinate, name)
	}
}

func (v *validator) validateTypeReferences() {
	for _, t := range v.schema.Types() {
		for _, field := range t.Fields {
			coordinate := t.Name + "." + field.Name
			v.validateOutputType(coordinate, field.Type.Name())
			for _, argument := range field.Arguments {
				v.validateInputType(fmt.Sprintf("%s(%s:)", coordinate, argument.Name), argument.Type.Name())
			}
		}
		for _, field := range t.InputFields {
			v.validateInputType(t.Name+"."+field.Name, field.Type.Name())
		}
		for _, name := range t.Interfaces {
			if kind, ok := v.lookupNamedType(name); !ok || kind != schema.TypeKindInterface {
				v.invalidGraphQL("%s: implemented type %q is not an interface", t.Name, name)
			}
		}
		for _, name := range t.UnionMembers {
			if kind, ok := v.lookupNamedType(name); !ok || kind != schema.TypeKindObject {
				v.invalidGraphQL("%s: union member %q is not an object type", t.Name, name)
			}
		}
	}
	for _, directive := range v.schema.Directives {
		for _, argument := range directive.Arguments {
			v.validateInputType(fmt.Sprintf("@%s(%s:)", directive.Name, argument.Name), argument.Type.Name())
		}
	}
}

func (v *validator) validateFieldSets() {
	for _, t := range v.schema.Types() {
		for _, key := range t.Keys {
			if key.Fields == "" {
				continue
			}
			v.validateFieldSet(t.Name, directives.KeyDirectiveName, key.Fields, t, false)
		}
		for _, field := range t.Fields {
			coordinate := t.Name + "." + field.Name
			if field.Requires != "" {
				v.validateFieldSet(coordinate, directives.RequiresDirectiveName, field.Requires, t, true)
			}
			if field.Provides != "" {
				returned, ok := v.schema.TypeByName(field.Type.Name())
				if !ok || !returned.Kind.IsComposite() {
					v.report.AddError(compositionreport.ErrInvalidFieldSet(v.subgraphName, coordinate, directives.ProvidesDirectiveName,
						field.Provides, fmt.Sprintf("field returns %q which is not a composite type", field.Type.Name())))
					continue
				}
				v.validateFieldSet(coordinate, directives.ProvidesDirectiveName, field.Provides, returned, false)
			}
		}
	}
}

func (v *validator) validateFieldSet(coordinate, directive, fields string, parent *schema.Type, mustBeExternal bool) {
	set, err := fieldset.Parse(fields)
	if err == nil {
		err = v.validateSelections(parent, set, mustBeExternal)
	}
	if err != nil {
		v.report.AddError(compositionreport.ErrInvalidFieldSet(v.subgraphName, coordinate, directive, fields, err.Error()))
	}
}

// validateSelections checks that a field set selects existing fields, with selection sets
// exactly on composite fields. For @requires the top level fields must be @external.
func (v *validator) validateSelections(parent *schema.Type, set fieldset.SelectionSet, mustBeExternal bool) error {
	for _, selection := range set {
		field := parent.Field(selection.Name)
		if field == nil {
			return fmt.Errorf("field %q does not exist on type %q", selection.Name, parent.Name)
		}
		if len(field.Arguments) > 0 {
			return fmt.Errorf("field %q takes arguments", selection.Name)
		}
		if mustBeExternal && !field.External {
			return fmt.Errorf("field %q must be marked @external", selection.Name)
		}

		named := field.Type.Name()
		child, ok := v.schema.TypeByName(named)
		composite := ok && child.Kind.IsComposite()
		switch {
		case composite && len(selection.Selections) == 0:
			return fmt.Errorf("field %q of type %q needs a selection set", selection.Name, named)
		case !composite && len(selection.Selections) > 0:
			return fmt.Errorf("field %q of type %q cannot have a selection set", selection.Name, named)
		case composite:
			if err := v.validateSelections(child, selection.Selections, false); err != nil {
				return err
			}
		}
	}
	return nil
}
