package subgraph

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/directives"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

const (
	serviceFieldName  = "_service"
	entitiesFieldName = "_entities"
)

// Expand resolves @link imports, merges type extensions into their definitions,
// renames the root operation types to Query, Mutation and Subscription and removes
// the types and fields federation adds to every subgraph.
func (i *Initial) Expand(registry *directives.Registry) (*Expanded, error) {
	e := &expander{
		registry:         registry,
		subgraphName:     i.name,
		links:            newLinks(),
		schema:           schema.New(),
		customDirectives: make(map[string]struct{}),
	}
	e.expand(i.document)
	if err := e.report.Err(); err != nil {
		return nil, err
	}
	return &Expanded{
		subgraph:     &schema.Subgraph{Name: i.name, URL: i.url, Schema: e.schema},
		applications: e.applications,
	}, nil
}

type expander struct {
	registry         *directives.Registry
	subgraphName     string
	links            *links
	schema           *schema.Schema
	customDirectives map[string]struct{}
	applications     []application
	report           compositionreport.Report

	usesFederation2Directives bool
	usesFederation1Syntax     bool
}

type definition struct {
	*ast.Definition
	extension bool
}

func (e *expander) expand(document *ast.SchemaDocument) {
	schemaDefinitions := make(ast.SchemaDefinitionList, 0, len(document.Schema)+len(document.SchemaExtension))
	schemaDefinitions = append(schemaDefinitions, document.Schema...)
	schemaDefinitions = append(schemaDefinitions, document.SchemaExtension...)

	e.links.collect(schemaDefinitions)
	e.expandDirectiveDefinitions(document.Directives)

	for _, def := range e.mergeExtensions(document.Definitions, document.Extensions) {
		if e.isFederationInternalType(def.Definition) {
			continue
		}
		e.expandDefinition(def)
	}

	for _, schemaDefinition := range schemaDefinitions {
		for _, directive := range schemaDefinition.Directives {
			if directive.Name == directives.LinkDirectiveName {
				continue
			}
			e.resolveDirectives(ast.DirectiveList{directive}, "schema", ast.LocationSchema)
		}
	}

	e.resolveRootTypes(schemaDefinitions)
	e.schema.FederationVersion = e.federationVersion()
}

func (e *expander) federationVersion() int {
	if e.links.federationLinked || e.usesFederation2Directives {
		return 2
	}
	if e.usesFederation1Syntax {
		return 1
	}
	return 2
}

func (e *expander) addError(format string, args ...interface{}) {
	e.report.AddError(compositionreport.ErrInvalidGraphQL(e.subgraphName, fmt.Sprintf(format, args...)))
}

func (e *expander) isFederationInternalType(def *ast.Definition) bool {
	name := e.links.canonical(def.Name)
	switch name {
	case "_Any", "_FieldSet", "FieldSet":
		return def.Kind == ast.Scalar
	case "_Service":
		return def.Kind == ast.Object
	case "_Entity":
		return def.Kind == ast.Union
	}
	return hasFederationPrefix(def.Name)
}

func hasFederationPrefix(name string) bool {
	return strings.HasPrefix(name, "link__") || strings.HasPrefix(name, defaultFederationPrefix)
}

func (e *expander) expandDirectiveDefinitions(definitions ast.DirectiveDefinitionList) {
	custom := make(ast.DirectiveDefinitionList, 0, len(definitions))
	for _, def := range definitions {
		canonical := e.links.canonical(def.Name)
		if def.Name == directives.LinkDirectiveName || e.registry.IsFederationDirective(canonical) || e.registry.IsUnsupported(canonical) {
			continue
		}
		e.customDirectives[def.Name] = struct{}{}
		custom = append(custom, def)
	}

	for _, def := range custom {
		directive := &schema.DirectiveDefinition{
			Name:        def.Name,
			Description: def.Description,
			Locations:   append([]ast.DirectiveLocation(nil), def.Locations...),
			Repeatable:  def.IsRepeatable,
		}
		for _, argument := range def.Arguments {
			coordinate := fmt.Sprintf("@%s(%s:)", def.Name, argument.Name)
			directive.Arguments = append(directive.Arguments, e.expandInputValue(coordinate, argument.Name, argument.Description,
				argument.Type, argument.DefaultValue, argument.Directives, ast.LocationArgumentDefinition))
		}
		e.schema.Directives = append(e.schema.Directives, directive)
	}
}

// mergeExtensions folds `extend` definitions into the definition of the same name.
// An extension without a base definition becomes the definition itself.
func (e *expander) mergeExtensions(definitions, extensions ast.DefinitionList) []*definition {
	out := make([]*definition, 0, len(definitions)+len(extensions))
	byName := make(map[string]*definition, len(definitions))

	for _, def := range definitions {
		if _, exists := byName[def.Name]; exists {
			e.addError("type %q is defined more than once", def.Name)
			continue
		}
		merged := &definition{Definition: copyDefinition(def)}
		byName[def.Name] = merged
		out = append(out, merged)
	}

	for _, ext := range extensions {
		base, exists := byName[ext.Name]
		if !exists {
			merged := &definition{Definition: copyDefinition(ext), extension: true}
			byName[ext.Name] = merged
			out = append(out, merged)
			continue
		}
		if base.Kind != ext.Kind {
			e.addError("cannot extend %s %q with an extension of kind %s", base.Kind, ext.Name, ext.Kind)
			continue
		}
		base.Directives = append(base.Directives, ext.Directives...)
		base.Interfaces = append(base.Interfaces, ext.Interfaces...)
		base.Types = append(base.Types, ext.Types...)
		base.Fields = append(base.Fields, ext.Fields...)
		base.EnumValues = append(base.EnumValues, ext.EnumValues...)
	}

	return out
}

func copyDefinition(def *ast.Definition) *ast.Definition {
	out := *def
	out.Directives = append(ast.DirectiveList(nil), def.Directives...)
	out.Interfaces = append([]string(nil), def.Interfaces...)
	out.Types = append([]string(nil), def.Types...)
	out.Fields = append(ast.FieldList(nil), def.Fields...)
	out.EnumValues = append(ast.EnumValueList(nil), def.EnumValues...)
	return &out
}

func copyType(t *ast.Type) *ast.Type {
	if t == nil {
		return nil
	}
	return &ast.Type{NamedType: t.NamedType, Elem: copyType(t.Elem), NonNull: t.NonNull}
}

func typeLocation(kind schema.TypeKind) ast.DirectiveLocation {
	switch kind {
	case schema.TypeKindScalar:
		return ast.LocationScalar
	case schema.TypeKindInterface:
		return ast.LocationInterface
	case schema.TypeKindUnion:
		return ast.LocationUnion
	case schema.TypeKindEnum:
		return ast.LocationEnum
	case schema.TypeKindInputObject:
		return ast.LocationInputObject
	default:
		return ast.LocationObject
	}
}

func (e *expander) expandDefinition(def *definition) {
	kind, ok := schema.TypeKindFromDefinition(def.Kind)
	if !ok {
		e.addError("type %q has unsupported kind %s", def.Name, def.Kind)
		return
	}

	t := &schema.Type{
		Kind:         kind,
		Name:         def.Name,
		Description:  def.Description,
		Extension:    def.extension,
		Interfaces:   append([]string(nil), def.Interfaces...),
		UnionMembers: append([]string(nil), def.Types...),
	}

	externalType := false
	for _, directive := range e.resolveDirectives(def.Directives, def.Name, typeLocation(kind)) {
		switch directive.Name {
		case directives.KeyDirectiveName:
			t.Keys = append(t.Keys, schema.Key{
				Fields:     stringArgument(directive, directives.FieldsArgumentName),
				Resolvable: boolArgument(directive, directives.ResolvableArgumentName, true),
			})
		case directives.ShareableDirectiveName:
			t.Shareable = true
		case directives.ExtendsDirectiveName:
			t.Extension = true
			e.usesFederation1Syntax = true
		case directives.ExternalDirectiveName:
			externalType = true
		case directives.InaccessibleDirectiveName:
			t.Inaccessible = true
		case directives.TagDirectiveName:
			t.Tags = append(t.Tags, stringArgument(directive, directives.NameArgumentName))
		case directives.SpecifiedByDirectiveName:
			t.SpecifiedBy = stringArgument(directive, directives.URLArgumentName)
		}
	}
	if def.extension && len(t.Keys) > 0 {
		e.usesFederation1Syntax = true
	}

	seen := make(map[string]struct{}, len(def.Fields)+len(def.EnumValues))
	duplicate := func(name string) bool {
		if _, exists := seen[name]; exists {
			e.addError("%q is defined more than once on type %q", name, def.Name)
			return true
		}
		seen[name] = struct{}{}
		return false
	}

	switch kind {
	case schema.TypeKindObject, schema.TypeKindInterface:
		for _, field := range def.Fields {
			if field.Name == serviceFieldName || field.Name == entitiesFieldName || duplicate(field.Name) {
				continue
			}
			expanded := e.expandField(def.Name, field)
			if externalType {
				expanded.External = true
			}
			t.Fields = append(t.Fields, expanded)
		}
	case schema.TypeKindInputObject:
		for _, field := range def.Fields {
			if duplicate(field.Name) {
				continue
			}
			t.InputFields = append(t.InputFields, e.expandInputValue(def.Name+"."+field.Name, field.Name, field.Description,
				field.Type, field.DefaultValue, field.Directives, ast.LocationInputFieldDefinition))
		}
	case schema.TypeKindEnum:
		for _, value := range def.EnumValues {
			if duplicate(value.Name) {
				continue
			}
			t.EnumValues = append(t.EnumValues, e.expandEnumValue(def.Name, value))
		}
	}

	e.schema.AddType(t)
}

func (e *expander) expandField(typeName string, field *ast.FieldDefinition) *schema.Field {
	coordinate := typeName + "." + field.Name
	out := &schema.Field{
		Name:        field.Name,
		Description: field.Description,
		Type:        copyType(field.Type),
	}

	for _, argument := range field.Arguments {
		out.Arguments = append(out.Arguments, e.expandInputValue(fmt.Sprintf("%s(%s:)", coordinate, argument.Name), argument.Name,
			argument.Description, argument.Type, argument.DefaultValue, argument.Directives, ast.LocationArgumentDefinition))
	}

	for _, directive := range e.resolveDirectives(field.Directives, coordinate, ast.LocationFieldDefinition) {
		switch directive.Name {
		case directives.ExternalDirectiveName:
			out.External = true
		case directives.ShareableDirectiveName:
			out.Shareable = true
		case directives.OverrideDirectiveName:
			out.Override = stringArgument(directive, directives.FromArgumentName)
		case directives.RequiresDirectiveName:
			out.Requires = stringArgument(directive, directives.FieldsArgumentName)
		case directives.ProvidesDirectiveName:
			out.Provides = stringArgument(directive, directives.FieldsArgumentName)
		case directives.InaccessibleDirectiveName:
			out.Inaccessible = true
		case directives.TagDirectiveName:
			out.Tags = append(out.Tags, stringArgument(directive, directives.NameArgumentName))
		case directives.DeprecatedDirectiveName:
			reason := deprecationReason(directive)
			out.Deprecation = &reason
		}
	}

	return out
}

func (e *expander) expandInputValue(coordinate, name, description string, valueType *ast.Type, defaultValue *ast.Value,
	list ast.DirectiveList, location ast.DirectiveLocation) *schema.InputValue {
	out := &schema.InputValue{
		Name:         name,
		Description:  description,
		Type:         copyType(valueType),
		DefaultValue: defaultValue,
	}
	for _, directive := range e.resolveDirectives(list, coordinate, location) {
		switch directive.Name {
		case directives.InaccessibleDirectiveName:
			out.Inaccessible = true
		case directives.TagDirectiveName:
			out.Tags = append(out.Tags, stringArgument(directive, directives.NameArgumentName))
		case directives.DeprecatedDirectiveName:
			reason := deprecationReason(directive)
			out.Deprecation = &reason
		}
	}
	return out
}

func (e *expander) expandEnumValue(typeName string, value *ast.EnumValueDefinition) *schema.EnumValue {
	out := &schema.EnumValue{
		Name:        value.Name,
		Description: value.Description,
	}
	for _, directive := range e.resolveDirectives(value.Directives, typeName+"."+value.Name, ast.LocationEnumValue) {
		switch directive.Name {
		case directives.InaccessibleDirectiveName:
			out.Inaccessible = true
		case directives.TagDirectiveName:
			out.Tags = append(out.Tags, stringArgument(directive, directives.NameArgumentName))
		case directives.DeprecatedDirectiveName:
			reason := deprecationReason(directive)
			out.Deprecation = &reason
		}
	}
	return out
}

func deprecationReason(directive *ast.Directive) string {
	if reason := stringArgument(directive, directives.ReasonArgumentName); reason != "" {
		return reason
	}
	return "No longer supported"
}

// resolveDirectives returns the federation directives of list under their canonical names.
// Applications of custom directives are not part of the composed schema and are dropped.
func (e *expander) resolveDirectives(list ast.DirectiveList, coordinate string, location ast.DirectiveLocation) []*ast.Directive {
	out := make([]*ast.Directive, 0, len(list))
	for _, directive := range list {
		if _, custom := e.customDirectives[directive.Name]; custom {
			continue
		}
		canonical := e.links.canonical(directive.Name)
		if !e.registry.IsFederationDirective(canonical) && !e.registry.IsUnsupported(canonical) {
			e.addError("%s: directive @%s is not defined", coordinate, directive.Name)
			continue
		}
		if canonical == directives.ShareableDirectiveName || canonical == directives.OverrideDirectiveName {
			e.usesFederation2Directives = true
		}
		resolved := &ast.Directive{
			Name:      canonical,
			Arguments: directive.Arguments,
			Position:  directive.Position,
			Location:  location,
		}
		e.applications = append(e.applications, application{coordinate: coordinate, location: location, directive: resolved})
		out = append(out, resolved)
	}
	return out
}

func defaultRootTypeName(operation ast.Operation) string {
	switch operation {
	case ast.Mutation:
		return schema.MutationTypeName
	case ast.Subscription:
		return schema.SubscriptionTypeName
	default:
		return schema.QueryTypeName
	}
}

func (e *expander) resolveRootTypes(schemaDefinitions ast.SchemaDefinitionList) {
	declared := make(map[ast.Operation]string)
	for _, schemaDefinition := range schemaDefinitions {
		for _, operationType := range schemaDefinition.OperationTypes {
			declared[operationType.Operation] = operationType.Type
		}
	}

	for _, operation := range []ast.Operation{ast.Query, ast.Mutation, ast.Subscription} {
		defaultName := defaultRootTypeName(operation)
		name, isDeclared := declared[operation]
		if !isDeclared {
			if len(declared) > 0 {
				continue
			}
			name = defaultName
		}

		t, exists := e.schema.TypeByName(name)
		if !exists {
			if isDeclared {
				e.addError("root %s type %q is not defined", operation, name)
			}
			continue
		}
		if t.Kind != schema.TypeKindObject {
			e.addError("root %s type %q must be an object type", operation, name)
			continue
		}
		if len(t.Fields) == 0 {
			// only federation fields
			e.schema.RemoveType(name)
			continue
		}
		if name != defaultName {
			if _, taken := e.schema.TypeByName(defaultName); taken {
				e.addError("root %s type %q cannot be renamed to %q: a type with that name exists", operation, name, defaultName)
				continue
			}
			e.schema.RenameType(name, defaultName)
		}

		switch operation {
		case ast.Query:
			e.schema.QueryType = defaultName
		case ast.Mutation:
			e.schema.MutationType = defaultName
		case ast.Subscription:
			e.schema.SubscriptionType = defaultName
		}
	}
}
