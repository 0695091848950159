// Package directives holds the metadata of the federation directives: where they may be
// applied, which arguments they take and how their applications are merged across subgraphs.
package directives

import (
	"fmt"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

const (
	KeyDirectiveName          = "key"
	ExternalDirectiveName     = "external"
	ShareableDirectiveName    = "shareable"
	OverrideDirectiveName     = "override"
	RequiresDirectiveName     = "requires"
	ProvidesDirectiveName     = "provides"
	ExtendsDirectiveName      = "extends"
	InaccessibleDirectiveName = "inaccessible"
	TagDirectiveName          = "tag"
	LinkDirectiveName         = "link"
	DeprecatedDirectiveName   = "deprecated"
	SpecifiedByDirectiveName  = "specifiedBy"

	FieldsArgumentName     = "fields"
	ResolvableArgumentName = "resolvable"
	FromArgumentName       = "from"
	NameArgumentName       = "name"
	ReasonArgumentName     = "reason"
	URLArgumentName        = "url"
	ImportArgumentName     = "import"
	AsArgumentName         = "as"
)

// MergePolicy describes how applications of a directive in several subgraphs are combined.
type MergePolicy int

const (
	// PolicyUnionIfPresent keeps every application found in any subgraph.
	PolicyUnionIfPresent MergePolicy = iota + 1
	// PolicyRequireIdentical requires all applications to be equal.
	PolicyRequireIdentical
	// PolicySingleOwnerWins lets exactly one subgraph decide, ties broken by subgraph name.
	PolicySingleOwnerWins
	// PolicyIntersect keeps the marker only if every contributing definition carries it.
	PolicyIntersect
)

func (p MergePolicy) String() string {
	switch p {
	case PolicyUnionIfPresent:
		return "union-if-present"
	case PolicyRequireIdentical:
		return "require-identical"
	case PolicySingleOwnerWins:
		return "single-owner-wins"
	case PolicyIntersect:
		return "intersect"
	default:
		return fmt.Sprintf("MergePolicy(%d)", int(p))
	}
}

type ArgumentSpec struct {
	Name         string
	Type         *ast.Type
	DefaultValue *ast.Value
}

func (a ArgumentSpec) Required() bool {
	return a.Type.NonNull && a.DefaultValue == nil
}

type Spec struct {
	Name       string
	Arguments  []ArgumentSpec
	Locations  []ast.DirectiveLocation
	Repeatable bool
	Policy     MergePolicy
}

func (s *Spec) Argument(name string) (ArgumentSpec, bool) {
	for i := range s.Arguments {
		if s.Arguments[i].Name == name {
			return s.Arguments[i], true
		}
	}
	return ArgumentSpec{}, false
}

func (s *Spec) AllowedAt(location ast.DirectiveLocation) bool {
	for i := range s.Locations {
		if s.Locations[i] == location {
			return true
		}
	}
	return false
}

// Definition renders the spec as a directive definition, e.g. for printing.
func (s *Spec) Definition() *ast.DirectiveDefinition {
	def := &ast.DirectiveDefinition{
		Name:         s.Name,
		Locations:    append([]ast.DirectiveLocation(nil), s.Locations...),
		IsRepeatable: s.Repeatable,
	}
	for _, argument := range s.Arguments {
		def.Arguments = append(def.Arguments, &ast.ArgumentDefinition{
			Name:         argument.Name,
			Type:         argument.Type,
			DefaultValue: argument.DefaultValue,
		})
	}
	return def
}

var allTypeSystemLocations = []ast.DirectiveLocation{
	ast.LocationFieldDefinition,
	ast.LocationObject,
	ast.LocationInterface,
	ast.LocationUnion,
	ast.LocationArgumentDefinition,
	ast.LocationScalar,
	ast.LocationEnum,
	ast.LocationEnumValue,
	ast.LocationInputObject,
	ast.LocationInputFieldDefinition,
}

var fieldSetArgument = ArgumentSpec{Name: FieldsArgumentName, Type: ast.NonNullNamedType("FieldSet", nil)}

var federationSpecs = []*Spec{
	{
		Name: KeyDirectiveName,
		Arguments: []ArgumentSpec{
			fieldSetArgument,
			{
				Name:         ResolvableArgumentName,
				Type:         ast.NamedType("Boolean", nil),
				DefaultValue: &ast.Value{Kind: ast.BooleanValue, Raw: "true"},
			},
		},
		Locations:  []ast.DirectiveLocation{ast.LocationObject, ast.LocationInterface},
		Repeatable: true,
		Policy:     PolicyUnionIfPresent,
	},
	{
		Name:      ExternalDirectiveName,
		Locations: []ast.DirectiveLocation{ast.LocationObject, ast.LocationFieldDefinition},
		Policy:    PolicySingleOwnerWins,
	},
	{
		Name:      ShareableDirectiveName,
		Locations: []ast.DirectiveLocation{ast.LocationObject, ast.LocationFieldDefinition},
		Policy:    PolicyIntersect,
	},
	{
		Name:      OverrideDirectiveName,
		Arguments: []ArgumentSpec{{Name: FromArgumentName, Type: ast.NonNullNamedType("String", nil)}},
		Locations: []ast.DirectiveLocation{ast.LocationFieldDefinition},
		Policy:    PolicySingleOwnerWins,
	},
	{
		Name:      RequiresDirectiveName,
		Arguments: []ArgumentSpec{fieldSetArgument},
		Locations: []ast.DirectiveLocation{ast.LocationFieldDefinition},
		Policy:    PolicyUnionIfPresent,
	},
	{
		Name:      ProvidesDirectiveName,
		Arguments: []ArgumentSpec{fieldSetArgument},
		Locations: []ast.DirectiveLocation{ast.LocationFieldDefinition},
		Policy:    PolicyUnionIfPresent,
	},
	{
		Name:      ExtendsDirectiveName,
		Locations: []ast.DirectiveLocation{ast.LocationObject, ast.LocationInterface},
		Policy:    PolicyUnionIfPresent,
	},
	{
		Name:      InaccessibleDirectiveName,
		Locations: allTypeSystemLocations,
		Policy:    PolicyUnionIfPresent,
	},
	{
		Name:       TagDirectiveName,
		Arguments:  []ArgumentSpec{{Name: NameArgumentName, Type: ast.NonNullNamedType("String", nil)}},
		Locations:  allTypeSystemLocations,
		Repeatable: true,
		Policy:     PolicyUnionIfPresent,
	},
	{
		Name: LinkDirectiveName,
		Arguments: []ArgumentSpec{
			{Name: URLArgumentName, Type: ast.NonNullNamedType("String", nil)},
			{Name: AsArgumentName, Type: ast.NamedType("String", nil)},
			{Name: ImportArgumentName, Type: ast.ListType(ast.NamedType("link__Import", nil), nil)},
			{Name: "for", Type: ast.NamedType("link__Purpose", nil)},
		},
		Locations:  []ast.DirectiveLocation{ast.LocationSchema},
		Repeatable: true,
		Policy:     PolicyUnionIfPresent,
	},
	{
		Name: DeprecatedDirectiveName,
		Arguments: []ArgumentSpec{{
			Name:         ReasonArgumentName,
			Type:         ast.NamedType("String", nil),
			DefaultValue: &ast.Value{Kind: ast.StringValue, Raw: "No longer supported"},
		}},
		Locations: []ast.DirectiveLocation{
			ast.LocationFieldDefinition,
			ast.LocationArgumentDefinition,
			ast.LocationInputFieldDefinition,
			ast.LocationEnumValue,
		},
		Policy: PolicySingleOwnerWins,
	},
	{
		Name:      SpecifiedByDirectiveName,
		Arguments: []ArgumentSpec{{Name: URLArgumentName, Type: ast.NonNullNamedType("String", nil)}},
		Locations: []ast.DirectiveLocation{ast.LocationScalar},
		Policy:    PolicyRequireIdentical,
	},
}

// Registry is immutable once built and may be shared between goroutines.
type Registry struct {
	specs                 map[string]*Spec
	fieldArgumentPolicy   MergePolicy
	unsupportedDirectives map[string]struct{}
}

type Option func(r *Registry)

// WithFieldArgumentPolicy changes how field arguments are merged.
// Only PolicyRequireIdentical and PolicyIntersect are meaningful.
func WithFieldArgumentPolicy(policy MergePolicy) Option {
	return func(r *Registry) {
		r.fieldArgumentPolicy = policy
	}
}

// WithSpec adds or replaces a directive spec.
func WithSpec(spec *Spec) Option {
	return func(r *Registry) {
		r.specs[spec.Name] = spec
	}
}

func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		specs:               make(map[string]*Spec, len(federationSpecs)),
		fieldArgumentPolicy: PolicyRequireIdentical,
		unsupportedDirectives: map[string]struct{}{
			"interfaceObject":  {},
			"composeDirective": {},
			"context":          {},
			"fromContext":      {},
		},
	}
	for _, spec := range federationSpecs {
		r.specs[spec.Name] = spec
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Default is the process wide registry holding the federation directives.
var Default = NewRegistry()

func (r *Registry) Lookup(name string) (*Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

func (r *Registry) IsFederationDirective(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// IsUnsupported reports federation directives this composer knows but does not implement.
func (r *Registry) IsUnsupported(name string) bool {
	_, ok := r.unsupportedDirectives[name]
	return ok
}

func (r *Registry) FieldArgumentPolicy() MergePolicy {
	return r.fieldArgumentPolicy
}

// Names returns all registered directive names in lexicographic order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks a directive application against its spec.
func (r *Registry) Validate(directive *ast.Directive, location ast.DirectiveLocation) error {
	spec, ok := r.Lookup(directive.Name)
	if !ok {
		return fmt.Errorf("unknown directive @%s", directive.Name)
	}
	if !spec.AllowedAt(location) {
		return fmt.Errorf("directive @%s is not allowed on %s", directive.Name, location)
	}
	for _, argument := range directive.Arguments {
		if _, ok := spec.Argument(argument.Name); !ok {
			return fmt.Errorf("directive @%s has no argument %q", directive.Name, argument.Name)
		}
	}
	for _, argument := range spec.Arguments {
		if !argument.Required() {
			continue
		}
		value := directive.Arguments.ForName(argument.Name)
		if value == nil || value.Value == nil || value.Value.Kind == ast.NullValue {
			return fmt.Errorf("directive @%s requires argument %q", directive.Name, argument.Name)
		}
	}
	return nil
}
