package merge

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

// Schema is the merged schema. Types are stored sorted by name and reference each
// other by name; every merged element records the subgraphs it came from.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string

	Directives []*DirectiveDefinition
	// Graphs holds the composed subgraphs in name order.
	Graphs []Graph

	types     []*Type
	typeIndex map[string]int
}

func newSchema() *Schema {
	return &Schema{typeIndex: make(map[string]int)}
}

func (s *Schema) addType(t *Type) {
	s.typeIndex[t.Name] = len(s.types)
	s.types = append(s.types, t)
}

// Types returns all merged types sorted by name. Callers must not modify the slice.
func (s *Schema) Types() []*Type {
	return s.types
}

func (s *Schema) TypeIndex(name string) (int, bool) {
	ref, ok := s.typeIndex[name]
	return ref, ok
}

func (s *Schema) TypeByName(name string) (*Type, bool) {
	ref, ok := s.typeIndex[name]
	if !ok {
		return nil, false
	}
	return s.types[ref], true
}

func (s *Schema) Graph(subgraph string) (Graph, bool) {
	for _, graph := range s.Graphs {
		if graph.Name == subgraph {
			return graph, true
		}
	}
	return Graph{}, false
}

func (s *Schema) RootTypeNames() []string {
	out := make([]string, 0, 3)
	for _, name := range []string{s.QueryType, s.MutationType, s.SubscriptionType} {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Implementations returns the object and interface types implementing the interface, in name order.
func (s *Schema) Implementations(name string) []*Type {
	var out []*Type
	for _, t := range s.types {
		if t.Implements(name) {
			out = append(out, t)
		}
	}
	return out
}

// ReachableTypeNames returns the types reachable from the root operation types through
// fields, arguments, input fields, union members and interface implementations.
func (s *Schema) ReachableTypeNames() map[string]struct{} {
	out := make(map[string]struct{}, len(s.types))
	pending := s.RootTypeNames()
	for len(pending) > 0 {
		name := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, seen := out[name]; seen {
			continue
		}
		t, ok := s.TypeByName(name)
		if !ok {
			continue
		}
		out[name] = struct{}{}

		for _, field := range t.Fields {
			pending = append(pending, field.Type.Name())
			for _, argument := range field.Arguments {
				pending = append(pending, argument.Type.Name())
			}
		}
		for _, field := range t.InputFields {
			pending = append(pending, field.Type.Name())
		}
		for _, member := range t.Members {
			pending = append(pending, member.Name)
		}
		for _, iface := range t.Interfaces {
			pending = append(pending, iface.Name)
		}
		if t.Kind == schema.TypeKindInterface {
			for _, implementation := range s.Implementations(name) {
				pending = append(pending, implementation.Name)
			}
		}
	}
	return out
}

// Graph is a composed subgraph. EnumValue is its name in the join__Graph enum.
type Graph struct {
	Name      string
	URL       string
	EnumValue string
}

// TypeSource is the definition of a type in one subgraph.
type TypeSource struct {
	Subgraph  string
	Keys      []schema.Key
	Extension bool
	Shareable bool
}

type Type struct {
	Kind        schema.TypeKind
	Name        string
	Description string

	Fields      []*Field
	InputFields []*InputField
	EnumValues  []*EnumValue
	Members     []*Member
	Interfaces  []*Member

	Inaccessible bool
	Tags         []string
	SpecifiedBy  string

	Sources []TypeSource
}

func (t *Type) Field(name string) *Field {
	for _, field := range t.Fields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

func (t *Type) InputField(name string) *InputField {
	for _, field := range t.InputFields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

func (t *Type) EnumValue(name string) *EnumValue {
	for _, value := range t.EnumValues {
		if value.Name == name {
			return value
		}
	}
	return nil
}

func (t *Type) Source(subgraph string) (TypeSource, bool) {
	for _, source := range t.Sources {
		if source.Subgraph == subgraph {
			return source, true
		}
	}
	return TypeSource{}, false
}

func (t *Type) Subgraphs() []string {
	out := make([]string, len(t.Sources))
	for i := range t.Sources {
		out[i] = t.Sources[i].Subgraph
	}
	return out
}

func (t *Type) HasMember(name string) bool {
	return findMember(t.Members, name) != nil
}

func (t *Type) Implements(name string) bool {
	return findMember(t.Interfaces, name) != nil
}

// ImplementsIn reports whether the type implements the interface in the given subgraph.
func (t *Type) ImplementsIn(name, subgraph string) bool {
	member := findMember(t.Interfaces, name)
	return member != nil && member.In(subgraph)
}

// FieldSource is the definition of a field in one subgraph.
type FieldSource struct {
	Subgraph string
	Type     *ast.Type
	External bool
	Shareable bool
	// Overridden is set when another subgraph took the field over with @override.
	Overridden bool
	Override   string
	Requires   string
	Provides   string
}

type Field struct {
	Name         string
	Description  string
	Type         *ast.Type
	Arguments    []*Argument
	Deprecation  *string
	Inaccessible bool
	Tags         []string

	Sources []FieldSource
}

func (f *Field) Source(subgraph string) (FieldSource, bool) {
	for _, source := range f.Sources {
		if source.Subgraph == subgraph {
			return source, true
		}
	}
	return FieldSource{}, false
}

// ResolvableIn reports whether the subgraph resolves the field itself.
func (f *Field) ResolvableIn(subgraph string) bool {
	source, ok := f.Source(subgraph)
	return ok && !source.External && !source.Overridden
}

// ResolvingSubgraphs returns the subgraphs resolving the field, in name order.
func (f *Field) ResolvingSubgraphs() []string {
	var out []string
	for _, source := range f.Sources {
		if !source.External && !source.Overridden {
			out = append(out, source.Subgraph)
		}
	}
	return out
}

func (f *Field) Argument(name string) *Argument {
	for _, argument := range f.Arguments {
		if argument.Name == name {
			return argument
		}
	}
	return nil
}

// InputValue is a merged argument or input object field.
type InputValue struct {
	Name         string
	Description  string
	Type         *ast.Type
	DefaultValue *ast.Value
	Deprecation  *string
	Inaccessible bool
	Tags         []string
	Subgraphs    []string
}

type Argument = InputValue

type InputField = InputValue

type EnumValue struct {
	Name         string
	Description  string
	Deprecation  *string
	Inaccessible bool
	Tags         []string
	Subgraphs    []string
}

// Member is a union member or an implemented interface.
type Member struct {
	Name      string
	Subgraphs []string
}

func (m *Member) In(subgraph string) bool {
	for _, name := range m.Subgraphs {
		if name == subgraph {
			return true
		}
	}
	return false
}

func findMember(members []*Member, name string) *Member {
	for _, member := range members {
		if member.Name == name {
			return member
		}
	}
	return nil
}

type DirectiveDefinition struct {
	Name        string
	Description string
	Arguments   []*Argument
	Locations   []ast.DirectiveLocation
	Repeatable  bool
	Subgraphs   []string
}
