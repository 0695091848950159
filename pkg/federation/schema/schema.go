// Package schema is the in-memory model of a subgraph schema with its federation
// directive applications resolved into typed markers.
//
// Types live in an arena owned by Schema and reference each other by name, so
// cyclic type graphs need no pointer cycles.
package schema

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

const (
	QueryTypeName        = "Query"
	MutationTypeName     = "Mutation"
	SubscriptionTypeName = "Subscription"
)

type TypeKind int

const (
	TypeKindScalar TypeKind = iota + 1
	TypeKindObject
	TypeKindInterface
	TypeKindUnion
	TypeKindEnum
	TypeKindInputObject
)

func (k TypeKind) String() string {
	switch k {
	case TypeKindScalar:
		return "SCALAR"
	case TypeKindObject:
		return "OBJECT"
	case TypeKindInterface:
		return "INTERFACE"
	case TypeKindUnion:
		return "UNION"
	case TypeKindEnum:
		return "ENUM"
	case TypeKindInputObject:
		return "INPUT_OBJECT"
	default:
		return fmt.Sprintf("TypeKind(%d)", int(k))
	}
}

func (k TypeKind) IsComposite() bool {
	return k == TypeKindObject || k == TypeKindInterface || k == TypeKindUnion
}

func (k TypeKind) IsInputType() bool {
	return k == TypeKindScalar || k == TypeKindEnum || k == TypeKindInputObject
}

func (k TypeKind) IsOutputType() bool {
	return k != TypeKindInputObject
}

// TypeKindFromDefinition maps a gqlparser definition kind.
func TypeKindFromDefinition(kind ast.DefinitionKind) (TypeKind, bool) {
	switch kind {
	case ast.Scalar:
		return TypeKindScalar, true
	case ast.Object:
		return TypeKindObject, true
	case ast.Interface:
		return TypeKindInterface, true
	case ast.Union:
		return TypeKindUnion, true
	case ast.Enum:
		return TypeKindEnum, true
	case ast.InputObject:
		return TypeKindInputObject, true
	}
	return 0, false
}

// Key is one @key application.
type Key struct {
	Fields     string
	Resolvable bool
}

type Type struct {
	Kind        TypeKind
	Name        string
	Description string

	Fields       []*Field
	InputFields  []*InputValue
	EnumValues   []*EnumValue
	UnionMembers []string
	Interfaces   []string

	Keys []Key
	// Shareable marks every field of the type as @shareable.
	Shareable bool
	// Extension is set for `extend type` definitions and for types with @extends.
	Extension    bool
	Inaccessible bool
	Tags         []string
	SpecifiedBy  string
}

func (t *Type) Field(name string) *Field {
	for _, field := range t.Fields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

func (t *Type) InputField(name string) *InputValue {
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

func (t *Type) HasMember(name string) bool {
	for _, member := range t.UnionMembers {
		if member == name {
			return true
		}
	}
	return false
}

func (t *Type) Implements(name string) bool {
	for _, iface := range t.Interfaces {
		if iface == name {
			return true
		}
	}
	return false
}

func (t *Type) IsEntity() bool {
	return len(t.Keys) > 0
}

type Field struct {
	Name        string
	Description string
	Type        *ast.Type
	Arguments   []*InputValue

	External  bool
	Shareable bool
	// Override is the name of the subgraph this field is taken over from.
	Override     string
	Requires     string
	Provides     string
	Inaccessible bool
	Tags         []string
	Deprecation  *string
}

func (f *Field) Argument(name string) *InputValue {
	for _, argument := range f.Arguments {
		if argument.Name == name {
			return argument
		}
	}
	return nil
}

// InputValue is an argument or an input object field.
type InputValue struct {
	Name         string
	Description  string
	Type         *ast.Type
	DefaultValue *ast.Value
	Inaccessible bool
	Tags         []string
	Deprecation  *string
}

type EnumValue struct {
	Name         string
	Description  string
	Inaccessible bool
	Tags         []string
	Deprecation  *string
}

// DirectiveDefinition is a custom (non federation) directive definition.
type DirectiveDefinition struct {
	Name        string
	Description string
	Arguments   []*InputValue
	Locations   []ast.DirectiveLocation
	Repeatable  bool
}

type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string

	// FederationVersion is 1 for subgraphs without a federation v2 @link, 2 otherwise.
	FederationVersion int

	Directives []*DirectiveDefinition

	types     []*Type
	typeIndex map[string]int
}

func New() *Schema {
	return &Schema{
		FederationVersion: 2,
		typeIndex:         make(map[string]int),
	}
}

// AddType appends a type to the arena and returns its index.
// A type with an already known name replaces the previous definition.
func (s *Schema) AddType(t *Type) int {
	if ref, exists := s.typeIndex[t.Name]; exists {
		s.types[ref] = t
		return ref
	}
	s.types = append(s.types, t)
	ref := len(s.types) - 1
	s.typeIndex[t.Name] = ref
	return ref
}

// RemoveType drops a type from the arena; indexes of later types shift.
func (s *Schema) RemoveType(name string) {
	ref, exists := s.typeIndex[name]
	if !exists {
		return
	}
	s.types = append(s.types[:ref], s.types[ref+1:]...)
	s.reindex()
}

// RenameType renames a type and every reference to it.
func (s *Schema) RenameType(from, to string) {
	ref, exists := s.typeIndex[from]
	if !exists || from == to {
		return
	}
	s.types[ref].Name = to
	for _, t := range s.types {
		for _, field := range t.Fields {
			renameTypeRef(field.Type, from, to)
			for _, argument := range field.Arguments {
				renameTypeRef(argument.Type, from, to)
			}
		}
		for _, field := range t.InputFields {
			renameTypeRef(field.Type, from, to)
		}
		for i := range t.UnionMembers {
			if t.UnionMembers[i] == from {
				t.UnionMembers[i] = to
			}
		}
		for i := range t.Interfaces {
			if t.Interfaces[i] == from {
				t.Interfaces[i] = to
			}
		}
	}
	for _, directive := range s.Directives {
		for _, argument := range directive.Arguments {
			renameTypeRef(argument.Type, from, to)
		}
	}
	s.reindex()
}

func renameTypeRef(t *ast.Type, from, to string) {
	for current := t; current != nil; current = current.Elem {
		if current.NamedType == from {
			current.NamedType = to
		}
	}
}

func (s *Schema) reindex() {
	s.typeIndex = make(map[string]int, len(s.types))
	for i, t := range s.types {
		s.typeIndex[t.Name] = i
	}
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

// Types returns the arena in declaration order. Callers must not modify the slice.
func (s *Schema) Types() []*Type {
	return s.types
}

func (s *Schema) Directive(name string) *DirectiveDefinition {
	for _, directive := range s.Directives {
		if directive.Name == name {
			return directive
		}
	}
	return nil
}

// Clone returns a deep copy of the schema. Default values are shared, they are
// never modified after expansion.
func (s *Schema) Clone() *Schema {
	out := &Schema{
		QueryType:         s.QueryType,
		MutationType:      s.MutationType,
		SubscriptionType:  s.SubscriptionType,
		FederationVersion: s.FederationVersion,
		types:             make([]*Type, len(s.types)),
		typeIndex:         make(map[string]int, len(s.typeIndex)),
	}
	for i, t := range s.types {
		out.types[i] = t.clone()
	}
	for name, ref := range s.typeIndex {
		out.typeIndex[name] = ref
	}
	if s.Directives != nil {
		out.Directives = make([]*DirectiveDefinition, len(s.Directives))
		for i, directive := range s.Directives {
			copied := *directive
			copied.Arguments = cloneInputValues(directive.Arguments)
			copied.Locations = append([]ast.DirectiveLocation(nil), directive.Locations...)
			out.Directives[i] = &copied
		}
	}
	return out
}

func (t *Type) clone() *Type {
	out := *t
	if t.Fields != nil {
		out.Fields = make([]*Field, len(t.Fields))
		for i, field := range t.Fields {
			copied := *field
			copied.Type = cloneTypeRef(field.Type)
			copied.Arguments = cloneInputValues(field.Arguments)
			copied.Tags = cloneStrings(field.Tags)
			out.Fields[i] = &copied
		}
	}
	out.InputFields = cloneInputValues(t.InputFields)
	if t.EnumValues != nil {
		out.EnumValues = make([]*EnumValue, len(t.EnumValues))
		for i, value := range t.EnumValues {
			copied := *value
			copied.Tags = cloneStrings(value.Tags)
			out.EnumValues[i] = &copied
		}
	}
	out.UnionMembers = cloneStrings(t.UnionMembers)
	out.Interfaces = cloneStrings(t.Interfaces)
	out.Keys = append([]Key(nil), t.Keys...)
	out.Tags = cloneStrings(t.Tags)
	return &out
}

func cloneInputValues(values []*InputValue) []*InputValue {
	if values == nil {
		return nil
	}
	out := make([]*InputValue, len(values))
	for i, value := range values {
		copied := *value
		copied.Type = cloneTypeRef(value.Type)
		copied.Tags = cloneStrings(value.Tags)
		out[i] = &copied
	}
	return out
}

func cloneTypeRef(t *ast.Type) *ast.Type {
	if t == nil {
		return nil
	}
	return &ast.Type{NamedType: t.NamedType, Elem: cloneTypeRef(t.Elem), NonNull: t.NonNull, Position: t.Position}
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string(nil), values...)
}

// RootTypeNames returns the non-empty root operation type names, query first.
func (s *Schema) RootTypeNames() []string {
	out := make([]string, 0, 3)
	for _, name := range []string{s.QueryType, s.MutationType, s.SubscriptionType} {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Subgraph is a named schema fragment taking part in a composition.
type Subgraph struct {
	Name   string
	URL    string
	Schema *Schema
}

// IsBuiltInScalar reports the scalars every GraphQL schema defines implicitly.
func IsBuiltInScalar(name string) bool {
	switch name {
	case "String", "Int", "Float", "Boolean", "ID":
		return true
	}
	return false
}
