// Package fieldset parses the FieldSet arguments of @key, @requires and @provides.
package fieldset

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

type Selection struct {
	Name       string
	Selections SelectionSet
}

type SelectionSet []*Selection

// Parse parses a field set such as `id organization { id }`.
// Aliases, arguments, directives and fragments are rejected.
func Parse(fields string) (SelectionSet, error) {
	if strings.TrimSpace(fields) == "" {
		return nil, fmt.Errorf("field set is empty")
	}

	document, err := parser.ParseQuery(&ast.Source{Name: "fieldset", Input: "{" + fields + "}"})
	if err != nil {
		return nil, fmt.Errorf("parse field set: %s", err.Error())
	}
	if len(document.Operations) != 1 || len(document.Fragments) != 0 {
		return nil, fmt.Errorf("field set must be a single selection set")
	}

	return convert(document.Operations[0].SelectionSet)
}

// MustParse is Parse for field sets known to be valid, e.g. after subgraph validation.
func MustParse(fields string) SelectionSet {
	set, err := Parse(fields)
	if err != nil {
		panic(err)
	}
	return set
}

func convert(selectionSet ast.SelectionSet) (SelectionSet, error) {
	out := make(SelectionSet, 0, len(selectionSet))
	for _, selection := range selectionSet {
		field, ok := selection.(*ast.Field)
		if !ok {
			return nil, fmt.Errorf("fragments are not supported in field sets")
		}
		if field.Alias != "" && field.Alias != field.Name {
			return nil, fmt.Errorf("aliases are not supported in field sets")
		}
		if len(field.Arguments) > 0 {
			return nil, fmt.Errorf("field %q: arguments are not supported in field sets", field.Name)
		}
		if len(field.Directives) > 0 {
			return nil, fmt.Errorf("field %q: directives are not supported in field sets", field.Name)
		}
		children, err := convert(field.SelectionSet)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			children = nil
		}
		out = append(out, &Selection{Name: field.Name, Selections: children})
	}
	return out, nil
}

func (s SelectionSet) String() string {
	var builder strings.Builder
	s.write(&builder)
	return builder.String()
}

func (s SelectionSet) write(builder *strings.Builder) {
	for i, selection := range s {
		if i != 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(selection.Name)
		if len(selection.Selections) > 0 {
			builder.WriteString(" { ")
			selection.Selections.write(builder)
			builder.WriteString(" }")
		}
	}
}

func (s SelectionSet) Lookup(name string) *Selection {
	for _, selection := range s {
		if selection.Name == name {
			return selection
		}
	}
	return nil
}

// Merge returns the union of both selection sets; nested selections are merged as well.
func (s SelectionSet) Merge(other SelectionSet) SelectionSet {
	out := make(SelectionSet, 0, len(s)+len(other))
	for _, selection := range s {
		out = append(out, &Selection{Name: selection.Name, Selections: selection.Selections})
	}
	for _, selection := range other {
		existing := out.Lookup(selection.Name)
		if existing == nil {
			out = append(out, &Selection{Name: selection.Name, Selections: selection.Selections})
			continue
		}
		existing.Selections = existing.Selections.Merge(selection.Selections)
		if len(existing.Selections) == 0 {
			existing.Selections = nil
		}
	}
	return out
}

// Normalize parses and reprints a field set, it returns the input on parse errors.
func Normalize(fields string) string {
	set, err := Parse(fields)
	if err != nil {
		return fields
	}
	return set.String()
}
