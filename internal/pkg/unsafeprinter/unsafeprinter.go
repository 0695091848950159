// Package unsafeprinter reformats SDL in tests. It panics on invalid input.
package unsafeprinter

import (
	"bytes"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

func parse(sdl string) *ast.SchemaDocument {
	doc, err := parser.ParseSchema(&ast.Source{Name: "unsafeprinter", Input: sdl})
	if err != nil {
		panic(err)
	}
	return doc
}

// Prettify parses sdl and prints it back with two space indentation.
func Prettify(sdl string) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf, formatter.WithIndent("  ")).FormatSchemaDocument(parse(sdl))
	return buf.String()
}

// DefinitionNames returns the names of all type definitions in sdl in document order.
func DefinitionNames(sdl string) []string {
	doc := parse(sdl)
	names := make([]string, 0, len(doc.Definitions))
	for _, def := range doc.Definitions {
		names = append(names, def.Name)
	}
	return names
}
