package supergraph

import (
	"io"
	"strings"

	"github.com/wundergraph/fedcomposer/internal/pkg/quotes"
	"github.com/wundergraph/fedcomposer/pkg/composition/merge"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

const (
	indent = "  "

	linkSpecURL         = "https://specs.apollo.dev/link/v1.0"
	joinSpecURL         = "https://specs.apollo.dev/join/v0.3"
	inaccessibleSpecURL = "https://specs.apollo.dev/inaccessible/v0.2"
	tagSpecURL          = "https://specs.apollo.dev/tag/v0.3"

	defaultDeprecationReason = "No longer supported"
)

var joinDirectiveDefinitions = []string{
	"directive @join__enumValue(graph: join__Graph!) repeatable on ENUM_VALUE",
	"directive @join__field(graph: join__Graph, requires: join__FieldSet, provides: join__FieldSet, type: String, external: Boolean, override: String, usedOverridden: Boolean) repeatable on FIELD_DEFINITION | INPUT_FIELD_DEFINITION",
	"directive @join__graph(name: String!, url: String!) on ENUM_VALUE",
	"directive @join__implements(graph: join__Graph!, interface: String!) repeatable on OBJECT | INTERFACE",
	"directive @join__type(graph: join__Graph!, key: join__FieldSet, extension: Boolean! = false, resolvable: Boolean! = true, isInterfaceObject: Boolean! = false) repeatable on OBJECT | INTERFACE | UNION | ENUM | INPUT_OBJECT | SCALAR",
	"directive @join__unionMember(graph: join__Graph!, member: String!) repeatable on UNION",
	"directive @link(url: String, as: String, for: link__Purpose, import: [link__Import]) repeatable on SCHEMA",
}

const (
	inaccessibleDirectiveDefinition = "directive @inaccessible on FIELD_DEFINITION | OBJECT | INTERFACE | UNION | ARGUMENT_DEFINITION | SCALAR | ENUM | ENUM_VALUE | INPUT_OBJECT | INPUT_FIELD_DEFINITION"
	tagDirectiveDefinition          = "directive @tag(name: String!) repeatable on FIELD_DEFINITION | OBJECT | INTERFACE | UNION | ARGUMENT_DEFINITION | SCALAR | ENUM | ENUM_VALUE | INPUT_OBJECT | INPUT_FIELD_DEFINITION | SCHEMA"
)

// PrintSupergraph writes the supergraph SDL of the merged schema.
func PrintSupergraph(s *merge.Schema, out io.Writer) error {
	p := printer{out: out, schema: s}
	p.printSupergraph()
	return p.err
}

// PrintAPISchema writes the client facing schema of the merged schema.
func PrintAPISchema(s *merge.Schema, out io.Writer) error {
	p := printer{out: out, schema: s, api: true}
	p.printAPISchema()
	return p.err
}

type printer struct {
	out    io.Writer
	err    error
	schema *merge.Schema
	// api prints the API schema: inaccessible elements and join directives are left out.
	api    bool
	blocks int
}

func (p *printer) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.out, s)
}

// block starts a top level definition, separated from the previous one by an empty line.
func (p *printer) block() {
	if p.blocks > 0 {
		p.write("\n")
	}
	p.blocks++
}

func (p *printer) printSupergraph() {
	inaccessible, tagged := p.usesInaccessibleOrTag()

	p.block()
	p.write("schema\n")
	p.write(indent + "@link(url: " + quotes.WrapString(linkSpecURL) + ")\n")
	p.write(indent + "@link(url: " + quotes.WrapString(joinSpecURL) + ", for: EXECUTION)\n")
	if inaccessible {
		p.write(indent + "@link(url: " + quotes.WrapString(inaccessibleSpecURL) + ", for: SECURITY)\n")
	}
	if tagged {
		p.write(indent + "@link(url: " + quotes.WrapString(tagSpecURL) + ")\n")
	}
	p.write("{\n")
	p.printRootOperation("query", p.schema.QueryType)
	p.printRootOperation("mutation", p.schema.MutationType)
	p.printRootOperation("subscription", p.schema.SubscriptionType)
	p.write("}\n")

	for _, definition := range joinDirectiveDefinitions {
		p.block()
		p.write(definition + "\n")
	}
	if inaccessible {
		p.block()
		p.write(inaccessibleDirectiveDefinition + "\n")
	}
	if tagged {
		p.block()
		p.write(tagDirectiveDefinition + "\n")
	}
	for _, directive := range p.schema.Directives {
		p.printDirectiveDefinition(directive)
	}

	p.block()
	p.write("scalar join__FieldSet\n")

	p.block()
	p.write("enum join__Graph {\n")
	for _, graph := range p.schema.Graphs {
		p.write(indent + graph.EnumValue + " @join__graph(name: " + quotes.WrapString(graph.Name) + ", url: " + quotes.WrapString(graph.URL) + ")\n")
	}
	p.write("}\n")

	p.block()
	p.write("scalar link__Import\n")

	p.block()
	p.write("enum link__Purpose {\n" + indent + "SECURITY\n" + indent + "EXECUTION\n}\n")

	for _, t := range p.schema.Types() {
		p.printType(t)
	}
}

func (p *printer) printAPISchema() {
	for _, t := range p.schema.Types() {
		if t.Inaccessible {
			continue
		}
		p.printType(t)
	}
}

func (p *printer) usesInaccessibleOrTag() (inaccessible, tagged bool) {
	mark := func(isInaccessible bool, tags []string) {
		inaccessible = inaccessible || isInaccessible
		tagged = tagged || len(tags) > 0
	}
	for _, t := range p.schema.Types() {
		mark(t.Inaccessible, t.Tags)
		for _, field := range t.Fields {
			mark(field.Inaccessible, field.Tags)
			for _, argument := range field.Arguments {
				mark(argument.Inaccessible, argument.Tags)
			}
		}
		for _, field := range t.InputFields {
			mark(field.Inaccessible, field.Tags)
		}
		for _, value := range t.EnumValues {
			mark(value.Inaccessible, value.Tags)
		}
	}
	return inaccessible, tagged
}

func (p *printer) printRootOperation(operation, typeName string) {
	if typeName == "" {
		return
	}
	p.write(indent + operation + ": " + typeName + "\n")
}

func (p *printer) printDescription(prefix, description string) {
	if description == "" {
		return
	}
	if !strings.Contains(description, "\n") {
		p.write(prefix + quotes.WrapString(description) + "\n")
		return
	}
	for _, line := range quotes.WrapBlockLines(description, prefix) {
		p.write(line + "\n")
	}
}

func (p *printer) printDirectiveDefinition(directive *merge.DirectiveDefinition) {
	p.block()
	p.printDescription("", directive.Description)
	p.write("directive @" + directive.Name)
	p.printArguments("", directive.Arguments)
	if directive.Repeatable {
		p.write(" repeatable")
	}
	locations := make([]string, len(directive.Locations))
	for i := range directive.Locations {
		locations[i] = string(directive.Locations[i])
	}
	p.write(" on " + strings.Join(locations, " | ") + "\n")
}

func (p *printer) printType(t *merge.Type) {
	p.block()
	p.printDescription("", t.Description)

	switch t.Kind {
	case schema.TypeKindScalar:
		p.write("scalar " + t.Name)
	case schema.TypeKindObject:
		p.write("type " + t.Name)
	case schema.TypeKindInterface:
		p.write("interface " + t.Name)
	case schema.TypeKindUnion:
		p.write("union " + t.Name)
	case schema.TypeKindEnum:
		p.write("enum " + t.Name)
	case schema.TypeKindInputObject:
		p.write("input " + t.Name)
	}

	if interfaces := p.accessibleMembers(t.Interfaces); len(interfaces) > 0 {
		names := make([]string, len(interfaces))
		for i := range interfaces {
			names[i] = interfaces[i].Name
		}
		p.write(" implements " + strings.Join(names, " & "))
	}

	directives := p.typeDirectives(t)
	for _, directive := range directives {
		p.write("\n" + indent + directive)
	}

	switch t.Kind {
	case schema.TypeKindScalar:
		p.write("\n")
	case schema.TypeKindUnion:
		members := p.accessibleMembers(t.Members)
		names := make([]string, len(members))
		for i := range members {
			names[i] = members[i].Name
		}
		if len(directives) > 0 {
			p.write("\n" + indent + "= " + strings.Join(names, " | ") + "\n")
			return
		}
		p.write(" = " + strings.Join(names, " | ") + "\n")
	default:
		if len(directives) > 0 {
			p.write("\n{\n")
		} else {
			p.write(" {\n")
		}
		p.printFields(t)
		p.write("}\n")
	}
}

func (p *printer) accessibleMembers(members []*merge.Member) []*merge.Member {
	if !p.api {
		return members
	}
	out := make([]*merge.Member, 0, len(members))
	for _, member := range members {
		if t, ok := p.schema.TypeByName(member.Name); ok && t.Inaccessible {
			continue
		}
		out = append(out, member)
	}
	return out
}

func (p *printer) typeDirectives(t *merge.Type) []string {
	var out []string
	if !p.api {
		for _, source := range t.Sources {
			graph := p.graph(source.Subgraph)
			extension := ""
			if source.Extension {
				extension = ", extension: true"
			}
			if len(source.Keys) == 0 {
				out = append(out, "@join__type(graph: "+graph+extension+")")
				continue
			}
			for _, key := range source.Keys {
				directive := "@join__type(graph: " + graph + ", key: " + quotes.WrapString(key.Fields) + extension
				if !key.Resolvable {
					directive += ", resolvable: false"
				}
				out = append(out, directive+")")
			}
		}
		for _, iface := range t.Interfaces {
			for _, subgraph := range iface.Subgraphs {
				out = append(out, "@join__implements(graph: "+p.graph(subgraph)+", interface: "+quotes.WrapString(iface.Name)+")")
			}
		}
		for _, member := range t.Members {
			for _, subgraph := range member.Subgraphs {
				out = append(out, "@join__unionMember(graph: "+p.graph(subgraph)+", member: "+quotes.WrapString(member.Name)+")")
			}
		}
	}
	if t.SpecifiedBy != "" {
		out = append(out, "@specifiedBy(url: "+quotes.WrapString(t.SpecifiedBy)+")")
	}
	return append(out, p.accessDirectives(t.Inaccessible, t.Tags)...)
}

func (p *printer) accessDirectives(inaccessible bool, tags []string) []string {
	if p.api {
		return nil
	}
	var out []string
	if inaccessible {
		out = append(out, "@inaccessible")
	}
	for _, tag := range tags {
		out = append(out, "@tag(name: "+quotes.WrapString(tag)+")")
	}
	return out
}

func deprecation(reason *string) []string {
	if reason == nil {
		return nil
	}
	if *reason == defaultDeprecationReason {
		return []string{"@deprecated"}
	}
	return []string{"@deprecated(reason: " + quotes.WrapString(*reason) + ")"}
}

func (p *printer) graph(subgraph string) string {
	if graph, ok := p.schema.Graph(subgraph); ok {
		return graph.EnumValue
	}
	return subgraph
}

func (p *printer) printFields(t *merge.Type) {
	for _, field := range t.Fields {
		if p.api && field.Inaccessible {
			continue
		}
		p.printDescription(indent, field.Description)
		p.write(indent + field.Name)
		p.printArguments(indent, field.Arguments)
		p.write(": " + field.Type.String())

		directives := p.joinFieldDirectives(t, field)
		directives = append(directives, deprecation(field.Deprecation)...)
		directives = append(directives, p.accessDirectives(field.Inaccessible, field.Tags)...)
		p.printInlineDirectives(directives)
		p.write("\n")
	}

	for _, field := range t.InputFields {
		if p.api && field.Inaccessible {
			continue
		}
		p.printDescription(indent, field.Description)
		p.write(indent)
		var joinFields []string
		if !p.api && len(field.Subgraphs) != len(t.Sources) {
			for _, subgraph := range field.Subgraphs {
				joinFields = append(joinFields, "@join__field(graph: "+p.graph(subgraph)+")")
			}
		}
		p.printInputValue(field, joinFields...)
		p.write("\n")
	}

	for _, value := range t.EnumValues {
		if p.api && value.Inaccessible {
			continue
		}
		p.printDescription(indent, value.Description)
		p.write(indent + value.Name)
		var directives []string
		if !p.api {
			for _, subgraph := range value.Subgraphs {
				directives = append(directives, "@join__enumValue(graph: "+p.graph(subgraph)+")")
			}
		}
		directives = append(directives, deprecation(value.Deprecation)...)
		directives = append(directives, p.accessDirectives(value.Inaccessible, value.Tags)...)
		p.printInlineDirectives(directives)
		p.write("\n")
	}
}

func (p *printer) printInlineDirectives(directives []string) {
	for _, directive := range directives {
		p.write(" " + directive)
	}
}

// joinFieldDirectives returns one @join__field per resolving definition of the field,
// or none when every subgraph defining the type resolves the field as merged.
func (p *printer) joinFieldDirectives(t *merge.Type, field *merge.Field) []string {
	if p.api {
		return nil
	}
	plain := len(field.Sources) == len(t.Sources)
	for _, source := range field.Sources {
		if source.External || source.Overridden || source.Override != "" || source.Requires != "" || source.Provides != "" ||
			source.Type.String() != field.Type.String() {
			plain = false
			break
		}
	}
	if plain {
		return nil
	}

	var out []string
	for _, source := range field.Sources {
		if source.Overridden {
			continue
		}
		arguments := []string{"graph: " + p.graph(source.Subgraph)}
		if source.Requires != "" {
			arguments = append(arguments, "requires: "+quotes.WrapString(source.Requires))
		}
		if source.Provides != "" {
			arguments = append(arguments, "provides: "+quotes.WrapString(source.Provides))
		}
		if source.Type.String() != field.Type.String() {
			arguments = append(arguments, "type: "+quotes.WrapString(source.Type.String()))
		}
		if source.External {
			arguments = append(arguments, "external: true")
		}
		if source.Override != "" {
			arguments = append(arguments, "override: "+quotes.WrapString(source.Override))
		}
		out = append(out, "@join__field("+strings.Join(arguments, ", ")+")")
	}
	return out
}

func (p *printer) printArguments(prefix string, arguments []*merge.Argument) {
	var visible []*merge.Argument
	described := false
	for _, argument := range arguments {
		if p.api && argument.Inaccessible {
			continue
		}
		visible = append(visible, argument)
		described = described || argument.Description != ""
	}
	if len(visible) == 0 {
		return
	}

	if !described {
		p.write("(")
		for i, argument := range visible {
			if i != 0 {
				p.write(", ")
			}
			p.printInputValue(argument)
		}
		p.write(")")
		return
	}

	p.write("(\n")
	for _, argument := range visible {
		p.printDescription(prefix+indent, argument.Description)
		p.write(prefix + indent)
		p.printInputValue(argument)
		p.write("\n")
	}
	p.write(prefix + ")")
}

func (p *printer) printInputValue(value *merge.InputValue, directives ...string) {
	p.write(value.Name + ": " + value.Type.String())
	if value.DefaultValue != nil {
		p.write(" = " + value.DefaultValue.String())
	}
	directives = append(directives, deprecation(value.Deprecation)...)
	directives = append(directives, p.accessDirectives(value.Inaccessible, value.Tags)...)
	p.printInlineDirectives(directives)
}
