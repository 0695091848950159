package subgraph

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/fedcomposer/pkg/federation/directives"
)

const (
	federationSpecURLPrefix = "https://specs.apollo.dev/federation/"
	defaultFederationPrefix = "federation__"
)

// links resolves the local names a subgraph uses for federation elements
// to their canonical names, following the subgraph's @link applications.
type links struct {
	federationLinked bool
	prefix           string
	// imports maps local names to canonical names, without the leading @ for directives.
	imports map[string]string
}

func newLinks() *links {
	return &links{
		prefix:  defaultFederationPrefix,
		imports: make(map[string]string),
	}
}

func (l *links) collect(definitions ast.SchemaDefinitionList) {
	for _, definition := range definitions {
		for _, directive := range definition.Directives {
			if directive.Name != directives.LinkDirectiveName {
				continue
			}
			url := stringArgument(directive, directives.URLArgumentName)
			if !strings.HasPrefix(url, federationSpecURLPrefix) {
				continue
			}
			l.federationLinked = true
			if as := stringArgument(directive, directives.AsArgumentName); as != "" {
				l.prefix = as + "__"
			}
			l.collectImports(directive.Arguments.ForName(directives.ImportArgumentName))
		}
	}
}

func (l *links) collectImports(argument *ast.Argument) {
	if argument == nil || argument.Value == nil || argument.Value.Kind != ast.ListValue {
		return
	}
	for _, child := range argument.Value.Children {
		value := child.Value
		switch value.Kind {
		case ast.StringValue:
			name := strings.TrimPrefix(value.Raw, "@")
			l.imports[name] = name
		case ast.ObjectValue:
			var name, as string
			for _, field := range value.Children {
				switch field.Name {
				case directives.NameArgumentName:
					name = strings.TrimPrefix(field.Value.Raw, "@")
				case directives.AsArgumentName:
					as = strings.TrimPrefix(field.Value.Raw, "@")
				}
			}
			if name == "" {
				continue
			}
			if as == "" {
				as = name
			}
			l.imports[as] = name
		}
	}
}

func (l *links) canonical(local string) string {
	if name, ok := l.imports[local]; ok {
		return name
	}
	if strings.HasPrefix(local, l.prefix) {
		return strings.TrimPrefix(local, l.prefix)
	}
	return local
}

func stringArgument(directive *ast.Directive, name string) string {
	argument := directive.Arguments.ForName(name)
	if argument == nil || argument.Value == nil {
		return ""
	}
	if argument.Value.Kind != ast.StringValue && argument.Value.Kind != ast.BlockValue {
		return ""
	}
	return argument.Value.Raw
}

func boolArgument(directive *ast.Directive, name string, defaultValue bool) bool {
	argument := directive.Arguments.ForName(name)
	if argument == nil || argument.Value == nil || argument.Value.Kind != ast.BooleanValue {
		return defaultValue
	}
	return argument.Value.Raw == "true"
}
