// Package subgraph turns subgraph SDL into validated federation schemas.
//
// A subgraph moves through the phases Initial, Expanded, Upgraded and Validated.
// Every phase is its own type and only offers the transition to the next phase,
// so a subgraph that skipped a phase cannot be handed to composition.
package subgraph

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

// Initial is a parsed subgraph whose federation directives are not resolved yet.
type Initial struct {
	name     string
	url      string
	document *ast.SchemaDocument
}

// Parse parses the SDL of a subgraph. Syntax errors are reported as INVALID_GRAPHQL.
func Parse(name, url, sdl string) (*Initial, error) {
	document, err := parser.ParseSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		report := compositionreport.Report{}
		report.AddError(compositionreport.ErrInvalidGraphQL(name, err.Error()))
		return nil, report
	}
	return &Initial{name: name, url: url, document: document}, nil
}

func (i *Initial) Name() string {
	return i.name
}

func (i *Initial) URL() string {
	return i.url
}

// Expanded is a subgraph with links, extensions and root type names resolved.
type Expanded struct {
	subgraph     *schema.Subgraph
	applications []application
}

func (e *Expanded) Name() string {
	return e.subgraph.Name
}

func (e *Expanded) Schema() *schema.Schema {
	return e.subgraph.Schema
}

// Upgraded is an expanded subgraph using federation 2 semantics.
type Upgraded struct {
	subgraph     *schema.Subgraph
	applications []application
	upgradedFrom int
}

func (u *Upgraded) Name() string {
	return u.subgraph.Name
}

func (u *Upgraded) Schema() *schema.Schema {
	return u.subgraph.Schema
}

// UpgradedFrom returns the federation version the subgraph was written for.
func (u *Upgraded) UpgradedFrom() int {
	return u.upgradedFrom
}

// Validated is a subgraph ready for composition. It must be treated as read-only.
type Validated struct {
	subgraph *schema.Subgraph
}

func (v *Validated) Name() string {
	return v.subgraph.Name
}

func (v *Validated) URL() string {
	return v.subgraph.URL
}

func (v *Validated) Schema() *schema.Schema {
	return v.subgraph.Schema
}

func (v *Validated) Subgraph() *schema.Subgraph {
	return v.subgraph
}

// application is a federation directive applied somewhere in the subgraph,
// kept from expansion until validation.
type application struct {
	coordinate string
	location   ast.DirectiveLocation
	directive  *ast.Directive
}
