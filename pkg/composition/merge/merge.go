// Package merge merges the schemas of validated subgraphs into one schema.
//
// Subgraphs are processed in name order and every type name is merged on its own,
// in parallel. The rules differ per kind: fields of objects and interfaces must be
// shareable when several subgraphs resolve them, union members and output enum values
// are unioned, input object fields and input enum values are intersected, scalars and
// custom directive definitions must agree. Every problem found is collected into the
// returned report, merging never stops at the first conflict.
package merge

import (
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"golang.org/x/sync/errgroup"

	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/directives"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

type Options struct {
	// Concurrency limits how many types are merged in parallel, zero means GOMAXPROCS.
	Concurrency int
	// Registry decides the field argument policy, nil means directives.Default.
	Registry *directives.Registry
}

// definition is a type as defined by one subgraph.
type definition struct {
	subgraph string
	t        *schema.Type
}

type merger struct {
	registry    *directives.Registry
	subgraphs   []*schema.Subgraph
	inputEnums  map[string]struct{}
	outputEnums map[string]struct{}
}

// Merge merges the subgraphs. The returned schema is complete only if the report holds no errors.
func Merge(subgraphs []*schema.Subgraph, options Options) (*Schema, compositionreport.Report) {
	sorted := make([]*schema.Subgraph, len(subgraphs))
	copy(sorted, subgraphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	m := &merger{
		registry:    options.Registry,
		subgraphs:   sorted,
		inputEnums:  make(map[string]struct{}),
		outputEnums: make(map[string]struct{}),
	}
	if m.registry == nil {
		m.registry = directives.Default
	}
	m.collectEnumUsages()

	definitions := make(map[string][]definition)
	names := make([]string, 0)
	for _, subgraph := range sorted {
		for _, t := range subgraph.Schema.Types() {
			if _, seen := definitions[t.Name]; !seen {
				names = append(names, t.Name)
			}
			definitions[t.Name] = append(definitions[t.Name], definition{subgraph: subgraph.Name, t: t})
		}
	}
	sort.Strings(names)

	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	types := make([]*Type, len(names))
	reports := make([]compositionreport.Report, len(names))
	group := errgroup.Group{}
	group.SetLimit(concurrency)
	for i, name := range names {
		i, name := i, name
		group.Go(func() error {
			types[i], reports[i] = m.mergeType(name, definitions[name])
			return nil
		})
	}
	_ = group.Wait()

	out := newSchema()
	report := compositionreport.Report{}
	for i := range names {
		report.Append(reports[i])
		if types[i] != nil {
			out.addType(types[i])
		}
	}
	out.Directives = m.mergeDirectiveDefinitions(&report)
	out.Graphs = graphs(sorted)
	m.resolveRootTypes(out)

	report.Sort()
	return out, report
}

// collectEnumUsages records which enums are used in input and which in output positions
// in any subgraph; this decides whether enum values are unioned or intersected.
func (m *merger) collectEnumUsages() {
	for _, subgraph := range m.subgraphs {
		s := subgraph.Schema
		for _, t := range s.Types() {
			for _, field := range t.Fields {
				markEnum(s, field.Type.Name(), m.outputEnums)
				for _, argument := range field.Arguments {
					markEnum(s, argument.Type.Name(), m.inputEnums)
				}
			}
			for _, field := range t.InputFields {
				markEnum(s, field.Type.Name(), m.inputEnums)
			}
		}
		for _, directive := range s.Directives {
			for _, argument := range directive.Arguments {
				markEnum(s, argument.Type.Name(), m.inputEnums)
			}
		}
	}
}

func markEnum(s *schema.Schema, name string, usages map[string]struct{}) {
	if t, ok := s.TypeByName(name); ok && t.Kind == schema.TypeKindEnum {
		usages[name] = struct{}{}
	}
}

func (m *merger) hasSubgraph(name string) bool {
	for _, subgraph := range m.subgraphs {
		if subgraph.Name == name {
			return true
		}
	}
	return false
}

func (m *merger) resolveRootTypes(out *Schema) {
	for _, subgraph := range m.subgraphs {
		s := subgraph.Schema
		if s.QueryType != "" {
			out.QueryType = schema.QueryTypeName
		}
		if s.MutationType != "" {
			out.MutationType = schema.MutationTypeName
		}
		if s.SubscriptionType != "" {
			out.SubscriptionType = schema.SubscriptionTypeName
		}
	}
}

func (m *merger) mergeType(name string, definitions []definition) (*Type, compositionreport.Report) {
	report := compositionreport.Report{}

	kind := definitions[0].t.Kind
	for _, def := range definitions[1:] {
		if def.t.Kind != kind {
			subgraphs := make([]string, len(definitions))
			kinds := make([]string, len(definitions))
			for i := range definitions {
				subgraphs[i] = definitions[i].subgraph
				kinds[i] = definitions[i].t.Kind.String()
			}
			report.AddError(compositionreport.ErrTypeKindMismatch(name, subgraphs, kinds))
			return nil, report
		}
	}

	out := &Type{Kind: kind, Name: name}
	for _, def := range definitions {
		if out.Description == "" {
			out.Description = def.t.Description
		}
		out.Inaccessible = out.Inaccessible || def.t.Inaccessible
		out.Tags = unionStrings(out.Tags, def.t.Tags)
		out.Sources = append(out.Sources, TypeSource{
			Subgraph:  def.subgraph,
			Keys:      append([]schema.Key(nil), def.t.Keys...),
			Extension: def.t.Extension,
			Shareable: def.t.Shareable,
		})
	}

	switch kind {
	case schema.TypeKindObject, schema.TypeKindInterface:
		m.mergeFields(out, definitions, &report)
		out.Interfaces = mergeMembers(definitions, func(t *schema.Type) []string { return t.Interfaces })
	case schema.TypeKindUnion:
		out.Members = mergeMembers(definitions, func(t *schema.Type) []string { return t.UnionMembers })
	case schema.TypeKindEnum:
		m.mergeEnumValues(out, definitions, &report)
	case schema.TypeKindInputObject:
		m.mergeInputFields(out, definitions, &report)
	case schema.TypeKindScalar:
		mergeScalar(out, definitions, &report)
	}

	return out, report
}

func mergeMembers(definitions []definition, names func(t *schema.Type) []string) []*Member {
	var out []*Member
	for _, def := range definitions {
		for _, name := range names(def.t) {
			member := findMember(out, name)
			if member == nil {
				member = &Member{Name: name}
				out = append(out, member)
			}
			if !member.In(def.subgraph) {
				member.Subgraphs = append(member.Subgraphs, def.subgraph)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func subgraphsOf(definitions []definition) []string {
	out := make([]string, len(definitions))
	for i := range definitions {
		out[i] = definitions[i].subgraph
	}
	return out
}

// unionStrings returns the sorted union of both lists without duplicates.
func unionStrings(left, right []string) []string {
	if len(right) == 0 {
		return left
	}
	set := make(map[string]struct{}, len(left)+len(right))
	for _, value := range left {
		set[value] = struct{}{}
	}
	for _, value := range right {
		set[value] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func quoted(values []string) string {
	out := make([]string, len(values))
	for i := range values {
		out[i] = strconv.Quote(values[i])
	}
	return strings.Join(out, ", ")
}

// graphs assigns every subgraph a unique join__Graph enum value derived from its name.
func graphs(subgraphs []*schema.Subgraph) []Graph {
	out := make([]Graph, 0, len(subgraphs))
	used := make(map[string]struct{}, len(subgraphs))
	for _, subgraph := range subgraphs {
		base := graphEnumValue(subgraph.Name)
		value := base
		for i := 1; ; i++ {
			if _, taken := used[value]; !taken {
				break
			}
			value = base + "_" + strconv.Itoa(i)
		}
		used[value] = struct{}{}
		out = append(out, Graph{Name: subgraph.Name, URL: subgraph.URL, EnumValue: value})
	}
	return out
}

// graphEnumValue converts a subgraph name like "productCatalog" or "product-catalog"
// into PRODUCT_CATALOG.
func graphEnumValue(name string) string {
	var builder strings.Builder
	for i, r := range strcase.ToScreamingSnake(name) {
		switch {
		case r >= 'A' && r <= 'Z', r == '_':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				builder.WriteByte('_')
			}
			builder.WriteRune(r)
		default:
			builder.WriteByte('_')
		}
	}
	if builder.Len() == 0 {
		return "_"
	}
	return builder.String()
}
