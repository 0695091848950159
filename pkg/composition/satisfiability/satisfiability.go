// Package satisfiability proves that every field reachable from the root operation types
// of a merged schema can be resolved by some subgraph.
//
// The check builds a reachability graph over (subgraph, type) states. A state has edges to
// the states of the fields its subgraph resolves, to the implementations and members its
// subgraph knows of, and to other subgraphs whose resolvable @key fields can be selected
// at the state. @provides adds states carrying the provided selection. Every field of a
// reachable type must then be resolvable at one of the states reached from a root.
package satisfiability

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wundergraph/fedcomposer/pkg/composition/merge"
	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

// RequiresPolicy decides how fields are reported that are reachable, but only resolvable
// through a @requires selection no other subgraph can provide.
type RequiresPolicy int

const (
	// RequiresAsHint reports FRAGILE_REQUIRES_CHAIN hints.
	RequiresAsHint RequiresPolicy = iota
	// RequiresAsError reports UNSATISFIABLE_REQUIRES errors.
	RequiresAsError
)

func (p RequiresPolicy) String() string {
	switch p {
	case RequiresAsHint:
		return "hint"
	case RequiresAsError:
		return "error"
	default:
		return fmt.Sprintf("RequiresPolicy(%d)", int(p))
	}
}

func ParseRequiresPolicy(value string) (RequiresPolicy, error) {
	switch value {
	case "", "hint":
		return RequiresAsHint, nil
	case "error":
		return RequiresAsError, nil
	default:
		return 0, fmt.Errorf("unknown requires policy %q, expected hint or error", value)
	}
}

type Policy struct {
	UnsatisfiedRequires RequiresPolicy
}

type Option func(c *Checker)

// WithConcurrency limits how many root operation types are walked in parallel.
func WithConcurrency(concurrency int) Option {
	return func(c *Checker) {
		c.concurrency = concurrency
	}
}

type Checker struct {
	policy      Policy
	concurrency int
}

func New(policy Policy, options ...Option) *Checker {
	c := &Checker{policy: policy}
	for _, option := range options {
		option(c)
	}
	return c
}

// Check reports an UNREACHABLE_FIELD error for every field of a reachable type that no
// state reached from a root can resolve.
func (c *Checker) Check(s *merge.Schema) compositionreport.Report {
	g := buildGraph(s)
	reached := c.walkRoots(g)

	statesByType := make(map[string][]int64)
	for _, id := range reached {
		typeName := g.states[id].typeName
		statesByType[typeName] = append(statesByType[typeName], id)
	}

	report := compositionreport.Report{}
	reachable := s.ReachableTypeNames()
	for _, t := range s.Types() {
		if _, ok := reachable[t.Name]; !ok {
			continue
		}
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			continue
		}
		for _, field := range t.Fields {
			c.checkField(g, t, field, statesByType[t.Name], &report)
		}
	}

	report.Sort()
	return report
}

// walkRoots returns the ids of all states reachable from any root, sorted.
func (c *Checker) walkRoots(g *reachabilityGraph) []int64 {
	operations := make([]string, 0, len(g.roots))
	for operation := range g.roots {
		operations = append(operations, operation)
	}
	sort.Strings(operations)

	results := make([][]int64, len(operations))
	group := errgroup.Group{}
	if c.concurrency > 0 {
		group.SetLimit(c.concurrency)
	}
	for i, operation := range operations {
		i, operation := i, operation
		group.Go(func() error {
			results[i] = g.walk(g.roots[operation], nil)
			return nil
		})
	}
	_ = group.Wait()

	seen := make(map[int64]struct{})
	var out []int64
	for _, ids := range results {
		for _, id := range ids {
			if _, ok := seen[id]; ok || g.states[id].operation != "" {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i] < out[j]
	})
	return out
}

func (c *Checker) checkField(g *reachabilityGraph, t *merge.Type, field *merge.Field, states []int64, report *compositionreport.Report) {
	resolving := field.ResolvingSubgraphs()
	if len(resolving) == 0 {
		return
	}

	var fragile []string
	requires := ""
	for _, id := range states {
		current := g.states[id]
		if current.providesField(field) {
			return
		}
		if !field.ResolvableIn(current.subgraph) {
			continue
		}
		source, _ := field.Source(current.subgraph)
		if source.Requires == "" || g.requiresSatisfied(id, t, source.Requires) {
			return
		}
		fragile = appendUnique(fragile, current.subgraph)
		requires = source.Requires
	}

	coordinate := t.Name + "." + field.Name
	if len(fragile) > 0 {
		if c.policy.UnsatisfiedRequires == RequiresAsError {
			report.AddError(compositionreport.ErrUnsatisfiableRequires(coordinate, fragile, requires))
			return
		}
		report.AddHint(compositionreport.HintFragileRequiresChain(coordinate, fragile, requires))
		return
	}

	var reachableIn []string
	for _, id := range states {
		reachableIn = appendUnique(reachableIn, g.states[id].subgraph)
	}
	report.AddError(compositionreport.ErrUnreachableField(coordinate, resolving, reachableIn))
}

// requiresSatisfied reports whether every field of the @requires selection can be fetched
// at the state, either from the provided selection or from a subgraph reachable through keys.
func (g *reachabilityGraph) requiresSatisfied(id int64, t *merge.Type, requires string) bool {
	set := g.parse(requires)
	if set == nil {
		return false
	}
	current := g.states[id]

	var subgraphs []string
	for _, reached := range g.walk(id, func(kind edgeKind) bool { return kind == edgeKindKey }) {
		subgraphs = appendUnique(subgraphs, g.states[reached].subgraph)
	}

	for _, selection := range set {
		field := t.Field(selection.Name)
		if field == nil {
			return false
		}
		if current.providesField(field) {
			continue
		}
		found := false
		for _, subgraph := range subgraphs {
			if field.ResolvableIn(subgraph) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}
