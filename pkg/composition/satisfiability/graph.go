package satisfiability

import (
	"github.com/phf/go-queue/queue"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/wundergraph/fedcomposer/pkg/composition/merge"
	"github.com/wundergraph/fedcomposer/pkg/federation/fieldset"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

type edgeKind int

const (
	edgeKindRoot edgeKind = iota + 1
	edgeKindField
	edgeKindAbstract
	edgeKindKey
)

// state is a position while resolving a query: subgraph is resolving a value of typeName.
// provided holds the fields the subgraph can resolve at this position because of @provides,
// even though they are external.
type state struct {
	subgraph string
	typeName string
	provided fieldset.SelectionSet
	// operation is only set for the synthetic root states.
	operation string
}

func (s state) key() string {
	if s.operation != "" {
		return "\x00" + s.operation
	}
	if len(s.provided) == 0 {
		return s.subgraph + "\x00" + s.typeName
	}
	return s.subgraph + "\x00" + s.typeName + "\x00" + s.provided.String()
}

func (s state) providesField(field *merge.Field) bool {
	if s.provided.Lookup(field.Name) == nil {
		return false
	}
	_, defined := field.Source(s.subgraph)
	return defined
}

// reachabilityGraph connects the states of all subgraphs. Node ids are indexes into states.
type reachabilityGraph struct {
	schema   *merge.Schema
	directed *simple.DirectedGraph
	states   []state
	index    map[string]int64
	roots    map[string]int64
	kinds    map[[2]int64]edgeKind
	fieldSet map[string]fieldset.SelectionSet
	pending  *queue.Queue
}

func buildGraph(s *merge.Schema) *reachabilityGraph {
	g := &reachabilityGraph{
		schema:   s,
		directed: simple.NewDirectedGraph(),
		index:    make(map[string]int64),
		roots:    make(map[string]int64),
		kinds:    make(map[[2]int64]edgeKind),
		fieldSet: make(map[string]fieldset.SelectionSet),
		pending:  queue.New(),
	}

	for _, t := range s.Types() {
		if !t.Kind.IsComposite() {
			continue
		}
		for _, source := range t.Sources {
			g.node(state{subgraph: source.Subgraph, typeName: t.Name})
		}
	}

	for _, operation := range s.RootTypeNames() {
		t, ok := s.TypeByName(operation)
		if !ok {
			continue
		}
		root := g.add(state{operation: operation})
		g.roots[operation] = root
		for _, source := range t.Sources {
			g.connect(root, g.node(state{subgraph: source.Subgraph, typeName: operation}), edgeKindRoot)
		}
	}

	for g.pending.Len() > 0 {
		g.expand(g.pending.PopFront().(int64))
	}
	return g
}

func (g *reachabilityGraph) add(s state) int64 {
	id := int64(len(g.states))
	g.states = append(g.states, s)
	g.index[s.key()] = id
	g.directed.AddNode(simple.Node(id))
	return id
}

// node returns the id of the state, adding it and queueing it for expansion when it is new.
func (g *reachabilityGraph) node(s state) int64 {
	if id, ok := g.index[s.key()]; ok {
		return id
	}
	id := g.add(s)
	g.pending.PushBack(id)
	return id
}

func (g *reachabilityGraph) connect(from, to int64, kind edgeKind) {
	if from == to || g.directed.HasEdgeFromTo(from, to) {
		return
	}
	g.directed.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	g.kinds[[2]int64{from, to}] = kind
}

func (g *reachabilityGraph) parse(fields string) fieldset.SelectionSet {
	if set, ok := g.fieldSet[fields]; ok {
		return set
	}
	set, err := fieldset.Parse(fields)
	if err != nil {
		set = nil
	}
	g.fieldSet[fields] = set
	return set
}

func (g *reachabilityGraph) expand(id int64) {
	current := g.states[id]
	t, ok := g.schema.TypeByName(current.typeName)
	if !ok {
		return
	}

	switch t.Kind {
	case schema.TypeKindObject:
		g.expandFields(id, current, t)
		g.expandKeys(id, current, t)
	case schema.TypeKindInterface:
		g.expandFields(id, current, t)
		g.expandKeys(id, current, t)
		for _, implementation := range g.schema.Implementations(t.Name) {
			if implementation.ImplementsIn(t.Name, current.subgraph) {
				g.connect(id, g.node(state{subgraph: current.subgraph, typeName: implementation.Name, provided: current.provided}), edgeKindAbstract)
			}
		}
	case schema.TypeKindUnion:
		for _, member := range t.Members {
			if member.In(current.subgraph) {
				g.connect(id, g.node(state{subgraph: current.subgraph, typeName: member.Name, provided: current.provided}), edgeKindAbstract)
			}
		}
	}
}

func (g *reachabilityGraph) resolvable(s state, field *merge.Field) bool {
	return field.ResolvableIn(s.subgraph) || s.providesField(field)
}

// provides returns the selection available on the value returned by field.
func (g *reachabilityGraph) provides(s state, field *merge.Field) fieldset.SelectionSet {
	if source, ok := field.Source(s.subgraph); ok && source.Provides != "" && !source.External {
		return g.parse(source.Provides)
	}
	if selection := s.provided.Lookup(field.Name); selection != nil {
		return selection.Selections
	}
	return nil
}

func (g *reachabilityGraph) expandFields(id int64, current state, t *merge.Type) {
	for _, field := range t.Fields {
		if !g.resolvable(current, field) {
			continue
		}
		target, ok := g.schema.TypeByName(field.Type.Name())
		if !ok || !target.Kind.IsComposite() {
			continue
		}
		if _, defined := target.Source(current.subgraph); !defined {
			continue
		}
		g.connect(id, g.node(state{subgraph: current.subgraph, typeName: target.Name, provided: g.provides(current, field)}), edgeKindField)
	}
}

// expandKeys adds a jump to every other subgraph declaring a resolvable @key whose
// fields can be selected at the current state.
func (g *reachabilityGraph) expandKeys(id int64, current state, t *merge.Type) {
	for _, source := range t.Sources {
		if source.Subgraph == current.subgraph {
			continue
		}
		for _, key := range source.Keys {
			if !key.Resolvable {
				continue
			}
			set := g.parse(key.Fields)
			if set == nil || !g.selectable(current, t, set) {
				continue
			}
			g.connect(id, g.node(state{subgraph: source.Subgraph, typeName: t.Name}), edgeKindKey)
			break
		}
	}
}

func (g *reachabilityGraph) selectable(current state, t *merge.Type, set fieldset.SelectionSet) bool {
	for _, selection := range set {
		field := t.Field(selection.Name)
		if field == nil || !g.resolvable(current, field) {
			return false
		}
		if len(selection.Selections) == 0 {
			continue
		}
		nested, ok := g.schema.TypeByName(field.Type.Name())
		if !ok || !nested.Kind.IsComposite() {
			return false
		}
		next := state{subgraph: current.subgraph, typeName: nested.Name, provided: g.provides(current, field)}
		if !g.selectable(next, nested, selection.Selections) {
			return false
		}
	}
	return true
}

// walk returns the ids of all states reachable from the node, the node included.
// follow limits the walk to edges of the kinds it returns true for, nil follows every edge.
func (g *reachabilityGraph) walk(from int64, follow func(kind edgeKind) bool) []int64 {
	var out []int64
	bfs := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			out = append(out, n.ID())
		},
	}
	if follow != nil {
		bfs.Traverse = func(e graph.Edge) bool {
			return follow(g.kinds[[2]int64{e.From().ID(), e.To().ID()}])
		}
	}
	bfs.Walk(g.directed, simple.Node(from), nil)
	return out
}
