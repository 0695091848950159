// Package supergraph holds the result of merging subgraphs and the composed supergraph.
//
// A Merged schema can only become a Supergraph in two ways: Satisfy runs a checker and
// yields a Supergraph in StateSatisfiable, AssumeSatisfiable skips the check and yields
// one in StateAssumedSatisfiable. Both values are immutable.
package supergraph

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/wundergraph/fedcomposer/pkg/composition/merge"
	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
)

// Checker proves a merged schema satisfiable.
type Checker interface {
	Check(schema *merge.Schema) compositionreport.Report
}

type Merged struct {
	schema *merge.Schema
	hints  []compositionreport.Hint
}

func NewMerged(schema *merge.Schema, hints []compositionreport.Hint) *Merged {
	return &Merged{schema: schema, hints: hints}
}

func (m *Merged) Schema() *merge.Schema {
	return m.schema
}

func (m *Merged) Hints() []compositionreport.Hint {
	return m.hints
}

// WithHints returns a copy of m carrying the additional hints.
func (m *Merged) WithHints(hints ...compositionreport.Hint) *Merged {
	all := make([]compositionreport.Hint, 0, len(m.hints)+len(hints))
	all = append(all, m.hints...)
	all = append(all, hints...)
	return &Merged{schema: m.schema, hints: all}
}

// AssumeSatisfiable returns the supergraph without checking satisfiability.
func (m *Merged) AssumeSatisfiable() *Supergraph {
	return &Supergraph{schema: m.schema, hints: m.hints, state: StateAssumedSatisfiable}
}

// Satisfy runs the checker. The returned error is a compositionreport.Report.
func (m *Merged) Satisfy(checker Checker) (*Supergraph, error) {
	report := checker.Check(m.schema)
	if report.HasErrors() {
		return nil, report
	}
	hints := make([]compositionreport.Hint, 0, len(m.hints)+len(report.Hints))
	hints = append(hints, m.hints...)
	hints = append(hints, report.Hints...)
	return &Supergraph{schema: m.schema, hints: hints, state: StateSatisfiable}, nil
}

type State int

const (
	StateSatisfiable State = iota + 1
	StateAssumedSatisfiable
)

func (s State) String() string {
	switch s {
	case StateSatisfiable:
		return "satisfiable"
	case StateAssumedSatisfiable:
		return "assumed-satisfiable"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Supergraph struct {
	schema *merge.Schema
	hints  []compositionreport.Hint
	state  State
}

func (s *Supergraph) State() State {
	return s.state
}

// Verified reports whether a satisfiability check proved the supergraph.
func (s *Supergraph) Verified() bool {
	return s.state == StateSatisfiable
}

func (s *Supergraph) Schema() *merge.Schema {
	return s.schema
}

func (s *Supergraph) Hints() []compositionreport.Hint {
	return s.hints
}

// SDL prints the supergraph schema with the join directives recording which subgraph
// defines and resolves what.
func (s *Supergraph) SDL() string {
	builder := &strings.Builder{}
	_ = PrintSupergraph(s.schema, builder)
	return builder.String()
}

// APISchema prints the schema exposed to clients: no join directives and no
// @inaccessible elements.
func (s *Supergraph) APISchema() string {
	builder := &strings.Builder{}
	_ = PrintAPISchema(s.schema, builder)
	return builder.String()
}

// Fingerprint identifies the supergraph SDL.
func (s *Supergraph) Fingerprint() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s.SDL()))
}
