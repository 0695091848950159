// Package composition composes subgraphs into a supergraph.
//
// Composition is a linear sequence of phases. Every phase is a function from the values
// of the previous phase to the values of the next one, so a phase can only be run on
// input that passed all earlier phases:
//
//	Initial -> Expanded -> Upgraded -> Validated -> PreMergeChecked -> Merged
//	        -> PostMergeChecked -> Satisfiable | AssumedSatisfiable
//
// A failing phase returns a compositionreport.Report holding every error of that phase
// and nothing of the phases after it.
package composition

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jensneuse/abstractlogger"

	"github.com/wundergraph/fedcomposer/pkg/composition/merge"
	"github.com/wundergraph/fedcomposer/pkg/composition/satisfiability"
	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/directives"
	"github.com/wundergraph/fedcomposer/pkg/federation/subgraph"
	"github.com/wundergraph/fedcomposer/pkg/supergraph"
)

type Phase int

const (
	PhaseInitial Phase = iota
	PhaseExpanded
	PhaseUpgraded
	PhaseValidated
	PhasePreMergeChecked
	PhaseMerged
	PhasePostMergeChecked
	PhaseSatisfiable
	PhaseAssumedSatisfiable
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseExpanded:
		return "expanded"
	case PhaseUpgraded:
		return "upgraded"
	case PhaseValidated:
		return "validated"
	case PhasePreMergeChecked:
		return "pre-merge-checked"
	case PhaseMerged:
		return "merged"
	case PhasePostMergeChecked:
		return "post-merge-checked"
	case PhaseSatisfiable:
		return "satisfiable"
	case PhaseAssumedSatisfiable:
		return "assumed-satisfiable"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Step names the transition that produces the phase. Reports of a failing
// transition carry the step as their Phase.
func (p Phase) Step() string {
	switch p {
	case PhaseExpanded:
		return "expand"
	case PhaseUpgraded:
		return "upgrade"
	case PhaseValidated:
		return "validate"
	case PhasePreMergeChecked:
		return "pre-merge validation"
	case PhaseMerged:
		return "merge"
	case PhasePostMergeChecked:
		return "post-merge validation"
	case PhaseSatisfiable:
		return "satisfiability"
	default:
		return p.String()
	}
}

type Options struct {
	// RunSatisfiability runs the satisfiability check. Without it the result is only
	// assumed to be satisfiable.
	RunSatisfiability bool
	Satisfiability    satisfiability.Policy
	Merge             merge.Options
	Logger            abstractlogger.Logger
}

func DefaultOptions() Options {
	return Options{
		RunSatisfiability: true,
		Logger:            abstractlogger.NoopLogger,
	}
}

// Compose runs all phases with DefaultOptions.
func Compose(subgraphs []*subgraph.Initial) (*supergraph.Supergraph, error) {
	return ComposeWithOptions(subgraphs, DefaultOptions())
}

func ComposeWithOptions(subgraphs []*subgraph.Initial, options Options) (*supergraph.Supergraph, error) {
	c := &composer{
		options:  options,
		registry: options.Merge.Registry,
		log:      options.Logger,
		id:       uuid.NewString(),
	}
	if c.registry == nil {
		c.registry = directives.Default
	}
	if c.log == nil {
		c.log = abstractlogger.NoopLogger
	}
	return c.compose(subgraphs)
}

type composer struct {
	options  Options
	registry *directives.Registry
	log      abstractlogger.Logger
	id       string
}

func (c *composer) compose(initial []*subgraph.Initial) (*supergraph.Supergraph, error) {
	c.log.Debug("composition started",
		abstractlogger.String("id", c.id),
		abstractlogger.Int("subgraphs", len(initial)),
	)

	expanded, err := expandSubgraphs(c.registry, initial)
	if err != nil {
		return nil, c.fail(PhaseExpanded, err)
	}
	c.entered(PhaseExpanded)

	upgraded := UpgradeSubgraphs(expanded)
	for _, u := range upgraded {
		if u.UpgradedFrom() != u.Schema().FederationVersion {
			c.log.Debug("subgraph upgraded",
				abstractlogger.String("id", c.id),
				abstractlogger.String("subgraph", u.Name()),
				abstractlogger.Int("from", u.UpgradedFrom()),
			)
		}
	}
	c.entered(PhaseUpgraded)

	validated, err := validateSubgraphs(c.registry, upgraded)
	if err != nil {
		return nil, c.fail(PhaseValidated, err)
	}
	c.entered(PhaseValidated)

	if err := PreMergeValidations(validated); err != nil {
		return nil, c.fail(PhasePreMergeChecked, err)
	}
	c.entered(PhasePreMergeChecked)

	merged, err := mergeSubgraphs(validated, c.options.Merge)
	if err != nil {
		return nil, c.fail(PhaseMerged, err)
	}
	c.entered(PhaseMerged)

	hints, err := PostMergeValidations(merged)
	if err != nil {
		return nil, c.fail(PhasePostMergeChecked, err)
	}
	merged = merged.WithHints(hints...)
	c.entered(PhasePostMergeChecked)

	if !c.options.RunSatisfiability {
		c.entered(PhaseAssumedSatisfiable)
		return merged.AssumeSatisfiable(), nil
	}

	var checkerOptions []satisfiability.Option
	if c.options.Merge.Concurrency > 0 {
		checkerOptions = append(checkerOptions, satisfiability.WithConcurrency(c.options.Merge.Concurrency))
	}
	composed, err := merged.Satisfy(satisfiability.New(c.options.Satisfiability, checkerOptions...))
	if err != nil {
		return nil, c.fail(PhaseSatisfiable, err)
	}
	c.entered(PhaseSatisfiable)
	return composed, nil
}

func (c *composer) entered(phase Phase) {
	c.log.Debug("composition phase completed",
		abstractlogger.String("id", c.id),
		abstractlogger.String("phase", phase.String()),
	)
}

func (c *composer) fail(phase Phase, err error) error {
	report, ok := compositionreport.FromError(err)
	if !ok {
		c.log.Error("composition failed",
			abstractlogger.String("id", c.id),
			abstractlogger.String("phase", phase.Step()),
			abstractlogger.Error(err),
		)
		return err
	}
	report.Phase = phase.Step()
	c.log.Error("composition failed",
		abstractlogger.String("id", c.id),
		abstractlogger.String("phase", report.Phase),
		abstractlogger.Int("errors", len(report.Errors)),
	)
	return report
}
