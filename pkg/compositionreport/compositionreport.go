// Package compositionreport collects the errors and hints produced while composing a supergraph.
//
// Errors and hints are plain values. A phase adds everything it finds to a Report and
// the Report is returned as an error once the phase has run all of its checks.
package compositionreport

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Report struct {
	// Phase names the composition phase the diagnostics belong to.
	Phase  string
	Errors []CompositionError
	Hints  []Hint
}

func (r Report) Error() string {
	out := ""
	for i := range r.Errors {
		if i != 0 {
			out += "\n"
		}
		out += r.Errors[i].Error()
	}
	if r.Phase != "" && out != "" {
		out = fmt.Sprintf("%s:\n%s", r.Phase, out)
	}
	return out
}

func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *Report) HasHints() bool {
	return len(r.Hints) > 0
}

func (r *Report) Reset() {
	r.Errors = r.Errors[:0]
	r.Hints = r.Hints[:0]
}

func (r *Report) AddError(err CompositionError) {
	r.Errors = append(r.Errors, err)
}

func (r *Report) AddHint(hint Hint) {
	r.Hints = append(r.Hints, hint)
}

// Append copies all diagnostics of other into r, keeping r's phase.
func (r *Report) Append(other Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Hints = append(r.Hints, other.Hints...)
}

// Sort orders errors and hints by coordinate, kind and message so that output
// does not depend on input ordering or on the order parallel workers finished.
func (r *Report) Sort() {
	sort.SliceStable(r.Errors, func(i, j int) bool {
		return r.Errors[i].less(r.Errors[j])
	})
	sort.SliceStable(r.Hints, func(i, j int) bool {
		return r.Hints[i].less(r.Hints[j])
	})
}

// Err returns the report as an error if it holds at least one error, nil otherwise.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r
}

// ErrorsOfKind returns all errors with the given kind.
func (r Report) ErrorsOfKind(kind ErrorKind) (out []CompositionError) {
	for i := range r.Errors {
		if r.Errors[i].Kind == kind {
			out = append(out, r.Errors[i])
		}
	}
	return out
}

// HintsOfKind returns all hints with the given kind.
func (r Report) HintsOfKind(kind HintKind) (out []Hint) {
	for i := range r.Hints {
		if r.Hints[i].Kind == kind {
			out = append(out, r.Hints[i])
		}
	}
	return out
}

// FromError extracts a Report from err, also when it is wrapped.
func FromError(err error) (Report, bool) {
	var report Report
	if errors.As(err, &report) {
		return report, true
	}
	return Report{}, false
}

type CompositionError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Coordinate is the schema coordinate of the offending element, e.g. "User.id" or "@tag".
	Coordinate string   `json:"coordinate,omitempty"`
	Subgraphs  []string `json:"subgraphs,omitempty"`
}

func (e CompositionError) Error() string {
	if e.Coordinate == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Coordinate, e.Message)
}

func (e CompositionError) less(other CompositionError) bool {
	return diagnosticLess(e.Coordinate, string(e.Kind), e.Message, other.Coordinate, string(other.Kind), other.Message)
}

type Hint struct {
	Kind       HintKind `json:"kind"`
	Message    string   `json:"message"`
	Coordinate string   `json:"coordinate,omitempty"`
	Subgraphs  []string `json:"subgraphs,omitempty"`
}

func (h Hint) String() string {
	if h.Coordinate == "" {
		return fmt.Sprintf("[%s] %s", h.Kind, h.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", h.Kind, h.Coordinate, h.Message)
}

func (h Hint) less(other Hint) bool {
	return diagnosticLess(h.Coordinate, string(h.Kind), h.Message, other.Coordinate, string(other.Kind), other.Message)
}

func diagnosticLess(leftCoordinate, leftKind, leftMessage, rightCoordinate, rightKind, rightMessage string) bool {
	if c := strings.Compare(leftCoordinate, rightCoordinate); c != 0 {
		return c < 0
	}
	if c := strings.Compare(leftKind, rightKind); c != 0 {
		return c < 0
	}
	return leftMessage < rightMessage
}
