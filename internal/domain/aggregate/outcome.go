// Package aggregate implements the statistical routines executed by job workers.
package aggregate

import "github.com/target/surveystats/internal/domain/model"

// OutcomeKind tags the result of running an aggregation.
type OutcomeKind int

const (
	// OutcomeEmpty means the aggregation matched no data; no artifact is persisted.
	OutcomeEmpty OutcomeKind = iota
	// OutcomeValue carries a non-empty artifact.
	OutcomeValue
	// OutcomeUnsupported means the job kind has no routine.
	OutcomeUnsupported
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeValue:
		return "value"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return "empty"
	}
}

// Outcome is the tagged result of an aggregation.
type Outcome struct {
	Kind     OutcomeKind
	Artifact *model.Artifact
}

// Value wraps an artifact; a nil or empty artifact collapses to Empty.
func Value(a *model.Artifact) Outcome {
	if a.Len() == 0 {
		return Empty()
	}
	return Outcome{Kind: OutcomeValue, Artifact: a}
}

// Empty is the outcome of an aggregation with no matching data.
func Empty() Outcome {
	return Outcome{Kind: OutcomeEmpty}
}

// Unsupported is the outcome for an unknown job kind.
func Unsupported() Outcome {
	return Outcome{Kind: OutcomeUnsupported}
}

// HasArtifact reports whether the outcome should be persisted.
func (o Outcome) HasArtifact() bool {
	return o.Kind == OutcomeValue && o.Artifact.Len() > 0
}
