// Package model defines the core data types shared by the survey statistics job system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobKind is the aggregation a submitted job requests.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobKind string

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	// JobKindStateMean computes the mean value for one state.
	JobKindStateMean JobKind = "state_mean"
	// JobKindStatesMean computes the mean value for every state, sorted ascending.
	JobKindStatesMean JobKind = "states_mean"
	// JobKindBest5 selects the five best states.
	JobKindBest5 JobKind = "best5"
	// JobKindWorst5 selects the five worst states.
	JobKindWorst5 JobKind = "worst5"
	// JobKindGlobalMean computes the mean across all rows for a question.
	JobKindGlobalMean JobKind = "global_mean"
	// JobKindDiffFromMean computes global mean minus state mean for every state.
	JobKindDiffFromMean JobKind = "diff_from_mean"
	// JobKindStateDiffFromMean computes global mean minus state mean for one state.
	JobKindStateDiffFromMean JobKind = "state_diff_from_mean"
	// JobKindMeanByCategory groups by state and stratification.
	JobKindMeanByCategory JobKind = "mean_by_category"
	// JobKindStateMeanByCategory groups by stratification within one state.
	JobKindStateMeanByCategory JobKind = "state_mean_by_category"

	// JobStatusRunning is assigned at submission and held until a worker finishes the job.
	JobStatusRunning JobStatus = "running"
	// JobStatusDone is terminal and is set whether or not an artifact was produced.
	JobStatusDone JobStatus = "done"
)

// ErrJobNotFound is returned when a job id was never issued.
var ErrJobNotFound = errors.New("job not found")

// JobKinds returns every supported kind in API order.
func JobKinds() []JobKind {
	return []JobKind{
		JobKindStatesMean,
		JobKindStateMean,
		JobKindBest5,
		JobKindWorst5,
		JobKindGlobalMean,
		JobKindDiffFromMean,
		JobKindStateDiffFromMean,
		JobKindMeanByCategory,
		JobKindStateMeanByCategory,
	}
}

// Valid returns true if the JobKind is one of the supported aggregations.
func (k JobKind) Valid() bool {
	for _, known := range JobKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// RequiresState reports whether jobs of this kind are scoped to a single state.
func (k JobKind) RequiresState() bool {
	return k == JobKindStateMean || k == JobKindStateDiffFromMean || k == JobKindStateMeanByCategory
}

// UnmarshalText implements encoding.TextUnmarshaler so kinds can be parsed from flags and env.
func (k *JobKind) UnmarshalText(text []byte) error {
	v := JobKind(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobKind: %q", v)
	}
	*k = v
	return nil
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusRunning || s == JobStatusDone
}

// JobParams carries the inputs of an aggregation.
type JobParams struct {
	Question string `json:"question"`
	State    string `json:"state,omitempty"`
}

// Job is an immutable job descriptor created at submission time.
type Job struct {
	ID          int64     `json:"id"`
	Kind        JobKind   `json:"kind"`
	Params      JobParams `json:"params"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// JobState pairs a job id with its current status.
type JobState struct {
	ID     int64     `json:"id"`
	Status JobStatus `json:"status"`
}
