//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobKind_Valid(t *testing.T) {
	for _, k := range JobKinds() {
		assert.True(t, k.Valid(), "kind %s should be valid", k)
	}
	assert.False(t, JobKind("median").Valid())
	assert.False(t, JobKind("").Valid())
}

func TestJobKind_RequiresState(t *testing.T) {
	tests := map[JobKind]bool{
		JobKindStateMean:           true,
		JobKindStateDiffFromMean:   true,
		JobKindStateMeanByCategory: true,
		JobKindStatesMean:          false,
		JobKindBest5:               false,
		JobKindWorst5:              false,
		JobKindGlobalMean:          false,
		JobKindDiffFromMean:        false,
		JobKindMeanByCategory:      false,
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.RequiresState(), "kind %s", kind)
	}
}

func TestJobKind_UnmarshalText(t *testing.T) {
	var k JobKind
	require.NoError(t, k.UnmarshalText([]byte("  Best5 ")))
	assert.Equal(t, JobKindBest5, k)

	err := k.UnmarshalText([]byte("median"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JobKind")
	assert.Equal(t, JobKindBest5, k, "failed parse must not overwrite")
}

func TestJobStatus_Valid(t *testing.T) {
	assert.True(t, JobStatusRunning.Valid())
	assert.True(t, JobStatusDone.Valid())
	assert.False(t, JobStatus("failed").Valid())
}

func TestDataset_IsLowerBetterAndQuestions(t *testing.T) {
	ds := NewDataset([]Record{
		{Location: "Ohio", Question: "q2", Value: 1},
		{Location: "Ohio", Question: "q1", Value: 2},
		{Location: "Iowa", Question: "q2", Value: 3},
	}, []string{"q1"})

	assert.True(t, ds.IsLowerBetter("q1"))
	assert.False(t, ds.IsLowerBetter("q2"))
	assert.Equal(t, []string{"q2", "q1"}, ds.Questions())

	var nilDS *Dataset
	assert.False(t, nilDS.IsLowerBetter("q1"))
}
