package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifact_MarshalPreservesInsertionOrder(t *testing.T) {
	a := NewArtifact()
	a.Set("Wyoming", 3.5)
	a.Set("Alabama", 1.25)
	a.Set("Maine", 2.0)

	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"Wyoming":3.5,"Alabama":1.25,"Maine":2}`, string(b))
}

func TestArtifact_MarshalFloatForms(t *testing.T) {
	a := NewArtifact()
	a.Set("whole", 15.0)
	a.Set("fraction", 0.125)
	a.Set("huge", 1e21)
	a.Set("tiny", 1e-7)

	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"whole":15,"fraction":0.125,"huge":1e+21,"tiny":1e-7}`, string(b))
}

func TestArtifact_SetExistingKeyKeepsPosition(t *testing.T) {
	a := NewArtifact()
	a.Set("a", 1.0)
	a.Set("b", 2.0)
	a.Set("a", 9.0)

	assert.Equal(t, []string{"a", "b"}, a.keys)
	v, ok := a.Get("a")
	require.True(t, ok)
	assert.Equal(t, 9.0, v)
}

func TestArtifact_UnmarshalKeepsOrderAndNesting(t *testing.T) {
	raw := `{"Ohio":{"('Age (years)', '18 - 24')":20.5,"('Sex', 'Male')":30},"Iowa":1}`

	var a Artifact
	require.NoError(t, json.Unmarshal([]byte(raw), &a))

	assert.Equal(t, []string{"Ohio", "Iowa"}, a.keys)
	nestedAny, ok := a.Get("Ohio")
	require.True(t, ok)
	nested, ok := nestedAny.(*Artifact)
	require.True(t, ok)
	assert.Equal(t, []string{"('Age (years)', '18 - 24')", "('Sex', 'Male')"}, nested.keys)

	out, err := json.Marshal(&a)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
	assert.Equal(t, raw, string(out))
}

func TestArtifact_UnmarshalRejectsNonObject(t *testing.T) {
	var a Artifact
	err := json.Unmarshal([]byte(`[1,2]`), &a)
	require.Error(t, err)
}

func TestArtifact_Leaves(t *testing.T) {
	inner := NewArtifact()
	inner.Set("x", 1.0)
	inner.Set("y", 2.0)
	a := NewArtifact()
	a.Set("first", 0.5)
	a.Set("nested", inner)

	leaves := a.Leaves()
	require.Len(t, leaves, 3)
	assert.Equal(t, []string{"first"}, leaves[0].Path)
	assert.Equal(t, []string{"nested", "x"}, leaves[1].Path)
	assert.Equal(t, []string{"nested", "y"}, leaves[2].Path)
	assert.Equal(t, 2.0, leaves[2].Value)
}

func TestArtifact_NilSafe(t *testing.T) {
	var a *Artifact
	assert.Equal(t, 0, a.Len())
	assert.Nil(t, a.Leaves())
	_, ok := a.Get("x")
	assert.False(t, ok)
}
