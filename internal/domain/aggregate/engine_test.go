package aggregate

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/surveystats/internal/domain/model"
)

const (
	qHigh = "Percent of adults who achieve at least 150 minutes a week of moderate-intensity aerobic physical activity"
	qLow  = "Percent of adults aged 18 years and older who have obesity"
)

// keysOf returns the top-level keys of a flat artifact in order.
func keysOf(a *model.Artifact) []string {
	var keys []string
	for _, leaf := range a.Leaves() {
		keys = append(keys, leaf.Path[0])
	}
	return keys
}

func rec(loc, q string, v float64) model.Record {
	return model.Record{Location: loc, Question: q, Value: v}
}

func strat(loc, q string, v float64, cat, s *string) model.Record {
	return model.Record{
		Location:               loc,
		Question:               q,
		Value:                  v,
		StratificationCategory: cat,
		Stratification:         s,
	}
}

func mustJSON(t *testing.T, a *model.Artifact) string {
	t.Helper()
	require.NotNil(t, a)
	b, err := json.Marshal(a)
	require.NoError(t, err)
	return string(b)
}

func basicEngine() *Engine {
	return NewEngine(model.NewDataset([]model.Record{
		rec("California", qHigh, 10),
		rec("California", qHigh, 20),
		rec("Nevada", qHigh, 30),
	}, nil))
}

func TestEngine_StateMean(t *testing.T) {
	e := basicEngine()

	out := e.Run(model.JobKindStateMean, model.JobParams{Question: qHigh, State: "California"})
	require.Equal(t, OutcomeValue, out.Kind)
	assert.JSONEq(t, `{"California":15}`, mustJSON(t, out.Artifact))

	missing := e.Run(model.JobKindStateMean, model.JobParams{Question: qHigh, State: "Texas"})
	assert.Equal(t, OutcomeEmpty, missing.Kind)
	assert.False(t, missing.HasArtifact())
}

func TestEngine_GlobalAndDiff(t *testing.T) {
	e := basicEngine()

	global := e.Run(model.JobKindGlobalMean, model.JobParams{Question: qHigh})
	assert.Equal(t, `{"global_mean":20}`, mustJSON(t, global.Artifact))

	diff := e.Run(model.JobKindDiffFromMean, model.JobParams{Question: qHigh})
	assert.Equal(t, `{"California":5,"Nevada":-10}`, mustJSON(t, diff.Artifact))

	one := e.Run(model.JobKindStateDiffFromMean, model.JobParams{Question: qHigh, State: "Nevada"})
	assert.Equal(t, `{"Nevada":-10}`, mustJSON(t, one.Artifact))

	none := e.Run(model.JobKindStateDiffFromMean, model.JobParams{Question: qHigh, State: "Utah"})
	assert.Equal(t, OutcomeEmpty, none.Kind)
}

func TestEngine_NoMatchingRowsIsEmpty(t *testing.T) {
	e := basicEngine()
	for _, kind := range []model.JobKind{
		model.JobKindStatesMean,
		model.JobKindBest5,
		model.JobKindWorst5,
		model.JobKindGlobalMean,
		model.JobKindDiffFromMean,
		model.JobKindMeanByCategory,
	} {
		out := e.Run(kind, model.JobParams{Question: "nobody asked this"})
		assert.Equal(t, OutcomeEmpty, out.Kind, "kind %s", kind)
	}
}

func TestEngine_StatesMeanStableOrder(t *testing.T) {
	e := NewEngine(model.NewDataset([]model.Record{
		rec("Ohio", qHigh, 5),
		rec("Iowa", qHigh, 1),
		rec("Utah", qHigh, 5),
		rec("Maine", qHigh, 3),
	}, nil))

	out := e.StatesMean(qHigh)
	assert.Equal(t, []string{"Iowa", "Maine", "Ohio", "Utah"}, keysOf(out))
}

// eightStates yields means S1=1 ... S8=8 in shuffled input order.
func eightStates(q string) []model.Record {
	var recs []model.Record
	for _, i := range []int{4, 8, 1, 6, 3, 7, 2, 5} {
		recs = append(recs, rec(fmt.Sprintf("S%d", i), q, float64(i)))
	}
	return recs
}

func TestEngine_Best5Worst5HigherIsBetter(t *testing.T) {
	e := NewEngine(model.NewDataset(eightStates(qHigh), nil))

	assert.Equal(t, []string{"S4", "S5", "S6", "S7", "S8"}, keysOf(e.Best5(qHigh)))
	assert.Equal(t, []string{"S5", "S4", "S3", "S2", "S1"}, keysOf(e.Worst5(qHigh)))
}

func TestEngine_Best5Worst5LowerIsBetter(t *testing.T) {
	e := NewEngine(model.NewDataset(eightStates(qLow), []string{qLow}))

	assert.Equal(t, []string{"S1", "S2", "S3", "S4", "S5"}, keysOf(e.Best5(qLow)))
	assert.Equal(t, []string{"S8", "S7", "S6", "S5", "S4"}, keysOf(e.Worst5(qLow)))
}

func TestEngine_Best5FewerThanFiveStates(t *testing.T) {
	e := basicEngine()
	assert.Equal(t, []string{"California", "Nevada"}, keysOf(e.Best5(qHigh)))
	assert.Equal(t, []string{"Nevada", "California"}, keysOf(e.Worst5(qHigh)))
}

func TestEngine_MeanByCategory(t *testing.T) {
	age, young := model.StringPtr("Age (years)"), model.StringPtr("18 - 24")
	sex, male := model.StringPtr("Sex"), model.StringPtr("Male")
	e := NewEngine(model.NewDataset([]model.Record{
		strat("Ohio", qHigh, 10, sex, male),
		strat("Alabama", qHigh, 20, age, young),
		strat("Alabama", qHigh, 30, age, young),
		strat("Alabama", qHigh, 99, nil, nil),
	}, nil))

	out := e.MeanByCategory(qHigh)
	assert.Equal(t,
		`{"('Alabama', 'Age (years)', '18 - 24')":25,"('Ohio', 'Sex', 'Male')":10}`,
		mustJSON(t, out))
}

func TestEngine_StateMeanByCategory(t *testing.T) {
	sex, male, female := model.StringPtr("Sex"), model.StringPtr("Male"), model.StringPtr("Female")
	e := NewEngine(model.NewDataset([]model.Record{
		strat("Ohio", qHigh, 10, sex, male),
		strat("Ohio", qHigh, 20, sex, female),
		strat("Ohio", qHigh, 40, nil, nil),
		strat("Iowa", qHigh, 99, sex, male),
	}, nil))

	out := e.Run(model.JobKindStateMeanByCategory, model.JobParams{Question: qHigh, State: "Ohio"})
	require.Equal(t, OutcomeValue, out.Kind)
	assert.Equal(t,
		`{"Ohio":{"('Sex', 'Female')":20,"('Sex', 'Male')":10,"(nan, nan)":40}}`,
		mustJSON(t, out.Artifact))

	empty := e.StateMeanByCategory("Texas", qHigh)
	assert.Equal(t, `{"Texas":{}}`, mustJSON(t, empty))
}

func TestEngine_UnknownKindIsUnsupported(t *testing.T) {
	out := basicEngine().Run(model.JobKind("median"), model.JobParams{Question: qHigh})
	assert.Equal(t, OutcomeUnsupported, out.Kind)
	assert.False(t, out.HasArtifact())
}

func TestCategoryKey_Quoting(t *testing.T) {
	assert.Equal(t, `('a', 'b')`, categoryKey(model.StringPtr("a"), model.StringPtr("b")))
	assert.Equal(t, `("Don't", nan)`, categoryKey(model.StringPtr("Don't"), nil))
	assert.Equal(t, `('say "it\'s"',)`, categoryKey(model.StringPtr(`say "it's"`)))
	assert.Equal(t, `('a\\b',)`, categoryKey(model.StringPtr(`a\b`)))
}
