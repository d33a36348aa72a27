package aggregate

import (
	"cmp"
	"slices"

	"github.com/target/surveystats/internal/domain/model"
)

// GlobalMeanKey is the single key of a global_mean artifact.
const GlobalMeanKey = "global_mean"

// topN is how many states best5/worst5 select.
const topN = 5

// Engine runs aggregations over a read-only dataset. It holds no mutable state
// and is safe for concurrent use by any number of workers.
type Engine struct {
	dataset *model.Dataset
}

// NewEngine returns an Engine over ds. A nil dataset behaves as an empty one.
func NewEngine(ds *model.Dataset) *Engine {
	if ds == nil {
		ds = model.NewDataset(nil, nil)
	}
	return &Engine{dataset: ds}
}

// Dataset exposes the dataset the engine reads.
func (e *Engine) Dataset() *model.Dataset {
	return e.dataset
}

// Run dispatches a job kind to its routine.
func (e *Engine) Run(kind model.JobKind, params model.JobParams) Outcome {
	switch kind {
	case model.JobKindStateMean:
		return Value(e.StateMean(params.State, params.Question))
	case model.JobKindStatesMean:
		return Value(e.StatesMean(params.Question))
	case model.JobKindBest5:
		return Value(e.Best5(params.Question))
	case model.JobKindWorst5:
		return Value(e.Worst5(params.Question))
	case model.JobKindGlobalMean:
		return Value(e.GlobalMean(params.Question))
	case model.JobKindDiffFromMean:
		return Value(e.DiffFromMean(params.Question))
	case model.JobKindStateDiffFromMean:
		return Value(e.StateDiffFromMean(params.State, params.Question))
	case model.JobKindMeanByCategory:
		return Value(e.MeanByCategory(params.Question))
	case model.JobKindStateMeanByCategory:
		return Value(e.StateMeanByCategory(params.State, params.Question))
	default:
		return Unsupported()
	}
}

type meanAcc struct {
	sum   float64
	count int
}

func (m *meanAcc) add(v float64) {
	m.sum += v
	m.count++
}

func (m meanAcc) mean() float64 {
	return m.sum / float64(m.count)
}

type locationMean struct {
	location string
	mean     float64
}

// forQuestion calls fn for every record whose question matches exactly.
func (e *Engine) forQuestion(question string, fn func(r *model.Record)) {
	for i := range e.dataset.Records {
		if e.dataset.Records[i].Question == question {
			fn(&e.dataset.Records[i])
		}
	}
}

func (e *Engine) stateAcc(state, question string) meanAcc {
	var acc meanAcc
	e.forQuestion(question, func(r *model.Record) {
		if r.Location == state {
			acc.add(r.Value)
		}
	})
	return acc
}

func (e *Engine) globalAcc(question string) meanAcc {
	var acc meanAcc
	e.forQuestion(question, func(r *model.Record) {
		acc.add(r.Value)
	})
	return acc
}

// statesMeans returns per-location means sorted ascending. Ties keep first-appearance order.
func (e *Engine) statesMeans(question string) []locationMean {
	index := make(map[string]int)
	var accs []meanAcc
	var names []string
	e.forQuestion(question, func(r *model.Record) {
		i, ok := index[r.Location]
		if !ok {
			i = len(accs)
			index[r.Location] = i
			accs = append(accs, meanAcc{})
			names = append(names, r.Location)
		}
		accs[i].add(r.Value)
	})

	out := make([]locationMean, len(accs))
	for i := range accs {
		out[i] = locationMean{location: names[i], mean: accs[i].mean()}
	}
	slices.SortStableFunc(out, func(a, b locationMean) int {
		return cmp.Compare(a.mean, b.mean)
	})
	return out
}

func toArtifact(means []locationMean) *model.Artifact {
	a := model.NewArtifact()
	for _, m := range means {
		a.Set(m.location, m.mean)
	}
	return a
}

// StateMean returns {state: mean}, or nil when the state has no rows for the question.
func (e *Engine) StateMean(state, question string) *model.Artifact {
	acc := e.stateAcc(state, question)
	if acc.count == 0 {
		return nil
	}
	a := model.NewArtifact()
	a.Set(state, acc.mean())
	return a
}

// StatesMean returns the mean of every location, ascending by value.
func (e *Engine) StatesMean(question string) *model.Artifact {
	return toArtifact(e.statesMeans(question))
}

// Best5 returns the five lowest means for lower-is-better questions and the five
// highest otherwise. Both slices keep ascending order.
func (e *Engine) Best5(question string) *model.Artifact {
	means := e.statesMeans(question)
	if e.dataset.IsLowerBetter(question) {
		return toArtifact(head(means))
	}
	return toArtifact(tail(means))
}

// Worst5 returns the complementary slice of Best5, reversed so the worst state comes first.
func (e *Engine) Worst5(question string) *model.Artifact {
	means := e.statesMeans(question)
	var picked []locationMean
	if e.dataset.IsLowerBetter(question) {
		picked = slices.Clone(tail(means))
	} else {
		picked = slices.Clone(head(means))
	}
	slices.Reverse(picked)
	return toArtifact(picked)
}

func head(means []locationMean) []locationMean {
	return means[:min(topN, len(means))]
}

func tail(means []locationMean) []locationMean {
	return means[max(0, len(means)-topN):]
}

// GlobalMean returns {"global_mean": mean}, or nil when the question has no rows.
func (e *Engine) GlobalMean(question string) *model.Artifact {
	acc := e.globalAcc(question)
	if acc.count == 0 {
		return nil
	}
	a := model.NewArtifact()
	a.Set(GlobalMeanKey, acc.mean())
	return a
}

// DiffFromMean returns global mean minus state mean for each state, in states_mean order.
func (e *Engine) DiffFromMean(question string) *model.Artifact {
	global := e.globalAcc(question)
	if global.count == 0 {
		return nil
	}
	g := global.mean()
	a := model.NewArtifact()
	for _, m := range e.statesMeans(question) {
		a.Set(m.location, g-m.mean)
	}
	return a
}

// StateDiffFromMean returns {state: global mean - state mean}, or nil when the state has no rows.
func (e *Engine) StateDiffFromMean(state, question string) *model.Artifact {
	st := e.stateAcc(state, question)
	if st.count == 0 {
		return nil
	}
	global := e.globalAcc(question)
	a := model.NewArtifact()
	a.Set(state, global.mean()-st.mean())
	return a
}

type groupedMeans struct {
	index map[string]int
	keys  []string
	accs  []meanAcc
}

func newGroupedMeans() *groupedMeans {
	return &groupedMeans{index: make(map[string]int)}
}

func (g *groupedMeans) add(key string, v float64) {
	i, ok := g.index[key]
	if !ok {
		i = len(g.accs)
		g.index[key] = i
		g.keys = append(g.keys, key)
		g.accs = append(g.accs, meanAcc{})
	}
	g.accs[i].add(v)
}

// sorted returns an artifact keyed lexicographically.
func (g *groupedMeans) sorted() *model.Artifact {
	order := make([]int, len(g.keys))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return cmp.Compare(g.keys[a], g.keys[b])
	})
	out := model.NewArtifact()
	for _, i := range order {
		out.Set(g.keys[i], g.accs[i].mean())
	}
	return out
}

// MeanByCategory groups by (location, stratification category, stratification),
// skipping rows where either stratification field is missing.
func (e *Engine) MeanByCategory(question string) *model.Artifact {
	groups := newGroupedMeans()
	e.forQuestion(question, func(r *model.Record) {
		if r.StratificationCategory == nil || r.Stratification == nil {
			return
		}
		loc := r.Location
		groups.add(categoryKey(&loc, r.StratificationCategory, r.Stratification), r.Value)
	})
	return groups.sorted()
}

// StateMeanByCategory groups one state's rows by (stratification category, stratification)
// and nests the result under the state name. The nested mapping may be empty.
func (e *Engine) StateMeanByCategory(state, question string) *model.Artifact {
	groups := newGroupedMeans()
	e.forQuestion(question, func(r *model.Record) {
		if r.Location != state {
			return
		}
		groups.add(categoryKey(r.StratificationCategory, r.Stratification), r.Value)
	})
	a := model.NewArtifact()
	a.Set(state, groups.sorted())
	return a
}
