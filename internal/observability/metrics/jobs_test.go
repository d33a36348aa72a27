package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMetric struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type recordingSink struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (r *recordingSink) add(m recordedMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
}

func (r *recordingSink) Count(name string, value int64, tags map[string]string) {
	r.add(recordedMetric{kind: "count", name: name, value: float64(value), tags: tags})
}

func (r *recordingSink) Gauge(name string, value float64, tags map[string]string) {
	r.add(recordedMetric{kind: "gauge", name: name, value: value, tags: tags})
}

func (r *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	r.add(recordedMetric{kind: "timing", name: name, value: float64(value), tags: tags})
}

func TestEmitJobLifecycle(t *testing.T) {
	sink := &recordingSink{}
	EmitJobLifecycle(sink, JobMetric{
		JobKind:    "best5",
		Transition: TransitionCompleted,
		Result:     ResultError,
		Duration:   time.Second,
		Err:        context.DeadlineExceeded,
	})

	require.Len(t, sink.metrics, 2)
	count, timing := sink.metrics[0], sink.metrics[1]

	assert.Equal(t, "count", count.kind)
	assert.Equal(t, JobTransition, count.name)
	assert.Equal(t, "best5", count.tags["job_kind"])
	assert.Equal(t, ResultError, count.tags["result"])
	assert.NotEmpty(t, count.tags["error_class"])

	assert.Equal(t, "timing", timing.kind)
	assert.Equal(t, JobDuration, timing.name)
	assert.Equal(t, count.tags, timing.tags)
}

func TestEmitJobLifecycle_NoDurationNoTiming(t *testing.T) {
	sink := &recordingSink{}
	EmitJobLifecycle(sink, JobMetric{JobKind: "global_mean", Transition: TransitionStarted, Result: ResultSuccess})

	require.Len(t, sink.metrics, 1)
	assert.NotContains(t, sink.metrics[0].tags, "error_class")

	assert.NotPanics(t, func() {
		EmitJobLifecycle(nil, JobMetric{})
		EmitQueueDepth(nil, 1)
	})
}

func TestFanout(t *testing.T) {
	assert.Nil(t, NewFanout())
	assert.Nil(t, NewFanout(nil, nil))

	only := &recordingSink{}
	assert.Same(t, only, NewFanout(nil, only))

	a, b := &recordingSink{}, &recordingSink{}
	sink := NewFanout(a, nil, b)
	EmitQueueDepth(sink, 4)
	sink.Count(JobTransition, 1, map[string]string{"job_kind": "best5"})
	sink.Timing(JobDuration, time.Millisecond, nil)

	for _, r := range []*recordingSink{a, b} {
		require.Len(t, r.metrics, 3)
		assert.Equal(t, QueueDepth, r.metrics[0].name)
		assert.InDelta(t, 4.0, r.metrics[0].value, 0)
		assert.Equal(t, "best5", r.metrics[1].tags["job_kind"])
	}

	a.metrics[1].tags["job_kind"] = "changed"
	assert.Equal(t, "best5", b.metrics[1].tags["job_kind"])
}
