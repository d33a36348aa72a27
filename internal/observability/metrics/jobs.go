// Package metrics holds the metric vocabulary shared by the job runner and the sinks it reports to.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/target/surveystats/internal/observability/errors"
	"github.com/target/surveystats/internal/observability/statsd"
)

// Metric names.
const (
	JobTransition = "job.transition"
	JobDuration   = "job.duration"
	QueueDepth    = "queue.depth"
)

// Result constants for metric tagging.
const (
	ResultSuccess     = "success"
	ResultEmpty       = "empty"
	ResultUnsupported = "unsupported"
	ResultError       = "error"
)

// Transition constants for metric tagging.
const (
	TransitionStarted   = "started"
	TransitionCompleted = "completed"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	JobKind    string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_kind":   in.JobKind,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count(JobTransition, 1, tags)

	if in.Duration > 0 {
		sink.Timing(JobDuration, in.Duration, CloneTags(tags))
	}
}

// EmitQueueDepth reports the number of jobs still waiting for a worker.
func EmitQueueDepth(sink statsd.Sink, depth int) {
	if sink == nil {
		return
	}
	sink.Gauge(QueueDepth, float64(depth), nil)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
