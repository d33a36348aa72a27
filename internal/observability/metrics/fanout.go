package metrics

import (
	"time"

	"github.com/target/surveystats/internal/observability/statsd"
)

// Fanout forwards every metric to each of its sinks.
type Fanout []statsd.Sink

var _ statsd.Sink = Fanout(nil)

// NewFanout drops nil sinks. It returns nil when no sink remains so callers can skip emission entirely.
func NewFanout(sinks ...statsd.Sink) statsd.Sink {
	out := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

func (f Fanout) Count(name string, value int64, tags map[string]string) {
	for _, s := range f {
		s.Count(name, value, CloneTags(tags))
	}
}

func (f Fanout) Gauge(name string, value float64, tags map[string]string) {
	for _, s := range f {
		s.Gauge(name, value, CloneTags(tags))
	}
}

func (f Fanout) Timing(name string, value time.Duration, tags map[string]string) {
	for _, s := range f {
		s.Timing(name, value, CloneTags(tags))
	}
}
