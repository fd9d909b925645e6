package statsd

import (
	"sync"
	"time"
)

// Sample is one metric captured by a Recorder.
type Sample struct {
	Kind  string
	Name  string
	Value float64
	Tags  map[string]string
}

// Recorder is an in-memory Sink used by tests and dry runs.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

var _ Sink = (*Recorder)(nil)

func (r *Recorder) add(kind, name string, v float64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, Sample{Kind: kind, Name: name, Value: v, Tags: cloneTags(tags)})
}

// Count implements Sink.
func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.add("c", name, float64(value), tags)
}

// Gauge implements Sink.
func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.add("g", name, value, tags)
}

// Timing implements Sink.
func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	r.add("ms", name, float64(value)/float64(time.Millisecond), tags)
}

func (r *Recorder) filter(kind, name string) []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sample
	for _, s := range r.samples {
		if s.Kind == kind && s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// Counts returns every counter sample recorded under name.
func (r *Recorder) Counts(name string) []Sample { return r.filter("c", name) }

// Timings returns every timing sample recorded under name.
func (r *Recorder) Timings(name string) []Sample { return r.filter("ms", name) }

// Gauges returns every gauge sample recorded under name.
func (r *Recorder) Gauges(name string) []Sample { return r.filter("g", name) }
