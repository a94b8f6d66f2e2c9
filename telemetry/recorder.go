// Package telemetry records method invocations as OpenTelemetry traces and
// metrics.
package telemetry

import (
	"encoding/binary"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/otelwasm/mobilert/observer"
)

const (
	scopeName = "github.com/otelwasm/mobilert/telemetry"

	callsMetric    = "mobilert.method.calls"
	durationMetric = "mobilert.method.duration"

	outcomeOK    = "ok"
	outcomeError = "error"
)

type call struct {
	method string
	model  string
	start  time.Time
}

type counterKey struct {
	method  string
	outcome string
}

type counter struct {
	calls    int64
	duration time.Duration
}

// Recorder is an observer.Observer turning every invocation into a span and
// aggregating call counts and durations per method and outcome. Spans are kept
// until the next Flush; counters are cumulative.
type Recorder struct {
	mu       sync.Mutex
	now      func() time.Time
	started  time.Time
	resource map[string]string
	inflight map[int32][]call
	traces   ptrace.Traces
	spans    ptrace.SpanSlice
	counters map[counterKey]*counter
}

var _ observer.Observer = (*Recorder)(nil)

// Option configures a Recorder
type Option func(*Recorder)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithResourceAttributes sets string attributes on the emitted resource
func WithResourceAttributes(attrs map[string]string) Option {
	return func(r *Recorder) {
		for k, v := range attrs {
			r.resource[k] = v
		}
	}
}

// NewRecorder creates an empty recorder
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		now:      time.Now,
		resource: map[string]string{"service.name": "mobilert"},
		inflight: make(map[int32][]call),
		counters: make(map[counterKey]*counter),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.started = r.now()
	r.resetTraces()
	return r
}

func (r *Recorder) resetTraces() {
	r.traces = ptrace.NewTraces()
	rs := r.traces.ResourceSpans().AppendEmpty()
	putStrings(rs.Resource().Attributes(), r.resource)
	ss := rs.ScopeSpans().AppendEmpty()
	ss.Scope().SetName(scopeName)
	r.spans = ss.Spans()
}

func (r *Recorder) OnEnterRunMethod(metadata map[string]string, instanceKey int32, methodName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Keys are not unique across calls; pair exits with enters in order.
	r.inflight[instanceKey] = append(r.inflight[instanceKey], call{
		method: methodName,
		model:  metadata["model_name"],
		start:  r.now(),
	})
}

func (r *Recorder) OnExitRunMethod(instanceKey int32) {
	r.finish(instanceKey, outcomeOK, "")
}

func (r *Recorder) OnFailRunMethod(instanceKey int32, message string) {
	r.finish(instanceKey, outcomeError, message)
}

func (r *Recorder) finish(instanceKey int32, outcome, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := r.inflight[instanceKey]
	if len(pending) == 0 {
		return
	}
	c := pending[0]
	if len(pending) == 1 {
		delete(r.inflight, instanceKey)
	} else {
		r.inflight[instanceKey] = pending[1:]
	}
	end := r.now()

	span := r.spans.AppendEmpty()
	span.SetName(c.method)
	span.SetKind(ptrace.SpanKindInternal)
	span.SetTraceID(newTraceID())
	span.SetSpanID(newSpanID())
	span.SetStartTimestamp(pcommon.NewTimestampFromTime(c.start))
	span.SetEndTimestamp(pcommon.NewTimestampFromTime(end))
	span.Attributes().PutStr("model.name", c.model)
	span.Attributes().PutInt("instance.key", int64(instanceKey))
	if outcome == outcomeError {
		span.Status().SetCode(ptrace.StatusCodeError)
		span.Status().SetMessage(message)
		ev := span.Events().AppendEmpty()
		ev.SetName("exception")
		ev.SetTimestamp(pcommon.NewTimestampFromTime(end))
		ev.Attributes().PutStr("exception.message", message)
	} else {
		span.Status().SetCode(ptrace.StatusCodeOk)
	}

	key := counterKey{method: c.method, outcome: outcome}
	cnt, ok := r.counters[key]
	if !ok {
		cnt = &counter{}
		r.counters[key] = cnt
	}
	cnt.calls++
	cnt.duration += end.Sub(c.start)
}

// Traces returns a copy of the recorded spans
func (r *Recorder) Traces() ptrace.Traces {
	r.mu.Lock()
	defer r.mu.Unlock()
	td := ptrace.NewTraces()
	r.traces.CopyTo(td)
	return td
}

// Flush returns the spans recorded since the previous Flush, dropping them
// from the recorder, together with the current cumulative metrics.
func (r *Recorder) Flush() (ptrace.Traces, pmetric.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	td := r.traces
	r.resetTraces()
	return td, r.metrics()
}

// Metrics returns cumulative call counts and durations
func (r *Recorder) Metrics() pmetric.Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics()
}

func (r *Recorder) metrics() pmetric.Metrics {
	md := pmetric.NewMetrics()
	rm := md.ResourceMetrics().AppendEmpty()
	putStrings(rm.Resource().Attributes(), r.resource)
	sm := rm.ScopeMetrics().AppendEmpty()
	sm.Scope().SetName(scopeName)

	calls := sm.Metrics().AppendEmpty()
	calls.SetName(callsMetric)
	calls.SetUnit("{call}")
	callsSum := calls.SetEmptySum()
	callsSum.SetIsMonotonic(true)
	callsSum.SetAggregationTemporality(pmetric.AggregationTemporalityCumulative)

	duration := sm.Metrics().AppendEmpty()
	duration.SetName(durationMetric)
	duration.SetUnit("s")
	durationSum := duration.SetEmptySum()
	durationSum.SetIsMonotonic(true)
	durationSum.SetAggregationTemporality(pmetric.AggregationTemporalityCumulative)

	start := pcommon.NewTimestampFromTime(r.started)
	now := pcommon.NewTimestampFromTime(r.now())
	for _, key := range r.sortedKeys() {
		cnt := r.counters[key]

		dp := callsSum.DataPoints().AppendEmpty()
		dp.SetStartTimestamp(start)
		dp.SetTimestamp(now)
		dp.SetIntValue(cnt.calls)
		dp.Attributes().PutStr("method", key.method)
		dp.Attributes().PutStr("outcome", key.outcome)

		ddp := durationSum.DataPoints().AppendEmpty()
		ddp.SetStartTimestamp(start)
		ddp.SetTimestamp(now)
		ddp.SetDoubleValue(cnt.duration.Seconds())
		ddp.Attributes().PutStr("method", key.method)
		ddp.Attributes().PutStr("outcome", key.outcome)
	}
	return md
}

func (r *Recorder) sortedKeys() []counterKey {
	keys := make([]counterKey, 0, len(r.counters))
	for k := range r.counters {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].method != keys[j].method {
			return keys[i].method < keys[j].method
		}
		return keys[i].outcome < keys[j].outcome
	})
	return keys
}

func putStrings(m pcommon.Map, attrs map[string]string) {
	for k, v := range attrs {
		m.PutStr(k, v)
	}
}

func newTraceID() pcommon.TraceID {
	var id [16]byte
	binary.BigEndian.PutUint64(id[:8], rand.Uint64())
	binary.BigEndian.PutUint64(id[8:], rand.Uint64()|1)
	return pcommon.TraceID(id)
}

func newSpanID() pcommon.SpanID {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], rand.Uint64()|1)
	return pcommon.SpanID(id)
}
