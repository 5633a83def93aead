package metrics

import (
	"maps"

	obserrors "github.com/target/mmk-jobitems/internal/observability/errors"
	"github.com/target/mmk-jobitems/internal/observability/statsd"
	"github.com/target/mmk-jobitems/internal/service/querycache"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// CacheRecorder forwards query cache events to a StatsD sink.
type CacheRecorder struct {
	sink statsd.Sink
}

var _ querycache.CacheMetrics = (*CacheRecorder)(nil)

// NewCacheRecorder returns a recorder, or nil when sink is nil.
func NewCacheRecorder(sink statsd.Sink) *CacheRecorder {
	if sink == nil {
		return nil
	}
	return &CacheRecorder{sink: sink}
}

// RecordCacheEvent emits querycache.<op> counters tagged by scope, tier and result.
// Remote fetches also emit a querycache.fetch.duration timing.
func (r *CacheRecorder) RecordCacheEvent(e querycache.CacheEvent) {
	if r == nil || r.sink == nil {
		return
	}

	tags := map[string]string{
		"scope":  e.Scope,
		"tier":   string(e.Tier),
		"result": resultTag(e.Ok),
	}
	r.sink.Count("querycache."+string(e.Op), 1, tags)

	if e.Op == querycache.OpFetch && e.Duration > 0 {
		r.sink.Timing("querycache.fetch.duration", e.Duration, CloneTags(tags))
	}
}

// FetchFailure captures a failed job item resolution for metric emission.
type FetchFailure struct {
	Scope string
	Err   error
}

// EmitFetchFailure counts failures reported to the error observer, tagged by error class.
func EmitFetchFailure(sink statsd.Sink, in FetchFailure) {
	if sink == nil {
		return
	}
	tags := map[string]string{"scope": in.Scope}
	if class := obserrors.Classify(in.Err); class != "" {
		tags["error_class"] = class
	}
	sink.Count("jobitem.fetch_failure", 1, tags)
}

// EmitCacheStats publishes cache sizes as gauges.
func EmitCacheStats(sink statsd.Sink, stats querycache.Stats) {
	if sink == nil {
		return
	}
	sink.Gauge("querycache.entries", float64(stats.Entries), nil)
	sink.Gauge("querycache.inflight", float64(stats.InFlight), nil)
	sink.Gauge("querycache.capacity", float64(stats.Capacity), nil)
}

func resultTag(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultError
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
