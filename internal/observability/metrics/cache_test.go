package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/mmk-jobitems/internal/errors"
	"github.com/target/mmk-jobitems/internal/service/querycache"
)

type recordedMetric struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type captureSink struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (s *captureSink) add(m recordedMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
}

func (s *captureSink) Count(name string, value int64, tags map[string]string) {
	s.add(recordedMetric{kind: "count", name: name, value: float64(value), tags: tags})
}

func (s *captureSink) Gauge(name string, value float64, tags map[string]string) {
	s.add(recordedMetric{kind: "gauge", name: name, value: value, tags: tags})
}

func (s *captureSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.add(recordedMetric{kind: "timing", name: name, value: float64(value), tags: tags})
}

func TestCacheRecorder_FetchEmitsCountAndTiming(t *testing.T) {
	sink := &captureSink{}
	rec := NewCacheRecorder(sink)

	rec.RecordCacheEvent(querycache.CacheEvent{
		Scope:    "job-item",
		Tier:     querycache.TierRemote,
		Op:       querycache.OpFetch,
		Ok:       false,
		Duration: 40 * time.Millisecond,
	})

	require.Len(t, sink.metrics, 2)
	assert.Equal(t, "querycache.fetch", sink.metrics[0].name)
	assert.Equal(t, map[string]string{"scope": "job-item", "tier": "remote", "result": "error"}, sink.metrics[0].tags)
	assert.Equal(t, "timing", sink.metrics[1].kind)
	assert.Equal(t, "querycache.fetch.duration", sink.metrics[1].name)
}

func TestCacheRecorder_HitHasNoTiming(t *testing.T) {
	sink := &captureSink{}
	NewCacheRecorder(sink).RecordCacheEvent(querycache.CacheEvent{
		Scope: "job-item", Tier: querycache.TierLocal, Op: querycache.OpHit, Ok: true,
	})

	require.Len(t, sink.metrics, 1)
	assert.Equal(t, "querycache.hit", sink.metrics[0].name)
	assert.Equal(t, "success", sink.metrics[0].tags["result"])
}

func TestCacheRecorder_NilSafe(t *testing.T) {
	assert.Nil(t, NewCacheRecorder(nil))
	var rec *CacheRecorder
	rec.RecordCacheEvent(querycache.CacheEvent{Op: querycache.OpHit})
}

func TestEmitFetchFailure(t *testing.T) {
	sink := &captureSink{}
	EmitFetchFailure(sink, FetchFailure{Scope: "job-item", Err: &apperrors.RemoteError{StatusCode: 404}})
	EmitFetchFailure(nil, FetchFailure{Err: errors.New("ignored")})

	require.Len(t, sink.metrics, 1)
	assert.Equal(t, "jobitem.fetch_failure", sink.metrics[0].name)
	assert.Equal(t, "remote_4xx", sink.metrics[0].tags["error_class"])
}

func TestEmitCacheStats(t *testing.T) {
	sink := &captureSink{}
	EmitCacheStats(sink, querycache.Stats{Entries: 3, InFlight: 1, Capacity: 10})

	require.Len(t, sink.metrics, 3)
	assert.InDelta(t, 3, sink.metrics[0].value, 0)
	assert.Equal(t, "querycache.capacity", sink.metrics[2].name)
}
