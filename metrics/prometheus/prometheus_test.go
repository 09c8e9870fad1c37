package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %q not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestCollectorRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithConfig(CollectorConfig{Registry: reg})

	c.RecordRequest("GET", "hit", 200)
	c.RecordRequest("GET", "hit", 200)
	c.RecordRequest("GET", "bypass", 0)

	families, err := reg.Gather()
	require.NoError(t, err)

	mf := findFamily(t, families, "respcache_requests_total")
	for _, m := range mf.GetMetric() {
		switch labelValue(m, "cache_status") {
		case "hit":
			assert.Equal(t, float64(2), m.GetCounter().GetValue())
			assert.Equal(t, "200", labelValue(m, "code"))
		case "bypass":
			assert.Equal(t, float64(1), m.GetCounter().GetValue())
			assert.Equal(t, "", labelValue(m, "code"))
		}
	}
}

func TestCollectorRecordsCacheOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithConfig(CollectorConfig{Registry: reg})

	c.RecordCacheOperation("get", "hit", 2*time.Millisecond)
	c.RecordCacheOperation("get", "miss", time.Millisecond)
	c.RecordCacheOperation("set", "success", time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	ops := findFamily(t, families, "respcache_store_operations_total")
	total := float64(0)
	for _, m := range ops.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	assert.Equal(t, float64(3), total)

	hist := findFamily(t, families, "respcache_store_operation_duration_seconds")
	count := uint64(0)
	for _, m := range hist.GetMetric() {
		count += m.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(3), count)
}

func TestCollectorRecordsResponseSize(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithConfig(CollectorConfig{Registry: reg})

	c.RecordResponseSize("hit", 100)
	c.RecordResponseSize("hit", 50)

	families, err := reg.Gather()
	require.NoError(t, err)

	mf := findFamily(t, families, "respcache_response_body_bytes_total")
	require.Len(t, mf.GetMetric(), 1)
	assert.Equal(t, float64(150), mf.GetMetric()[0].GetCounter().GetValue())
}

func TestCustomNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithConfig(CollectorConfig{Registry: reg, Namespace: "edge"})

	c.RecordRequest("GET", "hit", 200)

	families, err := reg.Gather()
	require.NoError(t, err)
	findFamily(t, families, "edge_requests_total")
}
