package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remoteWriteServer decodes every remote write request it receives.
func remoteWriteServer(t *testing.T, status int) (*httptest.Server, chan []prompb.TimeSeries) {
	t.Helper()
	received := make(chan []prompb.TimeSeries, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/write", r.URL.Path)
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Content-Type"))
		assert.Equal(t, "0.1.0", r.Header.Get("X-Prometheus-Remote-Write-Version"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)

		var writeReq prompb.WriteRequest
		require.NoError(t, proto.Unmarshal(decoded, &writeReq))
		received <- writeReq.Timeseries
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, received
}

func findLabel(labels []prompb.Label, name string) string {
	for _, l := range labels {
		if l.Name == name {
			return l.Value
		}
	}
	return ""
}

func TestNewPushRegistry(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PushConfig
		wantURL string
	}{
		{
			name:    "minimal config",
			cfg:     PushConfig{URL: "http://localhost:8428"},
			wantURL: "http://localhost:8428/api/v1/write",
		},
		{
			name: "trailing slash",
			cfg: PushConfig{
				URL:      "http://localhost:8428/",
				Prefix:   "test",
				Job:      "testjob",
				Instance: "testinstance",
				Timeout:  5 * time.Second,
			},
			wantURL: "http://localhost:8428/api/v1/write",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewPushRegistry(tt.cfg)
			require.NotNil(t, registry)
			assert.Equal(t, tt.wantURL, registry.url)
		})
	}
}

func TestPushRegistry_FlushEmpty(t *testing.T) {
	server, received := remoteWriteServer(t, http.StatusNoContent)
	registry := NewPushRegistry(PushConfig{URL: server.URL})

	require.NoError(t, registry.Flush(context.Background()))
	assert.Empty(t, received)
}

func TestPushRegistry_Flush(t *testing.T) {
	server, received := remoteWriteServer(t, http.StatusNoContent)

	registry := NewPushRegistry(PushConfig{
		URL:      server.URL,
		Prefix:   "gymsync",
		Job:      "gymsync",
		Instance: "desktop",
	})
	registry.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	gauge, err := registry.NewGauge(prometheus.GaugeOpts{
		Name: "sync_elapsed_seconds",
		Help: "Elapsed seconds of the last snapshot",
	})
	require.NoError(t, err)
	gauge.Set(120)

	ticks, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_ticks_total",
		Help: "Sync ticks by result",
	}, []string{"result"})
	require.NoError(t, err)
	ticks.With(prometheus.Labels{"result": "updated"}).Inc()
	ticks.With(prometheus.Labels{"result": "updated"}).Add(2)
	ticks.With(prometheus.Labels{"result": "cleared"}).Inc()

	require.NoError(t, registry.Flush(context.Background()))

	series := <-received
	require.Len(t, series, 3)

	values := make(map[string]float64)
	for _, ts := range series {
		assert.Equal(t, "gymsync", findLabel(ts.Labels, "job"))
		assert.Equal(t, "desktop", findLabel(ts.Labels, "instance"))
		require.Len(t, ts.Samples, 1)
		assert.Equal(t, int64(1_700_000_000_000), ts.Samples[0].Timestamp)
		key := findLabel(ts.Labels, "__name__") + "/" + findLabel(ts.Labels, "result")
		values[key] = ts.Samples[0].Value
	}
	assert.Equal(t, map[string]float64{
		"gymsync_sync_elapsed_seconds/":    120,
		"gymsync_sync_ticks_total/updated": 3,
		"gymsync_sync_ticks_total/cleared": 1,
	}, values)
}

func TestPushRegistry_FlushServerError(t *testing.T) {
	server, _ := remoteWriteServer(t, http.StatusBadRequest)
	registry := NewPushRegistry(PushConfig{URL: server.URL})

	gauge, err := registry.NewGauge(prometheus.GaugeOpts{Name: "g"})
	require.NoError(t, err)
	gauge.Set(1)

	err = registry.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
}

func TestPushCounter_NegativePanics(t *testing.T) {
	registry := NewPushRegistry(PushConfig{URL: "http://localhost:8428"})
	vec, err := registry.NewCounterVec(prometheus.CounterOpts{Name: "c"}, []string{"l"})
	require.NoError(t, err)

	assert.Panics(t, func() {
		vec.With(prometheus.Labels{"l": "v"}).Add(-1)
	})
}

func TestLabelsToKey_Stable(t *testing.T) {
	a := labelsToKey(map[string]string{"b": "2", "a": "1"})
	b := labelsToKey(map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, "a=1,b=2,", a)
	assert.Equal(t, a, b)
}

func TestScrapeRegistry(t *testing.T) {
	registry, err := NewScrapeRegistry()
	require.NoError(t, err)

	gauge, err := registry.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})
	require.NoError(t, err)
	gauge.Set(42.0)

	counter, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "A test counter",
	}, []string{"op"})
	require.NoError(t, err)
	counter.With(prometheus.Labels{"op": "start"}).Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	registry.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "test_gauge 42")
	assert.Contains(t, body, `test_counter_total{op="start"} 1`)

	values, err := registry.Gather()
	require.NoError(t, err)
	assert.Equal(t, 42.0, values["test_gauge"])
	assert.Equal(t, 1.0, values["test_counter_total,op=start"])
}

func TestScrapeRegistry_DuplicateRegistration(t *testing.T) {
	registry, err := NewScrapeRegistry()
	require.NoError(t, err)

	_, err = registry.NewGauge(prometheus.GaugeOpts{Name: "dup"})
	require.NoError(t, err)
	_, err = registry.NewGauge(prometheus.GaugeOpts{Name: "dup"})
	assert.Error(t, err)
}
