package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/hammamikhairi/talkytime/internal/logger"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		t.Fatalf("metric %s not found", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is %T, want Sum[int64]", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAnnouncement(ctx, "espeak", "ok")
	m.RecordAnnouncement(ctx, "espeak", "error")
	m.RecordSpeechError(ctx, "espeak", "synth")
	m.RecordTick(ctx)
	m.RecordTick(ctx)
	m.RecordTick(ctx)
	m.RecordClockState(ctx, "running")
	m.RecordVoiceRefresh(ctx)

	rm := collect(t, reader)
	tests := []struct {
		name string
		want int64
	}{
		{"talkytime.announcements", 2},
		{"talkytime.speech.errors", 1},
		{"talkytime.clock.ticks", 3},
		{"talkytime.clock.transitions", 1},
		{"talkytime.voice.refreshes", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := counterTotal(t, rm, tt.name); got != tt.want {
				t.Fatalf("%s = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordTick(context.Background())
	m.RecordAnnouncement(context.Background(), "noop", "ok")
}

func TestMiddlewareRecordsDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	log := logger.New(logger.LevelOff, nil)

	h := Middleware(m, log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	met := findMetric(collect(t, reader), "talkytime.http.request.duration")
	if met == nil {
		t.Fatal("duration histogram not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Fatalf("unexpected histogram: %+v", met.Data)
	}
}
