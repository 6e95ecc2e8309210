// Package observe holds the OpenTelemetry instruments for TalkyTime and the
// provider setup that exposes them on /metrics.
//
// Tests should build a Metrics with NewMetrics and a ManualReader backed
// provider instead of touching the global one.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/hammamikhairi/talkytime"

// Metrics holds every instrument the application records. The OTel types
// synchronise themselves, so a Metrics is safe for concurrent use.
type Metrics struct {
	// SynthDuration tracks speech synthesis latency. Attribute: backend.
	SynthDuration metric.Float64Histogram

	// Announcements counts utterances handed to the speech backend.
	// Attributes: backend, status (ok, error, cancelled, cached).
	Announcements metric.Int64Counter

	// SpeechErrors counts synthesis and playback failures.
	// Attributes: backend, stage (synth, play).
	SpeechErrors metric.Int64Counter

	// ClockTicks counts time refreshes fired by the clock.
	ClockTicks metric.Int64Counter

	// ClockTransitions counts clock starts and stops. Attribute: state.
	ClockTransitions metric.Int64Counter

	// VoiceRefreshes counts voice catalog rebuilds.
	VoiceRefreshes metric.Int64Counter

	// HTTPRequestDuration tracks control surface latency.
	// Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthDuration, err = m.Float64Histogram("talkytime.synth.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("talkytime.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.Announcements, err = m.Int64Counter("talkytime.announcements",
		metric.WithDescription("Utterances submitted, by backend and status."),
	); err != nil {
		return nil, err
	}
	if met.SpeechErrors, err = m.Int64Counter("talkytime.speech.errors",
		metric.WithDescription("Speech failures by backend and stage."),
	); err != nil {
		return nil, err
	}
	if met.ClockTicks, err = m.Int64Counter("talkytime.clock.ticks",
		metric.WithDescription("Time refreshes fired by the running clock."),
	); err != nil {
		return nil, err
	}
	if met.ClockTransitions, err = m.Int64Counter("talkytime.clock.transitions",
		metric.WithDescription("Clock start and stop transitions."),
	); err != nil {
		return nil, err
	}
	if met.VoiceRefreshes, err = m.Int64Counter("talkytime.voice.refreshes",
		metric.WithDescription("Voice catalog rebuilds."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics built on the global
// provider. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordAnnouncement counts one utterance outcome.
func (m *Metrics) RecordAnnouncement(ctx context.Context, backend, status string) {
	if m == nil {
		return
	}
	m.Announcements.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", status),
	))
}

// RecordSpeechError counts a failure in the given stage.
func (m *Metrics) RecordSpeechError(ctx context.Context, backend, stage string) {
	if m == nil {
		return
	}
	m.SpeechErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("stage", stage),
	))
}

// RecordSynth records a synthesis latency in seconds.
func (m *Metrics) RecordSynth(ctx context.Context, backend string, seconds float64) {
	if m == nil {
		return
	}
	m.SynthDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("backend", backend)))
}

// RecordTick counts a clock refresh.
func (m *Metrics) RecordTick(ctx context.Context) {
	if m == nil {
		return
	}
	m.ClockTicks.Add(ctx, 1)
}

// RecordClockState counts a transition into state ("running" or "stopped").
func (m *Metrics) RecordClockState(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.ClockTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// RecordVoiceRefresh counts a catalog rebuild.
func (m *Metrics) RecordVoiceRefresh(ctx context.Context) {
	if m == nil {
		return
	}
	m.VoiceRefreshes.Add(ctx, 1)
}
