// Package metrics carries instrumentation events from the session and the
// dispatcher to pluggable observers. Event names are snake_case verbs
// (audio_out, tool_handler_done, session_closed); every event the session
// emits carries a session_id tag so per-session artifacts can split the
// stream.
package metrics

import "time"

// MetricsEvent is one instrumentation sample. Value holds the event's
// magnitude where one exists (bytes for audio_out, batch size for
// tool_response_sent); Tags hold low-cardinality strings used for grouping,
// Fields hold everything else.
type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

// NoopObserver stands in when instrumentation is off.
type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
