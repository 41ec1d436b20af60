// Package observers holds the metrics sinks the engine assembles: a debug
// logger, latency tracing, and the per-session timeline and usage artifacts.
package observers

import (
	"log/slog"

	"github.com/renandav/livia/pkg/metrics"
)

// LoggerObserver mirrors every event onto the structured log at debug level.
// It is always first in the engine's chain so a misbehaving artifact observer
// never hides the raw stream.
type LoggerObserver struct {
	log *slog.Logger
}

func NewLoggerObserver(log *slog.Logger) *LoggerObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LoggerObserver{log: log}
}

func (o *LoggerObserver) RecordEvent(ev metrics.MetricsEvent) {
	args := make([]any, 0, 2*(2+len(ev.Tags)+len(ev.Fields)))
	args = append(args, "name", ev.Name, "value", ev.Value)
	for k, v := range ev.Tags {
		args = append(args, k, v)
	}
	for k, v := range ev.Fields {
		args = append(args, k, v)
	}
	o.log.Debug("metrics", args...)
}

// MultiObserver fans one event out to every observer in the chain. Nil
// entries are skipped so optional artifact observers can simply be absent.
type MultiObserver struct {
	list []metrics.Observer
}

func NewMultiObserver(list ...metrics.Observer) *MultiObserver {
	return &MultiObserver{list: list}
}

func (m *MultiObserver) RecordEvent(ev metrics.MetricsEvent) {
	for _, obs := range m.list {
		if obs != nil {
			obs.RecordEvent(ev)
		}
	}
}
