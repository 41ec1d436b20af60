package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/renandav/livia/pkg/metrics"
)

// DispatchLatencyObserver correlates the per-batch dispatch events into one
// latency summary log line per tool-call batch.
type DispatchLatencyObserver struct {
	mu     sync.Mutex
	traces map[string]*dispatchTrace
	log    *slog.Logger
}

type dispatchTrace struct {
	received  time.Time
	firstDone time.Time
	lastDone  time.Time
	calls     int
	failures  int
	sessionID string
}

func NewDispatchLatencyObserver(log *slog.Logger) *DispatchLatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &DispatchLatencyObserver{
		traces: make(map[string]*dispatchTrace),
		log:    log,
	}
}

func (o *DispatchLatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	batchID := ""
	if ev.Tags != nil {
		batchID = ev.Tags["batch_id"]
	}
	if batchID == "" {
		return
	}
	o.mu.Lock()
	t := o.traces[batchID]
	if t == nil {
		t = &dispatchTrace{}
		o.traces[batchID] = t
	}
	switch ev.Name {
	case "tool_call_received":
		if t.received.IsZero() {
			t.received = ev.Time
		}
		if t.sessionID == "" && ev.Tags != nil {
			t.sessionID = ev.Tags["session_id"]
		}
	case "tool_handler_done":
		if t.firstDone.IsZero() {
			t.firstDone = ev.Time
		}
		t.lastDone = ev.Time
		t.calls++
		if ev.Tags != nil && ev.Tags["status"] != "ok" {
			t.failures++
		}
	case "tool_response_sent":
		o.logBatchLocked(batchID, t, ev.Time)
		delete(o.traces, batchID)
	}
	o.mu.Unlock()
}

func (o *DispatchLatencyObserver) logBatchLocked(batchID string, t *dispatchTrace, sent time.Time) {
	o.log.Info("dispatch_latency",
		"batch_id", batchID,
		"session_id", t.sessionID,
		"calls", t.calls,
		"failures", t.failures,
		"first_result_ms", durationMs(t.received, t.firstDone),
		"last_result_ms", durationMs(t.received, t.lastDone),
		"roundtrip_ms", durationMs(t.received, sent),
	)
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}
