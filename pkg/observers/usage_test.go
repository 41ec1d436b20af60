package observers

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/renandav/livia/pkg/metrics"
)

func TestUsageObserverSummarizesSession(t *testing.T) {
	dir := t.TempDir()
	obs := NewUsageObserver(dir)

	// One second of 24kHz mono 16-bit audio.
	obs.RecordEvent(metrics.MetricsEvent{
		Name:   "audio_out",
		Time:   time.Now(),
		Value:  48000,
		Tags:   map[string]string{"session_id": "sess-1"},
		Fields: map[string]any{"sample_rate": 24000, "channels": 1},
	})
	obs.RecordEvent(metrics.MetricsEvent{
		Name: "tool_handler_done",
		Time: time.Now(),
		Tags: map[string]string{"session_id": "sess-1", "tool": "get_voucher_status", "status": "ok"},
	})
	obs.RecordEvent(metrics.MetricsEvent{
		Name: "tool_handler_done",
		Time: time.Now(),
		Tags: map[string]string{"session_id": "sess-1", "tool": "insert_daily_report", "status": "error"},
	})
	if err := obs.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "sess-1.usage.json"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var sum UsageSummary
	if err := json.Unmarshal(b, &sum); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if math.Abs(sum.AudioOutSec-1.0) > 0.001 {
		t.Fatalf("audio seconds = %v, want 1.0", sum.AudioOutSec)
	}
	if sum.ToolCalls != 2 {
		t.Fatalf("tool calls = %d, want 2", sum.ToolCalls)
	}
	if sum.ToolFailures != 1 {
		t.Fatalf("tool failures = %d, want 1", sum.ToolFailures)
	}
	if sum.CallsPerTool["get_voucher_status"] != 1 || sum.CallsPerTool["insert_daily_report"] != 1 {
		t.Fatalf("calls per tool = %v", sum.CallsPerTool)
	}
	if sum.RecordedAtUTC == "" {
		t.Fatal("recorded_at_utc must be set")
	}
}

func TestUsageObserverIgnoresUntaggedEvents(t *testing.T) {
	dir := t.TempDir()
	obs := NewUsageObserver(dir)

	obs.RecordEvent(metrics.MetricsEvent{
		Name:   "audio_out",
		Value:  48000,
		Fields: map[string]any{"sample_rate": 24000, "channels": 1},
	})
	if err := obs.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no summaries, found %d", len(entries))
	}
}
