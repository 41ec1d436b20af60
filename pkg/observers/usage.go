package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/renandav/livia/pkg/metrics"
)

// UsageSummary is the per-session usage artifact written at shutdown.
type UsageSummary struct {
	SessionID     string         `json:"session_id,omitempty"`
	AudioOutSec   float64        `json:"audio_out_seconds"`
	ToolCalls     int            `json:"tool_calls"`
	ToolFailures  int            `json:"tool_failures"`
	CallsPerTool  map[string]int `json:"calls_per_tool,omitempty"`
	RecordedAtUTC string         `json:"recorded_at_utc"`
}

// UsageObserver accumulates model audio seconds and tool-call counts per
// session and writes one .usage.json file per session on Close.
type UsageObserver struct {
	dir   string
	mu    sync.Mutex
	stats map[string]*UsageSummary
}

func NewUsageObserver(dir string) *UsageObserver {
	return &UsageObserver{dir: dir, stats: make(map[string]*UsageSummary)}
}

func (o *UsageObserver) RecordEvent(ev metrics.MetricsEvent) {
	if strings.TrimSpace(o.dir) == "" {
		return
	}
	sessionID := ""
	if ev.Tags != nil {
		sessionID = ev.Tags["session_id"]
	}
	if sessionID == "" {
		return
	}

	switch ev.Name {
	case "audio_out":
		sec := pcmSeconds(ev.Value, ev.Fields)
		if sec <= 0 {
			return
		}
		o.mu.Lock()
		o.statLocked(sessionID).AudioOutSec += sec
		o.mu.Unlock()
	case "tool_handler_done":
		o.mu.Lock()
		stat := o.statLocked(sessionID)
		stat.ToolCalls++
		if ev.Tags["status"] != "ok" {
			stat.ToolFailures++
		}
		if name := ev.Tags["tool"]; name != "" {
			if stat.CallsPerTool == nil {
				stat.CallsPerTool = make(map[string]int)
			}
			stat.CallsPerTool[name]++
		}
		o.mu.Unlock()
	}
}

func (o *UsageObserver) statLocked(sessionID string) *UsageSummary {
	stat := o.stats[sessionID]
	if stat == nil {
		stat = &UsageSummary{SessionID: sessionID}
		o.stats[sessionID] = stat
	}
	return stat
}

// Close writes the accumulated summaries to dir.
func (o *UsageObserver) Close() error {
	if strings.TrimSpace(o.dir) == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return err
	}
	var errOut error
	for id, stat := range o.stats {
		stat.RecordedAtUTC = time.Now().UTC().Format(time.RFC3339)
		b, err := json.MarshalIndent(stat, "", "  ")
		if err != nil {
			errOut = errors.Join(errOut, err)
			continue
		}
		path := filepath.Join(o.dir, sanitizeID(id)+".usage.json")
		if err := os.WriteFile(path, b, 0o644); err != nil {
			errOut = errors.Join(errOut, err)
		}
	}
	return errOut
}

// pcmSeconds converts a 16-bit PCM byte count into seconds using the
// sample_rate and channels fields attached to the event.
func pcmSeconds(byteCount float64, fields map[string]any) float64 {
	if byteCount <= 0 || fields == nil {
		return 0
	}
	sampleRate := intField(fields, "sample_rate")
	channels := intField(fields, "channels")
	if channels <= 0 {
		channels = 1
	}
	if sampleRate <= 0 {
		return 0
	}
	return byteCount / float64(sampleRate*channels*2)
}

func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

var _ metrics.Observer = (*UsageObserver)(nil)
