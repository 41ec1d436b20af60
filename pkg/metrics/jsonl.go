package metrics

import (
	"encoding/json"
	"io"
	"sync"
)

// JSONLObserver exports events as one JSON object per line for offline
// analysis. Tags and fields are flattened into the object next to name, time,
// and value; the reserved keys win on a name collision.
type JSONLObserver struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLObserver(w io.Writer) *JSONLObserver {
	if w == nil {
		w = io.Discard
	}
	return &JSONLObserver{enc: json.NewEncoder(w)}
}

func (o *JSONLObserver) RecordEvent(ev MetricsEvent) {
	line := make(map[string]any, 3+len(ev.Tags)+len(ev.Fields))
	for k, v := range ev.Tags {
		line[k] = v
	}
	for k, v := range ev.Fields {
		line[k] = v
	}
	line["name"] = ev.Name
	line["time"] = ev.Time
	line["value"] = ev.Value

	o.mu.Lock()
	_ = o.enc.Encode(line)
	o.mu.Unlock()
}
