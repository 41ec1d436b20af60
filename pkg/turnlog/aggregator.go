package turnlog

import (
	"strings"
	"sync"
	"time"
)

// AggregatorConfig tunes transcript folding.
type AggregatorConfig struct {
	// EmitPartials also logs an in-progress turn for every fragment.
	EmitPartials bool
	// MaxFragments flushes an utterance after this many fragments even
	// without an end-of-sentence signal.
	MaxFragments int
}

// TranscriptAggregator folds streamed transcription fragments into whole
// turns. The live API delivers text in small chunks per speaker; an utterance
// is flushed when the stream marks it final, when end-of-sentence punctuation
// lands, or when the fragment budget is hit.
type TranscriptAggregator struct {
	mu  sync.Mutex
	cfg AggregatorConfig

	pending map[Role]*utterance
}

type utterance struct {
	sb        strings.Builder
	fragments int
	startedAt time.Time
}

func NewTranscriptAggregator(cfg AggregatorConfig) *TranscriptAggregator {
	if cfg.MaxFragments <= 0 {
		cfg.MaxFragments = 256
	}
	return &TranscriptAggregator{cfg: cfg, pending: make(map[Role]*utterance)}
}

// Add folds one fragment and returns the turns to log, in order: an optional
// partial, then the flushed utterance when one completed.
func (a *TranscriptAggregator) Add(role Role, fragment string, isFinal bool) []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()

	u := a.pending[role]
	if u == nil {
		u = &utterance{startedAt: time.Now()}
		a.pending[role] = u
	}
	u.sb.WriteString(fragment)
	u.fragments++

	var out []Turn
	text := u.sb.String()
	if a.cfg.EmitPartials && !isFinal {
		out = append(out, Turn{Role: role, Text: text, IsFinal: false, At: time.Now()})
	}
	if isFinal || u.fragments >= a.cfg.MaxFragments || eosDetected(text) {
		if t, ok := a.flushLocked(role); ok {
			out = append(out, t)
		}
	}
	return out
}

// Flush force-completes the pending utterance for role.
func (a *TranscriptAggregator) Flush(role Role) (Turn, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked(role)
}

// FlushAll force-completes every pending utterance. Called on interruption
// and shutdown so no spoken text is lost.
func (a *TranscriptAggregator) FlushAll() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []Turn
	for role := range a.pending {
		if t, ok := a.flushLocked(role); ok {
			out = append(out, t)
		}
	}
	return out
}

func (a *TranscriptAggregator) flushLocked(role Role) (Turn, bool) {
	u := a.pending[role]
	if u == nil {
		return Turn{}, false
	}
	delete(a.pending, role)
	text := strings.TrimSpace(u.sb.String())
	if text == "" {
		return Turn{}, false
	}
	return Turn{Role: role, Text: text, IsFinal: true, At: time.Now()}, true
}

func eosDetected(s string) bool {
	t := strings.TrimSpace(s)
	if len(t) == 0 {
		return false
	}
	if strings.HasSuffix(t, "...") {
		return len(t) >= 12
	}
	last := t[len(t)-1]
	return last == '.' || last == '!' || last == '?' || last == '\n'
}
