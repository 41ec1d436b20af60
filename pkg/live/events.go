package live

import (
	"time"

	"github.com/renandav/livia/pkg/tool"
)

// EventKind discriminates session events.
type EventKind string

const (
	KindOpen                 EventKind = "open"
	KindSetupComplete        EventKind = "setup_complete"
	KindAudio                EventKind = "audio"
	KindContent              EventKind = "content"
	KindInterrupted          EventKind = "interrupted"
	KindTurnComplete         EventKind = "turn_complete"
	KindToolCall             EventKind = "tool_call"
	KindToolCallCancellation EventKind = "tool_cancellation"
	KindClose                EventKind = "close"
)

// ContentSource tells which server stream a text fragment came from.
type ContentSource string

const (
	SourceModel               ContentSource = "model"
	SourceInputTranscription  ContentSource = "input_transcription"
	SourceOutputTranscription ContentSource = "output_transcription"
)

// Event is a single occurrence on a live session. Only the fields matching
// Kind are populated.
type Event struct {
	Kind EventKind
	At   time.Time

	// KindAudio
	PCM        []byte
	SampleRate int
	Channels   int

	// KindContent
	Text   string
	Source ContentSource
	Final  bool

	// KindToolCall
	Calls []tool.FunctionCall

	// KindToolCallCancellation
	CancelledIDs []string

	// KindClose: non-nil when the connection ended abnormally.
	Err error
}
