// Package audio carries model speech from the live session to whatever plays
// or stores it. Playback itself happens widget-side; the backend only needs a
// sink that accepts raw PCM.
package audio

import (
	"io"
	"sync"

	"github.com/renandav/livia/pkg/errorsx"
)

// Format describes the PCM stream. The live API emits 16-bit mono at 24 kHz.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat matches the live API's output stream.
var DefaultFormat = Format{SampleRate: 24000, Channels: 1}

// Sink consumes raw 16-bit PCM chunks in arrival order.
type Sink interface {
	// Name returns the sink name for logging/metrics.
	Name() string
	// Write consumes one PCM chunk. The slice is only valid for the call.
	Write(pcm []byte) error
	// Reset drops any buffered audio, used when the model is interrupted.
	Reset()
	// Close releases the sink.
	Close() error
}

// BufferSink accumulates PCM in memory. Mostly used by tests and the dev
// replay script.
type BufferSink struct {
	mu     sync.Mutex
	buf    []byte
	writes int
	closed bool
}

func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

func (s *BufferSink) Name() string { return "buffer" }

func (s *BufferSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errorsx.Wrap(io.ErrClosedPipe, errorsx.ReasonAudioWrite)
	}
	s.buf = append(s.buf, pcm...)
	s.writes++
	return nil
}

func (s *BufferSink) Reset() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.mu.Unlock()
}

func (s *BufferSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Bytes returns a copy of the accumulated PCM.
func (s *BufferSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// Writes returns how many chunks were accepted.
func (s *BufferSink) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// WriterSink streams PCM to an io.Writer, e.g. a raw capture file. Reset is a
// no-op since written bytes are already gone.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Name() string { return "writer" }

func (s *WriterSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(pcm); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonAudioWrite)
	}
	return nil
}

func (s *WriterSink) Reset() {}

func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var (
	_ Sink = (*BufferSink)(nil)
	_ Sink = (*WriterSink)(nil)
)
