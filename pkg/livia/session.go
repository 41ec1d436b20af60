package livia

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/renandav/livia/pkg/audio"
	"github.com/renandav/livia/pkg/dispatch"
	"github.com/renandav/livia/pkg/errorsx"
	"github.com/renandav/livia/pkg/live"
	"github.com/renandav/livia/pkg/metrics"
	"github.com/renandav/livia/pkg/redact"
	"github.com/renandav/livia/pkg/tool"
	"github.com/renandav/livia/pkg/turnlog"
)

// SessionOptions carries the components one session routes between. Client
// and Dispatcher are required; the rest default to inert implementations.
type SessionOptions struct {
	ID         string
	Client     live.Client
	Dispatcher *dispatch.Dispatcher
	Sink       audio.Sink
	Store      turnlog.Store
	Aggregator *turnlog.TranscriptAggregator
	Redactor   *redact.Redactor
	Observer   metrics.Observer
	Logger     *slog.Logger
}

// Session routes one live connection's event stream: model audio to the
// sink, transcriptions through the aggregator into the turn log, and toolcall
// batches to the dispatcher. It subscribes at construction time so nothing
// published between Connect and Run is lost.
type Session struct {
	id         string
	client     live.Client
	dispatcher *dispatch.Dispatcher
	sink       audio.Sink
	store      turnlog.Store
	agg        *turnlog.TranscriptAggregator
	redactor   *redact.Redactor
	observer   metrics.Observer
	logger     *slog.Logger

	sub    *live.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	started  atomic.Bool
	inflight sync.WaitGroup
	downOnce sync.Once
}

func NewSession(opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = metrics.NoopObserver{}
	}
	if opts.Aggregator == nil {
		opts.Aggregator = turnlog.NewTranscriptAggregator(turnlog.AggregatorConfig{})
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:         opts.ID,
		client:     opts.Client,
		dispatcher: opts.Dispatcher,
		sink:       opts.Sink,
		store:      opts.Store,
		agg:        opts.Aggregator,
		redactor:   opts.Redactor,
		observer:   opts.Observer,
		logger:     opts.Logger,
		sub:        opts.Client.Subscribe(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Run consumes the event stream until the connection closes, the session is
// closed, or ctx ends. It returns the connection error when the stream ended
// abnormally.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("session already started")
	}
	defer close(s.done)

	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.cancel()
			case <-s.ctx.Done():
			}
		}()
	}

	var runErr error
	for {
		select {
		case <-s.ctx.Done():
			s.teardown()
			return runErr
		case ev, ok := <-s.sub.Events():
			if !ok {
				s.teardown()
				return runErr
			}
			if ev.Kind == live.KindClose && ev.Err != nil {
				runErr = ev.Err
			}
			s.handle(ev)
		}
	}
}

// Close stops the session and blocks until the run loop has drained in-flight
// dispatches and flushed pending transcripts.
func (s *Session) Close() {
	s.cancel()
	s.sub.Close()
	if s.started.Load() {
		<-s.done
		return
	}
	s.teardown()
}

func (s *Session) handle(ev live.Event) {
	switch ev.Kind {
	case live.KindOpen:
		s.logger.Debug("session_open", "session_id", s.id)
	case live.KindSetupComplete:
		s.logger.Info("session_ready", "session_id", s.id)
		s.record("session_ready", 1, nil, nil)
	case live.KindAudio:
		s.routeAudio(ev)
	case live.KindContent:
		s.routeContent(ev)
	case live.KindInterrupted:
		s.onInterrupted()
	case live.KindTurnComplete:
		s.onTurnComplete()
	case live.KindToolCall:
		s.dispatchBatch(ev.Calls)
	case live.KindToolCallCancellation:
		s.onCancellation(ev.CancelledIDs)
	case live.KindClose:
		if ev.Err != nil {
			s.logger.Warn("session_connection_lost", "session_id", s.id, "error", ev.Err.Error())
		}
	}
}

func (s *Session) routeAudio(ev live.Event) {
	if s.sink == nil || len(ev.PCM) == 0 {
		return
	}
	if err := s.sink.Write(ev.PCM); err != nil {
		s.logger.Warn("audio_sink_write_failed",
			"session_id", s.id,
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
		return
	}
	rate, ch := ev.SampleRate, ev.Channels
	if rate <= 0 {
		rate = audio.DefaultFormat.SampleRate
	}
	if ch <= 0 {
		ch = audio.DefaultFormat.Channels
	}
	s.record("audio_out", float64(len(ev.PCM)), nil, map[string]any{
		"sample_rate": rate,
		"channels":    ch,
	})
}

func (s *Session) routeContent(ev live.Event) {
	if ev.Text == "" {
		return
	}
	role := turnlog.RoleAssistant
	if ev.Source == live.SourceInputTranscription {
		role = turnlog.RoleUser
	}
	for _, t := range s.agg.Add(role, ev.Text, ev.Final) {
		s.appendTurn(s.ctx, t)
	}
}

func (s *Session) onInterrupted() {
	if s.sink != nil {
		s.sink.Reset()
	}
	if t, ok := s.agg.Flush(turnlog.RoleAssistant); ok {
		s.appendTurn(s.ctx, t)
	}
	s.logger.Info("model_interrupted", "session_id", s.id)
	s.record("model_interrupted", 1, nil, nil)
}

func (s *Session) onTurnComplete() {
	if t, ok := s.agg.Flush(turnlog.RoleAssistant); ok {
		s.appendTurn(s.ctx, t)
	}
	s.logger.Debug("turn_complete", "session_id", s.id)
}

func (s *Session) dispatchBatch(calls []tool.FunctionCall) {
	if s.dispatcher == nil || len(calls) == 0 {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.dispatcher.Dispatch(s.ctx, calls)
	}()
}

// onCancellation only records the ids. In-flight handlers keep running on the
// session context; the model drops whatever answer still arrives for a
// cancelled id.
func (s *Session) onCancellation(ids []string) {
	s.logger.Info("tool_call_cancelled", "session_id", s.id, "ids", ids)
	s.record("tool_call_cancelled", float64(len(ids)), nil, nil)
}

func (s *Session) appendTurn(ctx context.Context, t turnlog.Turn) {
	if s.store == nil {
		return
	}
	if s.redactor != nil {
		t.Text = s.redactor.Text(t.Text)
	}
	if err := s.store.AddTurn(ctx, t); err != nil {
		s.logger.Warn("turnlog_append_failed",
			"session_id", s.id,
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
	}
}

func (s *Session) teardown() {
	s.downOnce.Do(func() {
		s.cancel()
		s.inflight.Wait()
		// Store writes after cancel use a fresh context so the tail of the
		// transcript still lands.
		flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, t := range s.agg.FlushAll() {
			s.appendTurn(flushCtx, t)
		}
		s.sub.Close()
		s.record("session_closed", 1, nil, nil)
		s.logger.Info("session_closed", "session_id", s.id, "dropped_events", s.sub.Dropped())
	})
}

func (s *Session) record(name string, value float64, tags map[string]string, fields map[string]any) {
	if tags == nil {
		tags = map[string]string{}
	}
	tags["session_id"] = s.id
	s.observer.RecordEvent(metrics.MetricsEvent{
		Name:   name,
		Time:   time.Now(),
		Value:  value,
		Tags:   tags,
		Fields: fields,
	})
}
