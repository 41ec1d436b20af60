package livia

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/renandav/livia/pkg/audio"
	backendmock "github.com/renandav/livia/pkg/backend/mock"
	"github.com/renandav/livia/pkg/dispatch"
	"github.com/renandav/livia/pkg/live"
	livemock "github.com/renandav/livia/pkg/live/mock"
	"github.com/renandav/livia/pkg/metrics"
	"github.com/renandav/livia/pkg/redact"
	"github.com/renandav/livia/pkg/tool"
	"github.com/renandav/livia/pkg/turnlog"
)

type sessionFixture struct {
	session *Session
	client  *livemock.Client
	store   *turnlog.MemoryStore
	sink    *audio.BufferSink
	obs     *metrics.MemoryObserver
	runDone chan error
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	client := livemock.New()
	store := turnlog.NewMemoryStore(0)
	sink := audio.NewBufferSink()
	obs := metrics.NewMemoryObserver()
	svc := backendmock.NewPartnerService(backendmock.Config{Latency: 0})
	d := dispatch.New(BuildHandlerMux(ProfileSupport, svc), client, dispatch.Options{
		SessionID: "s-test",
		Store:     store,
		Observer:  obs,
		Logger:    discardLogger(),
	})
	sess := NewSession(SessionOptions{
		ID:         "s-test",
		Client:     client,
		Dispatcher: d,
		Sink:       sink,
		Store:      store,
		Redactor:   redact.New(false),
		Observer:   obs,
		Logger:     discardLogger(),
	})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	f := &sessionFixture{session: sess, client: client, store: store, sink: sink, obs: obs, runDone: make(chan error, 1)}
	go func() { f.runDone <- sess.Run(context.Background()) }()
	t.Cleanup(func() {
		sess.Close()
		_ = client.Disconnect()
	})
	// The fixture must not return before the background Run owns the session:
	// otherwise a test calling Run again could win the started CAS and block
	// consuming events instead of being rejected.
	waitFor(t, func() bool { return sess.started.Load() }, "background run never started")
	return f
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSessionDispatchesToolCallBatch(t *testing.T) {
	f := newSessionFixture(t)

	f.client.EmitToolCall(
		tool.FunctionCall{ID: "call-1", Name: "get_voucher_status", Args: map[string]any{"voucherId": "EXPIRED456"}},
		tool.FunctionCall{ID: "call-2", Name: "render_chart", Args: map[string]any{"chartSpec": "{}"}},
	)

	resps, ok := f.client.NextResponse(2 * time.Second)
	if !ok {
		t.Fatal("no tool response delivered")
	}
	if len(resps) != 2 {
		t.Fatalf("expected one response per call, got %d", len(resps))
	}
	if resps[0].ID != "call-1" || resps[1].ID != "call-2" {
		t.Fatalf("ids not echoed in order: %+v", resps)
	}

	var voucher map[string]any
	if err := json.Unmarshal([]byte(resps[0].Response.Result), &voucher); err != nil {
		t.Fatalf("voucher payload not JSON: %v", err)
	}
	if voucher["status"] != "expired" {
		t.Fatalf("unexpected voucher payload: %v", voucher)
	}
	var ack map[string]any
	if err := json.Unmarshal([]byte(resps[1].Response.Result), &ack); err != nil {
		t.Fatalf("ack payload not JSON: %v", err)
	}
	if ack["result"] != "ok" {
		t.Fatalf("display tool must resolve to the default ack: %v", ack)
	}
}

func TestSessionRoutesAudioToSink(t *testing.T) {
	f := newSessionFixture(t)

	pcm := bytes.Repeat([]byte{0x01, 0x02}, 480)
	f.client.Emit(live.Event{Kind: live.KindAudio, PCM: pcm, SampleRate: 24000, Channels: 1})

	waitFor(t, func() bool { return len(f.sink.Bytes()) == len(pcm) }, "audio never reached the sink")
	if !bytes.Equal(f.sink.Bytes(), pcm) {
		t.Fatal("sink bytes differ from emitted pcm")
	}

	waitFor(t, func() bool {
		for _, ev := range f.obs.Snapshot() {
			if ev.Name == "audio_out" && ev.Value == float64(len(pcm)) {
				return true
			}
		}
		return false
	}, "audio_out metric not recorded")
}

func TestSessionAggregatesInputTranscription(t *testing.T) {
	f := newSessionFixture(t)

	f.client.Emit(live.Event{Kind: live.KindContent, Source: live.SourceInputTranscription, Text: "is my voucher"})
	f.client.Emit(live.Event{Kind: live.KindContent, Source: live.SourceInputTranscription, Text: " still valid", Final: true})

	waitFor(t, func() bool {
		turns, _ := f.store.Recent(context.Background(), 0)
		for _, turn := range turns {
			if turn.Role == turnlog.RoleUser && turn.Text == "is my voucher still valid" && turn.IsFinal {
				return true
			}
		}
		return false
	}, "final user turn never stored")
}

func TestSessionInterruptionResetsSinkAndFlushes(t *testing.T) {
	f := newSessionFixture(t)

	f.client.Emit(live.Event{Kind: live.KindAudio, PCM: []byte{1, 2, 3, 4}})
	waitFor(t, func() bool { return f.sink.Writes() == 1 }, "audio never reached the sink")

	f.client.Emit(live.Event{Kind: live.KindContent, Source: live.SourceOutputTranscription, Text: "Your voucher is"})
	f.client.Emit(live.Event{Kind: live.KindInterrupted})

	waitFor(t, func() bool { return len(f.sink.Bytes()) == 0 }, "interruption did not reset the sink")
	waitFor(t, func() bool {
		turns, _ := f.store.Recent(context.Background(), 0)
		for _, turn := range turns {
			if turn.Role == turnlog.RoleAssistant && turn.Text == "Your voucher is" {
				return true
			}
		}
		return false
	}, "interrupted model turn never flushed")
}

func TestSessionTurnCompleteFlushesModelTurn(t *testing.T) {
	f := newSessionFixture(t)

	f.client.Emit(live.Event{Kind: live.KindContent, Source: live.SourceOutputTranscription, Text: "Checking that now"})
	f.client.Emit(live.Event{Kind: live.KindTurnComplete})

	waitFor(t, func() bool {
		turns, _ := f.store.Recent(context.Background(), 0)
		for _, turn := range turns {
			if turn.Role == turnlog.RoleAssistant && turn.Text == "Checking that now" && turn.IsFinal {
				return true
			}
		}
		return false
	}, "model turn never flushed on turn_complete")
}

func TestSessionLogsCancellation(t *testing.T) {
	f := newSessionFixture(t)

	f.client.Emit(live.Event{Kind: live.KindToolCallCancellation, CancelledIDs: []string{"call-9", "call-10"}})

	waitFor(t, func() bool {
		for _, ev := range f.obs.Snapshot() {
			if ev.Name == "tool_call_cancelled" && ev.Value == 2 {
				return true
			}
		}
		return false
	}, "cancellation metric not recorded")
}

func TestSessionRunReturnsOnDisconnect(t *testing.T) {
	f := newSessionFixture(t)

	_ = f.client.Disconnect()

	select {
	case err := <-f.runDone:
		if err != nil {
			t.Fatalf("clean disconnect should not error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after disconnect")
	}
}

func TestSessionCloseDrainsPendingFlush(t *testing.T) {
	f := newSessionFixture(t)

	// A partial user turn with no end of sentence stays buffered until close.
	f.client.Emit(live.Event{Kind: live.KindContent, Source: live.SourceInputTranscription, Text: "hello there"})
	// Events are handled in order; once the marker lands, the content did too.
	f.client.Emit(live.Event{Kind: live.KindToolCallCancellation, CancelledIDs: []string{"marker"}})
	waitFor(t, func() bool {
		for _, ev := range f.obs.Snapshot() {
			if ev.Name == "tool_call_cancelled" {
				return true
			}
		}
		return false
	}, "marker event never handled")

	f.session.Close()

	turns, _ := f.store.Recent(context.Background(), 0)
	found := false
	for _, turn := range turns {
		if turn.Role == turnlog.RoleUser && turn.Text == "hello there" {
			found = true
		}
	}
	if !found {
		t.Fatalf("pending transcript lost on close: %+v", turns)
	}
}

func TestSessionRunTwiceRejected(t *testing.T) {
	f := newSessionFixture(t)
	if err := f.session.Run(context.Background()); err == nil {
		t.Fatal("second run must be rejected")
	}
}
