package mock

import (
	"context"
	"testing"
	"time"

	"github.com/renandav/livia/pkg/live"
	"github.com/renandav/livia/pkg/tool"
)

func TestMockClientScriptsToolCalls(t *testing.T) {
	c := New()
	sub := c.Subscribe(live.KindToolCall)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	c.EmitToolCall(tool.FunctionCall{ID: "c1", Name: "render_chart"})

	select {
	case ev := <-sub.Events():
		if ev.Kind != live.KindToolCall || ev.Calls[0].ID != "c1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("tool call not delivered")
	}
}

func TestMockClientCapturesResponses(t *testing.T) {
	c := New()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	resp := []tool.FunctionResponse{{ID: "c1", Name: "render_chart", Response: tool.ResponseBody{Result: `{"result":"ok"}`}}}
	if err := c.SendToolResponse(resp); err != nil {
		t.Fatalf("send: %v", err)
	}

	got, ok := c.NextResponse(time.Second)
	if !ok || len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("unexpected capture: %+v ok=%v", got, ok)
	}
	if len(c.Responses()) != 1 {
		t.Fatalf("expected one captured batch")
	}
}

func TestMockClientDisconnectClosesSubscriptions(t *testing.T) {
	c := New()
	sub := c.Subscribe()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	sawClose := false
	for ev := range sub.Events() {
		if ev.Kind == live.KindClose {
			sawClose = true
		}
	}
	if !sawClose {
		t.Fatalf("expected a close event before channel teardown")
	}
	if err := c.SendAudio([]byte{1}); err != live.ErrNotConnected {
		t.Fatalf("expected ErrNotConnected after disconnect, got %v", err)
	}
}
