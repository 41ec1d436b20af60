// Package mock provides an in-memory live client for tests and local runs.
// It implements the live.Client interface without any network dependency:
// server activity is scripted with Emit, outbound traffic is captured.
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/renandav/livia/pkg/live"
	"github.com/renandav/livia/pkg/tool"
)

type Client struct {
	emitter   *live.Emitter
	connected atomic.Bool
	closed    atomic.Bool

	// FailConnect, when set before Connect, makes Connect return it.
	FailConnect error

	mu        sync.Mutex
	audio     [][]byte
	texts     []string
	responses [][]tool.FunctionResponse

	respCh chan []tool.FunctionResponse
}

func New() *Client {
	return &Client{
		emitter: live.NewEmitter(nil),
		respCh:  make(chan []tool.FunctionResponse, 16),
	}
}

func (c *Client) Name() string { return "mock" }

func (c *Client) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.FailConnect != nil {
		return c.FailConnect
	}
	if c.closed.Load() {
		return live.ErrNotConnected
	}
	c.connected.Store(true)
	c.emitter.Publish(live.Event{Kind: live.KindOpen, At: time.Now()})
	c.emitter.Publish(live.Event{Kind: live.KindSetupComplete, At: time.Now()})
	return nil
}

func (c *Client) Subscribe(kinds ...live.EventKind) *live.Subscription {
	return c.emitter.Subscribe(kinds...)
}

func (c *Client) SendAudio(pcm []byte) error {
	if !c.connected.Load() || c.closed.Load() {
		return live.ErrNotConnected
	}
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	c.mu.Lock()
	c.audio = append(c.audio, cp)
	c.mu.Unlock()
	return nil
}

func (c *Client) SendText(text string) error {
	if !c.connected.Load() || c.closed.Load() {
		return live.ErrNotConnected
	}
	c.mu.Lock()
	c.texts = append(c.texts, text)
	c.mu.Unlock()
	return nil
}

func (c *Client) SendToolResponse(resps []tool.FunctionResponse) error {
	if !c.connected.Load() || c.closed.Load() {
		return live.ErrNotConnected
	}
	cp := make([]tool.FunctionResponse, len(resps))
	copy(cp, resps)
	c.mu.Lock()
	c.responses = append(c.responses, cp)
	c.mu.Unlock()
	select {
	case c.respCh <- cp:
	default:
	}
	return nil
}

func (c *Client) Disconnect() error {
	if c.closed.CompareAndSwap(false, true) {
		c.connected.Store(false)
		c.emitter.Publish(live.Event{Kind: live.KindClose, At: time.Now()})
		c.emitter.CloseAll()
	}
	return nil
}

// Emit injects a server event, as if it had arrived on the wire.
func (c *Client) Emit(ev live.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	c.emitter.Publish(ev)
}

// EmitToolCall is shorthand for a tool_call event with the given batch.
func (c *Client) EmitToolCall(calls ...tool.FunctionCall) {
	c.Emit(live.Event{Kind: live.KindToolCall, Calls: calls})
}

// SentAudio returns the captured media chunks.
func (c *Client) SentAudio() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.audio))
	copy(out, c.audio)
	return out
}

// SentTexts returns the captured text turns.
func (c *Client) SentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.texts))
	copy(out, c.texts)
	return out
}

// Responses returns every captured toolResponse batch in send order.
func (c *Client) Responses() [][]tool.FunctionResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]tool.FunctionResponse, len(c.responses))
	copy(out, c.responses)
	return out
}

// NextResponse blocks until a toolResponse batch arrives or timeout passes.
func (c *Client) NextResponse(timeout time.Duration) ([]tool.FunctionResponse, bool) {
	select {
	case resp := <-c.respCh:
		return resp, true
	case <-time.After(timeout):
		return nil, false
	}
}

var _ live.Client = (*Client)(nil)
