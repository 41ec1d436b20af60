// Package live implements the client side of a bidirectional voice session:
// a websocket wire codec, an event stream with filtered subscriptions, and
// deterministic teardown so that no event outlives its connection.
package live

import (
	"context"
	"errors"

	"github.com/renandav/livia/pkg/tool"
)

var (
	// ErrNoConfig rejects Connect when no model is configured.
	ErrNoConfig = errors.New("live: model not configured")
	// ErrNotConnected rejects sends outside the Ready state.
	ErrNotConnected = errors.New("live: client not connected")
)

// Client is one live session endpoint. Server activity arrives through
// Subscribe; client traffic leaves through the Send methods. Disconnect is
// idempotent and closes every subscription.
type Client interface {
	Name() string
	Connect(ctx context.Context) error
	Subscribe(kinds ...EventKind) *Subscription
	SendAudio(pcm []byte) error
	SendText(text string) error
	SendToolResponse(resps []tool.FunctionResponse) error
	Disconnect() error
}
