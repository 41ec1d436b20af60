package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/renandav/livia/pkg/errorsx"
	"github.com/renandav/livia/pkg/priority"
	"github.com/renandav/livia/pkg/tool"
)

// DefaultEndpoint is the bidirectional generation endpoint of the hosted
// live API.
const DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

const controlQueueCap = 64

type Config struct {
	Endpoint           string        `mapstructure:"endpoint"`
	APIKey             string        `mapstructure:"api_key"`
	Model              string        `mapstructure:"model"`
	Voice              string        `mapstructure:"voice"`
	SystemInstruction  string        `mapstructure:"system_instruction"`
	ResponseModalities []string      `mapstructure:"response_modalities"`
	HandshakeTimeout   time.Duration `mapstructure:"handshake_timeout"`
	SendQueue          int           `mapstructure:"send_queue"`
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Voice == "" {
		c.Voice = "Aoede"
	}
	if len(c.ResponseModalities) == 0 {
		c.ResponseModalities = []string{"AUDIO"}
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 256
	}
	return c
}

// WSClient speaks the live API over a websocket: one reader goroutine turning
// wire messages into events, one writer draining the two-lane outbound queue
// so tool responses overtake buffered audio.
type WSClient struct {
	cfg    Config
	decls  []functionDeclaration
	logger *slog.Logger

	emitter *Emitter
	state   *connState
	queue   *priority.Queue

	connMu sync.Mutex
	conn   *websocket.Conn

	shutdownOnce sync.Once
}

func NewWSClient(cfg Config, defs []tool.Definition, logger *slog.Logger) *WSClient {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &WSClient{
		cfg:     cfg,
		decls:   declarationsFor(defs),
		logger:  logger,
		emitter: NewEmitter(logger),
		state:   &connState{},
		queue:   priority.New(controlQueueCap, cfg.SendQueue),
	}
}

func (c *WSClient) Name() string { return "gemini" }

// State reports the connection lifecycle position.
func (c *WSClient) State() State { return c.state.State() }

// Subscribe registers a buffered event feed. No kinds means every kind.
func (c *WSClient) Subscribe(kinds ...EventKind) *Subscription {
	return c.emitter.Subscribe(kinds...)
}

// Connect dials the endpoint, queues the setup message and starts the read
// and write loops. The setup message always leaves before any queued media.
func (c *WSClient) Connect(ctx context.Context) error {
	if c.cfg.Model == "" {
		return ErrNoConfig
	}
	if err := c.state.transition(StateConnecting); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.dialURL(), header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		_ = c.state.transition(StateIdle)
		return errorsx.Wrap(err, errorsx.ReasonLiveConnect)
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	setup, err := json.Marshal(newSetupMessage(c.cfg, c.decls))
	if err != nil {
		c.shutdown(err)
		return errorsx.Wrap(err, errorsx.ReasonLiveSetup)
	}
	c.queue.TryPushControl(setup)

	if err := c.state.transition(StateReady); err != nil {
		c.shutdown(nil)
		return err
	}
	go c.readLoop(conn)
	go c.writePump(conn)

	c.emitter.Publish(Event{Kind: KindOpen, At: time.Now()})
	c.logger.Info("live_connected", "model", c.cfg.Model)
	return nil
}

// SendAudio queues one media chunk. Chunks are dropped, not blocked on, when
// the writer falls behind.
func (c *WSClient) SendAudio(pcm []byte) error {
	if c.state.State() != StateReady {
		return ErrNotConnected
	}
	if len(pcm) == 0 {
		return nil
	}
	payload, err := json.Marshal(newAudioMessage(pcm))
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonLiveSend)
	}
	if !c.queue.TryPushMedia(payload) {
		c.logger.Debug("live_media_dropped", "bytes", len(pcm))
	}
	return nil
}

// SendText queues a complete user text turn.
func (c *WSClient) SendText(text string) error {
	if c.state.State() != StateReady {
		return ErrNotConnected
	}
	payload, err := json.Marshal(newTextMessage(text))
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonLiveSend)
	}
	return c.pushControl(payload)
}

// SendToolResponse queues one toolResponse message carrying the whole batch.
func (c *WSClient) SendToolResponse(resps []tool.FunctionResponse) error {
	if c.state.State() != StateReady {
		return ErrNotConnected
	}
	if len(resps) == 0 {
		return nil
	}
	payload, err := json.Marshal(newToolResponseMessage(resps))
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonLiveSend)
	}
	return c.pushControl(payload)
}

// Disconnect tears the session down. Safe to call more than once.
func (c *WSClient) Disconnect() error {
	c.shutdown(nil)
	return nil
}

func (c *WSClient) pushControl(payload []byte) error {
	if !c.queue.TryPushControl(payload) {
		return errorsx.Wrap(errors.New("control queue full"), errorsx.ReasonLiveSend)
	}
	return nil
}

func (c *WSClient) dialURL() string {
	if c.cfg.APIKey == "" {
		return c.cfg.Endpoint
	}
	return c.cfg.Endpoint + "?key=" + url.QueryEscape(c.cfg.APIKey)
}

func (c *WSClient) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.shutdown(nil)
			} else {
				c.shutdown(err)
			}
			return
		}
		evs, err := decodeServerMessage(raw)
		if err != nil {
			c.logger.Debug("live_decode_failed", "error", err.Error())
			continue
		}
		for _, ev := range evs {
			if ev.Kind == KindSetupComplete {
				c.logger.Info("live_setup_complete", "model", c.cfg.Model)
			}
			c.emitter.Publish(ev)
		}
	}
}

func (c *WSClient) writePump(conn *websocket.Conn) {
	for {
		payload, ok := c.queue.Pop()
		if !ok {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.logger.Debug("live_write_failed", "error", err.Error())
			c.shutdown(err)
			return
		}
	}
}

// shutdown runs the teardown exactly once: the Close event is published
// before subscriptions close, and nothing is delivered afterwards.
func (c *WSClient) shutdown(err error) {
	c.shutdownOnce.Do(func() {
		_ = c.state.transition(StateClosed)
		ev := Event{Kind: KindClose, At: time.Now()}
		if err != nil {
			ev.Err = errorsx.Wrap(err, errorsx.ReasonLiveClosed)
		}
		c.emitter.Publish(ev)
		c.emitter.CloseAll()
		c.queue.Close()
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		if err != nil {
			c.logger.Warn("live_closed", "error", err.Error())
		} else {
			c.logger.Info("live_closed")
		}
	})
}

var _ Client = (*WSClient)(nil)
