// Package dispatch executes tool-call batches: fan out to handlers, fan in
// exactly one response per call, log the trigger and the outcome, and hand
// the completed batch back to the model in a single send.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hokaccha/go-prettyjson"
	"github.com/renandav/livia/pkg/errorsx"
	"github.com/renandav/livia/pkg/metrics"
	"github.com/renandav/livia/pkg/redact"
	"github.com/renandav/livia/pkg/tool"
	"github.com/renandav/livia/pkg/turnlog"
)

// ErrToolTimeout marks a handler that exceeded Options.HandlerTimeout.
var ErrToolTimeout = errors.New("tool timeout exceeded")

// Responder delivers a completed batch to the model.
type Responder interface {
	SendToolResponse(resps []tool.FunctionResponse) error
}

type Options struct {
	// MaxConcurrency caps in-flight handlers per batch. Defaults to 4.
	MaxConcurrency int
	// HandlerTimeout bounds one handler call. Zero means no timeout.
	HandlerTimeout time.Duration
	// SessionID tags metrics events and log lines.
	SessionID string

	Store    turnlog.Store
	Redactor *redact.Redactor
	Observer metrics.Observer
	Logger   *slog.Logger
}

// Dispatcher turns one toolcall batch into one ordered response batch. It is
// stateless across batches and safe for concurrent use.
type Dispatcher struct {
	mux       *tool.HandlerMux
	responder Responder
	opts      Options
	pretty    *prettyjson.Formatter
}

func New(mux *tool.HandlerMux, responder Responder, opts Options) *Dispatcher {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = metrics.NoopObserver{}
	}
	pretty := prettyjson.NewFormatter()
	pretty.DisabledColor = true
	return &Dispatcher{mux: mux, responder: responder, opts: opts, pretty: pretty}
}

// Dispatch runs one batch. Every call yields exactly one response with the
// matching id, order-stable with the request batch; handler faults become
// error payloads, never dispatch errors. When a responder is configured the
// batch is also delivered as a single sendToolResponse; an undeliverable
// batch is logged and discarded.
func (d *Dispatcher) Dispatch(ctx context.Context, batch []tool.FunctionCall) []tool.FunctionResponse {
	if len(batch) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	batchID := uuid.NewString()
	d.opts.Observer.RecordEvent(metrics.MetricsEvent{
		Name:  "tool_call_received",
		Time:  time.Now(),
		Value: float64(len(batch)),
		Tags:  d.tags(batchID, nil),
	})

	results := make([]tool.FunctionResponse, len(batch))
	sem := make(chan struct{}, d.opts.MaxConcurrency)
	var wg sync.WaitGroup
	for i, call := range batch {
		wg.Add(1)
		go func(i int, call tool.FunctionCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = d.execute(ctx, batchID, call)
		}(i, call)
	}
	wg.Wait()

	d.logSummary(ctx, results)
	d.deliver(batchID, results)
	return results
}

func (d *Dispatcher) execute(ctx context.Context, batchID string, call tool.FunctionCall) tool.FunctionResponse {
	d.logTrigger(ctx, call)

	handler, known := d.mux.Resolve(call.Name)
	if !known {
		d.opts.Logger.Debug("tool_fallback", "tool", call.Name)
	}

	started := time.Now()
	payload, err := d.invoke(ctx, handler, call.Args)
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, ErrToolTimeout) {
			status = "timeout"
		}
		payload = map[string]string{"error": err.Error()}
		d.opts.Logger.Warn("tool_handler_failed",
			"tool", call.Name,
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error(),
		)
	}
	d.opts.Observer.RecordEvent(metrics.MetricsEvent{
		Name:  "tool_handler_done",
		Time:  time.Now(),
		Value: float64(time.Since(started).Milliseconds()),
		Tags:  d.tags(batchID, map[string]string{"tool": call.Name, "status": status}),
	})

	raw, merr := json.Marshal(payload)
	if merr != nil {
		raw, _ = json.Marshal(map[string]string{"error": "unserializable tool result: " + merr.Error()})
	}
	return tool.FunctionResponse{
		ID:       call.ID,
		Name:     call.Name,
		Response: tool.ResponseBody{Result: string(raw)},
	}
}

// invoke runs one handler with panic containment and the optional per-call
// timeout. The result channel is buffered so a late finisher never leaks the
// goroutine.
func (d *Dispatcher) invoke(ctx context.Context, h tool.Handler, args map[string]any) (any, error) {
	callCtx := ctx
	if d.opts.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.opts.HandlerTimeout)
		defer cancel()
	}

	type outcome struct {
		payload any
		err     error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: errorsx.Wrap(fmt.Errorf("tool handler panic: %v", r), errorsx.ReasonToolPanic)}
			}
		}()
		payload, err := h.Invoke(callCtx, args)
		ch <- outcome{payload: payload, err: err}
	}()

	select {
	case out := <-ch:
		return out.payload, out.err
	case <-callCtx.Done():
		if d.opts.HandlerTimeout > 0 && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, errorsx.Wrap(ErrToolTimeout, errorsx.ReasonToolTimeout)
		}
		return nil, callCtx.Err()
	}
}

func (d *Dispatcher) logTrigger(ctx context.Context, call tool.FunctionCall) {
	if d.opts.Store == nil {
		return
	}
	text := "Calling " + call.Name
	if len(call.Args) > 0 {
		if pretty, err := d.pretty.Marshal(call.Args); err == nil {
			text += " with args:\n" + string(pretty)
		}
	}
	d.addTurn(ctx, text)
}

// logSummary writes one audit turn covering every result in the batch. The
// payloads are re-parsed from their wire strings for readability; a string
// that does not parse back is logged raw instead.
func (d *Dispatcher) logSummary(ctx context.Context, results []tool.FunctionResponse) {
	if d.opts.Store == nil {
		return
	}
	entries := make([]map[string]any, 0, len(results))
	for _, r := range results {
		var parsed any
		if err := json.Unmarshal([]byte(r.Response.Result), &parsed); err != nil {
			parsed = r.Response.Result
		}
		entries = append(entries, map[string]any{"name": r.Name, "result": parsed})
	}
	text := "Tool results"
	if pretty, err := d.pretty.Marshal(entries); err == nil {
		text += ":\n" + string(pretty)
	}
	d.addTurn(ctx, text)
}

func (d *Dispatcher) addTurn(ctx context.Context, text string) {
	t := turnlog.Turn{
		Role:    turnlog.RoleSystem,
		Text:    d.opts.Redactor.Text(text),
		IsFinal: true,
		At:      time.Now(),
	}
	if err := d.opts.Store.AddTurn(ctx, t); err != nil {
		d.opts.Logger.Warn("turnlog_append_failed",
			"reason_code", string(errorsx.ReasonTurnlogAppend),
			"error", err.Error(),
		)
	}
}

func (d *Dispatcher) deliver(batchID string, results []tool.FunctionResponse) {
	status := "ok"
	if d.responder != nil {
		if err := d.responder.SendToolResponse(results); err != nil {
			status = "error"
			d.opts.Logger.Warn("tool_response_undeliverable",
				"batch_id", batchID,
				"calls", len(results),
				"error", err.Error(),
			)
		}
	}
	d.opts.Observer.RecordEvent(metrics.MetricsEvent{
		Name:  "tool_response_sent",
		Time:  time.Now(),
		Value: float64(len(results)),
		Tags:  d.tags(batchID, map[string]string{"status": status}),
	})
}

func (d *Dispatcher) tags(batchID string, extra map[string]string) map[string]string {
	tags := map[string]string{"batch_id": batchID}
	if d.opts.SessionID != "" {
		tags["session_id"] = d.opts.SessionID
	}
	for k, v := range extra {
		tags[k] = v
	}
	return tags
}
