package tool

import "context"

// Handler executes one tool invocation. The returned payload is marshaled to
// JSON by the dispatcher; a returned error is surfaced as data inside the
// result payload, never as a batch failure.
type Handler interface {
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

func (f HandlerFunc) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return f(ctx, args)
}

// AckPayload acknowledges a declared tool that has no local handler. The
// fallback is deliberate: display-side tools are rendered by the widget, the
// model only needs to hear that the call landed.
type AckPayload struct {
	Result string `json:"result"`
}

// DefaultAck responds {result: ok} without doing local work.
var DefaultAck Handler = HandlerFunc(func(context.Context, map[string]any) (any, error) {
	return AckPayload{Result: "ok"}, nil
})

// HandlerMux binds tool names to handlers. Unbound names resolve to the
// fallback handler.
type HandlerMux struct {
	handlers map[string]Handler
	fallback Handler
}

// NewHandlerMux builds an empty mux with DefaultAck as fallback.
func NewHandlerMux() *HandlerMux {
	return &HandlerMux{handlers: make(map[string]Handler), fallback: DefaultAck}
}

// Bind registers h under name, replacing any previous binding.
func (m *HandlerMux) Bind(name string, h Handler) {
	m.handlers[name] = h
}

// SetFallback replaces the default-ack fallback.
func (m *HandlerMux) SetFallback(h Handler) {
	if h != nil {
		m.fallback = h
	}
}

// Resolve returns the handler bound to name. known reports whether the name
// had an explicit binding; when false the fallback is returned.
func (m *HandlerMux) Resolve(name string) (h Handler, known bool) {
	if h, ok := m.handlers[name]; ok {
		return h, true
	}
	return m.fallback, false
}
