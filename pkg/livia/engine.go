package livia

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/renandav/livia/pkg/audio"
	"github.com/renandav/livia/pkg/backend"
	"github.com/renandav/livia/pkg/dispatch"
	"github.com/renandav/livia/pkg/errorsx"
	"github.com/renandav/livia/pkg/live"
	"github.com/renandav/livia/pkg/logging"
	"github.com/renandav/livia/pkg/metrics"
	"github.com/renandav/livia/pkg/observers"
	"github.com/renandav/livia/pkg/redact"
	"github.com/renandav/livia/pkg/runner"
	"github.com/renandav/livia/pkg/tool"
	"github.com/renandav/livia/pkg/turnlog"
)

// Options overrides individual engine components, mostly from tests. Any
// non-nil field replaces what the provider registry would build from config.
type Options struct {
	Providers *ProviderRegistry
	Logger    *slog.Logger
	Client    live.Client
	Backend   backend.PartnerService
	Store     turnlog.Store
	Sink      audio.Sink
	// Observer is appended to the built observer fan-out.
	Observer metrics.Observer
}

// Engine owns one live session end to end: it resolves providers from config,
// wires the dispatcher between the live client and the tool handlers, and
// runs the lifecycle with a bounded drain on shutdown.
type Engine struct {
	cfg       Config
	logger    *slog.Logger
	sessionID string

	registry *tool.Registry
	client   live.Client
	session  *Session
	store    turnlog.Store
	sink     audio.Sink
	partner  backend.PartnerService

	asyncObs    *metrics.AsyncObserver
	timelineObs *observers.TimelineObserver
	usageObs    *observers.UsageObserver
	jsonlFile   *os.File

	runner    *runner.LifecycleRunner
	runCtx    context.Context
	runCancel context.CancelFunc
}

func NewEngine(cfg Config, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.InitLogger(logging.ParseLevel(cfg.LogLevel))
	}

	providers := opts.Providers
	if providers == nil {
		providers = DefaultProviders()
	}

	registry, err := BuildRegistry(cfg.Profile, cfg.Tools.Disabled)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfigInvalid)
	}

	redactor := redact.New(cfg.Privacy.RedactPII)

	partner := opts.Backend
	if partner == nil {
		partner, err = providers.BuildBackend(cfg.Backend.Provider, cfg)
		if err != nil {
			return nil, err
		}
	}
	mux := BuildHandlerMux(cfg.Profile, partner)

	store := opts.Store
	if store == nil {
		store, err = providers.BuildStore(context.Background(), cfg.Turnlog.Store, cfg)
		if err != nil {
			return nil, err
		}
	}

	sink := opts.Sink
	if sink == nil {
		sink, err = providers.BuildSink(cfg.Audio.Sink, cfg)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	client := opts.Client
	if client == nil {
		client, err = providers.BuildLive(cfg.Live.Provider, cfg, registry.Declarations(), logging.NewComponentLogger(logger, "live"))
		if err != nil {
			_ = store.Close()
			_ = sink.Close()
			return nil, err
		}
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		client:   client,
		store:    store,
		sink:     sink,
		partner:  partner,
	}

	if err := e.buildObservers(redactor, opts.Observer); err != nil {
		_ = store.Close()
		_ = sink.Close()
		return nil, err
	}

	e.sessionID = uuid.NewString()
	dispatcher := dispatch.New(mux, client, dispatch.Options{
		MaxConcurrency: cfg.Dispatch.MaxConcurrency,
		HandlerTimeout: cfg.Dispatch.HandlerTimeout,
		SessionID:      e.sessionID,
		Store:          store,
		Redactor:       redactor,
		Observer:       e.asyncObs,
		Logger:         logging.NewComponentLogger(logger, "dispatch"),
	})
	e.session = NewSession(SessionOptions{
		ID:         e.sessionID,
		Client:     client,
		Dispatcher: dispatcher,
		Sink:       sink,
		Store:      store,
		Aggregator: turnlog.NewTranscriptAggregator(turnlog.AggregatorConfig{}),
		Redactor:   redactor,
		Observer:   e.asyncObs,
		Logger:     logging.NewComponentLogger(logger, "session"),
	})

	hooks := runner.Hooks{
		OnStart: func() {
			logger.Info("engine_ready",
				"profile", cfg.Profile,
				"live_provider", cfg.Live.Provider,
				"backend_provider", cfg.Backend.Provider,
				"session_id", e.sessionID,
				"tools_declared", len(registry.Declarations()),
			)
		},
		OnStop: func() {
			e.asyncObs.Close()
			if e.timelineObs != nil {
				_ = e.timelineObs.Close()
			}
			if e.usageObs != nil {
				_ = e.usageObs.Close()
			}
			if e.jsonlFile != nil {
				_ = e.jsonlFile.Close()
			}
			_ = e.store.Close()
			_ = e.sink.Close()
			logger.Info("shutdown", "goroutines", runtime.NumGoroutine())
		},
	}
	drainer := runner.DrainerFunc(func() error {
		e.session.Close()
		_ = e.client.Disconnect()
		return nil
	})
	e.runner = runner.NewLifecycleRunner(drainer, hooks, cfg.Engine.DrainTimeout)

	return e, nil
}

// buildObservers assembles the metrics fan-out: logger and latency always,
// timeline/usage/JSONL when config points them at a destination. Sampling
// applies to the JSONL export only so latency traces stay complete.
func (e *Engine) buildObservers(redactor *redact.Redactor, extra metrics.Observer) error {
	cfg := e.cfg
	obsList := []metrics.Observer{
		observers.NewLoggerObserver(logging.NewComponentLogger(e.logger, "metrics")),
		observers.NewDispatchLatencyObserver(logging.NewComponentLogger(e.logger, "latency")),
	}
	retention := time.Duration(cfg.Observability.RetentionDays) * 24 * time.Hour
	if dir := strings.TrimSpace(cfg.Observability.TimelineDir); dir != "" {
		if retention > 0 {
			_, _ = observers.PurgeArtifacts(dir, retention)
		}
		e.timelineObs = observers.NewTimelineObserver(dir, redactor)
		obsList = append(obsList, e.timelineObs)
	}
	if dir := strings.TrimSpace(cfg.Observability.UsageDir); dir != "" {
		if retention > 0 {
			_, _ = observers.PurgeArtifacts(dir, retention)
		}
		e.usageObs = observers.NewUsageObserver(dir)
		obsList = append(obsList, e.usageObs)
	}
	if path := strings.TrimSpace(cfg.Observability.JSONLPath); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open metrics jsonl: %w", err)
		}
		e.jsonlFile = f
		var jsonlObs metrics.Observer = metrics.NewJSONLObserver(f)
		if cfg.Observability.SampleRate < 1 {
			jsonlObs = metrics.NewSamplingObserver(jsonlObs, cfg.Observability.SampleRate)
		}
		obsList = append(obsList, jsonlObs)
	}
	if extra != nil {
		obsList = append(obsList, extra)
	}
	e.asyncObs = metrics.NewAsyncObserver(observers.NewMultiObserver(obsList...), 2048)
	return nil
}

// Start connects the live client and launches the session loop plus the
// lifecycle runner. The returned error is the connect failure, if any;
// everything after runs in the background until Stop.
func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.runCtx, e.runCancel = context.WithCancel(ctx)
	if err := e.client.Connect(e.runCtx); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonLiveConnect)
	}
	go func() {
		_ = e.session.Run(e.runCtx)
	}()
	go func() {
		_ = e.runner.Run(ctx)
	}()
	return nil
}

func (e *Engine) Stop() error {
	if e.runCancel != nil {
		e.runCancel()
	}
	return e.runner.Stop()
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) SessionID() string { return e.sessionID }

func (e *Engine) Client() live.Client { return e.client }

func (e *Engine) Store() turnlog.Store { return e.store }

func (e *Engine) Sink() audio.Sink { return e.sink }

func (e *Engine) Registry() *tool.Registry { return e.registry }

func (e *Engine) Health() error {
	if e.client == nil {
		return fmt.Errorf("missing live client")
	}
	return nil
}
