package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/resumewise/refine-cli/internal/engine"
	"github.com/resumewise/refine-cli/internal/resilience"
	"github.com/resumewise/refine-cli/internal/session"
	"github.com/resumewise/refine-cli/internal/trace"
	"github.com/resumewise/refine-cli/pkg/anthropic"
)

// env bundles the wired components shared by the refine and serve commands.
type env struct {
	Manager *session.Manager
	Store   *session.Store

	dispatcher *trace.Dispatcher
	sqlite     *trace.SQLiteSink
}

// initEngine wires the client, refinement loop, trace recorder, and session
// manager from config.
func initEngine(mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.Anthropic.RatePerSecond), cfg.Anthropic.RateBurst)
	client := anthropic.NewClient(cfg.Anthropic.Key,
		anthropic.WithRateLimit(limiter),
		anthropic.WithRetry(resilience.DefaultRetryConfig()),
	)

	prompts := engine.DefaultPrompts()
	if cfg.Engine.PerspectivesFile != "" {
		loaded, err := engine.LoadPrompts(cfg.Engine.PerspectivesFile)
		if err != nil {
			return nil, eris.Wrap(err, "load perspectives")
		}
		prompts = loaded
	}

	e := &env{}

	// Heavier generation runs on Sonnet; scoring, gap analysis, and target
	// analysis use Haiku for latency and cost.
	gen := engine.NewGenerator(client, cfg.Anthropic.SonnetModel, prompts)
	scorer := engine.NewScorer(client, cfg.Anthropic.HaikuModel)
	gaps := engine.NewGapAnalyzer(client, cfg.Anthropic.HaikuModel)
	analyzer := engine.NewTargetAnalyzer(client, cfg.Anthropic.HaikuModel)

	recorder, err := e.initRecorder()
	if err != nil {
		return nil, err
	}

	loop := engine.NewLoop(gen, scorer, gaps, recorder,
		engine.WithBudget(cfg.Engine.MaxIterations),
		engine.WithThreshold(cfg.Engine.QualityThreshold),
	)

	e.Store = session.NewStore(time.Duration(cfg.Session.TTLMinutes) * time.Minute)
	e.Manager = session.NewManager(e.Store, loop, analyzer)
	return e, nil
}

// initRecorder builds the trace backend: sqlite audit DB and/or webhook,
// wrapped in a fire-and-forget dispatcher. No backend configured means noop.
func (e *env) initRecorder() (trace.Recorder, error) {
	var sinks []trace.Recorder

	if cfg.Trace.SQLitePath != "" {
		sink, err := trace.NewSQLiteSink(cfg.Trace.SQLitePath)
		if err != nil {
			return nil, eris.Wrap(err, "open trace database")
		}
		e.sqlite = sink
		sinks = append(sinks, sink)
	}
	if cfg.Trace.WebhookURL != "" {
		sinks = append(sinks, trace.NewWebhookSink(cfg.Trace.WebhookURL))
	}

	switch len(sinks) {
	case 0:
		return trace.Noop{}, nil
	case 1:
		e.dispatcher = trace.NewDispatcher(sinks[0], cfg.Trace.QueueSize)
	default:
		e.dispatcher = trace.NewDispatcher(trace.Multi(sinks...), cfg.Trace.QueueSize)
	}
	return e.dispatcher, nil
}

// Close flushes the trace queue and releases resources.
func (e *env) Close() {
	if e.dispatcher != nil {
		e.dispatcher.Close()
		if n := e.dispatcher.Dropped(); n > 0 {
			zap.L().Warn("trace events dropped during run", zap.Int64("count", n))
		}
	}
	if e.sqlite != nil {
		_ = e.sqlite.Close()
	}
	if e.Store != nil {
		e.Store.Close()
	}
}
