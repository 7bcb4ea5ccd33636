package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"

	configpage "github.com/goliatone/go-configpage"
	"github.com/goliatone/go-configpage/components/pagehost"
	"github.com/goliatone/go-configpage/internal/logging"
	"github.com/goliatone/go-configpage/pkg/confirm"
	"github.com/goliatone/go-configpage/pkg/dispatch"
	"github.com/goliatone/go-configpage/pkg/engine"
	"github.com/goliatone/go-configpage/pkg/overrides"
	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/renderers/html"
	"github.com/goliatone/go-configpage/pkg/source/cache"
	"github.com/goliatone/go-configpage/pkg/source/fsdoc"
	"github.com/goliatone/go-configpage/pkg/source/mock"
	"github.com/goliatone/go-configpage/pkg/source/remote"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// callList collects repeated -dispatch node:op flags.
type callList []dispatch.Call

func (c *callList) String() string {
	parts := make([]string, 0, len(*c))
	for _, call := range *c {
		parts = append(parts, call.NodeID+":"+call.OperationKey)
	}
	return strings.Join(parts, ",")
}

// Set parses "node:op" with an optional JSON object payload appended as
// "node:op:{...}".
func (c *callList) Set(raw string) error {
	node, rest, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || node == "" || rest == "" {
		return fmt.Errorf("dispatch %q: want node:operation", raw)
	}
	op, payload, hasPayload := strings.Cut(rest, ":")
	call := dispatch.Call{NodeID: node, OperationKey: op}
	if hasPayload {
		if err := json.Unmarshal([]byte(payload), &call.Extra); err != nil {
			return fmt.Errorf("dispatch %q: payload: %w", raw, err)
		}
	}
	*c = append(*c, call)
	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("configpage", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "TOML configuration file")
	scenario := flags.String("scenario", "", "scenario key (overrides [scenario].key)")
	output := flags.String("output", "", "output file (stdout if empty)")
	logLevel := flags.String("log-level", "", "log level (overrides [log].level)")
	yes := flags.Bool("yes", false, "confirm every operation without prompting")
	batch := flags.Bool("batch", false, "send all -dispatch calls as one batch")
	serve := flags.String("serve", "", "serve the mounted scenario over HTTP on this address instead of printing it")
	var calls callList
	flags.Var(&calls, "dispatch", "operation to run before rendering, as node:op[:json] (repeatable)")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *scenario != "" {
		cfg.Scenario.Key = *scenario
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logCfg := logging.FromEnv(logging.DefaultConfig())
	if lvl, ok := logging.ParseLevel(cfg.Log.Level); ok {
		logCfg.Level = lvl
	}
	logCfg.NoColor = logCfg.NoColor || cfg.Log.NoColor
	logCfg.Out = stderr
	logger := logging.New("configpage", logCfg)

	invocation := runOptions{calls: calls, batch: *batch, yes: *yes, output: *output, serve: *serve}
	if err := execute(ctx, cfg, invocation, stdout, logger); err != nil {
		logger.Error().Err(err).Msg("configpage failed")
		return 1
	}
	return 0
}

// runOptions carries the per-invocation flags that are not part of the
// TOML config.
type runOptions struct {
	calls  []dispatch.Call
	batch  bool
	yes    bool
	output string
	serve  string
}

func execute(ctx context.Context, cfg Config, run runOptions, stdout io.Writer, logger zerolog.Logger) error {
	source, closeSource, err := buildSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	options := []engine.Option{
		engine.WithSource(source),
		engine.WithLogger(logger),
		engine.WithAbortStale(cfg.Scenario.AbortStale),
		engine.WithNavigator(dispatch.NavigateFunc(func(_ context.Context, nav dispatch.Navigation) error {
			logger.Info().Str("node", nav.NodeID).Str("operation", nav.OperationKey).Str("target", nav.Target).Msg("navigate")
			return nil
		})),
	}
	if run.yes {
		options = append(options, engine.WithConfirmer(confirm.Always))
	} else {
		options = append(options, engine.WithConfirmer(confirm.NewTerminal()))
	}
	if dir := strings.TrimSpace(cfg.Overrides.Dir); dir != "" {
		store, err := overrides.LoadFS(os.DirFS(dir))
		if err != nil {
			return err
		}
		options = append(options, engine.WithOverrides(store))
	}

	eng, renderer, err := configpage.NewHTMLEngine(options...)
	if err != nil {
		return err
	}
	inst, err := eng.Mount(ctx, engine.HostConfig{
		ScenarioKey:     cfg.Scenario.Key,
		ScenarioType:    cfg.Scenario.Type,
		InParams:        cfg.Scenario.InParams,
		ForceUpdateKeys: cfg.Scenario.ForceUpdateKeys,
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("scenario error")
		},
	})
	if err != nil {
		return err
	}
	defer inst.Unmount()

	if err := runCalls(ctx, inst, run.calls, run.batch, logger); err != nil {
		return err
	}

	pageOptions := []html.PageOption{html.WithTitle(cfg.Scenario.Key)}
	if manifest := cfg.Theme.manifest(); manifest != nil {
		pageOptions = append(pageOptions, configpage.WithThemeSelector(manifestSelector{manifest: manifest}, cfg.Theme.Name, cfg.Theme.Variant))
	}
	if run.serve != "" {
		return serveInstance(ctx, run.serve, inst, renderer, pageOptions, logger)
	}

	body, err := inst.Render(ctx, engine.RenderOptions{})
	if err != nil {
		return err
	}
	page, err := renderer.Page(pageOptions...).Wrap(body)
	if err != nil {
		return err
	}

	if run.output == "" {
		_, err = io.WriteString(stdout, page)
		return err
	}
	if err := os.WriteFile(run.output, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info().Str("path", run.output).Msg("page written")
	return nil
}

// serveInstance blocks until ctx is cancelled, then shuts the server down.
func serveInstance(ctx context.Context, addr string, inst *engine.Instance, renderer *html.Renderer, pageOptions []html.PageOption, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	pattern, err := pagehost.RegisterRoutes(mux, "/", inst, renderer, pagehost.WithRoutePath("/"), pagehost.WithPageOptions(pageOptions...))
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("route", pattern).Msg("serving scenario")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func runCalls(ctx context.Context, inst *engine.Instance, calls []dispatch.Call, batch bool, logger zerolog.Logger) error {
	if len(calls) == 0 {
		return nil
	}
	var results []dispatch.Result
	if batch {
		res, err := inst.DispatchBatch(ctx, calls)
		if err != nil {
			return err
		}
		results = res
	} else {
		for _, call := range calls {
			res, err := inst.Dispatch(ctx, call.NodeID, call.OperationKey, call.Extra)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
	}
	for _, res := range results {
		logger.Info().
			Str("node", res.NodeID).
			Str("operation", res.OperationKey).
			Str("outcome", string(res.Outcome)).
			Uint64("generation", res.Generation).
			Msg("dispatched")
	}
	return nil
}

func buildSource(ctx context.Context, cfg Config, logger zerolog.Logger) (protocol.Source, func(), error) {
	noop := func() {}

	var upstream protocol.Source
	switch cfg.Source.Kind {
	case sourceFS:
		src, err := fsdoc.New(os.DirFS(cfg.Source.Dir), ".")
		if err != nil {
			return nil, noop, err
		}
		upstream = src
	case sourceRemote:
		opts := []remote.Option{remote.WithLogger(logger)}
		if cfg.Source.Timeout.Duration > 0 {
			opts = append(opts, remote.WithTimeout(cfg.Source.Timeout.Duration))
		}
		for key, value := range cfg.Source.Headers {
			opts = append(opts, remote.WithHeader(key, value))
		}
		src, err := remote.New(cfg.Source.Endpoint, opts...)
		if err != nil {
			return nil, noop, err
		}
		upstream = src
	case sourceMock:
		raw, err := os.ReadFile(cfg.Source.MockFile)
		if err != nil {
			return nil, noop, fmt.Errorf("mock document: %w", err)
		}
		doc, err := protocol.Decode(raw)
		if err != nil {
			return nil, noop, fmt.Errorf("mock document %s: %w", cfg.Source.MockFile, err)
		}
		upstream = mock.New(doc, nil)
	default:
		return nil, noop, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}

	if strings.TrimSpace(cfg.Cache.RedisURL) == "" {
		return upstream, noop, nil
	}
	opts := []cache.Option{cache.WithLogger(logger)}
	if cfg.Cache.TTL.Duration > 0 {
		opts = append(opts, cache.WithTTL(cfg.Cache.TTL.Duration))
	}
	if cfg.Cache.Prefix != "" {
		opts = append(opts, cache.WithPrefix(cfg.Cache.Prefix))
	}
	cached, err := cache.Dial(ctx, upstream, cfg.Cache.RedisURL, opts...)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, noop, err
		}
		logger.Warn().Err(err).Msg("redis unavailable, serving documents uncached")
		return upstream, noop, nil
	}
	return cached, func() {
		if err := cached.Close(); err != nil {
			logger.Debug().Err(err).Msg("close cache")
		}
	}, nil
}
