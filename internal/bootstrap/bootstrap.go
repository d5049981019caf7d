package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"leafai-server-go/internal/core/providers/vision"
	"leafai-server-go/internal/domain/analysis"
	"leafai-server-go/internal/domain/analysis/cache"
	"leafai-server-go/internal/domain/events"
	domainimage "leafai-server-go/internal/domain/image"
	platformconfig "leafai-server-go/internal/platform/config"
	platformerrors "leafai-server-go/internal/platform/errors"
	platformlogging "leafai-server-go/internal/platform/logging"
	platformobservability "leafai-server-go/internal/platform/observability"
	httptransport "leafai-server-go/internal/transport/http"
	httpanalyze "leafai-server-go/internal/transport/http/analyze"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	store                 cache.Store
	analyzer              analysis.Analyzer
}

// Run drives the whole service lifecycle: configuration, dependency
// initialisation, serving and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	if state.analyzer == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"analyzer not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	if shutdown := state.observabilityShutdown; shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WarnTag("BOOT", "observability did not shut down cleanly: %v", err)
			}
		}()
	}

	if state.store != nil {
		defer func() {
			if err := state.store.Close(); err != nil {
				logger.WarnTag("CACHE", "store did not close cleanly: %v", err)
			}
		}()
	}

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("BOOT", "server stopped")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	logger.InfoTag("BOOT", "initialisation overview")
	for _, step := range steps {
		logger.InfoTag("BOOT", "  %s", step.Title)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph returns the ordered initialisation steps with their declared
// dependencies.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "cache:init-store",
			Title:     "Initialise result cache",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindCache,
			Execute:   initCacheStep,
		},
		{
			ID:        "analyzer:init",
			Title:     "Initialise analyzer",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initAnalyzerStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logger = logger
	platformlogging.DefaultLogger = logger

	origin := state.configPath
	if origin == "" {
		origin = "defaults"
	}
	logger.InfoTag("BOOT", "logging ready [%s] %s", state.config.Log.Level, origin)

	setupEventHandlers(logger)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state == nil || state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindCache,
			"cache:init-store",
			"missing config/logger",
		)
	}
	if !state.config.Cache.Enabled {
		state.logger.InfoTag("CACHE", "result cache disabled")
		return nil
	}

	store, err := cache.New(cache.Config{
		Driver: state.config.Cache.Driver,
		TTL:    state.config.Cache.TTL,
		Redis: cache.RedisConfig{
			Addr:     state.config.Cache.Redis.Addr,
			Username: state.config.Cache.Redis.Username,
			Password: state.config.Cache.Redis.Password,
			DB:       state.config.Cache.Redis.DB,
			Prefix:   state.config.Cache.Redis.Prefix,
		},
		Memory: cache.MemoryConfig{
			GCInterval: state.config.Cache.Memory.GCInterval,
		},
	}, state.logger)
	if err != nil {
		return err
	}
	state.store = store
	state.logger.InfoTag("CACHE", "result cache ready: driver=%s ttl=%s",
		state.config.Cache.Driver, state.config.Cache.TTL)
	return nil
}

func initAnalyzerStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"analyzer:init",
			"missing config/logger",
		)
	}

	switch state.config.Analyze.Mode {
	case "remote":
		state.analyzer = analysis.NewClient(
			state.config.Analyze.RemoteURL,
			analysis.WithLogger(state.logger),
		)
		state.logger.InfoTag("BOOT", "analyzer ready: mode=remote url=%s", state.config.Analyze.RemoteURL)
	default:
		visionCfg, ok := state.config.Vision[state.config.Selected.Vision]
		if !ok {
			return platformerrors.New(
				platformerrors.KindConfig,
				"analyzer:init",
				fmt.Sprintf("selected vision model %q is not configured", state.config.Selected.Vision),
			)
		}
		provider := vision.NewProvider(visionCfg, state.config.Analyze.SystemPrompt, state.logger)
		state.analyzer = provider
		state.logger.InfoTag("BOOT", "analyzer ready: mode=upstream model=%s", provider.Model())
	}
	return nil
}

// setupEventHandlers attaches logging and metrics listeners to the analysis
// event topics.
func setupEventHandlers(logger *platformlogging.Logger) {
	_ = events.SubscribeCompleted(func(event events.AnalysisCompleted) {
		logger.InfoTag("EVENTS", "analysis completed: filename=%s model=%s cached=%v duration=%s",
			event.Filename, event.Model, event.Cached, event.Duration)
		platformobservability.RecordMetric(
			context.Background(),
			"analysis.completed",
			1,
			map[string]string{
				"model":  event.Model,
				"cached": strconv.FormatBool(event.Cached),
			},
		)
	})
	_ = events.SubscribeFailed(func(event events.AnalysisFailed) {
		logger.WarnTag("EVENTS", "analysis failed: filename=%s status=%d reason=%s",
			event.Filename, event.Status, event.Reason)
		platformobservability.RecordMetric(
			context.Background(),
			"analysis.failed",
			1,
			map[string]string{
				"status": strconv.Itoa(event.Status),
			},
		)
	})
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine
	apiGroup := httpRouter.API

	indexPath := config.Web.StaticDir + "/index.html"
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, httptransport.APIResponse{
				Success: false,
				Message: "api not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.File(indexPath)
	})

	pipeline, err := domainimage.NewPipeline(domainimage.Options{
		Policy: &config.Security,
		Logger: logger,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "http:init-image-pipeline", "failed to create image pipeline", err)
	}

	analyzeService, err := httpanalyze.NewService(config, logger, pipeline, state.analyzer, state.store)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "analyze:new-service", "failed to create analyze service", err)
	}
	if err := analyzeService.Register(groupCtx, apiGroup); err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:    config.Server.IP + ":" + strconv.Itoa(config.Server.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "server listening on http://%s", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server shut down cleanly")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutdown signal received, cleaning up")

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}
