package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/voiceagent/internal/config"
	"github.com/xiaot623/gogo/voiceagent/internal/hub"
	"github.com/xiaot623/gogo/voiceagent/internal/policy"
	"github.com/xiaot623/gogo/voiceagent/internal/repository"
	"github.com/xiaot623/gogo/voiceagent/internal/service"
	"github.com/xiaot623/gogo/voiceagent/internal/telemetry"
	internalhttp "github.com/xiaot623/gogo/voiceagent/internal/transport/http"
	"github.com/xiaot623/gogo/voiceagent/internal/weather"
	"github.com/xiaot623/gogo/voiceagent/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the call websocket and the internal HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("voiceagent starting",
		"version", version,
		"ws_port", cfg.WSPort,
		"ws_path", cfg.WSPath,
		"http_port", cfg.HTTPPort,
	)
	if cfg.DeepgramAPIKey == "" {
		logger.Warn("DEEPGRAM_API_KEY is not set; every call will be hung up")
	}

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("init policy: %w", err)
	}

	svc := service.New(service.Options{
		Credential: cfg.DeepgramAPIKey,
		Weather:    weather.NewClient(cfg.GeocodingURL, cfg.WeatherURL, cfg.LookupTimeout),
		Policy:     policyEngine,
		Store:      store,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	connectionHub := hub.NewHub(logger)
	g.Go(func() error {
		connectionHub.Run(gctx)
		return nil
	})

	wsServer := ws.NewServer(gctx, cfg, connectionHub, svc, logger)
	callEcho := internalhttp.NewCallServer(cfg.WSPath, wsServer.HandleWebSocket)
	apiEcho := internalhttp.NewInternalServer(store, connectionHub)

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.WSPort)
		logger.Info("websocket server started", "addr", addr)
		if err := callEcho.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("websocket server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info("internal HTTP server started", "addr", addr)
		if err := apiEcho.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal HTTP server: %w", err)
		}
		return nil
	})

	// Wait for a shutdown signal or a server error.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("voiceagent shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := callEcho.Shutdown(shutdownCtx); err != nil {
			logger.Error("websocket server shutdown error", "error", err)
		}
		if err := apiEcho.Shutdown(shutdownCtx); err != nil {
			logger.Error("internal HTTP server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("voiceagent stopped")
	return nil
}
