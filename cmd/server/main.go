package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/S1riyS/happyphone/server/internal/config"
	"github.com/S1riyS/happyphone/server/internal/download"
	"github.com/S1riyS/happyphone/server/internal/handler"
	"github.com/S1riyS/happyphone/server/internal/metrics"
	"github.com/S1riyS/happyphone/server/internal/middleware"
	"github.com/S1riyS/happyphone/server/internal/network"
	"github.com/S1riyS/happyphone/server/internal/packages"
	"github.com/S1riyS/happyphone/server/internal/repository"
	"github.com/S1riyS/happyphone/server/internal/service"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := pflag.StringP("config", "c", "configs/config.yaml", "path to the config file")
	issueFor := pflag.String("issue-token", "", "print a token for this user id and exit")
	issueName := pflag.String("name", "", "display name carried by --issue-token")
	pflag.Parse()

	cfg := config.MustLoad(*configPath)

	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Console: os.Stdout,
		File:    cfg.Logging.File,
		Journal: cfg.Logging.Journal,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer closeLog()

	auth := middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if *issueFor != "" {
		name := *issueName
		if name == "" {
			name = *issueFor
		}
		token, err := auth.IssueToken(*issueFor, name, time.Now())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	// Root context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.MakeContextWithLogger(ctx, logger)

	if err := run(ctx, cfg, auth); err != nil {
		logger.Error("Server stopped with error", slogext.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, auth *middleware.Auth) error {
	const op = "main.run"
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	if !auth.Enabled() {
		logger.Warn("Auth disabled, trusting X-User-ID headers")
	}

	// Dependencies
	storage, err := repository.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	netConfigs := network.NewConfigService(repository.NewNetworkRepository(storage.Blobs))
	pkgs := packages.NewManager(packages.DefaultCatalog(), download.NewRegistry(time.Now, nil), netConfigs)
	svc := service.NewTerminalService(
		storage.Tx,
		repository.NewFilesystemRepository(storage.Blobs),
		repository.NewHistoryRepository(storage.Blobs),
		netConfigs,
		pkgs,
		service.Options{
			Hostname:         cfg.App.Hostname,
			HistorySize:      cfg.Terminal.HistorySize,
			MaxContentLength: cfg.Terminal.MaxContentLength,
		},
	)

	mux := http.NewServeMux()
	handler.NewHandler(svc).RegisterRoutes(mux, auth.Middleware)

	// Requests keep the logger but outlive the signal context during shutdown.
	baseCtx := context.WithoutCancel(ctx)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           middleware.RequestIDMiddleware(metrics.Middleware(mux)),
		ReadHeaderTimeout: cfg.App.DefaultTimeout,
		ReadTimeout:       cfg.App.DefaultTimeout,
		WriteTimeout:      cfg.App.DefaultTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", slog.String("addr", srv.Addr), slog.String("storage", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(baseCtx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", op, err)
	}
	return nil
}
