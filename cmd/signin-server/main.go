package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-signin/internal/config"
	"github.com/goliatone/go-signin/internal/devapi"
	"github.com/goliatone/go-signin/internal/logging"
	"github.com/goliatone/go-signin/internal/server"
	"github.com/goliatone/go-signin/pkg/apiclient"
	"github.com/goliatone/go-signin/pkg/signin"
)

func main() {
	configPath := flag.String("config", "signin.yaml", "configuration file (environment only when missing)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signin-server: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("signin-server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	spec, hasSpec, err := cfg.LoadFormSpec()
	if err != nil {
		return err
	}

	var opts []server.Option
	baseURL := cfg.API.BaseURL
	if cfg.UsesDevAPI() {
		api, err := devapi.New(
			devapi.WithRejectedEmails(cfg.DevAPI.RejectedEmails...),
			devapi.WithLogger(logger.With().Str("component", "devapi").Logger()),
		)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithDevAPI(api))
		baseURL = devBaseURL(cfg.Server.Addr)
		logger.Warn().Str("base_url", baseURL).Msg("no api.base_url configured, serving development API")
	}

	client := apiclient.New(apiclient.Config{
		BaseURL: baseURL,
		Timeout: cfg.API.Timeout,
		Headers: cfg.API.Headers,
		Logger:  logger.With().Str("component", "apiclient").Logger(),
	})

	factory := func() (*signin.View, error) {
		flow := signin.NewFlow(client, signin.WithFlowLogger(logger))
		viewOpts := []signin.ViewOption{
			signin.WithCountdownSeconds(cfg.SignIn.CountdownSeconds),
			signin.WithBrand(cfg.SignIn.Brand),
			signin.WithViewLogger(logger),
		}
		if hasSpec {
			viewOpts = append(viewOpts, signin.WithFormSpec(spec))
		}
		return signin.NewView(flow, viewOpts...)
	}

	// Fail at startup rather than on the first visitor.
	first, err := factory()
	if err != nil {
		return fmt.Errorf("build sign-in view: %w", err)
	}
	first.Close()

	opts = append(opts,
		server.WithLogger(logger),
		server.WithViewTTL(cfg.SignIn.ViewTTL),
		server.WithMaxViews(cfg.SignIn.MaxViews),
	)
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(server.NewMetrics(), cfg.Metrics.Path))
	}

	srv, err := server.New(factory, opts...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.Views().Run(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	srv.Close()
	return nil
}

// devBaseURL points the API client at the development API served by this
// process.
func devBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://127.0.0.1:8080" + server.PathDevAPI
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + server.PathDevAPI
}
