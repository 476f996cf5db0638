package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-signin/internal/config"
	"github.com/goliatone/go-signin/internal/logging"
	"github.com/goliatone/go-signin/pkg/apiclient"
	"github.com/goliatone/go-signin/pkg/model"
	"github.com/goliatone/go-signin/pkg/signin"
	"github.com/goliatone/go-signin/pkg/tui"
)

func main() {
	configPath := flag.String("config", "signin.yaml", "configuration file (environment only when missing)")
	apiURL := flag.String("api", "", "verification-code API base URL (overrides api.base_url)")
	fill := flag.String("fill", "", "prompt for the fields of this form spec and print the values as JSON")
	render := flag.Bool("render", false, "print the sign-in page HTML instead of prompting")
	output := flag.String("output", "", "output file (stdout if empty)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *configPath, *apiURL, *fill, *render, *output); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "signin-cli: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, apiURL, fill string, render bool, output string) error {
	out, closeOut, err := openOutput(output)
	if err != nil {
		return err
	}
	defer closeOut()

	if fill != "" {
		spec, err := model.LoadFormSpec(fill)
		if err != nil {
			return err
		}
		values, err := tui.Fill(ctx, tui.NewSurveyDriver(os.Stderr), spec)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	}

	cfg, err := config.LoadWithFallback(configPath)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(cfg.Logging, os.Stderr)

	view, err := newView(cfg, apiURL, logger)
	if err != nil {
		return err
	}
	defer view.Close()

	if render {
		page, err := view.Render(ctx)
		if err != nil {
			return err
		}
		_, err = out.Write(page)
		return err
	}

	runner, err := tui.New(view, tui.WithPromptDriver(tui.NewSurveyDriver(os.Stderr)), tui.WithLogger(logger))
	if err != nil {
		return err
	}
	form, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "signed in as %s\n", form.Email)
	return err
}

func newView(cfg *config.Config, apiURL string, logger zerolog.Logger) (*signin.View, error) {
	baseURL := strings.TrimSpace(apiURL)
	if baseURL == "" {
		baseURL = cfg.API.BaseURL
	}
	if baseURL == "" {
		return nil, errors.New("no verification-code API configured: pass -api or set api.base_url")
	}

	client := apiclient.New(apiclient.Config{
		BaseURL: baseURL,
		Timeout: cfg.API.Timeout,
		Headers: cfg.API.Headers,
		Logger:  logger,
	})
	opts := []signin.ViewOption{
		signin.WithCountdownSeconds(cfg.SignIn.CountdownSeconds),
		signin.WithBrand(cfg.SignIn.Brand),
		signin.WithViewLogger(logger),
	}
	spec, ok, err := cfg.LoadFormSpec()
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, signin.WithFormSpec(spec))
	}
	return signin.NewView(signin.NewFlow(client, signin.WithFlowLogger(logger)), opts...)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
