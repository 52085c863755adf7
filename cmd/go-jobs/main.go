package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rsilvagit/go-jobs/internal/api"
	"github.com/rsilvagit/go-jobs/internal/cache"
	"github.com/rsilvagit/go-jobs/internal/config"
	"github.com/rsilvagit/go-jobs/internal/httpclient"
	"github.com/rsilvagit/go-jobs/internal/importer"
	"github.com/rsilvagit/go-jobs/internal/listing"
	"github.com/rsilvagit/go-jobs/internal/output"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "go-jobs: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("go-jobs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", ".env", "Path to a .env file (ignored when missing)")
	configFile := fs.String("config", "", "Path to a YAML config file")
	apiURL := fs.String("api", "", "Jobs API base URL (overrides JOBS_API_URL)")
	timeout := fs.Duration("timeout", 0, "Per-request timeout (overrides REQUEST_TIMEOUT)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	noCache := fs.Bool("no-cache", false, "Disable the Redis list cache")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: go-jobs [flags] [command [args]]")
		fmt.Fprintln(stderr, "Without a command, go-jobs starts an interactive session.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile, *configFile)
	if err != nil {
		return err
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if *timeout > 0 {
		cfg.RequestTimeout = *timeout
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *noCache {
		cfg.RedisURL = ""
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh, cleanup, err := build(cfg, logger, stdin, stdout)
	if err != nil {
		return err
	}
	defer cleanup()

	if fs.NArg() > 0 {
		return sh.Exec(ctx, strings.Join(fs.Args(), " "))
	}
	return sh.Run(ctx)
}

// build wires the API client, optional cache, store, share writers and
// importer into a shell.
func build(cfg config.Config, logger *slog.Logger, stdin io.Reader, stdout io.Writer) (*shell, func(), error) {
	apiHTTP, err := httpclient.New(httpclient.Options{
		Profile:    httpclient.ProfileJSON,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: 3,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}

	var svc api.JobService = api.NewClient(cfg.APIURL, apiHTTP, logger)
	cleanup := func() {}
	if cfg.RedisURL != "" {
		c, err := cache.New(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logger.Warn("redis unavailable, running without list cache", "err", err)
		} else {
			svc = cache.NewCachedService(svc, c, logger)
			cleanup = func() { _ = c.Close() }
		}
	}

	store := listing.NewStore(svc, logger)
	store.Subscribe(func(_ context.Context, ev listing.Event) {
		logger.Debug("store event",
			"type", ev.Type, "generation", ev.Generation, "count", ev.Count,
			"mutation", ev.Mutation, "job_id", ev.JobID, "err", ev.Err)
	})

	// Chat webhooks get the JSON profile without pacing.
	shareHTTP, err := httpclient.New(httpclient.Options{Timeout: 30 * time.Second, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	var writers []output.ResultWriter
	if cfg.TelegramEnabled() {
		writers = append(writers, output.NewTelegramWriter(cfg.TelegramToken, cfg.TelegramChatID, shareHTTP, logger))
	}
	if cfg.DiscordWebhookURL != "" {
		writers = append(writers, output.NewDiscordWriter(cfg.DiscordWebhookURL, shareHTTP, logger))
	}

	browserOpts := httpclient.BrowserOptions()
	browserOpts.Logger = logger
	boardHTTP, err := httpclient.New(browserOpts)
	if err != nil {
		return nil, nil, err
	}

	sh := &shell{
		store:     store,
		svc:       svc,
		printer:   output.NewConsolePrinter(stdout),
		writers:   writers,
		importer:  importer.New(svc, cfg.ImportConcurrency, logger),
		scrapers:  importer.Registry(boardHTTP),
		importURL: cfg.ImportURL,
		in:        bufio.NewScanner(stdin),
		out:       stdout,
		log:       logger,
	}
	return sh, cleanup, nil
}
