package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/kalshibot/config"
	"github.com/alejandrodnm/kalshibot/internal/adapters/coinbase"
	"github.com/alejandrodnm/kalshibot/internal/adapters/kalshi"
	"github.com/alejandrodnm/kalshibot/internal/adapters/notify"
	"github.com/alejandrodnm/kalshibot/internal/adapters/scorer"
	"github.com/alejandrodnm/kalshibot/internal/adapters/storage"
	"github.com/alejandrodnm/kalshibot/internal/metrics"
	"github.com/alejandrodnm/kalshibot/internal/trader"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty = defaults + env)")
	once := flag.Bool("once", false, "run one tick and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("kalshibot starting",
		"config", *configPath,
		"env", cfg.Kalshi.Environment,
		"interval", cfg.TickInterval(),
		"once", *once,
	)

	auth, err := kalshi.NewAuth(cfg.Kalshi.AccessKeyID, cfg.Kalshi.PrivateKeyPath)
	if err != nil {
		slog.Error("failed to load exchange credentials", "err", err)
		os.Exit(1)
	}
	client := kalshi.NewClient(kalshi.BaseURL(cfg.Kalshi.Environment), auth)

	ledger, err := storage.NewSQLiteLedger(cfg.Storage.LedgerPath)
	if err != nil {
		slog.Error("failed to open ledger", "err", err, "path", cfg.Storage.LedgerPath)
		os.Exit(1)
	}
	defer ledger.Close()

	days, err := storage.NewFileStateStore(cfg.Storage.DayStatePath)
	if err != nil {
		slog.Error("failed to open day state store", "err", err, "path", cfg.Storage.DayStatePath)
		os.Exit(1)
	}

	feed := coinbase.NewFeed(cfg.Feed.SpotURL)
	notifier := notify.NewTelegram("", cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	markets := scorer.New(client, scorer.Config{
		TickerPrefixes: cfg.Trader.AllowPrefixes,
		MaxCandidates:  cfg.Trader.CandidatesToCheck,
	})

	engine, err := trader.New(client, markets, feed, ledger, days, notifier, trader.FromConfig(cfg), time.Now())
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr)
	}

	if *once {
		if _, err := engine.Tick(ctx, time.Now()); err != nil {
			slog.Error("tick failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := engine.Run(ctx); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			// parada limpia por señal
		case errors.Is(err, trader.ErrBudgetExhausted):
			slog.Info("budget exhausted, stopping")
		default:
			slog.Error("trader exited with error", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("kalshibot stopped cleanly")
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics endpoint stopped", "err", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
