package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-outreach-automation/internal/app"
	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/logging"
	"go-outreach-automation/internal/server"
)

// notify posts a status line, or err when set, to the operator chat if the bot is on.
func notify(a *app.App, status string, err error) {
	if a.Bot == nil {
		return
	}
	send := func() error { return a.Bot.SendStatus(status) }
	if err != nil {
		send = func() error { return a.Bot.SendError(err) }
	}
	if serr := send(); serr != nil {
		a.Log.Warnf("Telegram notice not sent: %v", serr)
	}
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, !cfg.Production())
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("❌ Failed to start: %v", err)
	}
	defer a.Close()

	// Keep the lease gauge fresh for /metrics.
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				a.Metrics.ActiveLeases(a.Browser.Stats().ActiveLeases)
			}
		}
	}()

	srv := server.New(server.Config{
		Env:           cfg.Server.Env,
		RelayerAPIKey: cfg.Server.RelayerAPIKey,
		DiscoveryRPM:  cfg.Server.DiscoveryRPM,
		CookiesPath:   cfg.Browser.CookiesPath,
	}, server.Deps{
		Store:       a.Store,
		Drafts:      a.Drafts,
		Discovery:   a.Engine,
		Transcriber: a.AI,
		Cookies:     a.Browser,
		Metrics:     a.Metrics,
		Log:         logger,
	})

	logger.Infof("🚀 Starting outreach server (%s, cloud=%v)", cfg.Server.Env, cfg.Browser.Cloud)
	notify(a, fmt.Sprintf("Outreach server started on :%s (%s)", cfg.Server.Port, cfg.Server.Env), nil)
	if err := srv.Run(ctx, ":"+cfg.Server.Port); err != nil {
		logger.Errorf("❌ Server stopped: %v", err)
		notify(a, "", fmt.Errorf("outreach server stopped: %w", err))
		return
	}
	notify(a, "Outreach server stopped", nil)
	logger.Info("👋 Server exited properly")
}
