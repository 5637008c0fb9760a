// Package app wires the server-side components from a loaded config. Both the HTTP
// server and the discovery CLI start from here.
package app

import (
	"context"
	"fmt"

	"go-outreach-automation/internal/ai"
	"go-outreach-automation/internal/apollo"
	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/database"
	"go-outreach-automation/internal/drafts"
	"go-outreach-automation/internal/metrics"
	"go-outreach-automation/internal/reporter"
	"go-outreach-automation/internal/scraper/xsearch"
	"go-outreach-automation/internal/telegram"
	"go-outreach-automation/internal/validator"
	"go-outreach-automation/internal/workflow"

	"go.uber.org/zap"
)

type App struct {
	Config   *config.Config
	Log      *zap.SugaredLogger
	Store    database.Store
	Browser  *browser.Manager
	AI       ai.Client
	Metrics  *metrics.Metrics
	Reporter reporter.Reporter
	// Bot is nil when no Telegram token is configured.
	Bot    *telegram.Bot
	Engine *workflow.Engine
	Drafts   *drafts.Service
}

// New opens the store, prepares the browser manager (launched lazily) and builds the
// engine and draft service.
func New(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.Store = store

	a.Browser = browser.NewManager(browser.Config{
		Cloud:          cfg.Browser.Cloud,
		Headless:       cfg.Browser.Headless,
		ExecutablePath: cfg.Browser.ExecutablePath,
		ProfileDir:     cfg.Browser.ProfileDir,
		CookiesPath:    cfg.Browser.CookiesPath,
		RecycleAfter:   cfg.Browser.RecycleAfter,
	}, browser.NewPlaywright(), log)

	if cfg.AI.APIKey == "" {
		log.Warn("⚠️ GROQ_API_KEY is not set, draft generation will fail")
	}
	a.AI = ai.NewGrokClient(cfg.AI.APIKey,
		ai.WithBaseURL(cfg.AI.BaseURL),
		ai.WithModels(cfg.AI.Model, cfg.AI.VisionModel),
	)

	var previewer workflow.Previewer
	a.Reporter = reporter.LogReporter{Log: log}
	if cfg.Telegram.Token != "" {
		rep, err := reporter.NewTelegramReporter(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init telegram reporter: %w", err)
		}
		a.Reporter = rep
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
		a.Bot = bot
		previewer = bot
		log.Info("🤖 Telegram Bot initialized.")
	}

	var searcher apollo.Searcher
	if cfg.Apollo.APIKey != "" {
		searcher = apollo.NewClient(cfg.Apollo.APIKey)
	}

	tg := validator.NewTelegram(a.Browser, log)
	tg.BatchDelay = cfg.Discovery.BatchDelay
	shots := browser.NewScreenshotDebugger(cfg.Browser.ScreenshotDir, log)

	a.Engine = workflow.New(workflow.Deps{
		Store:      store,
		Discoverer: xsearch.New(a.Browser, shots, log),
		Validator:  tg,
		Generator:  a.AI,
		Recycler:   a.Browser,
		Apollo:     searcher,
		Reporter:   a.Reporter,
		Previewer:  previewer,
		Metrics:    a.Metrics,
		Log:        log,
	}, workflow.Options{
		Cooldown:      cfg.Discovery.Cooldown,
		MaxResults:    cfg.Discovery.MaxResults,
		MaxConcurrent: cfg.Discovery.MaxConcurrent,
		CompanyDelay:  cfg.Discovery.CompanyDelay,
		EmployeeID:    cfg.Discovery.EmployeeID,
	})
	a.Drafts = drafts.NewService(store, a.AI, a.Metrics, log)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (database.Store, error) {
	if cfg.Database.URL == "" {
		log.Warn("⚠️ DATABASE_URL is not set, using the in-memory store (data is lost on exit)")
		return database.NewMemoryStore(), nil
	}
	if err := database.Migrate(cfg.Database.URL); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	repo, err := database.ConnectDB(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	log.Info("🗄️ Connected to Postgres")
	return repo, nil
}

// Close stops the browser and the store.
func (a *App) Close() {
	if a.Browser != nil {
		if err := a.Browser.Close(); err != nil {
			a.Log.Warnf("browser close: %v", err)
		}
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
