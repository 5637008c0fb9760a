package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/logging"
	"go-outreach-automation/internal/validator"
)

// Checks that the browser launches with the configured profile and that the Telegram
// and X validators classify real profile pages.
func main() {
	path := flag.String("config", config.DefaultPath, "config file")
	platform := flag.String("platform", "telegram", "telegram or x")
	flag.Parse()
	usernames := flag.Args()
	if len(usernames) == 0 {
		usernames = []string{"durov"}
	}

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New("debug", true)

	fmt.Println("🌐 Testing Browser Manager...")
	m := browser.NewManager(browser.Config{
		Cloud:          cfg.Browser.Cloud,
		Headless:       cfg.Browser.Headless,
		ExecutablePath: cfg.Browser.ExecutablePath,
		ProfileDir:     cfg.Browser.ProfileDir,
		CookiesPath:    cfg.Browser.CookiesPath,
	}, browser.NewPlaywright(), logger)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	if _, err := m.Handle(ctx); err != nil {
		log.Fatalf("Failed to launch browser: %v", err)
	}
	st := m.Stats()
	fmt.Printf("✅ Browser launched (UA %s)\n", st.UserAgent)

	v := validator.NewTelegram(m, logger)
	if *platform == "x" {
		v = validator.NewX(m, logger)
	}
	for i, res := range v.ValidateBatch(ctx, usernames, 3) {
		fmt.Printf("🔍 %s @%s: %s\n", v.Platform(), usernames[i], res.Outcome())
		if res.Error != "" {
			fmt.Printf("   error: %s\n", res.Error)
		}
	}
}
