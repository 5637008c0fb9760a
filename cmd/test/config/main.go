package main

import (
	"flag"
	"fmt"
	"log"

	"go-outreach-automation/internal/config"
)

func redact(s string) string {
	if len(s) <= 6 {
		if s == "" {
			return "(unset)"
		}
		return "***"
	}
	return s[:6] + "..."
}

func main() {
	path := flag.String("config", config.DefaultPath, "config file")
	flag.Parse()

	fmt.Println("🔧 Testing config loading...")
	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatalf("❌ Config invalid: %v", err)
	}
	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Env: %s (cloud browser: %v, headless: %v)\n", cfg.Server.Env, cfg.Browser.Cloud, cfg.Browser.Headless)
	fmt.Printf("   Database: %s\n", redact(cfg.Database.URL))
	fmt.Printf("   Relayer API key: %s\n", redact(cfg.Server.RelayerAPIKey))
	fmt.Printf("   Telegram: token %s, chat %d\n", redact(cfg.Telegram.Token), cfg.Telegram.ChatID)
	fmt.Printf("   AI: key %s, model %s\n", redact(cfg.AI.APIKey), cfg.AI.Model)
	fmt.Printf("   Apollo: %s\n", redact(cfg.Apollo.APIKey))
	fmt.Printf("   Discovery: cooldown %s, max %d results, %d concurrent validations\n",
		cfg.Discovery.Cooldown, cfg.Discovery.MaxResults, cfg.Discovery.MaxConcurrent)
	fmt.Printf("   Cookies Path: %s\n", cfg.Browser.CookiesPath)
}
