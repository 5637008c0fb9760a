// Load envs from .env
// Load YAML config
// Override with env vars
// Provide default values
// Validate config

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Browser   BrowserConfig   `yaml:"browser"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	AI        AIConfig        `yaml:"ai"`
	Apollo    ApolloConfig    `yaml:"apollo"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	Env           string `yaml:"env"`
	RelayerAPIKey string `yaml:"relayer_api_key"`
	// DiscoveryRPM caps discovery trigger requests per minute across all callers.
	DiscoveryRPM int `yaml:"discovery_rpm"`
}

type DatabaseConfig struct {
	// URL empty means the in-memory store.
	URL string `yaml:"url"`
}

type BrowserConfig struct {
	Cloud          bool   `yaml:"cloud"`
	Headless       bool   `yaml:"headless"`
	ExecutablePath string `yaml:"executable_path"`
	ProfileDir     string `yaml:"profile_dir"`
	CookiesPath    string `yaml:"cookies_path"`
	ScreenshotDir  string `yaml:"screenshot_dir"`
	RecycleAfter   int    `yaml:"recycle_after"`
}

type DiscoveryConfig struct {
	Cooldown      time.Duration `yaml:"cooldown"`
	MaxResults    int           `yaml:"max_results"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	BatchDelay    time.Duration `yaml:"batch_delay"`
	CompanyDelay  time.Duration `yaml:"company_delay"`
	// EmployeeID owns drafts created by discovery.
	EmployeeID string `yaml:"employee_id"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type AIConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"`
}

type ApolloConfig struct {
	APIKey string `yaml:"api_key"`
}

// Production reports whether the server runs in a deployed environment.
func (c *Config) Production() bool { return c.Server.Env == "production" }

var cloudMarkers = []string{"RAILWAY_ENVIRONMENT", "RENDER", "REPLIT_DEPLOYMENT", "FLY_APP_NAME"}

// Load reads .env, then the YAML file at path (missing is fine), then env overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Env, "APP_ENV")
	setString(&c.Server.RelayerAPIKey, "RELAYER_API_KEY")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Browser.ExecutablePath, "BROWSER_EXECUTABLE_PATH")
	setString(&c.Browser.ProfileDir, "BROWSER_PROFILE_DIR")
	setString(&c.Browser.CookiesPath, "X_COOKIES_PATH")
	setString(&c.Discovery.EmployeeID, "DISCOVERY_EMPLOYEE_ID")
	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.AI.APIKey, "GROQ_API_KEY")
	setString(&c.AI.BaseURL, "AI_BASE_URL")
	setString(&c.AI.Model, "AI_MODEL")
	setString(&c.Apollo.APIKey, "APOLLO_API_KEY")

	for _, err := range []error{
		setInt64(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID"),
		setBool(&c.Browser.Cloud, "BROWSER_CLOUD"),
		setBool(&c.Browser.Headless, "BROWSER_HEADLESS"),
		setInt(&c.Browser.RecycleAfter, "BROWSER_RECYCLE_AFTER"),
		setInt(&c.Discovery.MaxResults, "DISCOVERY_MAX_RESULTS"),
		setInt(&c.Discovery.MaxConcurrent, "DISCOVERY_MAX_CONCURRENT"),
		setDuration(&c.Discovery.Cooldown, "DISCOVERY_COOLDOWN"),
	} {
		if err != nil {
			return err
		}
	}

	if c.Server.Env == "production" {
		c.Browser.Cloud = true
	}
	for _, key := range cloudMarkers {
		if os.Getenv(key) != "" {
			c.Browser.Cloud = true
		}
	}
	if c.Browser.Cloud {
		c.Browser.Headless = true
	}
	return nil
}

//Set default values if not set
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Server.DiscoveryRPM == 0 {
		c.Server.DiscoveryRPM = 6
	}
	if c.Browser.ProfileDir == "" {
		c.Browser.ProfileDir = "../.browser-profile"
	}
	if c.Browser.CookiesPath == "" {
		c.Browser.CookiesPath = "../.cookies/x.json"
	}
	if c.Browser.ScreenshotDir == "" {
		c.Browser.ScreenshotDir = "../.tmp/screenshots"
	}
	if c.Browser.RecycleAfter == 0 {
		c.Browser.RecycleAfter = 50
	}
	if c.Discovery.Cooldown == 0 {
		c.Discovery.Cooldown = 5 * time.Second
	}
	if c.Discovery.MaxResults == 0 {
		c.Discovery.MaxResults = 5
	}
	if c.Discovery.MaxConcurrent == 0 {
		c.Discovery.MaxConcurrent = 5
	}
	if c.Discovery.BatchDelay == 0 {
		c.Discovery.BatchDelay = 2 * time.Second
	}
	if c.Discovery.CompanyDelay == 0 {
		c.Discovery.CompanyDelay = 5 * time.Second
	}
	if c.Discovery.EmployeeID == "" {
		c.Discovery.EmployeeID = "default"
	}
}

//Validate required fields
func (c *Config) Validate() error {
	if c.Production() && c.Server.RelayerAPIKey == "" {
		return errors.New("RELAYER_API_KEY is required in production")
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if c.Discovery.MaxConcurrent < 1 {
		return fmt.Errorf("discovery.max_concurrent must be positive, got %d", c.Discovery.MaxConcurrent)
	}
	return nil
}

// RelayerConfig configures the desktop relayer process.
type RelayerConfig struct {
	ServerURL    string
	EmployeeID   string
	APIKey       string
	PollInterval time.Duration
	MaxAttempts  int
	FailureAlert int
	Dev          bool
	CookiesPath  string
	ProfileDir   string
	// Optional Telegram chat for the consecutive failure alert.
	TelegramToken  string
	TelegramChatID int64
}

// LoadRelayer reads the relayer config from the environment.
func LoadRelayer() (*RelayerConfig, error) {
	_ = godotenv.Load()

	cfg := &RelayerConfig{
		ServerURL:    "http://localhost:8080",
		PollInterval: 10 * time.Second,
		MaxAttempts:  2,
		FailureAlert: 5,
		CookiesPath:  "../.cookies/x.json",
		ProfileDir:   "../.relayer-profile",
	}
	setString(&cfg.ServerURL, "RELAYER_SERVER_URL")
	setString(&cfg.ProfileDir, "RELAYER_PROFILE_DIR")
	setString(&cfg.TelegramToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.EmployeeID, "RELAYER_EMPLOYEE_ID")
	setString(&cfg.APIKey, "RELAYER_API_KEY")
	setString(&cfg.CookiesPath, "X_COOKIES_PATH")
	for _, err := range []error{
		setDuration(&cfg.PollInterval, "RELAYER_POLL_INTERVAL"),
		setInt(&cfg.MaxAttempts, "RELAYER_MAX_ATTEMPTS"),
		setInt(&cfg.FailureAlert, "RELAYER_FAILURE_ALERT"),
		setBool(&cfg.Dev, "RELAYER_DEV"),
		setInt64(&cfg.TelegramChatID, "TELEGRAM_CHAT_ID"),
	} {
		if err != nil {
			return nil, err
		}
	}

	if cfg.EmployeeID == "" {
		return nil, errors.New("RELAYER_EMPLOYEE_ID is required")
	}
	if cfg.APIKey == "" && !cfg.Dev {
		return nil, errors.New("RELAYER_API_KEY is required unless RELAYER_DEV=true")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("RELAYER_POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("RELAYER_MAX_ATTEMPTS must be at least 1, got %d", cfg.MaxAttempts)
	}
	return cfg, nil
}
