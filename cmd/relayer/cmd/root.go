package cmd

import (
	"os"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serverURL string
	employee  string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "relayer",
	Short: "Relayer delivers approved outreach drafts from this desktop",
	Long: `relayer polls the outreach server for work assigned to one employee and carries it
out on this machine:

  - approved drafts are pasted into the Telegram desktop app, one paragraph per message
  - capture requests screenshot a Telegram chat for the server to transcribe
  - X login requests open a browser window and upload the session cookies

Configuration comes from the environment (or a .env file):
  RELAYER_SERVER_URL      server base URL (default: http://localhost:8080)
  RELAYER_EMPLOYEE_ID     employee this relayer works for (required)
  RELAYER_API_KEY         shared relayer key (required unless RELAYER_DEV=true)
  RELAYER_POLL_INTERVAL   poll interval (default: 10s)
  RELAYER_MAX_ATTEMPTS    delivery attempts per draft (default: 2)
  TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID   optional alert channel`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides RELAYER_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&employee, "employee", "", "employee id (overrides RELAYER_EMPLOYEE_ID)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (*config.RelayerConfig, *zap.SugaredLogger, error) {
	if employee != "" {
		// LoadRelayer validates the employee id, so the flag has to land first.
		cobra.CheckErr(os.Setenv("RELAYER_EMPLOYEE_ID", employee))
	}
	cfg, err := config.LoadRelayer()
	if err != nil {
		return nil, nil, err
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	return cfg, logging.New(logLevel, cfg.Dev), nil
}
