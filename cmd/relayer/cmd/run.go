package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/relayer"
	"go-outreach-automation/internal/reporter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var once bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the server and process work until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		b := newBrowser(cfg.ProfileDir, cfg.CookiesPath, log)
		defer b.Close()

		desktop := relayer.NewDesktop(log)
		agent := relayer.NewAgent(
			relayer.NewClient(cfg.ServerURL, cfg.EmployeeID, cfg.APIKey),
			desktop,
			desktop,
			relayer.NewBrowserAuthenticator(b, cfg.CookiesPath, log),
			relayer.Options{
				PollInterval: cfg.PollInterval,
				MaxAttempts:  cfg.MaxAttempts,
				FailureAlert: cfg.FailureAlert,
			},
			log,
		)
		if cfg.TelegramToken != "" {
			rep, err := reporter.NewTelegramReporter(cfg.TelegramToken, cfg.TelegramChatID)
			if err != nil {
				log.Warnf("⚠️ Telegram alerts disabled: %v", err)
			} else {
				agent.SetAlerter(rep)
			}
		}

		log.Infof("🚀 Relayer for %s talking to %s", cfg.EmployeeID, cfg.ServerURL)
		if once {
			agent.Tick(ctx)
			return nil
		}
		return agent.Run(ctx)
	},
}

// newBrowser returns a headed manager for interactive logins. Nothing launches until a
// login request arrives.
func newBrowser(profileDir, cookiesPath string, log *zap.SugaredLogger) *browser.Manager {
	return browser.NewManager(browser.Config{
		Headless:    false,
		ProfileDir:  profileDir,
		CookiesPath: cookiesPath,
	}, browser.NewPlaywright(), log)
}

func init() {
	runCmd.Flags().BoolVar(&once, "once", false, "run a single poll cycle and exit")
	rootCmd.AddCommand(runCmd)
}

