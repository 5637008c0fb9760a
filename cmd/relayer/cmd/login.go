package cmd

import (
	"os"
	"os/signal"

	"go-outreach-automation/internal/models"
	"go-outreach-automation/internal/relayer"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to X in a browser window and save the session cookies locally",
	Long: `login opens the X login page in a visible browser, waits until the session cookie
appears and writes the cookies to X_COOKIES_PATH. Use it to refresh this machine's
session without going through the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		b := newBrowser(cfg.ProfileDir, cfg.CookiesPath, log)
		defer b.Close()

		cookies, err := relayer.NewBrowserAuthenticator(b, cfg.CookiesPath, log).
			Authenticate(ctx, models.AuthRequest{Platform: "x"})
		if err != nil {
			return err
		}
		cmd.Printf("Saved %d cookies to %s\n", len(cookies), cfg.CookiesPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
