package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go-outreach-automation/internal/app"
	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/logging"
	"go-outreach-automation/internal/models"
	"go-outreach-automation/internal/workflow"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	handles    []string
	targetIDs  []string
	approved   bool
	maxResults int
	asJSON     bool
)

var rootCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find Telegram-reachable employees of companies through X bio search",
	Long: `discover runs the discovery workflow for one or more companies: it searches X for
people whose bio mentions the company, confirms their Telegram accounts and stores
contacts and outbound drafts.

Examples:
  discover --handle acmehq --handle globex
  discover --target 6f1c... --max-results 10
  discover --approved`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			reqs, err := requests(ctx, a)
			if err != nil {
				return err
			}
			items, err := a.Engine.RunBatch(ctx, reqs)
			printItems(cmd.OutOrStdout(), items)
			return err
		})
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich [target_id]",
	Short: "Merge Apollo people data into a target's contacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Engine.Enrich(ctx, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Apollo found %d people: %d added, %d updated\n", res.Found, res.Added, res.Updated)
			return nil
		})
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file")
	rootCmd.Flags().StringSliceVar(&handles, "handle", nil, "company X handle (repeatable)")
	rootCmd.Flags().StringSliceVar(&targetIDs, "target", nil, "target id (repeatable)")
	rootCmd.Flags().BoolVar(&approved, "approved", false, "run every approved target")
	rootCmd.Flags().IntVar(&maxResults, "max-results", 0, "candidates per company (default from config)")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(enrichCmd)
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, !cfg.Production())
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func requests(ctx context.Context, a *app.App) ([]workflow.Request, error) {
	var reqs []workflow.Request
	for _, h := range handles {
		reqs = append(reqs, workflow.Request{Handle: h, MaxResults: maxResults})
	}
	for _, id := range targetIDs {
		reqs = append(reqs, workflow.Request{TargetID: id, MaxResults: maxResults})
	}
	if approved {
		targets, err := a.Store.ListTargetsByStatus(ctx, models.TargetApproved)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			reqs = append(reqs, workflow.Request{TargetID: t.ID, MaxResults: maxResults})
		}
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("nothing to do: pass --handle, --target or --approved")
	}
	return reqs, nil
}

func printItems(w io.Writer, items []workflow.BatchItem) {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(items)
		return
	}
	for _, it := range items {
		name := it.Request.Handle
		if it.Result != nil && it.Result.Company != "" {
			name = it.Result.Company
		}
		if it.Error != "" {
			fmt.Fprintf(w, "❌ %s: %s\n", name, it.Error)
			continue
		}
		r := it.Result
		if r == nil {
			continue
		}
		fmt.Fprintf(w, "✅ %s: %d candidates, %d valid, %d invalid, %d unknown, %d duplicates, %d drafts\n",
			name, r.Candidates, r.Valid, r.Invalid, len(r.Indeterminate), r.Duplicates, len(r.Drafts))
	}
}
