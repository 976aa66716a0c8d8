package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"personalens/internal/camofox"
	"personalens/internal/cmdlog"
	"personalens/internal/config"
	"personalens/internal/jobs"
	"personalens/internal/store"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		count   int
		mode    string
		refresh bool
		maxAge  time.Duration
		watch   time.Duration
		top     int
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "fetch [username]",
		Short: "Render a profile through Camofox and Nitter, then parse and cache it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("fetch", func() error {
				cfg := a.cfg
				if mode != "" {
					cfg.Fetch.Mode = mode
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				username := cfg.Account.Username
				if len(args) == 1 {
					username = normalizeUsername(args[0])
				}
				if username == "" {
					return errors.New("fetch: pass a username or set account.username in the config")
				}

				ctx := cmd.Context()
				instance, err := camofox.ResolveInstance(ctx, cfg.Fetch.NitterInstance, cfg.Fetch.InstancesURL)
				if err != nil {
					return err
				}
				client := camofox.NewClient(cfg.Fetch.CamofoxURL, cfg.Fetch.SessionID, cfg.Fetch.Timeout)
				client.SetRateLimit(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst)
				fetcher := camofox.NewFetcher(client, instance, cfg.Fetch.Mode)

				var db *store.DB
				if !noCache && cfg.Storage.DBPath != "" {
					db, err = store.Open(cfg.Storage.DBPath)
					if err != nil {
						return fmt.Errorf("open cache %s: %w", cfg.Storage.DBPath, err)
					}
					defer db.Close()
				}

				if watch > 0 {
					err := jobs.RunWatchLoop(ctx, db, fetcher, cfg, username, watch, func(p jobs.Profile) {
						_ = printProfile(cmd, a, p, top)
					})
					if errors.Is(err, ctx.Err()) {
						return nil
					}
					return err
				}

				p, err := jobs.FetchProfile(ctx, db, fetcher, cfg, username, jobs.Options{Refresh: refresh, MaxAge: maxAge, Count: count})
				if err != nil {
					return err
				}
				return printProfile(cmd, a, p, top)
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "posts to fetch (defaults to fetch.postCount)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "pagination mode: cursor or click (defaults to fetch.mode)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cache")
	cmd.Flags().DurationVar(&maxAge, "max-age", 6*time.Hour, "oldest cached profile to accept")
	cmd.Flags().DurationVar(&watch, "watch", 0, "refetch on this interval until interrupted")
	cmd.Flags().IntVar(&top, "top", 5, "how many top posts to list")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "neither read nor write the cache")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <username>",
		Short: "List recent fetches of an account from the cache.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("history", func() error {
				runs, last, err := loadHistory(cmd, a.cfg, normalizeUsername(args[0]), limit)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return writeJSON(cmd.OutOrStdout(), runs)
				}
				if !last.IsZero() {
					fmt.Fprintf(cmd.OutOrStdout(), "last fetched %s (%s)\n", humanize.Time(last), last.UTC().Format(time.RFC3339))
				}
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Fetched", "Strategy", "Posts", "Anomalies"})
				for _, r := range runs {
					t.AppendRow(table.Row{humanize.Time(r.TS), r.Strategy, r.Posts, r.Anomalies})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "how many runs to show")
	return cmd
}

func loadHistory(cmd *cobra.Command, cfg config.Config, username string, limit int) ([]store.FetchRun, time.Time, error) {
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("open cache %s: %w", cfg.Storage.DBPath, err)
	}
	defer db.Close()
	runs, err := db.LoadFetchRuns(cmd.Context(), username, limit)
	if err != nil {
		return nil, time.Time{}, err
	}
	last, err := jobs.LastFetch(cmd.Context(), db, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, time.Time{}, err
	}
	return runs, last, nil
}
