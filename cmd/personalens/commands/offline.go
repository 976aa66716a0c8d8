package commands

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"personalens/internal/analytics"
	"personalens/internal/cmdlog"
	"personalens/internal/jobs"
	"personalens/internal/schedule"
	"personalens/internal/snapshot"
)

func newParseCmd(a *app) *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Extract posts from a saved snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("parse", func() error {
				raw, err := readSnapshot(cmd, args[0])
				if err != nil {
					return err
				}
				layout, err := a.cfg.StatsLayout()
				if err != nil {
					return err
				}
				res := snapshot.NewParser(layout).Parse(raw)
				posts := res.Posts
				if author != "" {
					posts = snapshot.FilterByAuthor(posts, author)
				}
				if a.jsonOut {
					return writeJSON(cmd.OutOrStdout(), posts)
				}
				renderPosts(cmd.OutOrStdout(), posts)
				renderAnomalies(cmd.OutOrStdout(), res.Anomalies)
				fmt.Fprintln(cmd.ErrOrStderr(), summaryLine(res.Strategy, len(posts), len(res.Anomalies)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "keep only posts by this account (reposts of others are dropped)")
	return cmd
}

func newAccountCmd(a *app) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "account <file|->",
		Short: "Extract the profile header from a saved snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("account", func() error {
				raw, err := readSnapshot(cmd, args[0])
				if err != nil {
					return err
				}
				acct := snapshot.ParseAccountFor(raw, normalizeUsername(username))
				if a.jsonOut {
					return writeJSON(cmd.OutOrStdout(), acct)
				}
				renderAccount(cmd.OutOrStdout(), acct)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account the snapshot belongs to, if known")
	return cmd
}

func newCadenceCmd(a *app) *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "cadence <file|->",
		Short: "Histogram of posting weekdays and 4-hour UTC bands from a saved snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("cadence", func() error {
				raw, err := readSnapshot(cmd, args[0])
				if err != nil {
					return err
				}
				layout, err := a.cfg.StatsLayout()
				if err != nil {
					return err
				}
				posts := snapshot.NewParser(layout).Parse(raw).Posts
				if author != "" {
					posts = snapshot.FilterByAuthor(posts, author)
				}
				report := analytics.Aggregate(posts)
				if a.jsonOut {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				renderCadence(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "count only posts by this account")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var username string
	var top int
	cmd := &cobra.Command{
		Use:   "analyze <file|->",
		Short: "Profile header, posts, cadence and top posts from a saved snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("analyze", func() error {
				raw, err := readSnapshot(cmd, args[0])
				if err != nil {
					return err
				}
				layout, err := a.cfg.StatsLayout()
				if err != nil {
					return err
				}
				p := jobs.BuildProfile(raw, normalizeUsername(username), layout)
				return printProfile(cmd, a, p, top)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account the snapshot belongs to; reposts of others are dropped")
	cmd.Flags().IntVar(&top, "top", 5, "how many top posts to list")
	return cmd
}

// profileReport is the JSON shape of analyze and fetch.
type profileReport struct {
	jobs.Profile
	PeakDay  string                 `json:"peak_day"`
	PeakBand string                 `json:"peak_hours_utc"`
	TopPosts []analytics.RankedPost `json:"top_posts"`
	NextPeak *time.Time             `json:"next_peak_utc,omitempty"`
}

func printProfile(cmd *cobra.Command, a *app, p jobs.Profile, top int) error {
	report := profileReport{
		Profile:  p,
		PeakDay:  analytics.PeakDay(p.Cadence),
		PeakBand: analytics.PeakBand(p.Cadence),
		TopPosts: analytics.TopPosts(p.Posts, top),
	}
	if next, ok := schedule.NextPeak(time.Now(), p.Cadence); ok {
		report.NextPeak = &next
	}
	if a.jsonOut {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	w := cmd.OutOrStdout()
	renderAccount(w, p.Account)
	renderPosts(w, p.Posts)
	renderCadence(w, p.Cadence)
	if len(report.TopPosts) > 0 {
		ranked := newTable(w)
		ranked.AppendHeader(table.Row{"#", "ID", "Score", "Text"})
		for i, r := range report.TopPosts {
			ranked.AppendRow(table.Row{i + 1, r.Post.ID, r.Score, truncate(r.Post.Text, textWidth)})
		}
		ranked.Render()
	}
	renderAnomalies(w, p.Anomalies)
	if report.NextPeak != nil {
		fmt.Fprintf(w, "Next peak window: %s (%s)\n", report.NextPeak.Format("Mon 2006-01-02 15:04 MST"), humanize.Time(*report.NextPeak))
	}
	fmt.Fprintln(cmd.ErrOrStderr(), summaryLine(p.Strategy, len(p.Posts), len(p.Anomalies)))
	return nil
}

func newDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <id>...",
		Short: "Decode post ids into UTC publish times.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("decode", func() error {
				rows := decodeIDs(args)
				if a.jsonOut {
					return writeJSON(cmd.OutOrStdout(), rows)
				}
				renderDecoded(cmd.OutOrStdout(), rows)
				return nil
			})
		},
	}
}
