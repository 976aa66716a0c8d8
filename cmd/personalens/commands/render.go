package commands

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"personalens/internal/analytics"
	"personalens/internal/model"
	"personalens/internal/snapshot"
	"personalens/internal/snowflake"
)

const textWidth = 60

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func postAge(p model.Post) string {
	if p.TimestampMS <= 0 {
		if p.TimeAgo != nil {
			return *p.TimeAgo
		}
		return "?"
	}
	return humanize.Time(p.Time())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func renderPosts(w io.Writer, posts []model.Post) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Posted", "Replies", "Retweets", "Likes", "Views", "Author", "Media", "Text"})
	for _, p := range posts {
		t.AppendRow(table.Row{
			p.ID, postAge(p),
			humanize.Comma(int64(p.Replies)), humanize.Comma(int64(p.Retweets)),
			humanize.Comma(int64(p.Likes)), humanize.Comma(int64(p.Views)),
			deref(p.Author), len(p.Media), truncate(p.Text, textWidth),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "", fmt.Sprintf("%d posts", len(posts))})
	t.Render()
}

func renderAccount(w io.Writer, acct model.Account) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Username", acct.Username},
		{"Display name", acct.DisplayName},
		{"Bio", truncate(acct.Bio, textWidth)},
		{"Joined", acct.Joined},
		{"Followers", humanize.Comma(int64(acct.Followers))},
		{"Following", humanize.Comma(int64(acct.Following))},
		{"Posts", humanize.Comma(int64(acct.TweetsCount))},
	})
	t.Render()
}

func renderCadence(w io.Writer, report model.CadenceReport) {
	days := newTable(w)
	days.AppendHeader(table.Row{"Weekday (UTC)", "Posts"})
	for _, d := range analytics.SortedDays(report) {
		days.AppendRow(table.Row{d, report.PeakDays[d]})
	}
	days.AppendFooter(table.Row{"Peak", analytics.PeakDay(report)})
	days.Render()

	bands := newTable(w)
	bands.AppendHeader(table.Row{"Hours (UTC)", "Posts"})
	for _, b := range analytics.SortedBands(report) {
		bands.AppendRow(table.Row{b, report.PeakHours[b]})
	}
	bands.AppendFooter(table.Row{"Peak", analytics.PeakBand(report)})
	bands.Render()
}

func renderAnomalies(w io.Writer, anomalies []snapshot.Anomaly) {
	if len(anomalies) == 0 {
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Post", "Line", "Tokens", "Stats"})
	for _, a := range anomalies {
		t.AppendRow(table.Row{a.PostID, a.Line + 1, len(a.Tokens), a.Stats})
	}
	t.Render()
}

// decoded is one row of `decode` output.
type decoded struct {
	ID          string `json:"id"`
	TimestampMS int64  `json:"timestamp_ms"`
	UTC         string `json:"utc,omitempty"`
	Weekday     string `json:"weekday,omitempty"`
	Band        string `json:"band,omitempty"`
}

func decodeIDs(ids []string) []decoded {
	out := make([]decoded, 0, len(ids))
	for _, id := range ids {
		d := decoded{ID: id, TimestampMS: snowflake.DecodeTimestamp(id)}
		if d.TimestampMS > 0 {
			t := time.UnixMilli(d.TimestampMS).UTC()
			d.UTC = t.Format(time.RFC3339Nano)
			d.Weekday = t.Weekday().String()
			d.Band = analytics.BandLabel(t.Hour())
		}
		out = append(out, d)
	}
	return out
}

func renderDecoded(w io.Writer, rows []decoded) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Timestamp (ms)", "UTC", "Weekday", "Band"})
	for _, d := range rows {
		utc := d.UTC
		if d.TimestampMS == 0 {
			utc = "unknown"
		}
		t.AppendRow(table.Row{d.ID, d.TimestampMS, utc, d.Weekday, d.Band})
	}
	t.Render()
}

func summaryLine(strategy string, posts, anomalies int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d posts via %s strategy", posts, strategy)
	if anomalies > 0 {
		fmt.Fprintf(&b, ", %d stats anomalies", anomalies)
	}
	return b.String()
}
