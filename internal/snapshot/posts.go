package snapshot

import (
	"strings"

	"personalens/internal/logging"
	"personalens/internal/metrics"
	"personalens/internal/model"
	"personalens/internal/snowflake"
)

// Anomaly flags a stats line whose token count has no entry in the layout.
// The post is still emitted with zero counters.
type Anomaly struct {
	PostID string `json:"post_id"`
	Line   int    `json:"line"`
	Stats  string `json:"stats"`
	Tokens []int  `json:"tokens"`
}

// Outcome is what one strategy recovered from a classified snapshot.
type Outcome struct {
	Posts     []model.Post
	Anomalies []Anomaly
}

// Strategy folds classified lines into posts.
type Strategy interface {
	Name() string
	Fold(lines []Line) Outcome
}

// Primary closes a block at each genuine permalink and ignores TOC anchors.
type Primary struct{ Layout StatsLayout }

func (Primary) Name() string { return "primary" }

func (s Primary) Fold(lines []Line) Outcome {
	return fold(lines, s.Layout, func(ln Line) bool { return ln.Kind == KindPermalink })
}

// Fallback treats every line carrying a status id as a boundary, TOC anchors
// and date links included. It can produce duplicate or navigation-derived
// posts, but never silently returns nothing when the page shape drifted.
type Fallback struct{ Layout StatsLayout }

func (Fallback) Name() string { return "fallback" }

func (s Fallback) Fold(lines []Line) Outcome {
	return fold(lines, s.Layout, func(ln Line) bool { return ln.ID != "" })
}

// block accumulates everything seen since the previous boundary.
type block struct {
	text       []string
	stats      *Line
	author     *string
	authorName *string
	timeAgo    *string
	media      []string
}

func (b *block) add(ln Line) {
	switch ln.Kind {
	case KindContentText:
		b.text = append(b.text, ln.Text)
	case KindStatsLine:
		l := ln
		b.stats = &l // the line closest to the boundary wins
	case KindOther:
		switch ln.Attr {
		case AttrAuthorHandle:
			if b.author == nil {
				b.author = model.StringPtr(ln.Text)
			}
		case AttrAuthorName:
			if b.authorName == nil {
				b.authorName = model.StringPtr(ln.Text)
			}
		case AttrTimeAgo:
			if b.timeAgo == nil {
				b.timeAgo = model.StringPtr(ln.Text)
			}
		case AttrMedia:
			for _, m := range b.media {
				if m == ln.Text {
					return
				}
			}
			b.media = append(b.media, ln.Text)
		}
	}
}

func (b *block) post(boundary Line, layout StatsLayout) (model.Post, *Anomaly) {
	p := model.Post{
		ID:          boundary.ID,
		Text:        strings.TrimSpace(strings.Join(b.text, " ")),
		TimestampMS: snowflake.DecodeTimestamp(boundary.ID),
		Author:      b.author,
		AuthorName:  b.authorName,
		TimeAgo:     b.timeAgo,
		Media:       append([]string{}, b.media...),
	}
	p.HasMedia = len(p.Media) > 0
	if p.TimeAgo == nil && boundary.Attr == AttrTimeAgo {
		p.TimeAgo = model.StringPtr(boundary.Text)
	}

	var anomaly *Anomaly
	if b.stats != nil {
		c, ok := layout.Assign(b.stats.Stats)
		if !ok {
			anomaly = &Anomaly{PostID: p.ID, Line: b.stats.No, Stats: b.stats.Text, Tokens: b.stats.Stats}
		}
		p.Replies, p.Retweets, p.Likes, p.Views = c.Replies, c.Retweets, c.Likes, c.Views
	}
	return p, anomaly
}

func fold(lines []Line, layout StatsLayout, isBoundary func(Line) bool) Outcome {
	if layout == nil {
		layout = DefaultStatsLayout()
	}
	var out Outcome
	out.Posts = []model.Post{}
	var b block
	for _, ln := range lines {
		if isBoundary(ln) {
			p, a := b.post(ln, layout)
			out.Posts = append(out.Posts, p)
			if a != nil {
				out.Anomalies = append(out.Anomalies, *a)
			}
			b = block{}
			continue
		}
		b.add(ln)
	}
	return out
}

// Result is a parse outcome plus the strategy that produced it.
type Result struct {
	Posts     []model.Post
	Anomalies []Anomaly
	Strategy  string
}

// Parser runs the primary strategy and switches to the fallback when the
// primary finds nothing in a snapshot that does contain permalinks.
type Parser struct {
	Primary  Strategy
	Fallback Strategy
}

// NewParser returns a parser whose strategies share layout.
func NewParser(layout StatsLayout) *Parser {
	if layout == nil {
		layout = DefaultStatsLayout()
	}
	return &Parser{Primary: Primary{Layout: layout}, Fallback: Fallback{Layout: layout}}
}

var defaultParser = NewParser(nil)

// Parse classifies raw and folds it with the selected strategy.
func (p *Parser) Parse(raw string) Result {
	lines := Classify(raw)
	strategy := p.Primary
	out := strategy.Fold(lines)
	if len(out.Posts) == 0 && nontrivial(lines) {
		strategy = p.Fallback
		out = strategy.Fold(lines)
		logging.Warn("parse_fallback", map[string]any{"posts": len(out.Posts)})
	}
	for _, a := range out.Anomalies {
		metrics.StatsAnomalies.Inc()
		logging.Warn("stats_token_anomaly", map[string]any{"post_id": a.PostID, "line": a.Line, "tokens": len(a.Tokens), "stats": a.Stats})
	}
	metrics.ObserveParse(strategy.Name(), len(out.Posts))
	return Result{Posts: out.Posts, Anomalies: out.Anomalies, Strategy: strategy.Name()}
}

// ParsePosts recovers the ordered post list from a raw snapshot with the default layout.
func ParsePosts(raw string) []model.Post {
	return defaultParser.Parse(raw).Posts
}

// FilterByAuthor drops posts attributed to an account other than username.
// Posts without attribution are kept: on a profile timeline they are the
// profile's own.
func FilterByAuthor(posts []model.Post, username string) []model.Post {
	target := strings.TrimPrefix(strings.TrimSpace(username), "@")
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if p.Author != nil && !strings.EqualFold(strings.TrimPrefix(*p.Author, "@"), target) {
			continue
		}
		out = append(out, p)
	}
	return out
}
