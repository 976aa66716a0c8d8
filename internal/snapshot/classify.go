// Package snapshot recovers posts and profile headers from the plain-text
// accessibility tree a headless browser renders for a timeline page.
//
// Parsing is two-pass: Classify tags every line with a Kind, then a Strategy
// folds the tagged lines into posts. Both passes are pure.
package snapshot

import (
	"net/url"
	"regexp"
	"strings"

	"personalens/internal/util"
)

// Kind is the closed set of roles a snapshot line can play.
type Kind int

const (
	KindOther Kind = iota
	KindContentText
	KindStatsLine
	KindPermalink
	KindTocAnchor
)

func (k Kind) String() string {
	switch k {
	case KindContentText:
		return "content"
	case KindStatsLine:
		return "stats"
	case KindPermalink:
		return "permalink"
	case KindTocAnchor:
		return "toc"
	default:
		return "other"
	}
}

// Attr refines a KindOther line that still carries post metadata.
type Attr int

const (
	AttrNone Attr = iota
	AttrAuthorHandle
	AttrAuthorName
	AttrTimeAgo
	AttrMedia
)

// Line is one classified snapshot line. A text line with trailing counters
// yields two Lines (content, then stats) sharing the same No.
type Line struct {
	No    int // zero-based index into the raw snapshot lines
	Kind  Kind
	Attr  Attr
	Text  string // content text, stats text, or attribute value
	Stats []int  // digit tokens for KindStatsLine
	ID    string // post id for permalink-shaped lines
	User  string // path username for permalink-shaped lines
}

// PageBreak separates concatenated page snapshots.
const PageBreak = "--- PAGE BREAK ---"

const mediaBaseURL = "https://pbs.twimg.com/media/"

var (
	linkLabeled    = regexp.MustCompile(`^- link "((?:[^"\\]|\\.)*)"\s*(?:\[e\d+\])?:?$`)
	linkBare       = regexp.MustCompile(`^- link(?:\s*\[e\d+\])?:?$`)
	urlLine        = regexp.MustCompile(`^- /url:\s+(\S+)$`)
	statusPath     = regexp.MustCompile(`^(?:https?://[^/\s]+)?/(\w+)/status/(\d+)(?:#m)?$`)
	statusAnywhere = regexp.MustCompile(`/url:\s*(?:https?://[^/\s]+)?/(\w+)/status/(\d+)`)
	profilePath    = regexp.MustCompile(`^(?:https?://[^/\s]+)?/(\w+)$`)
	picPath        = regexp.MustCompile(`^(?:https?://[^/\s]+)?/pic/orig/(.+)$`)
	relativeTime   = regexp.MustCompile(`^\d+[smhd]$`)
	absoluteTime   = regexp.MustCompile(`^[A-Z][a-z]{2} \d{1,2}(?:, \d{4})?$`)
	profileStat    = regexp.MustCompile(`(?i)^(?:(?:tweets|posts|followers|following|likes)\s*:?\s*\d[\d.,]*\s*[KMB]?|\d[\d.,]*\s*[KMB]?\s+(?:tweets|posts|followers|following|likes)|joined\s+\w+\s+\d{4})$`)
)

// skipLabels are UI labels that are never post text nor an author name.
var skipLabels = map[string]bool{
	"":                 true,
	"nitter":           true,
	"logo":             true,
	"more replies":     true,
	"tweets":           true,
	"posts":            true,
	"followers":        true,
	"following":        true,
	"tweets & replies": true,
	"media":            true,
	"search":           true,
	"pinned tweet":     true,
	"retweeted":        true,
}

func isTimeLabel(s string) bool {
	return relativeTime.MatchString(s) || absoluteTime.MatchString(s)
}

// Classify tags each line of raw. Permalink-shaped lines are told apart from
// navigation anchors here so folding never has to look around.
//
// A status url is a KindTocAnchor when it is not the child of a link node,
// when it sits in a page's header region (before the first content or stats
// line of that page), or when its id already closed an earlier post. A status
// link whose label is a date is the block's time, not a boundary. Author and
// media attributes are only recovered outside the header region.
func Classify(raw string) []Line {
	rawLines := strings.Split(raw, "\n")
	out := make([]Line, 0, len(rawLines))

	inHeader := true
	emitted := make(map[string]bool)
	var link *string // label of the link node directly above, "" for bare links

	for i, rl := range rawLines {
		s := strings.TrimSpace(rl)
		if s == "" {
			continue
		}
		parent := link
		link = nil

		if s == PageBreak {
			inHeader = true
			out = append(out, Line{No: i, Kind: KindOther})
			continue
		}
		if m := linkLabeled.FindStringSubmatch(s); m != nil {
			label := strings.ReplaceAll(m[1], `\"`, `"`)
			link = &label
			out = append(out, Line{No: i, Kind: KindOther})
			continue
		}
		if linkBare.MatchString(s) {
			empty := ""
			link = &empty
			out = append(out, Line{No: i, Kind: KindOther})
			continue
		}
		if content, ok := strings.CutPrefix(s, "- text:"); ok {
			lines := classifyText(i, content)
			for _, ln := range lines {
				if ln.Kind == KindContentText || ln.Kind == KindStatsLine {
					inHeader = false
				}
			}
			out = append(out, lines...)
			continue
		}
		if m := urlLine.FindStringSubmatch(s); m != nil {
			out = append(out, classifyURL(i, m[1], parent, inHeader, emitted))
			continue
		}
		if m := statusAnywhere.FindStringSubmatch(s); m != nil {
			out = append(out, Line{No: i, Kind: KindTocAnchor, User: m[1], ID: m[2]})
			continue
		}
		out = append(out, Line{No: i, Kind: KindOther})
	}
	return out
}

func classifyText(no int, raw string) []Line {
	content := util.StripIcons(util.Unquote(raw))
	if content == "" {
		return []Line{{No: no, Kind: KindOther}}
	}
	if util.IsStatsLine(content) {
		return []Line{{No: no, Kind: KindStatsLine, Text: content, Stats: util.DigitTokens(content)}}
	}
	if profileStat.MatchString(content) {
		// profile header counters and join date, never post text
		return []Line{{No: no, Kind: KindOther}}
	}
	var out []Line
	text, stats, split := util.SplitTrailingStats(content)
	if !skipLabels[strings.ToLower(text)] {
		out = append(out, Line{No: no, Kind: KindContentText, Text: text})
	}
	if split {
		out = append(out, Line{No: no, Kind: KindStatsLine, Text: stats, Stats: util.DigitTokens(stats)})
	}
	if len(out) == 0 {
		out = append(out, Line{No: no, Kind: KindOther})
	}
	return out
}

func classifyURL(no int, target string, parent *string, inHeader bool, emitted map[string]bool) Line {
	if m := statusPath.FindStringSubmatch(target); m != nil {
		ln := Line{No: no, User: m[1], ID: m[2]}
		switch {
		case parent == nil, inHeader:
			ln.Kind = KindTocAnchor
		case isTimeLabel(*parent):
			ln.Kind, ln.Attr, ln.Text = KindOther, AttrTimeAgo, *parent
		case emitted[ln.ID]:
			ln.Kind = KindTocAnchor
		default:
			ln.Kind = KindPermalink
			emitted[ln.ID] = true
		}
		return ln
	}
	if inHeader {
		// profile chrome: avatar, banner, name and handle belong to the account, not a post
		return Line{No: no, Kind: KindOther}
	}
	if m := picPath.FindStringSubmatch(target); m != nil {
		decoded, err := url.PathUnescape(m[1])
		if err == nil {
			if file, ok := strings.CutPrefix(decoded, "media/"); ok && file != "" {
				return Line{No: no, Kind: KindOther, Attr: AttrMedia, Text: mediaBaseURL + file}
			}
		}
		return Line{No: no, Kind: KindOther}
	}
	if m := profilePath.FindStringSubmatch(target); m != nil && parent != nil {
		label := strings.TrimSpace(*parent)
		switch {
		case strings.HasPrefix(label, "@"):
			return Line{No: no, Kind: KindOther, Attr: AttrAuthorHandle, Text: "@" + strings.TrimPrefix(label, "@"), User: m[1]}
		case !skipLabels[strings.ToLower(label)] && !isTimeLabel(label) && !strings.HasPrefix(label, "#"):
			return Line{No: no, Kind: KindOther, Attr: AttrAuthorName, Text: label, User: m[1]}
		}
	}
	return Line{No: no, Kind: KindOther}
}

// nontrivial reports whether any line links a status, date links included.
func nontrivial(lines []Line) bool {
	for _, ln := range lines {
		if ln.ID != "" {
			return true
		}
	}
	return false
}
