package snapshot

import (
	"regexp"
	"strings"

	"personalens/internal/model"
	"personalens/internal/util"
)

// headerLimit bounds the scan when a snapshot has no post boundary at all.
const headerLimit = 200

var (
	handleLabel  = regexp.MustCompile(`^@(\w+)$`)
	joinedText   = regexp.MustCompile(`Joined\s+(.+)`)
	countAfter   = regexp.MustCompile(`(?i)\b(tweets|posts|followers|following)\b\s*:?\s*(\d[\d.,]*\s*[KMB]?)(?:[^\w]|$)`)
	countBefore  = regexp.MustCompile(`(?i)(?:^|\s)(\d[\d.,]*\s*[KMB]?)\s+(tweets|posts|followers|following)\b`)
	labelOnly    = regexp.MustCompile(`(?i)^(tweets|posts|followers|following)$`)
	paragraphPre = "- paragraph:"
)

// ParseAccount reads profile header fields from the part of raw that precedes
// the first post. It never fails: unreadable fields keep their zero values.
func ParseAccount(raw string) model.Account {
	return ParseAccountFor(raw, "")
}

// ParseAccountFor is ParseAccount with the username already known.
func ParseAccountFor(raw, username string) model.Account {
	acct := model.Account{Username: strings.TrimPrefix(strings.TrimSpace(username), "@")}
	rawLines := strings.Split(raw, "\n")

	end := len(rawLines)
	if end > headerLimit {
		end = headerLimit
	}
	for _, ln := range Classify(raw) {
		if ln.Kind == KindPermalink {
			end = ln.No
			break
		}
	}

	var names []string
	counts := map[string]int{}
	pending := ""
	for _, rl := range rawLines[:end] {
		s := strings.TrimSpace(rl)
		if s == "" {
			continue
		}
		content := s
		isLink, freeText := false, false
		switch {
		case strings.HasPrefix(s, "- text:"):
			content = util.Unquote(strings.TrimPrefix(s, "- text:"))
		case strings.HasPrefix(s, paragraphPre):
			content = util.Unquote(strings.TrimPrefix(s, paragraphPre))
			freeText = true
			if acct.Bio == "" && content != "" && !strings.Contains(content, "Joined") {
				acct.Bio = content
			}
		default:
			if m := linkLabeled.FindStringSubmatch(s); m != nil {
				content = strings.ReplaceAll(m[1], `\"`, `"`)
				isLink = true
			}
		}
		content = util.StripIcons(content)

		if freeText {
			// bio prose mentions counts too; only labelled header lines set them
			pending = ""
			setJoined(&acct, content)
			continue
		}

		if pending != "" {
			if n, ok := parseCountToken(content); ok {
				setCount(counts, pending, n)
				pending = ""
				continue
			}
			pending = ""
		}

		if isLink {
			if m := handleLabel.FindStringSubmatch(content); m != nil {
				if acct.Username == "" {
					acct.Username = m[1]
				}
			} else if content != "" && !strings.HasPrefix(content, "#") && !skipLabels[strings.ToLower(content)] &&
				!isTimeLabel(content) && !countBefore.MatchString(content) && !labelOnly.MatchString(content) {
				names = append(names, content)
			}
		}

		setJoined(&acct, content)
		if labelOnly.MatchString(content) {
			pending = strings.ToLower(content)
			continue
		}
		for _, m := range countAfter.FindAllStringSubmatch(content, -1) {
			if n, ok := parseCountToken(m[2]); ok {
				setCount(counts, strings.ToLower(m[1]), n)
			}
		}
		for _, m := range countBefore.FindAllStringSubmatch(content, -1) {
			if n, ok := parseCountToken(m[1]); ok {
				setCount(counts, strings.ToLower(m[2]), n)
			}
		}
	}

	for _, n := range names {
		if acct.Username != "" && strings.EqualFold(strings.TrimPrefix(n, "@"), acct.Username) {
			continue
		}
		acct.DisplayName = n
		break
	}
	acct.Followers = counts["followers"]
	acct.Following = counts["following"]
	acct.TweetsCount = counts["tweets"]
	return acct
}

func setJoined(acct *model.Account, content string) {
	if acct.Joined != "" {
		return
	}
	if m := joinedText.FindStringSubmatch(content); m != nil {
		acct.Joined = strings.Trim(strings.TrimSpace(m[1]), `"`)
	}
}

// setCount keeps the first value seen per label; "posts" is the newer name for "tweets".
func setCount(counts map[string]int, label string, n int) {
	if label == "posts" {
		label = "tweets"
	}
	if _, ok := counts[label]; !ok {
		counts[label] = n
	}
}

func parseCountToken(s string) (int, bool) {
	return util.ParseCount(strings.TrimRight(strings.TrimSpace(s), ".,"))
}
