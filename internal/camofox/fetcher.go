package camofox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"personalens/internal/logging"
	"personalens/internal/snapshot"
)

const (
	timelineSelector = ".timeline-item"
	loadMoreSelector = `a[href*="cursor="]`
	pageJoiner       = "\n\n" + snapshot.PageBreak + "\n\n"
	maxPostCount     = 1000
)

var (
	statusURL    = regexp.MustCompile(`/url: /\w+/status/(\d+)#m`)
	cursorParam  = regexp.MustCompile(`cursor=([^"&\s]+)`)
	loadMoreLink = regexp.MustCompile(`link "Load more" \[(e\d+)\]`)
)

// Pagination modes.
const (
	ModeCursor = "cursor"
	ModeClick  = "click"
)

// Fetcher renders a profile timeline page by page until enough posts are on screen.
type Fetcher struct {
	Browser  Browser
	Instance string
	Mode     string
	// MaxPages bounds pagination when a page keeps offering a next link without new posts.
	MaxPages int
}

// NewFetcher returns a fetcher over browser for a resolved Nitter instance.
func NewFetcher(browser Browser, instance, mode string) *Fetcher {
	return &Fetcher{Browser: browser, Instance: strings.TrimRight(instance, "/"), Mode: mode, MaxPages: 50}
}

// FetchSnapshot returns the concatenated snapshots of as many timeline pages as
// it takes to show count posts. The tab is closed even when a step fails.
func (f *Fetcher) FetchSnapshot(ctx context.Context, username string, count int) (out string, err error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return "", errors.New("fetch: empty username")
	}
	if f.Instance == "" {
		return "", ErrNoInstance
	}
	count = clamp(count, 1, maxPostCount)
	profileURL := f.Instance + "/" + url.PathEscape(username)

	tabID, err := f.Browser.CreateTab(ctx, profileURL, username)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", username, err)
	}
	defer func() {
		// the caller's context may already be done; closing must still happen
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if cerr := f.Browser.CloseTab(closeCtx, tabID); cerr != nil {
			logging.Warn("camofox_close_tab_error", map[string]any{"tab": tabID, "error": cerr.Error()})
			if err == nil {
				err = fmt.Errorf("fetch %s: %w", username, cerr)
			}
		}
	}()

	var pages []string
	seen := 0
	maxPages := f.MaxPages
	if maxPages <= 0 {
		maxPages = 50
	}
	for len(pages) < maxPages {
		if err := f.Browser.Wait(ctx, tabID, timelineSelector); err != nil {
			return "", fmt.Errorf("fetch %s: page %d: %w", username, len(pages)+1, err)
		}
		snap, err := f.Browser.Snapshot(ctx, tabID)
		if err != nil {
			return "", fmt.Errorf("fetch %s: page %d: %w", username, len(pages)+1, err)
		}
		pages = append(pages, snap)
		seen += CountPosts(snap)
		if seen >= count {
			break
		}

		if f.Mode == ModeClick {
			ref := ExtractLoadMoreRef(snap)
			if ref == "" {
				break
			}
			if err := f.Browser.Click(ctx, tabID, ref); err != nil {
				return "", fmt.Errorf("fetch %s: load more: %w", username, err)
			}
			// the next-page link reappearing means the new items finished loading
			if err := f.Browser.Wait(ctx, tabID, loadMoreSelector); err != nil {
				logging.Warn("camofox_load_more_wait", map[string]any{"tab": tabID, "error": err.Error()})
			}
			continue
		}

		cursor := ExtractCursor(snap)
		if cursor == "" {
			break
		}
		next := profileURL + "?cursor=" + url.QueryEscape(cursor)
		if err := f.Browser.Navigate(ctx, tabID, next); err != nil {
			return "", fmt.Errorf("fetch %s: next page: %w", username, err)
		}
	}
	logging.Info("snapshot_fetched", map[string]any{"username": username, "pages": len(pages), "posts_seen": seen, "mode": f.modeName()})
	return strings.Join(pages, pageJoiner), nil
}

func (f *Fetcher) modeName() string {
	if f.Mode == ModeClick {
		return ModeClick
	}
	return ModeCursor
}

// CountPosts counts distinct status ids linked from a snapshot page.
func CountPosts(snapshot string) int {
	ids := make(map[string]struct{})
	for _, m := range statusURL.FindAllStringSubmatch(snapshot, -1) {
		ids[m[1]] = struct{}{}
	}
	return len(ids)
}

// ExtractCursor returns the first next-page cursor in a snapshot, or "".
// The value is returned decoded so it can be re-escaped exactly once.
func ExtractCursor(snapshot string) string {
	m := cursorParam.FindStringSubmatch(snapshot)
	if m == nil {
		return ""
	}
	if v, err := url.QueryUnescape(m[1]); err == nil {
		return v
	}
	return m[1]
}

// ExtractLoadMoreRef returns the element ref of the "Load more" link, or "".
func ExtractLoadMoreRef(snapshot string) string {
	m := loadMoreLink.FindStringSubmatch(snapshot)
	if m == nil {
		return ""
	}
	return m[1]
}
