package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"personalens/internal/analytics"
	"personalens/internal/config"
	"personalens/internal/logging"
	"personalens/internal/metrics"
	"personalens/internal/model"
	"personalens/internal/snapshot"
	"personalens/internal/store"
)

// StrategyCache marks a profile served from the local cache.
const StrategyCache = "cache"

// SnapshotFetcher returns the concatenated timeline snapshot for an account.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, username string, count int) (string, error)
}

// Options tune a single FetchProfile call.
type Options struct {
	// Refresh skips the cache even when it is fresh.
	Refresh bool
	// MaxAge is how old a cached profile may be; zero means any age.
	MaxAge time.Duration
	// Count overrides fetch.postCount when positive.
	Count int
}

// Profile is everything recovered about one account.
type Profile struct {
	Account   model.Account       `json:"account"`
	Posts     []model.Post        `json:"posts"`
	Cadence   model.CadenceReport `json:"cadence"`
	Strategy  string              `json:"strategy"`
	Anomalies []snapshot.Anomaly  `json:"anomalies"`
	FetchedAt time.Time           `json:"fetched_at"`
}

func lastFetchKey(username string) string { return "fetch:" + strings.ToLower(username) + ":last_ts" }

// BuildProfile parses a raw snapshot into a profile without touching the network
// or the cache. username, when set, filters reposts and pins the account name.
func BuildProfile(raw, username string, layout snapshot.StatsLayout) Profile {
	res := snapshot.NewParser(layout).Parse(raw)
	posts := res.Posts
	if username != "" {
		posts = snapshot.FilterByAuthor(posts, username)
	}
	anomalies := res.Anomalies
	if anomalies == nil {
		anomalies = []snapshot.Anomaly{}
	}
	return Profile{
		Account:   snapshot.ParseAccountFor(raw, username),
		Posts:     posts,
		Cadence:   analytics.Aggregate(posts),
		Strategy:  res.Strategy,
		Anomalies: anomalies,
	}
}

// FetchProfile returns the profile for username, from the cache when it is
// fresh enough, otherwise by fetching and parsing a new snapshot and caching
// the result. db may be nil to disable caching.
func FetchProfile(ctx context.Context, db *store.DB, fetcher SnapshotFetcher, cfg config.Config, username string, opts Options) (Profile, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		username = cfg.Account.Username
	}
	if username == "" {
		return Profile{}, errors.New("no username given and account.username is not set")
	}
	count := cfg.Fetch.PostCount
	if opts.Count > 0 {
		count = opts.Count
	}

	if db != nil && !opts.Refresh {
		p, err := loadCached(ctx, db, username, count, opts.MaxAge)
		if err == nil {
			logging.Info("profile_cache_hit", map[string]any{"username": username, "posts": len(p.Posts)})
			return p, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			logging.Warn("profile_cache_error", map[string]any{"username": username, "error": err.Error()})
		}
	}

	layout, err := cfg.StatsLayout()
	if err != nil {
		return Profile{}, fmt.Errorf("parser.statsLayout: %w", err)
	}

	start := time.Now()
	metrics.FetchRuns.Inc()
	raw, err := fetcher.FetchSnapshot(ctx, username, count)
	if err != nil {
		metrics.FetchErrors.Inc()
		return Profile{}, err
	}
	metrics.ObserveFetchDuration(start)

	p := BuildProfile(raw, username, layout)
	p.FetchedAt = time.Now().UTC()
	if len(p.Posts) > count {
		p.Posts = p.Posts[:count]
		p.Cadence = analytics.Aggregate(p.Posts)
	}

	if db != nil {
		if err := persist(ctx, db, username, p); err != nil {
			// the fetch already succeeded; a cache failure only costs the next run
			logging.Error("profile_cache_save_error", map[string]any{"username": username, "error": err.Error()})
		}
	}
	logging.Info("profile_fetched", map[string]any{
		"username": username, "posts": len(p.Posts), "strategy": p.Strategy,
		"anomalies": len(p.Anomalies), "took_ms": time.Since(start).Milliseconds(),
	})
	return p, nil
}

func loadCached(ctx context.Context, db *store.DB, username string, count int, maxAge time.Duration) (Profile, error) {
	acct, fetchedAt, err := db.LoadAccount(ctx, username)
	if err != nil {
		return Profile{}, err
	}
	if maxAge > 0 && time.Since(fetchedAt) > maxAge {
		return Profile{}, store.ErrNotFound
	}
	posts, err := db.LoadPosts(ctx, username, count)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		Account:   acct,
		Posts:     posts,
		Cadence:   analytics.Aggregate(posts),
		Strategy:  StrategyCache,
		Anomalies: []snapshot.Anomaly{},
		FetchedAt: fetchedAt,
	}, nil
}

// LastFetch returns when username was last fetched, or store.ErrNotFound.
func LastFetch(ctx context.Context, db *store.DB, username string) (time.Time, error) {
	v, err := db.LoadCursor(ctx, lastFetchKey(strings.TrimPrefix(username, "@")))
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, v)
}

func persist(ctx context.Context, db *store.DB, username string, p Profile) error {
	acct := p.Account
	if acct.Username == "" {
		acct.Username = username
	}
	if err := db.SavePosts(ctx, username, p.Posts); err != nil {
		return err
	}
	if err := db.SaveAccount(ctx, acct, p.FetchedAt); err != nil {
		return err
	}
	if err := db.PutFetchRun(ctx, store.FetchRun{TS: p.FetchedAt, Username: username, Strategy: p.Strategy, Posts: len(p.Posts), Anomalies: len(p.Anomalies)}); err != nil {
		return err
	}
	return db.SaveCursor(ctx, lastFetchKey(username), p.FetchedAt.Format(time.RFC3339Nano))
}

// RunWatchLoop refreshes username on a ticker until ctx is cancelled.
func RunWatchLoop(ctx context.Context, db *store.DB, fetcher SnapshotFetcher, cfg config.Config, username string, interval time.Duration, onProfile func(Profile)) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	run := func() {
		p, err := FetchProfile(ctx, db, fetcher, cfg, username, Options{Refresh: true})
		if err != nil {
			logging.Error("watch_fetch_error", map[string]any{"username": username, "error": err.Error()})
			return
		}
		if onProfile != nil {
			onProfile(p)
		}
	}
	// run immediately
	run()
	for {
		select {
		case <-ctx.Done():
			logging.Info("watch_loop_stop", map[string]any{"username": username})
			return ctx.Err()
		case <-t.C:
			run()
		}
	}
}
