// Package store caches fetched profiles in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"personalens/internal/model"
)

// ErrNotFound is returned when nothing is cached under a key.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite database holding posts, account headers and cursors.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// every pooled connection to ":memory:" would see its own empty database
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS posts (
	  id TEXT NOT NULL,
	  username TEXT NOT NULL,
	  timestamp_ms INTEGER NOT NULL,
	  payload TEXT NOT NULL,
	  PRIMARY KEY (username, id)
	);
	CREATE INDEX IF NOT EXISTS idx_posts_user_ts ON posts(username, timestamp_ms);
	CREATE TABLE IF NOT EXISTS accounts (
	  username TEXT PRIMARY KEY,
	  payload TEXT NOT NULL,
	  fetched_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS fetch_runs (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  username TEXT NOT NULL,
	  strategy TEXT NOT NULL,
	  posts INTEGER NOT NULL,
	  anomalies INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fetch_runs_user ON fetch_runs(username, ts);
	`)
	return err
}

func normUser(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// SavePosts upserts posts under username in one transaction.
func (d *DB) SavePosts(ctx context.Context, username string, posts []model.Post) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO posts(id, username, timestamp_ms, payload) VALUES(?,?,?,?)
	  ON CONFLICT(username, id) DO UPDATE SET timestamp_ms=excluded.timestamp_ms, payload=excluded.payload`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	user := normUser(username)
	for _, p := range posts {
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode post %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, user, p.TimestampMS, string(b)); err != nil {
			return fmt.Errorf("save post %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// LoadPosts returns up to limit cached posts for username, newest first.
// limit <= 0 means all.
func (d *DB) LoadPosts(ctx context.Context, username string, limit int) ([]model.Post, error) {
	q := `SELECT payload FROM posts WHERE username=? ORDER BY timestamp_ms DESC, id DESC`
	args := []any{normUser(username)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Post{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var p model.Post
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decode cached post: %w", err)
		}
		if p.Media == nil {
			p.Media = []string{}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveAccount replaces the cached header for acct.Username.
func (d *DB) SaveAccount(ctx context.Context, acct model.Account, fetchedAt time.Time) error {
	if normUser(acct.Username) == "" {
		return errors.New("save account: empty username")
	}
	b, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx, `INSERT INTO accounts(username, payload, fetched_at) VALUES(?,?,?)
	  ON CONFLICT(username) DO UPDATE SET payload=excluded.payload, fetched_at=excluded.fetched_at`,
		normUser(acct.Username), string(b), fetchedAt.UTC().Unix())
	return err
}

// LoadAccount returns the cached header and when it was fetched.
func (d *DB) LoadAccount(ctx context.Context, username string) (model.Account, time.Time, error) {
	var acct model.Account
	var payload string
	var ts int64
	row := d.sql.QueryRowContext(ctx, `SELECT payload, fetched_at FROM accounts WHERE username=?`, normUser(username))
	if err := row.Scan(&payload, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return acct, time.Time{}, ErrNotFound
		}
		return acct, time.Time{}, err
	}
	if err := json.Unmarshal([]byte(payload), &acct); err != nil {
		return acct, time.Time{}, fmt.Errorf("decode cached account: %w", err)
	}
	return acct, time.Unix(ts, 0).UTC(), nil
}

// SaveCursor stores an opaque pagination cursor under key.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// LoadCursor returns the cursor stored under key, or ErrNotFound.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	var v string
	if err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

// FetchRun records one fetch-and-parse pass.
type FetchRun struct {
	TS        time.Time
	Username  string
	Strategy  string
	Posts     int
	Anomalies int
}

func (d *DB) PutFetchRun(ctx context.Context, r FetchRun) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO fetch_runs(ts, username, strategy, posts, anomalies) VALUES(?,?,?,?,?)`,
		r.TS.UTC().Unix(), normUser(r.Username), r.Strategy, r.Posts, r.Anomalies)
	return err
}

// LoadFetchRuns returns the most recent runs for username, newest first.
func (d *DB) LoadFetchRuns(ctx context.Context, username string, limit int) ([]FetchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT ts, username, strategy, posts, anomalies FROM fetch_runs WHERE username=? ORDER BY ts DESC, id DESC LIMIT ?`, normUser(username), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FetchRun
	for rows.Next() {
		var r FetchRun
		var ts int64
		if err := rows.Scan(&ts, &r.Username, &r.Strategy, &r.Posts, &r.Anomalies); err != nil {
			return nil, err
		}
		r.TS = time.Unix(ts, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
