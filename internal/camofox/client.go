// Package camofox drives a Camofox browser server to render Nitter profile
// pages and return their accessibility snapshots.
package camofox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"personalens/internal/metrics"
)

// Browser is the subset of the Camofox tab API the fetcher needs.
type Browser interface {
	CreateTab(ctx context.Context, pageURL, sessionKey string) (string, error)
	Wait(ctx context.Context, tabID, selector string) error
	Snapshot(ctx context.Context, tabID string) (string, error)
	Navigate(ctx context.Context, tabID, pageURL string) error
	Click(ctx context.Context, tabID, ref string) error
	CloseTab(ctx context.Context, tabID string) error
}

// Client is a REST client for a Camofox browser server.
type Client struct {
	baseURL     string
	userID      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

// NewClient returns a client for the server at baseURL. userID scopes the
// browser session; every tab this client opens belongs to it.
func NewClient(baseURL, userID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		userID:      userID,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     newLimiter(defaultRPS, defaultBurst),
		maxAttempts: getEnvInt("CAMOFOX_MAX_ATTEMPTS", 4),
		baseBackoff: time.Duration(getEnvInt("CAMOFOX_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

// StatusError is returned for a non-retryable or exhausted HTTP failure.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("camofox %s: status %d: %s", e.Endpoint, e.Status, e.Body)
}

// CreateTab opens pageURL in a new tab and returns the tab id.
func (c *Client) CreateTab(ctx context.Context, pageURL, sessionKey string) (string, error) {
	var out struct {
		TabID string `json:"tabId"`
	}
	body := map[string]string{"url": pageURL, "userId": c.userID, "sessionKey": sessionKey}
	if err := c.call(ctx, "create_tab", http.MethodPost, "/tabs", nil, body, &out); err != nil {
		return "", err
	}
	if out.TabID == "" {
		return "", errors.New("camofox create_tab: empty tab id")
	}
	return out.TabID, nil
}

// Wait blocks server-side until selector matches in the tab or the server gives up.
func (c *Client) Wait(ctx context.Context, tabID, selector string) error {
	body := map[string]string{"userId": c.userID, "selector": selector}
	return c.call(ctx, "wait", http.MethodPost, "/tabs/"+url.PathEscape(tabID)+"/wait", nil, body, nil)
}

// Snapshot returns the tab's accessibility snapshot text.
func (c *Client) Snapshot(ctx context.Context, tabID string) (string, error) {
	var out struct {
		Snapshot string `json:"snapshot"`
	}
	q := url.Values{"userId": {c.userID}}
	if err := c.call(ctx, "snapshot", http.MethodGet, "/tabs/"+url.PathEscape(tabID)+"/snapshot", q, nil, &out); err != nil {
		return "", err
	}
	return out.Snapshot, nil
}

// Navigate loads pageURL in an existing tab.
func (c *Client) Navigate(ctx context.Context, tabID, pageURL string) error {
	body := map[string]string{"userId": c.userID, "url": pageURL}
	return c.call(ctx, "navigate", http.MethodPost, "/tabs/"+url.PathEscape(tabID)+"/navigate", nil, body, nil)
}

// Click presses the element with the given snapshot ref (e.g. "e175").
func (c *Client) Click(ctx context.Context, tabID, ref string) error {
	body := map[string]string{"userId": c.userID, "ref": ref}
	return c.call(ctx, "click", http.MethodPost, "/tabs/"+url.PathEscape(tabID)+"/click", nil, body, nil)
}

// CloseTab releases the tab.
func (c *Client) CloseTab(ctx context.Context, tabID string) error {
	return c.call(ctx, "close_tab", http.MethodDelete, "/tabs/"+url.PathEscape(tabID), nil, nil, nil)
}

func (c *Client) call(ctx context.Context, endpoint, method, path string, q url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("camofox %s: encode: %w", endpoint, err)
		}
		payload = b
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	newReq := func() (*http.Request, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, r)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, endpoint, newReq)
	if err != nil {
		return fmt.Errorf("camofox %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("camofox %s: decode: %w", endpoint, err)
	}
	return nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// doWithRetry retries 429 and 5xx responses and transport errors with
// exponential backoff, honoring Retry-After. The last retryable response is
// returned as-is once attempts run out.
func (c *Client) doWithRetry(ctx context.Context, endpoint string, newReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			ra := resp.Header.Get("Retry-After")
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			wait := backoff
			if ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					wait = time.Duration(secs) * time.Second
				} else if t, err := http.ParseTime(ra); err == nil {
					if d := time.Until(t); d > 0 {
						wait = d
					}
				}
			}
			// jitter +/-20%
			jitter := time.Duration(float64(wait) * 0.2)
			if jitter > 0 {
				wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
			}
			metrics.IncAPIRetry(endpoint)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		metrics.IncAPIRetry(endpoint)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
