package camofox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"personalens/internal/logging"
)

// DefaultInstance is probed before the public instance list.
const DefaultInstance = "https://nitter.net"

// ErrNoInstance means no Nitter instance answered.
var ErrNoInstance = errors.New("no reachable Nitter instance; set fetch.nitterInstance or NITTER_INSTANCE")

// InstanceResolver picks a reachable Nitter instance.
type InstanceResolver struct {
	Configured   string
	Default      string
	InstancesURL string
	HTTPClient   *http.Client
}

// NewInstanceResolver returns a resolver with short probe timeouts.
func NewInstanceResolver(configured, instancesURL string) *InstanceResolver {
	return &InstanceResolver{
		Configured:   configured,
		Default:      DefaultInstance,
		InstancesURL: instancesURL,
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Resolve returns the configured instance untouched, else the default instance
// if it answers, else the first answering clearnet entry from the instance list.
func (r *InstanceResolver) Resolve(ctx context.Context) (string, error) {
	if r.Configured != "" {
		return strings.TrimRight(r.Configured, "/"), nil
	}
	if r.Default != "" && r.probe(ctx, r.Default) {
		return strings.TrimRight(r.Default, "/"), nil
	}
	if r.InstancesURL == "" {
		return "", ErrNoInstance
	}
	candidates, err := r.list(ctx)
	if err != nil {
		logging.Warn("nitter_instance_list_error", map[string]any{"error": err.Error()})
		return "", ErrNoInstance
	}
	for _, u := range candidates {
		if r.probe(ctx, u) {
			logging.Info("nitter_instance_selected", map[string]any{"instance": u})
			return strings.TrimRight(u, "/"), nil
		}
	}
	return "", ErrNoInstance
}

// ResolveInstance is a one-shot Resolve with a default resolver.
func ResolveInstance(ctx context.Context, configured, instancesURL string) (string, error) {
	return NewInstanceResolver(configured, instancesURL).Resolve(ctx)
}

// probe treats any HTTP answer as reachable; only transport failures count as down.
func (r *InstanceResolver) probe(ctx context.Context, u string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return true
}

func (r *InstanceResolver) list(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.InstancesURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("instance list status %d", resp.StatusCode)
	}
	var raw struct {
		Nitter struct {
			Clearnet []string `json:"clearnet"`
		} `json:"nitter"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw.Nitter.Clearnet, nil
}
