package camofox

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveConfiguredWins(t *testing.T) {
	got, err := ResolveInstance(context.Background(), "https://mine.example/", "")
	require.NoError(t, err)
	require.Equal(t, "https://mine.example", got)
}

func TestResolveDefaultReachable(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer up.Close()
	r := NewInstanceResolver("", "")
	r.Default = up.URL
	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, up.URL, got)
}

func TestResolveFromInstanceList(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downURL := down.URL
	down.Close()

	list := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"nitter":{"clearnet":[%q,%q]}}`, downURL, up.URL+"/")
	}))
	defer list.Close()

	r := NewInstanceResolver("", list.URL)
	r.Default = downURL
	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, up.URL, got)
}

func TestResolveNoInstance(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downURL := down.URL
	down.Close()

	r := NewInstanceResolver("", "")
	r.Default = downURL
	_, err := r.Resolve(context.Background())
	require.ErrorIs(t, err, ErrNoInstance)
}
