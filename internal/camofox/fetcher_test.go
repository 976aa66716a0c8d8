package camofox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeBrowser serves scripted pages and records every call.
type fakeBrowser struct {
	pages      []string
	page       int
	calls      []string
	snapErr    error
	closed     bool
	createdURL string
}

func (b *fakeBrowser) CreateTab(ctx context.Context, pageURL, sessionKey string) (string, error) {
	b.createdURL = pageURL
	b.calls = append(b.calls, "create")
	return "tab-1", nil
}

func (b *fakeBrowser) Wait(ctx context.Context, tabID, selector string) error {
	b.calls = append(b.calls, "wait "+selector)
	return nil
}

func (b *fakeBrowser) Snapshot(ctx context.Context, tabID string) (string, error) {
	b.calls = append(b.calls, "snapshot")
	if b.snapErr != nil {
		return "", b.snapErr
	}
	return b.pages[b.page], nil
}

func (b *fakeBrowser) Navigate(ctx context.Context, tabID, pageURL string) error {
	b.calls = append(b.calls, "navigate "+pageURL)
	b.page++
	return nil
}

func (b *fakeBrowser) Click(ctx context.Context, tabID, ref string) error {
	b.calls = append(b.calls, "click "+ref)
	b.page++
	return nil
}

func (b *fakeBrowser) CloseTab(ctx context.Context, tabID string) error {
	b.closed = true
	b.calls = append(b.calls, "close")
	return nil
}

func page(ids []int, extra string) string {
	var sb strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&sb, "- text: \"post %d\"\n- link [e%d]:\n  - /url: /jane/status/%d#m\n", id, id, 1750000000000000000+id)
	}
	sb.WriteString(extra)
	return sb.String()
}

func TestFetchSnapshotCursorMode(t *testing.T) {
	b := &fakeBrowser{pages: []string{
		page([]int{1, 2}, "- link \"Load more\" [e99]:\n  - /url: /jane?cursor=DAAB%3D%3D\n"),
		page([]int{3, 4}, "- link \"Load more\" [e99]:\n  - /url: /jane?cursor=DAAC\n"),
		page([]int{5}, ""),
	}}
	f := NewFetcher(b, "https://nitter.example/", ModeCursor)
	out, err := f.FetchSnapshot(context.Background(), "@jane", 3)
	require.NoError(t, err)
	require.Equal(t, "https://nitter.example/jane", b.createdURL)
	require.True(t, b.closed)
	require.Equal(t, b.pages[0]+pageJoiner+b.pages[1], out)
	require.Contains(t, b.calls, "navigate https://nitter.example/jane?cursor=DAAB%3D%3D")
	require.Equal(t, "close", b.calls[len(b.calls)-1])
}

func TestFetchSnapshotStopsWithoutNextPage(t *testing.T) {
	b := &fakeBrowser{pages: []string{page([]int{1}, "")}}
	out, err := NewFetcher(b, "https://nitter.example", ModeCursor).FetchSnapshot(context.Background(), "jane", 20)
	require.NoError(t, err)
	require.Equal(t, b.pages[0], out)
	require.NotContains(t, out, "PAGE BREAK")
}

func TestFetchSnapshotClickMode(t *testing.T) {
	b := &fakeBrowser{pages: []string{
		page([]int{1}, "- link \"Load more\" [e175]:\n  - /url: /jane?cursor=X\n"),
		page([]int{1, 2}, ""),
	}}
	out, err := NewFetcher(b, "https://nitter.example", ModeClick).FetchSnapshot(context.Background(), "jane", 10)
	require.NoError(t, err)
	require.Contains(t, b.calls, "click e175")
	require.Contains(t, b.calls, "wait "+loadMoreSelector)
	require.Equal(t, 1, strings.Count(out, "--- PAGE BREAK ---"))
}

func TestFetchSnapshotClosesTabOnError(t *testing.T) {
	b := &fakeBrowser{snapErr: errors.New("boom")}
	_, err := NewFetcher(b, "https://nitter.example", ModeCursor).FetchSnapshot(context.Background(), "jane", 5)
	require.ErrorContains(t, err, "boom")
	require.True(t, b.closed)
}

func TestFetchSnapshotMaxPages(t *testing.T) {
	loop := page(nil, "- /url: /jane?cursor=SAME\n")
	b := &fakeBrowser{pages: []string{loop, loop, loop, loop}}
	f := NewFetcher(b, "https://nitter.example", ModeCursor)
	f.MaxPages = 3
	out, err := f.FetchSnapshot(context.Background(), "jane", 5)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(out, "--- PAGE BREAK ---"))
}

func TestFetchSnapshotRejectsBadInput(t *testing.T) {
	_, err := NewFetcher(&fakeBrowser{}, "https://nitter.example", ModeCursor).FetchSnapshot(context.Background(), " @ ", 5)
	require.Error(t, err)
	_, err = NewFetcher(&fakeBrowser{}, "", ModeCursor).FetchSnapshot(context.Background(), "jane", 5)
	require.ErrorIs(t, err, ErrNoInstance)
}

func TestSnapshotHelpers(t *testing.T) {
	snap := page([]int{1, 2, 2}, "- link \"Load more\" [e42]:\n  - /url: /jane?cursor=abc%2Bdef&x=1\n")
	require.Equal(t, 2, CountPosts(snap))
	require.Equal(t, "abc+def", ExtractCursor(snap))
	require.Equal(t, "e42", ExtractLoadMoreRef(snap))
	require.Equal(t, "", ExtractCursor("nothing"))
	require.Equal(t, "", ExtractLoadMoreRef("nothing"))
	require.Zero(t, CountPosts(""))
}
