package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultStatsLayoutAssign(t *testing.T) {
	l := DefaultStatsLayout()
	cases := []struct {
		tokens []int
		want   Counters
		ok     bool
	}{
		{nil, Counters{}, true},
		{[]int{7}, Counters{Likes: 7}, true},
		{[]int{1234, 56}, Counters{Retweets: 1234, Likes: 56}, true},
		{[]int{3, 12, 847}, Counters{Replies: 3, Retweets: 12, Likes: 847}, true},
		{[]int{1, 2, 3, 4}, Counters{}, false},
	}
	for _, tc := range cases {
		got, ok := l.Assign(tc.tokens)
		require.Equal(t, tc.ok, ok, "%v", tc.tokens)
		require.Equal(t, tc.want, got, "%v", tc.tokens)
	}
}

func TestParseStatsLayoutOverrides(t *testing.T) {
	l, err := ParseStatsLayout(map[int][]string{
		3: {"likes", "retweets", "replies"},
		4: {"replies", "retweets", "likes", "views"},
	})
	require.NoError(t, err)
	require.Equal(t, []Role{RoleLikes}, l[1])
	require.Equal(t, []Role{RoleLikes, RoleRetweets, RoleReplies}, l[3])

	c, ok := l.Assign([]int{1, 2, 3, 4})
	require.True(t, ok)
	require.Equal(t, Counters{Replies: 1, Retweets: 2, Likes: 3, Views: 4}, c)
}

func TestParseStatsLayoutRejects(t *testing.T) {
	bad := []map[int][]string{
		{0: {}},
		{2: {"likes"}},
		{2: {"likes", "bookmarks"}},
		{2: {"likes", "likes"}},
	}
	for _, raw := range bad {
		_, err := ParseStatsLayout(raw)
		require.Error(t, err, "%v", raw)
	}
}

func TestParseStatsLayoutNil(t *testing.T) {
	l, err := ParseStatsLayout(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultStatsLayout(), l)
}
