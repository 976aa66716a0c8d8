package snapshot

import (
	"fmt"
	"sort"
)

// Role names one engagement counter.
type Role string

const (
	RoleReplies  Role = "replies"
	RoleRetweets Role = "retweets"
	RoleLikes    Role = "likes"
	RoleViews    Role = "views"
)

// Counters holds the engagement numbers recovered from one stats line.
type Counters struct {
	Replies  int
	Retweets int
	Likes    int
	Views    int
}

// StatsLayout maps how many digit tokens a stats line holds to the counter
// each token feeds, left to right. The default reflects how counters have been
// observed to render; it is not a documented schema, so it is overridable.
type StatsLayout map[int][]Role

// DefaultStatsLayout returns the observed 1/2/3-token layout.
func DefaultStatsLayout() StatsLayout {
	return StatsLayout{
		1: {RoleLikes},
		2: {RoleRetweets, RoleLikes},
		3: {RoleReplies, RoleRetweets, RoleLikes},
	}
}

// Assign maps tokens onto counters. Zero tokens yields zero counters. ok is
// false when the layout has no entry for len(tokens); counters are then zero.
func (l StatsLayout) Assign(tokens []int) (c Counters, ok bool) {
	if len(tokens) == 0 {
		return c, true
	}
	roles, found := l[len(tokens)]
	if !found || len(roles) != len(tokens) {
		return Counters{}, false
	}
	for i, r := range roles {
		switch r {
		case RoleReplies:
			c.Replies = tokens[i]
		case RoleRetweets:
			c.Retweets = tokens[i]
		case RoleLikes:
			c.Likes = tokens[i]
		case RoleViews:
			c.Views = tokens[i]
		}
	}
	return c, true
}

// ParseStatsLayout builds a layout from config, e.g. {4: [replies retweets likes views]}.
// Entries in raw replace the defaults for the same token count.
func ParseStatsLayout(raw map[int][]string) (StatsLayout, error) {
	l := DefaultStatsLayout()
	keys := make([]int, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, n := range keys {
		names := raw[n]
		if n <= 0 {
			return nil, fmt.Errorf("stats layout: token count %d must be positive", n)
		}
		if len(names) != n {
			return nil, fmt.Errorf("stats layout: %d tokens need %d roles, got %d", n, n, len(names))
		}
		seen := make(map[Role]bool, n)
		roles := make([]Role, 0, n)
		for _, name := range names {
			r := Role(name)
			switch r {
			case RoleReplies, RoleRetweets, RoleLikes, RoleViews:
			default:
				return nil, fmt.Errorf("stats layout: unknown role %q", name)
			}
			if seen[r] {
				return nil, fmt.Errorf("stats layout: role %q repeated for %d tokens", name, n)
			}
			seen[r] = true
			roles = append(roles, r)
		}
		l[n] = roles
	}
	return l, nil
}
