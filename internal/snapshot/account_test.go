package snapshot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"personalens/internal/model"
)

func TestParseAccountProfilePage(t *testing.T) {
	got := ParseAccount(profilePage)
	want := model.Account{
		Username:    "karpathy",
		DisplayName: "Andrej Karpathy",
		Bio:         "Building things. Previously Tesla AI.",
		Joined:      "April 2009",
		Followers:   1200000,
		Following:   1020,
		TweetsCount: 9012,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("account mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAccountCompactFollowers(t *testing.T) {
	acct := ParseAccount(`- text: "Followers 12.3K"`)
	require.Equal(t, 12300, acct.Followers)
}

func TestParseAccountEmpty(t *testing.T) {
	require.Equal(t, model.Account{}, ParseAccount(""))
	require.Equal(t, model.Account{}, ParseAccount("- text: \"nothing to see\""))
}

func TestParseAccountLabelOnNextLine(t *testing.T) {
	raw := `
- text: "Posts"
- text: "4,321"
- text: "Following"
- text: "88"
- text: "Followers"
- text: "2.5M"
`
	acct := ParseAccount(raw)
	require.Equal(t, 4321, acct.TweetsCount)
	require.Equal(t, 88, acct.Following)
	require.Equal(t, 2500000, acct.Followers)
}

func TestParseAccountCountBeforeLabel(t *testing.T) {
	acct := ParseAccount("- text: \"1,500 Followers\"\n- text: \"230 Following\"")
	require.Equal(t, 1500, acct.Followers)
	require.Equal(t, 230, acct.Following)
}

func TestParseAccountFirstValueWins(t *testing.T) {
	raw := "- text: \"Followers 10\"\n- text: \"Followers 99\""
	require.Equal(t, 10, ParseAccount(raw).Followers)
}

func TestParseAccountStopsAtFirstPost(t *testing.T) {
	raw := `
- text: "Followers 10"
- text: "a post"
- link [e1]:
  - /url: /alice/status/1750000000000000001#m
- text: "Following 7"
`
	acct := ParseAccount(raw)
	require.Equal(t, 10, acct.Followers)
	require.Zero(t, acct.Following)
}

func TestParseAccountHeaderLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < headerLimit; i++ {
		fmt.Fprintf(&b, "- text: \"filler %d\"\n", i)
	}
	b.WriteString("- text: \"Followers 5\"\n")
	require.Zero(t, ParseAccount(b.String()).Followers)
}

func TestParseAccountForPinnedUsername(t *testing.T) {
	raw := `
- link "karpathy" [e1]:
  - /url: /karpathy
- link "Andrej" [e2]:
  - /url: /karpathy
`
	acct := ParseAccountFor(raw, "@karpathy")
	require.Equal(t, "karpathy", acct.Username)
	require.Equal(t, "Andrej", acct.DisplayName)
}

func TestParseAccountSkipsChromeLabels(t *testing.T) {
	raw := `
- link "Nitter" [e1]:
  - /url: /
- link "Logo" [e2]:
  - /url: /
- link "Jane Doe" [e3]:
  - /url: /jane
- link "@jane" [e4]:
  - /url: /jane
`
	acct := ParseAccount(raw)
	require.Equal(t, "jane", acct.Username)
	require.Equal(t, "Jane Doe", acct.DisplayName)
}

func TestParseAccountIgnoresCountsInBio(t *testing.T) {
	raw := `
- link "@jane" [e1]:
  - /url: /jane
- paragraph: "Thanks to my 50K followers and 3 following"
- text: "Followers 1.2M"
- text: "Following 1,020"
`
	acct := ParseAccount(raw)
	require.Equal(t, "Thanks to my 50K followers and 3 following", acct.Bio)
	require.Equal(t, 1200000, acct.Followers)
	require.Equal(t, 1020, acct.Following)
}

func TestParseAccountOutOfRangeCountsStayZero(t *testing.T) {
	acct := ParseAccount("- text: \"Followers 99999999999B\"\n- text: \"Tweets 99999999999999999999\"")
	require.Zero(t, acct.Followers)
	require.Zero(t, acct.TweetsCount)
}
