package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kinds(lines []Line) []Kind {
	out := make([]Kind, 0, len(lines))
	for _, ln := range lines {
		out = append(out, ln.Kind)
	}
	return out
}

func TestClassifySingleBlock(t *testing.T) {
	lines := Classify(singleBlock)
	require.Equal(t, []Kind{KindContentText, KindStatsLine, KindOther, KindPermalink}, kinds(lines))
	require.Equal(t, []int{3, 12, 847}, lines[1].Stats)
	require.Equal(t, "1750000000000000001", lines[3].ID)
	require.Equal(t, "karpathy", lines[3].User)
}

func TestClassifySplitsTrailingStats(t *testing.T) {
	lines := Classify(`- text: "Some text  1   22  4,418"`)
	require.Len(t, lines, 2)
	require.Equal(t, KindContentText, lines[0].Kind)
	require.Equal(t, "Some text", lines[0].Text)
	require.Equal(t, KindStatsLine, lines[1].Kind)
	require.Equal(t, []int{1, 22, 4418}, lines[1].Stats)
	require.Equal(t, lines[0].No, lines[1].No)
}

func TestClassifyStripsIconGlyphs(t *testing.T) {
	lines := Classify("- text: \"\uf08a 12  4\"")
	require.Len(t, lines, 1)
	require.Equal(t, KindStatsLine, lines[0].Kind)
	require.Equal(t, []int{12, 4}, lines[0].Stats)
}

func TestClassifyLabelsAreNotContent(t *testing.T) {
	for _, s := range []string{"Pinned Tweet", "Retweeted", "Followers 1.2M", "Joined April 2009", "1,020 Following"} {
		lines := Classify(`- text: "` + s + `"`)
		require.Equal(t, []Kind{KindOther}, kinds(lines), s)
	}
}

func TestClassifyTocRules(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Kind
	}{
		{
			name: "header region",
			raw:  "- link [e1]:\n  - /url: /a/status/1750000000000000001#m",
			want: KindTocAnchor,
		},
		{
			name: "not under a link",
			raw:  "- text: \"x\"\n- listitem:\n  - /url: /a/status/1750000000000000001#m",
			want: KindTocAnchor,
		},
		{
			name: "embedded in another line",
			raw:  "- text: \"x\"\n- img /url: /a/status/1750000000000000001",
			want: KindTocAnchor,
		},
		{
			name: "genuine",
			raw:  "- text: \"x\"\n- link [e1]:\n  - /url: /a/status/1750000000000000001#m",
			want: KindPermalink,
		},
		{
			name: "absolute url",
			raw:  "- text: \"x\"\n- link [e1]:\n  - /url: https://nitter.net/a/status/1750000000000000001#m",
			want: KindPermalink,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lines := Classify(tc.raw)
			require.Equal(t, tc.want, lines[len(lines)-1].Kind)
		})
	}
}

func TestClassifyRepeatAnchor(t *testing.T) {
	raw := `
- text: "x"
- link [e1]:
  - /url: /a/status/1750000000000000001#m
- link [e2]:
  - /url: /a/status/1750000000000000001#m
`
	lines := Classify(raw)
	require.Equal(t, KindPermalink, lines[2].Kind)
	require.Equal(t, KindTocAnchor, lines[4].Kind)
}

func TestClassifyPageBreakResetsHeader(t *testing.T) {
	raw := "- text: \"x\"\n" + PageBreak + "\n- link [e1]:\n  - /url: /a/status/1750000000000000001#m"
	lines := Classify(raw)
	require.Equal(t, KindTocAnchor, lines[len(lines)-1].Kind)
}

func TestClassifyAttributes(t *testing.T) {
	raw := `
- text: "x"
- link "Jane Doe" [e1]:
  - /url: /jane
- link "@jane" [e2]:
  - /url: /jane
- link "10h" [e3]:
  - /url: /jane/status/1750000000000000001#m
- link [e4]:
  - /url: /pic/orig/media%2FFoo.png
- link "#golang" [e5]:
  - /url: /search
`
	var attrs []Attr
	var texts []string
	for _, ln := range Classify(raw) {
		if ln.Attr != AttrNone {
			attrs = append(attrs, ln.Attr)
			texts = append(texts, ln.Text)
		}
	}
	require.Equal(t, []Attr{AttrAuthorName, AttrAuthorHandle, AttrTimeAgo, AttrMedia}, attrs)
	require.Equal(t, []string{"Jane Doe", "@jane", "10h", "https://pbs.twimg.com/media/Foo.png"}, texts)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "permalink", KindPermalink.String())
	require.Equal(t, "toc", KindTocAnchor.String())
	require.Equal(t, "other", Kind(42).String())
}
