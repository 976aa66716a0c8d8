package analytics

import (
	"sort"

	"personalens/internal/model"
)

// retweetWeight reflects that a repost reaches further than a like.
const retweetWeight = 3

// RankedPost is a post with its engagement score.
type RankedPost struct {
	Post  model.Post `json:"post"`
	Score int        `json:"score"`
}

// EngagementScore is likes plus weighted retweets.
func EngagementScore(p model.Post) int {
	return p.Likes + retweetWeight*p.Retweets
}

// TopPosts returns the n highest-scoring posts. Ties keep timeline order.
func TopPosts(posts []model.Post, n int) []RankedPost {
	ranked := make([]RankedPost, 0, len(posts))
	for _, p := range posts {
		ranked = append(ranked, RankedPost{Post: p, Score: EngagementScore(p)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
