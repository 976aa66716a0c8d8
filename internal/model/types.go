package model

import "time"

// Post is one unit of published content recovered from a timeline snapshot.
// Field names are the JSON contract consumed by the analysis step and the UI.
type Post struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	TimestampMS int64    `json:"timestamp_ms"`
	Likes       int      `json:"likes"`
	Retweets    int      `json:"retweets"`
	Replies     int      `json:"replies"`
	Views       int      `json:"views"`
	Author      *string  `json:"author"`      // nil when the block carried no attribution
	AuthorName  *string  `json:"author_name"` // nil when the block carried no display name
	Media       []string `json:"media"`
	HasMedia    bool     `json:"has_media"`
	TimeAgo     *string  `json:"time_ago"`
}

// Time returns the decoded creation time in UTC, or the zero time when unknown.
func (p Post) Time() time.Time {
	if p.TimestampMS <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.TimestampMS).UTC()
}

// Account is one profile's header metadata.
type Account struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Joined      string `json:"joined"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	TweetsCount int    `json:"tweets_count"`
}

// CadenceReport is the day-of-week and 4-hour UTC band posting histogram.
// Buckets with zero posts are absent.
type CadenceReport struct {
	PeakDays  map[string]int `json:"peak_days"`
	PeakHours map[string]int `json:"peak_hours"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
