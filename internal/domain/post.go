package domain

import (
	"strings"
	"time"
)

// NoPostContent replaces an empty self-text body.
const NoPostContent = "[No post content]"

// Credential is a bearer token issued by the content API.
type Credential struct {
	AccessToken string
	ObtainedAt  time.Time
	TTL         time.Duration
}

// ExpiresAt reports when the credential stops being usable.
func (c Credential) ExpiresAt() time.Time {
	return c.ObtainedAt.Add(c.TTL)
}

// Valid reports whether the credential can still be presented at now,
// keeping skew in reserve so a token is not sent moments before expiry.
func (c Credential) Valid(now time.Time, skew time.Duration) bool {
	if c.AccessToken == "" {
		return false
	}
	if c.TTL <= 0 {
		return false
	}
	return now.Add(skew).Before(c.ExpiresAt())
}

// Post is a single listing entry of a feed.
type Post struct {
	ID          string
	Title       string
	Permalink   string
	Subreddit   string
	Score       int
	NumComments int
	Author      string
	CreatedUTC  time.Time
	UpvoteRatio float64
	URL         string
	Content     string
}

// PostContent substitutes the sentinel for an empty body.
func PostContent(body string) string {
	if body == "" {
		return NoPostContent
	}
	return body
}

// Comment is a genuine comment retained from a thread.
type Comment struct {
	Author string
	Text   string
	Score  int
}

// ScrapedContent is the rendered-page view of a post.
type ScrapedContent struct {
	Title    string
	Content  string
	Comments string
}

// Empty reports whether nothing useful was extracted.
func (s ScrapedContent) Empty() bool {
	return strings.TrimSpace(s.Content) == "" && strings.TrimSpace(s.Comments) == ""
}

// AnalysisResult is the text produced by the analysis model.
type AnalysisResult string
