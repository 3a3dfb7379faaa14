package reddit

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"RedditAnalyzer/internal/domain"
)

// Listing kinds used by the API to tag entries.
const (
	KindLink    = "t3"
	KindComment = "t1"
)

// Listing is one `{kind, data: {children}}` envelope.
type Listing struct {
	Kind string       `json:"kind"`
	Data *ListingData `json:"data"`
}

// ListingData holds the entries of a listing. Children is a pointer so an
// absent field can be told apart from an empty page.
type ListingData struct {
	Children *[]Child `json:"children"`
}

// Child is a single tagged listing entry whose payload depends on Kind.
type Child struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Entries returns the listing's children or an error if the envelope is incomplete.
func (l Listing) Entries() ([]Child, error) {
	if l.Data == nil {
		return nil, errors.New("listing has no data")
	}
	if l.Data.Children == nil {
		return nil, errors.New("listing has no data.children")
	}
	return *l.Data.Children, nil
}

type postRecord struct {
	ID          string  `json:"id"`
	Title       *string `json:"title"`
	Permalink   *string `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	Selftext    string  `json:"selftext"`
}

type commentRecord struct {
	Author string  `json:"author"`
	Body   *string `json:"body"`
	Score  int     `json:"score"`
}

func decodeListing(raw []byte) ([]Child, error) {
	var listing Listing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return listing.Entries()
}

// toPost maps a listing entry into a Post. Title and permalink are required.
func toPost(child Child, webBaseURL string) (domain.Post, error) {
	var rec postRecord
	if err := json.Unmarshal(child.Data, &rec); err != nil {
		return domain.Post{}, fmt.Errorf("decode post: %w", err)
	}
	if rec.Title == nil {
		return domain.Post{}, fmt.Errorf("post %q has no title", rec.ID)
	}
	if rec.Permalink == nil || *rec.Permalink == "" {
		return domain.Post{}, fmt.Errorf("post %q has no permalink", rec.ID)
	}

	return domain.Post{
		ID:          rec.ID,
		Title:       *rec.Title,
		Permalink:   *rec.Permalink,
		Subreddit:   rec.Subreddit,
		Score:       rec.Score,
		NumComments: rec.NumComments,
		Author:      rec.Author,
		CreatedUTC:  unixSeconds(rec.CreatedUTC),
		UpvoteRatio: clampRatio(rec.UpvoteRatio),
		URL:         strings.TrimSuffix(webBaseURL, "/") + *rec.Permalink,
		Content:     domain.PostContent(rec.Selftext),
	}, nil
}

func toComment(child Child) (domain.Comment, error) {
	var rec commentRecord
	if err := json.Unmarshal(child.Data, &rec); err != nil {
		return domain.Comment{}, fmt.Errorf("decode comment: %w", err)
	}
	if rec.Body == nil {
		return domain.Comment{}, errors.New("comment has no body")
	}
	return domain.Comment{
		Author: rec.Author,
		Text:   *rec.Body,
		Score:  rec.Score,
	}, nil
}

func unixSeconds(v float64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func clampRatio(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
