// Package ranking orders fetched posts by their score.
package ranking

import (
	"sort"

	"RedditAnalyzer/internal/domain"
)

// RankByScore returns a copy of posts ordered by descending score. Posts
// with equal scores keep their fetch order.
func RankByScore(posts []domain.Post) []domain.Post {
	ranked := make([]domain.Post, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// TopN returns the first n posts of RankByScore(posts).
func TopN(posts []domain.Post, n int) []domain.Post {
	ranked := RankByScore(posts)
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}
