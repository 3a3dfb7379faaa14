package reddit

import (
	"encoding/json"
	"fmt"

	"RedditAnalyzer/internal/domain"
)

// Thread is the two-part thread response: the post listing followed by
// the comment listing.
type Thread []Listing

// DecodeThread parses a raw thread response.
func DecodeThread(raw []byte) (Thread, error) {
	var thread Thread
	if err := json.Unmarshal(raw, &thread); err != nil {
		return nil, domain.ParseError("decode thread", err)
	}
	return thread, nil
}

// ExtractTopComments returns at most limit genuine comments from the
// thread's comment listing, in API order. "Load more" stubs are skipped.
func ExtractTopComments(thread Thread, limit int) ([]domain.Comment, error) {
	if len(thread) != 2 {
		return nil, domain.ParseError("extract comments", fmt.Errorf("thread has %d parts, want 2", len(thread)))
	}

	children, err := thread[1].Entries()
	if err != nil {
		return nil, domain.ParseError("extract comments", err)
	}

	if limit < 0 {
		limit = 0
	}
	comments := make([]domain.Comment, 0, min(limit, len(children)))
	for _, child := range children {
		if len(comments) >= limit {
			break
		}
		if child.Kind != KindComment {
			continue
		}
		comment, err := toComment(child)
		if err != nil {
			return nil, domain.ParseError("extract comments", err)
		}
		comments = append(comments, comment)
	}

	return comments, nil
}
