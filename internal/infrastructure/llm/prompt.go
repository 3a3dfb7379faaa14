package llm

import (
	"fmt"
	"strings"

	"RedditAnalyzer/internal/domain"
)

const analysisInstructions = `Using ONLY the post and comments above, and without consulting any outside source:
1. Summarize the main claims made in the post.
2. Analyze what the comments add: agreement, pushback, additional facts or notable insights.
3. Fact-check the claims: for each, state whether the supplied content supports, contradicts or leaves it unverified, and why.`

// BuildPrompt renders the single user message sent for one post.
func BuildPrompt(title, body string, comments []domain.Comment) string {
	var b strings.Builder

	b.WriteString("Analyze the following Reddit post and its top comments.\n\n")
	fmt.Fprintf(&b, "Title: \"%s\"\n\n", title)
	b.WriteString("Post content:\n\"\"\"\n")
	b.WriteString(body)
	b.WriteString("\n\"\"\"\n\n")

	if len(comments) == 0 {
		b.WriteString("Top comments: none\n\n")
	} else {
		b.WriteString("Top comments:\n\n")
		b.WriteString(FormatComments(comments))
		b.WriteString("\n\n")
	}

	b.WriteString(analysisInstructions)
	return b.String()
}

// FormatComments lists comments separated by blank lines.
func FormatComments(comments []domain.Comment) string {
	parts := make([]string, 0, len(comments))
	for _, c := range comments {
		parts = append(parts, fmt.Sprintf("Comment by u/%s (Score: %d):\n%s", c.Author, c.Score, c.Text))
	}
	return strings.Join(parts, "\n\n")
}
