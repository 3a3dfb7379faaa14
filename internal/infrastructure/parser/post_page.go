package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/domain"
)

const unknownAuthor = "Unknown"

// ParseDocument builds a queryable document from rendered HTML.
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// ExtractRenderedPost reads the title, body and up to maxComments comments
// from a rendered post page. Comments are formatted as "author: text" and
// separated by a blank line.
func ExtractRenderedPost(doc *goquery.Document, sel config.Selectors, maxComments int) domain.ScrapedContent {
	title := strings.TrimSpace(doc.Find(sel.Title).First().Text())
	content := strings.TrimSpace(doc.Find(sel.Content).First().Text())

	var comments []string
	if maxComments > 0 {
		doc.Find(sel.Comment).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			comments = append(comments, formatComment(node, sel))
			return len(comments) < maxComments
		})
	}

	return domain.ScrapedContent{
		Title:    title,
		Content:  content,
		Comments: strings.Join(comments, "\n\n"),
	}
}

func formatComment(node *goquery.Selection, sel config.Selectors) string {
	author := strings.TrimSpace(node.Find(sel.CommentAuthor).First().Text())
	if author == "" {
		author = unknownAuthor
	}
	text := strings.TrimSpace(node.Find(sel.CommentText).First().Text())
	return author + ": " + text
}
