// Package readability wraps go-shiori/go-readability so the feed fetcher
// can pull full article text from an entry's URL rather than settling for
// whatever summary/description the feed itself carries.
package readability

import (
	"time"

	readability "github.com/go-shiori/go-readability"
)

// articleTimeout bounds the outbound article fetch.
const articleTimeout = 30 * time.Second

// Extract fetches pageURL and returns its extracted main text. Callers
// fall back to the feed entry's own content/summary/description on error.
func Extract(pageURL string) (string, error) {
	article, err := readability.FromURL(pageURL, articleTimeout)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
