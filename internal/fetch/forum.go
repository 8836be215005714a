package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"github.com/prismis/prismis/internal/models"
)

// ForumFetcher pulls a subreddit-shaped source's recent posts plus
// top-level comments. When OAuth credentials are
// configured it uses the go-reddit client; otherwise it falls back to the
// unauthenticated .json listing endpoint over plain net/http.
type ForumFetcher struct {
	MaxItems    int
	MaxComments int // 0 == unlimited
	client      *reddit.Client
	httpClient  *http.Client
}

// imageVideoDomains and imageVideoExtensions identify image/video link
// posts to skip, recognized by domain list and file extension.
var imageVideoDomains = map[string]bool{
	"i.redd.it":      true,
	"v.redd.it":      true,
	"i.imgur.com":    true,
	"imgur.com":      true,
	"gfycat.com":     true,
	"youtube.com":    true,
	"youtu.be":       true,
	"streamable.com": true,
}

var imageVideoExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".gifv": true,
	".mp4": true, ".webm": true, ".mov": true,
}

// NewForumFetcher builds a ForumFetcher. When clientID is empty the
// unauthenticated fallback path is used for every fetch.
func NewForumFetcher(maxItems, maxComments int, clientID, clientSecret, userAgent string) (*ForumFetcher, error) {
	f := &ForumFetcher{
		MaxItems:    maxItems,
		MaxComments: maxComments,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	if clientID == "" {
		return f, nil
	}
	creds := reddit.Credentials{ID: clientID, Secret: clientSecret}
	opts := []reddit.Opt{}
	if userAgent != "" {
		opts = append(opts, reddit.WithUserAgent(userAgent))
	}
	client, err := reddit.NewClient(creds, opts...)
	if err != nil {
		return nil, err
	}
	f.client = client
	return f, nil
}

func (f *ForumFetcher) Fetch(ctx context.Context, source models.Source) ([]models.ContentItem, error) {
	subreddit := subredditName(source.URL)
	if f.client != nil {
		return f.fetchAuthenticated(ctx, subreddit)
	}
	return f.fetchUnauthenticated(ctx, subreddit)
}

func subredditName(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "r" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

func (f *ForumFetcher) fetchAuthenticated(ctx context.Context, subreddit string) ([]models.ContentItem, error) {
	posts, _, err := f.client.Subreddit.NewPosts(ctx, subreddit, &reddit.ListOptions{Limit: f.MaxItems})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var items []models.ContentItem
	for _, p := range posts {
		if len(items) >= f.MaxItems {
			break
		}
		if skipPost(p.Stickied, p.URL, p.Permalink) {
			continue
		}
		item := redditPostToItem(p.Permalink, p.Title, p.Body, p.URL, p.IsSelfPost, publishedFromUnix(p.Created), now,
			p.Score, p.UpvoteRatio, p.NumberOfComments, p.SubredditName, p.Author)
		comments, err := f.fetchComments(ctx, p.ID)
		if err == nil && comments != "" {
			item.Content += "\n\n" + comments
		}
		items = append(items, item)
	}
	return items, nil
}

func (f *ForumFetcher) fetchComments(ctx context.Context, id string) (string, error) {
	pc, _, err := f.client.Post.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return renderComments(redditComments(pc.Comments), f.MaxComments), nil
}

// redditComment is the subset of reddit.Comment fields this fetcher needs,
// isolated so renderComments can be shared between the authenticated and
// unauthenticated paths.
type redditComment struct {
	Author string
	Body   string
}

func redditComments(cs []*reddit.Comment) []redditComment {
	out := make([]redditComment, 0, len(cs))
	for _, c := range cs {
		out = append(out, redditComment{Author: c.Author, Body: c.Body})
	}
	return out
}

func renderComments(comments []redditComment, max int) string {
	var b strings.Builder
	count := 0
	for _, c := range comments {
		if isDeletedBody(c.Body) {
			continue
		}
		if max > 0 && count >= max {
			break
		}
		fmt.Fprintf(&b, "**u/%s:**\n> %s\n\n", c.Author, strings.ReplaceAll(c.Body, "\n", "\n> "))
		count++
	}
	if count == 0 {
		return ""
	}
	return "## Discussion\n\n" + b.String()
}

func isDeletedBody(body string) bool {
	return body == "" || body == "[deleted]" || body == "[removed]"
}

func publishedFromUnix(ts *reddit.Timestamp) time.Time {
	if ts == nil {
		return time.Now().UTC()
	}
	return ts.UTC()
}

func skipPost(stickied bool, linkURL, permalink string) bool {
	if stickied {
		return true
	}
	if linkURL == "" {
		return false
	}
	u, err := url.Parse(linkURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if imageVideoDomains[host] {
		return true
	}
	return imageVideoExtensions[strings.ToLower(path.Ext(u.Path))]
}

func redditPostToItem(permalink, title, selftext, linkURL string, isSelf bool, published, fetched time.Time,
	score int, ratio float32, numComments int, subreddit, author string) models.ContentItem {
	content := selftext
	if !isSelf {
		if isDeletedBody(selftext) {
			content = fmt.Sprintf("Link post to: %s", linkURL)
		} else if selftext != "" {
			content = fmt.Sprintf("Link: %s\n\n%s", linkURL, selftext)
		} else {
			content = fmt.Sprintf("Link: %s", linkURL)
		}
	}
	return models.ContentItem{
		ExternalID:  permalink,
		Title:       title,
		URL:         permalink,
		Content:     content,
		PublishedAt: published,
		FetchedAt:   fetched,
		Analysis: models.Analysis{Metrics: map[string]any{
			"score":         score,
			"upvote_ratio":  ratio,
			"comment_count": numComments,
			"subreddit":     subreddit,
			"author":        author,
		}},
	}
}

// --- unauthenticated .json listing fallback ---

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditJSONPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditJSONPost struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	URL           string  `json:"url"`
	Permalink     string  `json:"permalink"`
	IsSelf        bool    `json:"is_self"`
	Stickied      bool    `json:"stickied"`
	CreatedUTC    float64 `json:"created_utc"`
	Score         int     `json:"score"`
	UpvoteRatio   float32 `json:"upvote_ratio"`
	NumComments   int     `json:"num_comments"`
	Subreddit     string  `json:"subreddit"`
	Author        string  `json:"author"`
}

func (f *ForumFetcher) fetchUnauthenticated(ctx context.Context, subreddit string) ([]models.ContentItem, error) {
	listURL := fmt.Sprintf("https://www.reddit.com/r/%s/new.json?limit=%d", subreddit, f.MaxItems)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "prismisd/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forum fetch: unexpected status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var items []models.ContentItem
	for _, child := range listing.Data.Children {
		p := child.Data
		if len(items) >= f.MaxItems {
			break
		}
		permalink := "https://www.reddit.com" + p.Permalink
		if skipPost(p.Stickied, p.URL, permalink) {
			continue
		}
		published := time.Unix(int64(p.CreatedUTC), 0).UTC()
		item := redditPostToItem(permalink, p.Title, p.Selftext, p.URL, p.IsSelf, published, now,
			p.Score, p.UpvoteRatio, p.NumComments, p.Subreddit, p.Author)

		comments, err := f.fetchCommentsUnauthenticated(ctx, p.Permalink)
		if err == nil && comments != "" {
			item.Content += "\n\n" + comments
		}
		items = append(items, item)
	}
	return items, nil
}

type redditCommentListingEntry struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				Author string `json:"author"`
				Body   string `json:"body"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (f *ForumFetcher) fetchCommentsUnauthenticated(ctx context.Context, permalink string) (string, error) {
	commentURL := fmt.Sprintf("https://www.reddit.com%s.json", strings.TrimSuffix(permalink, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, commentURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "prismisd/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var entries []redditCommentListingEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return "", err
	}
	if len(entries) < 2 {
		return "", nil
	}

	var comments []redditComment
	for _, child := range entries[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		comments = append(comments, redditComment{Author: child.Data.Author, Body: child.Data.Body})
	}
	return renderComments(comments, f.MaxComments), nil
}
