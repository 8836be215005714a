package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/prismis/prismis/internal/apperr"
	"github.com/prismis/prismis/internal/models"
)

// validatorTimeout bounds every pre-insert reachability check.
const validatorTimeout = 5 * time.Second

// normalizeSourceURL expands short-form "kind://" addresses into the
// canonical URL actually fetched, leaving an already-canonical URL
// untouched.
func normalizeSourceURL(kind models.SourceKind, raw string) (string, error) {
	switch kind {
	case models.SourceForum:
		if name, ok := strings.CutPrefix(raw, "forum://"); ok {
			return "https://www.reddit.com/r/" + name, nil
		}
		return raw, nil
	case models.SourceVideo:
		if rest, ok := strings.CutPrefix(raw, "video://"); ok {
			switch {
			case strings.HasPrefix(rest, "@"):
				return "https://www.youtube.com/" + rest, nil
			case strings.HasPrefix(rest, "UC") && len(rest) == 24:
				return "https://www.youtube.com/channel/" + rest, nil
			default:
				return "https://www.youtube.com/@" + rest, nil
			}
		}
		return raw, nil
	case models.SourceFeed:
		if rest, ok := strings.CutPrefix(raw, "feed://"); ok {
			if !strings.Contains(rest, "://") {
				return "https://" + rest, nil
			}
			return rest, nil
		}
		if !strings.Contains(raw, "://") {
			return "https://" + raw, nil
		}
		return raw, nil
	default:
		return raw, nil
	}
}

// validateSourceURL runs the kind-specific reachability probe before a
// source is ever persisted.
func validateSourceURL(ctx context.Context, kind models.SourceKind, normalized string) error {
	ctx, cancel := context.WithTimeout(ctx, validatorTimeout)
	defer cancel()

	switch kind {
	case models.SourceFeed:
		return validateFeedURL(ctx, normalized)
	case models.SourceForum:
		return validateForumURL(ctx, normalized)
	case models.SourceVideo:
		return validateVideoURL(normalized)
	case models.SourceFile:
		return validateFileURL(normalized)
	default:
		return apperr.New(apperr.KindValidation, fmt.Sprintf("unsupported source kind %q", kind))
	}
}

func validateFeedURL(ctx context.Context, feedURL string) error {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "feed url did not parse", err)
	}
	if feed.FeedType == "" && len(feed.Items) == 0 {
		return apperr.New(apperr.KindValidation, "feed url returned malformed feed with no entries")
	}
	return nil
}

func validateForumURL(ctx context.Context, forumURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, forumURL+".json?limit=1", nil)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "build forum validation request", err)
	}
	req.Header.Set("User-Agent", "prismisd/1.0")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "subreddit unreachable", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusForbidden, http.StatusTooManyRequests:
		return apperr.New(apperr.KindValidation, fmt.Sprintf("subreddit not accessible (status %d)", resp.StatusCode))
	}
	return nil
}

func validateVideoURL(videoURL string) error {
	u, err := url.Parse(videoURL)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "video url did not parse", err)
	}
	path := strings.Trim(u.Path, "/")
	if path == "watch" || strings.Contains(u.RawQuery, "v=") {
		return apperr.New(apperr.KindValidation, "video url must be a channel, not a watch url")
	}
	return nil
}

func validateFileURL(fileURL string) error {
	u, err := url.Parse(fileURL)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "file url did not parse", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperr.New(apperr.KindValidation, "file url must use http or https")
	}
	if !strings.HasSuffix(u.Path, ".md") && !strings.HasSuffix(u.Path, ".txt") {
		return apperr.New(apperr.KindValidation, "file url must end in .md or .txt")
	}
	return nil
}
