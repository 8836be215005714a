package fetch

import (
	"strings"
	"testing"
)

func TestSubredditName(t *testing.T) {
	cases := map[string]string{
		"https://www.reddit.com/r/golang/": "golang",
		"https://www.reddit.com/r/golang":  "golang",
		"https://reddit.com/r/golang/new":  "golang",
		"not a url \x7f":                   "",
	}
	for input, want := range cases {
		if got := subredditName(input); got != want {
			t.Errorf("subredditName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSkipPostStickied(t *testing.T) {
	if !skipPost(true, "https://example.com/a", "/r/x/comments/1/a/") {
		t.Fatal("expected stickied post to be skipped")
	}
}

func TestSkipPostImageDomain(t *testing.T) {
	if !skipPost(false, "https://i.redd.it/abc.jpg", "/r/x/comments/1/a/") {
		t.Fatal("expected i.redd.it link to be skipped")
	}
}

func TestSkipPostImageExtension(t *testing.T) {
	if !skipPost(false, "https://cdn.example.com/abc.png", "/r/x/comments/1/a/") {
		t.Fatal("expected .png link to be skipped")
	}
}

func TestSkipPostOrdinaryLinkKept(t *testing.T) {
	if skipPost(false, "https://news.example.com/article", "/r/x/comments/1/a/") {
		t.Fatal("expected ordinary article link not to be skipped")
	}
}

func TestIsDeletedBody(t *testing.T) {
	for _, body := range []string{"", "[deleted]", "[removed]"} {
		if !isDeletedBody(body) {
			t.Errorf("isDeletedBody(%q) = false, want true", body)
		}
	}
	if isDeletedBody("a real comment") {
		t.Fatal("isDeletedBody() = true for real comment")
	}
}

func TestRenderCommentsSkipsDeletedAndRespectsMax(t *testing.T) {
	comments := []redditComment{
		{Author: "a", Body: "[deleted]"},
		{Author: "b", Body: "first"},
		{Author: "c", Body: "second"},
		{Author: "d", Body: "third"},
	}
	out := renderComments(comments, 2)
	if out == "" {
		t.Fatal("expected non-empty rendering")
	}
	if strings.Count(out, "u/") != 2 {
		t.Fatalf("expected 2 rendered comments, got rendering: %q", out)
	}
}

func TestRenderCommentsEmptyWhenAllDeleted(t *testing.T) {
	comments := []redditComment{{Author: "a", Body: "[deleted]"}}
	if out := renderComments(comments, 0); out != "" {
		t.Fatalf("expected empty string, got %q", out)
	}
}

