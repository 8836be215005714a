package fetch

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prismis/prismis/internal/models"
)

// VideoFetcher enumerates a YouTube channel/handle source's recent uploads
// and fetches each one's auto-generated subtitles via the yt-dlp CLI.
type VideoFetcher struct {
	MaxItems         int
	MaxDaysLookback  int
	YtDlpPath        string
	DiscoveryTimeout time.Duration
}

// discoveryExitNoMoreMatches is the yt-dlp exit code for "stopped early
// because --break-match-filters matched a date boundary", which this
// fetcher treats as a successful, intentionally truncated enumeration
// rather than an error.
const discoveryExitNoMoreMatches = 101

// NewVideoFetcher builds a VideoFetcher. ytDlpPath may be empty, in which
// case "yt-dlp" is resolved from PATH.
func NewVideoFetcher(maxItems, maxDaysLookback int, ytDlpPath string) *VideoFetcher {
	if ytDlpPath == "" {
		ytDlpPath = "yt-dlp"
	}
	return &VideoFetcher{
		MaxItems:         maxItems,
		MaxDaysLookback:  maxDaysLookback,
		YtDlpPath:        ytDlpPath,
		DiscoveryTimeout: 60 * time.Second,
	}
}

type videoStub struct {
	ID         string
	Title      string
	Duration   int64  // seconds
	UploadDate string // YYYYMMDD
	ViewCount  int64
	URL        string
}

func (f *VideoFetcher) Fetch(ctx context.Context, source models.Source) ([]models.ContentItem, error) {
	stubs, err := f.discover(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -f.MaxDaysLookback)

	var items []models.ContentItem
	for _, s := range stubs {
		if len(items) >= f.MaxItems {
			break
		}
		published := parseUploadDate(s.UploadDate, now)
		if published.Before(cutoff) {
			continue
		}

		transcript := f.fetchTranscript(ctx, s.ID)
		videoURL := s.URL
		if videoURL == "" {
			videoURL = fmt.Sprintf("https://www.youtube.com/watch?v=%s", s.ID)
		}

		analysis := models.Analysis{Metrics: map[string]any{
			"video_id":   s.ID,
			"view_count": s.ViewCount,
			"duration":   s.Duration,
		}}
		if transcript == NoTranscriptAvailable {
			analysis.Note = NoTranscriptAvailable
		}

		items = append(items, models.ContentItem{
			ExternalID:  s.ID,
			Title:       s.Title,
			URL:         videoURL,
			Content:     transcript,
			PublishedAt: published,
			FetchedAt:   now,
			Analysis:    analysis,
		})
	}
	return items, nil
}

// discover enumerates up to MaxItems recent uploads using a pipe-delimited
// print template, bounding the scan with --break-match-filters against the
// lookback window so yt-dlp itself stops once it reaches older uploads.
func (f *VideoFetcher) discover(ctx context.Context, channelURL string) ([]videoStub, error) {
	ctx, cancel := context.WithTimeout(ctx, f.DiscoveryTimeout)
	defer cancel()

	dateBoundary := time.Now().UTC().AddDate(0, 0, -f.MaxDaysLookback).Format("20060102")
	args := []string{
		"--flat-playlist",
		"--playlist-end", strconv.Itoa(f.MaxItems),
		"--break-match-filters", fmt.Sprintf("upload_date>=%s", dateBoundary),
		"--print", "%(id)s|%(title)s|%(duration)s|%(upload_date)s|%(view_count)s|%(webpage_url)s",
		channelURL,
	}
	cmd := exec.CommandContext(ctx, f.YtDlpPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == discoveryExitNoMoreMatches {
			// boundary reached, everything printed so far is valid
		} else {
			return nil, fmt.Errorf("yt-dlp discover: %w: %s", err, stderr.String())
		}
	}

	return parseDiscoveryOutput(stdout.String()), nil
}

func parseDiscoveryOutput(out string) []videoStub {
	var stubs []videoStub
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 6)
		if len(parts) != 6 {
			continue
		}
		dur, _ := strconv.ParseInt(parts[2], 10, 64)
		views, _ := strconv.ParseInt(parts[4], 10, 64)
		stubs = append(stubs, videoStub{
			ID:         parts[0],
			Title:      parts[1],
			Duration:   dur,
			UploadDate: parts[3],
			ViewCount:  views,
			URL:        parts[5],
		})
	}
	return stubs
}

func parseUploadDate(yyyymmdd string, fallback time.Time) time.Time {
	t, err := time.Parse("20060102", yyyymmdd)
	if err != nil {
		return fallback
	}
	return t.UTC()
}

// subtitleLanguages is the English auto-subtitle variant fallback chain
// tried in order, since yt-dlp labels auto-captions differently across
// channels (plain "en", or a region variant when no plain "en" track
// exists).
var subtitleLanguages = []string{"en", "en-US", "en-GB", "en-orig"}

// fetchTranscript downloads auto-generated subtitles for videoID into a
// temp directory and converts them to plain text. On any failure it
// returns the no-transcript fallback note rather than
// propagating an error, since a single video's missing captions should
// never abort the whole source fetch.
func (f *VideoFetcher) fetchTranscript(ctx context.Context, videoID string) string {
	ctx, cancel := context.WithTimeout(ctx, transcriptTimeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "prismis-yt-"+videoID)
	if err != nil {
		return NoTranscriptAvailable
	}
	defer os.RemoveAll(dir)

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	args := []string{
		"--skip-download",
		"--write-auto-subs",
		"--sub-langs", strings.Join(subtitleLanguages, ","),
		"--sub-format", "vtt",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		videoURL,
	}
	cmd := exec.CommandContext(ctx, f.YtDlpPath, args...)
	if err := cmd.Run(); err != nil {
		return NoTranscriptAvailable
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return NoTranscriptAvailable
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, lang := range subtitleLanguages {
		for _, e := range entries {
			if strings.Contains(e.Name(), "."+lang+".") {
				data, err := os.ReadFile(filepath.Join(dir, e.Name()))
				if err != nil {
					continue
				}
				if text := subtitlesToText(string(data)); text != "" {
					return text
				}
			}
		}
	}
	return NoTranscriptAvailable
}

// NoTranscriptAvailable is the fallback content/note stored for a video
// whose auto-captions could not be fetched. Exported
// so the orchestrator can recognize it and force priority=low without
// running the item through the LLM.
const NoTranscriptAvailable = "No transcript available"

// transcriptTimeout bounds one video's subtitle download.
const transcriptTimeout = 60 * time.Second

var (
	cueTimestampRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[.,]\d{3}\s*-->`)
	vttTagRe       = regexp.MustCompile(`<[^>]+>`)
	srtIndexRe     = regexp.MustCompile(`^\d+$`)
)

// subtitlesToText strips VTT/SRT structure (headers, cue numbers,
// timestamps, inline tags) down to plain spoken text, collapsing
// consecutive duplicate lines that auto-caption rollover produces.
func subtitlesToText(raw string) string {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	var lines []string
	last := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "WEBVTT" {
			continue
		}
		if strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "Kind:") || strings.HasPrefix(line, "Language:") {
			continue
		}
		if cueTimestampRe.MatchString(line) || srtIndexRe.MatchString(line) {
			continue
		}
		line = vttTagRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" || line == last {
			continue
		}
		lines = append(lines, line)
		last = line
	}
	return strings.Join(lines, " ")
}
