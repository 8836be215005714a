package fetch

import (
	"testing"
	"time"
)

func TestParseDiscoveryOutput(t *testing.T) {
	out := "abc123|My Video|600|20240115|1000|https://www.youtube.com/watch?v=abc123\n" +
		"def456|Another|45|20231201|250|https://www.youtube.com/watch?v=def456\n\nbad|line\n"
	stubs := parseDiscoveryOutput(out)
	if len(stubs) != 2 {
		t.Fatalf("expected 2 stubs, got %d: %+v", len(stubs), stubs)
	}
	if stubs[0].ID != "abc123" || stubs[0].Title != "My Video" || stubs[0].ViewCount != 1000 || stubs[0].Duration != 600 {
		t.Fatalf("unexpected first stub: %+v", stubs[0])
	}
	if stubs[0].URL != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("unexpected first stub url: %q", stubs[0].URL)
	}
}

func TestParseUploadDate(t *testing.T) {
	fallback := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	got := parseUploadDate("20240115", fallback)
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("parseUploadDate() = %v, want %v", got, want)
	}
	if got := parseUploadDate("garbage", fallback); !got.Equal(fallback) {
		t.Fatalf("parseUploadDate() invalid input = %v, want fallback %v", got, fallback)
	}
}

func TestSubtitlesToTextStripsStructure(t *testing.T) {
	vtt := "WEBVTT\nKind: captions\nLanguage: en\n\n00:00:01.000 --> 00:00:03.000\nHello <00:00:01.500>world\n\n00:00:03.000 --> 00:00:05.000\nHello <00:00:01.500>world\n\n00:00:05.000 --> 00:00:07.000\nThis is new\n"
	got := subtitlesToText(vtt)
	want := "Hello world This is new"
	if got != want {
		t.Fatalf("subtitlesToText() = %q, want %q", got, want)
	}
}

func TestSubtitlesToTextHandlesSRTIndices(t *testing.T) {
	srt := "1\n00:00:01,000 --> 00:00:03,000\nFirst line\n\n2\n00:00:03,000 --> 00:00:05,000\nSecond line\n"
	got := subtitlesToText(srt)
	want := "First line Second line"
	if got != want {
		t.Fatalf("subtitlesToText() = %q, want %q", got, want)
	}
}
