package fetch

import "testing"

func TestHashExternalIDStable(t *testing.T) {
	a := hashExternalID("https://example.com/post/1")
	b := hashExternalID("https://example.com/post/1")
	if a != b {
		t.Fatalf("hashExternalID not stable: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %d (%q)", len(a), a)
	}
}

func TestHashExternalIDDistinguishesInput(t *testing.T) {
	a := hashExternalID("https://example.com/post/1")
	b := hashExternalID("https://example.com/post/2")
	if a == b {
		t.Fatalf("expected distinct hashes for distinct input")
	}
}
