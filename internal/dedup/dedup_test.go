//nolint:testpackage // Testing internal helpers requires same package access
package dedup

import (
	"testing"

	"github.com/jonesrussell/alerthub/internal/domain"
)

func TestDedupe_SameCanonicalDifferentRaw(t *testing.T) {
	articles := []domain.Article{
		{
			Title:        "Story from alert",
			RawURL:       "https://www.google.com/url?url=https://example.com/story&ct=ga",
			CanonicalURL: "https://example.com/story",
			Valid:        true,
		},
		{
			Title:        "Story from feed",
			RawURL:       "https://example.com/story?utm_source=rss",
			CanonicalURL: "https://example.com/story",
			Valid:        true,
		},
	}

	got := Dedupe(articles)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Title != "Story from alert" {
		t.Errorf("first occurrence should win, got %q", got[0].Title)
	}
}

func TestDedupe_InvalidFallsBackToRawURL(t *testing.T) {
	articles := []domain.Article{
		{Title: "a", RawURL: "bad-url-1", Valid: false},
		{Title: "b", RawURL: "bad-url-2", Valid: false},
		{Title: "c", RawURL: "bad-url-1", Valid: false},
	}

	got := Dedupe(articles)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Title != "a" || got[1].Title != "b" {
		t.Errorf("order not preserved: %v", got)
	}
}

func TestDedupe_Empty(t *testing.T) {
	if got := Dedupe(nil); len(got) != 0 {
		t.Errorf("Dedupe(nil) = %v, want empty", got)
	}
}
