//nolint:testpackage // Testing internal models requires same package access
package domain

import (
	"reflect"
	"testing"
)

func TestStatus_IsValid(t *testing.T) {
	for _, s := range []Status{
		StatusPending, StatusExtracted, StatusClassified, StatusApproved,
		StatusNeedsReview, StatusPublished, StatusRejected,
	} {
		if !s.IsValid() {
			t.Errorf("Status(%q).IsValid() = false, want true", s)
		}
	}

	if Status("archived").IsValid() {
		t.Error(`Status("archived").IsValid() = true, want false`)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	if !StatusPublished.IsTerminal() || !StatusRejected.IsTerminal() {
		t.Error("published and rejected should be terminal")
	}
	if StatusPending.IsTerminal() || StatusNeedsReview.IsTerminal() {
		t.Error("pending and needs_review should not be terminal")
	}
}

func TestArticle_DedupeKey(t *testing.T) {
	tests := []struct {
		name    string
		article Article
		want    string
	}{
		{
			name: "valid canonical URL wins",
			article: Article{
				RawURL:       "https://google.com/url?url=https://example.com/a",
				CanonicalURL: "https://example.com/a",
				Valid:        true,
			},
			want: "https://example.com/a",
		},
		{
			name: "invalid falls back to raw URL",
			article: Article{
				RawURL: "https://example.com/b?utm_source=x",
				Valid:  false,
			},
			want: "https://example.com/b?utm_source=x",
		},
		{
			name: "valid but empty canonical falls back to raw URL",
			article: Article{
				RawURL: "https://example.com/c",
				Valid:  true,
			},
			want: "https://example.com/c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.article.DedupeKey(); got != tt.want {
				t.Errorf("DedupeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://www.example.com/story", want: "example.com"},
		{in: "https://news.example.org/a", want: "news.example.org"},
		{in: "not a url", want: "Unknown"},
		{in: "", want: "Unknown"},
	}

	for _, tt := range tests {
		if got := ExtractDomain(tt.in); got != tt.want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("Governo anuncia novo plano para a economia digital")
	want := []string{"governo", "anuncia", "novo", "plano", "economia", "digital"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractKeywords() = %v, want %v", got, want)
	}
}

func TestExtractKeywords_DedupesAndCaps(t *testing.T) {
	text := "alpha alpha beta gamma delta epsilon zeta theta iota kappa lambda omicron sigma"

	got := ExtractKeywords(text)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0] != "alpha" || got[1] != "beta" {
		t.Errorf("unexpected ordering: %v", got)
	}

	seen := map[string]bool{}
	for _, kw := range got {
		if seen[kw] {
			t.Errorf("duplicate keyword %q", kw)
		}
		seen[kw] = true
	}
}

func TestExtractKeywords_Empty(t *testing.T) {
	if got := ExtractKeywords(""); got != nil {
		t.Errorf("ExtractKeywords(\"\") = %v, want nil", got)
	}
}
