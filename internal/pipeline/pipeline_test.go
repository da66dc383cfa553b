//nolint:testpackage // Testing internal transition table requires same package access
package pipeline

import (
	"errors"
	"testing"

	"github.com/jonesrussell/alerthub/internal/domain"
)

func TestTransition_AllowedPath(t *testing.T) {
	alert := &domain.Alert{
		Status:       domain.StatusPending,
		CanonicalURL: "https://example.com/story",
	}

	path := []domain.Status{
		domain.StatusExtracted,
		domain.StatusClassified,
		domain.StatusApproved,
		domain.StatusPublished,
	}

	for _, next := range path {
		if transitionErr := Transition(alert, next); transitionErr != nil {
			t.Fatalf("Transition(%q -> %q) error = %v", alert.Status, next, transitionErr)
		}
		if alert.Status != next {
			t.Fatalf("Status = %q, want %q", alert.Status, next)
		}
	}
}

func TestTransition_RejectsEverythingUnlisted(t *testing.T) {
	all := []domain.Status{
		domain.StatusPending,
		domain.StatusExtracted,
		domain.StatusClassified,
		domain.StatusApproved,
		domain.StatusNeedsReview,
		domain.StatusPublished,
		domain.StatusRejected,
	}

	allowed := map[domain.Status]map[domain.Status]bool{
		domain.StatusPending:     {domain.StatusExtracted: true},
		domain.StatusExtracted:   {domain.StatusClassified: true, domain.StatusNeedsReview: true},
		domain.StatusClassified:  {domain.StatusApproved: true, domain.StatusNeedsReview: true},
		domain.StatusApproved:    {domain.StatusPublished: true},
		domain.StatusNeedsReview: {domain.StatusApproved: true},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to] || (to == domain.StatusRejected && !from.IsTerminal())

			alert := &domain.Alert{Status: from, CanonicalURL: "https://example.com/a"}
			transitionErr := Transition(alert, to)

			if want && transitionErr != nil {
				t.Errorf("Transition(%q -> %q) unexpectedly rejected: %v", from, to, transitionErr)
			}
			if !want {
				var invalidErr *InvalidTransitionError
				if !errors.As(transitionErr, &invalidErr) {
					t.Errorf("Transition(%q -> %q) = %v, want InvalidTransitionError", from, to, transitionErr)
					continue
				}
				if invalidErr.From != from || invalidErr.To != to {
					t.Errorf("error carries %q -> %q, want %q -> %q",
						invalidErr.From, invalidErr.To, from, to)
				}
				if alert.Status != from {
					t.Errorf("rejected transition mutated status to %q", alert.Status)
				}
			}
		}
	}
}

func TestTransition_PendingToPublishedRejected(t *testing.T) {
	alert := &domain.Alert{Status: domain.StatusPending, CanonicalURL: "https://example.com/a"}

	transitionErr := Transition(alert, domain.StatusPublished)

	var invalidErr *InvalidTransitionError
	if !errors.As(transitionErr, &invalidErr) {
		t.Fatalf("Transition() = %v, want InvalidTransitionError", transitionErr)
	}
	if alert.Status != domain.StatusPending {
		t.Errorf("Status = %q, want pending", alert.Status)
	}
}

func TestTransition_ExtractionRequiresCanonicalURL(t *testing.T) {
	alert := &domain.Alert{Status: domain.StatusPending}

	transitionErr := Transition(alert, domain.StatusExtracted)

	if !errors.Is(transitionErr, ErrMissingCanonicalURL) {
		t.Fatalf("Transition() = %v, want ErrMissingCanonicalURL", transitionErr)
	}
	if alert.Status != domain.StatusPending {
		t.Errorf("Status = %q, want pending", alert.Status)
	}
}

func TestTransition_RejectShortcut(t *testing.T) {
	for _, from := range []domain.Status{
		domain.StatusPending,
		domain.StatusExtracted,
		domain.StatusClassified,
		domain.StatusApproved,
		domain.StatusNeedsReview,
	} {
		alert := &domain.Alert{Status: from, CanonicalURL: "https://example.com/a"}
		if transitionErr := Transition(alert, domain.StatusRejected); transitionErr != nil {
			t.Errorf("Transition(%q -> rejected) error = %v", from, transitionErr)
		}
	}
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, from := range []domain.Status{domain.StatusPublished, domain.StatusRejected} {
		alert := &domain.Alert{Status: from, CanonicalURL: "https://example.com/a"}
		if transitionErr := Transition(alert, domain.StatusRejected); transitionErr == nil {
			t.Errorf("Transition(%q -> rejected) should fail, terminal state", from)
		}
	}
}

func TestTransition_InvalidTargetStatus(t *testing.T) {
	alert := &domain.Alert{Status: domain.StatusPending, CanonicalURL: "https://example.com/a"}

	transitionErr := Transition(alert, domain.Status("archived"))

	var invalidErr *InvalidTransitionError
	if !errors.As(transitionErr, &invalidErr) {
		t.Fatalf("Transition() = %v, want InvalidTransitionError", transitionErr)
	}
}

func TestStatusAfterExtraction(t *testing.T) {
	tests := []struct {
		name string
		res  ExtractionResult
		want domain.Status
	}{
		{"good content", ExtractionResult{WordCount: 400, QualityScore: 0.8}, domain.StatusExtracted},
		{"empty content", ExtractionResult{WordCount: 0, QualityScore: 0.8}, domain.StatusNeedsReview},
		{"low quality", ExtractionResult{WordCount: 400, QualityScore: 0.1}, domain.StatusNeedsReview},
		{"quality at floor", ExtractionResult{WordCount: 400, QualityScore: 0.3}, domain.StatusExtracted},
		{
			"url resolution error",
			ExtractionResult{WordCount: 400, QualityScore: 0.8, Err: "fetch: URL_RESOLUTION_FAILED"},
			domain.StatusNeedsReview,
		},
		{
			"aggregator page",
			ExtractionResult{WordCount: 400, QualityScore: 0.8, Err: "page is a Google News interstitial"},
			domain.StatusNeedsReview,
		},
		{
			"unrelated error",
			ExtractionResult{WordCount: 400, QualityScore: 0.8, Err: "slow upstream"},
			domain.StatusExtracted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusAfterExtraction(tt.res); got != tt.want {
				t.Errorf("StatusAfterExtraction(%+v) = %q, want %q", tt.res, got, tt.want)
			}
		})
	}
}

func TestStatusAfterClassification(t *testing.T) {
	if got := StatusAfterClassification(0.9, 0.7); got != domain.StatusClassified {
		t.Errorf("high confidence = %q, want classified", got)
	}
	if got := StatusAfterClassification(0.5, 0.7); got != domain.StatusNeedsReview {
		t.Errorf("low confidence = %q, want needs_review", got)
	}
	if got := StatusAfterClassification(0.7, 0.7); got != domain.StatusClassified {
		t.Errorf("confidence at threshold = %q, want classified", got)
	}
}
