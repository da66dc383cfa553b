// Package pipeline governs the review lifecycle of persisted alerts.
// Every status change flows through Transition so no caller can skip a
// review stage.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/alerthub/internal/domain"
)

// ErrMissingCanonicalURL rejects extraction for alerts whose URL never
// resolved to a valid canonical form.
var ErrMissingCanonicalURL = errors.New("alert has no valid canonical url")

// InvalidTransitionError reports a status change outside the allowed
// table. The record must be left unchanged when this is returned.
type InvalidTransitionError struct {
	From domain.Status
	To   domain.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

// transitions is the full set of allowed status changes. Rejection is
// handled separately: any non-terminal status may move to rejected.
var transitions = map[domain.Status][]domain.Status{
	domain.StatusPending:     {domain.StatusExtracted},
	domain.StatusExtracted:   {domain.StatusClassified, domain.StatusNeedsReview},
	domain.StatusClassified:  {domain.StatusApproved, domain.StatusNeedsReview},
	domain.StatusApproved:    {domain.StatusPublished},
	domain.StatusNeedsReview: {domain.StatusApproved},
}

// CanTransition reports whether moving from one status to another is
// allowed by the review lifecycle.
func CanTransition(from, to domain.Status) bool {
	if to == domain.StatusRejected {
		return !from.IsTerminal()
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Validate checks a requested status change for the given alert. It
// returns an InvalidTransitionError for changes outside the lifecycle
// table, and ErrMissingCanonicalURL when extraction is requested for an
// alert without a usable canonical URL.
func Validate(alert *domain.Alert, to domain.Status) error {
	if !to.IsValid() {
		return &InvalidTransitionError{From: alert.Status, To: to}
	}
	if !CanTransition(alert.Status, to) {
		return &InvalidTransitionError{From: alert.Status, To: to}
	}
	if to == domain.StatusExtracted && alert.CanonicalURL == "" {
		return ErrMissingCanonicalURL
	}
	return nil
}

// Transition applies a validated status change to the alert in memory.
// On error the alert is untouched; persistence is the caller's job.
func Transition(alert *domain.Alert, to domain.Status) error {
	if validateErr := Validate(alert, to); validateErr != nil {
		return validateErr
	}
	alert.Status = to
	return nil
}

// StatusAfterClassification picks the post-classification status from
// the classifier's confidence against the configured review threshold.
func StatusAfterClassification(confidence, threshold float64) domain.Status {
	if confidence < threshold {
		return domain.StatusNeedsReview
	}
	return domain.StatusClassified
}

// minExtractionQuality is the quality score below which extracted content
// is parked for manual review.
const minExtractionQuality = 0.3

// reviewErrorMarkers are extraction error substrings that always require
// manual review.
var reviewErrorMarkers = []string{
	"url_resolution_failed",
	"low_quality",
	"google news",
}

// ExtractionResult summarizes one content extraction attempt.
type ExtractionResult struct {
	WordCount    int
	QualityScore float64
	Err          string
}

// NeedsReview reports whether the extraction output should be parked for
// manual review: empty content, quality below the floor, or a known
// unrecoverable error marker.
func NeedsReview(res ExtractionResult) bool {
	if res.WordCount == 0 {
		return true
	}
	if res.QualityScore < minExtractionQuality {
		return true
	}

	errLower := strings.ToLower(res.Err)
	for _, marker := range reviewErrorMarkers {
		if res.Err != "" && strings.Contains(errLower, marker) {
			return true
		}
	}

	return false
}

// StatusAfterExtraction picks the post-extraction status from the
// extraction outcome.
func StatusAfterExtraction(res ExtractionResult) domain.Status {
	if NeedsReview(res) {
		return domain.StatusNeedsReview
	}
	return domain.StatusExtracted
}
