// Package domain contains the core domain models for the alert ingestion
// pipeline.
package domain

import (
	"net/url"
	"strings"
	"time"
	"unicode"
)

// SourceType identifies where a raw document came from.
type SourceType string

const (
	// SourceGmailAlert marks articles extracted from Google Alerts emails.
	SourceGmailAlert SourceType = "gmail_alert"
	// SourceRSS marks articles extracted from RSS feeds.
	SourceRSS SourceType = "rss"
)

// Status represents an alert's position in the review pipeline.
type Status string

const (
	// StatusPending marks a freshly ingested alert awaiting extraction.
	StatusPending Status = "pending"
	// StatusExtracted marks an alert whose content has been fetched.
	StatusExtracted Status = "extracted"
	// StatusClassified marks an alert that has been classified.
	StatusClassified Status = "classified"
	// StatusApproved marks an alert cleared for publishing.
	StatusApproved Status = "approved"
	// StatusNeedsReview marks an alert parked for manual resolution.
	StatusNeedsReview Status = "needs_review"
	// StatusPublished marks a published alert. Terminal.
	StatusPublished Status = "published"
	// StatusRejected marks a discarded alert. Terminal.
	StatusRejected Status = "rejected"
)

// validStatuses maps every recognised Status value to true for O(1) lookup.
var validStatuses = map[Status]bool{
	StatusPending:     true,
	StatusExtracted:   true,
	StatusClassified:  true,
	StatusApproved:    true,
	StatusNeedsReview: true,
	StatusPublished:   true,
	StatusRejected:    true,
}

// IsValid reports whether s is a recognised alert status.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal reports whether no further transitions may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// AlertTypeUnknown is the sentinel used when a Google Alert email carries no
// recognisable alert type label.
const AlertTypeUnknown = "UNKNOWN"

// Article is a parsed candidate news item. It is produced by a source
// parser and consumed by the persistence boundary; it is never stored
// itself.
type Article struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Publisher        string     `json:"publisher"`
	SourceURL        string     `json:"source_url,omitempty"`
	RawURL           string     `json:"raw_url"`
	CanonicalURL     string     `json:"canonical_url"`
	Valid            bool       `json:"valid"`
	SourceType       SourceType `json:"source_type"`
	AlertType        string     `json:"alert_type,omitempty"`
	GUID             string     `json:"guid,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	Categories       []string   `json:"categories,omitempty"`
	PublishedAt      time.Time  `json:"published_at"`
	SourceDocumentID string     `json:"source_document_id"`
}

// DedupeKey returns the identity used for duplicate removal: the canonical
// URL when valid, the raw URL otherwise.
func (a *Article) DedupeKey() string {
	if a.Valid && a.CanonicalURL != "" {
		return a.CanonicalURL
	}
	return a.RawURL
}

// Alert is a persisted candidate moving through the review pipeline.
type Alert struct {
	ID                   string     `db:"id"                    json:"id"`
	Title                string     `db:"title"                 json:"title"`
	Description          string     `db:"description"           json:"description"`
	Publisher            string     `db:"publisher"             json:"publisher"`
	RawURL               string     `db:"raw_url"               json:"raw_url"`
	CanonicalURL         string     `db:"canonical_url"         json:"canonical_url"`
	Valid                bool       `db:"is_valid"              json:"is_valid"`
	SourceType           SourceType `db:"source_type"           json:"source_type"`
	AlertType            string     `db:"alert_type"            json:"alert_type,omitempty"`
	GUID                 string     `db:"guid"                  json:"guid,omitempty"`
	ImageURL             string     `db:"image_url"             json:"image_url,omitempty"`
	Categories           []string   `db:"categories"            json:"categories,omitempty"`
	Status               Status     `db:"status"                json:"status"`
	Keywords             []string   `db:"keywords"              json:"keywords"`
	ClusterGroupID       *string    `db:"cluster_group_id"      json:"cluster_group_id,omitempty"`
	QualityScore         *float64   `db:"quality_score"         json:"quality_score,omitempty"`
	PersonalizationScore *float64   `db:"personalization_score" json:"personalization_score,omitempty"`
	PublishedAt          time.Time  `db:"published_at"          json:"published_at"`
	SourceDocumentID     string     `db:"source_document_id"    json:"source_document_id"`
	CreatedAt            time.Time  `db:"created_at"            json:"created_at"`
}

// ClusterGroup is a set of alerts believed to report the same story.
type ClusterGroup struct {
	ID                    string    `db:"id"                      json:"id"`
	RepresentativeAlertID string    `db:"representative_alert_id" json:"representative_alert_id"`
	RepresentativeTitle   string    `db:"representative_title"    json:"representative_title"`
	MemberCount           int       `db:"member_count"            json:"member_count"`
	FirstSeenAt           time.Time `db:"first_seen_at"           json:"first_seen_at"`
	LastSeenAt            time.Time `db:"last_seen_at"            json:"last_seen_at"`
}

// Feed is a registered RSS source polled on a schedule.
type Feed struct {
	ID            string     `db:"id"              json:"id"`
	Name          string     `db:"name"            json:"name"`
	URL           string     `db:"url"             json:"url"`
	Enabled       bool       `db:"enabled"         json:"enabled"`
	LastFetchedAt *time.Time `db:"last_fetched_at" json:"last_fetched_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at"      json:"created_at"`
}

// unknownDomain is the fallback when a URL cannot be parsed.
const unknownDomain = "Unknown"

// wwwPrefix is the subdomain prefix stripped by ExtractDomain.
const wwwPrefix = "www."

// ExtractDomain parses rawURL and returns the hostname with any "www."
// prefix removed. On parse failure it returns "Unknown".
func ExtractDomain(rawURL string) string {
	parsed, parseErr := url.Parse(rawURL)
	if parseErr != nil || parsed.Host == "" {
		return unknownDomain
	}

	return strings.TrimPrefix(parsed.Hostname(), wwwPrefix)
}

// keywordStopwords are common Portuguese and English words excluded from
// extracted keywords.
var keywordStopwords = map[string]bool{
	"a": true, "o": true, "e": true, "de": true, "da": true, "do": true,
	"em": true, "um": true, "uma": true, "para": true, "com": true, "não": true,
	"the": true, "and": true, "or": true, "is": true, "in": true, "to": true,
	"of": true, "for": true, "on": true, "with": true, "at": true,
}

// Keyword extraction limits.
const (
	minKeywordLen = 4
	maxKeywords   = 10
)

// ExtractKeywords pulls up to ten unique lowercase terms out of free text,
// dropping stopwords and words shorter than four letters. Accented letters
// are preserved so Portuguese terms survive intact.
func ExtractKeywords(text string) []string {
	if text == "" {
		return nil
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	seen := make(map[string]bool)
	keywords := make([]string, 0, maxKeywords)

	for _, word := range strings.Fields(cleaned) {
		if len([]rune(word)) < minKeywordLen || keywordStopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}

	return keywords
}
