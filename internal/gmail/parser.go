// Package gmail extracts article candidates from Google Alerts emails.
package gmail

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/alerthub/internal/domain"
	"github.com/jonesrussell/alerthub/internal/urlutil"
)

// Metadata describes the email an alert document came from.
type Metadata struct {
	Subject string
	Date    time.Time
	ID      string
}

// Selectors for the schema.org Article microdata Google Alerts embed in
// table rows.
const (
	articleBlockSelector = `tr[itemtype='http://schema.org/Article']`
	titleSelector        = `span[itemprop='name']`
	linkSelector         = `a[href]`
	publisherSelector    = `div[itemprop='publisher'] span[itemprop='name']`
	descriptionSelector  = `div[itemprop='description']`
)

// alertTypeSelector matches the style signature Google uses for the
// document-level alert type label (NEWS, WEB, ...).
const alertTypeSelector = `span[style='font-size:12px;color:#737373']`

// alertTypePattern accepts only an all-caps token as an alert type label.
var alertTypePattern = regexp.MustCompile(`^[A-Z]+$`)

// httpPrefix is required on every extracted destination link.
const httpPrefix = "http"

// Parse extracts article candidates from a Google Alert email body, in
// document order. Malformed or partial markup never fails the parse:
// blocks missing a title or an http link are skipped, unmatched optional
// fields become empty strings, and a zero-yield document returns an empty
// slice.
func Parse(htmlBody string, meta Metadata) []domain.Article {
	doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if parseErr != nil {
		return nil
	}

	alertType := extractAlertType(doc)
	var articles []domain.Article

	doc.Find(articleBlockSelector).Each(func(_ int, block *goquery.Selection) {
		title := cleanText(block.Find(titleSelector).First().Text())
		rawURL, _ := block.Find(linkSelector).First().Attr("href")

		if title == "" || !strings.HasPrefix(rawURL, httpPrefix) {
			return
		}

		canonical := urlutil.Canonicalize(rawURL)

		articles = append(articles, domain.Article{
			Title:            title,
			Description:      cleanText(block.Find(descriptionSelector).First().Text()),
			Publisher:        cleanText(block.Find(publisherSelector).First().Text()),
			RawURL:           rawURL,
			CanonicalURL:     canonical.Canonical,
			Valid:            canonical.Valid,
			SourceType:       domain.SourceGmailAlert,
			AlertType:        alertType,
			PublishedAt:      meta.Date,
			SourceDocumentID: meta.ID,
		})
	})

	return articles
}

// extractAlertType finds the document-level alert type label, returning
// the UNKNOWN sentinel when no span matches the known style signature.
func extractAlertType(doc *goquery.Document) string {
	alertType := domain.AlertTypeUnknown

	doc.Find(alertTypeSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label := strings.TrimSpace(s.Text())
		if alertTypePattern.MatchString(label) {
			alertType = label
			return false
		}
		return true
	})

	return alertType
}

// whitespaceRun collapses runs of whitespace left behind by stripped tags.
var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanText normalizes extracted node text: entities are already decoded
// by the HTML parser, so only whitespace needs collapsing.
func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
