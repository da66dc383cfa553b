// Package feed provides RSS feed parsing and fetching for the ingestion
// pipeline.
package feed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"

	"github.com/jonesrussell/alerthub/internal/domain"
	"github.com/jonesrussell/alerthub/internal/urlutil"
)

// mediaExtension keys for media:content image lookup.
const (
	mediaExtNamespace = "media"
	mediaExtContent   = "content"
	mediaExtURLAttr   = "url"
)

// imageMIMEPrefix identifies enclosures that carry an image.
const imageMIMEPrefix = "image/"

// protocolRelativePrefix marks scheme-less URLs upgraded to https.
const protocolRelativePrefix = "//"

// titleSuffixPattern strips the trailing " - Source" or " | Source" suffix
// aggregators append to item titles.
var titleSuffixPattern = regexp.MustCompile(` [\-|] [^\-|]+$`)

// Parse extracts article candidates from RSS 2.0 XML, in document order.
// Items missing both title and link are dropped silently; a publication
// date that fails to parse falls back to the current processing time. The
// returned error is non-nil only when the document itself cannot be
// parsed as a feed.
func Parse(xmlBody, feedID string) ([]domain.Article, error) {
	return parseAt(xmlBody, feedID, time.Now().UTC())
}

func parseAt(xmlBody, feedID string, now time.Time) ([]domain.Article, error) {
	parser := &rss.Parser{}

	parsed, parseErr := parser.Parse(strings.NewReader(xmlBody))
	if parseErr != nil {
		return nil, fmt.Errorf("parse feed: %w", parseErr)
	}

	articles := make([]domain.Article, 0, len(parsed.Items))

	for _, item := range parsed.Items {
		title := cleanTitle(item.Title)
		link := strings.TrimSpace(item.Link)

		if title == "" || link == "" {
			continue
		}

		canonical := urlutil.Canonicalize(link)

		articles = append(articles, domain.Article{
			Title:            title,
			Description:      stripHTML(item.Description),
			Publisher:        extractPublisher(item, link),
			SourceURL:        extractSourceURL(item),
			RawURL:           link,
			CanonicalURL:     canonical.Canonical,
			Valid:            canonical.Valid,
			SourceType:       domain.SourceRSS,
			GUID:             extractGUID(item, link),
			ImageURL:         extractImage(item),
			Categories:       extractCategories(item),
			PublishedAt:      publishedAt(item, now),
			SourceDocumentID: feedID,
		})
	}

	return articles, nil
}

// cleanTitle strips markup and the aggregator-appended source suffix.
func cleanTitle(raw string) string {
	title := stripHTML(raw)
	return strings.TrimSpace(titleSuffixPattern.ReplaceAllString(title, ""))
}

// extractPublisher prefers the item's <source> name, falling back to the
// link's domain.
func extractPublisher(item *rss.Item, link string) string {
	if item.Source != nil && strings.TrimSpace(item.Source.Title) != "" {
		return strings.TrimSpace(item.Source.Title)
	}
	return domain.ExtractDomain(link)
}

// extractSourceURL returns the feed URL declared in the item's <source>
// tag, if any.
func extractSourceURL(item *rss.Item) string {
	if item.Source == nil {
		return ""
	}
	return strings.TrimSpace(item.Source.URL)
}

// extractGUID returns the item GUID, defaulting to the link when absent.
func extractGUID(item *rss.Item, link string) string {
	if item.GUID != nil && strings.TrimSpace(item.GUID.Value) != "" {
		return strings.TrimSpace(item.GUID.Value)
	}
	return link
}

// extractCategories returns the non-empty category values of an item.
func extractCategories(item *rss.Item) []string {
	if len(item.Categories) == 0 {
		return nil
	}

	categories := make([]string, 0, len(item.Categories))
	for _, cat := range item.Categories {
		if value := strings.TrimSpace(stripHTML(cat.Value)); value != "" {
			categories = append(categories, value)
		}
	}

	if len(categories) == 0 {
		return nil
	}
	return categories
}

// extractImage resolves an item's image URL, trying media:content first,
// then an image enclosure, then the first <img> inside the entity-decoded
// description. Protocol-relative URLs are upgraded to https. Returns an
// empty string when no image is found.
func extractImage(item *rss.Item) string {
	imageURL := mediaContentURL(item)

	if imageURL == "" && item.Enclosure != nil &&
		strings.HasPrefix(item.Enclosure.Type, imageMIMEPrefix) {
		imageURL = item.Enclosure.URL
	}

	if imageURL == "" {
		imageURL = inlineImageURL(urlutil.DecodeEntities(item.Description))
	}

	if strings.HasPrefix(imageURL, protocolRelativePrefix) {
		imageURL = "https:" + imageURL
	}

	return imageURL
}

// mediaContentURL returns the url attribute of the first media:content
// extension element, if present.
func mediaContentURL(item *rss.Item) string {
	contents, ok := item.Extensions[mediaExtNamespace][mediaExtContent]
	if !ok {
		return ""
	}

	for _, content := range contents {
		if u := content.Attrs[mediaExtURLAttr]; u != "" {
			return u
		}
	}

	return ""
}

// inlineImagePattern finds the src of the first <img> tag in raw HTML.
var inlineImagePattern = regexp.MustCompile(`(?i)<img[^>]+src\s*=\s*["']([^"']+)["']`)

// inlineImageURL extracts the first <img src> from raw HTML, if any.
func inlineImageURL(rawHTML string) string {
	match := inlineImagePattern.FindStringSubmatch(rawHTML)
	if match == nil {
		return ""
	}
	return match[1]
}

// publishedAt returns the parsed publication date, falling back to now.
func publishedAt(item *rss.Item, now time.Time) time.Time {
	if item.PubDateParsed != nil {
		return item.PubDateParsed.UTC()
	}
	return now
}

// Tag-stripping patterns shared by description and title cleaning.
var (
	scriptPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	stylePattern  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// stripHTML decodes entities and removes markup from a tag body, leaving
// single-spaced plain text.
func stripHTML(raw string) string {
	if raw == "" {
		return ""
	}

	text := urlutil.DecodeEntities(raw)
	text = scriptPattern.ReplaceAllString(text, "")
	text = stylePattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}
