//nolint:testpackage // Testing internal parser requires same package access
package gmail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/alerthub/internal/domain"
)

// alertBlock builds a schema.org Article table row the way Google Alerts
// emails do.
func alertBlock(title, href, publisher, desc string) string {
	return `<tr itemscope itemtype="http://schema.org/Article">
		<td>
			<a href="` + href + `"><span itemprop="name">` + title + `</span></a>
			<div itemprop="publisher" itemscope><span itemprop="name">` + publisher + `</span></div>
			<div itemprop="description">` + desc + `</div>
		</td>
	</tr>`
}

func testMetadata() Metadata {
	return Metadata{
		Subject: "Google Alert - palantir",
		Date:    time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC),
		ID:      "msg-123",
	}
}

func TestParse_ExtractsArticles(t *testing.T) {
	html := `<html><body>
		<span style="font-size:12px;color:#737373"> NEWS </span>
		<table>` +
		alertBlock(
			"Palantir <b>expands</b> in Brazil",
			"https://www.google.com/url?url=https%3A%2F%2Fexample.com%2Fpalantir&amp;ct=ga&amp;cd=x&amp;usg=AOv",
			"Example News",
			"The company announced &quot;new offices&quot; in S&#227;o Paulo.",
		) +
		alertBlock(
			"Second story",
			"https://other.example.org/story?utm_source=alerts",
			"Other",
			"More details.",
		) +
		`</table></body></html>`

	articles := Parse(html, testMetadata())
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "Palantir expands in Brazil", first.Title)
	assert.Equal(t, "https://example.com/palantir", first.CanonicalURL)
	assert.True(t, first.Valid)
	assert.Equal(t, "Example News", first.Publisher)
	assert.Equal(t, `The company announced "new offices" in São Paulo.`, first.Description)
	assert.Equal(t, "NEWS", first.AlertType)
	assert.Equal(t, domain.SourceGmailAlert, first.SourceType)
	assert.Equal(t, "msg-123", first.SourceDocumentID)
	assert.Equal(t, testMetadata().Date, first.PublishedAt)

	second := articles[1]
	assert.Equal(t, "https://other.example.org/story", second.CanonicalURL)
	assert.Equal(t, "NEWS", second.AlertType)
}

func TestParse_SkipsMalformedBlocks(t *testing.T) {
	html := `<html><body><table>` +
		// Missing title span.
		`<tr itemscope itemtype="http://schema.org/Article"><td><a href="https://example.com/no-title">x</a></td></tr>` +
		// Non-http link.
		alertBlock("Has title", "mailto:editor@example.com", "P", "d") +
		// Missing href entirely.
		`<tr itemscope itemtype="http://schema.org/Article"><td><span itemprop="name">No link</span></td></tr>` +
		// The one valid block.
		alertBlock("Valid story", "https://example.com/ok", "P", "d") +
		`</table></body></html>`

	articles := Parse(html, testMetadata())
	require.Len(t, articles, 1)
	assert.Equal(t, "Valid story", articles[0].Title)
}

func TestParse_AlertTypeDefaultsToUnknown(t *testing.T) {
	html := `<html><body><table>` +
		alertBlock("Story", "https://example.com/a", "P", "d") +
		`</table></body></html>`

	articles := Parse(html, testMetadata())
	require.Len(t, articles, 1)
	assert.Equal(t, domain.AlertTypeUnknown, articles[0].AlertType)
}

func TestParse_IgnoresNonMatchingStyleSpans(t *testing.T) {
	html := `<html><body>
		<span style="font-size:12px;color:#737373">not a label</span>
		<span style="font-size:12px;color:#737373">WEB</span>
		<table>` + alertBlock("Story", "https://example.com/a", "P", "d") + `</table>
	</body></html>`

	articles := Parse(html, testMetadata())
	require.Len(t, articles, 1)
	assert.Equal(t, "WEB", articles[0].AlertType)
}

func TestParse_EmptyAndGarbageDocuments(t *testing.T) {
	assert.Empty(t, Parse("", testMetadata()))
	assert.Empty(t, Parse("<html><body><p>no alerts here</p></body></html>", testMetadata()))
	assert.Empty(t, Parse("<<<<>>>> not html at all &&& <tr", testMetadata()))
}

func TestParse_OptionalFieldsBecomeEmptyStrings(t *testing.T) {
	html := `<html><body><table>
		<tr itemscope itemtype="http://schema.org/Article"><td>
			<a href="https://example.com/bare"><span itemprop="name">Bare story</span></a>
		</td></tr>
	</table></body></html>`

	articles := Parse(html, testMetadata())
	require.Len(t, articles, 1)
	assert.Empty(t, articles[0].Publisher)
	assert.Empty(t, articles[0].Description)
}
