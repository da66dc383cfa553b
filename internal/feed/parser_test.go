//nolint:testpackage // Testing internal parser requires same package access
package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/alerthub/internal/domain"
)

const feedHeader = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
<title>Test Feed</title>
<link>https://feed.example.com</link>
`

const feedFooter = `</channel></rss>`

var testNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func TestParseAt_FullItem(t *testing.T) {
	xml := feedHeader + `
	<item>
		<title><![CDATA[Eleições 2026: novo debate marcado - Example News]]></title>
		<link>https://example.com/eleicoes?utm_source=rss</link>
		<description><![CDATA[<p>O <b>debate</b> acontece &quot;amanhã&quot;.</p>]]></description>
		<pubDate>Wed, 19 Aug 2026 09:30:00 GMT</pubDate>
		<source url="https://news.example.com/rss">Example News</source>
		<guid isPermaLink="false">tag:example.com,2026:1234</guid>
		<category>Política</category>
		<category>Eleições</category>
	</item>` + feedFooter

	articles, err := parseAt(xml, "feed-1", testNow)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	got := articles[0]
	assert.Equal(t, "Eleições 2026: novo debate marcado", got.Title)
	assert.Equal(t, "https://example.com/eleicoes?utm_source=rss", got.RawURL)
	assert.Equal(t, "https://example.com/eleicoes", got.CanonicalURL)
	assert.True(t, got.Valid)
	assert.Equal(t, `O debate acontece "amanhã".`, got.Description)
	assert.Equal(t, "Example News", got.Publisher)
	assert.Equal(t, "https://news.example.com/rss", got.SourceURL)
	assert.Equal(t, "tag:example.com,2026:1234", got.GUID)
	assert.Equal(t, []string{"Política", "Eleições"}, got.Categories)
	assert.Equal(t, time.Date(2026, 8, 19, 9, 30, 0, 0, time.UTC), got.PublishedAt)
	assert.Equal(t, domain.SourceRSS, got.SourceType)
	assert.Equal(t, "feed-1", got.SourceDocumentID)
}

func TestParseAt_Defaults(t *testing.T) {
	xml := feedHeader + `
	<item>
		<title>Plain story</title>
		<link>https://www.example.org/story</link>
		<pubDate>not a date</pubDate>
	</item>` + feedFooter

	articles, err := parseAt(xml, "feed-1", testNow)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	got := articles[0]
	// Publisher falls back to the link domain, guid to the link, and the
	// unparseable pubDate to the processing time.
	assert.Equal(t, "example.org", got.Publisher)
	assert.Equal(t, "https://www.example.org/story", got.GUID)
	assert.Equal(t, testNow, got.PublishedAt)
	assert.Empty(t, got.Categories)
	assert.Empty(t, got.ImageURL)
}

func TestParseAt_DropsItemsWithoutTitleAndLink(t *testing.T) {
	xml := feedHeader + `
	<item><description>only a description</description></item>
	<item><title>Has title but no link</title></item>
	<item><link>https://example.com/no-title</link></item>
	<item><title>Keeper</title><link>https://example.com/keeper</link></item>` + feedFooter

	articles, err := parseAt(xml, "feed-1", testNow)
	require.NoError(t, err)

	// An item needs a title and a link; the middle two are missing one each.
	require.Len(t, articles, 1)
	assert.Equal(t, "Keeper", articles[0].Title)
}

func TestParseAt_ImagePrecedence(t *testing.T) {
	xml := feedHeader + `
	<item>
		<title>Media content wins</title>
		<link>https://example.com/1</link>
		<media:content url="https://img.example.com/media.jpg" type="image/jpeg"/>
	</item>
	<item>
		<title>Enclosure image</title>
		<link>https://example.com/2</link>
		<enclosure url="https://img.example.com/enclosure.png" length="1000" type="image/png"/>
	</item>
	<item>
		<title>Inline image</title>
		<link>https://example.com/3</link>
		<description>&lt;p&gt;text&lt;/p&gt;&lt;img src="//img.example.com/inline.gif" alt=""&gt;</description>
	</item>
	<item>
		<title>Audio enclosure is not an image</title>
		<link>https://example.com/4</link>
		<enclosure url="https://cdn.example.com/podcast.mp3" length="1000" type="audio/mpeg"/>
	</item>` + feedFooter

	articles, err := parseAt(xml, "feed-1", testNow)
	require.NoError(t, err)
	require.Len(t, articles, 4)

	assert.Equal(t, "https://img.example.com/media.jpg", articles[0].ImageURL)
	assert.Equal(t, "https://img.example.com/enclosure.png", articles[1].ImageURL)
	// Protocol-relative inline image is upgraded to https.
	assert.Equal(t, "https://img.example.com/inline.gif", articles[2].ImageURL)
	assert.Empty(t, articles[3].ImageURL)
}

func TestParseAt_TitleSuffixStripping(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "Story headline - Publisher Name", want: "Story headline"},
		{raw: "Story headline | Publisher Name", want: "Story headline"},
		{raw: "Self-driving cars arrive", want: "Self-driving cars arrive"},
	}

	for _, tt := range tests {
		xml := feedHeader + `<item><title>` + tt.raw + `</title><link>https://example.com/x</link></item>` + feedFooter

		articles, err := parseAt(xml, "feed-1", testNow)
		require.NoError(t, err)
		require.Len(t, articles, 1)
		assert.Equal(t, tt.want, articles[0].Title)
	}
}

func TestParseAt_MalformedDocument(t *testing.T) {
	_, err := parseAt("this is not xml", "feed-1", testNow)
	assert.Error(t, err)
}
