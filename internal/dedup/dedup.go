// Package dedup removes duplicate article candidates produced by a single
// parse pass or by a merged multi-document batch.
package dedup

import "github.com/jonesrussell/alerthub/internal/domain"

// Dedupe returns a stable subsequence of articles with duplicates removed;
// the first occurrence of each key wins. The key is the canonical URL when
// valid, the raw URL otherwise, so the same rule applies per document and
// again across a merged batch.
func Dedupe(articles []domain.Article) []domain.Article {
	seen := make(map[string]bool, len(articles))
	unique := make([]domain.Article, 0, len(articles))

	for _, article := range articles {
		key := article.DedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, article)
	}

	return unique
}
