package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/alerthub/internal/domain"
)

// FeedRepository handles database operations for registered RSS feeds.
type FeedRepository struct {
	db *sqlx.DB
}

// NewFeedRepository creates a new feed repository.
func NewFeedRepository(db *sqlx.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// ListEnabled returns all feeds enabled for polling.
func (r *FeedRepository) ListEnabled(ctx context.Context) ([]domain.Feed, error) {
	query := `
		SELECT id, name, url, enabled, last_fetched_at, created_at
		FROM rss_feeds
		WHERE enabled
		ORDER BY name
	`

	var feeds []domain.Feed
	if selectErr := r.db.SelectContext(ctx, &feeds, query); selectErr != nil {
		return nil, fmt.Errorf("list enabled feeds: %w", selectErr)
	}

	return feeds, nil
}

// TouchFetched records a completed fetch attempt for the feed.
func (r *FeedRepository) TouchFetched(ctx context.Context, feedID string, fetchedAt time.Time) error {
	query := `UPDATE rss_feeds SET last_fetched_at = $1 WHERE id = $2`

	if _, updateErr := r.db.ExecContext(ctx, query, fetchedAt, feedID); updateErr != nil {
		return fmt.Errorf("touch feed: %w", updateErr)
	}

	return nil
}
