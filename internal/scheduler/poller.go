// Package scheduler runs the periodic RSS feed poller.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/alerthub/internal/domain"
	"github.com/jonesrussell/alerthub/internal/feed"
	"github.com/jonesrussell/alerthub/internal/logger"
	"github.com/jonesrussell/alerthub/internal/service"
)

// pollTimeout bounds one full polling pass across all feeds.
const pollTimeout = 5 * time.Minute

// FeedStore lists registered feeds and records fetch attempts.
type FeedStore interface {
	ListEnabled(ctx context.Context) ([]domain.Feed, error)
	TouchFetched(ctx context.Context, feedID string, fetchedAt time.Time) error
}

// Ingester turns a fetched feed document into clustered alerts.
type Ingester interface {
	IngestFeed(ctx context.Context, feedID, xmlBody string) (*service.IngestResult, error)
}

// Poller fetches every enabled feed on a cron schedule and hands the
// documents to the ingest service.
type Poller struct {
	feeds    FeedStore
	fetcher  *feed.Fetcher
	ingester Ingester
	cron     *cron.Cron
	schedule string
	logger   logger.Logger
}

// NewPoller creates a feed poller with a standard 5-field cron schedule.
func NewPoller(feeds FeedStore, fetcher *feed.Fetcher, ingester Ingester, schedule string, log logger.Logger) *Poller {
	return &Poller{
		feeds:    feeds,
		fetcher:  fetcher,
		ingester: ingester,
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		schedule: schedule,
		logger:   log,
	}
}

// Start schedules polling and begins running. The first pass happens on
// the first cron tick, not immediately.
func (p *Poller) Start() error {
	_, addErr := p.cron.AddFunc(p.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
		defer cancel()
		p.PollAll(ctx)
	})
	if addErr != nil {
		return addErr
	}

	p.cron.Start()
	p.logger.Info("feed poller started", logger.String("schedule", p.schedule))
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
	p.logger.Info("feed poller stopped")
}

// PollAll fetches and ingests every enabled feed once. Individual feed
// failures are logged and skipped; one broken feed never blocks the rest.
func (p *Poller) PollAll(ctx context.Context) {
	feeds, listErr := p.feeds.ListEnabled(ctx)
	if listErr != nil {
		p.logger.Error("failed to list feeds", logger.Error(listErr))
		return
	}

	for i := range feeds {
		p.pollOne(ctx, &feeds[i])
	}
}

func (p *Poller) pollOne(ctx context.Context, f *domain.Feed) {
	body, fetchErr := p.fetcher.Fetch(ctx, f.URL)
	if fetchErr != nil {
		p.logger.Error("feed fetch failed",
			logger.String("feed_id", f.ID),
			logger.String("url", f.URL),
			logger.Error(fetchErr),
		)
		return
	}

	result, ingestErr := p.ingester.IngestFeed(ctx, f.ID, body)

	var failedErr *service.IngestionFailedError
	switch {
	case errors.As(ingestErr, &failedErr):
		p.logger.Warn("feed ingested with unclustered alerts",
			logger.String("feed_id", f.ID),
			logger.Strings("unclustered_ids", failedErr.AlertIDs),
		)
	case ingestErr != nil:
		p.logger.Error("feed ingest failed",
			logger.String("feed_id", f.ID),
			logger.Error(ingestErr),
		)
		return
	}

	p.logger.Info("feed polled",
		logger.String("feed_id", f.ID),
		logger.Int("parsed", result.Parsed),
		logger.Int("ingested", result.Ingested),
		logger.Int("clustered", result.Clustered),
	)

	if touchErr := p.feeds.TouchFetched(ctx, f.ID, time.Now().UTC()); touchErr != nil {
		p.logger.Error("failed to record fetch time",
			logger.String("feed_id", f.ID),
			logger.Error(touchErr),
		)
	}
}
