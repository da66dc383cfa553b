// Package service orchestrates document ingestion: parsing, intra-batch
// deduplication, persistence, and clustering.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonesrussell/alerthub/internal/cluster"
	"github.com/jonesrussell/alerthub/internal/dedup"
	"github.com/jonesrussell/alerthub/internal/domain"
	"github.com/jonesrussell/alerthub/internal/feed"
	"github.com/jonesrussell/alerthub/internal/gmail"
	"github.com/jonesrussell/alerthub/internal/logger"
	"github.com/jonesrussell/alerthub/internal/retry"
	"github.com/jonesrussell/alerthub/internal/telemetry"
)

// Feed ingestion defaults.
const (
	// DefaultRecencyCutoff discards feed items older than this before
	// clustering.
	DefaultRecencyCutoff = 12 * time.Hour
	// DefaultMaxPerFetch caps the number of feed items ingested per fetch.
	DefaultMaxPerFetch = 50
)

// AlertStore is the persistence interface for ingested alerts.
type AlertStore interface {
	Insert(ctx context.Context, alert *domain.Alert) error
	ExistsByDedupeKey(ctx context.Context, dedupeKey, sourceDocumentID string) (bool, error)
}

// Clusterer assigns a persisted alert to a story cluster.
type Clusterer interface {
	Assign(ctx context.Context, cand cluster.Candidate) (string, error)
}

// EmailDocument is a raw Google Alert email handed over by the mail sync
// collaborator.
type EmailDocument struct {
	ID       string
	Subject  string
	Date     time.Time
	HTMLBody string
}

// IngestResult summarizes one ingest batch.
type IngestResult struct {
	Parsed    int      `json:"parsed"`
	Skipped   int      `json:"skipped"`
	Ingested  int      `json:"ingested"`
	Clustered int      `json:"clustered"`
	AlertIDs  []string `json:"alert_ids,omitempty"`
}

// IngestionFailedError reports alerts that were persisted but could not be
// clustered after bounded retries. The alerts remain pending and are safe
// to re-cluster later.
type IngestionFailedError struct {
	AlertIDs []string
}

func (e *IngestionFailedError) Error() string {
	return fmt.Sprintf("ingestion incomplete: %d alerts unclustered: %s",
		len(e.AlertIDs), strings.Join(e.AlertIDs, ", "))
}

// Config tunes feed ingestion and storage retries.
type Config struct {
	// RecencyCutoff drops feed items published before now minus cutoff.
	RecencyCutoff time.Duration
	// MaxPerFetch caps feed items ingested per fetch.
	MaxPerFetch int
	// Retry bounds attempts against the persistence layer.
	Retry retry.Config
}

// IngestService turns raw source documents into pending clustered alerts.
type IngestService struct {
	alerts    AlertStore
	clusterer Clusterer
	cfg       Config
	metrics   *telemetry.Metrics
	logger    logger.Logger
}

// NewIngestService creates a new ingest service. Zero config values fall
// back to the defaults; metrics may be nil.
func NewIngestService(alerts AlertStore, clusterer Clusterer, cfg Config, metrics *telemetry.Metrics, log logger.Logger) *IngestService {
	if cfg.RecencyCutoff <= 0 {
		cfg.RecencyCutoff = DefaultRecencyCutoff
	}
	if cfg.MaxPerFetch <= 0 {
		cfg.MaxPerFetch = DefaultMaxPerFetch
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	return &IngestService{
		alerts:    alerts,
		clusterer: clusterer,
		cfg:       cfg,
		metrics:   metrics,
		logger:    log,
	}
}

// IngestEmails parses a batch of Google Alert emails and persists and
// clusters the extracted articles. A malformed email contributes nothing
// but never fails the batch.
func (s *IngestService) IngestEmails(ctx context.Context, docs []EmailDocument) (*IngestResult, error) {
	var candidates []domain.Article
	parsed := 0

	for i := range docs {
		doc := &docs[i]
		articles := gmail.Parse(doc.HTMLBody, gmail.Metadata{
			Subject: doc.Subject,
			Date:    doc.Date,
			ID:      doc.ID,
		})

		deduped := dedup.Dedupe(articles)
		parsed += len(articles)
		s.metrics.RecordParsed(string(domain.SourceGmailAlert), len(articles))
		s.metrics.RecordSkipped(string(domain.SourceGmailAlert), telemetry.SkipDuplicate, len(articles)-len(deduped))

		candidates = append(candidates, deduped...)
	}

	// The same story can arrive in several emails of one batch, so the
	// merged candidates get a second dedupe pass.
	merged := dedup.Dedupe(candidates)
	s.metrics.RecordSkipped(string(domain.SourceGmailAlert), telemetry.SkipDuplicate, len(candidates)-len(merged))

	// Parsed counts raw extracted articles; every dedupe drop lands in
	// Skipped so the two source paths report identically.
	result := &IngestResult{
		Parsed:  parsed,
		Skipped: parsed - len(merged),
	}
	return s.persistAndCluster(ctx, merged, string(domain.SourceGmailAlert), result)
}

// IngestFeed parses one fetched RSS document and persists and clusters the
// extracted articles. Items older than the recency cutoff are discarded,
// and at most MaxPerFetch items survive per call.
func (s *IngestService) IngestFeed(ctx context.Context, feedID, xmlBody string) (*IngestResult, error) {
	articles, parseErr := feed.Parse(xmlBody, feedID)
	if parseErr != nil {
		return nil, fmt.Errorf("ingest feed %s: %w", feedID, parseErr)
	}

	s.metrics.RecordParsed(string(domain.SourceRSS), len(articles))

	deduped := dedup.Dedupe(articles)
	s.metrics.RecordSkipped(string(domain.SourceRSS), telemetry.SkipDuplicate, len(articles)-len(deduped))

	fresh := s.filterRecent(deduped, time.Now().UTC())
	s.metrics.RecordSkipped(string(domain.SourceRSS), telemetry.SkipStale, len(deduped)-len(fresh))

	if len(fresh) > s.cfg.MaxPerFetch {
		s.metrics.RecordSkipped(string(domain.SourceRSS), telemetry.SkipOverCap, len(fresh)-s.cfg.MaxPerFetch)
		fresh = fresh[:s.cfg.MaxPerFetch]
	}

	result := &IngestResult{
		Parsed:  len(articles),
		Skipped: len(articles) - len(fresh),
	}
	return s.persistAndCluster(ctx, fresh, string(domain.SourceRSS), result)
}

// filterRecent keeps articles published at or after the recency cutoff.
func (s *IngestService) filterRecent(articles []domain.Article, now time.Time) []domain.Article {
	cutoff := now.Add(-s.cfg.RecencyCutoff)

	fresh := articles[:0:len(articles)]
	for _, article := range articles {
		if !article.PublishedAt.Before(cutoff) {
			fresh = append(fresh, article)
		}
	}

	return fresh
}

// persistAndCluster stores each candidate as a pending alert, then submits
// the stored alerts to the clustering engine sequentially in ascending
// publish-time order. Out-of-order submission could split one story into
// two groups, so the sort is not optional.
func (s *IngestService) persistAndCluster(ctx context.Context, candidates []domain.Article, source string, result *IngestResult) (*IngestResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveIngestBatch(time.Since(start)) }()

	var stored []domain.Alert

	for i := range candidates {
		alert, persisted, persistErr := s.persist(ctx, &candidates[i])
		if persistErr != nil {
			return result, persistErr
		}
		if !persisted {
			result.Skipped++
			s.metrics.RecordSkipped(source, telemetry.SkipDuplicate, 1)
			continue
		}
		stored = append(stored, *alert)
	}

	result.Ingested = len(stored)
	s.metrics.RecordIngested(source, len(stored))

	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].PublishedAt.Before(stored[j].PublishedAt)
	})

	var failed []string
	for i := range stored {
		alert := &stored[i]
		result.AlertIDs = append(result.AlertIDs, alert.ID)

		if clusterErr := s.assignCluster(ctx, alert); clusterErr != nil {
			s.metrics.RecordClusteringFailure()
			s.logger.Error("clustering failed",
				logger.String("alert_id", alert.ID),
				logger.Error(clusterErr),
			)
			failed = append(failed, alert.ID)
			continue
		}
		result.Clustered++
	}

	if len(failed) > 0 {
		return result, &IngestionFailedError{AlertIDs: failed}
	}

	return result, nil
}

// persist inserts the candidate as a pending alert unless an alert with
// the same dedupe key already exists for the source document.
func (s *IngestService) persist(ctx context.Context, article *domain.Article) (*domain.Alert, bool, error) {
	exists, checkErr := s.alerts.ExistsByDedupeKey(ctx, article.DedupeKey(), article.SourceDocumentID)
	if checkErr != nil {
		return nil, false, fmt.Errorf("check duplicate: %w", checkErr)
	}
	if exists {
		return nil, false, nil
	}

	alert := &domain.Alert{
		Title:            article.Title,
		Description:      article.Description,
		Publisher:        article.Publisher,
		RawURL:           article.RawURL,
		CanonicalURL:     article.CanonicalURL,
		Valid:            article.Valid,
		SourceType:       article.SourceType,
		AlertType:        article.AlertType,
		GUID:             article.GUID,
		ImageURL:         article.ImageURL,
		Categories:       article.Categories,
		Status:           domain.StatusPending,
		Keywords:         domain.ExtractKeywords(article.Title + " " + article.Description),
		PublishedAt:      article.PublishedAt,
		SourceDocumentID: article.SourceDocumentID,
	}

	insertErr := retry.Do(ctx, s.cfg.Retry, func() error {
		return s.alerts.Insert(ctx, alert)
	})
	if insertErr != nil {
		return nil, false, fmt.Errorf("persist alert: %w", insertErr)
	}

	return alert, true, nil
}

// assignCluster submits one stored alert to the clustering engine with
// bounded retries on transient storage failures.
func (s *IngestService) assignCluster(ctx context.Context, alert *domain.Alert) error {
	canonicalURL := ""
	if alert.Valid {
		canonicalURL = alert.CanonicalURL
	}

	return retry.Do(ctx, s.cfg.Retry, func() error {
		groupID, assignErr := s.clusterer.Assign(ctx, cluster.Candidate{
			AlertID:      alert.ID,
			Title:        alert.Title,
			Description:  alert.Description,
			CanonicalURL: canonicalURL,
			PublishedAt:  alert.PublishedAt,
		})
		if assignErr != nil {
			return assignErr
		}

		alert.ClusterGroupID = &groupID
		return nil
	})
}
