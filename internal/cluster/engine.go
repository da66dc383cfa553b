package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/alerthub/internal/domain"
	"github.com/jonesrussell/alerthub/internal/logger"
	"github.com/jonesrussell/alerthub/internal/telemetry"
)

// Default clustering tuning.
const (
	// DefaultWindow is the sliding time window within which alerts may
	// join an existing cluster.
	DefaultWindow = 72 * time.Hour
	// DefaultThreshold is the minimum normalized-title similarity for a
	// title-based join.
	DefaultThreshold = 0.4
)

// ErrAlreadyAssigned is returned by a Store when an alert's cluster slot
// was filled by a concurrent writer. The engine resolves it by re-reading
// the existing assignment.
var ErrAlreadyAssigned = errors.New("alert already assigned to a cluster")

// Candidate is the per-alert input to the clustering decision. The alert
// must already be persisted with a stable ID.
type Candidate struct {
	AlertID      string
	Title        string
	Description  string
	CanonicalURL string
	// PublishedAt is the source-reported publish time; clustering reflects
	// story recency, not processing order.
	PublishedAt time.Time
}

// Store is the persistence interface for clustering decisions.
type Store interface {
	// GetAssignment returns the alert's existing cluster group ID, if any.
	GetAssignment(ctx context.Context, alertID string) (string, bool, error)
	// FindGroupByMemberURL returns the group of a member alert with an
	// exactly matching canonical URL whose group was last seen inside
	// [since, until], or nil when none exists.
	FindGroupByMemberURL(ctx context.Context, canonicalURL string, since, until time.Time) (*domain.ClusterGroup, error)
	// ListCandidateGroups returns groups last seen inside [since, until],
	// ordered by first_seen_at ascending for deterministic matching.
	ListCandidateGroups(ctx context.Context, since, until time.Time) ([]domain.ClusterGroup, error)
	// CreateGroup inserts a new group and assigns the alert to it in one
	// transaction. Returns ErrAlreadyAssigned when the alert's slot was
	// filled concurrently.
	CreateGroup(ctx context.Context, group *domain.ClusterGroup) error
	// JoinGroup adds the alert to an existing group: increments the member
	// count, advances last_seen_at when seenAt is newer, and sets the
	// alert's group. Returns ErrAlreadyAssigned when the alert's slot was
	// filled concurrently.
	JoinGroup(ctx context.Context, groupID, alertID string, seenAt time.Time) error
}

// Config tunes the clustering decision.
type Config struct {
	// Window is the maximum gap between an alert's publish time and a
	// cluster's last-seen time for the alert to join that cluster.
	Window time.Duration
	// Threshold is the minimum title similarity for a title-based join.
	Threshold float64
}

// Engine assigns alerts to story clusters. Group lookup-then-create is a
// read-modify-write against shared state, so Assign serializes all
// decisions behind a single critical section; batch callers must also
// submit alerts in ascending publish-time order.
type Engine struct {
	store     Store
	window    time.Duration
	threshold float64
	metrics   *telemetry.Metrics
	log       logger.Logger

	mu sync.Mutex
}

// NewEngine creates a clustering engine. Zero config values fall back to
// the defaults; metrics may be nil.
func NewEngine(store Store, cfg Config, metrics *telemetry.Metrics, log logger.Logger) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}

	return &Engine{
		store:     store,
		window:    cfg.Window,
		threshold: cfg.Threshold,
		metrics:   metrics,
		log:       log,
	}
}

// Assign decides which cluster the alert belongs to and persists the
// decision, returning the cluster group ID. Match precedence: existing
// assignment (idempotency), exact canonical-URL match, normalized-title
// similarity against a candidate group's representative title, new group.
// Calling Assign twice for the same alert ID is a no-op returning the
// original group.
func (e *Engine) Assign(ctx context.Context, cand Candidate) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok, getErr := e.store.GetAssignment(ctx, cand.AlertID); getErr != nil {
		return "", fmt.Errorf("get assignment: %w", getErr)
	} else if ok {
		return existing, nil
	}

	since := cand.PublishedAt.Add(-e.window)
	until := cand.PublishedAt.Add(e.window)

	if cand.CanonicalURL != "" {
		group, findErr := e.store.FindGroupByMemberURL(ctx, cand.CanonicalURL, since, until)
		if findErr != nil {
			return "", fmt.Errorf("find group by url: %w", findErr)
		}
		if group != nil {
			return e.join(ctx, group.ID, cand)
		}
	}

	groupID, matchErr := e.matchByTitle(ctx, cand, since, until)
	if matchErr != nil {
		return "", matchErr
	}
	if groupID != "" {
		return e.join(ctx, groupID, cand)
	}

	return e.create(ctx, cand)
}

// matchByTitle returns the best candidate group whose representative title
// clears the similarity threshold, or "" when none does. Ties keep the
// oldest group so equal inputs always match the same way.
func (e *Engine) matchByTitle(ctx context.Context, cand Candidate, since, until time.Time) (string, error) {
	groups, listErr := e.store.ListCandidateGroups(ctx, since, until)
	if listErr != nil {
		return "", fmt.Errorf("list candidate groups: %w", listErr)
	}

	tokens := NormalizeTitle(cand.Title)

	bestID := ""
	bestScore := 0.0

	for i := range groups {
		score := Similarity(tokens, NormalizeTitle(groups[i].RepresentativeTitle))
		if score >= e.threshold && score > bestScore {
			bestID = groups[i].ID
			bestScore = score
		}
	}

	return bestID, nil
}

// join adds the alert to an existing group. A concurrent assignment is a
// logical conflict resolved by re-reading, never by failing the alert.
func (e *Engine) join(ctx context.Context, groupID string, cand Candidate) (string, error) {
	joinErr := e.store.JoinGroup(ctx, groupID, cand.AlertID, cand.PublishedAt)
	if errors.Is(joinErr, ErrAlreadyAssigned) {
		return e.existingAssignment(ctx, cand.AlertID)
	}
	if joinErr != nil {
		return "", fmt.Errorf("join group: %w", joinErr)
	}

	e.metrics.RecordClusterJoined()
	e.log.Debug("alert joined cluster",
		logger.String("alert_id", cand.AlertID),
		logger.String("cluster_group_id", groupID),
	)

	return groupID, nil
}

// create starts a new group with the alert as representative.
func (e *Engine) create(ctx context.Context, cand Candidate) (string, error) {
	group := &domain.ClusterGroup{
		ID:                    uuid.NewString(),
		RepresentativeAlertID: cand.AlertID,
		RepresentativeTitle:   cand.Title,
		MemberCount:           1,
		FirstSeenAt:           cand.PublishedAt,
		LastSeenAt:            cand.PublishedAt,
	}

	createErr := e.store.CreateGroup(ctx, group)
	if errors.Is(createErr, ErrAlreadyAssigned) {
		return e.existingAssignment(ctx, cand.AlertID)
	}
	if createErr != nil {
		return "", fmt.Errorf("create group: %w", createErr)
	}

	e.metrics.RecordClusterCreated()
	e.log.Debug("alert started new cluster",
		logger.String("alert_id", cand.AlertID),
		logger.String("cluster_group_id", group.ID),
	)

	return group.ID, nil
}

// existingAssignment re-reads an assignment that a concurrent writer made
// first. Finding none at this point is a real inconsistency, surfaced
// immediately rather than retried.
func (e *Engine) existingAssignment(ctx context.Context, alertID string) (string, error) {
	groupID, ok, getErr := e.store.GetAssignment(ctx, alertID)
	if getErr != nil {
		return "", fmt.Errorf("reread assignment: %w", getErr)
	}
	if !ok {
		return "", fmt.Errorf("alert %s: %w but no assignment found", alertID, ErrAlreadyAssigned)
	}
	return groupID, nil
}
