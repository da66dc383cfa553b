package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/alerthub/internal/cluster"
	"github.com/jonesrussell/alerthub/internal/domain"
)

// ErrGroupNotFound is returned when no cluster group matches the
// requested id.
var ErrGroupNotFound = errors.New("cluster group not found")

// ClusterRepository persists clustering decisions. It implements
// cluster.Store; the alert's cluster_group_id column acts as the
// idempotency slot, filled at most once per alert.
type ClusterRepository struct {
	db *sqlx.DB
}

// NewClusterRepository creates a new cluster repository.
func NewClusterRepository(db *sqlx.DB) *ClusterRepository {
	return &ClusterRepository{db: db}
}

// GetAssignment returns the alert's existing cluster group id, if any.
func (r *ClusterRepository) GetAssignment(ctx context.Context, alertID string) (string, bool, error) {
	query := `SELECT cluster_group_id FROM alerts WHERE id = $1`

	var groupID sql.NullString
	scanErr := r.db.QueryRowContext(ctx, query, alertID).Scan(&groupID)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return "", false, nil
	}
	if scanErr != nil {
		return "", false, fmt.Errorf("get assignment: %w", scanErr)
	}

	return groupID.String, groupID.Valid, nil
}

// FindGroupByMemberURL returns the group containing a member alert with
// an exactly matching canonical URL, restricted to groups last seen
// inside [since, until].
func (r *ClusterRepository) FindGroupByMemberURL(ctx context.Context, canonicalURL string, since, until time.Time) (*domain.ClusterGroup, error) {
	query := `
		SELECT g.id, g.representative_alert_id, g.representative_title,
		       g.member_count, g.first_seen_at, g.last_seen_at
		FROM cluster_groups g
		JOIN alerts a ON a.cluster_group_id = g.id
		WHERE a.canonical_url = $1
		  AND a.is_valid
		  AND g.last_seen_at >= $2
		  AND g.last_seen_at <= $3
		ORDER BY g.first_seen_at
		LIMIT 1
	`

	var group domain.ClusterGroup
	scanErr := r.db.QueryRowContext(ctx, query, canonicalURL, since, until).Scan(
		&group.ID,
		&group.RepresentativeAlertID,
		&group.RepresentativeTitle,
		&group.MemberCount,
		&group.FirstSeenAt,
		&group.LastSeenAt,
	)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, nil
	}
	if scanErr != nil {
		return nil, fmt.Errorf("find group by member url: %w", scanErr)
	}

	return &group, nil
}

// ListCandidateGroups returns groups last seen inside [since, until],
// oldest first so equal inputs always match the same group.
func (r *ClusterRepository) ListCandidateGroups(ctx context.Context, since, until time.Time) ([]domain.ClusterGroup, error) {
	query := `
		SELECT id, representative_alert_id, representative_title,
		       member_count, first_seen_at, last_seen_at
		FROM cluster_groups
		WHERE last_seen_at >= $1 AND last_seen_at <= $2
		ORDER BY first_seen_at
	`

	rows, queryErr := r.db.QueryContext(ctx, query, since, until)
	if queryErr != nil {
		return nil, fmt.Errorf("list candidate groups: %w", queryErr)
	}
	defer rows.Close()

	var groups []domain.ClusterGroup
	for rows.Next() {
		var group domain.ClusterGroup
		scanErr := rows.Scan(
			&group.ID,
			&group.RepresentativeAlertID,
			&group.RepresentativeTitle,
			&group.MemberCount,
			&group.FirstSeenAt,
			&group.LastSeenAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("scan group row: %w", scanErr)
		}
		groups = append(groups, group)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("group rows: %w", rowsErr)
	}

	return groups, nil
}

// CreateGroup inserts a new group and claims the representative alert's
// cluster slot in one transaction. A concurrently filled slot rolls the
// insert back and surfaces cluster.ErrAlreadyAssigned.
func (r *ClusterRepository) CreateGroup(ctx context.Context, group *domain.ClusterGroup) error {
	tx, beginErr := r.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("begin create group: %w", beginErr)
	}
	defer func() { _ = tx.Rollback() }()

	insertQuery := `
		INSERT INTO cluster_groups (
			id, representative_alert_id, representative_title,
			member_count, first_seen_at, last_seen_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, insertErr := tx.ExecContext(ctx, insertQuery,
		group.ID,
		group.RepresentativeAlertID,
		group.RepresentativeTitle,
		group.MemberCount,
		group.FirstSeenAt,
		group.LastSeenAt,
	)
	if insertErr != nil {
		return fmt.Errorf("insert group: %w", insertErr)
	}

	if claimErr := claimAlertSlot(ctx, tx, group.ID, group.RepresentativeAlertID); claimErr != nil {
		return claimErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit create group: %w", commitErr)
	}

	return nil
}

// JoinGroup claims the alert's cluster slot, increments the member count
// and advances last_seen_at in one transaction. A concurrently filled
// slot rolls everything back and surfaces cluster.ErrAlreadyAssigned.
func (r *ClusterRepository) JoinGroup(ctx context.Context, groupID, alertID string, seenAt time.Time) error {
	tx, beginErr := r.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("begin join group: %w", beginErr)
	}
	defer func() { _ = tx.Rollback() }()

	if claimErr := claimAlertSlot(ctx, tx, groupID, alertID); claimErr != nil {
		return claimErr
	}

	updateQuery := `
		UPDATE cluster_groups
		SET member_count = member_count + 1,
		    last_seen_at = GREATEST(last_seen_at, $1)
		WHERE id = $2
	`

	if _, updateErr := tx.ExecContext(ctx, updateQuery, seenAt, groupID); updateErr != nil {
		return fmt.Errorf("update group: %w", updateErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit join group: %w", commitErr)
	}

	return nil
}

// GetGroup retrieves a cluster group by id.
func (r *ClusterRepository) GetGroup(ctx context.Context, id string) (*domain.ClusterGroup, error) {
	query := `
		SELECT id, representative_alert_id, representative_title,
		       member_count, first_seen_at, last_seen_at
		FROM cluster_groups
		WHERE id = $1
	`

	var group domain.ClusterGroup
	scanErr := r.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.RepresentativeAlertID,
		&group.RepresentativeTitle,
		&group.MemberCount,
		&group.FirstSeenAt,
		&group.LastSeenAt,
	)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if scanErr != nil {
		return nil, fmt.Errorf("get group: %w", scanErr)
	}

	return &group, nil
}

// ListGroupMembers returns the ids of all alerts assigned to a group,
// oldest publish time first.
func (r *ClusterRepository) ListGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	query := `
		SELECT id FROM alerts
		WHERE cluster_group_id = $1
		ORDER BY published_at
	`

	var ids []string
	if selectErr := r.db.SelectContext(ctx, &ids, query, groupID); selectErr != nil {
		return nil, fmt.Errorf("list group members: %w", selectErr)
	}

	return ids, nil
}

// claimAlertSlot fills the alert's cluster_group_id if and only if it is
// still empty. Zero rows means a concurrent writer got there first.
func claimAlertSlot(ctx context.Context, tx *sqlx.Tx, groupID, alertID string) error {
	query := `
		UPDATE alerts
		SET cluster_group_id = $1
		WHERE id = $2 AND cluster_group_id IS NULL
	`

	result, claimErr := tx.ExecContext(ctx, query, groupID, alertID)
	if claimErr != nil {
		return fmt.Errorf("claim alert slot: %w", claimErr)
	}

	affected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("claim alert slot: %w", rowsErr)
	}
	if affected == 0 {
		return cluster.ErrAlreadyAssigned
	}

	return nil
}
