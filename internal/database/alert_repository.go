package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/alerthub/internal/domain"
)

// ErrAlertNotFound is returned when no alert matches the requested id.
var ErrAlertNotFound = errors.New("alert not found")

// ErrStatusConflict is returned by UpdateStatus when the alert's status
// changed since the caller read it, so the conditional update matched
// nothing.
var ErrStatusConflict = errors.New("alert status changed concurrently")

// AlertRepository handles database operations for alerts.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates a new alert repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Ping checks database connectivity.
func (r *AlertRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const alertColumns = `
	id, title, description, publisher, raw_url, canonical_url, is_valid,
	source_type, alert_type, guid, image_url, categories, status, keywords,
	cluster_group_id, quality_score, personalization_score, published_at,
	source_document_id, created_at
`

// Insert persists a new alert and fills in its generated id and creation
// time. Callers screen duplicates with ExistsByDedupeKey first.
func (r *AlertRepository) Insert(ctx context.Context, alert *domain.Alert) error {
	query := `
		INSERT INTO alerts (
			title, description, publisher, raw_url, canonical_url, is_valid,
			source_type, alert_type, guid, image_url, categories, status,
			keywords, published_at, source_document_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`

	insertErr := r.db.QueryRowContext(ctx, query,
		alert.Title,
		alert.Description,
		alert.Publisher,
		alert.RawURL,
		alert.CanonicalURL,
		alert.Valid,
		string(alert.SourceType),
		alert.AlertType,
		alert.GUID,
		alert.ImageURL,
		pq.Array(alert.Categories),
		string(alert.Status),
		pq.Array(alert.Keywords),
		alert.PublishedAt,
		alert.SourceDocumentID,
	).Scan(&alert.ID, &alert.CreatedAt)

	if insertErr != nil {
		return fmt.Errorf("insert alert: %w", insertErr)
	}

	return nil
}

// GetByID retrieves an alert by id.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	var alert domain.Alert
	scanErr := r.db.QueryRowContext(ctx, query, id).Scan(
		&alert.ID,
		&alert.Title,
		&alert.Description,
		&alert.Publisher,
		&alert.RawURL,
		&alert.CanonicalURL,
		&alert.Valid,
		&alert.SourceType,
		&alert.AlertType,
		&alert.GUID,
		&alert.ImageURL,
		pq.Array(&alert.Categories),
		&alert.Status,
		pq.Array(&alert.Keywords),
		&alert.ClusterGroupID,
		&alert.QualityScore,
		&alert.PersonalizationScore,
		&alert.PublishedAt,
		&alert.SourceDocumentID,
		&alert.CreatedAt,
	)

	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if scanErr != nil {
		return nil, fmt.Errorf("get alert: %w", scanErr)
	}

	return &alert, nil
}

// UpdateStatus moves an alert from one status to another. The update is
// conditional on the current status so a concurrent reviewer action cannot
// be silently overwritten; a lost race surfaces as ErrStatusConflict.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status) error {
	query := `UPDATE alerts SET status = $1 WHERE id = $2 AND status = $3`

	result, updateErr := r.db.ExecContext(ctx, query, string(to), id, string(from))
	if updateErr != nil {
		return fmt.Errorf("update alert status: %w", updateErr)
	}

	affected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("update alert status: %w", rowsErr)
	}
	if affected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// ListByStatus returns alerts in the given status, newest publish time
// first, capped at limit.
func (r *AlertRepository) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE status = $1
		ORDER BY published_at DESC
		LIMIT $2
	`

	rows, queryErr := r.db.QueryContext(ctx, query, string(status), limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts: %w", queryErr)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var alert domain.Alert
		scanErr := rows.Scan(
			&alert.ID,
			&alert.Title,
			&alert.Description,
			&alert.Publisher,
			&alert.RawURL,
			&alert.CanonicalURL,
			&alert.Valid,
			&alert.SourceType,
			&alert.AlertType,
			&alert.GUID,
			&alert.ImageURL,
			pq.Array(&alert.Categories),
			&alert.Status,
			pq.Array(&alert.Keywords),
			&alert.ClusterGroupID,
			&alert.QualityScore,
			&alert.PersonalizationScore,
			&alert.PublishedAt,
			&alert.SourceDocumentID,
			&alert.CreatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("scan alert row: %w", scanErr)
		}
		alerts = append(alerts, alert)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("alert rows: %w", rowsErr)
	}

	return alerts, nil
}

// ExistsByDedupeKey reports whether an alert with this canonical (or raw)
// URL was already ingested from the given source document. Used to make
// re-processing the same email or fetch idempotent.
func (r *AlertRepository) ExistsByDedupeKey(ctx context.Context, dedupeKey, sourceDocumentID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE source_document_id = $1
			  AND (canonical_url = $2 OR raw_url = $2)
		)
	`

	var exists bool
	scanErr := r.db.QueryRowContext(ctx, query, sourceDocumentID, dedupeKey).Scan(&exists)
	if scanErr != nil {
		return false, fmt.Errorf("check alert existence: %w", scanErr)
	}

	return exists, nil
}
