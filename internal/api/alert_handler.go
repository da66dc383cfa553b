package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/alerthub/internal/database"
	"github.com/jonesrussell/alerthub/internal/domain"
	"github.com/jonesrussell/alerthub/internal/pipeline"
)

// AlertStore defines the alert operations needed by the handler.
type AlertStore interface {
	GetByID(ctx context.Context, id string) (*domain.Alert, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.Status) error
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Alert, error)
}

// AlertHandler handles alert review HTTP requests.
type AlertHandler struct {
	alerts             AlertStore
	classifyConfidence float64
}

// NewAlertHandler creates a new alert handler. Alerts classified below
// classifyConfidence are parked at needs_review instead of resting at
// classified.
func NewAlertHandler(alerts AlertStore, classifyConfidence float64) *AlertHandler {
	return &AlertHandler{alerts: alerts, classifyConfidence: classifyConfidence}
}

// StatusUpdateRequest is the body of PATCH /api/v1/alerts/:id/status.
// Confidence accompanies a move to classified; WordCount and QualityScore
// accompany a move to extracted. Without the optional fields the alert
// rests at the requested status regardless of how the collaborator fared.
type StatusUpdateRequest struct {
	Status       string   `binding:"required" json:"status"`
	Confidence   *float64 `json:"confidence,omitempty"`
	WordCount    *int     `json:"word_count,omitempty"`
	QualityScore *float64 `json:"quality_score,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// defaultListLimit caps GET /api/v1/alerts responses.
const defaultListLimit = 100

// GetAlert handles GET /api/v1/alerts/:id.
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, getErr := h.alerts.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(getErr, database.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if getErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": getErr.Error()})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// ListAlerts handles GET /api/v1/alerts?status=pending.
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	status := domain.Status(c.DefaultQuery("status", string(domain.StatusPending)))
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	alerts, listErr := h.alerts.ListByStatus(c.Request.Context(), status, defaultListLimit)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": listErr.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// UpdateStatus handles PATCH /api/v1/alerts/:id/status. The update is
// validated against the review lifecycle before anything is written; an
// invalid transition leaves the record untouched.
func (h *AlertHandler) UpdateStatus(c *gin.Context) {
	var req StatusUpdateRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	id := c.Param("id")
	target := domain.Status(req.Status)

	alert, getErr := h.alerts.GetByID(c.Request.Context(), id)
	if errors.Is(getErr, database.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if getErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": getErr.Error()})
		return
	}

	if validateErr := pipeline.Validate(alert, target); validateErr != nil {
		var invalidErr *pipeline.InvalidTransitionError
		if errors.As(validateErr, &invalidErr) {
			c.JSON(http.StatusConflict, gin.H{
				"error": invalidErr.Error(),
				"from":  invalidErr.From,
				"to":    invalidErr.To,
			})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validateErr.Error()})
		return
	}

	updateErr := h.alerts.UpdateStatus(c.Request.Context(), id, alert.Status, target)
	if errors.Is(updateErr, database.ErrStatusConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "alert status changed concurrently, re-read and retry"})
		return
	}
	if updateErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": updateErr.Error()})
		return
	}

	final, parkErr := h.parkForReview(c.Request.Context(), id, target, &req)
	if parkErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": parkErr.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"status": final,
	})
}

// parkForReview applies the collaborator-result gating after a successful
// status update: low classification confidence or poor extraction output
// moves the alert on to needs_review in a second conditional update. The
// returned status is where the alert actually rests.
func (h *AlertHandler) parkForReview(ctx context.Context, id string, target domain.Status, req *StatusUpdateRequest) (domain.Status, error) {
	resting := target
	switch {
	case target == domain.StatusClassified && req.Confidence != nil:
		resting = pipeline.StatusAfterClassification(*req.Confidence, h.classifyConfidence)
	case target == domain.StatusExtracted && req.WordCount != nil && req.QualityScore != nil:
		resting = pipeline.StatusAfterExtraction(pipeline.ExtractionResult{
			WordCount:    *req.WordCount,
			QualityScore: *req.QualityScore,
			Err:          req.Error,
		})
	}

	if resting == target {
		return target, nil
	}

	parkErr := h.alerts.UpdateStatus(ctx, id, target, domain.StatusNeedsReview)
	if errors.Is(parkErr, database.ErrStatusConflict) {
		// Someone moved the alert first; their decision stands.
		return target, nil
	}
	if parkErr != nil {
		return target, parkErr
	}

	return domain.StatusNeedsReview, nil
}
