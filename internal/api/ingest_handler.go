// Package api provides HTTP handlers for the alert ingestion service.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/alerthub/internal/service"
)

// Ingester defines the ingest operations needed by the handler.
type Ingester interface {
	IngestEmails(ctx context.Context, docs []service.EmailDocument) (*service.IngestResult, error)
	IngestFeed(ctx context.Context, feedID, xmlBody string) (*service.IngestResult, error)
}

// IngestHandler handles document ingestion HTTP requests.
type IngestHandler struct {
	svc Ingester
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(svc Ingester) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// EmailDocumentRequest is one raw alert email in an ingest request.
type EmailDocumentRequest struct {
	ID       string    `binding:"required" json:"id"`
	Subject  string    `json:"subject"`
	Date     time.Time `binding:"required" json:"date"`
	HTMLBody string    `binding:"required" json:"html_body"`
}

// EmailIngestRequest is the body of POST /api/v1/ingest/emails.
type EmailIngestRequest struct {
	Emails []EmailDocumentRequest `binding:"required,min=1,dive" json:"emails"`
}

// FeedIngestRequest is the body of POST /api/v1/ingest/rss.
type FeedIngestRequest struct {
	FeedID  string `binding:"required" json:"feed_id"`
	XMLBody string `binding:"required" json:"xml_body"`
}

// IngestEmails handles POST /api/v1/ingest/emails.
func (h *IngestHandler) IngestEmails(c *gin.Context) {
	var req EmailIngestRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	docs := make([]service.EmailDocument, 0, len(req.Emails))
	for _, email := range req.Emails {
		docs = append(docs, service.EmailDocument{
			ID:       email.ID,
			Subject:  email.Subject,
			Date:     email.Date,
			HTMLBody: email.HTMLBody,
		})
	}

	result, ingestErr := h.svc.IngestEmails(c.Request.Context(), docs)
	respond(c, result, ingestErr)
}

// IngestFeed handles POST /api/v1/ingest/rss.
func (h *IngestHandler) IngestFeed(c *gin.Context) {
	var req FeedIngestRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	result, ingestErr := h.svc.IngestFeed(c.Request.Context(), req.FeedID, req.XMLBody)
	respond(c, result, ingestErr)
}

// respond maps an ingest outcome to an HTTP response. A partial clustering
// failure still reports what was ingested so the caller can reconcile.
func respond(c *gin.Context, result *service.IngestResult, ingestErr error) {
	var failedErr *service.IngestionFailedError
	if errors.As(ingestErr, &failedErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":           failedErr.Error(),
			"unclustered_ids": failedErr.AlertIDs,
			"result":          result,
		})
		return
	}
	if ingestErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ingestErr.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "ingested",
		"result": result,
	})
}
