package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/alerthub/internal/api"
	"github.com/jonesrussell/alerthub/internal/service"
)

type mockIngestService struct {
	ingestEmailsFunc func(docs []service.EmailDocument) (*service.IngestResult, error)
	ingestFeedFunc   func(feedID, xmlBody string) (*service.IngestResult, error)
}

func (m *mockIngestService) IngestEmails(_ context.Context, docs []service.EmailDocument) (*service.IngestResult, error) {
	if m.ingestEmailsFunc != nil {
		return m.ingestEmailsFunc(docs)
	}
	return &service.IngestResult{Parsed: len(docs)}, nil
}

func (m *mockIngestService) IngestFeed(_ context.Context, feedID, xmlBody string) (*service.IngestResult, error) {
	if m.ingestFeedFunc != nil {
		return m.ingestFeedFunc(feedID, xmlBody)
	}
	return &service.IngestResult{}, nil
}

func setupIngestRouter(t *testing.T, handler *api.IngestHandler) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/ingest/emails", handler.IngestEmails)
	v1.POST("/ingest/rss", handler.IngestFeed)

	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	bodyJSON, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		t.Fatalf("failed to marshal body: %v", marshalErr)
	}

	w := httptest.NewRecorder()

	req, reqErr := http.NewRequestWithContext(context.Background(), http.MethodPost, path, bytes.NewBuffer(bodyJSON))
	if reqErr != nil {
		t.Fatalf("failed to create request: %v", reqErr)
	}

	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	return w
}

func TestIngestHandler_IngestEmails_Success(t *testing.T) {
	svc := &mockIngestService{
		ingestEmailsFunc: func(docs []service.EmailDocument) (*service.IngestResult, error) {
			return &service.IngestResult{Parsed: len(docs), Ingested: len(docs), Clustered: len(docs)}, nil
		},
	}
	router := setupIngestRouter(t, api.NewIngestHandler(svc))

	body := map[string]any{
		"emails": []map[string]any{
			{
				"id":        "msg-1",
				"subject":   "Alerta do Google",
				"date":      time.Now().UTC().Format(time.RFC3339),
				"html_body": "<html></html>",
			},
		},
	}

	w := postJSON(t, router, "/api/v1/ingest/emails", body)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestIngestHandler_IngestEmails_EmptyBatchRejected(t *testing.T) {
	router := setupIngestRouter(t, api.NewIngestHandler(&mockIngestService{}))

	w := postJSON(t, router, "/api/v1/ingest/emails", map[string]any{"emails": []map[string]any{}})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestIngestHandler_IngestFeed_Success(t *testing.T) {
	var gotFeedID string
	svc := &mockIngestService{
		ingestFeedFunc: func(feedID, _ string) (*service.IngestResult, error) {
			gotFeedID = feedID
			return &service.IngestResult{Parsed: 3, Ingested: 3, Clustered: 3}, nil
		},
	}
	router := setupIngestRouter(t, api.NewIngestHandler(svc))

	body := map[string]any{
		"feed_id":  "feed-1",
		"xml_body": "<rss version=\"2.0\"></rss>",
	}

	w := postJSON(t, router, "/api/v1/ingest/rss", body)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if gotFeedID != "feed-1" {
		t.Errorf("feed id = %q, want feed-1", gotFeedID)
	}
}

func TestIngestHandler_IngestFeed_MissingFields(t *testing.T) {
	router := setupIngestRouter(t, api.NewIngestHandler(&mockIngestService{}))

	w := postJSON(t, router, "/api/v1/ingest/rss", map[string]any{"feed_id": "feed-1"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestIngestHandler_PartialClusteringFailure(t *testing.T) {
	svc := &mockIngestService{
		ingestFeedFunc: func(_, _ string) (*service.IngestResult, error) {
			return &service.IngestResult{Parsed: 2, Ingested: 2, Clustered: 1},
				&service.IngestionFailedError{AlertIDs: []string{"alert-2"}}
		},
	}
	router := setupIngestRouter(t, api.NewIngestHandler(svc))

	body := map[string]any{
		"feed_id":  "feed-1",
		"xml_body": "<rss version=\"2.0\"></rss>",
	}

	w := postJSON(t, router, "/api/v1/ingest/rss", body)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var resp map[string]any
	if decodeErr := json.NewDecoder(w.Body).Decode(&resp); decodeErr != nil {
		t.Fatalf("failed to decode response: %v", decodeErr)
	}

	ids, ok := resp["unclustered_ids"].([]any)
	if !ok || len(ids) != 1 || ids[0] != "alert-2" {
		t.Errorf("unclustered_ids = %v, want [alert-2]", resp["unclustered_ids"])
	}
}
