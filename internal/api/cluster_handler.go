package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/alerthub/internal/database"
	"github.com/jonesrussell/alerthub/internal/domain"
)

// ClusterStore defines the cluster read operations needed by the handler.
type ClusterStore interface {
	GetGroup(ctx context.Context, id string) (*domain.ClusterGroup, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]string, error)
}

// ClusterHandler handles cluster read HTTP requests.
type ClusterHandler struct {
	clusters ClusterStore
}

// NewClusterHandler creates a new cluster handler.
func NewClusterHandler(clusters ClusterStore) *ClusterHandler {
	return &ClusterHandler{clusters: clusters}
}

// GetCluster handles GET /api/v1/clusters/:id.
func (h *ClusterHandler) GetCluster(c *gin.Context) {
	id := c.Param("id")

	group, getErr := h.clusters.GetGroup(c.Request.Context(), id)
	if errors.Is(getErr, database.ErrGroupNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cluster group not found"})
		return
	}
	if getErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": getErr.Error()})
		return
	}

	members, listErr := h.clusters.ListGroupMembers(c.Request.Context(), id)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": listErr.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group":      group,
		"member_ids": members,
	})
}
