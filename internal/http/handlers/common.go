package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	httpapi "github.com/herbario-app/herbario/internal/http"
	"github.com/herbario-app/herbario/internal/models"
)

// getUserID extracts the authenticated subject id from gin context.
func getUserID(c *gin.Context) string {
	val, exists := c.Get(httpapi.ContextUserID)
	if !exists {
		return ""
	}
	id, _ := val.(string)
	return id
}

// storageContext bounds a storage call with the configured timeout.
func storageContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// plantResponse is the wire shape of a plant record.
type plantResponse struct {
	ID             string   `json:"id"`
	Name           *string  `json:"name"`
	ScientificName *string  `json:"scientific_name"`
	Family         *string  `json:"family"`
	Description    *string  `json:"description"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Status         string   `json:"status"`
	AcceptedBy     *string  `json:"accepted_by,omitempty"`
	RejectedBy     *string  `json:"rejected_by,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// formatPlant maps a model to its response shape with RFC3339 timestamps.
func formatPlant(p *models.Plant) plantResponse {
	return plantResponse{
		ID:             p.ID,
		Name:           p.Name,
		ScientificName: p.ScientificName,
		Family:         p.Family,
		Description:    p.Description,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		Status:         p.Status,
		AcceptedBy:     p.AcceptedBy,
		RejectedBy:     p.RejectedBy,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
