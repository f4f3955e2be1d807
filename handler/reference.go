package handler

import (
	"context"
	"net/http"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/logger"
	"github.com/gin-gonic/gin"
)

// CleanTypeLister is the part of the reference service the lookup needs.
type CleanTypeLister interface {
	CleanTypes(ctx context.Context) ([]model.CleanType, error)
}

// Purger drops every cached reference table.
type Purger interface {
	Purge()
}

type ReferenceHandler struct {
	references CleanTypeLister
	cache      Purger
}

func NewReferenceHandler(references CleanTypeLister, cache Purger) *ReferenceHandler {
	return &ReferenceHandler{references: references, cache: cache}
}

// CleanTypes returns the official cleans list so operators can check a
// task title against it.
func (h *ReferenceHandler) CleanTypes(c *gin.Context) {
	entries, err := h.references.CleanTypes(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load clean types"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clean_types": entries})
}

// Refresh makes the next run read the reference tables from the source
// again, for sources without change notifications.
func (h *ReferenceHandler) Refresh(c *gin.Context) {
	h.cache.Purge()
	logger.Info(c.Request.Context(), "reference cache purged")
	c.JSON(http.StatusOK, gin.H{"message": "Reference tables will be reloaded"})
}
