package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
	"github.com/Abra-CatAbra/foodsync-ai/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// RecordsHandler exposes read-only views over the processed-photo set.
type RecordsHandler struct {
	repo *repository.ProcessedRepository
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(repo *repository.ProcessedRepository) *RecordsHandler {
	return &RecordsHandler{repo: repo}
}

// ListRecords handles GET /api/v1/records.
// Supports ?status=success|no_food|failed, ?limit= and ?offset=.
func (h *RecordsHandler) ListRecords(c *gin.Context) {
	status := domain.ProcessStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid status: " + string(status),
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	recs, err := h.repo.ListRecent(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list records: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": recs,
		"count":   len(recs),
		"limit":   limit,
		"offset":  offset,
	})
}

// GetStats handles GET /api/v1/stats.
func (h *RecordsHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	statuses := []domain.ProcessStatus{
		domain.ProcessStatusSuccess,
		domain.ProcessStatusNoFood,
		domain.ProcessStatusFailed,
	}

	counts := make(map[string]int64, len(statuses))
	var total int64
	for _, status := range statuses {
		n, err := h.repo.CountByStatus(ctx, status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to count records: " + err.Error(),
			})
			return
		}
		counts[string(status)] = n
		total += n
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"by_status": counts,
	})
}
