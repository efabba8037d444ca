package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"kanbanmusic/internal/events"
	"kanbanmusic/internal/models"
	"kanbanmusic/internal/repo"
	"kanbanmusic/internal/validate"
)

type createColumnRequest struct {
	Title string `json:"title"`
}

type updateColumnRequest struct {
	Title    *string        `json:"title"`
	CoverURL *string        `json:"coverUrl"`
	Order    *int           `json:"order"`
	Status   *models.Status `json:"status"`
}

func (h *Handler) CreateColumnHandler(c *gin.Context) {
	ctx := c.Request.Context()
	boardID := c.Param("id")

	var req createColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}

	var errs validate.Errors
	validate.Title(&errs, "title", req.Title, validate.MaxColumnTitleLen)
	if err := errs.OrNil(); err != nil {
		invalidInput(c, err)
		return
	}

	// append-to-end: the new column's order is the current active count
	order, err := h.Columns.NextOrder(ctx, boardID)
	if err != nil {
		zap.L().Error("Error creating column", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create column"})
		return
	}

	column := models.Column{
		ID:      uuid.NewString(),
		Title:   req.Title,
		BoardID: boardID,
		Order:   order,
		Status:  models.StatusActive,
	}
	if err := h.Columns.Create(ctx, &column); err != nil {
		zap.L().Error("Error creating column", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create column"})
		return
	}

	h.publish(events.Event{Type: "create", Entity: "column", EntityID: column.ID, BoardID: boardID, Action: "created"})
	c.JSON(http.StatusOK, column)
}

// UpdateColumnHandler applies a partial update. Archiving a column archives
// all of its active cards within the same handler invocation.
func (h *Handler) UpdateColumnHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req updateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}

	var errs validate.Errors
	changes := map[string]any{}
	if req.Title != nil {
		validate.Title(&errs, "title", *req.Title, validate.MaxColumnTitleLen)
		changes["title"] = *req.Title
	}
	if req.CoverURL != nil {
		validate.URL(&errs, "coverUrl", *req.CoverURL)
		changes["cover_url"] = *req.CoverURL
	}
	if req.Order != nil {
		validate.Order(&errs, "order", *req.Order)
		changes["position"] = *req.Order
	}
	if req.Status != nil {
		validate.Status(&errs, "status", *req.Status)
		changes["status"] = *req.Status
	}
	if err := errs.OrNil(); err != nil {
		invalidInput(c, err)
		return
	}

	if req.Status != nil && *req.Status == models.StatusArchived {
		if err := h.Cards.ArchiveActive(ctx, id); err != nil {
			zap.L().Error("Error archiving column cards", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update column"})
			return
		}
	}

	column, err := h.Columns.Update(ctx, id, changes)
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Column not found"})
		return
	}
	if err != nil {
		zap.L().Error("Error updating column", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update column"})
		return
	}

	h.publish(events.Event{Type: "update", Entity: "column", EntityID: id, BoardID: column.BoardID, Action: "updated"})
	c.JSON(http.StatusOK, column)
}

// DeleteColumnHandler hard-deletes a column that was archived first.
func (h *Handler) DeleteColumnHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	boardID := h.boardIDForColumn(c, id)

	err := h.Columns.DeleteArchived(ctx, id)
	if errors.Is(err, repo.ErrNotArchived) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Column not found or not archived"})
		return
	}
	if err != nil {
		zap.L().Error("Error deleting column", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete column"})
		return
	}

	h.publish(events.Event{Type: "delete", Entity: "column", EntityID: id, BoardID: boardID, Action: "deleted"})
	c.JSON(http.StatusOK, gin.H{"message": "Column deleted successfully"})
}
