package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kanbanmusic/internal/events"
	"kanbanmusic/internal/models"
	"kanbanmusic/internal/validate"
)

type createBoardRequest struct {
	Title *string `json:"title"`
}

type updateBoardRequest struct {
	Title *string `json:"title"`
}

func (h *Handler) CreateBoardHandler(c *gin.Context) {
	var req createBoardRequest
	// an empty body is fine, the board gets the default title
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		invalidInput(c, err)
		return
	}

	title := models.DefaultBoardTitle
	if req.Title != nil {
		var errs validate.Errors
		validate.Title(&errs, "title", *req.Title, validate.MaxBoardTitleLen)
		if err := errs.OrNil(); err != nil {
			invalidInput(c, err)
			return
		}
		title = *req.Title
	}

	board := models.Board{ID: uuid.NewString(), Title: title, KnownTags: []string{}}
	if err := h.DB.WithContext(c.Request.Context()).Create(&board).Error; err != nil {
		zap.L().Error("Error creating board", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create board"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": board.ID, "title": board.Title})
}

// GetBoardHandler assembles the full board view: the board, its active
// columns sorted by order, and the active cards of those columns sorted by
// order, with playlist cards enriched.
func (h *Handler) GetBoardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var board models.Board
	if err := h.DB.WithContext(ctx).Where("id = ?", id).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
			return
		}
		zap.L().Error("Error fetching board", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch board"})
		return
	}

	columns, err := h.Columns.ListActive(ctx, id)
	if err != nil {
		zap.L().Error("Error fetching board columns", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch board"})
		return
	}

	columnIDs := make([]string, len(columns))
	for i, col := range columns {
		columnIDs[i] = col.ID
	}

	cards, err := h.Cards.ListActiveIn(ctx, columnIDs)
	if err != nil {
		zap.L().Error("Error fetching board cards", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch board"})
		return
	}

	views := make([]models.CardView, len(cards))
	for i, card := range cards {
		views[i] = h.cardView(c, card)
	}

	c.JSON(http.StatusOK, gin.H{"board": board, "columns": columns, "cards": views})
}

func (h *Handler) UpdateBoardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req updateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}

	changes := map[string]any{}
	if req.Title != nil {
		var errs validate.Errors
		validate.Title(&errs, "title", *req.Title, validate.MaxBoardTitleLen)
		if err := errs.OrNil(); err != nil {
			invalidInput(c, err)
			return
		}
		changes["title"] = *req.Title
	}

	var board models.Board
	if err := h.DB.WithContext(ctx).Where("id = ?", id).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
			return
		}
		zap.L().Error("Error updating board", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update board"})
		return
	}

	if len(changes) > 0 {
		if err := h.DB.WithContext(ctx).Model(&models.Board{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			zap.L().Error("Error updating board", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update board"})
			return
		}
		h.DB.WithContext(ctx).Where("id = ?", id).First(&board)
	}

	h.publish(events.Event{Type: "update", Entity: "board", EntityID: id, BoardID: id, Action: "updated"})
	c.JSON(http.StatusOK, board)
}

// DeleteBoardHandler removes the board's cards and columns before the board
// itself. There is no transaction spanning the three deletes; a failure
// mid-way leaves orphaned children, same as losing the board record would.
func (h *Handler) DeleteBoardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	columnIDs, err := h.Columns.IDsByParent(ctx, id)
	if err != nil {
		zap.L().Error("Error deleting board", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete board"})
		return
	}

	if err := h.Cards.DeleteByParents(ctx, columnIDs); err != nil {
		zap.L().Error("Error deleting board cards", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete board"})
		return
	}
	if err := h.Columns.DeleteByParents(ctx, []string{id}); err != nil {
		zap.L().Error("Error deleting board columns", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete board"})
		return
	}

	res := h.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Board{})
	if res.Error != nil {
		zap.L().Error("Error deleting board", zap.Error(res.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete board"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return
	}

	h.publish(events.Event{Type: "delete", Entity: "board", EntityID: id, BoardID: id, Action: "deleted"})
	c.JSON(http.StatusOK, gin.H{"message": "Board deleted successfully"})
}

func (h *Handler) GetBoardTagsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var board models.Board
	if err := h.DB.WithContext(ctx).Where("id = ?", id).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
			return
		}
		zap.L().Error("Error fetching board tags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	tags := board.KnownTags
	if tags == nil {
		tags = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// UpdateBoardTagsHandler merges new tags into the board's known-tags set.
// The set is append-only: existing tags are never removed here.
func (h *Handler) UpdateBoardTagsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req struct {
		Tags []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Tags == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tags must be an array"})
		return
	}

	var board models.Board
	if err := h.DB.WithContext(ctx).Where("id = ?", id).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
			return
		}
		zap.L().Error("Error updating board tags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tags"})
		return
	}

	merged := validate.MergeTags(board.KnownTags, req.Tags)
	err := h.DB.WithContext(ctx).Model(&models.Board{}).Where("id = ?", id).
		Update("known_tags", jsonColumn(merged)).Error
	if err != nil {
		zap.L().Error("Error updating board tags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tags"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": merged})
}

// searchResult is the trimmed card projection returned by title search.
type searchResult struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	AudioURL   string `json:"audioUrl"`
	CoverURL   string `json:"coverUrl"`
	IsPlaylist bool   `json:"isPlaylist"`
}

const searchResultLimit = 20

// escapeLike neutralizes LIKE metacharacters in a user query so "100%"
// matches the literal text and not every title containing "100".
var escapeLike = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchCardsHandler finds active, non-playlist cards of the board whose
// title contains the query, case-insensitively. Queries shorter than two
// characters return an empty result instead of an error.
func (h *Handler) SearchCardsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	boardID := c.Param("id")
	query := c.Query("q")

	if len(query) < 2 {
		c.JSON(http.StatusOK, gin.H{"cards": []searchResult{}})
		return
	}

	pattern := "%" + escapeLike.Replace(strings.ToLower(query)) + "%"
	results := []searchResult{}
	err := h.DB.WithContext(ctx).Model(&models.Card{}).
		Select("id", "title", "audio_url", "cover_url", "is_playlist").
		Where(`status = ? AND is_playlist = ? AND LOWER(title) LIKE ? ESCAPE '\'`, models.StatusActive, false, pattern).
		Where("column_id IN (?)", h.DB.Model(&models.Column{}).Select("id").Where("board_id = ?", boardID)).
		Limit(searchResultLimit).
		Find(&results).Error
	if err != nil {
		zap.L().Error("Error searching cards", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search cards"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cards": results})
}

// ArchivedHandler lists every archived column and card, for the trash view.
func (h *Handler) ArchivedHandler(c *gin.Context) {
	ctx := c.Request.Context()

	columns, err := h.Columns.ListArchived(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch archived items"})
		return
	}
	cards, err := h.Cards.ListArchived(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch archived items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"columns": columns, "cards": cards})
}
