package api

import (
	"encoding/json"
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

type createCardRequest struct {
	Title        string  `json:"title"`
	AudioURL     *string `json:"audioUrl"`
	CoverURL     *string `json:"coverUrl"`
	MusicAINotes *string `json:"music_ai_notes"`
	IsPlaylist   *bool   `json:"isPlaylist"`
}

type updateCardRequest struct {
	Title                    *string               `json:"title"`
	Description              json.RawMessage       `json:"description"`
	AudioURL                 *string               `json:"audioUrl"`
	CoverURL                 *string               `json:"coverUrl"`
	MusicAINotes             *string               `json:"music_ai_notes"`
	Rating                   *int                  `json:"rating"`
	Tags                     []string              `json:"tags"`
	ShowDescriptionInPreview *bool                 `json:"showDescriptionInPreview"`
	ShowTagsInPreview        *bool                 `json:"showTagsInPreview"`
	IsPlaylist               *bool                 `json:"isPlaylist"`
	PlaylistItems            []models.PlaylistItem `json:"playlistItems"`
	PlaylistHistory          []models.PlaylistItem `json:"playlistHistory"`
	Order                    *int                  `json:"order"`
	ColumnID                 *string               `json:"columnId"`
	Status                   *models.Status        `json:"status"`
}

func (h *Handler) CreateCardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	columnID := c.Param("id")

	var req createCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}

	var errs validate.Errors
	validate.Title(&errs, "title", req.Title, validate.MaxCardTitleLen)
	if req.AudioURL != nil {
		validate.AudioURL(&errs, "audioUrl", *req.AudioURL)
	}
	if req.CoverURL != nil {
		validate.URL(&errs, "coverUrl", *req.CoverURL)
	}
	if err := errs.OrNil(); err != nil {
		invalidInput(c, err)
		return
	}

	order, err := h.Cards.NextOrder(ctx, columnID)
	if err != nil {
		zap.L().Error("Error creating card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create card"})
		return
	}

	card := models.Card{
		ID:                uuid.NewString(),
		Title:             req.Title,
		ColumnID:          columnID,
		Order:             order,
		Status:            models.StatusActive,
		Tags:              []string{},
		ShowTagsInPreview: true,
		PlaylistItems:     []models.PlaylistItem{},
		PlaylistHistory:   []models.PlaylistItem{},
	}
	if req.AudioURL != nil {
		card.AudioURL = *req.AudioURL
	}
	if req.CoverURL != nil {
		card.CoverURL = *req.CoverURL
	}
	if req.MusicAINotes != nil {
		card.MusicAINotes = *req.MusicAINotes
	}
	if req.IsPlaylist != nil {
		card.IsPlaylist = *req.IsPlaylist
	}

	if err := h.Cards.Create(ctx, &card); err != nil {
		zap.L().Error("Error creating card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create card"})
		return
	}

	h.publish(events.Event{Type: "create", Entity: "card", EntityID: card.ID, BoardID: h.boardIDForColumn(c, columnID), Action: "created"})
	c.JSON(http.StatusOK, card)
}

// GetCardHandler returns an active card, with playlist items enriched.
func (h *Handler) GetCardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	card, err := h.Cards.GetActive(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
		return
	}
	if err != nil {
		zap.L().Error("Error fetching card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch card"})
		return
	}

	c.JSON(http.StatusOK, h.cardView(c, *card))
}

func (h *Handler) UpdateCardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req updateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}

	var errs validate.Errors
	changes := map[string]any{}
	if req.Title != nil {
		validate.Title(&errs, "title", *req.Title, validate.MaxCardTitleLen)
		changes["title"] = *req.Title
	}
	if req.Description != nil {
		changes["description"] = jsonColumn(req.Description)
	}
	if req.AudioURL != nil {
		validate.AudioURL(&errs, "audioUrl", *req.AudioURL)
		changes["audio_url"] = *req.AudioURL
	}
	if req.CoverURL != nil {
		validate.URL(&errs, "coverUrl", *req.CoverURL)
		changes["cover_url"] = *req.CoverURL
	}
	if req.MusicAINotes != nil {
		changes["music_ai_notes"] = *req.MusicAINotes
	}
	if req.Rating != nil {
		validate.Rating(&errs, "rating", *req.Rating)
		changes["rating"] = *req.Rating
	}
	if req.Tags != nil {
		changes["tags"] = jsonColumn(validate.Tags(req.Tags))
	}
	if req.ShowDescriptionInPreview != nil {
		changes["show_description_in_preview"] = *req.ShowDescriptionInPreview
	}
	if req.ShowTagsInPreview != nil {
		changes["show_tags_in_preview"] = *req.ShowTagsInPreview
	}
	if req.IsPlaylist != nil {
		changes["is_playlist"] = *req.IsPlaylist
	}
	if req.PlaylistItems != nil {
		validate.PlaylistItems(&errs, "playlistItems", req.PlaylistItems)
		changes["playlist_items"] = jsonColumn(req.PlaylistItems)
	}
	if req.PlaylistHistory != nil {
		validate.PlaylistItems(&errs, "playlistHistory", req.PlaylistHistory)
		changes["playlist_history"] = jsonColumn(req.PlaylistHistory)
	}
	if req.Order != nil {
		validate.Order(&errs, "order", *req.Order)
		changes["position"] = *req.Order
	}
	if req.ColumnID != nil {
		changes["column_id"] = *req.ColumnID
	}
	if req.Status != nil {
		validate.Status(&errs, "status", *req.Status)
		changes["status"] = *req.Status
	}
	if err := errs.OrNil(); err != nil {
		invalidInput(c, err)
		return
	}

	card, err := h.Cards.Update(ctx, id, changes)
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
		return
	}
	if err != nil {
		zap.L().Error("Error updating card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update card"})
		return
	}

	h.publish(events.Event{Type: "update", Entity: "card", EntityID: id, BoardID: h.boardIDForColumn(c, card.ColumnID), Action: "updated"})
	c.JSON(http.StatusOK, card)
}

// DeleteCardHandler hard-deletes a card that was archived first.
func (h *Handler) DeleteCardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	card, _ := h.Cards.Get(ctx, id)

	err := h.Cards.DeleteArchived(ctx, id)
	if errors.Is(err, repo.ErrNotArchived) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found or not archived"})
		return
	}
	if err != nil {
		zap.L().Error("Error deleting card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete card"})
		return
	}

	boardID := ""
	if card != nil {
		boardID = h.boardIDForColumn(c, card.ColumnID)
	}
	h.publish(events.Event{Type: "delete", Entity: "card", EntityID: id, BoardID: boardID, Action: "deleted"})
	c.JSON(http.StatusOK, gin.H{"message": "Card deleted successfully"})
}

// cardView enriches playlist cards with the referenced cards' current title
// and media URLs. Missing or archived references are dropped from the view,
// not from the stored list.
func (h *Handler) cardView(c *gin.Context, card models.Card) models.CardView {
	view := models.CardView{Card: card, PlaylistItems: []models.PlaylistItemView{}}

	if !card.IsPlaylist || len(card.PlaylistItems) == 0 {
		for _, item := range card.PlaylistItems {
			view.PlaylistItems = append(view.PlaylistItems, models.PlaylistItemView{CardID: item.CardID, Order: item.Order})
		}
		return view
	}

	ctx := c.Request.Context()
	for _, item := range card.PlaylistItems {
		ref, err := h.Cards.GetActive(ctx, item.CardID)
		if err != nil {
			continue
		}
		view.PlaylistItems = append(view.PlaylistItems, models.PlaylistItemView{
			CardID:   item.CardID,
			Order:    item.Order,
			Title:    ref.Title,
			AudioURL: ref.AudioURL,
			CoverURL: ref.CoverURL,
		})
	}
	return view
}
