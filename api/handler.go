package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kanbanmusic/integrations"
	"kanbanmusic/internal/blobstore"
	"kanbanmusic/internal/events"
	"kanbanmusic/internal/models"
	"kanbanmusic/internal/repo"
	"kanbanmusic/internal/validate"
)

// Handler carries the shared dependencies of the HTTP API.
type Handler struct {
	DB       *gorm.DB
	Columns  *repo.Repo[models.Column]
	Cards    *repo.Repo[models.Card]
	Broker   *events.Broker
	Blobs    blobstore.Store
	Captions *integrations.MusicCapsClient
	Analyzer *integrations.ClapClient
}

func NewHandler(db *gorm.DB, broker *events.Broker, blobs blobstore.Store, captions *integrations.MusicCapsClient, analyzer *integrations.ClapClient) *Handler {
	return &Handler{
		DB:       db,
		Columns:  repo.New[models.Column](db, "board_id"),
		Cards:    repo.New[models.Card](db, "column_id"),
		Broker:   broker,
		Blobs:    blobs,
		Captions: captions,
		Analyzer: analyzer,
	}
}

// RegisterRoutes wires every API endpoint onto the group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", h.HealthHandler)

	api.POST("/boards", h.CreateBoardHandler)
	api.GET("/boards/:id", h.GetBoardHandler)
	api.PATCH("/boards/:id", h.UpdateBoardHandler)
	api.DELETE("/boards/:id", h.DeleteBoardHandler)
	api.GET("/boards/:id/tags", h.GetBoardTagsHandler)
	api.POST("/boards/:id/tags", h.UpdateBoardTagsHandler)
	api.GET("/boards/:id/cards/search", h.SearchCardsHandler)
	api.POST("/boards/:id/columns", h.CreateColumnHandler)
	api.GET("/boards/:id/events", h.BoardEventsHandler)

	api.PATCH("/columns/:id", h.UpdateColumnHandler)
	api.DELETE("/columns/:id", h.DeleteColumnHandler)
	api.POST("/columns/:id/cards", h.CreateCardHandler)

	api.GET("/cards/:id", h.GetCardHandler)
	api.PATCH("/cards/:id", h.UpdateCardHandler)
	api.DELETE("/cards/:id", h.DeleteCardHandler)

	api.GET("/archived", h.ArchivedHandler)

	api.POST("/upload/audio", h.UploadAudioHandler)
	api.POST("/upload/cover", h.UploadCoverHandler)
	api.POST("/ai/music-caption", h.MusicCaptionHandler)
	api.POST("/ai/clap-music", h.MusicAnalysisHandler)
}

func (h *Handler) HealthHandler(c *gin.Context) {
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// invalidInput renders a 400 with field-level detail.
func invalidInput(c *gin.Context, err error) {
	var fields validate.Errors
	if errors.As(err, &fields) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input data", "details": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input data", "details": err.Error()})
}

func (h *Handler) publish(event events.Event) {
	if h.Broker != nil {
		h.Broker.Publish(event)
	}
}

// boardIDForColumn resolves the board a column belongs to, for event routing.
func (h *Handler) boardIDForColumn(c *gin.Context, columnID string) string {
	column, err := h.Columns.Get(c.Request.Context(), columnID)
	if err != nil {
		return ""
	}
	return column.BoardID
}

// jsonColumn pre-serializes a value for a partial update of a json-backed
// column; gorm map updates write the value as-is.
func jsonColumn(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("Failed to serialise update value", zap.Error(err))
		return "null"
	}
	return string(data)
}
