package api_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanbanmusic/internal/models"
	"kanbanmusic/internal/repo"
	"kanbanmusic/internal/testsupport"
)

type boardResponse struct {
	Board   models.Board      `json:"board"`
	Columns []models.Column   `json:"columns"`
	Cards   []models.CardView `json:"cards"`
}

func createBoard(t *testing.T, router *gin.Engine, title string) models.Board {
	t.Helper()
	var body any
	if title != "" {
		body = map[string]string{"title": title}
	}
	rec := testsupport.DoJSON(t, router, http.MethodPost, "/api/boards", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var board models.Board
	testsupport.Decode(t, rec, &board)
	return board
}

func createColumn(t *testing.T, router *gin.Engine, boardID, title string) models.Column {
	t.Helper()
	rec := testsupport.DoJSON(t, router, http.MethodPost, "/api/boards/"+boardID+"/columns", map[string]string{"title": title})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var column models.Column
	testsupport.Decode(t, rec, &column)
	return column
}

func createCard(t *testing.T, router *gin.Engine, columnID, title string) models.Card {
	t.Helper()
	rec := testsupport.DoJSON(t, router, http.MethodPost, "/api/columns/"+columnID+"/cards", map[string]string{"title": title})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var card models.Card
	testsupport.Decode(t, rec, &card)
	return card
}

func getBoard(t *testing.T, router *gin.Engine, boardID string) boardResponse {
	t.Helper()
	rec := testsupport.DoJSON(t, router, http.MethodGet, "/api/boards/"+boardID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp boardResponse
	testsupport.Decode(t, rec, &resp)
	return resp
}

func TestCreateBoardDefaultTitle(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	board := createBoard(t, router, "")
	assert.Equal(t, models.DefaultBoardTitle, board.Title)
	assert.NotEmpty(t, board.ID)
}

func TestCreateBoardTitleTooLong(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	rec := testsupport.DoJSON(t, router, http.MethodPost, "/api/boards", map[string]string{"title": string(long)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid input data")
}

func TestGetBoardNotFound(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	rec := testsupport.DoJSON(t, router, http.MethodGet, "/api/boards/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Board not found")
}

func TestUpdateBoardTitle(t *testing.T) {
	router, _ := testsupport.NewServer(t)
	board := createBoard(t, router, "Before")

	rec := testsupport.DoJSON(t, router, http.MethodPatch, "/api/boards/"+board.ID, map[string]string{"title": "After"})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Board
	testsupport.Decode(t, rec, &updated)
	assert.Equal(t, "After", updated.Title)
}

func TestDeleteBoardCascades(t *testing.T) {
	router, h := testsupport.NewServer(t)
	ctx := context.Background()

	board := createBoard(t, router, "Doomed")
	col := createColumn(t, router, board.ID, "Col")
	card := createCard(t, router, col.ID, "Card")

	rec := testsupport.DoJSON(t, router, http.MethodDelete, "/api/boards/"+board.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := h.Columns.Get(ctx, col.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	_, err = h.Cards.Get(ctx, card.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	rec = testsupport.DoJSON(t, router, http.MethodGet, "/api/boards/"+board.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testsupport.DoJSON(t, router, http.MethodDelete, "/api/boards/"+board.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBoardTagsMerge(t *testing.T) {
	router, _ := testsupport.NewServer(t)
	board := createBoard(t, router, "Tagged")

	rec := testsupport.DoJSON(t, router, http.MethodPost, "/api/boards/"+board.ID+"/tags", map[string]any{"tags": []string{"jazz", " rock "}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// merging again only appends the unseen tag
	rec = testsupport.DoJSON(t, router, http.MethodPost, "/api/boards/"+board.ID+"/tags", map[string]any{"tags": []string{"rock", "ambient", ""}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tags []string `json:"tags"`
	}
	testsupport.Decode(t, rec, &resp)
	assert.Equal(t, []string{"jazz", "rock", "ambient"}, resp.Tags)

	rec = testsupport.DoJSON(t, router, http.MethodGet, "/api/boards/"+board.ID+"/tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	testsupport.Decode(t, rec, &resp)
	assert.Equal(t, []string{"jazz", "rock", "ambient"}, resp.Tags)
}

func TestBoardTagsRequireArray(t *testing.T) {
	router, _ := testsupport.NewServer(t)
	board := createBoard(t, router, "Tagged")

	rec := testsupport.DoJSON(t, router, http.MethodPost, "/api/boards/"+board.ID+"/tags", map[string]any{"tags": "not-an-array"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tags must be an array")
}

func TestSearchCards(t *testing.T) {
	router, _ := testsupport.NewServer(t)
	board := createBoard(t, router, "Search")
	col := createColumn(t, router, board.ID, "Col")

	createCard(t, router, col.ID, "Midnight Train")
	createCard(t, router, col.ID, "Morning Dew")
	playlist := createCard(t, router, col.ID, "Train Playlist")
	rec := testsupport.DoJSON(t, router, http.MethodPatch, "/api/cards/"+playlist.ID, map[string]any{"isPlaylist": true})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Cards []struct {
			Title string `json:"title"`
		} `json:"cards"`
	}

	rec = testsupport.DoJSON(t, router, http.MethodGet, "/api/boards/"+board.ID+"/cards/search?q=train", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	testsupport.Decode(t, rec, &resp)
	require.Len(t, resp.Cards, 1)
	assert.Equal(t, "Midnight Train", resp.Cards[0].Title)

	// short queries return empty instead of failing
	rec = testsupport.DoJSON(t, router, http.MethodGet, "/api/boards/"+board.ID+"/cards/search?q=t", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	testsupport.Decode(t, rec, &resp)
	assert.Empty(t, resp.Cards)
}

// LIKE metacharacters in the query match themselves, not arbitrary text.
func TestSearchCardsLiteralWildcards(t *testing.T) {
	router, _ := testsupport.NewServer(t)
	board := createBoard(t, router, "Search")
	col := createColumn(t, router, board.ID, "Col")

	createCard(t, router, col.ID, "100% Pure")
	createCard(t, router, col.ID, "1000 Watts")
	createCard(t, router, col.ID, "mix_tape")
	createCard(t, router, col.ID, "mixtape")

	var resp struct {
		Cards []struct {
			Title string `json:"title"`
		} `json:"cards"`
	}

	rec := testsupport.DoJSON(t, router, http.MethodGet, "/api/boards/"+board.ID+"/cards/search?q=100%25", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	testsupport.Decode(t, rec, &resp)
	require.Len(t, resp.Cards, 1)
	assert.Equal(t, "100% Pure", resp.Cards[0].Title)

	rec = testsupport.DoJSON(t, router, http.MethodGet, "/api/boards/"+board.ID+"/cards/search?q=mix_", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	testsupport.Decode(t, rec, &resp)
	require.Len(t, resp.Cards, 1)
	assert.Equal(t, "mix_tape", resp.Cards[0].Title)
}

func TestArchivedListing(t *testing.T) {
	router, _ := testsupport.NewServer(t)
	board := createBoard(t, router, "B")
	col := createColumn(t, router, board.ID, "Col")
	card := createCard(t, router, col.ID, "Card")

	rec := testsupport.DoJSON(t, router, http.MethodPatch, "/api/cards/"+card.ID, map[string]any{"status": "archived"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Columns []models.Column `json:"columns"`
		Cards   []models.Card   `json:"cards"`
	}
	rec = testsupport.DoJSON(t, router, http.MethodGet, "/api/archived", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	testsupport.Decode(t, rec, &resp)
	assert.Empty(t, resp.Columns)
	require.Len(t, resp.Cards, 1)
	assert.Equal(t, card.ID, resp.Cards[0].ID)
}

func TestHealth(t *testing.T) {
	router, _ := testsupport.NewServer(t)
	rec := testsupport.DoJSON(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

// The full lifecycle: a board with three columns, five cards distributed
// round-robin, one cross-column move and one archive.
func TestBoardScenario(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	board := createBoard(t, router, "T")
	todo := createColumn(t, router, board.ID, "Todo")
	doing := createColumn(t, router, board.ID, "Doing")
	done := createColumn(t, router, board.ID, "Done")
	assert.Equal(t, 0, todo.Order)
	assert.Equal(t, 1, doing.Order)
	assert.Equal(t, 2, done.Order)

	columns := []models.Column{todo, doing, done}
	cards := make([]models.Card, 5)
	for i := range cards {
		cards[i] = createCard(t, router, columns[i%3].ID, fmt.Sprintf("Card %d", i))
	}

	// move the first Todo card into Doing, appended at the end
	rec := testsupport.DoJSON(t, router, http.MethodPatch, "/api/cards/"+cards[0].ID, map[string]any{
		"columnId": doing.ID,
		"order":    2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	// its old neighbour closes the gap
	rec = testsupport.DoJSON(t, router, http.MethodPatch, "/api/cards/"+cards[3].ID, map[string]any{"order": 0})
	require.Equal(t, http.StatusOK, rec.Code)

	// archive one card
	rec = testsupport.DoJSON(t, router, http.MethodPatch, "/api/cards/"+cards[2].ID, map[string]any{"status": "archived"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := getBoard(t, router, board.ID)
	assert.Len(t, resp.Columns, 3)
	assert.Len(t, resp.Cards, 4)

	for _, card := range resp.Cards {
		if card.ID == cards[0].ID {
			assert.Equal(t, doing.ID, card.ColumnID)
		}
	}

	// active cards of every column form a dense zero-based sequence
	byColumn := map[string][]int{}
	for _, card := range resp.Cards {
		byColumn[card.ColumnID] = append(byColumn[card.ColumnID], card.Order)
	}
	for columnID, orders := range byColumn {
		for i, order := range orders {
			assert.Equal(t, i, order, "column %s", columnID)
		}
	}
}
