package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanbanmusic/client"
	"kanbanmusic/internal/models"
	"kanbanmusic/internal/testsupport"
)

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Board not found"}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.GetCard(context.Background(), "x")
	require.Error(t, err)

	apiErr, ok := err.(*client.APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Board not found", apiErr.Message)
	assert.True(t, client.IsNotFound(err))
}

func TestGetBoardRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"board":{"id":"b1","title":"B"},"columns":[],"cards":[]}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	detail, err := c.GetBoard(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", detail.Board.ID)
	assert.Equal(t, int64(3), calls.Load())
}

// An explicit empty slice in a patch clears the stored list instead of being
// dropped from the request body.
func TestUpdateCardClearsSliceFields(t *testing.T) {
	router, _ := testsupport.NewServer(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	c := client.New(srv.URL)
	ctx := context.Background()

	board, err := c.CreateBoard(ctx, "B")
	require.NoError(t, err)
	col, err := c.CreateColumn(ctx, board.ID, "Col")
	require.NoError(t, err)
	ref, err := c.CreateCard(ctx, col.ID, "Track")
	require.NoError(t, err)
	card, err := c.CreateCard(ctx, col.ID, "Mix")
	require.NoError(t, err)

	tags := []string{"jazz", "piano"}
	isPlaylist := true
	items := []models.PlaylistItem{{CardID: ref.ID, Order: 0}}
	updated, err := c.UpdateCard(ctx, card.ID, client.CardPatch{
		Tags:          &tags,
		IsPlaylist:    &isPlaylist,
		PlaylistItems: &items,
	})
	require.NoError(t, err)
	require.Equal(t, tags, updated.Tags)
	require.Len(t, updated.PlaylistItems, 1)

	empty := []string{}
	noItems := []models.PlaylistItem{}
	updated, err = c.UpdateCard(ctx, card.ID, client.CardPatch{
		Tags:          &empty,
		PlaylistItems: &noItems,
	})
	require.NoError(t, err)
	assert.Empty(t, updated.Tags)
	assert.Empty(t, updated.PlaylistItems)
}

func TestGetBoardDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Board not found"}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.GetBoard(context.Background(), "missing")
	assert.True(t, client.IsNotFound(err))
	assert.Equal(t, int64(1), calls.Load())
}
