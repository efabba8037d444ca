// Package client is the Go client for the kanbanmusic API. It couples a
// plain REST client with an optimistic board cache and the reordering
// planner, so UIs can apply drag-and-drop mutations immediately and converge
// with the server afterwards.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"kanbanmusic/internal/models"
)

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 API response.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to one kanbanmusic server.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func New(baseURL string) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// BoardDetail is the full board view returned by the server: columns sorted
// by order, then the active cards of those columns sorted by order.
type BoardDetail struct {
	Board   models.Board      `json:"board"`
	Columns []models.Column   `json:"columns"`
	Cards   []models.CardView `json:"cards"`
}

// ColumnPatch is a partial column update; nil fields are left unchanged.
type ColumnPatch struct {
	Title    *string        `json:"title,omitempty"`
	CoverURL *string        `json:"coverUrl,omitempty"`
	Order    *int           `json:"order,omitempty"`
	Status   *models.Status `json:"status,omitempty"`
}

// CardPatch is a partial card update; nil fields are left unchanged. The
// slice fields are pointers so an explicit empty slice still reaches the
// wire and clears the stored list.
type CardPatch struct {
	Title                    *string                `json:"title,omitempty"`
	Description              json.RawMessage        `json:"description,omitempty"`
	AudioURL                 *string                `json:"audioUrl,omitempty"`
	CoverURL                 *string                `json:"coverUrl,omitempty"`
	MusicAINotes             *string                `json:"music_ai_notes,omitempty"`
	Rating                   *int                   `json:"rating,omitempty"`
	Tags                     *[]string              `json:"tags,omitempty"`
	ShowDescriptionInPreview *bool                  `json:"showDescriptionInPreview,omitempty"`
	ShowTagsInPreview        *bool                  `json:"showTagsInPreview,omitempty"`
	IsPlaylist               *bool                  `json:"isPlaylist,omitempty"`
	PlaylistItems            *[]models.PlaylistItem `json:"playlistItems,omitempty"`
	Order                    *int                   `json:"order,omitempty"`
	ColumnID                 *string                `json:"columnId,omitempty"`
	Status                   *models.Status         `json:"status,omitempty"`
}

// CreateBoard makes a new board; title may be empty for the server default.
func (c *Client) CreateBoard(ctx context.Context, title string) (*models.Board, error) {
	body := map[string]any{}
	if title != "" {
		body["title"] = title
	}
	var board models.Board
	if err := c.do(ctx, http.MethodPost, "/api/boards", body, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// GetBoard fetches the full board view. Reads are retried on transient
// failure; mutations never are.
func (c *Client) GetBoard(ctx context.Context, boardID string) (*BoardDetail, error) {
	var detail BoardDetail
	err := retry.Do(
		func() error {
			return c.do(ctx, http.MethodGet, "/api/boards/"+boardID, nil, &detail)
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			apiErr, ok := err.(*APIError)
			return !ok || apiErr.StatusCode >= http.StatusInternalServerError
		}),
	)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) UpdateBoard(ctx context.Context, boardID, title string) (*models.Board, error) {
	var board models.Board
	err := c.do(ctx, http.MethodPatch, "/api/boards/"+boardID, map[string]any{"title": title}, &board)
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	return c.do(ctx, http.MethodDelete, "/api/boards/"+boardID, nil, nil)
}

func (c *Client) CreateColumn(ctx context.Context, boardID, title string) (*models.Column, error) {
	var column models.Column
	err := c.do(ctx, http.MethodPost, "/api/boards/"+boardID+"/columns", map[string]any{"title": title}, &column)
	if err != nil {
		return nil, err
	}
	return &column, nil
}

func (c *Client) UpdateColumn(ctx context.Context, columnID string, patch ColumnPatch) (*models.Column, error) {
	var column models.Column
	if err := c.do(ctx, http.MethodPatch, "/api/columns/"+columnID, patch, &column); err != nil {
		return nil, err
	}
	return &column, nil
}

func (c *Client) DeleteColumn(ctx context.Context, columnID string) error {
	return c.do(ctx, http.MethodDelete, "/api/columns/"+columnID, nil, nil)
}

func (c *Client) CreateCard(ctx context.Context, columnID, title string) (*models.Card, error) {
	var card models.Card
	err := c.do(ctx, http.MethodPost, "/api/columns/"+columnID+"/cards", map[string]any{"title": title}, &card)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) GetCard(ctx context.Context, cardID string) (*models.CardView, error) {
	var card models.CardView
	if err := c.do(ctx, http.MethodGet, "/api/cards/"+cardID, nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) UpdateCard(ctx context.Context, cardID string, patch CardPatch) (*models.Card, error) {
	var card models.Card
	if err := c.do(ctx, http.MethodPatch, "/api/cards/"+cardID, patch, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	return c.do(ctx, http.MethodDelete, "/api/cards/"+cardID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if jsonErr := json.Unmarshal(data, &errBody); jsonErr != nil || errBody.Error == "" {
			errBody.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
