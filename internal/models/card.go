package models

import (
	"encoding/json"
	"time"
)

// PlaylistItem is a stored reference from a playlist card to another card.
type PlaylistItem struct {
	CardID string `json:"cardId"`
	Order  int    `json:"order"`
}

// PlaylistItemView is the read-time shape of a playlist item, enriched with
// the referenced card's current title and media URLs. References whose card
// is missing or archived are dropped from the view, never from storage.
type PlaylistItemView struct {
	CardID   string `json:"cardId"`
	Order    int    `json:"order"`
	Title    string `json:"title"`
	AudioURL string `json:"audioUrl"`
	CoverURL string `json:"coverUrl"`
}

type Card struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	Title       string          `json:"title"`
	Description json.RawMessage `gorm:"serializer:json" json:"description,omitempty"`
	AudioURL    string          `json:"audioUrl"`
	CoverURL    string          `json:"coverUrl"`
	// MusicAINotes holds AI-generated (or user-edited) audio analysis text.
	MusicAINotes             string         `gorm:"column:music_ai_notes" json:"music_ai_notes"`
	Rating                   int            `json:"rating"`
	Tags                     []string       `gorm:"serializer:json" json:"tags"`
	ShowDescriptionInPreview bool           `gorm:"default:false" json:"showDescriptionInPreview"`
	ShowTagsInPreview        bool           `gorm:"default:true" json:"showTagsInPreview"`
	IsPlaylist               bool           `gorm:"default:false" json:"isPlaylist"`
	PlaylistItems            []PlaylistItem `gorm:"serializer:json" json:"playlistItems"`
	PlaylistHistory          []PlaylistItem `gorm:"serializer:json" json:"playlistHistory"`
	Order                    int            `gorm:"column:position" json:"order"`
	ColumnID                 string         `gorm:"index" json:"columnId"`
	Status                   Status         `gorm:"default:active" json:"status"`
	CreatedAt                time.Time      `json:"createdAt"`
	UpdatedAt                time.Time      `json:"updatedAt"`
}

// CardView is a card as returned by read endpoints: playlist cards carry the
// enriched form of their items. The outer field shadows Card.PlaylistItems
// during JSON encoding.
type CardView struct {
	Card
	PlaylistItems []PlaylistItemView `json:"playlistItems"`
}
