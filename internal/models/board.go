package models

import "time"

// DefaultBoardTitle is assigned when a board is created without a title.
const DefaultBoardTitle = "Novo Board"

type Board struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Title     string    `json:"title"`
	KnownTags []string  `gorm:"serializer:json" json:"knownTags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
