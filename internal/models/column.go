package models

import "time"

// Status is the lifecycle state of a column or card. Active records are the
// only ones that participate in ordering; archived records can be restored or
// hard-deleted.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusArchived
}

type Column struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Title     string    `json:"title"`
	CoverURL  string    `json:"coverUrl"`
	Order     int       `gorm:"column:position" json:"order"`
	BoardID   string    `gorm:"index" json:"boardId"`
	Status    Status    `gorm:"default:active" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
