// Package validate holds the input rules shared by the CRUD handlers:
// title length bounds, URL shape checks and range checks for rating, order
// and status. Errors carry field-level detail for 400 responses.
package validate

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"kanbanmusic/internal/models"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is the collected validation failure for one request body.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}

// OrNil returns the collected errors, or nil when none were recorded.
func (e Errors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e *Errors) add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

const (
	MaxBoardTitleLen  = 100
	MaxColumnTitleLen = 100
	MaxCardTitleLen   = 200
)

// Title checks a required title against its length bound. The bound counts
// characters, not bytes, so multibyte titles are not penalized.
func Title(errs *Errors, field, title string, max int) {
	if title == "" {
		errs.add(field, "Title is required")
		return
	}
	if utf8.RuneCountInString(title) > max {
		errs.add(field, fmt.Sprintf("Title must be less than %d characters", max))
	}
}

// URL accepts empty strings, local paths starting with "/", and anything that
// parses as an absolute URL.
func URL(errs *Errors, field, raw string) {
	if !urlOK(raw) {
		errs.add(field, "Invalid cover URL or path")
	}
}

// AudioURL additionally requires an audio file extension or a supported
// streaming service host.
func AudioURL(errs *Errors, field, raw string) {
	if !urlOK(raw) {
		errs.add(field, "Invalid audio URL or path")
		return
	}
	if raw == "" {
		return
	}

	lower := strings.ToLower(raw)
	for _, ext := range []string{".mp3", ".wav", ".ogg", ".m4a", ".aac"} {
		if strings.Contains(lower, ext) {
			return
		}
	}
	for _, service := range []string{"soundcloud", "spotify", "youtube"} {
		if strings.Contains(lower, service) {
			return
		}
	}
	errs.add(field, "Invalid audio URL or path")
}

// Rating checks the 0..5 star range.
func Rating(errs *Errors, field string, rating int) {
	if rating < 0 || rating > 5 {
		errs.add(field, "Rating must be between 0 and 5")
	}
}

// Order rejects negative order values.
func Order(errs *Errors, field string, order int) {
	if order < 0 {
		errs.add(field, "Order must not be negative")
	}
}

// Status checks the active/archived enum.
func Status(errs *Errors, field string, status models.Status) {
	if !status.Valid() {
		errs.add(field, "Status must be 'active' or 'archived'")
	}
}

// PlaylistItems checks stored playlist references.
func PlaylistItems(errs *Errors, field string, items []models.PlaylistItem) {
	for i, item := range items {
		if item.CardID == "" {
			errs.add(fmt.Sprintf("%s[%d].cardId", field, i), "Card ID is required")
		}
		if item.Order < 0 {
			errs.add(fmt.Sprintf("%s[%d].order", field, i), "Order must not be negative")
		}
	}
}

// Tags drops empty and whitespace-only entries and trims the rest.
func Tags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// MergeTags appends new tags to existing ones, deduplicated, preserving first
// occurrence order. The known-tags set of a board only ever grows.
func MergeTags(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, tag := range existing {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}
	for _, tag := range Tags(incoming) {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}
	return merged
}

func urlOK(raw string) bool {
	if raw == "" {
		return true
	}
	if strings.HasPrefix(raw, "/") {
		return true
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
