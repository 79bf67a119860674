package note

import (
	"errors"

	domain "github.com/collabnotes/collabnotes/domain/note"
)

// Validation and authorization errors.
var (
	ErrNoteNotFound   = errors.New("note not found")
	ErrAccessDenied   = errors.New("no permission to modify note")
	ErrTitleEmpty     = errors.New("title cannot be empty")
	ErrTitleTooLong   = errors.New("title exceeds maximum length")
	ErrContentEmpty   = errors.New("content cannot be empty")
	ErrContentTooLong = errors.New("content exceeds maximum length")
	ErrBadPermission  = errors.New("permission must be read or write")
	ErrNoIDs          = errors.New("note IDs are required")
)

// ListFilter narrows a note listing. Nil boolean fields mean "either".
type ListFilter struct {
	Search   string
	Labels   []string
	Archived *bool
	Pinned   *bool
	Page     int
	Limit    int
}

// CreateInput describes a new note.
type CreateInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Labels  []string `json:"labels"`
	Color   string   `json:"color"`
}

// UpdateInput carries a partial note update. Nil fields are untouched.
type UpdateInput struct {
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Labels   *[]string `json:"labels,omitempty"`
	Color    *string   `json:"color,omitempty"`
	Archived *bool     `json:"archived,omitempty"`
	Pinned   *bool     `json:"pinned,omitempty"`
}

// BulkUpdate applies one UpdateInput to several notes at once.
type BulkUpdate struct {
	NoteIDs []string    `json:"note_ids"`
	Updates UpdateInput `json:"updates"`
}

// BulkResult reports how the bulk update went. Matched counts notes the
// caller could modify; Modified counts those actually changed.
type BulkResult struct {
	Matched  int `json:"matched_count"`
	Modified int `json:"modified_count"`
}

// Page is one page of a note listing.
type Page struct {
	Notes       []*domain.Note `json:"notes"`
	Total       int64          `json:"total"`
	TotalPages  int            `json:"total_pages"`
	CurrentPage int            `json:"current_page"`
}
