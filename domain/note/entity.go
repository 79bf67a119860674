package note

import (
	"time"

	"github.com/collabnotes/collabnotes/domain/user"
)

// Share permissions.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
)

// Content limits.
const (
	MaxTitleLength   = 200
	MaxContentLength = 10000
)

// DefaultColor is the color tag assigned to new notes.
const DefaultColor = "#ffffff"

// Note is a user-owned document that can be shared for collaboration.
// The owner has implicit full access; everyone else goes through SharedWith.
type Note struct {
	ID         string     `gorm:"primaryKey;type:text" json:"id"`
	Title      string     `gorm:"not null;type:text" json:"title"`
	Content    string     `gorm:"not null;type:text" json:"content"`
	OwnerID    string     `gorm:"index;not null;type:text" json:"-"`
	Owner      *user.User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	SharedWith []Share    `gorm:"foreignKey:NoteID" json:"shared_with"`
	Labels     []string   `gorm:"serializer:json;type:text" json:"labels"`
	Archived   bool       `gorm:"not null;default:false" json:"archived"`
	Pinned     bool       `gorm:"not null;default:false" json:"pinned"`
	Color      string     `gorm:"not null;default:'#ffffff';type:text" json:"color"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the table name for the Note entity.
func (Note) TableName() string {
	return "notes"
}

// Share grants one user read or write access to a note.
type Share struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	NoteID     string     `gorm:"uniqueIndex:idx_note_share;not null;type:text" json:"-"`
	UserID     string     `gorm:"uniqueIndex:idx_note_share;not null;type:text" json:"-"`
	User       *user.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Permission string     `gorm:"not null;default:read;type:text" json:"permission"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName returns the table name for the Share entity.
func (Share) TableName() string {
	return "note_shares"
}

// SharedUserIDs returns the IDs of all users the note is shared with.
func (n *Note) SharedUserIDs() []string {
	ids := make([]string, 0, len(n.SharedWith))
	for i := range n.SharedWith {
		ids = append(ids, n.SharedWith[i].UserID)
	}
	return ids
}

// AccessUserIDs returns the owner plus every shared user.
func (n *Note) AccessUserIDs() []string {
	return append([]string{n.OwnerID}, n.SharedUserIDs()...)
}

// HasAccess reports whether the user can read the note.
func (n *Note) HasAccess(userID string) bool {
	if n.OwnerID == userID {
		return true
	}
	for i := range n.SharedWith {
		if n.SharedWith[i].UserID == userID {
			return true
		}
	}
	return false
}

// CanWrite reports whether the user can modify the note.
func (n *Note) CanWrite(userID string) bool {
	if n.OwnerID == userID {
		return true
	}
	for i := range n.SharedWith {
		if n.SharedWith[i].UserID == userID {
			return n.SharedWith[i].Permission == PermissionWrite
		}
	}
	return false
}

// Summary is the note projection embedded in note-share chat messages.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"owner_id"`
	Labels    []string  `json:"labels,omitempty"`
	Color     string    `json:"color"`
	UpdatedAt time.Time `json:"updated_at"`
	// Available is false when the shared note has since been deleted.
	Available bool `json:"available"`
}

// Summarize returns the share projection of the note.
func (n *Note) Summarize() Summary {
	return Summary{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		OwnerID:   n.OwnerID,
		Labels:    n.Labels,
		Color:     n.Color,
		UpdatedAt: n.UpdatedAt,
		Available: true,
	}
}
