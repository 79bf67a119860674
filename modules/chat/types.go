package chat

import (
	"context"
	"errors"

	domain "github.com/collabnotes/collabnotes/domain/chat"
	"github.com/collabnotes/collabnotes/domain/note"
)

// Validation and authorization errors.
var (
	ErrSelfRequest    = errors.New("cannot send chat request to yourself")
	ErrNotParticipant = errors.New("user is not a chat participant")
	ErrMessageEmpty   = errors.New("message content cannot be empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	ErrBadStatus      = errors.New("status must be accepted or rejected")
	ErrGroupName      = errors.New("group name cannot be empty")
	ErrGroupMembers   = errors.New("group chat needs at least one other member")
)

// NoteSharer grants chat participants access to a shared note. Implemented
// by the note module; ErrSharedNoteGone signals the note no longer exists.
type NoteSharer interface {
	GrantChatShare(ctx context.Context, noteID string, participantIDs []string, granterID string) (*NoteGrant, error)
}

// ErrSharedNoteGone is returned by a NoteSharer when the referenced note
// has been deleted. The message is still delivered in that case.
var ErrSharedNoteGone = errors.New("shared note no longer exists")

// NoteGrant is the outcome of sharing a note into a chat.
type NoteGrant struct {
	Note    note.Summary
	Granted []string
}

// SettingsUpdate carries a participant's own visibility flag changes.
// Nil fields are left untouched.
type SettingsUpdate struct {
	IsPinned   *bool `json:"is_pinned,omitempty"`
	IsArchived *bool `json:"is_archived,omitempty"`
	IsDeleted  *bool `json:"is_deleted,omitempty"`
}

// SendInput describes a message to send into a chat.
type SendInput struct {
	ChatID       string
	SenderID     string
	Content      string
	Type         string
	SharedNoteID *string
}

// SendResult is the outcome of the full send pipeline: the persisted
// message plus the side effects the fan-out layer needs to announce.
type SendResult struct {
	Message *domain.Message
	// NoteAvailable is non-nil for note-share messages.
	NoteAvailable *bool
	// NoteGrant holds the newly granted users, when any.
	NoteGrant *NoteGrant
	// RestoredFor lists participants whose deleted view was cleared.
	RestoredFor []string
}

// RespondResult is the outcome of answering a chat request.
type RespondResult struct {
	Request *domain.Request
	// Chat is set only when the request was accepted.
	Chat *domain.Chat
}
