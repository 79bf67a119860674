package note

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domain "github.com/collabnotes/collabnotes/domain/note"
	"github.com/collabnotes/collabnotes/modules/chat"
)

// Service implements note CRUD, sharing and the chat-share grant.
type Service struct {
	repo *Repository
}

// Compile-time check: the service is the grantor behind note-share messages.
var _ chat.NoteSharer = (*Service)(nil)

// NewService creates a new note service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and persists a new note owned by the user.
func (s *Service) Create(_ context.Context, ownerID string, in CreateInput) (*domain.Note, error) {
	if in.Title == "" {
		return nil, ErrTitleEmpty
	}
	if utf8.RuneCountInString(in.Title) > domain.MaxTitleLength {
		return nil, ErrTitleTooLong
	}
	if in.Content == "" {
		return nil, ErrContentEmpty
	}
	if utf8.RuneCountInString(in.Content) > domain.MaxContentLength {
		return nil, ErrContentTooLong
	}

	color := in.Color
	if color == "" {
		color = domain.DefaultColor
	}
	labels := in.Labels
	if labels == nil {
		labels = []string{}
	}

	n := &domain.Note{
		ID:      uuid.New().String(),
		Title:   in.Title,
		Content: in.Content,
		OwnerID: ownerID,
		Labels:  labels,
		Color:   color,
	}
	if err := s.repo.Create(n); err != nil {
		return nil, err
	}
	return s.repo.FindByID(n.ID)
}

// Get returns a note the user owns or has been shared.
func (s *Service) Get(_ context.Context, noteID, userID string) (*domain.Note, error) {
	return s.repo.FindAccessible(noteID, userID)
}

// List returns one page of the user's notes.
func (s *Service) List(_ context.Context, userID string, filter ListFilter) (*Page, error) {
	return s.repo.List(userID, filter)
}

// Update applies a partial update. The owner and write-share holders may
// edit; concurrent edits resolve last write wins.
func (s *Service) Update(_ context.Context, noteID, userID string, in UpdateInput) (*domain.Note, error) {
	n, err := s.repo.FindAccessible(noteID, userID)
	if err != nil {
		return nil, err
	}
	if !n.CanWrite(userID) {
		return nil, ErrAccessDenied
	}
	if err := applyUpdate(n, in); err != nil {
		return nil, err
	}
	if err := s.repo.Save(n); err != nil {
		return nil, err
	}
	return s.repo.FindByID(noteID)
}

// Delete removes a note. Owner only; anyone else sees ErrNoteNotFound.
func (s *Service) Delete(_ context.Context, noteID, userID string) error {
	n, err := s.repo.FindByID(noteID)
	if err != nil {
		return err
	}
	if n.OwnerID != userID {
		return ErrNoteNotFound
	}
	return s.repo.Delete(noteID)
}

// BulkUpdate applies one update to several notes. Notes the caller cannot
// write are skipped, not failed.
func (s *Service) BulkUpdate(_ context.Context, userID string, bulk BulkUpdate) (*BulkResult, error) {
	if len(bulk.NoteIDs) == 0 {
		return nil, ErrNoIDs
	}

	result := &BulkResult{}
	for _, id := range bulk.NoteIDs {
		n, err := s.repo.FindByID(id)
		if err != nil {
			if errors.Is(err, ErrNoteNotFound) {
				continue
			}
			return nil, err
		}
		if !n.CanWrite(userID) {
			continue
		}
		result.Matched++
		if err := applyUpdate(n, bulk.Updates); err != nil {
			return nil, err
		}
		if err := s.repo.Save(n); err != nil {
			return nil, err
		}
		result.Modified++
	}
	return result, nil
}

// Share grants the listed users access to a note the caller owns. Users
// who already hold access keep their existing permission. Returns the
// refreshed note and the IDs actually granted.
func (s *Service) Share(_ context.Context, noteID, ownerID string, userIDs []string, permission string) (*domain.Note, []string, error) {
	if permission == "" {
		permission = domain.PermissionWrite
	}
	if permission != domain.PermissionRead && permission != domain.PermissionWrite {
		return nil, nil, ErrBadPermission
	}

	n, err := s.repo.FindByID(noteID)
	if err != nil {
		return nil, nil, err
	}
	if n.OwnerID != ownerID {
		return nil, nil, ErrNoteNotFound
	}

	shares, granted := newShares(n, userIDs, permission)
	if err := s.repo.AddShares(shares); err != nil {
		return nil, nil, err
	}

	refreshed, err := s.repo.FindByID(noteID)
	if err != nil {
		return nil, nil, err
	}
	return refreshed, granted, nil
}

// GrantChatShare gives write access to every chat participant who lacks it
// when a note is shared into a chat. A deleted note reports
// chat.ErrSharedNoteGone so the message can still be delivered with the
// unavailable marker.
func (s *Service) GrantChatShare(_ context.Context, noteID string, participantIDs []string, granterID string) (*chat.NoteGrant, error) {
	n, err := s.repo.FindByID(noteID)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return nil, chat.ErrSharedNoteGone
		}
		return nil, err
	}

	shares, granted := newShares(n, participantIDs, domain.PermissionWrite)
	if err := s.repo.AddShares(shares); err != nil {
		return nil, err
	}

	return &chat.NoteGrant{Note: n.Summarize(), Granted: granted}, nil
}

// CanWrite reports whether the user may edit the note. Used by the live
// collaboration relay before forwarding edits.
func (s *Service) CanWrite(_ context.Context, noteID, userID string) (bool, error) {
	n, err := s.repo.FindByID(noteID)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return false, nil
		}
		return false, err
	}
	return n.CanWrite(userID), nil
}

// HasAccess reports whether the user may read the note.
func (s *Service) HasAccess(_ context.Context, noteID, userID string) (bool, error) {
	n, err := s.repo.FindByID(noteID)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return false, nil
		}
		return false, err
	}
	return n.HasAccess(userID), nil
}

// RecipientsExcept returns every user with access to the note other than
// the given one. Backs the save notification fan-out.
func (s *Service) RecipientsExcept(_ context.Context, noteID, exceptID string) ([]string, error) {
	n, err := s.repo.FindByID(noteID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, id := range n.AccessUserIDs() {
		if id != exceptID {
			out = append(out, id)
		}
	}
	return out, nil
}

// newShares builds share rows for the users who do not yet hold access to
// the note. The owner is never added.
func newShares(n *domain.Note, userIDs []string, permission string) ([]domain.Share, []string) {
	var shares []domain.Share
	var granted []string
	seen := map[string]bool{}
	now := time.Now()
	for _, id := range userIDs {
		if id == "" || seen[id] || n.HasAccess(id) {
			continue
		}
		seen[id] = true
		shares = append(shares, domain.Share{
			NoteID:     n.ID,
			UserID:     id,
			Permission: permission,
			CreatedAt:  now,
		})
		granted = append(granted, id)
	}
	return shares, granted
}

// applyUpdate copies the non-nil fields of the update onto the note,
// validating lengths.
func applyUpdate(n *domain.Note, in UpdateInput) error {
	if in.Title != nil {
		if *in.Title == "" {
			return ErrTitleEmpty
		}
		if utf8.RuneCountInString(*in.Title) > domain.MaxTitleLength {
			return ErrTitleTooLong
		}
		n.Title = *in.Title
	}
	if in.Content != nil {
		if utf8.RuneCountInString(*in.Content) > domain.MaxContentLength {
			return ErrContentTooLong
		}
		n.Content = *in.Content
	}
	if in.Labels != nil {
		n.Labels = *in.Labels
	}
	if in.Color != nil {
		n.Color = *in.Color
	}
	if in.Archived != nil {
		n.Archived = *in.Archived
	}
	if in.Pinned != nil {
		n.Pinned = *in.Pinned
	}
	return nil
}
