package chat

import (
	"context"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domain "github.com/collabnotes/collabnotes/domain/chat"
)

// Service implements the chat domain operations: requests, chats,
// messages, and the per-participant visibility reconciliation.
type Service struct {
	repo  *Repository
	notes NoteSharer
}

// NewService creates a new chat service.
func NewService(repo *Repository, notes NoteSharer) *Service {
	return &Service{
		repo:  repo,
		notes: notes,
	}
}

// CreateRequest creates a pending chat request from one user to another.
func (s *Service) CreateRequest(_ context.Context, fromID, toID, message string) (*domain.Request, error) {
	if fromID == toID {
		return nil, ErrSelfRequest
	}
	if utf8.RuneCountInString(message) > domain.MaxRequestLength {
		return nil, ErrMessageTooLong
	}

	// The pair-key index is the real guard; this read just gives a clean
	// answer on the common path.
	if _, err := s.repo.FindPendingRequestBetween(fromID, toID); err == nil {
		return nil, ErrRequestExists
	} else if !errors.Is(err, ErrRequestNotFound) {
		return nil, err
	}

	req := &domain.Request{
		ID:      uuid.New().String(),
		FromID:  fromID,
		ToID:    toID,
		Status:  domain.RequestPending,
		Message: message,
		PairKey: domain.PairKeyFor(fromID, toID),
	}
	if err := s.repo.CreateRequest(req); err != nil {
		return nil, err
	}

	return s.repo.FindRequestByID(req.ID)
}

// ListRequests returns the pending requests addressed to the user.
func (s *Service) ListRequests(_ context.Context, userID string) ([]*domain.Request, error) {
	return s.repo.ListPendingRequests(userID)
}

// RespondToRequest accepts or rejects a pending request. Only the
// recipient may respond, and only while the request is pending; answering
// an already-settled request returns ErrRequestNotFound, so no duplicate
// chat can ever be created. Accepting creates the chat with both users as
// members.
func (s *Service) RespondToRequest(_ context.Context, requestID, responderID, status string) (*RespondResult, error) {
	if status != domain.RequestAccepted && status != domain.RequestRejected {
		return nil, ErrBadStatus
	}

	req, err := s.repo.FindRequestByID(requestID)
	if err != nil {
		return nil, err
	}
	if req.ToID != responderID || req.Status != domain.RequestPending {
		return nil, ErrRequestNotFound
	}

	updated, err := s.repo.UpdateRequestStatus(requestID, status)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost the race against another response.
		return nil, ErrRequestNotFound
	}
	req.Status = status

	if status != domain.RequestAccepted {
		return &RespondResult{Request: req}, nil
	}

	now := time.Now()
	c := &domain.Chat{
		ID: uuid.New().String(),
		Participants: []domain.Participant{
			{ChatID: "", UserID: req.FromID, Role: domain.RoleMember, JoinedAt: now},
			{ChatID: "", UserID: responderID, Role: domain.RoleMember, JoinedAt: now},
		},
	}
	for i := range c.Participants {
		c.Participants[i].ChatID = c.ID
	}
	if err := s.repo.CreateChat(c); err != nil {
		return nil, err
	}

	full, err := s.repo.FindChatByID(c.ID)
	if err != nil {
		return nil, err
	}
	return &RespondResult{Request: req, Chat: full}, nil
}

// CreateGroup creates a group chat with the creator as admin.
func (s *Service) CreateGroup(_ context.Context, creatorID, name string, memberIDs []string) (*domain.Chat, error) {
	if name == "" {
		return nil, ErrGroupName
	}

	now := time.Now()
	participants := []domain.Participant{
		{UserID: creatorID, Role: domain.RoleAdmin, JoinedAt: now},
	}
	seen := map[string]bool{creatorID: true}
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		participants = append(participants, domain.Participant{
			UserID:   id,
			Role:     domain.RoleMember,
			JoinedAt: now,
		})
	}
	if len(participants) < 2 {
		return nil, ErrGroupMembers
	}

	c := &domain.Chat{
		ID:           uuid.New().String(),
		Name:         name,
		IsGroup:      true,
		Participants: participants,
	}
	for i := range c.Participants {
		c.Participants[i].ChatID = c.ID
	}
	if err := s.repo.CreateChat(c); err != nil {
		return nil, err
	}
	return s.repo.FindChatByID(c.ID)
}

// ListChats returns the chats visible to the user, per that user's own
// flags only, pinned first then most recent activity.
func (s *Service) ListChats(_ context.Context, userID string, includeArchived bool) ([]*domain.Chat, error) {
	return s.repo.ListChatsForUser(userID, ListOptions{IncludeArchived: includeArchived})
}

// ListAllChats returns every chat the user participates in, deleted and
// archived included. Backs the user-search surface.
func (s *Service) ListAllChats(_ context.Context, userID string) ([]*domain.Chat, error) {
	return s.repo.ListChatsForUser(userID, ListOptions{IncludeDeleted: true})
}

// ChatIDsFor returns the IDs of every chat the user participates in.
func (s *Service) ChatIDsFor(_ context.Context, userID string) ([]string, error) {
	return s.repo.ListChatIDsForUser(userID)
}

// UpdateSettings changes the caller's own visibility flags on a chat.
// Archiving always clears the pin: an archived chat cannot stay pinned.
// Other participants' flags are never touched.
func (s *Service) UpdateSettings(_ context.Context, chatID, userID string, update SettingsUpdate) (*domain.Chat, error) {
	c, err := s.repo.FindChatForParticipant(chatID, userID)
	if err != nil {
		return nil, err
	}

	p := c.ParticipantFor(userID)
	if p == nil {
		return nil, ErrNotParticipant
	}

	if update.IsPinned != nil {
		p.IsPinned = *update.IsPinned
	}
	if update.IsArchived != nil {
		p.IsArchived = *update.IsArchived
		if p.IsArchived {
			p.IsPinned = false
		}
	}
	if update.IsDeleted != nil {
		p.IsDeleted = *update.IsDeleted
	}

	if err := s.repo.UpdateParticipantFlags(p); err != nil {
		return nil, err
	}
	return s.repo.FindChatByID(chatID)
}

// ListMessages returns one page of the chat's history. A caller who is not
// a participant, or who has deleted the chat, gets ErrChatNotFound.
func (s *Service) ListMessages(_ context.Context, chatID, userID string, page, limit int) ([]*domain.Message, error) {
	c, err := s.repo.FindChatForParticipant(chatID, userID)
	if err != nil {
		return nil, err
	}
	if p := c.ParticipantFor(userID); p == nil || p.IsDeleted {
		return nil, ErrChatNotFound
	}
	return s.repo.ListMessages(chatID, page, limit)
}

// SendMessage runs the full send pipeline: participant check, persistence,
// note-share grant, visibility restoration for participants who had
// deleted the chat, and the last-message bump. The returned SendResult
// carries everything the fan-out layer announces.
func (s *Service) SendMessage(ctx context.Context, in SendInput) (*SendResult, error) {
	content := in.Content
	if content == "" {
		return nil, ErrMessageEmpty
	}
	if utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	msgType := in.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
	}

	c, err := s.repo.FindChatForParticipant(in.ChatID, in.SenderID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:           uuid.New().String(),
		ChatID:       in.ChatID,
		SenderID:     in.SenderID,
		Content:      content,
		Type:         msgType,
		SharedNoteID: in.SharedNoteID,
	}
	if err := s.repo.CreateMessage(msg); err != nil {
		return nil, err
	}

	result := &SendResult{}

	// Note-share grant. A vanished note degrades to a delivered message
	// carrying the unavailable marker; it never fails the send.
	if msgType == domain.MessageTypeNote && in.SharedNoteID != nil {
		available := true
		grant, err := s.notes.GrantChatShare(ctx, *in.SharedNoteID, c.ParticipantIDs(), in.SenderID)
		switch {
		case err == nil:
			if len(grant.Granted) > 0 {
				result.NoteGrant = grant
			}
		case errors.Is(err, ErrSharedNoteGone):
			available = false
		default:
			log.Printf("[chat] Error processing shared note %s: %v", *in.SharedNoteID, err)
		}
		result.NoteAvailable = &available
	}

	// Reconciliation: a new message makes the chat reappear for every
	// participant who had deleted it, except the sender.
	for i := range c.Participants {
		p := &c.Participants[i]
		if !p.IsDeleted || p.UserID == in.SenderID {
			continue
		}
		p.IsDeleted = false
		p.IsArchived = false
		if err := s.repo.UpdateParticipantFlags(p); err != nil {
			return nil, err
		}
		result.RestoredFor = append(result.RestoredFor, p.UserID)
	}

	if err := s.repo.SetLastMessage(in.ChatID, msg.ID, time.Now()); err != nil {
		return nil, err
	}

	full, err := s.repo.FindMessageByID(msg.ID)
	if err != nil {
		return nil, err
	}
	result.Message = full
	return result, nil
}

// IsParticipant reports whether the user belongs to the chat.
func (s *Service) IsParticipant(_ context.Context, chatID, userID string) (bool, error) {
	_, err := s.repo.FindChatForParticipant(chatID, userID)
	if err != nil {
		if errors.Is(err, ErrChatNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Audience computes the distinct co-participants of the user across every
// chat, for presence fan-out.
func (s *Service) Audience(_ context.Context, userID string) ([]string, error) {
	return s.repo.AudienceFor(userID)
}
