package chat

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/collabnotes/collabnotes/domain/chat"
)

// Sentinel errors surfaced by the repository.
var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrRequestNotFound = errors.New("chat request not found")
	ErrRequestExists   = errors.New("chat request already exists")
)

// ListOptions controls the per-viewer visibility filter of ListChatsForUser.
type ListOptions struct {
	// IncludeArchived keeps chats the viewer archived in the result.
	IncludeArchived bool
	// IncludeDeleted disables the visibility filter entirely. Used by the
	// user-search surface, which needs every chat the viewer ever had.
	IncludeDeleted bool
}

// Repository provides access to chat, message and request storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new chat repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateRequest persists a chat request. The partial unique index on the
// pair key rejects a second pending request for the same user pair.
func (r *Repository) CreateRequest(req *domain.Request) error {
	if err := r.db.Create(req).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRequestExists
		}
		return fmt.Errorf("failed to create chat request: %w", err)
	}
	return nil
}

// FindRequestByID retrieves a request with the sender populated.
func (r *Repository) FindRequestByID(id string) (*domain.Request, error) {
	var req domain.Request
	err := r.db.Preload("From").First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to find chat request: %w", err)
	}
	return &req, nil
}

// FindPendingRequestBetween looks for a pending request in either direction
// between two users.
func (r *Repository) FindPendingRequestBetween(a, b string) (*domain.Request, error) {
	var req domain.Request
	err := r.db.
		Where("pair_key = ? AND status = ?", domain.PairKeyFor(a, b), domain.RequestPending).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to find pending request: %w", err)
	}
	return &req, nil
}

// ListPendingRequests returns pending requests addressed to the user,
// newest first, with senders populated.
func (r *Repository) ListPendingRequests(toUserID string) ([]*domain.Request, error) {
	var requests []*domain.Request
	err := r.db.Preload("From").
		Where("to_id = ? AND status = ?", toUserID, domain.RequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat requests: %w", err)
	}
	return requests, nil
}

// UpdateRequestStatus transitions a pending request to its terminal status.
// Matching on the pending status makes a second response a no-op, so a
// request can never be accepted twice.
func (r *Repository) UpdateRequestStatus(requestID, status string) (bool, error) {
	result := r.db.Model(&domain.Request{}).
		Where("id = ? AND status = ?", requestID, domain.RequestPending).
		Update("status", status)
	if err := result.Error; err != nil {
		return false, fmt.Errorf("failed to update request status: %w", err)
	}
	return result.RowsAffected > 0, nil
}

// CreateChat persists a chat with its participant entries.
func (r *Repository) CreateChat(c *domain.Chat) error {
	if err := r.db.Create(c).Error; err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// FindChatByID retrieves a chat with participants and their users populated.
func (r *Repository) FindChatByID(chatID string) (*domain.Chat, error) {
	var c domain.Chat
	err := r.db.
		Preload("Participants.User").
		Preload("LastMessage.Sender").
		First(&c, "id = ?", chatID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to find chat: %w", err)
	}
	return &c, nil
}

// FindChatForParticipant retrieves a chat only if the user participates in
// it. Non-participants get ErrChatNotFound rather than a denial, so the
// existence of private chats never leaks.
func (r *Repository) FindChatForParticipant(chatID, userID string) (*domain.Chat, error) {
	var c domain.Chat
	err := r.db.
		Preload("Participants.User").
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id AND cp.user_id = ?", userID).
		First(&c, "chats.id = ?", chatID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to find chat: %w", err)
	}
	return &c, nil
}

// ListChatsForUser returns the user's chats filtered by that user's own
// visibility flags, pinned first, then most recent activity.
func (r *Repository) ListChatsForUser(userID string, opts ListOptions) ([]*domain.Chat, error) {
	q := r.db.
		Preload("Participants.User").
		Preload("LastMessage.Sender").
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id AND cp.user_id = ?", userID)

	if !opts.IncludeDeleted {
		q = q.Where("cp.is_deleted = ?", false)
		if !opts.IncludeArchived {
			q = q.Where("cp.is_archived = ?", false)
		}
	}

	var chats []*domain.Chat
	err := q.Order("cp.is_pinned DESC, chats.updated_at DESC").Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

// ListChatIDsForUser returns the IDs of every chat the user participates
// in, regardless of visibility flags. Used for room subscription.
func (r *Repository) ListChatIDsForUser(userID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&domain.Participant{}).
		Where("user_id = ?", userID).
		Pluck("chat_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat ids: %w", err)
	}
	return ids, nil
}

// UpdateParticipantFlags persists one participant's visibility flags.
func (r *Repository) UpdateParticipantFlags(p *domain.Participant) error {
	err := r.db.Model(&domain.Participant{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"is_pinned":   p.IsPinned,
			"is_archived": p.IsArchived,
			"is_deleted":  p.IsDeleted,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update participant flags: %w", err)
	}
	return nil
}

// CreateMessage persists a message.
func (r *Repository) CreateMessage(msg *domain.Message) error {
	if err := r.db.Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// FindMessageByID retrieves a message with sender and shared note populated.
func (r *Repository) FindMessageByID(id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.
		Preload("Sender").
		Preload("SharedNote").
		First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns one page of a chat's messages, oldest first within
// the page. Pages count back from the most recent message.
func (r *Repository) ListMessages(chatID string, page, limit int) ([]*domain.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	var messages []*domain.Message
	err := r.db.
		Preload("Sender").
		Preload("SharedNote").
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// SetLastMessage updates the chat's last-message reference and bumps its
// activity timestamp.
func (r *Repository) SetLastMessage(chatID, messageID string, at time.Time) error {
	err := r.db.Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]any{
			"last_message_id": messageID,
			"updated_at":      at,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to set last message: %w", err)
	}
	return nil
}

// AudienceFor computes the distinct set of users sharing at least one chat
// with the given user. This is the presence fan-out audience; it ignores
// per-viewer visibility flags on purpose.
func (r *Repository) AudienceFor(userID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&domain.Participant{}).
		Distinct("chat_participants.user_id").
		Joins("JOIN chat_participants own ON own.chat_id = chat_participants.chat_id AND own.user_id = ?", userID).
		Where("chat_participants.user_id <> ?", userID).
		Pluck("chat_participants.user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute audience: %w", err)
	}
	return ids, nil
}
