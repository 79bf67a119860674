package chat

import (
	"time"

	"github.com/collabnotes/collabnotes/domain/note"
	"github.com/collabnotes/collabnotes/domain/user"
)

// Participant roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Message types.
const (
	MessageTypeText   = "text"
	MessageTypeNote   = "note"
	MessageTypeSystem = "system"
)

// Chat request statuses.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// Content limits, matching what clients are told.
const (
	MaxMessageLength = 1000
	MaxRequestLength = 200
)

// Chat is a direct or group conversation.
type Chat struct {
	ID            string        `gorm:"primaryKey;type:text" json:"id"`
	Name          string        `gorm:"type:text" json:"name,omitempty"`
	IsGroup       bool          `gorm:"not null;default:false" json:"is_group"`
	Participants  []Participant `gorm:"foreignKey:ChatID" json:"participants"`
	LastMessageID *string       `gorm:"type:text" json:"-"`
	LastMessage   *Message      `gorm:"foreignKey:LastMessageID" json:"last_message,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName returns the table name for the Chat entity.
func (Chat) TableName() string {
	return "chats"
}

// Participant is one user's membership record in a chat. The pinned,
// archived and deleted flags belong to that user alone; the same chat can
// be deleted for one participant and active for another.
type Participant struct {
	ID         uint          `gorm:"primaryKey;autoIncrement" json:"-"`
	ChatID     string        `gorm:"uniqueIndex:idx_chat_participant;not null;type:text" json:"chat_id"`
	UserID     string        `gorm:"uniqueIndex:idx_chat_participant;not null;type:text" json:"-"`
	User       *user.User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role       string        `gorm:"not null;default:member;type:text" json:"role"`
	JoinedAt   time.Time     `json:"joined_at"`
	IsPinned   bool          `gorm:"not null;default:false" json:"is_pinned"`
	IsArchived bool          `gorm:"not null;default:false" json:"is_archived"`
	IsDeleted  bool          `gorm:"not null;default:false" json:"is_deleted"`
}

// TableName returns the table name for the Participant entity.
func (Participant) TableName() string {
	return "chat_participants"
}

// Message is a single chat message. Messages are immutable after creation
// except for read-receipt appends.
type Message struct {
	ID           string        `gorm:"primaryKey;type:text" json:"id"`
	ChatID       string        `gorm:"index;not null;type:text" json:"chat_id"`
	SenderID     string        `gorm:"not null;type:text" json:"-"`
	Sender       *user.User    `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content      string        `gorm:"not null;type:text" json:"content"`
	Type         string        `gorm:"not null;default:text;type:text" json:"type"`
	SharedNoteID *string       `gorm:"type:text" json:"shared_note_id,omitempty"`
	SharedNote   *note.Note    `gorm:"foreignKey:SharedNoteID" json:"shared_note,omitempty"`
	ReadBy       []MessageRead `gorm:"foreignKey:MessageID" json:"read_by,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// MessageRead is a read receipt for a message.
type MessageRead struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	MessageID string    `gorm:"uniqueIndex:idx_message_read;not null;type:text" json:"-"`
	UserID    string    `gorm:"uniqueIndex:idx_message_read;not null;type:text" json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

// TableName returns the table name for the MessageRead entity.
func (MessageRead) TableName() string {
	return "message_reads"
}

// Request is a chat invitation from one user to another. The partial unique
// index on PairKey enforces at most one pending request per user pair
// regardless of direction.
type Request struct {
	ID        string     `gorm:"primaryKey;type:text" json:"id"`
	FromID    string     `gorm:"not null;type:text" json:"-"`
	From      *user.User `gorm:"foreignKey:FromID" json:"from,omitempty"`
	ToID      string     `gorm:"not null;type:text" json:"to"`
	Status    string     `gorm:"not null;default:pending;type:text" json:"status"`
	Message   string     `gorm:"type:text" json:"message,omitempty"`
	PairKey   string     `gorm:"not null;type:text;uniqueIndex:idx_pending_pair,where:status = 'pending'" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the table name for the Request entity.
func (Request) TableName() string {
	return "chat_requests"
}

// PairKeyFor builds the order-independent key for a pair of users.
func PairKeyFor(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

// ParticipantFor returns the participant entry for the given user, if any.
func (c *Chat) ParticipantFor(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// ParticipantIDs returns the user IDs of all participants.
func (c *Chat) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for i := range c.Participants {
		ids = append(ids, c.Participants[i].UserID)
	}
	return ids
}
