package events

import (
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/collabnotes/collabnotes/domain/chat"
	"github.com/collabnotes/collabnotes/domain/user"
)

// RequestCreatedEvent is emitted when a chat request is persisted.
type RequestCreatedEvent struct {
	Request chat.Request `json:"request"`
	From    user.Summary `json:"from"`
}

// ChatCreatedEvent is emitted when a request is accepted and the chat exists.
// The chat carries its participants with user summaries populated.
type ChatCreatedEvent struct {
	Chat chat.Chat `json:"chat"`
}

// MessageSentEvent is emitted after a message and all its side effects
// (visibility restoration, note-share grants) are persisted. RestoredFor
// lists the participants whose deleted view of the chat was just cleared.
// NoteAvailable is set only for note-share messages; false means the
// referenced note was deleted before the share could be resolved.
type MessageSentEvent struct {
	Message       chat.Message `json:"message"`
	NoteAvailable *bool        `json:"note_available,omitempty"`
	RestoredFor   []string     `json:"restored_for,omitempty"`
}

// Event definitions for the chat domain.
var (
	RequestCreatedV1 = helper.EventDefinition[RequestCreatedEvent](
		"chat",
		"RequestCreated",
		"v1",
	)

	ChatCreatedV1 = helper.EventDefinition[ChatCreatedEvent](
		"chat",
		"ChatCreated",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)
)
