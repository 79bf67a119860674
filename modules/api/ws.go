package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/contrib/websocket"

	"github.com/collabnotes/collabnotes/domain/user"
	"github.com/collabnotes/collabnotes/modules/broadcast"
	"github.com/collabnotes/collabnotes/modules/chat"
)

// clientMessage is the wire format for client-to-server socket events.
// Each event name has its own payload struct, decoded and validated here
// before anything else runs.
type clientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type sendMessagePayload struct {
	ChatID       string  `json:"chat_id"`
	Content      string  `json:"content"`
	Type         string  `json:"type"`
	SharedNoteID *string `json:"shared_note_id"`
}

type typingPayload struct {
	ChatID string `json:"chat_id"`
}

type notePayload struct {
	NoteID string `json:"note_id"`
}

type noteUpdatePayload struct {
	NoteID  string          `json:"note_id"`
	Updates json.RawMessage `json:"updates"`
}

// wsSession holds the per-connection state of one socket.
type wsSession struct {
	client *broadcast.Client
	claims *user.Claims
	// typing tracks which chats this connection has an active typing
	// indicator in; a stop for an unmarked chat is a no-op.
	typing map[string]bool
}

// HandleWebSocket runs one authenticated socket session: registers the
// connection, flips the user online, dispatches events until the client
// disconnects, then mirrors everything back down.
func (h *Handlers) HandleWebSocket(conn *websocket.Conn) {
	claims, ok := conn.Locals(UserContextKey).(*user.Claims)
	if !ok {
		_ = conn.Close()
		return
	}

	hub := h.broadcast.Hub()
	session := &wsSession{
		client: &broadcast.Client{
			UserID:   claims.UserID,
			Username: claims.Username,
			Conn:     conn,
		},
		claims: claims,
		typing: make(map[string]bool),
	}

	ctx := context.Background()
	hub.Register(session.client)
	if err := h.presence.SetOnline(ctx, claims.UserID, claims.Username); err != nil {
		log.Printf("[ws] Failed to mark user %s online: %v", claims.UserID, err)
	}

	defer func() {
		// A reconnect replaces this client before its read loop exits;
		// only the connection that actually left flips the user offline.
		if hub.Unregister(session.client) {
			if err := h.presence.SetOffline(ctx, claims.UserID, claims.Username); err != nil {
				log.Printf("[ws] Failed to mark user %s offline: %v", claims.UserID, err)
			}
		}
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] Read error for user %s: %v", claims.UserID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			session.client.Send("error", map[string]string{"message": "Invalid message format"})
			continue
		}

		h.dispatch(ctx, session, msg)
	}
}

func (h *Handlers) dispatch(ctx context.Context, s *wsSession, msg clientMessage) {
	switch msg.Event {
	case "join_chats":
		h.handleJoinChats(ctx, s)
	case "send_message":
		h.handleSendMessage(ctx, s, msg.Data)
	case "typing_start":
		h.handleTyping(s, msg.Data, true)
	case "typing_stop":
		h.handleTyping(s, msg.Data, false)
	case "join_note":
		h.handleJoinNote(ctx, s, msg.Data)
	case "leave_note":
		h.handleLeaveNote(s, msg.Data)
	case "note_update":
		h.handleNoteUpdate(ctx, s, msg.Data)
	case "note_saved":
		h.handleNoteSaved(ctx, s, msg.Data)
	default:
		s.client.Send("error", map[string]string{"message": "Unknown event: " + msg.Event})
	}
}

// handleJoinChats subscribes the connection to every chat the user
// participates in, deleted and archived included, so restored chats
// deliver immediately.
func (h *Handlers) handleJoinChats(ctx context.Context, s *wsSession) {
	chatIDs, err := h.chat.Service().ChatIDsFor(ctx, s.claims.UserID)
	if err != nil {
		log.Printf("[ws] Failed to load chats for user %s: %v", s.claims.UserID, err)
		return
	}
	hub := h.broadcast.Hub()
	for _, chatID := range chatIDs {
		hub.Join(s.claims.UserID, broadcast.ChatRoom(chatID))
	}
}

func (h *Handlers) handleSendMessage(ctx context.Context, s *wsSession, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		s.client.Send("error", map[string]string{"message": "Invalid send_message payload"})
		return
	}

	_, err := h.chat.SendMessage(ctx, chat.SendInput{
		ChatID:       payload.ChatID,
		SenderID:     s.claims.UserID,
		Content:      payload.Content,
		Type:         messageTypeOrText(payload.Type),
		SharedNoteID: payload.SharedNoteID,
	})
	if err != nil {
		log.Printf("[ws] Send message error for user %s: %v", s.claims.UserID, err)
		s.client.Send("error", map[string]string{"message": sendErrorMessage(err)})
	}
}

func (h *Handlers) handleTyping(s *wsSession, data json.RawMessage, start bool) {
	var payload typingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		return
	}

	event := "user_typing"
	if !start {
		if !s.typing[payload.ChatID] {
			return
		}
		delete(s.typing, payload.ChatID)
		event = "user_stop_typing"
	} else {
		s.typing[payload.ChatID] = true
	}

	h.broadcast.Hub().EmitExcept(broadcast.ChatRoom(payload.ChatID), s.claims.UserID, event, map[string]string{
		"chat_id":  payload.ChatID,
		"user_id":  s.claims.UserID,
		"username": s.claims.Username,
	})
}

func (h *Handlers) handleJoinNote(ctx context.Context, s *wsSession, data json.RawMessage) {
	var payload notePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.NoteID == "" {
		return
	}

	ok, err := h.note.Service().HasAccess(ctx, payload.NoteID, s.claims.UserID)
	if err != nil {
		log.Printf("[ws] Join note error for user %s: %v", s.claims.UserID, err)
		return
	}
	if !ok {
		log.Printf("[ws] User %s denied access to note %s", s.claims.Username, payload.NoteID)
		return
	}

	room := broadcast.NoteRoom(payload.NoteID)
	hub := h.broadcast.Hub()
	hub.Join(s.claims.UserID, room)
	hub.EmitExcept(room, s.claims.UserID, "user_joined_note", map[string]string{
		"user_id":  s.claims.UserID,
		"username": s.claims.Username,
	})
}

func (h *Handlers) handleLeaveNote(s *wsSession, data json.RawMessage) {
	var payload notePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.NoteID == "" {
		return
	}

	room := broadcast.NoteRoom(payload.NoteID)
	hub := h.broadcast.Hub()
	hub.Leave(s.claims.UserID, room)
	hub.Emit(room, "user_left_note", map[string]string{
		"user_id":  s.claims.UserID,
		"username": s.claims.Username,
	})
}

// handleNoteUpdate relays a live edit to everyone else in the note room.
// Nothing is persisted; saves go through the REST API.
func (h *Handlers) handleNoteUpdate(ctx context.Context, s *wsSession, data json.RawMessage) {
	var payload noteUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.NoteID == "" {
		return
	}

	ok, err := h.note.Service().CanWrite(ctx, payload.NoteID, s.claims.UserID)
	if err != nil {
		log.Printf("[ws] Note update error for user %s: %v", s.claims.UserID, err)
		return
	}
	if !ok {
		log.Printf("[ws] User %s denied write access to note %s", s.claims.Username, payload.NoteID)
		return
	}

	h.broadcast.Hub().EmitExcept(broadcast.NoteRoom(payload.NoteID), s.claims.UserID, "note_updated", map[string]any{
		"note_id": payload.NoteID,
		"updates": payload.Updates,
		"updated_by": map[string]string{
			"id":       s.claims.UserID,
			"username": s.claims.Username,
		},
	})
}

func (h *Handlers) handleNoteSaved(ctx context.Context, s *wsSession, data json.RawMessage) {
	var payload notePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.NoteID == "" {
		return
	}

	if err := h.note.NotifySaved(ctx, payload.NoteID, s.claims.UserID); err != nil {
		log.Printf("[ws] Note saved broadcast error for user %s: %v", s.claims.UserID, err)
	}
}

// sendErrorMessage keeps socket error payloads terse without leaking
// internals.
func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrChatNotFound):
		return "Chat not found"
	case errors.Is(err, chat.ErrMessageEmpty), errors.Is(err, chat.ErrMessageTooLong):
		return err.Error()
	default:
		return "Failed to send message"
	}
}
