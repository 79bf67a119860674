package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/collabnotes/collabnotes/events"
)

// Module owns the hub and routes domain events from the bus into room
// emissions. Everything that reaches a socket because of a persisted
// change flows through here; ephemeral relays (typing, live note edits)
// go straight to the hub from the socket handlers.
type Module struct {
	hub    *Hub
	cancel context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new broadcast module.
func NewModule() *Module {
	return &Module{hub: NewHub()}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Hub returns the hub for the socket layer to register connections on.
func (m *Module) Hub() *Hub {
	return m.hub
}

// Start launches the hub loop.
func (m *Module) Start(_ context.Context) error {
	hubCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.hub.Run(hubCtx)

	log.Println("[broadcast] Module started")
	return nil
}

// Stop shuts down the hub and waits for it to close all connections.
func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
		m.hub.Wait()
	}
	log.Println("[broadcast] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"connected_clients": m.hub.ClientCount()},
	}
}

// RegisterEventConsumers subscribes the router to every domain event it
// fans out.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RequestCreatedV1, m.handleRequestCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RequestCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ChatCreatedV1, m.handleChatCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register ChatCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.NoteSharedV1, m.handleNoteShared, m,
	); err != nil {
		return fmt.Errorf("failed to register NoteShared consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.NoteSavedV1, m.handleNoteSaved, m,
	); err != nil {
		return fmt.Errorf("failed to register NoteSaved consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserStatusChangedV1, m.handleUserStatusChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register UserStatusChanged consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: RequestCreated, ChatCreated, MessageSent, NoteShared, NoteSaved, UserStatusChanged")
	return nil
}

// handleRequestCreated notifies the recipient of a new chat request.
func (m *Module) handleRequestCreated(_ context.Context, event events.RequestCreatedEvent, _ *mono.Msg) error {
	m.hub.EmitToUser(event.Request.ToID, "new_chat_request", event.Request)
	return nil
}

// handleChatCreated announces a new chat to every participant and joins
// the connected ones to the chat room so messages reach them immediately.
func (m *Module) handleChatCreated(_ context.Context, event events.ChatCreatedEvent, _ *mono.Msg) error {
	room := ChatRoom(event.Chat.ID)
	for _, userID := range event.Chat.ParticipantIDs() {
		m.hub.Join(userID, room)
		m.hub.EmitToUser(userID, "chat_created", event.Chat)
	}
	return nil
}

// handleMessageSent delivers a message to the chat room and tells every
// participant whose deleted view was restored to refresh their list.
func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	payload := map[string]any{"message": event.Message}
	if event.NoteAvailable != nil {
		payload["note_available"] = *event.NoteAvailable
	}
	m.hub.Emit(ChatRoom(event.Message.ChatID), "new_message", payload)

	for _, userID := range event.RestoredFor {
		m.hub.EmitToUser(userID, "chat_restored", map[string]any{
			"chat_id": event.Message.ChatID,
			"message": "Chat restored due to new message",
		})
	}
	return nil
}

// handleNoteShared tells each newly granted user they can now open the note.
func (m *Module) handleNoteShared(_ context.Context, event events.NoteSharedEvent, _ *mono.Msg) error {
	for _, userID := range event.Granted {
		m.hub.EmitToUser(userID, "note_shared_with_you", map[string]any{
			"note_id":   event.NoteID,
			"title":     event.Title,
			"shared_by": event.SharedByName,
		})
	}
	return nil
}

// handleNoteSaved tells each collaborator to refresh their note list.
func (m *Module) handleNoteSaved(_ context.Context, event events.NoteSavedEvent, _ *mono.Msg) error {
	for _, userID := range event.Recipients {
		m.hub.EmitToUser(userID, "note_list_refresh", map[string]any{
			"note_id": event.NoteID,
			"message": "A shared note was updated",
		})
	}
	return nil
}

// handleUserStatusChanged fans a presence flip out to the audience.
func (m *Module) handleUserStatusChanged(_ context.Context, event events.UserStatusChangedEvent, _ *mono.Msg) error {
	for _, userID := range event.Audience {
		m.hub.EmitToUser(userID, "user_status_changed", map[string]any{
			"user_id":   event.UserID,
			"username":  event.Username,
			"is_online": event.IsOnline,
		})
	}
	return nil
}
