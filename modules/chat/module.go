package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	domain "github.com/collabnotes/collabnotes/domain/chat"
	"github.com/collabnotes/collabnotes/events"
	"github.com/collabnotes/collabnotes/modules/storage"
)

// Module provides chat requests, chats, messages and per-participant
// visibility. Every mutation that other users must hear about is published
// on the event bus after it is persisted; fan-out to sockets happens in
// the broadcast module.
type Module struct {
	storage  *storage.Module
	notes    NoteSharer
	repo     *Repository
	service  *Service
	eventBus mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.EventBusAwareModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new chat module. The NoteSharer resolves note-share
// messages into access grants.
func NewModule(storageModule *storage.Module, notes NoteSharer) *Module {
	return &Module{storage: storageModule, notes: notes}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// Dependencies returns the list of module dependencies. The note module
// must start first so the grantor behind note-share messages is live.
func (m *Module) Dependencies() []string {
	return []string{"storage", "note"}
}

// SetDependencyServiceContainer receives service containers from
// dependencies. This module takes its collaborators through the
// constructor; only the start ordering from Dependencies is used.
func (m *Module) SetDependencyServiceContainer(_ string, _ mono.ServiceContainer) {}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RequestCreatedV1.ToBase(),
		events.ChatCreatedV1.ToBase(),
		events.MessageSentV1.ToBase(),
	}
}

// Start wires the repository and service.
func (m *Module) Start(_ context.Context) error {
	db := m.storage.DB()
	if db == nil {
		return fmt.Errorf("storage module not started")
	}

	m.repo = NewRepository(db)
	m.service = NewService(m.repo, m.notes)

	log.Println("[chat] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[chat] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.service != nil,
		Message: "operational",
	}
}

// Service returns the chat service. Valid after Start.
func (m *Module) Service() *Service {
	return m.service
}

// CreateRequest creates a pending chat request and announces it to the
// recipient.
func (m *Module) CreateRequest(ctx context.Context, fromID, toID, message string) (*domain.Request, error) {
	req, err := m.service.CreateRequest(ctx, fromID, toID, message)
	if err != nil {
		return nil, err
	}

	event := events.RequestCreatedEvent{Request: *req}
	if req.From != nil {
		event.From = req.From.Summarize()
	}
	if err := events.RequestCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Failed to publish RequestCreated event: %v", err)
	}

	return req, nil
}

// RespondToRequest settles a pending request. Accepting creates the chat
// and announces it to both participants.
func (m *Module) RespondToRequest(ctx context.Context, requestID, responderID, status string) (*RespondResult, error) {
	result, err := m.service.RespondToRequest(ctx, requestID, responderID, status)
	if err != nil {
		return nil, err
	}

	if result.Chat != nil {
		event := events.ChatCreatedEvent{Chat: *result.Chat}
		if err := events.ChatCreatedV1.Publish(m.eventBus, event, nil); err != nil {
			log.Printf("[chat] Failed to publish ChatCreated event: %v", err)
		}
	}

	return result, nil
}

// CreateGroup creates a group chat and announces it to its members.
func (m *Module) CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*domain.Chat, error) {
	c, err := m.service.CreateGroup(ctx, creatorID, name, memberIDs)
	if err != nil {
		return nil, err
	}

	event := events.ChatCreatedEvent{Chat: *c}
	if err := events.ChatCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Failed to publish ChatCreated event: %v", err)
	}

	return c, nil
}

// SendMessage runs the send pipeline and publishes the resulting events:
// MessageSent always, NoteShared when the message granted note access.
func (m *Module) SendMessage(ctx context.Context, in SendInput) (*SendResult, error) {
	result, err := m.service.SendMessage(ctx, in)
	if err != nil {
		return nil, err
	}

	event := events.MessageSentEvent{
		Message:       *result.Message,
		NoteAvailable: result.NoteAvailable,
		RestoredFor:   result.RestoredFor,
	}
	if err := events.MessageSentV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Failed to publish MessageSent event: %v", err)
	}

	if g := result.NoteGrant; g != nil {
		shared := events.NoteSharedEvent{
			NoteID:   g.Note.ID,
			Title:    g.Note.Title,
			SharedBy: in.SenderID,
			Granted:  g.Granted,
		}
		if result.Message.Sender != nil {
			shared.SharedByName = result.Message.Sender.Username
		}
		if err := events.NoteSharedV1.Publish(m.eventBus, shared, nil); err != nil {
			log.Printf("[chat] Failed to publish NoteShared event: %v", err)
		}
	}

	return result, nil
}
