package note

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	domain "github.com/collabnotes/collabnotes/domain/note"
	"github.com/collabnotes/collabnotes/events"
	"github.com/collabnotes/collabnotes/modules/chat"
	"github.com/collabnotes/collabnotes/modules/storage"
)

// Module provides notes, sharing and the access grants behind note-share
// chat messages.
type Module struct {
	storage  *storage.Module
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
var _ chat.NoteSharer = (*Module)(nil)

// NewModule creates a new note module.
func NewModule(storageModule *storage.Module) *Module {
	return &Module{storage: storageModule}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "note"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"storage"}
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
		events.NoteSharedV1.ToBase(),
		events.NoteSavedV1.ToBase(),
	}
}

// Start wires the repository and service.
func (m *Module) Start(_ context.Context) error {
	db := m.storage.DB()
	if db == nil {
		return fmt.Errorf("storage module not started")
	}

	m.repo = NewRepository(db)
	m.service = NewService(m.repo)

	log.Println("[note] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[note] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.service != nil,
		Message: "operational",
	}
}

// Service returns the note service. Valid after Start.
func (m *Module) Service() *Service {
	return m.service
}

// GrantChatShare gives chat participants write access to a shared note.
// Delegates to the service; valid after Start, which the chat module's
// dependency on this module guarantees.
func (m *Module) GrantChatShare(ctx context.Context, noteID string, participantIDs []string, granterID string) (*chat.NoteGrant, error) {
	return m.service.GrantChatShare(ctx, noteID, participantIDs, granterID)
}

// Share grants users access to a note and announces the grant to the users
// who gained it.
func (m *Module) Share(ctx context.Context, noteID, ownerID string, userIDs []string, permission string) (*domain.Note, error) {
	n, granted, err := m.service.Share(ctx, noteID, ownerID, userIDs, permission)
	if err != nil {
		return nil, err
	}

	if len(granted) > 0 {
		event := events.NoteSharedEvent{
			NoteID:   n.ID,
			Title:    n.Title,
			SharedBy: ownerID,
			Granted:  granted,
		}
		if n.Owner != nil {
			event.SharedByName = n.Owner.Username
		}
		if err := events.NoteSharedV1.Publish(m.eventBus, event, nil); err != nil {
			log.Printf("[note] Failed to publish NoteShared event: %v", err)
		}
	}

	return n, nil
}

// NotifySaved announces an explicit save to every collaborator except the
// saver, so their note lists refresh.
func (m *Module) NotifySaved(ctx context.Context, noteID, savedBy string) error {
	recipients, err := m.service.RecipientsExcept(ctx, noteID, savedBy)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	event := events.NoteSavedEvent{
		NoteID:     noteID,
		SavedBy:    savedBy,
		Recipients: recipients,
	}
	if err := events.NoteSavedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[note] Failed to publish NoteSaved event: %v", err)
	}
	return nil
}
