package presence

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"

	"github.com/collabnotes/collabnotes/events"
	"github.com/collabnotes/collabnotes/modules/auth"
	"github.com/collabnotes/collabnotes/modules/chat"
)

// Module tracks which users are online and announces transitions to the
// audience that shares a chat with them. When PRESENCE_CACHE_ADDR is set
// the audience computation is cached in Redis.
type Module struct {
	auth     *auth.Module
	chat     *chat.Module
	tracker  *Tracker
	client   *redis.Client
	eventBus mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.EventBusAwareModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new presence module.
func NewModule(authModule *auth.Module, chatModule *chat.Module) *Module {
	return &Module{auth: authModule, chat: chatModule}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "presence"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"auth", "chat"}
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
		events.UserStatusChangedV1.ToBase(),
	}
}

// Start wires the tracker, with an optional Redis audience cache.
func (m *Module) Start(ctx context.Context) error {
	var source AudienceSource = m.chat.Service()

	if addr := os.Getenv("PRESENCE_CACHE_ADDR"); addr != "" {
		m.client = redis.NewClient(&redis.Options{
			Addr:         addr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := m.client.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("failed to connect to presence cache: %w", err)
		}
		source = NewAudienceCache(m.client, source, DefaultAudienceTTL)
		log.Printf("[presence] Audience cache enabled at %s", addr)
	}

	m.tracker = NewTracker(m.auth.Users(), source)

	log.Println("[presence] Module started")
	return nil
}

// Stop shuts down the module and closes the cache connection if any.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			log.Printf("[presence] Error closing cache connection: %v", err)
		}
	}
	log.Println("[presence] Module stopped")
	return nil
}

// Health returns the health status of the module. With the cache enabled
// it reflects the Redis connection.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.tracker == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	if m.client != nil {
		if err := m.client.Ping(ctx).Err(); err != nil {
			return mono.HealthStatus{
				Healthy: false,
				Message: "presence cache unreachable",
				Details: map[string]any{"error": err.Error()},
			}
		}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// SetOnline marks the user online and announces the change.
func (m *Module) SetOnline(ctx context.Context, userID, username string) error {
	change, err := m.tracker.SetOnline(ctx, userID, username)
	if err != nil {
		return err
	}
	m.publish(change)
	return nil
}

// SetOffline marks the user offline, stamps last seen and announces the
// change.
func (m *Module) SetOffline(ctx context.Context, userID, username string) error {
	change, err := m.tracker.SetOffline(ctx, userID, username)
	if err != nil {
		return err
	}
	m.publish(change)
	return nil
}

func (m *Module) publish(change *Change) {
	event := events.UserStatusChangedEvent{
		UserID:   change.UserID,
		Username: change.Username,
		IsOnline: change.IsOnline,
		Audience: change.Audience,
	}
	if err := events.UserStatusChangedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[presence] Failed to publish UserStatusChanged event: %v", err)
	}
}
