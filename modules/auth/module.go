package auth

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"

	"github.com/collabnotes/collabnotes/modules/storage"
)

// Module provides authentication services.
type Module struct {
	storage *storage.Module
	service *Service
	repo    *UserRepository
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new auth module.
func NewModule(storageModule *storage.Module) *Module {
	return &Module{storage: storageModule}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"storage"}
}

// SetDependencyServiceContainer receives service containers from
// dependencies. This module takes its collaborators through the
// constructor; only the start ordering from Dependencies is used.
func (m *Module) SetDependencyServiceContainer(_ string, _ mono.ServiceContainer) {}

// Start wires the repository, hasher and token manager.
func (m *Module) Start(_ context.Context) error {
	db := m.storage.DB()
	if db == nil {
		return fmt.Errorf("storage module not started")
	}

	m.repo = NewUserRepository(db)
	m.service = NewService(m.repo, NewPasswordHasher(), NewJWTManager(loadJWTConfig()))

	log.Println("[auth] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.service != nil,
		Message: "operational",
	}
}

// Service returns the auth service. Valid after Start.
func (m *Module) Service() *Service {
	return m.service
}

// Users returns the user repository. Valid after Start.
func (m *Module) Users() *UserRepository {
	return m.repo
}

// loadJWTConfig loads JWT configuration from environment variables.
func loadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()

	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.SecretKey = secret
	}
	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}

	return config
}
