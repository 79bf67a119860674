package api

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/collabnotes/collabnotes/modules/auth"
	"github.com/collabnotes/collabnotes/modules/broadcast"
	"github.com/collabnotes/collabnotes/modules/chat"
	"github.com/collabnotes/collabnotes/modules/note"
	"github.com/collabnotes/collabnotes/modules/presence"
)

// Module serves the REST API and the WebSocket endpoint.
type Module struct {
	app      *fiber.App
	addr     string
	handlers *Handlers

	auth      *auth.Module
	chat      *chat.Module
	note      *note.Module
	presence  *presence.Module
	broadcast *broadcast.Module

	// checked modules feed the /health roll-up.
	checked []mono.HealthCheckableModule
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)

// NewModule creates a new API module serving on the given address.
func NewModule(
	addr string,
	authModule *auth.Module,
	chatModule *chat.Module,
	noteModule *note.Module,
	presenceModule *presence.Module,
	broadcastModule *broadcast.Module,
) *Module {
	return &Module{
		addr:      addr,
		auth:      authModule,
		chat:      chatModule,
		note:      noteModule,
		presence:  presenceModule,
		broadcast: broadcastModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"auth", "chat", "note", "presence", "broadcast"}
}

// SetDependencyServiceContainer receives service containers from
// dependencies. This module takes its collaborators through the
// constructor; only the start ordering from Dependencies is used.
func (m *Module) SetDependencyServiceContainer(_ string, _ mono.ServiceContainer) {}

// WatchHealth adds modules to the /health roll-up.
func (m *Module) WatchHealth(modules ...mono.HealthCheckableModule) {
	m.checked = append(m.checked, modules...)
}

// Start initializes and starts the HTTP server.
func (m *Module) Start(_ context.Context) error {
	m.app = fiber.New(fiber.Config{
		AppName:               "collabnotes",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.handlers = NewHandlers(m.auth, m.chat, m.note, m.presence, m.broadcast)
	m.registerRoutes()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] Server started on %s", m.addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	log.Println("[api] Server stopped")
	return nil
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.healthCheck)

	authMW := AuthMiddleware(m.auth.Service())

	authGroup := m.app.Group("/api/auth")
	authGroup.Post("/register", m.handlers.Register)
	authGroup.Post("/login", m.handlers.Login)
	authGroup.Post("/logout", authMW, m.handlers.Logout)
	authGroup.Get("/me", authMW, m.handlers.Me)
	authGroup.Get("/users/search", authMW, m.handlers.SearchUsers)

	chatGroup := m.app.Group("/api/chat", authMW)
	chatGroup.Post("/request", m.handlers.CreateChatRequest)
	chatGroup.Get("/requests", m.handlers.ListChatRequests)
	chatGroup.Patch("/request/:id", m.handlers.RespondChatRequest)
	chatGroup.Get("/all", m.handlers.ListAllChats)
	chatGroup.Get("/", m.handlers.ListChats)
	chatGroup.Post("/group", m.handlers.CreateGroup)
	chatGroup.Patch("/:chatId/settings", m.handlers.UpdateChatSettings)
	chatGroup.Get("/:chatId/messages", m.handlers.ListMessages)

	noteGroup := m.app.Group("/api/notes", authMW)
	noteGroup.Patch("/bulk", m.handlers.BulkUpdateNotes)
	noteGroup.Get("/", m.handlers.ListNotes)
	noteGroup.Post("/", m.handlers.CreateNote)
	noteGroup.Get("/:id", m.handlers.GetNote)
	noteGroup.Put("/:id", m.handlers.UpdateNote)
	noteGroup.Delete("/:id", m.handlers.DeleteNote)
	noteGroup.Post("/:id/share", m.handlers.ShareNote)

	// Socket clients authenticate at upgrade time, token in query or header.
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := bearerToken(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token is required")
		}
		claims, err := m.auth.Service().ValidateToken(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}
		c.Locals(UserContextKey, claims)
		return c.Next()
	})
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))
}

// healthCheck rolls up the health of every watched module.
func (m *Module) healthCheck(c *fiber.Ctx) error {
	healthy := true
	modules := fiber.Map{}
	for _, checked := range m.checked {
		named, ok := checked.(mono.Module)
		if !ok {
			continue
		}
		status := checked.Health(c.UserContext())
		if !status.Healthy {
			healthy = false
		}
		modules[named.Name()] = status
	}

	code := fiber.StatusOK
	status := "healthy"
	if !healthy {
		code = fiber.StatusServiceUnavailable
		status = "degraded"
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"modules": modules,
	})
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		log.Printf("[api] HTTP error %d: %v", code, err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "request_failed",
		Message: message,
	})
}
