package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/collabnotes/collabnotes/modules/api"
	"github.com/collabnotes/collabnotes/modules/auth"
	"github.com/collabnotes/collabnotes/modules/broadcast"
	"github.com/collabnotes/collabnotes/modules/chat"
	"github.com/collabnotes/collabnotes/modules/note"
	"github.com/collabnotes/collabnotes/modules/presence"
	"github.com/collabnotes/collabnotes/modules/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== CollabNotes - Notes & Chat Backend ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	// Create modules. The note module doubles as the access grantor the
	// chat module consults when a note is shared into a chat.
	storageModule := storage.NewModule()
	authModule := auth.NewModule(storageModule)
	noteModule := note.NewModule(storageModule)
	chatModule := chat.NewModule(storageModule, noteModule)
	presenceModule := presence.NewModule(authModule, chatModule)
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule(":"+port, authModule, chatModule, noteModule, presenceModule, broadcastModule)

	apiModule.WatchHealth(storageModule, authModule, chatModule, noteModule, presenceModule, broadcastModule)

	app.Register(storageModule)
	app.Register(authModule)
	app.Register(noteModule)
	app.Register(chatModule)
	app.Register(presenceModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	log.Printf("Listening on :%s (REST under /api, WebSocket at /ws)", port)
	log.Println("Press Ctrl+C to shutdown gracefully")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
