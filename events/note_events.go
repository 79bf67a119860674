package events

import "github.com/go-monolith/mono/pkg/helper"

// NoteSharedEvent is emitted when sharing a note into a chat grants write
// access to participants who did not have it yet.
type NoteSharedEvent struct {
	NoteID       string   `json:"note_id"`
	Title        string   `json:"title"`
	SharedBy     string   `json:"shared_by"`
	SharedByName string   `json:"shared_by_name"`
	Granted      []string `json:"granted"`
}

// NoteSavedEvent is emitted when a note is explicitly saved so that other
// collaborators refresh their note lists. Recipients already excludes the
// saver.
type NoteSavedEvent struct {
	NoteID     string   `json:"note_id"`
	SavedBy    string   `json:"saved_by"`
	Recipients []string `json:"recipients"`
}

// Event definitions for the note domain.
var (
	NoteSharedV1 = helper.EventDefinition[NoteSharedEvent](
		"note",
		"NoteShared",
		"v1",
	)

	NoteSavedV1 = helper.EventDefinition[NoteSavedEvent](
		"note",
		"NoteSaved",
		"v1",
	)
)
