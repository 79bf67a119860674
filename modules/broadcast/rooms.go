package broadcast

// Room name builders. Personal rooms receive user-targeted events, chat
// rooms carry messages and typing, note rooms carry live collaboration.

// UserRoom is the personal room every connection joins on registration.
func UserRoom(userID string) string {
	return "user_" + userID
}

// ChatRoom is the room for one chat's messages and typing events.
func ChatRoom(chatID string) string {
	return "chat_" + chatID
}

// NoteRoom is the room for one note's collaborative editing session.
func NoteRoom(noteID string) string {
	return "note_" + noteID
}
