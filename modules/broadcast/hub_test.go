package broadcast

import (
	"testing"

	"github.com/gofiber/contrib/websocket"
)

func newTestClient(userID, username string) *Client {
	return &Client{UserID: userID, Username: username, Conn: &websocket.Conn{}}
}

func TestHub_RegisterJoinsPersonalRoom(t *testing.T) {
	hub := NewHub()
	client := newTestClient("alice-id", "alice")

	hub.Register(client)

	if !hub.IsConnected("alice-id") {
		t.Error("expected alice to be connected")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}
	if !hub.InRoom("alice-id", UserRoom("alice-id")) {
		t.Error("expected alice in her personal room")
	}
}

func TestHub_JoinUnknownUserIgnored(t *testing.T) {
	hub := NewHub()

	hub.Join("ghost", ChatRoom("chat-1"))

	if hub.InRoom("ghost", ChatRoom("chat-1")) {
		t.Error("expected unknown users to be ignored")
	}
	if len(hub.RoomMembers(ChatRoom("chat-1"))) != 0 {
		t.Error("expected the room to stay empty")
	}
}

func TestHub_JoinAndLeave(t *testing.T) {
	hub := NewHub()
	hub.Register(newTestClient("alice-id", "alice"))
	hub.Register(newTestClient("bob-id", "bob"))

	room := ChatRoom("chat-1")
	hub.Join("alice-id", room)
	hub.Join("bob-id", room)

	members := hub.RoomMembers(room)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	hub.Leave("alice-id", room)
	if hub.InRoom("alice-id", room) {
		t.Error("expected alice out of the room")
	}
	if !hub.InRoom("bob-id", room) {
		t.Error("expected bob still in the room")
	}

	// The last member leaving removes the room entirely.
	hub.Leave("bob-id", room)
	if len(hub.RoomMembers(room)) != 0 {
		t.Error("expected an empty room after everyone left")
	}
}

func TestHub_UnregisterCleansRooms(t *testing.T) {
	hub := NewHub()
	client := newTestClient("alice-id", "alice")
	hub.Register(client)
	hub.Join("alice-id", ChatRoom("chat-1"))
	hub.Join("alice-id", NoteRoom("note-1"))

	if !hub.Unregister(client) {
		t.Error("expected the unregister to report removal")
	}

	if hub.IsConnected("alice-id") {
		t.Error("expected alice disconnected")
	}
	for _, room := range []string{UserRoom("alice-id"), ChatRoom("chat-1"), NoteRoom("note-1")} {
		if hub.InRoom("alice-id", room) {
			t.Errorf("expected alice removed from %s", room)
		}
	}
}

func TestHub_UnregisterStaleConnection(t *testing.T) {
	hub := NewHub()
	current := newTestClient("alice-id", "alice")
	hub.Register(current)

	// A leftover unregister from an older connection must not evict the
	// live one, and must report that nothing was removed so the caller
	// does not flip the user offline.
	stale := newTestClient("alice-id", "alice")
	if hub.Unregister(stale) {
		t.Error("expected a stale unregister to report no removal")
	}

	if !hub.IsConnected("alice-id") {
		t.Error("expected the live connection to survive a stale unregister")
	}
	if !hub.InRoom("alice-id", UserRoom("alice-id")) {
		t.Error("expected the personal room membership to survive")
	}
}

func TestHub_RoomNames(t *testing.T) {
	if UserRoom("u1") != "user_u1" {
		t.Errorf("unexpected user room name: %s", UserRoom("u1"))
	}
	if ChatRoom("c1") != "chat_c1" {
		t.Errorf("unexpected chat room name: %s", ChatRoom("c1"))
	}
	if NoteRoom("n1") != "note_n1" {
		t.Errorf("unexpected note room name: %s", NoteRoom("n1"))
	}
}
