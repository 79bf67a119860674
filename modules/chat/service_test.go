package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	domain "github.com/collabnotes/collabnotes/domain/chat"
	"github.com/collabnotes/collabnotes/domain/note"
)

// fakeNoteSharer stands in for the note module in send-pipeline tests.
type fakeNoteSharer struct {
	grant *NoteGrant
	err   error
	calls int
}

func (f *fakeNoteSharer) GrantChatShare(_ context.Context, noteID string, participantIDs []string, granterID string) (*NoteGrant, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.grant != nil {
		return f.grant, nil
	}
	return &NoteGrant{}, nil
}

func newTestService(t *testing.T) (*Service, *Repository, *fakeNoteSharer) {
	t.Helper()
	db := setupTestDB(t)
	repo := NewRepository(db)
	sharer := &fakeNoteSharer{}
	return NewService(repo, sharer), repo, sharer
}

func TestService_CreateRequest(t *testing.T) {
	service, _, _ := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()

	req, err := service.CreateRequest(ctx, alice.ID, bob.ID, "let's talk")
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	if req.Status != domain.RequestPending {
		t.Errorf("expected pending status, got %s", req.Status)
	}
	if req.From == nil || req.From.Username != "alice" {
		t.Error("expected sender to be populated on the returned request")
	}

	if _, err := service.CreateRequest(ctx, alice.ID, alice.ID, "hi"); !errors.Is(err, ErrSelfRequest) {
		t.Errorf("expected ErrSelfRequest, got %v", err)
	}
	if _, err := service.CreateRequest(ctx, bob.ID, alice.ID, "me too"); !errors.Is(err, ErrRequestExists) {
		t.Errorf("expected ErrRequestExists for the reverse direction, got %v", err)
	}
	long := strings.Repeat("x", domain.MaxRequestLength+1)
	if _, err := service.CreateRequest(ctx, alice.ID, bob.ID, long); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("expected ErrMessageTooLong, got %v", err)
	}
}

func TestService_RespondToRequest(t *testing.T) {
	service, _, _ := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()

	req, err := service.CreateRequest(ctx, alice.ID, bob.ID, "hello")
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}

	if _, err := service.RespondToRequest(ctx, req.ID, bob.ID, "maybe"); !errors.Is(err, ErrBadStatus) {
		t.Errorf("expected ErrBadStatus, got %v", err)
	}

	// Only the recipient may answer.
	if _, err := service.RespondToRequest(ctx, req.ID, alice.ID, domain.RequestAccepted); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound for the sender, got %v", err)
	}

	result, err := service.RespondToRequest(ctx, req.ID, bob.ID, domain.RequestAccepted)
	if err != nil {
		t.Fatalf("RespondToRequest() error = %v", err)
	}
	if result.Chat == nil {
		t.Fatal("expected a chat to be created on accept")
	}
	if len(result.Chat.Participants) != 2 {
		t.Errorf("expected 2 participants, got %d", len(result.Chat.Participants))
	}
	if result.Chat.ParticipantFor(alice.ID) == nil || result.Chat.ParticipantFor(bob.ID) == nil {
		t.Error("expected both users as participants")
	}

	// A settled request cannot be answered again.
	if _, err := service.RespondToRequest(ctx, req.ID, bob.ID, domain.RequestRejected); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound on second response, got %v", err)
	}
}

func TestService_RespondToRequest_Reject(t *testing.T) {
	service, _, _ := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()

	req, err := service.CreateRequest(ctx, alice.ID, bob.ID, "hello")
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}

	result, err := service.RespondToRequest(ctx, req.ID, bob.ID, domain.RequestRejected)
	if err != nil {
		t.Fatalf("RespondToRequest() error = %v", err)
	}
	if result.Chat != nil {
		t.Error("expected no chat on reject")
	}
	if result.Request.Status != domain.RequestRejected {
		t.Errorf("expected rejected status, got %s", result.Request.Status)
	}
}

func TestService_CreateGroup(t *testing.T) {
	service, _, _ := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	ctx := context.Background()

	if _, err := service.CreateGroup(ctx, alice.ID, "", []string{bob.ID}); !errors.Is(err, ErrGroupName) {
		t.Errorf("expected ErrGroupName, got %v", err)
	}
	// The creator and duplicates do not count as members.
	if _, err := service.CreateGroup(ctx, alice.ID, "team", []string{alice.ID}); !errors.Is(err, ErrGroupMembers) {
		t.Errorf("expected ErrGroupMembers, got %v", err)
	}

	c, err := service.CreateGroup(ctx, alice.ID, "team", []string{bob.ID, bob.ID, carol.ID, alice.ID})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if !c.IsGroup || c.Name != "team" {
		t.Errorf("expected group chat named team, got IsGroup=%v Name=%s", c.IsGroup, c.Name)
	}
	if len(c.Participants) != 3 {
		t.Fatalf("expected 3 participants after dedup, got %d", len(c.Participants))
	}
	creator := c.ParticipantFor(alice.ID)
	if creator == nil || creator.Role != domain.RoleAdmin {
		t.Error("expected the creator to be an admin")
	}
	if member := c.ParticipantFor(bob.ID); member == nil || member.Role != domain.RoleMember {
		t.Error("expected other members to have the member role")
	}
}

func TestService_UpdateSettings(t *testing.T) {
	service, repo, _ := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()
	c := createChatBetween(t, repo, alice.ID, bob.ID)

	yes := true
	if _, err := service.UpdateSettings(ctx, c.ID, alice.ID, SettingsUpdate{IsPinned: &yes}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	// Archiving clears the pin.
	updated, err := service.UpdateSettings(ctx, c.ID, alice.ID, SettingsUpdate{IsArchived: &yes})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	p := updated.ParticipantFor(alice.ID)
	if !p.IsArchived || p.IsPinned {
		t.Errorf("expected archived and unpinned, got archived=%v pinned=%v", p.IsArchived, p.IsPinned)
	}

	// Bob's view is untouched.
	if other := updated.ParticipantFor(bob.ID); other.IsArchived || other.IsPinned {
		t.Error("expected the other participant's flags to stay clear")
	}

	if _, err := service.UpdateSettings(ctx, c.ID, "nobody", SettingsUpdate{IsPinned: &yes}); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound for non-participant, got %v", err)
	}
}

func TestService_ListMessagesDeletedViewer(t *testing.T) {
	service, repo, _ := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()
	c := createChatBetween(t, repo, alice.ID, bob.ID)

	yes := true
	if _, err := service.UpdateSettings(ctx, c.ID, alice.ID, SettingsUpdate{IsDeleted: &yes}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	if _, err := service.ListMessages(ctx, c.ID, alice.ID, 1, 50); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound for a deleted view, got %v", err)
	}
	if _, err := service.ListMessages(ctx, c.ID, bob.ID, 1, 50); err != nil {
		t.Errorf("expected the other participant to still list messages, got %v", err)
	}
}

func TestService_SendMessageValidation(t *testing.T) {
	service, repo, _ := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	ctx := context.Background()
	c := createChatBetween(t, repo, alice.ID, bob.ID)

	if _, err := service.SendMessage(ctx, SendInput{ChatID: c.ID, SenderID: alice.ID}); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty, got %v", err)
	}
	long := strings.Repeat("x", domain.MaxMessageLength+1)
	if _, err := service.SendMessage(ctx, SendInput{ChatID: c.ID, SenderID: alice.ID, Content: long}); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("expected ErrMessageTooLong, got %v", err)
	}
	if _, err := service.SendMessage(ctx, SendInput{ChatID: c.ID, SenderID: carol.ID, Content: "hi"}); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound for non-participant, got %v", err)
	}
}

func TestService_SendMessageRestoresDeletedViews(t *testing.T) {
	service, repo, _ := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()
	c := createChatBetween(t, repo, alice.ID, bob.ID)

	yes := true
	if _, err := service.UpdateSettings(ctx, c.ID, bob.ID, SettingsUpdate{IsArchived: &yes}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if _, err := service.UpdateSettings(ctx, c.ID, bob.ID, SettingsUpdate{IsDeleted: &yes}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	result, err := service.SendMessage(ctx, SendInput{ChatID: c.ID, SenderID: alice.ID, Content: "anyone there?"})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if len(result.RestoredFor) != 1 || result.RestoredFor[0] != bob.ID {
		t.Errorf("expected bob's view restored, got %v", result.RestoredFor)
	}
	if result.Message == nil || result.Message.Sender == nil || result.Message.Sender.Username != "alice" {
		t.Error("expected the persisted message with sender populated")
	}

	full, err := repo.FindChatByID(c.ID)
	if err != nil {
		t.Fatalf("FindChatByID() error = %v", err)
	}
	p := full.ParticipantFor(bob.ID)
	if p.IsDeleted || p.IsArchived {
		t.Errorf("expected deleted and archived flags cleared, got deleted=%v archived=%v", p.IsDeleted, p.IsArchived)
	}
	if full.LastMessageID == nil || *full.LastMessageID != result.Message.ID {
		t.Error("expected the chat's last message to be updated")
	}
}

func TestService_SendMessageSenderDeletedViewStays(t *testing.T) {
	service, repo, _ := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()
	c := createChatBetween(t, repo, alice.ID, bob.ID)

	yes := true
	if _, err := service.UpdateSettings(ctx, c.ID, alice.ID, SettingsUpdate{IsDeleted: &yes}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	// Sending does not resurrect the sender's own deleted view.
	result, err := service.SendMessage(ctx, SendInput{ChatID: c.ID, SenderID: alice.ID, Content: "back again"})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if len(result.RestoredFor) != 0 {
		t.Errorf("expected no restored views, got %v", result.RestoredFor)
	}

	full, err := repo.FindChatByID(c.ID)
	if err != nil {
		t.Fatalf("FindChatByID() error = %v", err)
	}
	if !full.ParticipantFor(alice.ID).IsDeleted {
		t.Error("expected the sender's deleted flag to remain set")
	}
}

func TestService_SendMessageNoteShare(t *testing.T) {
	service, repo, sharer := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()
	c := createChatBetween(t, repo, alice.ID, bob.ID)

	noteID := "note-1"
	sharer.grant = &NoteGrant{
		Note:    note.Summary{ID: noteID, Title: "Shopping"},
		Granted: []string{bob.ID},
	}

	result, err := service.SendMessage(ctx, SendInput{
		ChatID:       c.ID,
		SenderID:     alice.ID,
		Content:      "sharing my list",
		Type:         domain.MessageTypeNote,
		SharedNoteID: &noteID,
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if sharer.calls != 1 {
		t.Fatalf("expected one grant call, got %d", sharer.calls)
	}
	if result.NoteAvailable == nil || !*result.NoteAvailable {
		t.Error("expected the note to be marked available")
	}
	if result.NoteGrant == nil || len(result.NoteGrant.Granted) != 1 {
		t.Fatal("expected the grant to be carried in the result")
	}
}

func TestService_SendMessageNoteGone(t *testing.T) {
	service, repo, sharer := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()
	c := createChatBetween(t, repo, alice.ID, bob.ID)

	sharer.err = ErrSharedNoteGone
	noteID := "gone"

	// A vanished note never fails the send.
	result, err := service.SendMessage(ctx, SendInput{
		ChatID:       c.ID,
		SenderID:     alice.ID,
		Content:      "check this out",
		Type:         domain.MessageTypeNote,
		SharedNoteID: &noteID,
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if result.NoteAvailable == nil || *result.NoteAvailable {
		t.Error("expected the note to be marked unavailable")
	}
	if result.NoteGrant != nil {
		t.Error("expected no grant for a vanished note")
	}
	if result.Message == nil {
		t.Error("expected the message to be delivered anyway")
	}
}

func TestService_SendMessageTextSkipsGrant(t *testing.T) {
	service, repo, sharer := newTestService(t)
	db := service.repo.db
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()
	c := createChatBetween(t, repo, alice.ID, bob.ID)

	result, err := service.SendMessage(ctx, SendInput{ChatID: c.ID, SenderID: alice.ID, Content: "plain text"})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if sharer.calls != 0 {
		t.Errorf("expected no grant call for a text message, got %d", sharer.calls)
	}
	if result.NoteAvailable != nil {
		t.Error("expected no availability marker on a text message")
	}
	if result.Message.Type != domain.MessageTypeText {
		t.Errorf("expected default text type, got %s", result.Message.Type)
	}
}
